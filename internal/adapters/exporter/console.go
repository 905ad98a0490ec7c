package exporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"whatsapp-wrapped/internal/domain"
	"whatsapp-wrapped/internal/ports"
)

// fallbackWidth используется, когда вывод идет не в терминал.
const fallbackWidth = 100

// ConsoleExporter реализует интерфейс Exporter для вывода сводки отчета
// в консоль в виде выровненной таблицы.
type ConsoleExporter struct {
	out   io.Writer
	width int
}

// NewConsoleExporter создает экспортер, пишущий в stdout. Ширина таблицы
// подстраивается под ширину терминала, если она определима.
func NewConsoleExporter() ports.Exporter {
	width := fallbackWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 40 {
		width = w
	}
	return &ConsoleExporter{out: os.Stdout, width: width}
}

// NewConsoleExporterTo создает экспортер с заданным приемником и шириной.
func NewConsoleExporterTo(out io.Writer, width int) ports.Exporter {
	if width <= 0 {
		width = fallbackWidth
	}
	return &ConsoleExporter{out: out, width: width}
}

// Export выводит сводку по чату и таблицу участников.
func (e *ConsoleExporter) Export(report *domain.Report) error {
	meta := report.Metadata
	a := report.Analytics

	fmt.Fprintf(e.out, "--- %s ---\n", meta.Filename)
	fmt.Fprintf(e.out, "Messages: %d  Members: %d\n", meta.TotalMessages, meta.TotalMembers)
	if meta.TotalMessages == 0 {
		fmt.Fprintln(e.out, "No messages after filtering.")
		return nil
	}
	fmt.Fprintf(e.out, "From %s to %s (%d days, %.1f msg/day)\n",
		meta.DateRangeStart.Format("2006-01-02"),
		meta.DateRangeEnd.Format("2006-01-02"),
		a.TotalDays, a.MessagesPerDay)
	fmt.Fprintf(e.out, "Most active: %s, %02d:00\n\n", a.MostActiveWeekday, a.MostActiveHour)

	// Ширина имени подгоняется под самое длинное имя, но ограничена,
	// чтобы таблица влезала в терминал.
	nameWidth := 4
	for _, u := range a.UserStats {
		if w := runewidth.StringWidth(u.Name); w > nameWidth {
			nameWidth = w
		}
	}
	if max := e.width - 40; nameWidth > max {
		nameWidth = max
	}

	header := fmt.Sprintf("| %s | %8s | %8s | %6s | %5s |",
		pad("Name", nameWidth), "Messages", "Words", "Emojis", "Hour")
	fmt.Fprintln(e.out, header)
	fmt.Fprintln(e.out, strings.Repeat("-", runewidth.StringWidth(header)))

	for _, u := range a.UserStats {
		fmt.Fprintf(e.out, "| %s | %8d | %8d | %6d | %02d:00 |\n",
			pad(truncate(u.Name, nameWidth), nameWidth),
			u.TotalMessages, u.TotalWords, u.EmojiCount, u.MostActiveHour)
	}

	if len(a.TopEmojis) > 0 {
		var tops []string
		for _, ec := range a.TopEmojis {
			tops = append(tops, fmt.Sprintf("%s x%d", ec.Emoji, ec.Count))
		}
		fmt.Fprintf(e.out, "\nTop emojis: %s\n", strings.Join(tops, "  "))
	}

	return nil
}

// pad добивает строку пробелами до нужной экранной ширины.
func pad(s string, width int) string {
	if padding := width - runewidth.StringWidth(s); padding > 0 {
		return s + strings.Repeat(" ", padding)
	}
	return s
}

// truncate обрезает строку до заданной экранной ширины.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}
