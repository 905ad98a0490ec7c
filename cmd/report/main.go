package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"whatsapp-wrapped/internal/adapters/exporter"
	"whatsapp-wrapped/internal/adapters/source"
	"whatsapp-wrapped/internal/core/parser"
	"whatsapp-wrapped/internal/core/services"
	"whatsapp-wrapped/internal/domain"
	"whatsapp-wrapped/internal/ports"
)

func main() {
	includeSystem := flag.Bool("include-system", false, "оставить системные сообщения в отчете")
	minMessages := flag.Int("min-messages", 0, "минимум сообщений участника для попадания в отчет")
	year := flag.Int("year", 0, "ограничить отчет одним годом (0 - весь чат)")
	htmlOut := flag.String("out", "", "путь для записи HTML-отчета")
	xlsxOut := flag.String("xlsx", "", "путь для записи книги .xlsx")
	verbose := flag.Bool("v", false, "подробное логирование")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Использование: %s [флаги] <export.zip|export.txt>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts := parser.Options{
		FilterSystem: !*includeSystem,
		MinMessages:  *minMessages,
		YearFilter:   *year,
	}
	if err := run(flag.Arg(0), opts, *htmlOut, *xlsxOut); err != nil {
		fmt.Fprintf(os.Stderr, "ошибка: %v\n", err)
		os.Exit(1)
	}
}

// run выполняет весь конвейер: чтение, разбор, аналитика, экспорт.
func run(filePath string, opts parser.Options, htmlOut, xlsxOut string) error {
	rawText, err := source.NewFileSource(filePath).Fetch()
	if err != nil {
		return fmt.Errorf("не удалось прочитать экспорт: %w", err)
	}

	chat, err := parser.NewAssembler(opts).Assemble(string(rawText), filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("не удалось разобрать экспорт: %w", err)
	}

	analytics, err := services.NewAnalyticsService().Analyze(chat)
	if err != nil {
		return fmt.Errorf("не удалось вычислить аналитику: %w", err)
	}

	report := &domain.Report{
		Chat:      chat,
		Analytics: analytics,
		Metadata:  chat.Metadata,
	}

	exporters := []ports.Exporter{exporter.NewConsoleExporter()}
	if htmlOut != "" {
		exporters = append(exporters, exporter.NewHTMLExporter(htmlOut))
	}
	if xlsxOut != "" {
		exporters = append(exporters, exporter.NewExcelExporter(xlsxOut))
	}

	for _, e := range exporters {
		if err := e.Export(report); err != nil {
			return err
		}
	}

	if htmlOut != "" {
		fmt.Fprintf(os.Stderr, "HTML-отчет записан в %s\n", htmlOut)
	}
	if xlsxOut != "" {
		fmt.Fprintf(os.Stderr, "Книга записана в %s\n", xlsxOut)
	}
	return nil
}
