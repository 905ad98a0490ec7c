package exporter

import (
	"bytes"
	"html/template"
	"os"

	"golang.org/x/xerrors"

	"whatsapp-wrapped/internal/domain"
	"whatsapp-wrapped/internal/ports"
)

// HTMLExporter реализует интерфейс Exporter, записывая самодостаточный
// HTML-отчет (стили и диаграммы встроены, внешних зависимостей нет).
type HTMLExporter struct {
	path string
}

// NewHTMLExporter создает экспортер, пишущий отчет в указанный файл.
func NewHTMLExporter(path string) ports.Exporter {
	return &HTMLExporter{path: path}
}

// Export рендерит отчет и записывает его на диск.
func (e *HTMLExporter) Export(report *domain.Report) error {
	data, err := RenderHTML(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(e.path, data, 0o644); err != nil {
		return xerrors.Errorf("failed to write report %s: %w", e.path, err)
	}
	return nil
}

// hourBar — одна колонка почасовой гистограммы.
type hourBar struct {
	Hour    int
	Count   int
	Percent int
}

// weekdayBar — одна строка гистограммы по дням недели.
type weekdayBar struct {
	Name    string
	Count   int
	Percent int
}

// reportView — модель представления для шаблона: вся арифметика
// процентов делается здесь, а не в шаблоне.
type reportView struct {
	Meta      domain.ChatMetadata
	Analytics *domain.ChatAnalytics
	Hours     []hourBar
	Weekdays  []weekdayBar
}

// RenderHTML рендерит отчет в память. Выделено отдельно от Export, чтобы
// сервер мог отдавать отчет, не касаясь диска.
func RenderHTML(report *domain.Report) ([]byte, error) {
	view := reportView{
		Meta:      report.Metadata,
		Analytics: report.Analytics,
	}

	maxHour := 1
	for _, c := range report.Analytics.MessagesByHour {
		if c > maxHour {
			maxHour = c
		}
	}
	for hour, c := range report.Analytics.MessagesByHour {
		view.Hours = append(view.Hours, hourBar{Hour: hour, Count: c, Percent: c * 100 / maxHour})
	}

	maxWeekday := 1
	for _, name := range weekdayOrder {
		if c := report.Analytics.MessagesByWeekday[name]; c > maxWeekday {
			maxWeekday = c
		}
	}
	for _, name := range weekdayOrder {
		c := report.Analytics.MessagesByWeekday[name]
		view.Weekdays = append(view.Weekdays, weekdayBar{Name: name, Count: c, Percent: c * 100 / maxWeekday})
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return nil, xerrors.Errorf("failed to render html report: %w", err)
	}
	return buf.Bytes(), nil
}

var weekdayOrder = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Meta.Filename}} — Chat Wrapped</title>
<style>
 body { font-family: -apple-system, "Segoe UI", sans-serif; background: #10141a; color: #e8eaed; margin: 0; }
 .wrap { max-width: 900px; margin: 0 auto; padding: 24px; }
 h1 { font-size: 28px; } h2 { font-size: 20px; margin-top: 32px; }
 .cards { display: flex; flex-wrap: wrap; gap: 12px; }
 .card { background: #1b2330; border-radius: 10px; padding: 16px 20px; min-width: 140px; }
 .card .num { font-size: 26px; font-weight: 700; color: #57d364; }
 .card .label { font-size: 12px; color: #9aa0a6; text-transform: uppercase; }
 table { border-collapse: collapse; width: 100%; margin-top: 8px; }
 th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #2a3442; font-size: 14px; }
 .bars { display: flex; align-items: flex-end; gap: 3px; height: 120px; }
 .bars .col { flex: 1; display: flex; flex-direction: column; justify-content: flex-end; height: 100%; }
 .bars .bar { background: #57d364; border-radius: 2px 2px 0 0; min-height: 1px; }
 .bars .lbl { font-size: 9px; color: #9aa0a6; text-align: center; margin-top: 3px; }
 .hbar { background: #57d364; height: 12px; border-radius: 3px; }
 .hrow { display: flex; align-items: center; gap: 8px; margin: 4px 0; font-size: 13px; }
 .hrow .name { width: 90px; color: #9aa0a6; }
 .emoji { font-size: 22px; margin-right: 10px; }
</style>
</head>
<body>
<div class="wrap">
  <h1>{{.Meta.Filename}}</h1>
  <div class="cards">
    <div class="card"><div class="num">{{.Analytics.TotalMessages}}</div><div class="label">Messages</div></div>
    <div class="card"><div class="num">{{.Analytics.TotalMembers}}</div><div class="label">Members</div></div>
    <div class="card"><div class="num">{{.Analytics.TotalDays}}</div><div class="label">Days</div></div>
    <div class="card"><div class="num">{{.Analytics.MessagesPerDay}}</div><div class="label">Msg / day</div></div>
    <div class="card"><div class="num">{{.Analytics.MostActiveWeekday}}</div><div class="label">Top weekday</div></div>
    <div class="card"><div class="num">{{printf "%02d:00" .Analytics.MostActiveHour}}</div><div class="label">Top hour</div></div>
  </div>

  <h2>Messages by hour</h2>
  <div class="bars">
    {{range .Hours}}<div class="col"><div class="bar" style="height:{{.Percent}}%" title="{{.Count}}"></div><div class="lbl">{{.Hour}}</div></div>{{end}}
  </div>

  <h2>Messages by weekday</h2>
  {{range .Weekdays}}
  <div class="hrow"><div class="name">{{.Name}}</div><div class="hbar" style="width:{{.Percent}}%"></div><div>{{.Count}}</div></div>
  {{end}}

  <h2>Members</h2>
  <table>
    <tr><th>Name</th><th>Messages</th><th>Words</th><th>Avg length</th><th>Emojis</th><th>Streak</th><th>Silence</th><th>Top hour</th><th>Style</th></tr>
    {{range .Analytics.UserStats}}
    <tr>
      <td>{{.Name}}</td><td>{{.TotalMessages}}</td><td>{{.TotalWords}}</td>
      <td>{{.AvgMessageLength}}</td><td>{{.EmojiCount}}</td>
      <td>{{.LongestStreak}}d</td><td>{{.LongestSilence}}d</td>
      <td>{{printf "%02d:00" .MostActiveHour}}</td><td>{{.ActivityCategory}}</td>
    </tr>
    {{end}}
  </table>

  {{if .Analytics.TopEmojis}}
  <h2>Top emojis</h2>
  <div>
    {{range .Analytics.TopEmojis}}<span class="emoji" title="{{.Count}}">{{.Emoji}}</span>{{end}}
  </div>
  {{end}}

  <h2>Records</h2>
  <table>
    <tr><td>Busiest day</td><td>{{.Analytics.BusiestDay.Date}}</td><td>{{.Analytics.BusiestDay.Count}} messages</td></tr>
    <tr><td>Quietest day</td><td>{{.Analytics.QuietestDay.Date}}</td><td>{{.Analytics.QuietestDay.Count}} messages</td></tr>
    <tr><td>Liveliest day</td><td>{{.Analytics.LiveliestDay.Date}}</td><td>{{.Analytics.LiveliestDay.Messages}} messages, {{.Analytics.LiveliestDay.Participants}} participants</td></tr>
  </table>
</div>
</body>
</html>
`))
