package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/xerrors"

	"whatsapp-wrapped/internal/domain"
	"whatsapp-wrapped/internal/ports"
)

// ExcelExporter реализует интерфейс Exporter, записывая книгу .xlsx
// с листом сводки по участникам и листом всех сообщений.
type ExcelExporter struct {
	path string
}

// NewExcelExporter создает экспортер, пишущий книгу в указанный файл.
func NewExcelExporter(path string) ports.Exporter {
	return &ExcelExporter{path: path}
}

// Export строит книгу и сохраняет ее на диск.
func (e *ExcelExporter) Export(report *domain.Report) error {
	f, err := BuildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(e.path); err != nil {
		return xerrors.Errorf("failed to save workbook %s: %w", e.path, err)
	}
	return nil
}

// BuildWorkbook строит книгу в памяти. Выделено отдельно, чтобы бот мог
// отправлять книгу, не записывая ее на диск.
func BuildWorkbook(report *domain.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	const summary = "Members"
	index, err := f.NewSheet(summary)
	if err != nil {
		return nil, xerrors.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Name", "Messages", "Words", "Avg length", "Emojis",
		"Longest streak (days)", "Longest silence (days)", "Most active hour", "Style",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(summary, cell, h)
	}

	for i, u := range report.Analytics.UserStats {
		row := i + 2
		values := []interface{}{
			u.Name, u.TotalMessages, u.TotalWords, u.AvgMessageLength, u.EmojiCount,
			u.LongestStreak, u.LongestSilence, u.MostActiveHour, u.ActivityCategory,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(summary, cell, v)
		}
	}

	// Лист со всеми сообщениями добавляется только если таблица передана
	// вместе с отчетом: серверный кэш хранит отчеты без нее.
	if report.Chat != nil {
		const sheet = "Messages"
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, xerrors.Errorf("failed to create sheet: %w", err)
		}
		for i, h := range []string{"Timestamp", "Name", "Message", "Type"} {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}
		for i, msg := range report.Chat.Messages {
			row := i + 2
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), msg.Timestamp.Format("2006-01-02 15:04:05"))
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), msg.Author)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), msg.Body)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), string(msg.Kind))
		}
	}

	// Лист по умолчанию не нужен
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, xerrors.Errorf("failed to drop default sheet: %w", err)
	}

	return f, nil
}
