package exporter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"whatsapp-wrapped/internal/domain"
)

func TestBuildWorkbook(t *testing.T) {
	t.Run("Лист участников", func(t *testing.T) {
		f, err := BuildWorkbook(sampleReport())
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) != 1 || sheets[0] != "Members" {
			t.Fatalf("Ожидался единственный лист Members, получено %v", sheets)
		}

		name, _ := f.GetCellValue("Members", "A2")
		if name != "Leo" {
			t.Errorf("A2 = %q, ожидалось 'Leo'", name)
		}
		messages, _ := f.GetCellValue("Members", "B2")
		if messages != "2" {
			t.Errorf("B2 = %q, ожидалось '2'", messages)
		}
	})

	t.Run("Лист сообщений добавляется при наличии таблицы", func(t *testing.T) {
		report := sampleReport()
		report.Chat = &domain.Chat{
			Messages: []domain.Message{
				{
					Timestamp: time.Date(2023, 6, 21, 10, 0, 0, 0, time.UTC),
					Author:    "Leo",
					Body:      "hello",
					Kind:      domain.KindText,
				},
			},
		}

		f, err := BuildWorkbook(report)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		defer f.Close()

		if idx, _ := f.GetSheetIndex("Messages"); idx < 0 {
			t.Fatal("Лист Messages не создан")
		}
		body, _ := f.GetCellValue("Messages", "C2")
		if body != "hello" {
			t.Errorf("C2 = %q, ожидалось 'hello'", body)
		}
		kind, _ := f.GetCellValue("Messages", "D2")
		if kind != "text" {
			t.Errorf("D2 = %q, ожидалось 'text'", kind)
		}
	})
}

func TestExcelExporter(t *testing.T) {
	t.Run("Книга сохраняется на диск", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.xlsx")
		if err := NewExcelExporter(path).Export(sampleReport()); err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		f, err := excelize.OpenFile(path)
		if err != nil {
			t.Fatalf("Книга не открывается: %v", err)
		}
		defer f.Close()

		name, _ := f.GetCellValue("Members", "A1")
		if name != "Name" {
			t.Errorf("Заголовок A1 = %q", name)
		}
	})
}
