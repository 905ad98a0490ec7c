package ports

import (
	"whatsapp-wrapped/internal/domain"
)

// DataSource определяет интерфейс для получения сырого текста экспорта.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
}

// ChatAssembler определяет интерфейс для сборки таблицы сообщений
// из сырого текста экспорта.
type ChatAssembler interface {
	// Assemble разбирает сырой текст и возвращает финализированную таблицу.
	Assemble(rawText string, filename string) (*domain.Chat, error)
}

// Analyzer определяет интерфейс для вычисления статистики по
// финализированной таблице сообщений.
type Analyzer interface {
	Analyze(chat *domain.Chat) (*domain.ChatAnalytics, error)
}

// Exporter определяет интерфейс для вывода готового отчета.
type Exporter interface {
	// Export принимает готовый отчет и записывает его в целевой формат.
	Export(report *domain.Report) error
}
