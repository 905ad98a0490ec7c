package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"whatsapp-wrapped/internal/adapters/exporter"
	"whatsapp-wrapped/internal/adapters/source"
	"whatsapp-wrapped/internal/cache"
	"whatsapp-wrapped/internal/core/parser"
	"whatsapp-wrapped/internal/domain"
	"whatsapp-wrapped/internal/pkg/config"
	"whatsapp-wrapped/internal/ports"
)

// ProcessChatUseCase инкапсулирует бизнес-логику для обработки файла экспорта чата.
type ProcessChatUseCase struct {
	cfg        *config.Config
	assembler  ports.ChatAssembler
	analyzer   ports.Analyzer
	cacheStore *cache.CacheStore
}

// NewProcessChatUseCase создает новый экземпляр ProcessChatUseCase.
func NewProcessChatUseCase(
	cfg *config.Config,
	assembler ports.ChatAssembler,
	analyzer ports.Analyzer,
	cacheStore *cache.CacheStore,
) *ProcessChatUseCase {
	return &ProcessChatUseCase{
		cfg:        cfg,
		assembler:  assembler,
		analyzer:   analyzer,
		cacheStore: cacheStore,
	}
}

// AssemblerOptions строит настройки сборки таблицы сообщений из конфигурации.
func AssemblerOptions(cfg *config.Config) parser.Options {
	return parser.Options{
		FilterSystem: !cfg.Report.IncludeSystem,
		MinMessages:  cfg.Report.MinMessages,
		YearFilter:   cfg.Report.YearFilter,
		BotNames:     cfg.Report.BotNames,
	}
}

// ProcessChat обрабатывает один файл экспорта чата: читает и декодирует его,
// собирает таблицу сообщений, вычисляет аналитику и рендерит HTML-отчет.
// Готовые отчеты кешируются по хешу содержимого файла.
func (uc *ProcessChatUseCase) ProcessChat(ctx context.Context, filePath, filename string) (*domain.Report, error) {
	fileHash, err := cache.CalculateFileHash(filePath)
	if err != nil {
		return nil, fmt.Errorf("не удалось вычислить хеш файла %s: %w", filePath, err)
	}

	// Проверка кеша по хешу содержимого
	if cachedItem, found := uc.cacheStore.Get(fileHash); found {
		slog.Info("Попадание в кеш для файла", "hash", fileHash)
		return cachedItem.Data, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Info("Обработка файла", "path", filePath, "filename", filename)

	ds := source.NewFileSource(filePath)
	rawText, err := ds.Fetch()
	if err != nil {
		return nil, fmt.Errorf("не удалось извлечь данные из %s: %w", filePath, err)
	}

	chat, err := uc.assembler.Assemble(string(rawText), filename)
	if err != nil {
		return nil, fmt.Errorf("не удалось разобрать экспорт %s: %w", filename, err)
	}
	slog.Info("Разобран чат", "filename", filename,
		"message_count", chat.Metadata.TotalMessages, "member_count", chat.Metadata.TotalMembers)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analytics, err := uc.analyzer.Analyze(chat)
	if err != nil {
		return nil, fmt.Errorf("не удалось вычислить аналитику для %s: %w", filename, err)
	}

	// Таблица сообщений в отчет не включается: кеш и ответы API
	// обходятся метаданными и аналитикой.
	report := &domain.Report{
		Metadata:  chat.Metadata,
		Analytics: analytics,
	}

	html, err := exporter.RenderHTML(report)
	if err != nil {
		return nil, fmt.Errorf("не удалось отрисовать отчет для %s: %w", filename, err)
	}
	report.HTML = html

	// Кеширование окончательного результата
	ttl := uc.cfg.CacheTTL()
	uc.cacheStore.Put(fileHash, report, ttl)
	slog.Info("Отчет кеширован", "hash", fileHash, "ttl", ttl.String())

	return report, nil
}
