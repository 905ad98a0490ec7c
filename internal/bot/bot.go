package bot

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"whatsapp-wrapped/cmd/bot/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	startCommand = "start"
)

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          config.BotConfig
	serverClient *ServerClient
	taskStore    *TaskStore
	logger       *slog.Logger
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, serverClient *ServerClient, taskStore *TaskStore, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}
	// api.Debug = true // Включаем для отладки

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	return &Bot{
		api:          api,
		cfg:          cfg,
		serverClient: serverClient,
		taskStore:    taskStore,
		logger:       logger,
	}, nil
}

// Start запускает основной цикл обработки обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	// Ответ на любые другие сообщения
	reply := tgbotapi.NewMessage(msg.Chat.ID, "Пожалуйста, отправьте мне экспорт чата WhatsApp (.zip или .txt).")
	b.sendMessage(reply)
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case startCommand:
		replyText := "Добро пожаловать! Я бот для анализа экспортов чатов WhatsApp.\n\n" +
			"Экспортируйте чат в WhatsApp (без медиафайлов) и пришлите мне полученный " +
			".zip или .txt — я соберу по нему статистику и HTML-отчет.\n\n" +
			"Пожалуйста, обратите внимание:\n" +
			"• Я принимаю только один файл за раз.\n" +
			"• Файлы не сохраняются на сервере и обрабатываются на лету."
		reply := tgbotapi.NewMessage(msg.Chat.ID, replyText)
		b.sendMessage(reply)
	default:
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Я не знаю такой команды.")
		b.sendMessage(reply)
	}
}

// handleDocument обрабатывает входящий документ (файл).
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	// 1. Проверяем расширение файла.
	ext := strings.ToLower(filepath.Ext(msg.Document.FileName))
	if ext != ".zip" && ext != ".txt" {
		reply := tgbotapi.NewMessage(chatID, "Я понимаю только экспорты WhatsApp в формате .zip или .txt.")
		b.sendMessage(reply)
		return
	}

	// 2. Проверяем, нет ли уже активной задачи.
	if _, ok := b.taskStore.Get(chatID); ok {
		logger.Warn("user tried to start a new task while another is active")
		reply := tgbotapi.NewMessage(chatID, "Пожалуйста, подождите завершения предыдущей задачи, прежде чем начинать новую.")
		b.sendMessage(reply)
		return
	}

	// 3. Скачиваем файл.
	fileURL, err := b.api.GetFileDirectURL(msg.Document.FileID)
	if err != nil {
		logger.Error("failed to get file direct url", slog.String("error", err.Error()))
		reply := tgbotapi.NewMessage(chatID, "Не удалось получить доступ к файлу. Попробуйте отправить его еще раз.")
		b.sendMessage(reply)
		return
	}

	resp, err := http.Get(fileURL)
	if err != nil {
		logger.Error("failed to download file", slog.String("error", err.Error()))
		reply := tgbotapi.NewMessage(chatID, "Не удалось скачать файл. Попробуйте отправить его еще раз.")
		b.sendMessage(reply)
		return
	}
	defer resp.Body.Close()

	// 4. Запускаем задачу на бэкенде.
	startResp, err := b.serverClient.StartTask(ctx, msg.Document.FileName, resp.Body)
	if err != nil {
		logger.Error("failed to start task on backend", slog.String("error", err.Error()))
		reply := tgbotapi.NewMessage(chatID, "Не удалось начать обработку файла на сервере. Пожалуйста, попробуйте позже.")
		b.sendMessage(reply)
		return
	}

	taskID := startResp.TaskID
	logger = logger.With(slog.String("task_id", taskID))
	logger.Info("task started on backend")

	// 5. Сохраняем task_id и запускаем опрос.
	b.taskStore.Set(chatID, taskID)
	go b.pollTaskStatus(context.Background(), chatID, taskID) // Используем новый контекст для фоновой задачи

	reply := tgbotapi.NewMessage(chatID, "✅ Файл получен и поставлен в очередь на обработку. Ожидайте результата.")
	b.sendMessage(reply)
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

// pollTaskStatus асинхронно опрашивает статус задачи на бэкенд-сервере.
func (b *Bot) pollTaskStatus(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	defer b.taskStore.Delete(chatID) // Гарантированно удаляем задачу по завершении.

	ticker := time.NewTicker(time.Duration(b.cfg.PollingIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Warn("polling cancelled by context")
			return
		case <-ticker.C:
			logger.Debug("polling task status")
			status, err := b.serverClient.GetTaskStatus(ctx, taskID)
			if err != nil {
				logger.Error("failed to get task status", slog.String("error", err.Error()))
				// Можно добавить логику ретраев или просто прекратить опрос
				continue
			}

			switch status.Status {
			case "completed":
				logger.Info("task completed")
				b.processCompletedTask(ctx, chatID, taskID)
				return // Завершаем опрос
			case "failed":
				logger.Warn("task failed", slog.String("reason", status.ErrorMessage))
				reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Произошла ошибка при обработке файла: %s", status.ErrorMessage))
				b.sendMessage(reply)
				return // Завершаем опрос
			case "pending", "processing":
				logger.Debug("task is in progress", slog.String("status", status.Status))
				// Продолжаем опрос
			default:
				logger.Warn("unknown task status", slog.String("status", status.Status))
			}
		}
	}
}

// processCompletedTask обрабатывает успешно завершенную задачу.
func (b *Bot) processCompletedTask(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	logger.Info("fetching results for completed task")

	result, users, err := b.fetchAllResults(ctx, taskID)
	if err != nil {
		logger.Error("failed to fetch all results", slog.String("error", err.Error()))
		reply := tgbotapi.NewMessage(chatID, "Не удалось получить результаты для выполненной задачи. Пожалуйста, попробуйте позже.")
		b.sendMessage(reply)
		return
	}

	logger.Info("successfully fetched all results", slog.Int("member_count", len(users)))

	if len(users) == 0 {
		reply := tgbotapi.NewMessage(chatID, "Не удалось найти сообщения в предоставленном файле.")
		b.sendMessage(reply)
		return
	}

	b.sendSummary(chatID, result)

	// Логика ветвления в зависимости от количества участников
	if len(users) >= b.cfg.ExcelThreshold {
		logger.Info("member count is over threshold, sending excel file")
		b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("Участников слишком много для таблицы в сообщении (%d). Формирую Excel-файл...", len(users))))
		b.sendExcelResult(chatID, users)
	} else {
		logger.Info("member count is under threshold, sending text message")
		b.sendTextResult(chatID, users)
	}

	// HTML-отчет отправляется всегда, это основной результат.
	b.sendHTMLReport(ctx, chatID, taskID, result.Metadata.Filename)
}

// fetchAllResults собирает все страницы со статистикой участников для данной задачи.
func (b *Bot) fetchAllResults(ctx context.Context, taskID string) (*TaskResultResponse, []UserStatsDTO, error) {
	var first *TaskResultResponse
	var allUsers []UserStatsDTO
	page := 1
	pageSize := 100 // Запрашиваем по 100, чтобы уменьшить количество запросов

	for {
		result, err := b.serverClient.GetTaskResult(ctx, taskID, page, pageSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get task result page %d: %w", page, err)
		}
		if first == nil {
			first = result
		}

		allUsers = append(allUsers, result.UserStats...)

		if page >= result.Pagination.TotalPages {
			break // Все страницы собраны
		}
		page++
	}

	return first, allUsers, nil
}

// sendSummary отправляет короткую сводку по чату.
func (b *Bot) sendSummary(chatID int64, result *TaskResultResponse) {
	a := result.Analytics
	text := fmt.Sprintf(
		"Анализ завершен!\n\n"+
			"Сообщений: %d\n"+
			"Участников: %d\n"+
			"Дней: %d (%.1f сообщений в день)\n"+
			"Самый активный день недели: %s\n"+
			"Самый активный час: %02d:00",
		a.TotalMessages, a.TotalMembers, a.TotalDays, a.MessagesPerDay,
		a.MostActiveWeekday, a.MostActiveHour,
	)
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// sendHTMLReport скачивает готовый HTML-отчет и отправляет его документом.
func (b *Bot) sendHTMLReport(ctx context.Context, chatID int64, taskID, filename string) {
	htmlData, err := b.serverClient.GetTaskReport(ctx, taskID)
	if err != nil {
		b.logger.Error("failed to fetch html report", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось получить HTML-отчет."))
		return
	}

	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	if name == "" {
		name = "chat"
	}
	fileBytes := tgbotapi.FileBytes{
		Name:  fmt.Sprintf("%s_wrapped.html", name),
		Bytes: htmlData,
	}

	msg := tgbotapi.NewDocument(chatID, fileBytes)
	msg.Caption = "Полный отчет. Откройте файл в браузере."
	b.sendMessage(msg)
}

func (b *Bot) sendExcelResult(chatID int64, users []UserStatsDTO) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			b.logger.Error("failed to close excel file", slog.String("error", err.Error()))
		}
	}()

	sheetName := "Участники"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)

	// Заголовки
	headers := []string{"Дата экспорта", "Имя", "Сообщений", "Слов", "Эмодзи", "Серия (дней)", "Молчание (дней)", "Активный час", "Стиль"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	// Данные
	exportDate := time.Now().Format(time.RFC3339)
	for i, user := range users {
		row := i + 2
		values := []interface{}{
			exportDate, user.Name, user.TotalMessages, user.TotalWords, user.EmojiCount,
			user.LongestStreak, user.LongestSilence, fmt.Sprintf("%02d:00", user.MostActiveHour), user.ActivityCategory,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	// Запись в буфер
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		b.logger.Error("failed to write excel to buffer", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось сгенерировать Excel-файл."))
		return
	}

	// Отправка файла
	fileName := fmt.Sprintf("chat_members_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	fileBytes := tgbotapi.FileBytes{
		Name:  fileName,
		Bytes: buf.Bytes(),
	}

	msg := tgbotapi.NewDocument(chatID, fileBytes)
	msg.Caption = fmt.Sprintf("Статистика по %d участникам.", len(users))
	b.sendMessage(msg)
}

// sendTextResult форматирует и отправляет статистику участников в виде текстового сообщения HTML.
func (b *Bot) sendTextResult(chatID int64, users []UserStatsDTO) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Статистика по %d участникам:\n", len(users)))
	sb.WriteString("<pre><code>") // Используем HTML для надежного форматирования

	// Получаем ширину колонок из конфигурации
	nameColWidth := b.cfg.Render.Name
	msgColWidth := b.cfg.Render.Messages
	wordColWidth := b.cfg.Render.Words
	emojiColWidth := b.cfg.Render.Emojis

	// Формируем заголовок
	headerName := "Name"
	headerMsg := "Msgs"
	headerWords := "Words"
	headerEmoji := "Emoji"

	headerLine := fmt.Sprintf("| %s%s | %s%s | %s%s | %s%s |\n",
		headerName, strings.Repeat(" ", nameColWidth-len(headerName)),
		headerMsg, strings.Repeat(" ", msgColWidth-len(headerMsg)),
		headerWords, strings.Repeat(" ", wordColWidth-len(headerWords)),
		headerEmoji, strings.Repeat(" ", emojiColWidth-len(headerEmoji)),
	)
	sb.WriteString(headerLine)

	// Формируем разделитель
	separatorLine := fmt.Sprintf("|%s|%s|%s|%s|\n",
		strings.Repeat("-", nameColWidth+2),
		strings.Repeat("-", msgColWidth+2),
		strings.Repeat("-", wordColWidth+2),
		strings.Repeat("-", emojiColWidth+2),
	)
	sb.WriteString(separatorLine)

	for _, user := range users {
		// 1. Очищаем данные
		cleanName := strings.ToValidUTF8(user.Name, "")

		// 2. Экранируем и убираем исходные переносы
		name := html.EscapeString(cleanName)
		name = strings.ReplaceAll(name, "\n", " ")

		// 3. Разбиваем имя на несколько строк с переносом слов
		nameLines := wrapString(name, nameColWidth)

		msgPart := fmt.Sprintf("%d", user.TotalMessages)
		wordPart := fmt.Sprintf("%d", user.TotalWords)
		emojiPart := fmt.Sprintf("%d", user.EmojiCount)

		// 4. Печатаем строки для текущего участника; числа только в первой
		for i, namePart := range nameLines {
			if i > 0 {
				msgPart, wordPart, emojiPart = "", "", ""
			}

			padName := generatePadding(namePart, nameColWidth)
			padMsg := generatePadding(msgPart, msgColWidth)
			padWord := generatePadding(wordPart, wordColWidth)
			padEmoji := generatePadding(emojiPart, emojiColWidth)

			line := fmt.Sprintf("| %s%s | %s%s | %s%s | %s%s |\n",
				namePart, padName, msgPart, padMsg, wordPart, padWord, emojiPart, padEmoji)
			sb.WriteString(line)
		}
	}
	sb.WriteString("</code></pre>")

	text := sb.String()
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML

	// Проверка на максимальную длину сообщения в Telegram (4096 символов)
	if len(text) > 4096 {
		b.logger.Warn("сгенерированный текст слишком длинный, отправка в виде файла", "length", len(text))
		b.sendResultAsTextFile(chatID, users)
		return
	}

	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error("не удалось отправить текстовый результат", "error", err.Error())
	}
}

// generatePadding вычисляет отступ для строки с учетом поправки на CJK-символы.
func generatePadding(s string, colWidth int) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	// Прагматическая поправка: если в строке есть CJK-символы, добавляем один пробел,
	// чтобы компенсировать ошибку рендеринга в некоторых клиентах.
	hasCJK := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			hasCJK = true
			break
		}
	}

	if hasCJK && paddingNeeded >= 0 {
		paddingNeeded++
	}

	if paddingNeeded > 0 {
		return strings.Repeat(" ", paddingNeeded)
	}
	return ""
}

// wrapString wraps a given string to a specified width using runewidth.
// It prioritizes wrapping on word boundaries (spaces). If a single word is
// longer than the width, it will be broken mid-word.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	words := strings.Fields(s)

	if len(words) == 0 { // Handles strings with only spaces or empty strings
		runes := []rune(s)
		for len(runes) > 0 {
			i := 0
			currentWidth := 0
			for i < len(runes) {
				runeWidth := runewidth.RuneWidth(runes[i])
				if currentWidth+runeWidth > width {
					break
				}
				currentWidth += runeWidth
				i++
			}
			lines = append(lines, string(runes[:i]))
			runes = runes[i:]
		}
		if len(lines) == 0 {
			return []string{""}
		}
		return lines
	}

	var currentLine strings.Builder
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)

		// Handle words longer than the entire width
		if wordWidth > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}

			runes := []rune(word)
			for len(runes) > 0 {
				i := 0
				currentWidth := 0
				for i < len(runes) {
					runeWidth := runewidth.RuneWidth(runes[i])
					if currentWidth+runeWidth > width {
						break
					}
					currentWidth += runeWidth
					i++
				}
				lines = append(lines, string(runes[:i]))
				runes = runes[i:]
			}
			continue
		}

		// If the word doesn't fit on the current line, start a new one
		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+wordWidth > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return lines
}

// sendResultAsTextFile отправляет статистику участников в виде текстового файла.
func (b *Bot) sendResultAsTextFile(chatID int64, users []UserStatsDTO) {
	var buf bytes.Buffer

	// Заголовки для файла
	headers := []string{"Name", "Messages", "Words", "Emojis", "Most active hour", "Style"}
	buf.WriteString(strings.Join(headers, ","))
	buf.WriteString("\n")

	for _, user := range users {
		// Форматируем как CSV для простоты
		record := []string{
			fmt.Sprintf("\"%s\"", strings.ReplaceAll(user.Name, "\"", "\"\"")),
			fmt.Sprintf("%d", user.TotalMessages),
			fmt.Sprintf("%d", user.TotalWords),
			fmt.Sprintf("%d", user.EmojiCount),
			fmt.Sprintf("%02d:00", user.MostActiveHour),
			user.ActivityCategory,
		}
		buf.WriteString(strings.Join(record, ","))
		buf.WriteString("\n")
	}

	fileName := fmt.Sprintf("chat_members_%s.txt", time.Now().Format("2006-01-02_15-04-05"))
	fileBytes := tgbotapi.FileBytes{
		Name:  fileName,
		Bytes: buf.Bytes(),
	}

	msg := tgbotapi.NewDocument(chatID, fileBytes)
	msg.Caption = fmt.Sprintf("Статистика по %d участникам. Список слишком большой для одного сообщения, поэтому он прикреплен в виде файла.", len(users))
	b.sendMessage(msg)
}
