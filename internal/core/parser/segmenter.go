package parser

import (
	"regexp"
	"strings"

	"whatsapp-wrapped/internal/domain"
)

// bidiMarks — невидимые метки направления письма (LRM/RLM), которые
// некоторые пути экспорта вставляют в начало строки.
const bidiMarks = "\u200e\u200f"

// androidTimestamp — под-шаблон метки времени в "тирейном" формате.
// Покрывает все вариации даты/времени, понятные интерпретатору:
// три разделителя даты, запятая/пробел/T между датой и временем,
// двоеточия или точки во времени, необязательные секунды и AM/PM.
const androidTimestamp = `\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}[,\sT]+\d{1,2}[:.]?\d{2}(?:[:.]?\d{2})?(?:\s*[APap]\.?[Mm]\.?)?`

// linePattern — одно семейство шаблонов начала сообщения: шаблон
// пользовательского сообщения (с сегментом "автор:") и шаблон системного
// события (метка времени плюс произвольный текст без автора).
type linePattern struct {
	name    string
	message *regexp.Regexp
	system  *regexp.Regexp
}

// linePatterns — семейства в порядке приоритета. В одном экспорте
// используется ровно одно семейство: если первое не дало ни одного
// сообщения на всем тексте, пробуется следующее.
var linePatterns = []linePattern{
	{
		// iOS: [метка времени] Автор: текст
		name:    "bracketed",
		message: regexp.MustCompile(`^\[(.+?)\] (.+?):\s*(.*)`),
		system:  regexp.MustCompile(`^\[(.+?)\] (.+)$`),
	},
	{
		// Android: метка времени - Автор: текст
		name:    "dashed",
		message: regexp.MustCompile(`^(` + androidTimestamp + `)\s*-\s*(.+?):\s*(.*)`),
		system:  regexp.MustCompile(`^(` + androidTimestamp + `)\s*-\s*(.+)$`),
	},
}

// SegmentLines разбивает сырой текст экспорта на упорядоченную
// последовательность сообщений. Каждая строка либо открывает новое
// сообщение, либо приклеивается переводом строки к телу предыдущего;
// строка без открытого сообщения отбрасывается (приписать ее некому).
func SegmentLines(rawText string, layouts []string) []domain.Message {
	rawText = strings.ReplaceAll(rawText, "\r\n", "\n")
	lines := strings.Split(rawText, "\n")

	for _, family := range linePatterns {
		if messages := segmentWith(family, lines, layouts); len(messages) > 0 {
			return messages
		}
	}
	return nil
}

// segmentWith выполняет один проход сегментации с одним семейством шаблонов.
func segmentWith(family linePattern, lines []string, layouts []string) []domain.Message {
	var messages []domain.Message
	var current *domain.Message
	// Свой кэш формата на каждый проход: кэш не должен пережить экспорт.
	cache := &FormatCache{}

	appendContinuation := func(line string) {
		if current == nil {
			return
		}
		current.Body += "\n" + strings.TrimSpace(line)
	}

	for _, line := range lines {
		line = strings.TrimLeft(line, bidiMarks)

		groups := family.message.FindStringSubmatch(line)
		isSystem := false
		if groups == nil {
			// Системные события ("X added Y", уведомление о шифровании)
			// стоят на месте сообщения, но не имеют сегмента "автор:".
			groups = family.system.FindStringSubmatch(line)
			isSystem = true
		}
		if groups == nil {
			appendContinuation(line)
			continue
		}

		var token, author, body string
		if isSystem {
			token, body = groups[1], groups[2]
		} else {
			token, author, body = groups[1], groups[2], groups[3]
		}

		ts, err := ParseTimestamp(token, layouts, cache)
		if err != nil {
			// Строка похожа на начало сообщения, но токен датой не
			// является: обычный текст иногда совпадает с шаблоном.
			// Понижаем строку до продолжения предыдущего сообщения.
			appendContinuation(line)
			continue
		}

		if current != nil {
			messages = append(messages, *current)
		}
		current = &domain.Message{
			Timestamp:      ts,
			AuthorOriginal: strings.TrimSpace(author),
			IsSystem:       isSystem,
			Body:           strings.TrimSpace(body),
		}
	}

	if current != nil {
		messages = append(messages, *current)
	}
	return messages
}
