package parser

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/xerrors"

	"whatsapp-wrapped/internal/domain"
)

// ErrNoMessages возвращается, когда сегментация не нашла ни одного
// сообщения ни одним семейством шаблонов: такой файл не является
// распознаваемым экспортом, а не "пустым чатом".
var ErrNoMessages = xerrors.New("could not parse any messages from the chat")

// systemPhrases — подстроки системных событий (вступление/выход/
// переименование/уведомление о шифровании) на английском и испанском.
// Список унаследован и заведомо не исчерпывающий.
var systemPhrases = []string{
	"añadió a",
	"added",
	"removed",
	"eliminó a",
	"left",
	"salió",
	"changed the subject",
	"cambió el asunto",
	"changed this group",
	"cambió el ícono",
	"created group",
	"creó el grupo",
	"messages and calls are end-to-end encrypted",
	"los mensajes y las llamadas están cifrados",
}

// DefaultBotNames — известные автоматические авторы, исключаемые из таблицы.
var DefaultBotNames = []string{"Meta AI"}

// authorCleanRe вырезает из имени автора все, кроме букв, цифр,
// подчеркивания и пробелов.
var authorCleanRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// Options управляет фильтрами сборщика.
type Options struct {
	// FilterSystem включает фильтрацию сообщений по списку системных фраз.
	FilterSystem bool
	// MinMessages — минимальное число сообщений автора; авторы с меньшим
	// числом исключаются вместе со своими сообщениями.
	MinMessages int
	// YearFilter ограничивает таблицу одним календарным годом
	// (0 — без ограничения).
	YearFilter int
	// BotNames переопределяет список имен ботов (nil — DefaultBotNames).
	BotNames []string
}

// Assembler собирает финализированную таблицу сообщений из сырого текста
// экспорта: определение порядка даты, сегментация, классификация типов,
// сортировка, фильтры, метаданные.
type Assembler struct {
	opts Options
}

// NewAssembler создает новый экземпляр Assembler.
func NewAssembler(opts Options) *Assembler {
	if opts.BotNames == nil {
		opts.BotNames = DefaultBotNames
	}
	return &Assembler{opts: opts}
}

// Assemble разбирает сырой текст и возвращает финализированную таблицу
// с метаданными. Ошибка возвращается только если не разобрано ни одного
// сообщения; фильтры могут законно опустошить таблицу.
func (a *Assembler) Assemble(rawText string, filename string) (*domain.Chat, error) {
	// Порядок даты определяется один раз по всему тексту и лишь
	// переупорядочивает список форматов, не ограничивая его.
	order := DetectDateOrder(rawText)
	layouts := PrioritizedLayouts(order)

	messages := SegmentLines(rawText, layouts)
	if len(messages) == 0 {
		return nil, xerrors.Errorf("%s: %w", filename, ErrNoMessages)
	}

	for i := range messages {
		msg := &messages[i]
		if msg.IsSystem {
			msg.Author = domain.SystemAuthor
			msg.AuthorOriginal = domain.SystemAuthor
		} else {
			msg.Author = cleanAuthor(msg.AuthorOriginal)
		}
		msg.Kind = ClassifyKind(msg.Body)
	}

	// Стабильная сортировка: равные метки времени сохраняют исходный
	// относительный порядок.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	if a.opts.FilterSystem {
		messages = filterSystemPhrases(messages)
	}
	messages = filterBots(messages, a.opts.BotNames)
	if a.opts.YearFilter != 0 {
		messages = filterYear(messages, a.opts.YearFilter)
	}
	if a.opts.MinMessages > 1 {
		messages = filterMinMessages(messages, a.opts.MinMessages)
	}

	return &domain.Chat{
		Messages: messages,
		Metadata: buildMetadata(messages, filename),
	}, nil
}

// cleanAuthor удаляет несловесную пунктуацию и внешние пробелы из имени.
func cleanAuthor(name string) string {
	return strings.TrimSpace(authorCleanRe.ReplaceAllString(name, ""))
}

// filterSystemPhrases удаляет сообщения, тело которых содержит одну из
// системных фраз. Это независимый, более грубый фильтр, чем пометка
// IsSystem при сегментации: сообщение могло пройти сегментацию как
// пользовательское и все равно быть удалено здесь.
func filterSystemPhrases(messages []domain.Message) []domain.Message {
	kept := messages[:0]
	for _, msg := range messages {
		body := strings.ToLower(msg.Body)
		matched := false
		for _, phrase := range systemPhrases {
			if strings.Contains(body, phrase) {
				matched = true
				break
			}
		}
		if !matched {
			kept = append(kept, msg)
		}
	}
	return kept
}

// filterBots удаляет сообщения авторов-ботов (точное совпадение имени
// без учета регистра).
func filterBots(messages []domain.Message, botNames []string) []domain.Message {
	kept := messages[:0]
	for _, msg := range messages {
		isBot := false
		for _, bot := range botNames {
			if strings.EqualFold(msg.Author, bot) {
				isBot = true
				break
			}
		}
		if !isBot {
			kept = append(kept, msg)
		}
	}
	return kept
}

// filterYear оставляет только сообщения указанного календарного года.
func filterYear(messages []domain.Message, year int) []domain.Message {
	kept := messages[:0]
	for _, msg := range messages {
		if msg.Timestamp.Year() == year {
			kept = append(kept, msg)
		}
	}
	return kept
}

// filterMinMessages удаляет всех авторов, набравших меньше min сообщений
// после остальных фильтров.
func filterMinMessages(messages []domain.Message, min int) []domain.Message {
	counts := make(map[string]int)
	for _, msg := range messages {
		counts[msg.Author]++
	}

	kept := messages[:0]
	for _, msg := range messages {
		if counts[msg.Author] >= min {
			kept = append(kept, msg)
		}
	}
	return kept
}

// buildMetadata вычисляет сводку по финализированной таблице. Таблица
// обязана быть отсортирована по времени; пустая таблица дает нулевую
// сводку (это валидный вырожденный результат, а не ошибка).
func buildMetadata(messages []domain.Message, filename string) domain.ChatMetadata {
	meta := domain.ChatMetadata{
		Filename:      strings.TrimSuffix(filename, ".zip"),
		TotalMessages: len(messages),
		MemberNames:   []string{},
	}
	if len(messages) == 0 {
		return meta
	}

	meta.DateRangeStart = messages[0].Timestamp
	meta.DateRangeEnd = messages[len(messages)-1].Timestamp

	seen := make(map[string]bool)
	for _, msg := range messages {
		if !seen[msg.Author] {
			seen[msg.Author] = true
			meta.MemberNames = append(meta.MemberNames, msg.Author)
		}
	}
	sort.Strings(meta.MemberNames)
	meta.TotalMembers = len(meta.MemberNames)

	return meta
}
