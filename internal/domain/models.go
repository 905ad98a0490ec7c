package domain

import "time"

// MessageKind определяет тип сообщения, присвоенный классификатором.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindVideo    MessageKind = "video"
	KindAudio    MessageKind = "audio"
	KindSticker  MessageKind = "sticker"
	KindGIF      MessageKind = "gif"
	KindDocument MessageKind = "document"
	KindContact  MessageKind = "contact"
	KindLocation MessageKind = "location"
	KindLink     MessageKind = "link"
)

// SystemAuthor — имя-маркер, присваиваемое системным сообщениям
// (событиям группы), у которых нет автора.
const SystemAuthor = "System"

// Message представляет одно разобранное сообщение чата.
type Message struct {
	// Timestamp — локальное время сообщения, как оно напечатано в экспорте.
	Timestamp time.Time `json:"timestamp"`
	// Author — очищенное имя автора (несловесная пунктуация удалена).
	Author string `json:"name"`
	// AuthorOriginal — имя автора в точности как в исходной строке.
	AuthorOriginal string `json:"name_original"`
	// IsSystem — true, если строка совпала с шаблоном системного события,
	// а не пользовательского сообщения.
	IsSystem bool `json:"is_system,omitempty"`
	// Body — текст сообщения; многострочные сообщения объединены через "\n".
	Body string `json:"message"`
	// Kind — результат классификации типа сообщения.
	Kind MessageKind `json:"message_type"`
}

// ChatMetadata — сводка по финализированной таблице сообщений.
// Вычисляется один раз и больше не изменяется.
type ChatMetadata struct {
	Filename       string    `json:"filename"`
	TotalMessages  int       `json:"total_messages"`
	TotalMembers   int       `json:"total_members"`
	DateRangeStart time.Time `json:"date_range_start"`
	DateRangeEnd   time.Time `json:"date_range_end"`
	MemberNames    []string  `json:"member_names"`
}

// Chat — финализированная таблица сообщений вместе с метаданными.
// После сборки она неизменяема и передается аналитике как есть.
type Chat struct {
	Messages []Message    `json:"messages"`
	Metadata ChatMetadata `json:"metadata"`
}

// EmojiCount — пара (эмодзи, количество употреблений).
type EmojiCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// NameCount — пара (имя участника, количество сообщений).
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DayCount — пара (дата или месяц в строковом виде, количество сообщений).
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UserStats — статистика по одному участнику чата.
type UserStats struct {
	Name             string              `json:"name"`
	TotalMessages    int                 `json:"total_messages"`
	TotalWords       int                 `json:"total_words"`
	AvgMessageLength float64             `json:"avg_message_length"`
	EmojiCount       int                 `json:"emoji_count"`
	TopEmojis        []EmojiCount        `json:"top_emojis"`
	LongestSilence   int                 `json:"longest_silence_days"`
	LongestStreak    int                 `json:"longest_streak_days"`
	MostActiveHour   int                 `json:"most_active_hour"`
	HourlyActivity   [24]int             `json:"hourly_activity"`
	KindCounts       map[MessageKind]int `json:"message_types"`
	// ActivityCategory — "night_owl", "early_bird" или "balanced".
	ActivityCategory string `json:"activity_category"`
}

// ChatAnalytics — полная аналитика по чату.
type ChatAnalytics struct {
	TotalMessages     int     `json:"total_messages"`
	TotalMembers      int     `json:"total_members"`
	TotalDays         int     `json:"total_days"`
	MessagesPerDay    float64 `json:"messages_per_day"`
	MostActiveWeekday string  `json:"most_active_day"`
	MostActiveHour    int     `json:"most_active_hour"`

	UserStats    []UserStats `json:"user_stats"`
	TopMessagers []NameCount `json:"top_messagers"`

	MessagesByHour    [24]int             `json:"messages_by_hour"`
	MessagesByWeekday map[string]int      `json:"messages_by_weekday"`
	MessagesByDate    []DayCount          `json:"messages_by_date"`
	MessagesByMonth   []DayCount          `json:"messages_by_month"`
	KindCounts        map[MessageKind]int `json:"message_type_counts"`

	TopEmojis      []EmojiCount `json:"top_emojis"`
	EmojiDiversity int          `json:"emoji_diversity"`

	BusiestDay  DayCount `json:"busiest_day"`
	QuietestDay DayCount `json:"quietest_day"`
	// LiveliestDay — день с наилучшим сочетанием числа сообщений
	// и числа участников.
	LiveliestDay LiveliestDay `json:"liveliest_day"`
}

// LiveliestDay описывает самый оживленный день чата.
type LiveliestDay struct {
	Date         string `json:"date"`
	Messages     int    `json:"messages"`
	Participants int    `json:"participants"`
}

// Report — итоговый результат обработки одного экспорта:
// таблица сообщений, аналитика и готовый HTML-отчет.
type Report struct {
	Chat      *Chat          `json:"chat,omitempty"`
	Analytics *ChatAnalytics `json:"analytics"`
	Metadata  ChatMetadata   `json:"metadata"`
	HTML      []byte         `json:"-"`
}
