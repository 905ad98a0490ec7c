package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-wrapped/internal/domain"
)

func msg(ts time.Time, author, body string, kind domain.MessageKind) domain.Message {
	return domain.Message{Timestamp: ts, Author: author, AuthorOriginal: author, Body: body, Kind: kind}
}

// Среда 21 июня 2023
func day(d, hour, min int) time.Time {
	return time.Date(2023, 6, d, hour, min, 0, 0, time.UTC)
}

func TestAnalyzeEmptyChat(t *testing.T) {
	t.Run("Пустая таблица дает нулевую аналитику без ошибки", func(t *testing.T) {
		analytics, err := NewAnalyticsService().Analyze(&domain.Chat{})
		require.NoError(t, err)
		require.NotNil(t, analytics)
		assert.Equal(t, 0, analytics.TotalMessages)
		assert.Empty(t, analytics.UserStats)
		assert.NotNil(t, analytics.MessagesByWeekday)
	})
}

func TestAnalyze(t *testing.T) {
	chat := &domain.Chat{
		Messages: []domain.Message{
			msg(day(21, 10, 0), "Leo", "hello world 😂", domain.KindText),
			msg(day(21, 10, 1), "Ana", "hola 😂😂", domain.KindText),
			msg(day(21, 10, 5), "Leo", "video omitted", domain.KindVideo),
			msg(day(22, 23, 30), "Leo", "late night https://example.com stuff", domain.KindLink),
		},
	}

	analytics, err := NewAnalyticsService().Analyze(chat)
	require.NoError(t, err)

	t.Run("Общие счетчики", func(t *testing.T) {
		assert.Equal(t, 4, analytics.TotalMessages)
		assert.Equal(t, 2, analytics.TotalMembers)
		// Интервал меньше двух суток считается одним днем
		assert.Equal(t, 1, analytics.TotalDays)
		assert.Equal(t, 4.0, analytics.MessagesPerDay)
	})

	t.Run("Агрегаты по времени", func(t *testing.T) {
		assert.Equal(t, 3, analytics.MessagesByHour[10])
		assert.Equal(t, 1, analytics.MessagesByHour[23])
		assert.Equal(t, 10, analytics.MostActiveHour)

		assert.Equal(t, 3, analytics.MessagesByWeekday["Wednesday"])
		assert.Equal(t, 1, analytics.MessagesByWeekday["Thursday"])
		assert.Equal(t, "Wednesday", analytics.MostActiveWeekday)

		require.Len(t, analytics.MessagesByDate, 2)
		assert.Equal(t, domain.DayCount{Date: "2023-06-21", Count: 3}, analytics.MessagesByDate[0])
		assert.Equal(t, domain.DayCount{Date: "2023-06-22", Count: 1}, analytics.MessagesByDate[1])

		require.Len(t, analytics.MessagesByMonth, 1)
		assert.Equal(t, "2023-06", analytics.MessagesByMonth[0].Date)
	})

	t.Run("Рекордные дни", func(t *testing.T) {
		assert.Equal(t, "2023-06-21", analytics.BusiestDay.Date)
		assert.Equal(t, 3, analytics.BusiestDay.Count)
		assert.Equal(t, "2023-06-22", analytics.QuietestDay.Date)

		// 21-го и сообщений, и участников больше
		assert.Equal(t, "2023-06-21", analytics.LiveliestDay.Date)
		assert.Equal(t, 2, analytics.LiveliestDay.Participants)
	})

	t.Run("Эмодзи", func(t *testing.T) {
		require.Len(t, analytics.TopEmojis, 1)
		assert.Equal(t, "😂", analytics.TopEmojis[0].Emoji)
		assert.Equal(t, 3, analytics.TopEmojis[0].Count)
		assert.Equal(t, 1, analytics.EmojiDiversity)
	})

	t.Run("Типы сообщений", func(t *testing.T) {
		assert.Equal(t, 2, analytics.KindCounts[domain.KindText])
		assert.Equal(t, 1, analytics.KindCounts[domain.KindVideo])
		assert.Equal(t, 1, analytics.KindCounts[domain.KindLink])
	})

	t.Run("Статистика участников в порядке убывания", func(t *testing.T) {
		require.Len(t, analytics.UserStats, 2)
		assert.Equal(t, "Leo", analytics.UserStats[0].Name)
		assert.Equal(t, 3, analytics.UserStats[0].TotalMessages)
		assert.Equal(t, "Ana", analytics.UserStats[1].Name)

		require.Len(t, analytics.TopMessagers, 2)
		assert.Equal(t, domain.NameCount{Name: "Leo", Count: 3}, analytics.TopMessagers[0])
	})

	t.Run("Слова без URL и заглушек", func(t *testing.T) {
		leo := analytics.UserStats[0]
		// "hello world 😂" (3) + "video omitted" (0) + "late night ... stuff" (3)
		assert.Equal(t, 6, leo.TotalWords)
	})

	t.Run("Средняя длина только по текстовым сообщениям", func(t *testing.T) {
		leo := analytics.UserStats[0]
		assert.Equal(t, 13.0, leo.AvgMessageLength)
	})

	t.Run("Серии и молчание", func(t *testing.T) {
		leo := analytics.UserStats[0]
		assert.Equal(t, 2, leo.LongestStreak)
		assert.Equal(t, 1, leo.LongestSilence)

		ana := analytics.UserStats[1]
		assert.Equal(t, 1, ana.LongestStreak)
		assert.Equal(t, 0, ana.LongestSilence)
	})

	t.Run("Категория активности", func(t *testing.T) {
		assert.Equal(t, "early_bird", analytics.UserStats[0].ActivityCategory)
	})
}

func TestWordCount(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"Обычный текст", "one two three", 3},
		{"URL не считается", "see https://example.com here", 2},
		{"Заглушка не считается", "image omitted", 0},
		{"Пустая строка", "", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, wordCount(tc.text))
		})
	}
}

func TestSilenceAndStreak(t *testing.T) {
	t.Run("Нет дат", func(t *testing.T) {
		silence, streak := silenceAndStreak(nil)
		assert.Equal(t, 0, silence)
		assert.Equal(t, 0, streak)
	})

	t.Run("Одна дата", func(t *testing.T) {
		silence, streak := silenceAndStreak([]string{"2023-06-21"})
		assert.Equal(t, 0, silence)
		assert.Equal(t, 1, streak)
	})

	t.Run("Серия с разрывом", func(t *testing.T) {
		dates := []string{"2023-06-21", "2023-06-22", "2023-06-23", "2023-06-30"}
		silence, streak := silenceAndStreak(dates)
		assert.Equal(t, 7, silence)
		assert.Equal(t, 3, streak)
	})

	t.Run("Неотсортированный вход", func(t *testing.T) {
		dates := []string{"2023-06-23", "2023-06-21", "2023-06-22"}
		silence, streak := silenceAndStreak(dates)
		assert.Equal(t, 1, silence)
		assert.Equal(t, 3, streak)
	})
}

func TestExtractEmojis(t *testing.T) {
	t.Run("Базовые эмодзи", func(t *testing.T) {
		assert.Equal(t, []string{"😂", "🚀"}, extractEmojis("haha 😂 go 🚀"))
	})

	t.Run("Модификаторы пропускаются", func(t *testing.T) {
		// Палец вверх с тоном кожи: базовый знак + модификатор
		emojis := extractEmojis("👍🏽")
		assert.Equal(t, []string{"👍"}, emojis)
	})

	t.Run("Текст без эмодзи", func(t *testing.T) {
		assert.Empty(t, extractEmojis("just text"))
	})
}

func TestTopEmojis(t *testing.T) {
	t.Run("Равные частоты упорядочены детерминированно", func(t *testing.T) {
		freq := map[string]int{"🙂": 2, "😂": 2, "🚀": 5}
		top := topEmojis(freq, 2)
		require.Len(t, top, 2)
		assert.Equal(t, "🚀", top[0].Emoji)
		// Лексикографически меньший из равных
		assert.Equal(t, "😂", top[1].Emoji)
	})
}

func TestArgmaxHour(t *testing.T) {
	t.Run("Пустая гистограмма дает полдень", func(t *testing.T) {
		var hist [24]int
		assert.Equal(t, 12, argmaxHour(hist))
	})

	t.Run("Максимум находится", func(t *testing.T) {
		var hist [24]int
		hist[9] = 3
		hist[18] = 7
		assert.Equal(t, 18, argmaxHour(hist))
	})
}
