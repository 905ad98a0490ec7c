package services

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"whatsapp-wrapped/internal/domain"
	"whatsapp-wrapped/internal/ports"
)

// weekdayNames — имена дней недели в порядке понедельник..воскресенье.
var weekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var (
	urlRe     = regexp.MustCompile(`https?://\S+`)
	omittedRe = regexp.MustCompile(`\w+ omitted`)
)

const (
	topEmojisN  = 7
	topOverallN = 10
	topUsersN   = 10
)

// AnalyticsServiceImpl реализует интерфейс Analyzer: вычисляет статистику
// по участникам и чату в целом из финализированной таблицы сообщений.
type AnalyticsServiceImpl struct{}

// NewAnalyticsService создает новый экземпляр AnalyticsServiceImpl.
func NewAnalyticsService() ports.Analyzer {
	return &AnalyticsServiceImpl{}
}

// Analyze вычисляет полную аналитику по чату. Таблица обязана быть
// отсортирована по времени; пустая таблица — валидный вырожденный случай,
// дающий нулевую аналитику.
func (s *AnalyticsServiceImpl) Analyze(chat *domain.Chat) (*domain.ChatAnalytics, error) {
	analytics := &domain.ChatAnalytics{
		MessagesByWeekday: make(map[string]int),
		KindCounts:        make(map[domain.MessageKind]int),
		UserStats:         []domain.UserStats{},
		TopMessagers:      []domain.NameCount{},
		MessagesByDate:    []domain.DayCount{},
		MessagesByMonth:   []domain.DayCount{},
		TopEmojis:         []domain.EmojiCount{},
	}
	messages := chat.Messages
	if len(messages) == 0 {
		return analytics, nil
	}

	analytics.TotalMessages = len(messages)

	// Агрегаты по времени
	byDate := make(map[string]int)
	byMonth := make(map[string]int)
	var byWeekday [7]int
	participantsByDate := make(map[string]map[string]bool)
	allEmojis := make(map[string]int)

	var memberOrder []string
	byMember := make(map[string][]domain.Message)

	for _, msg := range messages {
		analytics.MessagesByHour[msg.Timestamp.Hour()]++
		byWeekday[mondayIndex(msg.Timestamp)]++

		day := msg.Timestamp.Format("2006-01-02")
		byDate[day]++
		byMonth[msg.Timestamp.Format("2006-01")]++

		if participantsByDate[day] == nil {
			participantsByDate[day] = make(map[string]bool)
		}
		participantsByDate[day][msg.Author] = true

		analytics.KindCounts[msg.Kind]++

		for _, e := range extractEmojis(msg.Body) {
			allEmojis[e]++
		}

		if _, ok := byMember[msg.Author]; !ok {
			memberOrder = append(memberOrder, msg.Author)
		}
		byMember[msg.Author] = append(byMember[msg.Author], msg)
	}

	analytics.TotalMembers = len(memberOrder)

	span := messages[len(messages)-1].Timestamp.Sub(messages[0].Timestamp)
	totalDays := int(span.Hours() / 24)
	if totalDays < 1 {
		totalDays = 1
	}
	analytics.TotalDays = totalDays
	analytics.MessagesPerDay = round1(float64(len(messages)) / float64(totalDays))

	for i, name := range weekdayNames {
		analytics.MessagesByWeekday[name] = byWeekday[i]
	}
	maxWeekday := 0
	for i := 1; i < len(byWeekday); i++ {
		if byWeekday[i] > byWeekday[maxWeekday] {
			maxWeekday = i
		}
	}
	analytics.MostActiveWeekday = weekdayNames[maxWeekday]
	analytics.MostActiveHour = argmaxHour(analytics.MessagesByHour)

	analytics.MessagesByDate = sortedCounts(byDate)
	analytics.MessagesByMonth = sortedCounts(byMonth)

	// Статистика по участникам, в порядке убывания числа сообщений
	for _, name := range memberOrder {
		analytics.UserStats = append(analytics.UserStats, userStats(name, byMember[name]))
	}
	sort.SliceStable(analytics.UserStats, func(i, j int) bool {
		return analytics.UserStats[i].TotalMessages > analytics.UserStats[j].TotalMessages
	})
	for i, u := range analytics.UserStats {
		if i >= topUsersN {
			break
		}
		analytics.TopMessagers = append(analytics.TopMessagers, domain.NameCount{Name: u.Name, Count: u.TotalMessages})
	}

	analytics.TopEmojis = topEmojis(allEmojis, topOverallN)
	analytics.EmojiDiversity = len(allEmojis)

	// Самый загруженный и самый тихий дни (среди дней с сообщениями)
	dates := analytics.MessagesByDate
	busiest, quietest := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Count > busiest.Count {
			busiest = d
		}
		if d.Count < quietest.Count {
			quietest = d
		}
	}
	analytics.BusiestDay = busiest
	analytics.QuietestDay = quietest

	// Самый оживленный день: максимум произведения
	// (число сообщений) x (число участников)
	best := domain.LiveliestDay{}
	bestScore := -1
	for _, d := range dates {
		score := d.Count * len(participantsByDate[d.Date])
		if score > bestScore {
			bestScore = score
			best = domain.LiveliestDay{
				Date:         d.Date,
				Messages:     d.Count,
				Participants: len(participantsByDate[d.Date]),
			}
		}
	}
	analytics.LiveliestDay = best

	return analytics, nil
}

// userStats вычисляет статистику одного участника по его сообщениям
// (в хронологическом порядке).
func userStats(name string, messages []domain.Message) domain.UserStats {
	stats := domain.UserStats{
		Name:          name,
		TotalMessages: len(messages),
		KindCounts:    make(map[domain.MessageKind]int),
		TopEmojis:     []domain.EmojiCount{},
	}

	emojis := make(map[string]int)
	var textLengthSum, textCount int
	var dayCounts [4]int // ночь, утро, день, вечер
	dates := make(map[string]bool)
	var dateOrder []string

	for _, msg := range messages {
		stats.TotalWords += wordCount(msg.Body)
		if msg.Kind == domain.KindText {
			textLengthSum += utf8.RuneCountInString(msg.Body)
			textCount++
		}
		for _, e := range extractEmojis(msg.Body) {
			emojis[e]++
			stats.EmojiCount++
		}

		hour := msg.Timestamp.Hour()
		stats.HourlyActivity[hour]++
		dayCounts[hour/6]++

		day := msg.Timestamp.Format("2006-01-02")
		if !dates[day] {
			dates[day] = true
			dateOrder = append(dateOrder, day)
		}

		stats.KindCounts[msg.Kind]++
	}

	if textCount > 0 {
		stats.AvgMessageLength = round1(float64(textLengthSum) / float64(textCount))
	}
	stats.TopEmojis = topEmojis(emojis, topEmojisN)
	stats.MostActiveHour = argmaxHour(stats.HourlyActivity)
	stats.LongestSilence, stats.LongestStreak = silenceAndStreak(dateOrder)

	night, morning, afternoon, evening := dayCounts[0], dayCounts[1], dayCounts[2], dayCounts[3]
	switch {
	case night+evening > morning+afternoon:
		stats.ActivityCategory = "night_owl"
	case morning > evening:
		stats.ActivityCategory = "early_bird"
	default:
		stats.ActivityCategory = "balanced"
	}

	return stats
}

// wordCount считает слова в сообщении, исключая URL и заглушки
// вида "... omitted".
func wordCount(text string) int {
	text = urlRe.ReplaceAllString(text, "")
	text = omittedRe.ReplaceAllString(text, "")
	return len(strings.Fields(text))
}

// silenceAndStreak вычисляет самое долгое молчание (максимальный разрыв
// в днях между соседними активными датами) и самую длинную серию
// (подряд идущие активные дни) по отсортированному списку дат YYYY-MM-DD.
func silenceAndStreak(dates []string) (silence, streak int) {
	sort.Strings(dates)
	if len(dates) == 0 {
		return 0, 0
	}
	if len(dates) == 1 {
		return 0, 1
	}

	streak = 1
	run := 1
	for i := 1; i < len(dates); i++ {
		gap := daysBetween(dates[i-1], dates[i])
		if gap > silence {
			silence = gap
		}
		if gap == 1 {
			run++
		} else {
			run = 1
		}
		if run > streak {
			streak = run
		}
	}
	return silence, streak
}

// daysBetween возвращает разницу в днях между двумя датами YYYY-MM-DD.
func daysBetween(a, b string) int {
	ta, errA := time.Parse("2006-01-02", a)
	tb, errB := time.Parse("2006-01-02", b)
	if errA != nil || errB != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}

// mondayIndex переводит день недели в индекс 0..6, где понедельник — 0.
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// argmaxHour возвращает час с максимумом сообщений; при пустой
// гистограмме — полдень.
func argmaxHour(hist [24]int) int {
	best, bestCount := 12, 0
	for hour, count := range hist {
		if count > bestCount {
			best, bestCount = hour, count
		}
	}
	return best
}

// topEmojis возвращает n самых частых эмодзи. Равные частоты
// упорядочиваются лексикографически для детерминированности.
func topEmojis(freq map[string]int, n int) []domain.EmojiCount {
	counts := make([]domain.EmojiCount, 0, len(freq))
	for e, c := range freq {
		counts = append(counts, domain.EmojiCount{Emoji: e, Count: c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Emoji < counts[j].Emoji
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// sortedCounts превращает map дата->счетчик в хронологический срез.
func sortedCounts(byKey map[string]int) []domain.DayCount {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	counts := make([]domain.DayCount, len(keys))
	for i, k := range keys {
		counts[i] = domain.DayCount{Date: k, Count: byKey[k]}
	}
	return counts
}

// round1 округляет до одного знака после запятой.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// extractEmojis извлекает эмодзи из текста по диапазонам Unicode.
// Модификаторы (вариационные селекторы, ZWJ, тон кожи) пропускаются,
// поэтому составные последовательности считаются по базовым знакам.
func extractEmojis(text string) []string {
	var emojis []string
	for _, r := range text {
		if isEmojiModifier(r) {
			continue
		}
		if isEmoji(r) {
			emojis = append(emojis, string(r))
		}
	}
	return emojis
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F5FF, // символы и пиктограммы
		r >= 0x1F600 && r <= 0x1F64F, // эмотиконы
		r >= 0x1F680 && r <= 0x1F6FF, // транспорт и карты
		r >= 0x1F900 && r <= 0x1F9FF, // дополнительные пиктограммы
		r >= 0x1FA70 && r <= 0x1FAFF, // расширенные пиктограммы
		r >= 0x1F1E6 && r <= 0x1F1FF, // региональные индикаторы (флаги)
		r >= 0x2600 && r <= 0x26FF,   // прочие символы
		r >= 0x2700 && r <= 0x27BF:   // dingbats
		return true
	}
	return false
}

func isEmojiModifier(r rune) bool {
	switch {
	case r == 0xFE0F, // вариационный селектор
		r == 0x200D,                  // zero-width joiner
		r >= 0x1F3FB && r <= 0x1F3FF: // модификаторы тона кожи
		return true
	}
	return false
}
