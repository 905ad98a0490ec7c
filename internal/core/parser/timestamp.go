package parser

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// ErrNoFormatMatched возвращается, когда токен даты/времени не подошел
// ни под один формат из таблицы.
var ErrNoFormatMatched = xerrors.New("no date format matched")

// FormatCache хранит последний успешно примененный layout. Кэш ускоряет
// разбор: после первого попадания остальные строки экспорта почти всегда
// используют тот же формат. На корректность кэш не влияет — при промахе
// перебирается весь список. Кэш живет в пределах одного прохода разбора
// и не переиспользуется между экспортами.
type FormatCache struct {
	layout string
}

var (
	meridiemDotsRe = regexp.MustCompile(`([APap])\.([Mm])\.`)
	meridiemGlueRe = regexp.MustCompile(`(\d)([APap][Mm])`)
	meridiemWordRe = regexp.MustCompile(`\b([APap][Mm])\b`)
	// время с точками после границы даты: "28.01.24, 15.30.00"
	dottedTimeRe    = regexp.MustCompile(`[,\s]\d{1,2}\.\d{2}`)
	dateTimeSplitRe = regexp.MustCompile(`[,\s]+`)
)

// NormalizeTimestamp приводит токен даты/времени к канонической форме
// перед сопоставлением с форматами. Шаги применяются строго по порядку:
// поздние шаги рассчитывают на результат ранних.
func NormalizeTimestamp(token string) string {
	s := strings.TrimSpace(token)

	// 1. A.M./p.m. с точками -> AM/pm
	s = meridiemDotsRe.ReplaceAllString(s, "$1$2")
	// 2. Пробел между цифрой и маркером: "3:45PM" -> "3:45 PM"
	s = meridiemGlueRe.ReplaceAllString(s, "$1 $2")
	// 3. Маркер в верхний регистр
	s = meridiemWordRe.ReplaceAllStringFunc(s, strings.ToUpper)

	// 4. Точки во временной части -> двоеточия ("15.30.00" -> "15:30:00"),
	// при этом точки в датной части не трогаем: в локалях с точечной
	// датой ("28.01.24, 15.30") дата не должна быть испорчена.
	if dottedTimeRe.MatchString(s) {
		if loc := dateTimeSplitRe.FindStringIndex(s); loc != nil {
			datePart, sep, timePart := s[:loc[0]], s[loc[0]:loc[1]], s[loc[1]:]
			s = datePart + sep + strings.ReplaceAll(timePart, ".", ":")
		}
	}

	return s
}

// ParseTimestamp разбирает токен даты/времени, пробуя форматы по порядку.
// Сначала проверяется кэшированный layout, при промахе — весь список;
// первое совпадение кэшируется. Если не подошел ни один формат,
// возвращается ErrNoFormatMatched.
func ParseTimestamp(token string, layouts []string, cache *FormatCache) (time.Time, error) {
	s := NormalizeTimestamp(token)

	if cache != nil && cache.layout != "" {
		if ts, err := time.Parse(cache.layout, s); err == nil {
			return ts, nil
		}
		// Промах кэша: строка могла сменить формат, пробуем весь список.
	}

	for _, layout := range layouts {
		ts, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if cache != nil {
			cache.layout = layout
		}
		return ts, nil
	}

	return time.Time{}, xerrors.Errorf("timestamp %q: %w", token, ErrNoFormatMatched)
}
