package parser

import (
	"regexp"
	"strconv"
)

// bareDateRe находит любые подстроки вида "число-число-число" с любым из
// трех разделителей, даже если они не являются частью корректной строки
// сообщения.
var bareDateRe = regexp.MustCompile(`(\d{1,2})[-/.](\d{1,2})[-/.](\d{2,4})`)

// DetectDateOrder определяет порядок компонентов даты по всему тексту
// экспорта до построчного разбора: компонент больше 12 не может быть
// месяцем. Противоречивые данные (оба компонента где-то больше 12) — это
// не ошибка, а Ambiguous: порядок форматов остается умолчательным.
func DetectDateOrder(rawText string) DateOrder {
	var firstOver12, secondOver12 bool

	for _, m := range bareDateRe.FindAllStringSubmatch(rawText, -1) {
		d1, _ := strconv.Atoi(m[1])
		d2, _ := strconv.Atoi(m[2])
		if d1 > 12 {
			firstOver12 = true
		}
		if d2 > 12 {
			secondOver12 = true
		}
	}

	switch {
	case firstOver12 && !secondOver12:
		return OrderDayFirst
	case secondOver12 && !firstOver12:
		return OrderMonthFirst
	default:
		return OrderAmbiguous
	}
}
