package parser

// DateOrder — определенный по данным порядок компонентов даты.
type DateOrder int

const (
	// OrderAmbiguous — порядок определить не удалось; используется
	// порядок списка форматов по умолчанию.
	OrderAmbiguous DateOrder = iota
	// OrderDayFirst — день идет первым (DD/MM).
	OrderDayFirst
	// OrderMonthFirst — месяц идет первым (MM/DD).
	OrderMonthFirst
)

// String возвращает строковое представление порядка даты.
func (o DateOrder) String() string {
	switch o {
	case OrderDayFirst:
		return "DD/MM"
	case OrderMonthFirst:
		return "MM/DD"
	default:
		return "ambiguous"
	}
}

// formatFamily — семейство формата по первому компоненту даты.
type formatFamily int

const (
	famDayFirst formatFamily = iota
	famMonthFirst
	// famYearFirst покрывает и ISO 8601: такие форматы однозначны
	// и не зависят от определенного порядка дня/месяца.
	famYearFirst
)

// timeFormat — один кандидат формата: layout пакета time и его семейство.
type timeFormat struct {
	layout string
	family formatFamily
}

// dateFormats — фиксированная таблица форматов даты/времени, встречающихся
// в экспортах WhatsApp разных локалей и эпох. Список только читается;
// новые форматы на лету не синтезируются.
var dateFormats = []timeFormat{
	// 24-часовые форматы с запятой между датой и временем
	{"2-1-06, 15:04:05", famDayFirst},
	{"2/1/06, 15:04:05", famDayFirst},
	{"1/2/06, 15:04:05", famMonthFirst},
	{"2-1-2006, 15:04:05", famDayFirst},
	{"2/1/2006, 15:04:05", famDayFirst},
	{"1/2/2006, 15:04:05", famMonthFirst},
	// Без секунд
	{"2-1-06, 15:04", famDayFirst},
	{"2/1/06, 15:04", famDayFirst},
	{"1/2/06, 15:04", famMonthFirst},
	{"2006-1-2, 15:04:05", famYearFirst},
	// Точки как разделитель даты (немецкая локаль)
	{"2.1.06, 15:04:05", famDayFirst},
	{"2.1.2006, 15:04:05", famDayFirst},
	// 12-часовые форматы AM/PM
	{"1/2/06, 3:04:05 PM", famMonthFirst},
	{"1/2/06, 3:04 PM", famMonthFirst},
	{"2/1/06, 3:04:05 PM", famDayFirst},
	{"2/1/06, 3:04 PM", famDayFirst},
	{"1/2/2006, 3:04:05 PM", famMonthFirst},
	{"1/2/2006, 3:04 PM", famMonthFirst},
	{"2/1/2006, 3:04:05 PM", famDayFirst},
	{"2/1/2006, 3:04 PM", famDayFirst},
	{"2-1-06, 3:04:05 PM", famDayFirst},
	{"2-1-06, 3:04 PM", famDayFirst},
	{"2-1-2006, 3:04:05 PM", famDayFirst},
	{"2-1-2006, 3:04 PM", famDayFirst},
	// Год первым (азиатские локали: Япония, Китай, Корея, Венгрия)
	{"2006/1/2, 15:04:05", famYearFirst},
	{"2006/1/2, 15:04", famYearFirst},
	{"2006-1-2, 3:04:05 PM", famYearFirst},
	{"2006-1-2, 3:04 PM", famYearFirst},
	{"2006/1/2, 3:04:05 PM", famYearFirst},
	{"2006/1/2, 3:04 PM", famYearFirst},
	{"2006.1.2, 15:04:05", famYearFirst},
	{"2006.1.2, 15:04", famYearFirst},
	{"2006.1.2, 3:04:05 PM", famYearFirst},
	{"2006.1.2, 3:04 PM", famYearFirst},
	// Немецкие точки с 12-часовым временем
	{"2.1.06, 3:04:05 PM", famDayFirst},
	{"2.1.06, 3:04 PM", famDayFirst},
	{"2.1.2006, 3:04:05 PM", famDayFirst},
	{"2.1.2006, 3:04 PM", famDayFirst},
	// Варианты без запятой (разделитель — пробел): Бразилия, часть Android
	{"2/1/06 15:04:05", famDayFirst},
	{"2/1/06 15:04", famDayFirst},
	{"1/2/06 15:04:05", famMonthFirst},
	{"1/2/06 15:04", famMonthFirst},
	{"2-1-06 15:04:05", famDayFirst},
	{"2-1-06 15:04", famDayFirst},
	{"2-1-2006 15:04:05", famDayFirst},
	{"2-1-2006 15:04", famDayFirst},
	{"2/1/2006 15:04:05", famDayFirst},
	{"2/1/2006 15:04", famDayFirst},
	{"1/2/2006 15:04:05", famMonthFirst},
	{"1/2/2006 15:04", famMonthFirst},
	{"2.1.06 15:04:05", famDayFirst},
	{"2.1.06 15:04", famDayFirst},
	{"2.1.2006 15:04:05", famDayFirst},
	{"2.1.2006 15:04", famDayFirst},
	// 12-часовые с пробелом-разделителем
	{"2/1/06 3:04:05 PM", famDayFirst},
	{"2/1/06 3:04 PM", famDayFirst},
	{"1/2/06 3:04:05 PM", famMonthFirst},
	{"1/2/06 3:04 PM", famMonthFirst},
	{"2/1/2006 3:04:05 PM", famDayFirst},
	{"2/1/2006 3:04 PM", famDayFirst},
	{"1/2/2006 3:04:05 PM", famMonthFirst},
	{"1/2/2006 3:04 PM", famMonthFirst},
	// ISO 8601 с разделителем T (технические экспорты)
	{"2006-1-2T15:04:05", famYearFirst},
	{"2006-1-2T15:04", famYearFirst},
}

// PrioritizedLayouts возвращает список layout-ов, упорядоченный с учетом
// определенного порядка даты: семейство с подтвержденным порядком идет
// первым, затем однозначные форматы с годом впереди, затем оставшееся
// семейство. Это приоритизация, а не фильтрация: при любом порядке
// пробуются все форматы.
func PrioritizedLayouts(order DateOrder) []string {
	if order == OrderAmbiguous {
		layouts := make([]string, len(dateFormats))
		for i, f := range dateFormats {
			layouts[i] = f.layout
		}
		return layouts
	}

	preferred := famDayFirst
	deferred := famMonthFirst
	if order == OrderMonthFirst {
		preferred, deferred = famMonthFirst, famDayFirst
	}

	var first, year, last []string
	for _, f := range dateFormats {
		switch f.family {
		case preferred:
			first = append(first, f.layout)
		case famYearFirst:
			year = append(year, f.layout)
		case deferred:
			last = append(last, f.layout)
		}
	}

	layouts := make([]string, 0, len(dateFormats))
	layouts = append(layouts, first...)
	layouts = append(layouts, year...)
	layouts = append(layouts, last...)
	return layouts
}
