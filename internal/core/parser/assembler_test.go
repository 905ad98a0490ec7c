package parser

import (
	"errors"
	"sort"
	"testing"
	"time"

	"whatsapp-wrapped/internal/domain"
)

func TestAssemble(t *testing.T) {
	t.Run("Сквозной сценарий iOS", func(t *testing.T) {
		raw := "[21/06/23, 11:00:23] ~ Leo: Hello\n" +
			"[21/06/23, 11:01:00] Ana: Hi!\n" +
			"second line\n" +
			"[21/06/23, 11:02:10] ~ Leo: video omitted\n"

		chat, err := NewAssembler(Options{}).Assemble(raw, "family_chat.zip")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		if len(chat.Messages) != 3 {
			t.Fatalf("Ожидалось 3 сообщения, получено %d", len(chat.Messages))
		}

		// Тильда вырезана из имени, исходное имя сохранено
		if chat.Messages[0].Author != "Leo" {
			t.Errorf("Автор %q, ожидалось 'Leo'", chat.Messages[0].Author)
		}
		if chat.Messages[0].AuthorOriginal != "~ Leo" {
			t.Errorf("Исходный автор %q, ожидалось '~ Leo'", chat.Messages[0].AuthorOriginal)
		}

		if chat.Messages[1].Body != "Hi!\nsecond line" {
			t.Errorf("Тело %q", chat.Messages[1].Body)
		}

		if chat.Messages[2].Kind != domain.KindVideo {
			t.Errorf("Тип %q, ожидался 'video'", chat.Messages[2].Kind)
		}

		// Метаданные
		meta := chat.Metadata
		if meta.Filename != "family_chat" {
			t.Errorf("Имя файла %q, суффикс .zip должен быть отрезан", meta.Filename)
		}
		if meta.TotalMessages != 3 || meta.TotalMembers != 2 {
			t.Errorf("Сводка %d/%d, ожидалось 3/2", meta.TotalMessages, meta.TotalMembers)
		}
		if !sort.StringsAreSorted(meta.MemberNames) {
			t.Errorf("Имена участников должны быть отсортированы: %v", meta.MemberNames)
		}
		if !meta.DateRangeStart.Equal(chat.Messages[0].Timestamp) ||
			!meta.DateRangeEnd.Equal(chat.Messages[2].Timestamp) {
			t.Error("Диапазон дат не совпадает с крайними сообщениями")
		}
	})

	t.Run("Сквозной сценарий Android на испанском", func(t *testing.T) {
		raw := "21-06-23, 11:00:23 - Leo: Video omitido\n" +
			"21-06-23, 11:05:00 - Maria: hola!"

		chat, err := NewAssembler(Options{}).Assemble(raw, "chat.txt")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		if len(chat.Messages) != 2 {
			t.Fatalf("Ожидалось 2 сообщения, получено %d", len(chat.Messages))
		}
		if chat.Messages[0].Kind != domain.KindVideo {
			t.Errorf("Тип %q, ожидался 'video'", chat.Messages[0].Kind)
		}
		want := time.Date(2023, 6, 21, 11, 0, 23, 0, time.UTC)
		if !chat.Messages[0].Timestamp.Equal(want) {
			t.Errorf("Метка времени %v, ожидалось %v", chat.Messages[0].Timestamp, want)
		}
		// Усекается только суффикс .zip, расширение .txt остается
		if chat.Metadata.Filename != "chat.txt" {
			t.Errorf("Имя файла %q, ожидалось 'chat.txt'", chat.Metadata.Filename)
		}
	})

	t.Run("Сообщения сортируются по времени стабильно", func(t *testing.T) {
		raw := "[22/06/23, 10:00:00] Leo: later\n" +
			"[21/06/23, 10:00:00] Ana: earlier\n" +
			"[22/06/23, 10:00:00] Bob: later too"

		chat, err := NewAssembler(Options{}).Assemble(raw, "chat.txt")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		if chat.Messages[0].Author != "Ana" {
			t.Errorf("Первым должно идти самое раннее сообщение, получено %q", chat.Messages[0].Author)
		}
		// Равные метки времени сохраняют исходный порядок
		if chat.Messages[1].Author != "Leo" || chat.Messages[2].Author != "Bob" {
			t.Errorf("Нарушен исходный порядок равных меток: %q, %q",
				chat.Messages[1].Author, chat.Messages[2].Author)
		}
	})

	t.Run("Системные события получают автора System", func(t *testing.T) {
		raw := "21/06/23, 11:00 - Leo added Ana\n21/06/23, 11:01 - Leo: hi"

		chat, err := NewAssembler(Options{}).Assemble(raw, "chat.txt")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		// Фильтр системных фраз по умолчанию выключен
		if len(chat.Messages) != 2 {
			t.Fatalf("Ожидалось 2 сообщения, получено %d", len(chat.Messages))
		}
		if chat.Messages[0].Author != domain.SystemAuthor {
			t.Errorf("Автор %q, ожидалось 'System'", chat.Messages[0].Author)
		}
	})

	t.Run("Фильтр системных фраз", func(t *testing.T) {
		raw := "21/06/23, 11:00 - Messages and calls are end-to-end encrypted. No one can read them.\n" +
			"21/06/23, 11:01 - Leo: hi\n" +
			"21/06/23, 11:02 - Ana: Leo ADDED Maria to the group"

		chat, err := NewAssembler(Options{FilterSystem: true}).Assemble(raw, "chat.txt")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		// Фильтр нечувствителен к регистру и задевает и пользовательские
		// сообщения с системной фразой
		if len(chat.Messages) != 1 {
			t.Fatalf("Ожидалось 1 сообщение, получено %d", len(chat.Messages))
		}
		if chat.Messages[0].Body != "hi" {
			t.Errorf("Осталось не то сообщение: %q", chat.Messages[0].Body)
		}
	})

	t.Run("Боты исключаются по умолчанию", func(t *testing.T) {
		raw := "21/06/23, 11:00 - Leo: hi\n21/06/23, 11:01 - Meta AI: I am a bot"

		chat, err := NewAssembler(Options{}).Assemble(raw, "chat.txt")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		if len(chat.Messages) != 1 {
			t.Fatalf("Ожидалось 1 сообщение, получено %d", len(chat.Messages))
		}
		for _, name := range chat.Metadata.MemberNames {
			if name == "Meta AI" {
				t.Error("Бот не должен попасть в список участников")
			}
		}
	})

	t.Run("Фильтр по году", func(t *testing.T) {
		raw := "[21/06/22, 11:00:00] Leo: old\n[21/06/23, 11:00:00] Leo: new"

		chat, err := NewAssembler(Options{YearFilter: 2023}).Assemble(raw, "chat.txt")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		if len(chat.Messages) != 1 || chat.Messages[0].Body != "new" {
			t.Errorf("Ожидалось только сообщение 2023 года, получено %+v", chat.Messages)
		}
	})

	t.Run("Фильтр по минимуму сообщений", func(t *testing.T) {
		raw := "[21/06/23, 11:00:00] Leo: one\n" +
			"[21/06/23, 11:01:00] Leo: two\n" +
			"[21/06/23, 11:02:00] Ana: only"

		chat, err := NewAssembler(Options{MinMessages: 2}).Assemble(raw, "chat.txt")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		if len(chat.Messages) != 2 {
			t.Fatalf("Ожидалось 2 сообщения, получено %d", len(chat.Messages))
		}
		if chat.Metadata.TotalMembers != 1 {
			t.Errorf("Ожидался 1 участник, получено %d", chat.Metadata.TotalMembers)
		}
	})

	t.Run("Фильтры могут законно опустошить таблицу", func(t *testing.T) {
		raw := "[21/06/22, 11:00:00] Leo: hi"

		chat, err := NewAssembler(Options{YearFilter: 2023}).Assemble(raw, "chat.txt")
		if err != nil {
			t.Fatalf("Пустая после фильтров таблица не является ошибкой: %v", err)
		}
		if chat.Metadata.TotalMessages != 0 {
			t.Errorf("Ожидалась пустая таблица, получено %d", chat.Metadata.TotalMessages)
		}
	})

	t.Run("Нераспознаваемый файл", func(t *testing.T) {
		_, err := NewAssembler(Options{}).Assemble("not a chat export at all", "junk.txt")
		if !errors.Is(err, ErrNoMessages) {
			t.Errorf("Ожидалась ErrNoMessages, получено %v", err)
		}
	})
}

func TestCleanAuthor(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"Тильда и пробелы", "~ Leo", "Leo"},
		{"Телефонная пунктуация", "+1 (555) 123-4567", "1 555 1234567"},
		{"Юникодные буквы сохраняются", "María José", "María José"},
		{"Эмодзи вырезаются", "Ana 🌸", "Ana"},
		{"Подчеркивание сохраняется", "user_name", "user_name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanAuthor(tc.input); got != tc.want {
				t.Errorf("cleanAuthor(%q) = %q, ожидалось %q", tc.input, got, tc.want)
			}
		})
	}
}
