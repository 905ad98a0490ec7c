package parser

import (
	"regexp"
	"strings"

	"whatsapp-wrapped/internal/domain"
)

// mediaKeywords — медиазаглушки разных локалей, сопоставленные типу.
// Если короткое сообщение (1-3 слова) начинается с одного из этих слов,
// оно считается заглушкой этого типа независимо от языка экспорта.
var mediaKeywords = map[string]domain.MessageKind{
	"video":     domain.KindVideo,
	"vídeo":     domain.KindVideo,
	"image":     domain.KindImage,
	"imagen":    domain.KindImage,
	"foto":      domain.KindImage,
	"photo":     domain.KindImage,
	"media":     domain.KindImage, // обобщенное <Media omitted>
	"audio":     domain.KindAudio,
	"sticker":   domain.KindSticker,
	"gif":       domain.KindGIF,
	"document":  domain.KindDocument,
	"documento": domain.KindDocument,
	"contact":   domain.KindContact, // покрывает "contact card ..."
}

// locationKeywords требуют двоеточия после слова: заглушка локации
// в исходных локалях имеет вид "location: <url>".
var locationKeywords = map[string]domain.MessageKind{
	"location":  domain.KindLocation,
	"ubicación": domain.KindLocation,
}

var linkRe = regexp.MustCompile(`https?://`)

// ClassifyKind определяет тип сообщения по готовому телу. Эвристика
// языконезависимая: настоящие заглушки всегда короткие (1-3 слова),
// а живые сообщения, начинающиеся с медиа-слова ("Video of my cat..."),
// как правило длиннее. Границы счетчика слов фиксированы умышленно.
func ClassifyKind(body string) domain.MessageKind {
	clean := strings.Trim(body, bidiMarks)
	clean = strings.TrimSpace(clean)

	// Формат в угловых скобках: <Media omitted>
	if strings.HasPrefix(clean, "<") && strings.HasSuffix(clean, ">") && len(clean) >= 2 {
		clean = strings.TrimSpace(clean[1 : len(clean)-1])
	}

	// Ссылки проверяются до эвристики коротких сообщений: длинное
	// сообщение с URL не должно быть принято за медиазаглушку.
	if linkRe.MatchString(body) {
		return domain.KindLink
	}

	words := strings.Fields(strings.ToLower(clean))
	if len(words) >= 1 && len(words) <= 3 {
		first := words[0]
		if kind, ok := mediaKeywords[first]; ok {
			return kind
		}
		if trimmed := strings.TrimSuffix(first, ":"); trimmed != first {
			if kind, ok := locationKeywords[trimmed]; ok {
				return kind
			}
		}
	}

	return domain.KindText
}
