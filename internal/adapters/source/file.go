package source

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/xerrors"

	"whatsapp-wrapped/internal/ports"
)

// Ошибки загрузки экспорта. Все они фатальны для обработки файла.
var (
	// ErrUnsupportedExtension — файл не .zip и не .txt.
	ErrUnsupportedExtension = xerrors.New("unsupported file format")
	// ErrNoChatFile — архив есть, но текстового файла чата в нем нет.
	ErrNoChatFile = xerrors.New("no chat text file found in the zip archive")
	// ErrUndecodableText — ни одна из кодировок не подошла.
	ErrUndecodableText = xerrors.New("could not decode chat file with any supported encoding")
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// FileSource реализует интерфейс DataSource для чтения экспорта чата
// из .zip-архива или голого .txt-файла.
type FileSource struct {
	filePath string
}

// NewFileSource создает новый экземпляр FileSource.
func NewFileSource(filePath string) ports.DataSource {
	return &FileSource{filePath: filePath}
}

// Fetch загружает и декодирует текст экспорта. Возвращаемые байты —
// всегда валидный UTF-8 независимо от исходной кодировки файла.
func (s *FileSource) Fetch() ([]byte, error) {
	if s.filePath == "" {
		return nil, xerrors.New("file path is not set")
	}

	switch strings.ToLower(filepath.Ext(s.filePath)) {
	case ".zip":
		return s.fetchFromZip()
	case ".txt":
		return s.fetchFromTxt()
	default:
		return nil, xerrors.Errorf("%s: %w", s.filePath, ErrUnsupportedExtension)
	}
}

// fetchFromTxt читает и декодирует голый текстовый файл.
func (s *FileSource) fetchFromTxt() ([]byte, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, xerrors.Errorf("failed to read file %s: %w", s.filePath, err)
	}
	return decodeText(data)
}

// fetchFromZip находит в архиве файл чата (обычно _chat.txt или chat.txt)
// и возвращает его декодированное содержимое.
func (s *FileSource) fetchFromZip() ([]byte, error) {
	zr, err := zip.OpenReader(s.filePath)
	if err != nil {
		return nil, xerrors.Errorf("failed to open archive %s: %w", s.filePath, err)
	}
	defer zr.Close()

	chatFile := findChatFile(zr.File)
	if chatFile == nil {
		return nil, xerrors.Errorf("%s: %w", s.filePath, ErrNoChatFile)
	}

	rc, err := chatFile.Open()
	if err != nil {
		return nil, xerrors.Errorf("failed to open %s in archive: %w", chatFile.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s from archive: %w", chatFile.Name, err)
	}
	return decodeText(data)
}

// findChatFile ищет .txt-файл с "chat" в имени; если такого нет —
// берется первый попавшийся .txt.
func findChatFile(files []*zip.File) *zip.File {
	var fallback *zip.File
	for _, f := range files {
		if !strings.HasSuffix(f.Name, ".txt") {
			continue
		}
		if strings.Contains(strings.ToLower(f.Name), "chat") {
			return f
		}
		if fallback == nil {
			fallback = f
		}
	}
	return fallback
}

// decodeText пробует кодировки по порядку: UTF-8, UTF-8 с BOM, Latin-1,
// Windows-1252. Побеждает первая, декодировавшая без ошибок.
func decodeText(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		if rest := bytes.TrimPrefix(data, utf8BOM); utf8.Valid(rest) {
			return rest, nil
		}
	}
	if utf8.Valid(data) {
		return data, nil
	}

	for _, cm := range []*charmap.Charmap{charmap.ISO8859_1, charmap.Windows1252} {
		decoded, err := cm.NewDecoder().Bytes(data)
		if err == nil {
			return decoded, nil
		}
	}

	return nil, ErrUndecodableText
}
