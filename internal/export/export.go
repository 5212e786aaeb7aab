// Package export выгружает локальную переписку чата в файл.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"newspaper-miniapp/internal/domain"
)

// Format задает формат выгрузки.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatText Format = "txt"
)

const sheetName = "Чат"

var (
	// ErrNothingToExport — в переписке нет записей.
	ErrNothingToExport = errors.New("нет сообщений для выгрузки")
	// ErrUnknownFormat — формат не поддерживается.
	ErrUnknownFormat = errors.New("неизвестный формат выгрузки")
)

// Document представляет готовый файл выгрузки.
type Document struct {
	Name string
	Data []byte
}

// ParseFormat разбирает имя формата; пустая строка означает xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "txt", "text", "csv":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Session выгружает записи переписки пользователя id. Служебные записи пропускаются.
func Session(entries []domain.ChatEntry, id domain.UserIdentity, format Format, now time.Time) (*Document, error) {
	entries = persistent(entries)
	if len(entries) == 0 {
		return nil, ErrNothingToExport
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatXLSX:
		data, err = XLSX(entries, id, now)
	case FormatText:
		data = Text(entries)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}

	return &Document{
		Name: fmt.Sprintf("chat_%s.%s", now.Format("2006-01-02_15-04-05"), format),
		Data: data,
	}, nil
}

// XLSX строит книгу Excel с одной страницей переписки.
func XLSX(entries []domain.ChatEntry, id domain.UserIdentity, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("создание листа: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("удаление листа по умолчанию: %w", err)
	}

	headers := []string{"Дата экспорта", "Пользователь", "Время", "Автор", "Сообщение", "Изображение"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	exportDate := now.Format(time.RFC3339)
	for i, e := range entries {
		row := i + 2
		values := []any{exportDate, id.String(), formatTime(e.At), roleName(e.Role), e.Content, imageName(e.Image)}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}
	if err := f.SetColWidth(sheetName, "E", "E", 80); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("запись xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// Text строит CSV-подобный текст: строка заголовка и по строке на запись.
func Text(entries []domain.ChatEntry) []byte {
	var buf bytes.Buffer
	buf.WriteString("Time,Role,Message,Image\n")
	for _, e := range entries {
		record := []string{
			quote(formatTime(e.At)),
			quote(roleName(e.Role)),
			quote(e.Content),
			quote(imageName(e.Image)),
		}
		buf.WriteString(strings.Join(record, ","))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// WriteFile сохраняет документ в каталог dir и возвращает путь к файлу.
func WriteFile(dir string, doc *Document) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("создание каталога выгрузки: %w", err)
	}
	path := filepath.Join(dir, doc.Name)
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return "", fmt.Errorf("запись файла выгрузки: %w", err)
	}
	return path, nil
}

func persistent(entries []domain.ChatEntry) []domain.ChatEntry {
	out := make([]domain.ChatEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Transient {
			out = append(out, e)
		}
	}
	return out
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func roleName(r domain.Role) string {
	if r == domain.RoleBot {
		return "Ассистент"
	}
	return "Вы"
}

func imageName(a *domain.Attachment) string {
	if a == nil {
		return ""
	}
	if a.Name == "" {
		return "изображение"
	}
	return a.Name
}
