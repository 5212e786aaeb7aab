package transport

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// FormFile представляет файл в составе формы.
type FormFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type formEntry struct {
	name  string
	value string
	file  *FormFile
}

// Form — упорядоченная форма с полями и файлами, кодируемая в multipart/form-data.
type Form struct {
	entries  []formEntry
	boundary string
}

// NewForm создает пустую форму.
func NewForm() *Form {
	return &Form{}
}

// Add добавляет поле. Повторные имена допустимы.
func (f *Form) Add(name, value string) *Form {
	f.entries = append(f.entries, formEntry{name: name, value: value})
	return f
}

// AddFile добавляет файл под именем поля name.
func (f *Form) AddFile(name string, file FormFile) *Form {
	f.entries = append(f.entries, formEntry{name: name, file: &file})
	return f
}

// Has сообщает, есть ли в форме поле или файл с таким именем.
func (f *Form) Has(name string) bool {
	for _, e := range f.entries {
		if e.name == name {
			return true
		}
	}
	return false
}

// Set заменяет все текстовые значения поля name одним значением.
func (f *Form) Set(name, value string) *Form {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.name == name && e.file == nil {
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return f.Add(name, value)
}

// Values возвращает все значения текстового поля в порядке добавления.
func (f *Form) Values(name string) []string {
	var values []string
	for _, e := range f.entries {
		if e.name == name && e.file == nil {
			values = append(values, e.value)
		}
	}
	return values
}

// Len возвращает количество записей формы.
func (f *Form) Len() int { return len(f.entries) }

// SetBoundary фиксирует границу multipart (используется в тестах).
func (f *Form) SetBoundary(boundary string) *Form {
	f.boundary = boundary
	return f
}

// Encode кодирует форму и возвращает тело и значение Content-Type.
func (f *Form) Encode() ([]byte, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	if f.boundary != "" {
		if err := w.SetBoundary(f.boundary); err != nil {
			return nil, "", fmt.Errorf("недопустимая граница: %w", err)
		}
	}

	for _, e := range f.entries {
		if e.file == nil {
			if err := w.WriteField(e.name, e.value); err != nil {
				return nil, "", fmt.Errorf("не удалось записать поле %s: %w", e.name, err)
			}
			continue
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(e.name), escapeQuotes(e.file.Name)))
		contentType := e.file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("не удалось создать часть для файла %s: %w", e.file.Name, err)
		}
		if _, err := pw.Write(e.file.Data); err != nil {
			return nil, "", fmt.Errorf("не удалось записать файл %s: %w", e.file.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("не удалось завершить форму: %w", err)
	}
	return b.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
