package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/ui"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  []string
	}{
		{"fits", "короткая строка", 40, []string{"короткая строка"}},
		{"words", "один два три четыре", 9, []string{"один два", "три", "четыре"}},
		{"long word", "абвгдежзий", 4, []string{"абвг", "дежз", "ий"}},
		{"newlines kept", "первая\nвторая", 40, []string{"первая", "вторая"}},
		{"wide runes", "日本語テキスト", 6, []string{"日本語", "テキス", "ト"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.in, tt.width)
			assert.Equal(t, tt.want, got)
			for _, l := range got {
				assert.LessOrEqual(t, runewidth.StringWidth(l), tt.width)
			}
		})
	}
}

func TestPad(t *testing.T) {
	assert.Equal(t, "ab   ", Pad("ab", 5))
	assert.Equal(t, "abcdef", Pad("abcdef", 3))
	// поправка на CJK
	assert.Equal(t, "日本  ", Pad("日本", 5))
}

func TestRenderer_Entries(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, func() int { return 40 }, false)

	r.RenderEntries([]domain.ChatEntry{
		{Role: domain.RoleUser, Content: "Привет"},
		{Role: domain.RoleBot, Content: "Здравствуйте! Чем могу помочь сегодня в редакции?"},
	})

	out := buf.String()
	assert.Contains(t, out, "Чат с ассистентом")
	assert.Contains(t, out, "Вы: Привет")
	assert.Contains(t, out, "Ассистент: Здравствуйте!")
	for _, l := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		assert.LessOrEqual(t, runewidth.StringWidth(l), 40, l)
	}
}

func TestRenderer_CompactLayoutHidesHeader(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, nil, false)

	r.SetKeyboardLayout(true)
	r.RenderEntries(nil)

	assert.NotContains(t, buf.String(), "Чат с ассистентом")
	assert.Contains(t, buf.String(), "История пуста")
}

func TestRenderer_TypingIndicator(t *testing.T) {
	t.Run("non-interactive falls back to inline entry", func(t *testing.T) {
		var buf bytes.Buffer
		r := New(&buf, nil, false)
		assert.False(t, r.ShowTypingIndicator("Думаю..."))
		assert.Empty(t, buf.String())
	})

	t.Run("interactive status line", func(t *testing.T) {
		var buf bytes.Buffer
		r := New(&buf, nil, true)
		require.True(t, r.ShowTypingIndicator("Думаю..."))
		assert.Contains(t, buf.String(), "… Думаю...")

		buf.Reset()
		r.HideTypingIndicator()
		assert.Equal(t, clearLine, buf.String())
	})
}

func TestRenderer_Prompt(t *testing.T) {
	r := New(&bytes.Buffer{}, nil, false)
	assert.Equal(t, "> ", r.Prompt())

	r.SetControlsEnabled(false)
	assert.Equal(t, "… ", r.Prompt())

	r.SetControlsEnabled(true)
	r.ShowImagePreview(&domain.Attachment{Name: "a.png", Data: make([]byte, 2048)})
	assert.Equal(t, "[📎] > ", r.Prompt())

	r.ClearImagePreview()
	assert.Equal(t, "> ", r.Prompt())
}

func TestRenderer_ShowModal(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, func() int { return 60 }, false)

	r.ShowModal(ui.ModalNews, ui.ModalContent{Articles: []domain.Article{
		{Title: "Новый выпуск", Author: "Редакция", PublishedDate: "2024-03-01", Content: "Текст статьи"},
	}})
	r.ShowModal(ui.ModalCalendar, ui.ModalContent{Events: []domain.Event{
		{Title: "Планерка", EventDate: "2024-03-05", EventTime: "10:00", Location: "Зал"},
	}})
	r.ShowModal(ui.ModalCalendar, ui.ModalContent{Error: "Сервер недоступен"})
	r.HideModal(ui.ModalCalendar)

	out := buf.String()
	assert.Contains(t, out, "Новости")
	assert.Contains(t, out, "■ Новый выпуск")
	assert.Contains(t, out, "2024-03-01 · Редакция")
	assert.Contains(t, out, "2024-03-05 10:00  Планерка (Зал)")
	assert.Contains(t, out, "⚠ Сервер недоступен")
	assert.Contains(t, out, "Календарь событий закрыто")
}
