// Package render выводит чат и модальные окна в терминал.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/ui"
)

const (
	defaultWidth   = 80
	articleExcerpt = 400

	clearLine   = "\r\033[K"
	pinToBottom = "\033[999;1H"
)

var modalTitles = map[ui.ModalID]string{
	ui.ModalNews:     "Новости",
	ui.ModalCalendar: "Календарь событий",
	ui.ModalFeedback: "Обратная связь",
}

// Renderer выводит чат и модальные окна в терминал.
// В интерактивном режиме индикатор набора рисуется строкой состояния,
// иначе об этом сообщается контроллеру и он добавляет запись в чат.
type Renderer struct {
	out         io.Writer
	width       func() int
	interactive bool

	mutex           sync.Mutex
	compact         bool
	controlsEnabled bool
	typing          bool
	image           *domain.Attachment
}

// New создает Renderer. width возвращает текущую ширину терминала.
func New(out io.Writer, width func() int, interactive bool) *Renderer {
	if width == nil {
		width = func() int { return defaultWidth }
	}
	return &Renderer{out: out, width: width, interactive: interactive, controlsEnabled: true}
}

var (
	_ ui.ChatView  = (*Renderer)(nil)
	_ ui.ModalView = (*Renderer)(nil)
)

// Prompt возвращает приглашение ввода с учетом состояния элементов управления.
func (r *Renderer) Prompt() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	prompt := "> "
	if !r.controlsEnabled {
		prompt = "… "
	}
	if r.image != nil {
		prompt = "[📎] " + prompt
	}
	return prompt
}

// Notice выводит служебное сообщение.
func (r *Renderer) Notice(format string, args ...any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.writeLines("", Wrap(fmt.Sprintf(format, args...), r.lineWidth()))
}

func (r *Renderer) RenderEntries(entries []domain.ChatEntry) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.compact {
		r.rule("Чат с ассистентом")
	}
	if len(entries) == 0 {
		r.writeLines("", []string{"История пуста. Задайте вопрос ассистенту."})
		return
	}
	for _, e := range entries {
		r.entry(e)
	}
}

func (r *Renderer) AppendEntry(entry domain.ChatEntry) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.entry(entry)
}

func (r *Renderer) SetControlsEnabled(enabled bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.controlsEnabled = enabled
}

func (r *Renderer) ShowTypingIndicator(text string) bool {
	if !r.interactive {
		return false
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	fmt.Fprint(r.out, clearLine+"… "+Truncate(text, r.lineWidth()-2))
	r.typing = true
	return true
}

func (r *Renderer) HideTypingIndicator() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.typing {
		fmt.Fprint(r.out, clearLine)
		r.typing = false
	}
}

func (r *Renderer) ShowImagePreview(image *domain.Attachment) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.image = image
	r.writeLines("", []string{fmt.Sprintf("📎 %s (%s)", imageLabel(image), humanSize(image.Size()))})
}

func (r *Renderer) ClearImagePreview() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.image = nil
}

func (r *Renderer) SetKeyboardLayout(open bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.compact = open
}

func (r *Renderer) PinInputBar() {
	if !r.interactive {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	fmt.Fprint(r.out, pinToBottom)
}

func (r *Renderer) ShowModal(id ui.ModalID, content ui.ModalContent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.rule(modalTitles[id])
	if content.Error != "" {
		r.writeLines("", Wrap("⚠ "+content.Error, r.lineWidth()))
		return
	}

	switch id {
	case ui.ModalNews:
		r.articles(content.Articles)
	case ui.ModalCalendar:
		r.events(content.Events)
	case ui.ModalFeedback:
		r.writeLines("", Wrap("Напишите /send поле=значение; через точку с запятой. Поля: name, department, phone, category, message. Например: /send name=Иван; message=Спасибо за выпуск", r.lineWidth()))
	}
	r.writeLines("", []string{"/close — закрыть"})
}

func (r *Renderer) HideModal(id ui.ModalID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.rule(modalTitles[id] + " закрыто")
}

func (r *Renderer) articles(articles []domain.Article) {
	if len(articles) == 0 {
		r.writeLines("", []string{"Новостей пока нет."})
		return
	}
	width := r.lineWidth()
	for _, a := range articles {
		r.writeLines("", Wrap("■ "+a.Title, width))
		var meta []string
		for _, m := range []string{a.PublishedDate, a.Author, a.Category} {
			if m != "" {
				meta = append(meta, m)
			}
		}
		if len(meta) > 0 {
			r.writeLines("  ", Wrap(strings.Join(meta, " · "), width-2))
		}
		if a.Content != "" {
			r.writeLines("  ", Wrap(Truncate(a.Content, articleExcerpt), width-2))
		}
		fmt.Fprintln(r.out)
	}
}

func (r *Renderer) events(events []domain.Event) {
	if len(events) == 0 {
		r.writeLines("", []string{"Ближайших событий нет."})
		return
	}
	const dateWidth = 17
	width := r.lineWidth()
	for _, e := range events {
		when := strings.TrimSpace(e.EventDate + " " + e.EventTime)
		title := e.Title
		if e.Location != "" {
			title += " (" + e.Location + ")"
		}
		lines := Wrap(title, width-dateWidth-1)
		fmt.Fprintln(r.out, Pad(when, dateWidth)+" "+lines[0])
		r.writeLines(strings.Repeat(" ", dateWidth+1), lines[1:])
		if e.Description != "" {
			r.writeLines(strings.Repeat(" ", dateWidth+1), Wrap(e.Description, width-dateWidth-1))
		}
	}
}

func (r *Renderer) entry(e domain.ChatEntry) {
	prefix := "Вы: "
	if e.Role == domain.RoleBot {
		prefix = "Ассистент: "
	}
	if e.Transient {
		prefix = "… "
	}

	text := e.Content
	if e.Image != nil {
		text = strings.TrimSpace("[📎 " + imageLabel(e.Image) + "] " + text)
	}

	indent := strings.Repeat(" ", 2)
	lines := Wrap(text, r.lineWidth()-runewidth.StringWidth(prefix))
	fmt.Fprintln(r.out, prefix+lines[0])
	r.writeLines(indent, lines[1:])
}

func (r *Renderer) rule(title string) {
	width := r.lineWidth()
	line := "── " + title + " "
	fmt.Fprintln(r.out, line+strings.Repeat("─", max(0, width-runewidth.StringWidth(line))))
}

func (r *Renderer) writeLines(indent string, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(r.out, indent+l)
	}
}

func (r *Renderer) lineWidth() int {
	if w := r.width(); w > 20 {
		return w
	}
	return defaultWidth
}

func imageLabel(a *domain.Attachment) string {
	if a == nil || a.Name == "" {
		return "изображение"
	}
	return a.Name
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f МБ", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f КБ", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d Б", n)
}
