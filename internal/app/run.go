package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/export"
	"newspaper-miniapp/internal/imageproc"
	"newspaper-miniapp/internal/pkg/term"
	"newspaper-miniapp/internal/ui"
)

const helpText = `Команды:
  текст без косой черты — сообщение ассистенту
  /news, /calendar, /feedback — открыть окно; /close — закрыть
  /send поле=значение; ... — отправить обращение из окна обратной связи
  /article <id> — статья целиком
  /image <путь> — прикрепить изображение; /unimage — открепить
  /history — обновить историю; /clear — очистить историю
  /export [xlsx|txt] — выгрузить переписку
  /status, /health — состояние ассистента и сервера
  /settings [имя=on|off ...] — настройки ассистента
  /raw <текст> — отправить сообщение низкоуровневым запросом
  /refresh — сбросить кэш новостей и календаря
  /whoami — текущий идентификатор
  /quit — выход`

// Run открывает чат и обрабатывает ввод до конца потока или отмены ctx.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.keyboard.Start()
	a.watchResize(ctx)
	a.content.StartCleanupTicker(ctx, a.cfg.Cache.TTL)

	a.renderer.Notice("Газета: ассистент редакции. /help — список команд.")
	_ = a.Guard("chat.open", func() error { return a.chat.Open(ctx) })

	lines := make(chan string)
	next := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		for {
			line, err := a.terminal.ReadLine(ctx, a.renderer.Prompt())
			if err != nil {
				errc <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
			select {
			case <-next:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		case line := <-lines:
			if a.Handle(ctx, line) {
				return nil
			}
			next <- struct{}{}
		}
	}
}

// Handle выполняет одну строку ввода. Возвращает true, если пользователь вышел.
func (a *App) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		_ = a.Guard("chat.send", func() error { return a.send(ctx, line) })
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		a.renderer.Notice(helpText)
	case "/news":
		_ = a.Guard("modal.open", func() error { return a.modals.Open(ctx, ui.ModalNews) })
	case "/calendar":
		_ = a.Guard("modal.open", func() error { return a.modals.Open(ctx, ui.ModalCalendar) })
	case "/feedback":
		_ = a.Guard("modal.open", func() error { return a.modals.Open(ctx, ui.ModalFeedback) })
	case "/close":
		_ = a.Guard("modal.close", func() error { a.modals.Close(); return nil })
	case "/send":
		_ = a.Guard("feedback.submit", func() error { return a.submitFeedback(ctx, arg) })
	case "/article":
		_ = a.Guard("article", func() error { return a.article(ctx, arg) })
	case "/image":
		_ = a.Guard("chat.attach", func() error { return a.attach(ctx, arg) })
	case "/unimage":
		_ = a.Guard("chat.detach", func() error { a.chat.RemoveImage(); return nil })
	case "/history":
		_ = a.Guard("chat.history", func() error { return a.chat.LoadHistory(ctx) })
	case "/clear":
		_ = a.Guard("chat.clear", func() error { return a.chat.Clear(ctx) })
	case "/export":
		_ = a.Guard("chat.export", func() error { return a.export(arg) })
	case "/status":
		_ = a.Guard("chat.status", func() error { return a.status(ctx) })
	case "/health":
		_ = a.Guard("health", func() error { return a.health(ctx) })
	case "/settings":
		_ = a.Guard("chat.settings", func() error { return a.settings(ctx, arg) })
	case "/raw":
		_ = a.Guard("chat.raw", func() error { return a.sendRaw(ctx, arg) })
	case "/refresh":
		a.modals.Invalidate()
		a.renderer.Notice("Кэш новостей и календаря сброшен.")
	case "/whoami":
		a.whoami()
	default:
		a.renderer.Notice("Неизвестная команда %s. /help — список команд.", cmd)
	}
	return false
}

func (a *App) send(ctx context.Context, text string) error {
	err := a.chat.Send(ctx, text)
	switch {
	case errors.Is(err, ui.ErrBusy):
		a.renderer.Notice("Дождитесь ответа на предыдущее сообщение.")
		return nil
	case errors.Is(err, ui.ErrEmptyMessage):
		a.renderer.Notice("%s", err.Error())
		return nil
	}
	return err
}

func (a *App) sendRaw(ctx context.Context, text string) error {
	if text == "" {
		a.renderer.Notice("%s", ui.ErrEmptyMessage.Error())
		return nil
	}
	resp, err := a.client.SendChatRaw(ctx, apiChatRequest(text))
	if err != nil {
		a.renderer.Notice("%s", ui.FriendlyError(err))
		return err
	}
	if !resp.Success {
		a.renderer.Notice("Ассистент: %s", resp.Error)
		return nil
	}
	a.renderer.Notice("Ассистент: %s", resp.Response)
	return nil
}

func (a *App) attach(ctx context.Context, path string) error {
	if path == "" {
		a.renderer.Notice("Укажите путь к изображению: /image <путь>")
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		a.renderer.Notice("Не удалось прочитать файл: %v", err)
		return err
	}
	image := &domain.Attachment{Name: filepath.Base(path), Data: data}
	image.ContentType = imageproc.DetectType(image)
	return a.chat.AttachImage(ctx, image)
}

func (a *App) submitFeedback(ctx context.Context, arg string) error {
	if current, ok := a.modals.Current(); !ok || current != ui.ModalFeedback {
		a.renderer.Notice("Сначала откройте окно обратной связи: /feedback")
		return nil
	}
	feedback, err := parseFeedback(arg)
	if err != nil {
		a.renderer.Notice("%s", err.Error())
		return nil
	}
	msg, err := a.modals.SubmitFeedback(ctx, feedback)
	a.renderer.Notice("%s", msg)
	return err
}

func (a *App) article(ctx context.Context, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		a.renderer.Notice("Укажите номер статьи: /article <id>")
		return nil
	}
	resp, err := a.retrying.Article(ctx, id)
	if err != nil {
		a.renderer.Notice("%s", ui.FriendlyError(err))
		return err
	}
	if !resp.Success {
		a.renderer.Notice("%s", resp.Error)
		return nil
	}
	a.renderer.Notice("%s\n%s", resp.Article.Title, resp.Article.Content)
	return nil
}

func (a *App) export(arg string) error {
	format, err := export.ParseFormat(arg)
	if err != nil {
		a.renderer.Notice("%s", err.Error())
		return nil
	}
	session := a.chat.Session()
	doc, err := export.Session(session.Entries(), session.Identity(), format, time.Now())
	if errors.Is(err, export.ErrNothingToExport) {
		a.renderer.Notice("%s", err.Error())
		return nil
	}
	if err != nil {
		return err
	}
	path, err := export.WriteFile(a.cfg.Chat.ExportDir, doc)
	if err != nil {
		return err
	}
	a.renderer.Notice("Переписка сохранена: %s", path)
	return nil
}

func (a *App) status(ctx context.Context) error {
	resp, err := a.retrying.ChatStatus(ctx)
	if err != nil {
		a.renderer.Notice("%s", ui.FriendlyError(err))
		return err
	}
	st := resp.Status
	state := "недоступен"
	if resp.Available() {
		state = "доступен"
	}
	a.renderer.Notice("Ассистент %s. Ключи: %d/%d, прокси: %d/%d, прямое подключение: %t",
		state, st.KeysAvailable, st.TotalKeys, st.ProxiesAvailable, st.TotalProxies, st.DirectConnection)
	return nil
}

func (a *App) health(ctx context.Context) error {
	result, err := a.client.Health(ctx)
	if err != nil {
		a.renderer.Notice("%s", ui.FriendlyError(err))
		return err
	}
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, result[k]))
	}
	a.renderer.Notice("Сервер: %s", strings.Join(parts, ", "))
	return nil
}

func (a *App) settings(ctx context.Context, arg string) error {
	resp, err := a.retrying.Settings(ctx)
	if err != nil {
		a.renderer.Notice("%s", ui.FriendlyError(err))
		return err
	}
	current := resp.Settings

	if arg != "" {
		updated, err := applySettings(current, arg)
		if err != nil {
			a.renderer.Notice("%s", err.Error())
			return nil
		}
		saved, err := a.client.UpdateSettings(ctx, updated)
		if err != nil {
			a.renderer.Notice("%s", ui.FriendlyError(err))
			return err
		}
		if !saved.Success {
			a.renderer.Notice("%s", saved.Error)
			return nil
		}
		current = saved.Settings
	}

	a.renderer.Notice("Поиск Google: %s, контекст ссылок: %s, персона: %s, потоковый ответ: %s",
		onOff(current.UseGoogleSearch), onOff(current.UseURLContext), onOff(current.UsePersona), onOff(current.StreamResponse))
	return nil
}

func (a *App) whoami() {
	id := a.resolver.Resolve()
	kind := "веб"
	switch {
	case id.IsTelegram():
		kind = "Telegram"
	case id.IsSession():
		kind = "сессия"
	}
	a.renderer.Notice("Идентификатор: %s (%s), хост Mini App: %t", id, kind, a.env.IsHost())
}

// watchResize переводит сигналы изменения размера окна в события детектора клавиатуры.
// Смена соотношения сторон считается поворотом экрана.
func (a *App) watchResize(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	notifyResize(ch)

	landscape := a.landscape()
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				now := a.landscape()
				if now != landscape {
					landscape = now
					a.keyboard.OrientationChange()
					continue
				}
				a.keyboard.Resize()
			}
		}
	}()
}

func (a *App) landscape() bool {
	h, err := a.terminal.Height()
	if err != nil {
		return false
	}
	// ширина символа — половина высоты строки
	return a.terminal.Width(0)*term.RowHeight/2 > h
}
