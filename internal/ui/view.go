package ui

import "newspaper-miniapp/internal/domain"

// ModalContent представляет содержимое модального окна.
type ModalContent struct {
	Articles []domain.Article
	Events   []domain.Event
	// Error — понятное пользователю сообщение, если содержимое не загрузилось.
	Error string
}

// ModalView отображает модальные окна.
type ModalView interface {
	ShowModal(id ModalID, content ModalContent)
	HideModal(id ModalID)
}

// ChatView отображает виджет чата. Все методы — побочные эффекты проекции состояния.
type ChatView interface {
	RenderEntries(entries []domain.ChatEntry)
	AppendEntry(entry domain.ChatEntry)
	SetControlsEnabled(enabled bool)
	// ShowTypingIndicator показывает индикатор и сообщает, удалось ли убедиться, что он виден.
	ShowTypingIndicator(text string) bool
	HideTypingIndicator()
	ShowImagePreview(image *domain.Attachment)
	ClearImagePreview()
	// SetKeyboardLayout переключает раскладку заголовка, списка сообщений и панели ввода.
	SetKeyboardLayout(open bool)
	// PinInputBar прижимает панель ввода к низу области просмотра.
	PinInputBar()
}
