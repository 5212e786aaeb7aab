package devapi

import (
	"time"

	"newspaper-miniapp/internal/domain"
)

// SampleContent возвращает демонстрационные статьи и события относительно даты now
func SampleContent(now time.Time) ([]domain.Article, []domain.Event) {
	day := func(offset int) string { return now.AddDate(0, 0, offset).Format(time.DateOnly) }

	articles := []domain.Article{
		{
			ID: 1, Title: "Новый цех запущен в эксплуатацию", Author: "Редакция", Category: "production",
			PublishedDate: day(-1),
			Content:       "На предприятии торжественно открыли новый механообрабатывающий цех. Линия рассчитана на выпуск двухсот деталей в смену.",
		},
		{
			ID: 2, Title: "Итоги спартакиады", Author: "Спортивный отдел", Category: "sport",
			PublishedDate: day(-3),
			Content:       "Команда инструментального цеха заняла первое место в эстафете и волейболе.",
		},
		{
			ID: 3, Title: "Лучшие наставники года", Author: "Отдел кадров", Category: "people",
			PublishedDate: day(-7),
			Content:       "Названы имена наставников, подготовивших больше всего молодых специалистов.",
		},
	}

	events := []domain.Event{
		{ID: 1, Title: "Планерка редакции", EventDate: day(1), EventTime: "10:00", Location: "Каб. 214", Category: "meeting", IsRecurring: true, RecurrencePattern: "weekly"},
		{ID: 2, Title: "День открытых дверей", EventDate: day(5), EventTime: "12:00", Location: "Проходная №1", Category: "public", Description: "Экскурсии по цехам для семей сотрудников."},
		{ID: 3, Title: "Турнир по мини-футболу", EventDate: day(12), EventTime: "18:30", Location: "Стадион", Category: "sport"},
	}
	return articles, events
}
