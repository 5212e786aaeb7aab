package render

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Pad дополняет строку пробелами до ширины colWidth с учетом ширины символов.
func Pad(s string, colWidth int) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	// Часть терминалов отображает CJK-символы шире, чем считает runewidth
	hasCJK := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			hasCJK = true
			break
		}
	}
	if hasCJK && paddingNeeded >= 0 {
		paddingNeeded++
	}

	if paddingNeeded > 0 {
		return s + strings.Repeat(" ", paddingNeeded)
	}
	return s
}

// Wrap разбивает текст на строки ширины не больше width.
// Переносы выполняются по пробелам; слово длиннее строки разрывается.
// Исходные переводы строк сохраняются.
func Wrap(s string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(s, "\n") {
		lines = append(lines, wrapParagraph(paragraph, width)...)
	}
	return lines
}

func wrapParagraph(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var current strings.Builder
	currentWidth := 0
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)

		if wordWidth > width {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
				currentWidth = 0
			}
			lines = append(lines, splitWord(word, width)...)
			continue
		}

		if currentWidth > 0 && currentWidth+1+wordWidth > width {
			lines = append(lines, current.String())
			current.Reset()
			currentWidth = 0
		}
		if current.Len() > 0 {
			current.WriteString(" ")
			currentWidth++
		}
		current.WriteString(word)
		currentWidth += wordWidth
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

func splitWord(word string, width int) []string {
	var parts []string
	runes := []rune(word)
	for len(runes) > 0 {
		i, w := 0, 0
		for i < len(runes) {
			rw := runewidth.RuneWidth(runes[i])
			if w+rw > width && i > 0 {
				break
			}
			w += rw
			i++
		}
		parts = append(parts, string(runes[:i]))
		runes = runes[i:]
	}
	return parts
}

// Truncate обрезает строку до ширины width, добавляя многоточие.
func Truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}
