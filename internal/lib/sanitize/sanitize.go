// Package sanitize очищает свободный текст, который пользователи вводят в заявки и отклики.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Text удаляет HTML-разметку и обрезает пробелы по краям.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

// List применяет Text к каждому элементу и отбрасывает пустые.
func List(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := Text(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}
