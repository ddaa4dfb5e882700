// Package compose expands post templates before they are handed to the
// scheduling layer. Placeholders use a single flat {name} grammar with no
// nesting and no escapes; anything that does not resolve is left as written
// so the author can spot the typo in the preview.
package compose

import (
	"strings"
	"time"
)

// Expand substitutes {name} placeholders from bindings. Unknown names and
// unterminated braces pass through untouched.
func Expand(template string, bindings map[string]string) string {
	if template == "" || len(bindings) == 0 {
		return template
	}
	var b strings.Builder
	b.Grow(len(template))
	for {
		open := strings.IndexByte(template, '{')
		if open < 0 {
			b.WriteString(template)
			return b.String()
		}
		end := strings.IndexByte(template[open:], '}')
		if end < 0 {
			b.WriteString(template)
			return b.String()
		}
		end += open
		name := template[open+1 : end]
		if val, ok := bindings[name]; ok {
			b.WriteString(template[:open])
			b.WriteString(val)
		} else {
			b.WriteString(template[:end+1])
		}
		template = template[end+1:]
	}
}

// BuiltinBindings returns the bindings every template gets for free.
func BuiltinBindings(now time.Time) map[string]string {
	return map[string]string{
		"date": now.Format("02.01.2006"),
		"time": now.Format("15:04"),
	}
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML escapes the characters Telegram's HTML parse mode treats as
// markup. Quotes are left alone; Telegram only cares about tags and entities.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
