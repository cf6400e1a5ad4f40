package mailer

import "strings"

// Render substitutes {key} tokens in html with their placeholder values. The
// scan runs once over the original input, so text inserted by a substitution
// is never reprocessed and a value containing {otherKey} stays verbatim.
// Tokens without a matching key are left untouched. A nil or empty map
// returns html unchanged.
func Render(html string, placeholders map[string]string) string {
	if len(placeholders) == 0 {
		return html
	}

	var b strings.Builder
	b.Grow(len(html))
	for i := 0; i < len(html); {
		open := strings.IndexByte(html[i:], '{')
		if open < 0 {
			b.WriteString(html[i:])
			break
		}
		open += i
		end := strings.IndexByte(html[open+1:], '}')
		if end < 0 {
			b.WriteString(html[i:])
			break
		}
		end += open + 1

		b.WriteString(html[i:open])
		key := html[open+1 : end]
		if value, ok := placeholders[key]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(html[open : end+1])
		}
		i = end + 1
	}
	return b.String()
}
