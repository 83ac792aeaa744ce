// Package sqlsplit разбивает текст SQL-скрипта на выражения, которые можно
// выполнить по одному.
//
// Выражение заканчивается точкой с запятой вне строковых литералов, имен в
// кавычках, комментариев и тел PostgreSQL в долларовых кавычках. Обратная косая
// черта не экранирует; кавычки экранируются удвоением.
package sqlsplit

import (
	"regexp"
	"strings"
)

var dollarTag = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*)?\$`)

// Split возвращает выражения text без завершающих точек с запятой.
// Фрагменты только из пробелов и комментариев отбрасываются.
func Split(text string) []string {
	var (
		out        []string
		b          strings.Builder
		meaningful bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(b.String()); meaningful && stmt != "" {
			out = append(out, stmt)
		}
		b.Reset()
		meaningful = false
	}

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '-' && strings.HasPrefix(text[i:], "--"):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			b.WriteString(text[i : i+end])
			i += end
		case c == '/' && strings.HasPrefix(text[i:], "/*"):
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				end = len(text)
			} else {
				end = i + 2 + end + 2
			}
			b.WriteString(text[i:end])
			i = end
		case c == '\'' || c == '"' || c == '`':
			end := closingQuote(text, i)
			b.WriteString(text[i:end])
			meaningful = true
			i = end
		case c == '$' && !afterIdentifier(text, i):
			tag := dollarTag.FindString(text[i:])
			if tag == "" {
				b.WriteByte(c)
				meaningful = true
				i++
				continue
			}
			end := strings.Index(text[i+len(tag):], tag)
			if end < 0 {
				end = len(text)
			} else {
				end = i + len(tag) + end + len(tag)
			}
			b.WriteString(text[i:end])
			meaningful = true
			i = end
		case c == ';':
			flush()
			i++
		default:
			if !isSpace(c) {
				meaningful = true
			}
			b.WriteByte(c)
			i++
		}
	}
	flush()
	return out
}

// closingQuote возвращает индекс сразу после литерала, начинающегося в start.
// Удвоенная кавычка остается внутри литерала.
func closingQuote(text string, start int) int {
	q := text[start]
	for j := start + 1; j < len(text); j++ {
		if text[j] != q {
			continue
		}
		if j+1 < len(text) && text[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(text)
}

// afterIdentifier сообщает, продолжает ли text[i] идентификатор; $ здесь
// обычный символ.
func afterIdentifier(text string, i int) bool {
	if i == 0 {
		return false
	}
	p := text[i-1]
	return p == '_' || p == '$' || p >= '0' && p <= '9' || p >= 'a' && p <= 'z' || p >= 'A' && p <= 'Z'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
