package render

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"mineralclassifier/internal/services/ai"
)

var medals = []string{"🥇", "🥈", "🥉"}

// Summary formats the predicted label and its confidence.
func Summary(p *ai.Prediction) string {
	return fmt.Sprintf("🎯 **Prediction:** %s\n📊 **Confidence:** %s",
		strings.ToUpper(p.Label), Percent(p.Confidence, 2))
}

// Ranking lists every label by descending probability, marking the top three.
func Ranking(p *ai.Prediction) string {
	var b strings.Builder
	b.WriteString("📈 **All class scores:**\n\n")
	for i, s := range p.Ranked() {
		marker := "📋"
		if i < len(medals) {
			marker = medals[i]
		}
		fmt.Fprintf(&b, "%s **%s:** %s\n", marker, Capitalize(s.Label), Percent(s.Probability, 2))
	}
	return b.String()
}

// Percent formats a probability in [0,1] as a percentage.
func Percent(p float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, p*100)
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// HTML escapes text and turns **bold** spans and line breaks into markup.
func HTML(text string) template.HTML {
	escaped := template.HTMLEscapeString(strings.TrimSpace(text))
	escaped = boldPattern.ReplaceAllString(escaped, "<strong>$1</strong>")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
	return template.HTML(escaped)
}
