package extract

import (
	"html"
	"regexp"
)

// Pre-compiled expressions for HTML stripping.
var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	brTags        = regexp.MustCompile(`(?i)<br\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
)

// extractHTML strips scripts, styles and markup, keeping visible text with
// block boundaries turned into newlines.
func extractHTML(data []byte) string {
	text := string(data)

	text = htmlComments.ReplaceAllString(text, "")
	text = scriptTag.ReplaceAllString(text, "")
	text = styleTag.ReplaceAllString(text, "")
	text = noscriptTag.ReplaceAllString(text, "")

	text = brTags.ReplaceAllString(text, "\n")
	text = blockElements.ReplaceAllString(text, "\n")
	text = allTags.ReplaceAllString(text, " ")

	text = html.UnescapeString(text)
	return normalizeText(text)
}
