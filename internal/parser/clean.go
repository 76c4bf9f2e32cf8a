package parser

import (
	"regexp"
	"strings"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	horizontalSpaces  = regexp.MustCompile(`[ \t]+`)
	quotedReplyIntro  = regexp.MustCompile(`^On .* wrote:$`)
)

// Named entities decoded during HTML stripping. Anything outside this set
// passes through untouched.
var htmlEntities = [][2]string{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
	{"&nbsp;", " "},
	{"&copy;", "©"},
	{"&reg;", "®"},
	{"&trade;", "™"},
}

// Line prefixes dropped as mail-client boilerplate
var boilerplatePrefixes = []string{
	"Sent from my ",
	"Get Outlook for ",
	"This email was sent from ",
}

// Line prefixes dropped as quoted-reply headers
var quotedHeaderPrefixes = []string{
	"From:",
	"To:",
	"Subject:",
	"Date:",
}

// StripHTML removes markup from an HTML body: tags deleted, the fixed
// entity set decoded, whitespace runs collapsed to single spaces.
func StripHTML(html string) string {
	text := htmlTagPattern.ReplaceAllString(html, "")

	for _, e := range htmlEntities {
		text = strings.ReplaceAll(text, e[0], e[1])
	}

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// CleanText strips signature and quoted-reply boilerplate from a body.
// Best-effort noise reduction, not a guarantee of complete removal.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpaces.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// A line starting with -- introduces a trailing signature block
		if strings.HasPrefix(trimmed, "--") {
			break
		}

		if isBoilerplateLine(trimmed) {
			continue
		}

		kept = append(kept, line)
	}

	joined := strings.Join(kept, "\n")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(joined, " "))
}

func isBoilerplateLine(line string) bool {
	for _, prefix := range boilerplatePrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	for _, prefix := range quotedHeaderPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return quotedReplyIntro.MatchString(line)
}
