package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	scriptRegex = regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	styleRegex  = regexp.MustCompile(`(?i)<style[^>]*>.*?</style>`)
	htmlRegex   = regexp.MustCompile(`<[^>]*>`)
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// MessageContent strips markup and control characters from user-provided
// message text and trims surrounding whitespace.
func MessageContent(input string) string {
	input = StripHTML(input)
	input = StripControlCharacters(input)
	return strings.TrimSpace(input)
}

// StripHTML removes all HTML tags, including script and style blocks
func StripHTML(input string) string {
	input = scriptRegex.ReplaceAllString(input, "")
	input = styleRegex.ReplaceAllString(input, "")
	return htmlRegex.ReplaceAllString(input, "")
}

// StripControlCharacters removes control characters, keeping newlines and tabs
func StripControlCharacters(input string) string {
	var result strings.Builder
	for _, r := range input {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Filename removes path traversal attempts and control characters from a filename
func Filename(filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, "../", "")
	filename = strings.ReplaceAll(filename, "./", "")
	filename = strings.ReplaceAll(filename, "..\\", "")
	filename = strings.ReplaceAll(filename, ".\\", "")
	return StripControlCharacters(filename)
}

// ValidEmail checks if an email address has a plausible format
func ValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
