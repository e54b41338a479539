package generation

import (
	"regexp"
	"strings"
)

// DefaultFreeTextField is the narrative field models most often break with raw newlines and quotes
const DefaultFreeTextField = "evaluation"

var (
	jsonFenceRegex = regexp.MustCompile("```json\\s*")
	fenceRegex     = regexp.MustCompile("```\\s*")

	smartQuotes = strings.NewReplacer("\u201c", `"`, "\u201d", `"`, "\u2018", "'", "\u2019", "'")

	// A closing quote is followed by the end of the object or by the next key
	valueTerminatorRegex = regexp.MustCompile(`^\s*(?:}|,\s*"[^"\\]*"\s*:)`)
)

// RepairJSON extracts the JSON object embedded in raw model output and
// normalizes the common ways models break it. freeTextField names the string
// field whose value may contain raw newlines and unescaped quotes; empty means
// DefaultFreeTextField. The result is not checked against any schema.
//
// Returns ErrMalformedOutput when the text holds no '{' at all.
func RepairJSON(raw string, freeTextField string) (string, error) {
	if freeTextField == "" {
		freeTextField = DefaultFreeTextField
	}

	text := jsonFenceRegex.ReplaceAllString(raw, "")
	text = fenceRegex.ReplaceAllString(text, "")
	text = smartQuotes.Replace(text)
	text = removeEscapedApostrophes(text)
	text = strings.TrimSpace(text)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrMalformedOutput
	}
	if end := strings.LastIndexByte(text, '}'); end > start {
		text = text[start : end+1]
	} else {
		// Truncated output, keep the tail and close it below
		text = text[start:]
	}

	text = escapeFreeTextField(text, freeTextField)

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") && !strings.HasSuffix(text, "}") {
		text += "\n}"
		// The brace can terminate a value that had no closing context before
		text = escapeFreeTextField(text, freeTextField)
	}

	return text, nil
}

// removeEscapedApostrophes turns \' into ' unless the backslash is itself escaped
func removeEscapedApostrophes(text string) string {
	if !strings.Contains(text, `\'`) {
		return text
	}

	out := make([]byte, 0, len(text))
	backslashes := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\'' && backslashes%2 == 1 {
			// drop the unpaired backslash already written
			out = out[:len(out)-1]
		}
		out = append(out, c)
		if c == '\\' {
			backslashes++
		} else {
			backslashes = 0
		}
	}
	return string(out)
}

// escapeFreeTextField rewrites every value of field so it is a valid JSON
// string: bare quotes are escaped, CR/LF become \n, tabs become \t. Existing
// escape pairs are copied as they are, so the rewrite is idempotent. A value
// with no recognizable closing quote is left untouched.
func escapeFreeTextField(text, field string) string {
	keyRegex := regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"`)

	var b strings.Builder
	b.Grow(len(text) + 16)

	pos := 0
	for pos < len(text) {
		loc := keyRegex.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		valueStart := pos + loc[1]
		value, valueEnd, ok := scanFreeTextValue(text, valueStart)

		b.WriteString(text[pos:valueStart])
		if !ok {
			b.WriteString(text[valueStart:])
			return b.String()
		}
		b.WriteString(value)
		b.WriteByte('"')
		pos = valueEnd + 1
	}
	b.WriteString(text[pos:])

	return b.String()
}

// scanFreeTextValue reads a string value starting just after its opening quote.
// It returns the escaped body and the index of the closing quote.
func scanFreeTextValue(text string, start int) (string, int, bool) {
	var b strings.Builder
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\' && i+1 < len(text):
			b.WriteByte(c)
			b.WriteByte(text[i+1])
			i++
		case c == '\r' && i+1 < len(text) && text[i+1] == '\n':
			b.WriteString(`\n`)
			i++
		case c == '\n' || c == '\r':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '"':
			if valueTerminatorRegex.MatchString(text[i+1:]) {
				return b.String(), i, true
			}
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, false
}
