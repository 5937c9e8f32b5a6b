package plate

import (
	"strings"
)

// Plates follow the grammar [A-Z]{3}[0-9]{3}[A-Z] and always start with the
// "RA" region prefix, which doubles as the anchor for locating the plate
// inside raw OCR output.
const (
	anchor      = "RA"
	plateLength = 7
)

// Normalize extracts a well-formed plate from raw OCR text. It strips
// whitespace, locates the region anchor and validates the seven characters
// starting there. The second return value is false when no valid plate is
// present; malformed reads are expected per-frame noise, not errors.
func Normalize(raw string) (string, bool) {
	text := strings.Join(strings.Fields(raw), "")

	idx := strings.Index(text, anchor)
	if idx < 0 {
		return "", false
	}
	if len(text)-idx < plateLength {
		return "", false
	}
	candidate := text[idx : idx+plateLength]

	prefix, digits, suffix := candidate[:3], candidate[3:6], candidate[6:]
	if !isUpperAlpha(prefix) || !isNumeric(digits) || !isUpperAlpha(suffix) {
		return "", false
	}
	return candidate, true
}

func isUpperAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return len(s) > 0
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
