// Package strutil provides string utilities shared by the ai packages.
package strutil

// Truncate tail-cuts a string to at most maxLen runes, appending "..." as an
// explicit truncation marker. Rune-level so multi-byte characters are never
// cut mid-sequence. Returns empty string if maxLen <= 0.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
