package domain

import (
	"strings"
	"time"
)

// Fields is a partial update keyed by column name.
type Fields map[string]any

// Columns returns the column names in the update.
func (f Fields) Columns() []string {
	cols := make([]string, 0, len(f))
	for k := range f {
		cols = append(cols, k)
	}
	return cols
}

// NullIfBlank maps blank form input to nil so that "unset" is stored as NULL
// rather than as an empty string.
func NullIfBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NullableString converts a pointer to the value stored in a Fields map.
func NullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// NullableTime converts a pointer to the value stored in a Fields map.
func NullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
