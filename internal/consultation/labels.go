package consultation

import (
	"encoding/json"
	"strings"
)

// Labels is an insertion-ordered set of strings compared case-insensitively.
// The zero value is ready to use and serialises as an empty JSON array.
type Labels struct {
	items []string
}

// NewLabels builds a set from values, dropping duplicates and blanks.
func NewLabels(values ...string) Labels {
	var l Labels
	for _, v := range values {
		l.Add(v)
	}
	return l
}

// Add appends value unless an equal value (ignoring case) is already present.
// It reports whether the value was added.
func (l *Labels) Add(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || l.Contains(value) {
		return false
	}
	l.items = append(l.items, value)
	return true
}

// Contains reports whether value is present, ignoring case.
func (l Labels) Contains(value string) bool {
	for _, item := range l.items {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (l Labels) Len() int {
	return len(l.items)
}

// Values returns a copy of the entries in insertion order.
func (l Labels) Values() []string {
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}

// Join concatenates the entries with sep.
func (l Labels) Join(sep string) string {
	return strings.Join(l.items, sep)
}

func (l Labels) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Values())
}

func (l *Labels) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*l = NewLabels(values...)
	return nil
}
