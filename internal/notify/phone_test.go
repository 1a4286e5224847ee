package notify

import "testing"

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"(555) 123-4567", "+15551234567", true},
		{"555.123.4567", "+15551234567", true},
		{"1-555-123-4567", "+15551234567", true},
		{"+44 20 7946 0958", "+442079460958", true},
		{"123", "", false},
		{"", "", false},
		{"555-1234", "", false},
		{"1234567890123456", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatPhone(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("FormatPhone(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
