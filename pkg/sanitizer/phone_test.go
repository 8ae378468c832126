package sanitizer

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "E164 passes through",
			input:    "+919876543210",
			expected: "+919876543210",
		},
		{
			name:     "local Indian number gets country code",
			input:    "9876543210",
			expected: "+919876543210",
		},
		{
			name:     "spaces and dashes are tolerated",
			input:    "+91 98765 43210",
			expected: "+919876543210",
		},
		{
			name:     "US number in E164",
			input:    "+14155552671",
			expected: "+14155552671",
		},
		{
			name:     "empty input stays empty",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only stays empty",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.input); got != tt.expected {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSamePhone(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{
			name:     "identical E164 numbers match",
			a:        "+919876543210",
			b:        "+919876543210",
			expected: true,
		},
		{
			name:     "local and E164 forms of the same number match",
			a:        "9876543210",
			b:        "+919876543210",
			expected: true,
		},
		{
			name:     "different numbers do not match",
			a:        "+919876543210",
			b:        "+919876543211",
			expected: false,
		},
		{
			name:     "two empty inputs never match",
			a:        "",
			b:        "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SamePhone(tt.a, tt.b); got != tt.expected {
				t.Errorf("SamePhone(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}
