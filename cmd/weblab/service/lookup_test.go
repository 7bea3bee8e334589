package service

import "testing"

func TestAbbreviateSHA(t *testing.T) {
	tests := []struct {
		sha  string
		want string
	}{
		{"", ""},
		{"abc123", "abc123"},
		{"12345678", "12345678"},
		{"123456789", "12345678..."},
		{"0db81b44b5f37a6de8b56a13bd25bee6ce7fc273", "0db81b44..."},
	}

	for _, tt := range tests {
		if got := AbbreviateSHA(tt.sha); got != tt.want {
			t.Errorf("AbbreviateSHA(%q) = %q, want %q", tt.sha, got, tt.want)
		}
	}
}
