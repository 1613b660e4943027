package common

import (
	"testing"
	"unicode/utf8"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"héllo wörld", 5, "héllo"},
		{"ab cd", 3, "ab"},
		{"日本語テキスト", 3, "日本語"},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestCutBytes(t *testing.T) {
	// "é" is two bytes; a cut at 4 lands inside the second one.
	got := CutBytes("aéé", 4)
	if got != "aé" || !utf8.ValidString(got) {
		t.Errorf("CutBytes = %q", got)
	}
	if got := CutBytes("abc", 10); got != "abc" {
		t.Errorf("CutBytes(short) = %q", got)
	}
	if got := CutBytes("日本", 2); got != "" {
		t.Errorf("CutBytes inside first rune = %q", got)
	}
}
