package constants

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"financial", CategoryFinancial, true},
		{" Payments ", CategoryFinancial, true},
		{"SLAs", CategorySLA, true},
		{"Date", CategoryDates, true},
		{"clauses", CategoryLegal, true},
		{"warranty", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCategory(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCategoryNames(t *testing.T) {
	want := []string{"parties", "financial", "dates", "legal", "sla"}
	if diff := cmp.Diff(want, CategoryNames()); diff != "" {
		t.Errorf("CategoryNames (-want +got):\n%s", diff)
	}
	for _, n := range CategoryNames() {
		if c, ok := ParseCategory(n); !ok || string(c) != n {
			t.Errorf("ParseCategory(%q) = %q, %v", n, c, ok)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for s, want := range map[ProcessingStatus]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusCompleted:  true,
		StatusFailed:     true,
	} {
		if got := s.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, want)
		}
	}
}
