package http

import "testing"

func TestResultFormatter(t *testing.T) {
	cases := []struct {
		locale string
		value  float64
		want   string
	}{
		{"en", 12.3456, "12.35 minutes"},
		{"en", 7, "7.00 minutes"},
		{"", 0.004, "0.00 minutes"},
		{"de", 12.3456, "12,35 minutes"},
	}
	for _, tc := range cases {
		formatter, err := NewResultFormatter(tc.locale)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.locale, err)
		}
		if got := formatter.Minutes(tc.value); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.locale, tc.want, got)
		}
	}

	if _, err := NewResultFormatter("not a locale!"); err == nil {
		t.Fatal("expected error for invalid locale")
	}
}
