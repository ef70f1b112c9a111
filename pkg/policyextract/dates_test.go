package policyextract

import "testing"

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"15/03/2024", "2024-03-15"},
		{"2024-03-15", "2024-03-15"}, // year-first already
		{"01-06-99", "1999-06-01"},
		{"01-06-30", "2030-06-01"}, // two-digit-year boundary at 50
		{"1/4/2024", "2024-04-01"},
		{"2024/03/15", "2024-03-15"},
		{"31-13-2024", ""}, // month out of range
		{"garbage", ""},
		{"15/03", ""},
		{"aa/bb/cc", ""},
	}
	for _, c := range cases {
		if got := NormalizeDate(c.in); got != c.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractDatesPolicyPeriod(t *testing.T) {
	start, renewal := extractDates("policy period: 01/04/2024 to 31/03/2025")
	if start != "2024-04-01" {
		t.Errorf("start = %q, want 2024-04-01", start)
	}
	if renewal != "2025-03-31" {
		t.Errorf("renewal = %q, want 2025-03-31", renewal)
	}
}

func TestExtractDatesLabelled(t *testing.T) {
	start, renewal := extractDates("date of commencement: 15-06-2023\nrenewal date: 14-06-2024")
	if start != "2023-06-15" || renewal != "2024-06-14" {
		t.Errorf("got start=%q renewal=%q", start, renewal)
	}
}
