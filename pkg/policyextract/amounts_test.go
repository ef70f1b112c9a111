package policyextract

import "testing"

func TestSumAssuredLakhMultiplier(t *testing.T) {
	d := Extract("Sum Assured: Rs. 5 lakhs")
	if d.SumAssured != "500000" {
		t.Fatalf("sum_assured = %q, want 500000", d.SumAssured)
	}
}

func TestPremiumSeparatorsStripped(t *testing.T) {
	d := Extract("Premium: ₹12,500")
	if d.PremiumAmount != "12500" {
		t.Fatalf("premium_amount = %q, want 12500", d.PremiumAmount)
	}
}

func TestIndianGrouping(t *testing.T) {
	d := Extract("Sum Insured: Rs. 3,00,000")
	if d.SumAssured != "300000" {
		t.Fatalf("sum_assured = %q, want 300000", d.SumAssured)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw  string
		lakh bool
		want string
	}{
		{"5", true, "500000"},
		{"2.5", true, "250000"},
		{"12,500", false, "12500"},
		{"10.000", false, "10000"}, // dot-grouped when no decimal sense
		{"1.00.000", false, "100000"},
		{"", false, ""},
		{"abc", false, ""},
	}
	for _, c := range cases {
		if got := parseAmount(c.raw, c.lakh); got != c.want {
			t.Errorf("parseAmount(%q, %v) = %q, want %q", c.raw, c.lakh, got, c.want)
		}
	}
}

func TestFrequencyPriority(t *testing.T) {
	// Annual is checked first and wins even when monthly also appears.
	if got := matchFrequency("premium payable annually or monthly"); got != "Annual" {
		t.Fatalf("frequency = %q, want Annual", got)
	}
	if got := matchFrequency("premium frequency: half-yearly"); got != "Half-Yearly" {
		t.Fatalf("frequency = %q, want Half-Yearly", got)
	}
	if got := matchFrequency("payable monthly"); got != "Monthly" {
		t.Fatalf("frequency = %q, want Monthly", got)
	}
	if got := matchFrequency("quarterly instalments"); got != "Quarterly" {
		t.Fatalf("frequency = %q, want Quarterly", got)
	}
	if got := matchFrequency("no cadence here"); got != "" {
		t.Fatalf("frequency = %q, want empty", got)
	}
}
