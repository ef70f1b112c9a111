package policyextract

import (
	"regexp"
	"strconv"
	"strings"
)

// Amount rules run against the lowercased text. Group 1 is the numeric
// token: plain digits or comma/dot-grouped, Indian grouping like 3,00,000
// included. Group 2, when present, is a lakh/lac unit word that scales the
// number by 100,000.
var sumAssuredRules = []rule{
	{re: regexp.MustCompile(`sum\s+(?:assured|insured)\s*[:\-]?\s*(?:rs\.?|inr|₹)?\s*([0-9]+(?:[,.][0-9]{2,3})*)\s*(lakhs?|lacs?)?`), post: postAmount},
	{re: regexp.MustCompile(`\b(?:total\s+)?(?:coverage|cover\s+amount)\s*[:\-]?\s*(?:rs\.?|inr|₹)?\s*([0-9]+(?:[,.][0-9]{2,3})*)\s*(lakhs?|lacs?)?`), post: postAmount},
	{re: regexp.MustCompile(`\bsum\s+at\s+risk\s*[:\-]?\s*(?:rs\.?|inr|₹)?\s*([0-9]+(?:[,.][0-9]{2,3})*)\s*(lakhs?|lacs?)?`), post: postAmount},
}

var premiumRules = []rule{
	{re: regexp.MustCompile(`(?:total\s+|net\s+|annual\s+)?premium(?:\s+amount)?(?:\s+payable)?\s*[:\-]?\s*(?:rs\.?|inr|₹)?\s*([0-9]+(?:[,.][0-9]{2,3})*)\s*(lakhs?|lacs?)?`), post: postAmount},
	{re: regexp.MustCompile(`(?:instal?lment|modal)\s+premium\s*[:\-]?\s*(?:rs\.?|inr|₹)?\s*([0-9]+(?:[,.][0-9]{2,3})*)\s*(lakhs?|lacs?)?`), post: postAmount},
}

func postAmount(m []string) string {
	lakh := len(m) > 2 && m[2] != ""
	return parseAmount(m[1], lakh)
}

// parseAmount strips grouping separators from the matched numeric token and
// applies the lakh multiplier. Returns "" when nothing numeric survives.
func parseAmount(raw string, lakh bool) string {
	raw = strings.Trim(raw, " .,")
	raw = strings.ReplaceAll(raw, ",", "")
	// Dot-grouped thousands: several dots, or a single dot with exactly
	// three trailing digits (rupee amounts never carry 3 decimal places).
	if n := strings.Count(raw, "."); n > 1 {
		raw = strings.ReplaceAll(raw, ".", "")
	} else if n == 1 && len(raw)-strings.Index(raw, ".")-1 == 3 {
		raw = strings.ReplaceAll(raw, ".", "")
	}
	if raw == "" {
		return ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return ""
	}
	if lakh {
		v *= lakhMultiplier
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// frequencyRules classify the payment cadence. Checked in this order; the
// first keyword present wins even when several occur (a schedule table that
// mentions both "annual" and "monthly" resolves to Annual). The annual
// pattern refuses a leading hyphen so "half-yearly" cannot satisfy it.
var frequencyRules = []providerRule{
	{regexp.MustCompile(`(?:^|[^-a-z])(?:annual(?:ly)?|yearly|per\s+annum)\b`), "Annual"},
	{regexp.MustCompile(`half[\s-]?yearly|semi[\s-]?annual(?:ly)?`), "Half-Yearly"},
	{regexp.MustCompile(`quarterly`), "Quarterly"},
	{regexp.MustCompile(`monthly|per\s+month`), "Monthly"},
}

func matchFrequency(low string) string {
	for _, fr := range frequencyRules {
		if fr.re.MatchString(low) {
			return fr.name
		}
	}
	return ""
}
