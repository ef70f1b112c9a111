package policyextract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// dateToken matches D/M/Y-ish tokens in slash or dash separated form.
const dateToken = `([0-9]{1,4}[/-][0-9]{1,2}[/-][0-9]{2,4})`

// periodRule captures both ends of a "Policy Period: X to Y" clause in one
// shot, which is how most general-insurance schedules state the term.
var periodRule = regexp.MustCompile(`(?:policy\s+period|period\s+of\s+insurance|insurance\s+period)\s*[:\-]?\s*` + dateToken + `\s*(?:to|till|until|through|[-–])\s*` + dateToken)

var startDateRules = []rule{
	{re: regexp.MustCompile(`(?:policy\s+)?(?:start|commencement|inception|issue|effective)\s+date\s*[:\-]?\s*` + dateToken), post: postDate},
	{re: regexp.MustCompile(`date\s+of\s+(?:commencement|issue|inception)\s*[:\-]?\s*` + dateToken), post: postDate},
	{re: regexp.MustCompile(`(?:risk\s+commencement|cover(?:age)?\s+(?:start|from))\s*[:\-]?\s*` + dateToken), post: postDate},
	{re: regexp.MustCompile(`\bfrom\s*[:\-]?\s*` + dateToken), post: postDate},
}

var renewalDateRules = []rule{
	{re: regexp.MustCompile(`(?:renewal|expiry|expiration|maturity)\s+date\s*[:\-]?\s*` + dateToken), post: postDate},
	{re: regexp.MustCompile(`(?:renewal\s+due|due\s+for\s+renewal)\s*(?:on)?\s*[:\-]?\s*` + dateToken), post: postDate},
	{re: regexp.MustCompile(`valid\s+(?:till|until|upto|up\s+to)\s*[:\-]?\s*` + dateToken), post: postDate},
	{re: regexp.MustCompile(`\b(?:to|till)\s*[:\-]?\s*` + dateToken), post: postDate},
}

func postDate(m []string) string {
	return NormalizeDate(m[1])
}

// extractDates runs against the lowercased text. The combined period rule is
// tried first; label-anchored rules fill whichever side it left unset.
func extractDates(low string) (start, renewal string) {
	if m := periodRule.FindStringSubmatch(low); m != nil {
		start = NormalizeDate(m[1])
		renewal = NormalizeDate(m[2])
	}
	if start == "" {
		start = applyRules(startDateRules, low)
	}
	if renewal == "" {
		renewal = applyRules(renewalDateRules, low)
	}
	return start, renewal
}

// NormalizeDate converts a raw matched date token to zero-padded YYYY-MM-DD.
// A 4-digit leading group means year-first; otherwise day-first with the
// last group as the year. Two-digit years expand around the 50 cutoff
// (99 -> 1999, 30 -> 2030). Returns "" on anything unparseable, so the field
// simply stays unset.
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	sep := "/"
	if !strings.Contains(raw, "/") {
		sep = "-"
	}
	parts := strings.Split(raw, sep)
	if len(parts) != 3 {
		return ""
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return ""
		}
		n[i] = v
	}
	var y, m, d int
	if len(strings.TrimSpace(parts[0])) == 4 {
		y, m, d = n[0], n[1], n[2]
	} else {
		d, m, y = n[0], n[1], n[2]
	}
	if y < 100 {
		if y > twoDigitYearCutoff {
			y += 1900
		} else {
			y += 2000
		}
	}
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1900 || y > 2200 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}
