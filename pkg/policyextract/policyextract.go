// Package policyextract infers structured insurance-policy fields from raw
// document text (a PDF text layer or OCR output). Extraction is heuristic:
// each field has an ordered list of pattern rules tried in priority order,
// and the first rule that yields a value wins. Missing fields stay empty.
package policyextract

import (
	"regexp"
	"strings"
)

// Tuning constants. These come from empirical tuning against real policy
// documents, not from any documented requirement; keep them named rather
// than re-deriving "correct" values.
const (
	policyNumberMinLen = 6  // shorter alphanumeric tokens are false positives
	twoDigitYearCutoff = 50 // two-digit years >50 -> 1900s, <=50 -> 2000s
	nameScanMaxLines   = 15 // fallback policy-name scan window
	nameMinLen         = 10
	nameMaxLen         = 80
	lakhMultiplier     = 100000
)

// PolicyData is the best-effort structured record produced from document
// text. Every field is optional; an empty string means "not found". All
// values are strings because the human reviewer edits them before commit.
type PolicyData struct {
	PolicyName       string `json:"policy_name,omitempty"`
	Provider         string `json:"provider,omitempty"`
	PolicyNumber     string `json:"policy_number,omitempty"`
	PolicyType       string `json:"policy_type,omitempty"`
	PremiumAmount    string `json:"premium_amount,omitempty"`
	SumAssured       string `json:"sum_assured,omitempty"`
	StartDate        string `json:"start_date,omitempty"`
	RenewalDate      string `json:"renewal_date,omitempty"`
	InsuredName      string `json:"insured_name,omitempty"`
	PremiumFrequency string `json:"premium_frequency,omitempty"`
}

// Empty reports whether no field was inferred.
func (d PolicyData) Empty() bool {
	return d == PolicyData{}
}

// rule is one entry of an ordered pattern table. post receives the submatch
// slice and returns the committed value, or "" to reject the match and let
// the next rule run.
type rule struct {
	re   *regexp.Regexp
	post func(m []string) string
}

// applyRules tries rules in order and returns the first committed value.
func applyRules(rules []rule, text string) string {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if r.post == nil {
			if len(m) > 1 {
				return normalizeSpace(m[1])
			}
			return normalizeSpace(m[0])
		}
		if v := r.post(m); v != "" {
			return v
		}
	}
	return ""
}

// Extract runs every field's rule set against the text. It is a pure
// function: no I/O, no error cases. Garbage in yields an empty record, which
// is a valid outcome (the reviewer fills the form manually).
func Extract(text string) PolicyData {
	var d PolicyData
	if strings.TrimSpace(text) == "" {
		return d
	}
	low := strings.ToLower(text)

	d.PolicyNumber = applyRules(policyNumberRules, text)
	d.Provider = matchProvider(text)
	d.SumAssured = applyRules(sumAssuredRules, low)
	d.PremiumAmount = applyRules(premiumRules, low)
	d.PremiumFrequency = matchFrequency(low)
	d.StartDate, d.RenewalDate = extractDates(low)
	d.PolicyType = matchPolicyType(low)
	d.PolicyName = extractPolicyName(text)
	d.InsuredName = applyRules(insuredNameRules, text)
	return d
}

// normalizeSpace collapses runs of whitespace to single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var policyNumberRules = []rule{
	{re: regexp.MustCompile(`(?i)policy\s*(?:no|number|num|#)\.?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{3,})`), post: postPolicyNumber},
	{re: regexp.MustCompile(`(?i)certificate\s*(?:no|number)\.?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{3,})`), post: postPolicyNumber},
	{re: regexp.MustCompile(`(?i)member\s*id\.?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{3,})`), post: postPolicyNumber},
	{re: regexp.MustCompile(`(?i)registration\s*(?:no|number)\.?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{3,})`), post: postPolicyNumber},
	{re: regexp.MustCompile(`(?i)proposal\s*(?:no|number)\.?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{3,})`), post: postPolicyNumber},
}

// postPolicyNumber rejects short tokens (dates, serial fragments) and
// upper-cases the rest.
func postPolicyNumber(m []string) string {
	tok := strings.Trim(m[1], "-/")
	alnum := 0
	for _, r := range tok {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			alnum++
		}
	}
	if alnum < policyNumberMinLen {
		return ""
	}
	return strings.ToUpper(tok)
}

// nameCapture keeps the match on one line so a label's value cannot bleed
// into the following schedule row.
const nameCapture = `[ \t]*[:\-]?[ \t]*([A-Z][A-Za-z]+(?:[ \t]+[A-Z][A-Za-z.]*){0,4})`

// Labels match case-insensitively but the captured name must actually be
// capitalized, so the flag is scoped to the label group.
var insuredNameRules = []rule{
	{re: regexp.MustCompile(`(?i:insured(?:'s)?\s+name|name\s+of\s+(?:the\s+)?insured)` + nameCapture)},
	{re: regexp.MustCompile(`(?i:proposer(?:\s+name)?)` + nameCapture)},
	{re: regexp.MustCompile(`(?i:policy\s*holder(?:\s+name)?)` + nameCapture)},
	{re: regexp.MustCompile(`(?i:life\s+assured)` + nameCapture)},
	{re: regexp.MustCompile(`(?i:member\s+name)` + nameCapture)},
}

// extractPolicyName first tries explicit labels, then falls back to scanning
// the opening lines for something that reads like a product name.
func extractPolicyName(text string) string {
	if v := applyRules(policyNameLabelRules, text); v != "" {
		return v
	}
	return scanPolicyNameLines(text)
}

var policyNameLabelRules = []rule{
	{re: regexp.MustCompile(`(?i)policy\s+name\s*[:\-]\s*([^\n]{3,80})`)},
	{re: regexp.MustCompile(`(?i)plan\s+name\s*[:\-]\s*([^\n]{3,80})`)},
	{re: regexp.MustCompile(`(?i)product\s+name\s*[:\-]\s*([^\n]{3,80})`)},
}

var nameKeywords = []string{"insurance", "policy", "plan", "assurance", "mediclaim", "health", "life", "suraksha"}

var nameBoilerplate = []string{"@", "www.", ".com", "phone", "fax", "email", "e-mail", "tel:", "mobile", "address", "toll free", "helpline", "irdai"}

// scanPolicyNameLines looks at the first non-empty lines for a plausible
// product name: mid-length, insurance-flavored, and not contact boilerplate.
func scanPolicyNameLines(text string) string {
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		line = normalizeSpace(line)
		if line == "" {
			continue
		}
		seen++
		if seen > nameScanMaxLines {
			break
		}
		if len(line) < nameMinLen || len(line) > nameMaxLen {
			continue
		}
		lowLine := strings.ToLower(line)
		if containsAny(lowLine, nameBoilerplate) {
			continue
		}
		if containsAny(lowLine, nameKeywords) {
			return line
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
