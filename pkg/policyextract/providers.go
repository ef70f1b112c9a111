package policyextract

import "regexp"

// providerRule maps a brand pattern to the canonical insurer name. A rule
// with an empty name captures group 1 from the document instead (generic
// "insurer: X" labels).
type providerRule struct {
	re   *regexp.Regexp
	name string
}

// providerRules is tried in order; first match wins. The first two entries
// are named insurers that generic "insurer/company" labels chronically
// under-match, so they outrank everything else. The brand table is
// whitespace-tolerant because OCR mangles spacing.
var providerRules = []providerRule{
	{regexp.MustCompile(`(?i)care\s+health\s+insurance`), "Care Health Insurance"},
	{regexp.MustCompile(`(?i)niva\s+bupa`), "Niva Bupa Health Insurance"},

	{regexp.MustCompile(`(?i)star\s+health`), "Star Health Insurance"},
	{regexp.MustCompile(`(?i)life\s+insurance\s+corporation|\bLIC\s+of\s+India\b`), "Life Insurance Corporation of India"},
	{regexp.MustCompile(`(?i)hdfc\s+ergo`), "HDFC ERGO General Insurance"},
	{regexp.MustCompile(`(?i)hdfc\s+life`), "HDFC Life Insurance"},
	{regexp.MustCompile(`(?i)icici\s+lombard`), "ICICI Lombard General Insurance"},
	{regexp.MustCompile(`(?i)icici\s+prudential`), "ICICI Prudential Life Insurance"},
	{regexp.MustCompile(`(?i)sbi\s+life`), "SBI Life Insurance"},
	{regexp.MustCompile(`(?i)sbi\s+general`), "SBI General Insurance"},
	{regexp.MustCompile(`(?i)max\s+life`), "Max Life Insurance"},
	{regexp.MustCompile(`(?i)bajaj\s+allianz`), "Bajaj Allianz"},
	{regexp.MustCompile(`(?i)tata\s+aig`), "Tata AIG"},
	{regexp.MustCompile(`(?i)tata\s+aia`), "Tata AIA Life Insurance"},
	{regexp.MustCompile(`(?i)new\s+india\s+assurance`), "The New India Assurance"},
	{regexp.MustCompile(`(?i)national\s+insurance\s+company`), "National Insurance Company"},
	{regexp.MustCompile(`(?i)oriental\s+insurance`), "The Oriental Insurance Company"},
	{regexp.MustCompile(`(?i)united\s+india\s+insurance`), "United India Insurance"},
	{regexp.MustCompile(`(?i)reliance\s+general`), "Reliance General Insurance"},
	{regexp.MustCompile(`(?i)kotak\s+mahindra`), "Kotak Mahindra Life Insurance"},
	{regexp.MustCompile(`(?i)aditya\s+birla`), "Aditya Birla Health Insurance"},
	{regexp.MustCompile(`(?i)cholamandalam`), "Cholamandalam MS General Insurance"},
	{regexp.MustCompile(`(?i)future\s+generali`), "Future Generali"},
	{regexp.MustCompile(`(?i)royal\s+sundaram`), "Royal Sundaram General Insurance"},
	{regexp.MustCompile(`(?i)go\s+digit|digit\s+insurance`), "Go Digit General Insurance"},
	{regexp.MustCompile(`(?i)\backo\b`), "Acko General Insurance"},

	// Generic labels run last so a named brand elsewhere in the document
	// always beats "underwritten by XYZ Insurance".
	{regexp.MustCompile(`(?i:underwritten\s+by|issued\s+by|insurer|insurance\s+company)[ \t]*[:\-]?[ \t]*([A-Z][A-Za-z&. ]{2,60})`), ""},
}

// matchProvider resolves the insurer name using the priority table.
func matchProvider(text string) string {
	for _, pr := range providerRules {
		m := pr.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if pr.name != "" {
			return pr.name
		}
		if len(m) > 1 {
			return normalizeSpace(m[1])
		}
	}
	return ""
}
