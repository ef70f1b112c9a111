package policyextract

import "regexp"

// policyTypeRules map category keywords to a policy type label. Order is the
// priority: Health outranks the sub-categories that often co-occur with it
// (a health schedule routinely mentions "personal accident" riders), and the
// bare "life" catch-all runs dead last.
var policyTypeRules = []providerRule{
	{regexp.MustCompile(`\bhealth\b|mediclaim`), "Health"},
	{regexp.MustCompile(`\bterm\s+(?:life|plan|insurance|assurance)\b`), "Term Life"},
	{regexp.MustCompile(`\b(?:car|motor|private\s+car)\b`), "Car"},
	{regexp.MustCompile(`\b(?:bike|two[\s-]?wheeler|scooter)\b`), "Bike"},
	{regexp.MustCompile(`\bhome\b|householder`), "Home"},
	{regexp.MustCompile(`\btravel\b|overseas\s+medical`), "Travel"},
	{regexp.MustCompile(`critical\s+illness`), "Critical Illness"},
	{regexp.MustCompile(`personal\s+accident`), "Personal Accident"},
	{regexp.MustCompile(`\bproperty\b|\bfire\b`), "Property"},
	{regexp.MustCompile(`\bchild\b`), "Child Plan"},
	{regexp.MustCompile(`super\s+top[\s-]?up`), "Super Top-up"},
	{regexp.MustCompile(`\blife\b|endowment|\bulip\b`), "Life"},
}

func matchPolicyType(low string) string {
	for _, tr := range policyTypeRules {
		if tr.re.MatchString(low) {
			return tr.name
		}
	}
	return ""
}
