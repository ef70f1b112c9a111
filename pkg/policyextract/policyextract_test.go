package policyextract

import "testing"

const starHealthDoc = `Star Health Insurance
Family Health Optima Insurance Plan
Policy No: SH1234567890
Insured Name: Rahul Sharma
Sum Insured: Rs. 3,00,000
Premium: Rs. 8500
Premium Frequency: Annual
Policy Period: 01/04/2024 to 31/03/2025`

func TestExtractStarHealthSchedule(t *testing.T) {
	d := Extract(starHealthDoc)
	if d.Provider != "Star Health Insurance" {
		t.Errorf("provider = %q", d.Provider)
	}
	if d.PolicyNumber != "SH1234567890" {
		t.Errorf("policy_number = %q", d.PolicyNumber)
	}
	if d.SumAssured != "300000" {
		t.Errorf("sum_assured = %q", d.SumAssured)
	}
	if d.PremiumAmount != "8500" {
		t.Errorf("premium_amount = %q", d.PremiumAmount)
	}
	if d.StartDate != "2024-04-01" {
		t.Errorf("start_date = %q", d.StartDate)
	}
	if d.RenewalDate != "2025-03-31" {
		t.Errorf("renewal_date = %q", d.RenewalDate)
	}
	if d.PolicyType != "Health" {
		t.Errorf("policy_type = %q", d.PolicyType)
	}
	if d.PremiumFrequency != "Annual" {
		t.Errorf("premium_frequency = %q", d.PremiumFrequency)
	}
	if d.InsuredName != "Rahul Sharma" {
		t.Errorf("insured_name = %q", d.InsuredName)
	}
}

func TestProviderNamedBrandBeatsGenericLabel(t *testing.T) {
	text := "This certificate is underwritten by XYZ Insurance Ltd.\nCare Health Insurance Limited, Gurugram"
	d := Extract(text)
	if d.Provider != "Care Health Insurance" {
		t.Fatalf("provider = %q, want Care Health Insurance", d.Provider)
	}
}

func TestProviderGenericLabelFallback(t *testing.T) {
	d := Extract("Underwritten by: Zenith General Insurance")
	if d.Provider != "Zenith General Insurance" {
		t.Fatalf("provider = %q", d.Provider)
	}
}

func TestExtractWhitespaceOnly(t *testing.T) {
	d := Extract("   \n\t  \n ")
	if !d.Empty() {
		t.Fatalf("expected empty record, got %+v", d)
	}
}

func TestPolicyNumberRejectsShortTokens(t *testing.T) {
	// A short token must not satisfy the policy-number rule.
	d := Extract("Policy No: AB12\nCertificate Number: CERT-2024-00991")
	if d.PolicyNumber != "CERT-2024-00991" {
		t.Fatalf("policy_number = %q, want CERT-2024-00991", d.PolicyNumber)
	}
}

func TestPolicyNumberUppercased(t *testing.T) {
	d := Extract("policy no: sh99x2210ab")
	if d.PolicyNumber != "SH99X2210AB" {
		t.Fatalf("policy_number = %q", d.PolicyNumber)
	}
}

func TestPolicyNameLabel(t *testing.T) {
	d := Extract("Plan Name: Smart Secure Plus Plan\nUIN: 101N123V01")
	if d.PolicyName != "Smart Secure Plus Plan" {
		t.Fatalf("policy_name = %q", d.PolicyName)
	}
}

func TestPolicyNameLineFallback(t *testing.T) {
	text := "Schedule\nwww.insurer.example.com\nArogya Sanjeevani Health Plan\nUIN 99887766"
	d := Extract(text)
	if d.PolicyName != "Arogya Sanjeevani Health Plan" {
		t.Fatalf("policy_name = %q", d.PolicyName)
	}
}

func TestPolicyNameFallbackSkipsBoilerplate(t *testing.T) {
	text := "contact us at help@insurer.com for insurance queries\nCall phone 1800-2666 insurance desk\nshort line"
	d := Extract(text)
	if d.PolicyName != "" {
		t.Fatalf("policy_name = %q, want empty", d.PolicyName)
	}
}

func TestPolicyTypePriorityOrder(t *testing.T) {
	// Health is checked before sub-categories that also appear as riders.
	d := Extract("Health policy with personal accident and critical illness riders")
	if d.PolicyType != "Health" {
		t.Fatalf("policy_type = %q, want Health", d.PolicyType)
	}
	d = Extract("Comprehensive private car package")
	if d.PolicyType != "Car" {
		t.Fatalf("policy_type = %q, want Car", d.PolicyType)
	}
}

func TestInsuredNameLabels(t *testing.T) {
	d := Extract("Life Assured: Priya Nair\nAgent: something")
	if d.InsuredName != "Priya Nair" {
		t.Fatalf("insured_name = %q", d.InsuredName)
	}
}
