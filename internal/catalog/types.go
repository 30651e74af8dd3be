// Package catalog serves structured product data: subscription plans,
// feature availability, and known support issues. Lookups are exact or
// keyword based, not semantic; the knowledge package covers free-text
// documentation search.
package catalog

// Plan is one subscription tier. Price and limit fields are text because
// some tiers carry values like "Custom" or "Unlimited".
type Plan struct {
	Name                    string
	MonthlyPriceUSD         string
	AnnualPriceUSD          string
	AnnualMonthlyEquivalent string
	MaxUsers                string
	StorageGB               string
	ProjectsLimit           string
	CustomFields            string
	TimeTracking            string
	PrioritySupport         string
	SSO                     string
}

// Feature is one product capability with per-plan availability.
type Feature struct {
	Name        string
	Category    string
	Description string

	// Availability per plan, e.g. "Yes", "No", "Limited (3)".
	Free         string
	Starter      string
	Professional string
	Business     string
	Enterprise   string
}

// AvailabilityFor returns the feature's availability on the named plan.
func (f Feature) AvailabilityFor(plan string) (string, bool) {
	switch normalizePlan(plan) {
	case "free":
		return f.Free, true
	case "starter":
		return f.Starter, true
	case "professional":
		return f.Professional, true
	case "business":
		return f.Business, true
	case "enterprise":
		return f.Enterprise, true
	default:
		return "", false
	}
}

// SupportIssue is one known issue with its resolution playbook.
type SupportIssue struct {
	Title              string
	Category           string
	AvgResolutionHours string
	Resolution         string
}
