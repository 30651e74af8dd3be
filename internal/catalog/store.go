package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Querier defines the database operations the catalog needs.
type Querier interface {
	// PlanByName returns the plan with the given name, case-insensitively.
	PlanByName(ctx context.Context, name string) (*Plan, error)

	// ListPlans returns all plans in display order.
	ListPlans(ctx context.Context) ([]Plan, error)

	// SearchFeatures returns features whose name or description contains
	// the keyword, case-insensitively.
	SearchFeatures(ctx context.Context, keyword string) ([]Feature, error)

	// SearchIssues returns support issues whose title or category contains
	// the keyword, case-insensitively.
	SearchIssues(ctx context.Context, keyword string) ([]SupportIssue, error)
}

// Store answers structured product questions as markdown suited for
// inclusion in a model transcript.
type Store struct {
	queries      Querier
	supportEmail string
}

// New creates a catalog store.
func New(querier Querier, supportEmail string) *Store {
	return &Store{queries: querier, supportEmail: supportEmail}
}

// normalizePlan lowercases and trims a plan name for comparison.
func normalizePlan(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PricingInfo returns pricing details for one plan, or for all plans when
// name is empty.
func (s *Store) PricingInfo(ctx context.Context, name string) (string, error) {
	var plans []Plan

	if name != "" {
		plan, err := s.queries.PlanByName(ctx, name)
		if err != nil {
			return "", fmt.Errorf("looking up plan %q: %w", name, err)
		}
		if plan == nil {
			all, err := s.queries.ListPlans(ctx)
			if err != nil {
				return "", fmt.Errorf("listing plans: %w", err)
			}
			names := make([]string, len(all))
			for i, p := range all {
				names[i] = p.Name
			}
			return fmt.Sprintf("Plan '%s' not found. Available plans: %s",
				name, strings.Join(names, ", ")), nil
		}
		plans = []Plan{*plan}
	} else {
		all, err := s.queries.ListPlans(ctx)
		if err != nil {
			return "", fmt.Errorf("listing plans: %w", err)
		}
		plans = all
	}

	sections := make([]string, len(plans))
	for i, p := range plans {
		sections[i] = formatPlan(p)
	}
	return strings.Join(sections, "\n\n"), nil
}

// formatPlan renders one plan's full detail block.
func formatPlan(p Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s Plan**\n", p.Name)
	fmt.Fprintf(&b, "- Monthly: $%s/month\n", p.MonthlyPriceUSD)
	fmt.Fprintf(&b, "- Annual: $%s/year ($%s/month equivalent)\n", p.AnnualPriceUSD, p.AnnualMonthlyEquivalent)
	fmt.Fprintf(&b, "- Users: %s\n", p.MaxUsers)
	fmt.Fprintf(&b, "- Storage: %sGB\n", p.StorageGB)
	fmt.Fprintf(&b, "- Projects: %s\n", p.ProjectsLimit)
	fmt.Fprintf(&b, "- Custom Fields: %s\n", p.CustomFields)
	fmt.Fprintf(&b, "- Time Tracking: %s\n", p.TimeTracking)
	fmt.Fprintf(&b, "- Priority Support: %s\n", p.PrioritySupport)
	fmt.Fprintf(&b, "- SSO: %s", p.SSO)
	return b.String()
}

// ComparePlans renders a side-by-side comparison table of two plans.
func (s *Store) ComparePlans(ctx context.Context, first, second string) (string, error) {
	p1, err := s.queries.PlanByName(ctx, first)
	if err != nil {
		return "", fmt.Errorf("looking up plan %q: %w", first, err)
	}
	if p1 == nil {
		return fmt.Sprintf("Plan '%s' not found.", first), nil
	}

	p2, err := s.queries.PlanByName(ctx, second)
	if err != nil {
		return "", fmt.Errorf("looking up plan %q: %w", second, err)
	}
	if p2 == nil {
		return fmt.Sprintf("Plan '%s' not found.", second), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s vs %s Comparison**\n\n", p1.Name, p2.Name)
	fmt.Fprintf(&b, "| Feature | %s | %s |\n", p1.Name, p2.Name)
	b.WriteString("|---------|---------|---------|\n")
	fmt.Fprintf(&b, "| Monthly Price | $%s | $%s |\n", p1.MonthlyPriceUSD, p2.MonthlyPriceUSD)
	fmt.Fprintf(&b, "| Annual Price | $%s | $%s |\n", p1.AnnualPriceUSD, p2.AnnualPriceUSD)
	fmt.Fprintf(&b, "| Max Users | %s | %s |\n", p1.MaxUsers, p2.MaxUsers)
	fmt.Fprintf(&b, "| Storage | %sGB | %sGB |\n", p1.StorageGB, p2.StorageGB)
	fmt.Fprintf(&b, "| Projects | %s | %s |\n", p1.ProjectsLimit, p2.ProjectsLimit)
	fmt.Fprintf(&b, "| Custom Fields | %s | %s |\n", p1.CustomFields, p2.CustomFields)
	fmt.Fprintf(&b, "| Time Tracking | %s | %s |\n", p1.TimeTracking, p2.TimeTracking)
	fmt.Fprintf(&b, "| SSO | %s | %s |", p1.SSO, p2.SSO)
	return b.String(), nil
}

// FeatureAvailability reports which plans include features matching the
// keyword. When plan is non-empty, the match for that plan is highlighted.
func (s *Store) FeatureAvailability(ctx context.Context, keyword, plan string) (string, error) {
	features, err := s.queries.SearchFeatures(ctx, keyword)
	if err != nil {
		return "", fmt.Errorf("searching features for %q: %w", keyword, err)
	}
	if len(features) == 0 {
		return fmt.Sprintf("No feature matching '%s' found.", keyword), nil
	}

	sections := make([]string, len(features))
	for i, f := range features {
		var b strings.Builder
		fmt.Fprintf(&b, "**%s** (%s)\n", f.Name, f.Category)
		fmt.Fprintf(&b, "%s\n\n", f.Description)
		b.WriteString("Availability by plan:\n")
		fmt.Fprintf(&b, "- Free: %s\n", f.Free)
		fmt.Fprintf(&b, "- Starter: %s\n", f.Starter)
		fmt.Fprintf(&b, "- Professional: %s\n", f.Professional)
		fmt.Fprintf(&b, "- Business: %s\n", f.Business)
		fmt.Fprintf(&b, "- Enterprise: %s", f.Enterprise)

		if plan != "" {
			if availability, ok := f.AvailabilityFor(plan); ok {
				fmt.Fprintf(&b, "\n\nOn %s plan: %s", plan, availability)
			}
		}
		sections[i] = b.String()
	}
	return strings.Join(sections, "\n\n---\n\n"), nil
}

// SupportResolution returns resolution playbooks for issues matching the
// keyword. When nothing matches it points the customer at the support inbox.
func (s *Store) SupportResolution(ctx context.Context, keyword string) (string, error) {
	issues, err := s.queries.SearchIssues(ctx, keyword)
	if err != nil {
		return "", fmt.Errorf("searching issues for %q: %w", keyword, err)
	}
	if len(issues) == 0 {
		return fmt.Sprintf("No common issues found matching '%s'. Please contact %s",
			keyword, s.supportEmail), nil
	}

	sections := make([]string, len(issues))
	for i, issue := range issues {
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**\n", issue.Title)
		fmt.Fprintf(&b, "Category: %s\n", issue.Category)
		fmt.Fprintf(&b, "Typical Resolution Time: %s hours\n\n", issue.AvgResolutionHours)
		b.WriteString("**Resolution Steps:**\n")
		b.WriteString(issue.Resolution)
		sections[i] = b.String()
	}
	return strings.Join(sections, "\n\n---\n\n"), nil
}

// ListPlans returns a one-line summary per plan.
func (s *Store) ListPlans(ctx context.Context) (string, error) {
	plans, err := s.queries.ListPlans(ctx)
	if err != nil {
		return "", fmt.Errorf("listing plans: %w", err)
	}

	var b strings.Builder
	b.WriteString("**Available Plans:**")
	for _, p := range plans {
		price := fmt.Sprintf("$%s/mo", p.MonthlyPriceUSD)
		if strings.EqualFold(p.MonthlyPriceUSD, "Custom") {
			price = "Custom pricing"
		}
		fmt.Fprintf(&b, "\n- **%s**: %s - Up to %s users", p.Name, price, p.MaxUsers)
	}
	return b.String(), nil
}
