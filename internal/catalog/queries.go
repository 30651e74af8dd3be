package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGQuerier implements Querier on a pgx connection pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a Querier backed by PostgreSQL.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

const planColumns = `name, monthly_price_usd, annual_price_usd, annual_monthly_equivalent,
	max_users, storage_gb, projects_limit, custom_fields, time_tracking, priority_support, sso`

// PlanByName returns the plan with the given name, or nil when absent.
func (q *PGQuerier) PlanByName(ctx context.Context, name string) (*Plan, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE LOWER(name) = LOWER($1)`, name)

	var p Plan
	err := row.Scan(&p.Name, &p.MonthlyPriceUSD, &p.AnnualPriceUSD, &p.AnnualMonthlyEquivalent,
		&p.MaxUsers, &p.StorageGB, &p.ProjectsLimit, &p.CustomFields,
		&p.TimeTracking, &p.PrioritySupport, &p.SSO)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	return &p, nil
}

// ListPlans returns all plans in display order.
func (q *PGQuerier) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT `+planColumns+` FROM plans ORDER BY display_order`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.Name, &p.MonthlyPriceUSD, &p.AnnualPriceUSD, &p.AnnualMonthlyEquivalent,
			&p.MaxUsers, &p.StorageGB, &p.ProjectsLimit, &p.CustomFields,
			&p.TimeTracking, &p.PrioritySupport, &p.SSO); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

// SearchFeatures matches the keyword against feature names first, falling
// back to descriptions when nothing matches.
func (q *PGQuerier) SearchFeatures(ctx context.Context, keyword string) ([]Feature, error) {
	features, err := q.queryFeatures(ctx,
		`SELECT name, category, description, free, starter, professional, business, enterprise
		 FROM features WHERE name ILIKE '%' || $1 || '%' ORDER BY name`, keyword)
	if err != nil {
		return nil, err
	}
	if len(features) > 0 {
		return features, nil
	}

	return q.queryFeatures(ctx,
		`SELECT name, category, description, free, starter, professional, business, enterprise
		 FROM features WHERE description ILIKE '%' || $1 || '%' ORDER BY name`, keyword)
}

func (q *PGQuerier) queryFeatures(ctx context.Context, sql, keyword string) ([]Feature, error) {
	rows, err := q.pool.Query(ctx, sql, keyword)
	if err != nil {
		return nil, fmt.Errorf("search features: %w", err)
	}
	defer rows.Close()

	var features []Feature
	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.Name, &f.Category, &f.Description,
			&f.Free, &f.Starter, &f.Professional, &f.Business, &f.Enterprise); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return features, nil
}

// SearchIssues matches the keyword against issue titles and categories.
func (q *PGQuerier) SearchIssues(ctx context.Context, keyword string) ([]SupportIssue, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT title, category, avg_resolution_hours, resolution
		 FROM support_issues
		 WHERE title ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%'
		 ORDER BY title`, keyword)
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}
	defer rows.Close()

	var issues []SupportIssue
	for rows.Next() {
		var issue SupportIssue
		if err := rows.Scan(&issue.Title, &issue.Category, &issue.AvgResolutionHours, &issue.Resolution); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return issues, nil
}
