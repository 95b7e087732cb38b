package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/samber/lo"
)

const subscriptionPlanColumns = `id::text, tenant_id::text, amount, currency, recurrence_type,
	items, term_url, next_billing_date, created_at, updated_at`

// SubscriptionPlanRepository implements ports.SubscriptionPlanRepository using pgx
type SubscriptionPlanRepository struct {
	db ports.DBTX
}

// NewSubscriptionPlanRepository creates a new subscription plan repository
func NewSubscriptionPlanRepository(db ports.DBTX) *SubscriptionPlanRepository {
	return &SubscriptionPlanRepository{db: db}
}

// GetSubscriptionPlansByIDs loads every plan in ids with a single query
func (r *SubscriptionPlanRepository) GetSubscriptionPlansByIDs(ctx context.Context, ids []string) ([]*domain.SubscriptionPlan, error) {
	planIDs := lo.FilterMap(lo.Uniq(ids), func(id string, _ int) (uuid.UUID, bool) {
		return parseUUID(id)
	})
	if len(planIDs) == 0 {
		return []*domain.SubscriptionPlan{}, nil
	}

	rows, err := r.db.Query(ctx,
		"SELECT "+subscriptionPlanColumns+" FROM subscription_plans WHERE id = ANY($1)", planIDs)
	if err != nil {
		return nil, fmt.Errorf("get subscription plans by ids: %w", err)
	}
	defer rows.Close()

	plans := make([]*domain.SubscriptionPlan, 0, len(planIDs))
	for rows.Next() {
		plan, err := scanSubscriptionPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get subscription plans by ids: %w", err)
	}
	return plans, nil
}

// GetSubscriptionPlanByID retrieves a plan, or nil when it does not exist
func (r *SubscriptionPlanRepository) GetSubscriptionPlanByID(ctx context.Context, id string) (*domain.SubscriptionPlan, error) {
	planID, ok := parseUUID(id)
	if !ok {
		return nil, nil
	}

	row := r.db.QueryRow(ctx, "SELECT "+subscriptionPlanColumns+" FROM subscription_plans WHERE id = $1", planID)
	plan, err := scanSubscriptionPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription plan by id: %w", err)
	}
	return plan, nil
}

// CreateSubscriptionPlan inserts a new plan
func (r *SubscriptionPlanRepository) CreateSubscriptionPlan(ctx context.Context, plan *domain.SubscriptionPlan) error {
	planID, err := mustUUID("subscription plan ID", plan.ID)
	if err != nil {
		return err
	}
	tenantID, err := mustUUID("tenant ID", plan.TenantID)
	if err != nil {
		return err
	}
	amount, err := decimalToNumeric(plan.Amount)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO subscription_plans (
			id, tenant_id, amount, currency, recurrence_type,
			items, term_url, next_billing_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		planID, tenantID, amount, plan.Currency, string(plan.RecurrenceType),
		itemsOrEmpty(plan.Items),
		nullTextPtr(plan.TermURL),
		nullDate(plan.NextBillingDate),
		plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create subscription plan: %w", err)
	}
	return nil
}

// UpdateSubscriptionPlan persists the billing date and plan attributes
func (r *SubscriptionPlanRepository) UpdateSubscriptionPlan(ctx context.Context, plan *domain.SubscriptionPlan) error {
	planID, err := mustUUID("subscription plan ID", plan.ID)
	if err != nil {
		return err
	}
	amount, err := decimalToNumeric(plan.Amount)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE subscription_plans
		SET amount = $2, currency = $3, recurrence_type = $4, items = $5,
		    term_url = $6, next_billing_date = $7, updated_at = $8
		WHERE id = $1`,
		planID, amount, plan.Currency, string(plan.RecurrenceType),
		itemsOrEmpty(plan.Items),
		nullTextPtr(plan.TermURL),
		nullDate(plan.NextBillingDate),
		plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update subscription plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionPlanNotFound
	}
	return nil
}

func itemsOrEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func scanSubscriptionPlan(row pgx.Row) (*domain.SubscriptionPlan, error) {
	var (
		plan            domain.SubscriptionPlan
		amount          pgtype.Numeric
		currency        string
		recurrence      string
		termURL         pgtype.Text
		nextBillingDate pgtype.Date
	)

	err := row.Scan(
		&plan.ID,
		&plan.TenantID,
		&amount,
		&currency,
		&recurrence,
		&plan.Items,
		&termURL,
		&nextBillingDate,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	plan.Amount, err = pgNumericToDecimal(amount)
	if err != nil {
		return nil, err
	}
	plan.Currency = currency
	plan.RecurrenceType = domain.RecurrenceType(recurrence)
	plan.TermURL = textPtr(termURL)
	plan.NextBillingDate = datePtr(nextBillingDate)
	plan.CreatedAt = plan.CreatedAt.UTC()
	plan.UpdatedAt = plan.UpdatedAt.UTC()
	return &plan, nil
}
