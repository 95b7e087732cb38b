package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
)

const subscriptionColumns = `id::text, tenant_id::text, subscriber_id::text, subscription_plan_id::text,
	status, started_at, canceled_at, created_at, updated_at`

// SubscriptionRepository implements ports.SubscriptionRepository using pgx
type SubscriptionRepository struct {
	db ports.DBTX
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db ports.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetSubscriptions lists subscriptions ordered by creation time, then id.
// The ordering is stable so page N+1 never repeats or skips rows of page N.
func (r *SubscriptionRepository) GetSubscriptions(ctx context.Context, filter domain.SubscriptionFilter) (*domain.SubscriptionPage, error) {
	where, args := subscriptionWhere(filter)

	query := "SELECT " + subscriptionColumns + " FROM subscriptions" + where + " ORDER BY created_at, id"

	var pageResult *domain.PageResult
	if filter.Page != nil {
		var total int
		if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM subscriptions"+where, args...).Scan(&total); err != nil {
			return nil, fmt.Errorf("count subscriptions: %w", err)
		}
		pageResult = domain.NewPageResult(*filter.Page, total)

		if filter.Page.Limit > 0 {
			args = append(args, filter.Page.Limit, filter.Page.Offset())
			query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		results = append(results, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	return &domain.SubscriptionPage{PageResult: pageResult, Results: results}, nil
}

// GetSubscriptionByID retrieves a subscription, or nil when it does not exist
func (r *SubscriptionRepository) GetSubscriptionByID(ctx context.Context, id string) (*domain.Subscription, error) {
	subID, ok := parseUUID(id)
	if !ok {
		return nil, nil
	}

	row := r.db.QueryRow(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = $1", subID)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription by id: %w", err)
	}
	return sub, nil
}

// CreateSubscription inserts a new subscription
func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	subID, err := mustUUID("subscription ID", sub.ID)
	if err != nil {
		return err
	}
	tenantID, err := mustUUID("tenant ID", sub.TenantID)
	if err != nil {
		return err
	}
	subscriberID, err := mustUUID("subscriber ID", sub.SubscriberID)
	if err != nil {
		return err
	}
	planID, err := mustUUID("subscription plan ID", sub.SubscriptionPlanID)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO subscriptions (
			id, tenant_id, subscriber_id, subscription_plan_id,
			status, started_at, canceled_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		subID, tenantID, subscriberID, planID,
		string(sub.Status),
		nullTimestamptz(sub.StartedAt),
		nullTimestamptz(sub.CanceledAt),
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// UpdateSubscription persists status and lifecycle timestamps
func (r *SubscriptionRepository) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	subID, err := mustUUID("subscription ID", sub.ID)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE subscriptions
		SET status = $2, started_at = $3, canceled_at = $4, updated_at = $5
		WHERE id = $1`,
		subID,
		string(sub.Status),
		nullTimestamptz(sub.StartedAt),
		nullTimestamptz(sub.CanceledAt),
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func subscriptionWhere(filter domain.SubscriptionFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		clauses = append(clauses, fmt.Sprintf("tenant_id::text = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var (
		sub        domain.Subscription
		status     string
		startedAt  pgtype.Timestamptz
		canceledAt pgtype.Timestamptz
	)

	err := row.Scan(
		&sub.ID,
		&sub.TenantID,
		&sub.SubscriberID,
		&sub.SubscriptionPlanID,
		&status,
		&startedAt,
		&canceledAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Status = domain.SubscriptionStatus(status)
	sub.StartedAt = timestamptzPtr(startedAt)
	sub.CanceledAt = timestamptzPtr(canceledAt)
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	return &sub, nil
}
