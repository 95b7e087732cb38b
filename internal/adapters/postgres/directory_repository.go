package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
)

// DirectoryRepository implements ports.Directory over the users and subscribers tables
type DirectoryRepository struct {
	db ports.DBTX
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db ports.DBTX) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetSubscriber returns the subscriber, or nil when it does not exist
func (r *DirectoryRepository) GetSubscriber(ctx context.Context, id string) (*domain.Subscriber, error) {
	subscriberID, ok := parseUUID(id)
	if !ok {
		return nil, nil
	}

	var (
		subscriber        domain.Subscriber
		gatewayCustomerID pgtype.Text
		paymentMethodID   pgtype.Text
	)
	err := r.db.QueryRow(ctx, `
		SELECT id::text, tenant_id::text, name, email, gateway_customer_id, gateway_payment_method_id
		FROM subscribers WHERE id = $1`, subscriberID,
	).Scan(&subscriber.ID, &subscriber.TenantID, &subscriber.Name, &subscriber.Email, &gatewayCustomerID, &paymentMethodID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}

	subscriber.GatewayCustomerID = gatewayCustomerID.String
	subscriber.GatewayPaymentMethodID = paymentMethodID.String
	return &subscriber, nil
}

// UserExists reports whether a company user with id exists
func (r *DirectoryRepository) UserExists(ctx context.Context, id string) (bool, error) {
	userID, ok := parseUUID(id)
	if !ok {
		return false, nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}
