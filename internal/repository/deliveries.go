package repository

import (
	"context"

	"github.com/appointmint/apptbot/internal/model"
	"github.com/jmoiron/sqlx"
)

// DeliveriesRepository records outbound dispatch outcomes. Rows are
// insert-only audit data; nothing in the request path reads them back.
type DeliveriesRepository interface {
	Insert(ctx context.Context, d model.Delivery) error
}

type DeliveriesRepositoryImpl struct {
	db *sqlx.DB
}

func NewDeliveriesRepository(db *sqlx.DB) *DeliveriesRepositoryImpl {
	return &DeliveriesRepositoryImpl{db: db}
}

var _ DeliveriesRepository = (*DeliveriesRepositoryImpl)(nil)

func (r *DeliveriesRepositoryImpl) Insert(ctx context.Context, d model.Delivery) error {
	const q = `
		INSERT INTO deliveries (id, recipient, kind, body, status, provider_sid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW())
	`
	_, err := r.db.ExecContext(ctx, q, d.ID, d.Recipient, d.Kind.String(), d.Body, d.Status.String(), d.ProviderSID)
	return err
}
