package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
)

type GatewayRepository struct {
	db *sqlx.DB
}

func NewGatewayRepository(db *sqlx.DB) *GatewayRepository {
	return &GatewayRepository{db: db}
}

func (r *GatewayRepository) GetByID(ctx context.Context, id int64) (*domain.Gateway, error) {
	query := `
		SELECT id, name, base_url, active, created_at
		FROM gateways
		WHERE id = ?
	`

	var gateway domain.Gateway
	if err := conn(ctx, r.db).GetContext(ctx, &gateway, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get gateway: %w", err)
	}

	return &gateway, nil
}
