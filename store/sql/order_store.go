package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-paytoken/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrderStore persists payment orders. The token-generation subsystem
// writes them; the webhook pipeline reads them by token.
type OrderStore struct {
	db   *bun.DB
	repo repository.Repository[*orderRecord]
}

func NewOrderStore(db *bun.DB) (*OrderStore, error) {
	if db == nil {
		return nil, core.NewBadInputError("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*orderRecord](db, orderHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, core.NewInternalError("sqlstore: invalid order repository wiring: " + err.Error())
		}
	}
	return &OrderStore{db: db, repo: repo}, nil
}

// SaveOrder upserts an order keyed on token_uuid.
func (s *OrderStore) SaveOrder(ctx context.Context, order core.Order) (core.Order, error) {
	if s == nil || s.repo == nil {
		return core.Order{}, core.NewInternalError("sqlstore: order store is not configured")
	}
	tokenUUID := strings.TrimSpace(order.TokenUUID)
	if tokenUUID == "" {
		return core.Order{}, core.NewBadInputError("sqlstore: token uuid is required")
	}
	if strings.TrimSpace(order.UserID) == "" {
		return core.Order{}, core.NewBadInputError("sqlstore: user id is required")
	}

	now := time.Now().UTC()
	existing, err := s.findByToken(ctx, tokenUUID)
	if err != nil && !core.IsOrderNotFound(err) {
		return core.Order{}, err
	}
	if existing != nil {
		existing.UserID = strings.TrimSpace(order.UserID)
		existing.Amount = order.Amount
		existing.StatusCode = strings.TrimSpace(order.StatusCode)
		existing.Reusability = order.Reusability
		existing.RevokedAt = order.RevokedAt
		existing.UpdatedAt = now
		updated, updateErr := s.repo.Update(ctx, existing, repository.UpdateByID(existing.ID))
		if updateErr != nil {
			return core.Order{}, updateErr
		}
		return updated.toDomain(), nil
	}

	record := newOrderRecord(order, now)
	record.ID = uuid.NewString()
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Order{}, err
	}
	return created.toDomain(), nil
}

func (s *OrderStore) GetOrder(ctx context.Context, tokenUUID string) (core.Order, error) {
	if s == nil || s.repo == nil {
		return core.Order{}, core.NewInternalError("sqlstore: order store is not configured")
	}
	record, err := s.findByToken(ctx, strings.TrimSpace(tokenUUID))
	if err != nil {
		return core.Order{}, err
	}
	return record.toDomain(), nil
}

// RevokeOrder marks an order revoked. Revoking an already revoked order
// keeps the original timestamp.
func (s *OrderStore) RevokeOrder(ctx context.Context, tokenUUID string, at time.Time) error {
	if s == nil || s.repo == nil {
		return core.NewInternalError("sqlstore: order store is not configured")
	}
	record, err := s.findByToken(ctx, strings.TrimSpace(tokenUUID))
	if err != nil {
		return err
	}
	if record.RevokedAt != nil {
		return nil
	}
	at = at.UTC()
	record.RevokedAt = &at
	record.UpdatedAt = time.Now().UTC()
	_, err = s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	return err
}

func (s *OrderStore) findByToken(ctx context.Context, tokenUUID string) (*orderRecord, error) {
	if tokenUUID == "" {
		return nil, core.NewBadInputError("sqlstore: token uuid is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("token_uuid", "=", tokenUUID),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewOrderNotFoundError(tokenUUID)
		}
		return nil, err
	}
	if len(records) == 0 {
		return nil, core.NewOrderNotFoundError(tokenUUID)
	}
	return records[0], nil
}
