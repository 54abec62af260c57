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

// PendingAuthorizationStore tracks in-flight authorizations until the
// reconciler settles them. Enqueue is idempotent on authorization_uuid
// so a redelivered webhook never doubles a record.
type PendingAuthorizationStore struct {
	db   *bun.DB
	repo repository.Repository[*pendingAuthorizationRecord]
}

func NewPendingAuthorizationStore(db *bun.DB) (*PendingAuthorizationStore, error) {
	if db == nil {
		return nil, core.NewBadInputError("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*pendingAuthorizationRecord](db, pendingAuthorizationHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, core.NewInternalError("sqlstore: invalid pending authorization repository wiring: " + err.Error())
		}
	}
	return &PendingAuthorizationStore{db: db, repo: repo}, nil
}

// Enqueue records an authorization awaiting settlement. The boolean
// reports whether a new row was written; a replayed authorization_uuid
// returns the existing record unchanged.
func (s *PendingAuthorizationStore) Enqueue(ctx context.Context, record core.AuthorizeOrder) (core.AuthorizeOrder, bool, error) {
	if s == nil || s.repo == nil {
		return core.AuthorizeOrder{}, false, core.NewInternalError("sqlstore: pending authorization store is not configured")
	}
	authorizationUUID := strings.TrimSpace(record.AuthorizationUUID)
	if authorizationUUID == "" {
		return core.AuthorizeOrder{}, false, core.NewBadInputError("sqlstore: authorization uuid is required")
	}
	if strings.TrimSpace(record.TokenUUID) == "" {
		return core.AuthorizeOrder{}, false, core.NewBadInputError("sqlstore: token uuid is required")
	}

	existing, err := s.findByAuthorization(ctx, authorizationUUID)
	if err != nil {
		return core.AuthorizeOrder{}, false, err
	}
	if existing != nil {
		return existing.toDomain(), false, nil
	}

	row := newPendingAuthorizationRecord(record, time.Now().UTC())
	row.ID = uuid.NewString()
	row.IsConfirmed = false
	row.StatusCode = nil
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return core.AuthorizeOrder{}, false, err
	}
	return created.toDomain(), true, nil
}

// PendingAuthorizations returns unsettled records oldest first.
func (s *PendingAuthorizationStore) PendingAuthorizations(ctx context.Context) ([]core.AuthorizeOrder, error) {
	if s == nil || s.db == nil {
		return nil, core.NewInternalError("sqlstore: pending authorization store is not configured")
	}
	var records []*pendingAuthorizationRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("is_confirmed = ?", false).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	out := make([]core.AuthorizeOrder, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// MarkConfirmed retires a record from the pending set with the status
// code the network reported on settlement.
func (s *PendingAuthorizationStore) MarkConfirmed(ctx context.Context, authorizationUUID, statusCode string) error {
	return s.settle(ctx, authorizationUUID, statusCode)
}

// MarkFailed retires a record from the pending set with the terminal
// failure code.
func (s *PendingAuthorizationStore) MarkFailed(ctx context.Context, authorizationUUID, statusCode string) error {
	return s.settle(ctx, authorizationUUID, statusCode)
}

func (s *PendingAuthorizationStore) settle(ctx context.Context, authorizationUUID, statusCode string) error {
	if s == nil || s.repo == nil {
		return core.NewInternalError("sqlstore: pending authorization store is not configured")
	}
	record, err := s.findByAuthorization(ctx, strings.TrimSpace(authorizationUUID))
	if err != nil {
		return err
	}
	if record == nil {
		return core.NewOrderNotFoundError(authorizationUUID)
	}
	if record.IsConfirmed {
		return nil
	}
	statusCode = strings.TrimSpace(statusCode)
	record.IsConfirmed = true
	record.StatusCode = &statusCode
	record.UpdatedAt = time.Now().UTC()
	_, err = s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	return err
}

// CountAuthorizations reports how many authorizations exist for a token,
// settled or not. Revoked and failed attempts still consume the order's
// reusability budget.
func (s *PendingAuthorizationStore) CountAuthorizations(ctx context.Context, tokenUUID string) (core.ReuseCount, error) {
	if s == nil || s.db == nil {
		return core.ReuseUnknown(), core.NewInternalError("sqlstore: pending authorization store is not configured")
	}
	tokenUUID = strings.TrimSpace(tokenUUID)
	if tokenUUID == "" {
		return core.ReuseUnknown(), core.NewBadInputError("sqlstore: token uuid is required")
	}
	count, err := s.db.NewSelect().
		Model((*pendingAuthorizationRecord)(nil)).
		Where("token_uuid = ?", tokenUUID).
		Count(ctx)
	if err != nil {
		return core.ReuseUnknown(), err
	}
	return core.ReuseCountOf(count), nil
}

func (s *PendingAuthorizationStore) findByAuthorization(ctx context.Context, authorizationUUID string) (*pendingAuthorizationRecord, error) {
	if authorizationUUID == "" {
		return nil, core.NewBadInputError("sqlstore: authorization uuid is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("authorization_uuid", "=", authorizationUUID),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}
