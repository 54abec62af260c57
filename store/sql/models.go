package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-paytoken/core"
	"github.com/uptrace/bun"
)

type orderRecord struct {
	bun.BaseModel `bun:"table:payment_orders,alias:po"`

	ID          string     `bun:"id,pk"`
	TokenUUID   string     `bun:"token_uuid,notnull,unique"`
	UserID      string     `bun:"user_id,notnull"`
	Amount      int64      `bun:"amount,notnull"`
	StatusCode  string     `bun:"status_code"`
	Reusability int        `bun:"reusability,notnull"`
	RevokedAt   *time.Time `bun:"revoked_at,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *orderRecord) toDomain() core.Order {
	if r == nil {
		return core.Order{}
	}
	return core.Order{
		TokenUUID:   r.TokenUUID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		StatusCode:  r.StatusCode,
		Reusability: r.Reusability,
		RevokedAt:   r.RevokedAt,
	}
}

func newOrderRecord(order core.Order, now time.Time) *orderRecord {
	return &orderRecord{
		TokenUUID:   strings.TrimSpace(order.TokenUUID),
		UserID:      strings.TrimSpace(order.UserID),
		Amount:      order.Amount,
		StatusCode:  strings.TrimSpace(order.StatusCode),
		Reusability: order.Reusability,
		RevokedAt:   order.RevokedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type pendingAuthorizationRecord struct {
	bun.BaseModel `bun:"table:pending_authorizations,alias:pa"`

	ID                string    `bun:"id,pk"`
	AuthorizationUUID string    `bun:"authorization_uuid,notnull,unique"`
	TokenUUID         string    `bun:"token_uuid,notnull"`
	UserID            string    `bun:"user_id,notnull"`
	IsConfirmed       bool      `bun:"is_confirmed,notnull"`
	StatusCode        *string   `bun:"status_code,nullzero"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *pendingAuthorizationRecord) toDomain() core.AuthorizeOrder {
	if r == nil {
		return core.AuthorizeOrder{}
	}
	return core.AuthorizeOrder{
		AuthorizationUUID: r.AuthorizationUUID,
		TokenUUID:         r.TokenUUID,
		UserID:            r.UserID,
		IsConfirmed:       r.IsConfirmed,
		StatusCode:        r.StatusCode,
	}
}

func newPendingAuthorizationRecord(record core.AuthorizeOrder, now time.Time) *pendingAuthorizationRecord {
	return &pendingAuthorizationRecord{
		AuthorizationUUID: strings.TrimSpace(record.AuthorizationUUID),
		TokenUUID:         strings.TrimSpace(record.TokenUUID),
		UserID:            strings.TrimSpace(record.UserID),
		IsConfirmed:       record.IsConfirmed,
		StatusCode:        record.StatusCode,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
