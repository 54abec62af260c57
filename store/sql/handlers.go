package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func orderHandlers() repository.ModelHandlers[*orderRecord] {
	return repository.ModelHandlers[*orderRecord]{
		NewRecord: func() *orderRecord {
			return &orderRecord{}
		},
		GetID: func(record *orderRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *orderRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *orderRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func pendingAuthorizationHandlers() repository.ModelHandlers[*pendingAuthorizationRecord] {
	return repository.ModelHandlers[*pendingAuthorizationRecord]{
		NewRecord: func() *pendingAuthorizationRecord {
			return &pendingAuthorizationRecord{}
		},
		GetID: func(record *pendingAuthorizationRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *pendingAuthorizationRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *pendingAuthorizationRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
