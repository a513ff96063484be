package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/daily-harvest/dh-shop-agent/core"
)

// TokenStore keeps at most one customer access token per conversation.
// Writes replace in place; reads filter by expiry without deleting.
type TokenStore struct {
	db   *bun.DB
	repo repository.Repository[*customerTokenRecord]
	now  func() time.Time
}

type TokenStoreOption func(*TokenStore)

func WithTokenClock(now func() time.Time) TokenStoreOption {
	return func(s *TokenStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewTokenStore(db *bun.DB, opts ...TokenStoreOption) (*TokenStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*customerTokenRecord](db, customerTokenHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid customer token repository wiring: %w", err)
		}
	}

	store := &TokenStore{
		db:   db,
		repo: repo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(store)
	}
	return store, nil
}

func (s *TokenStore) Upsert(ctx context.Context, in core.UpsertCustomerTokenInput) (core.CustomerToken, error) {
	if s == nil || s.db == nil {
		return core.CustomerToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	if in.ConversationID == "" {
		return core.CustomerToken{}, fmt.Errorf("sqlstore: conversation id is required")
	}
	if strings.TrimSpace(in.AccessToken) == "" {
		return core.CustomerToken{}, fmt.Errorf("sqlstore: access token is required")
	}
	now := s.now()

	var out core.CustomerToken
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findCustomerTokenTx(ctx, tx, in.ConversationID)
		if err != nil {
			return err
		}
		if record == nil {
			record = newCustomerTokenRecord(in, uuid.NewString(), now)
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				if !isUniqueViolation(insertErr) {
					return core.NewStorageFaultError("sqlstore: insert customer token failed", insertErr)
				}
				record, err = findCustomerTokenTx(ctx, tx, in.ConversationID)
				if err != nil {
					return err
				}
				if record == nil {
					return core.NewConflictError(
						fmt.Sprintf("sqlstore: concurrent token write for conversation %q", in.ConversationID),
					)
				}
			} else {
				out = record.toDomain()
				return nil
			}
		}

		record.AccessToken = in.AccessToken
		record.ExpiresAt = in.ExpiresAt
		record.UpdatedAt = now
		if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updateErr != nil {
			return core.NewStorageFaultError("sqlstore: update customer token failed", updateErr)
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.CustomerToken{}, err
	}
	return out, nil
}

// Get returns the live token only. Expiry is a read filter, not a consuming
// action; an expired row stays put so a later Upsert can refresh it.
func (s *TokenStore) Get(ctx context.Context, conversationID string) (core.CustomerToken, error) {
	if s == nil || s.repo == nil {
		return core.CustomerToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return core.CustomerToken{}, fmt.Errorf("sqlstore: conversation id is required")
	}

	now := s.now()
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("conversation_id", "=", conversationID),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.expires_at > ?", now)
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.CustomerToken{}, core.NewStorageFaultError("sqlstore: read customer token failed", err)
	}
	if len(records) == 0 {
		return core.CustomerToken{}, core.NewNotFoundError(
			fmt.Sprintf("sqlstore: customer token not found for conversation %q", conversationID),
		)
	}
	return records[0].toDomain(), nil
}

func (s *TokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: token store is not configured")
	}
	res, err := s.db.NewDelete().
		Model((*customerTokenRecord)(nil)).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, core.NewStorageFaultError("sqlstore: purge expired customer tokens failed", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func findCustomerTokenTx(ctx context.Context, tx bun.Tx, conversationID string) (*customerTokenRecord, error) {
	record := &customerTokenRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.conversation_id = ?", strings.TrimSpace(conversationID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, core.NewStorageFaultError("sqlstore: read customer token failed", err)
	}
	return record, nil
}
