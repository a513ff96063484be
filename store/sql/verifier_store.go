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

// VerifierStore keeps single-use PKCE verifiers keyed by oauth state. A row
// lives from Store until first Consume or natural expiry.
type VerifierStore struct {
	db   *bun.DB
	repo repository.Repository[*codeVerifierRecord]
	ttl  time.Duration
	now  func() time.Time
}

type VerifierStoreOption func(*VerifierStore)

func WithVerifierTTL(ttl time.Duration) VerifierStoreOption {
	return func(s *VerifierStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithVerifierClock(now func() time.Time) VerifierStoreOption {
	return func(s *VerifierStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewVerifierStore(db *bun.DB, opts ...VerifierStoreOption) (*VerifierStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*codeVerifierRecord](db, codeVerifierHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid code verifier repository wiring: %w", err)
		}
	}

	store := &VerifierStore{
		db:   db,
		repo: repo,
		ttl:  core.DefaultConfig().Verifier.TTL,
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

func (s *VerifierStore) Store(ctx context.Context, state string, verifier string) (core.CodeVerifier, error) {
	if s == nil || s.repo == nil {
		return core.CodeVerifier{}, fmt.Errorf("sqlstore: verifier store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return core.CodeVerifier{}, fmt.Errorf("sqlstore: oauth state is required")
	}
	if strings.TrimSpace(verifier) == "" {
		return core.CodeVerifier{}, fmt.Errorf("sqlstore: code verifier is required")
	}

	record := &codeVerifierRecord{
		ID:        uuid.NewString(),
		State:     state,
		Verifier:  verifier,
		ExpiresAt: s.now().Add(s.ttl),
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return core.CodeVerifier{}, core.NewConflictError(
				fmt.Sprintf("sqlstore: a code verifier already exists for state %q", state),
			)
		}
		return core.CodeVerifier{}, core.NewStorageFaultError("sqlstore: store code verifier failed", err)
	}
	return created.toDomain(), nil
}

// Consume retrieves and destroys the verifier for state in one transaction.
// The DELETE re-checks the expiry predicate by id, so of two racing consumers
// exactly one sees a row deleted; the other reports not found. Expired rows
// also read as not found and are left for the retention sweeper.
func (s *VerifierStore) Consume(ctx context.Context, state string) (core.CodeVerifier, error) {
	if s == nil || s.db == nil {
		return core.CodeVerifier{}, fmt.Errorf("sqlstore: verifier store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return core.CodeVerifier{}, fmt.Errorf("sqlstore: oauth state is required")
	}

	now := s.now()
	var consumed core.CodeVerifier
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &codeVerifierRecord{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.state = ?", state).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return core.NewNotFoundError("sqlstore: code verifier not found")
			}
			return core.NewStorageFaultError("sqlstore: read code verifier failed", err)
		}

		res, err := tx.NewDelete().
			Model((*codeVerifierRecord)(nil)).
			Where("id = ?", record.ID).
			Where("expires_at > ?", now).
			Exec(ctx)
		if err != nil {
			return core.NewStorageFaultError("sqlstore: consume code verifier failed", err)
		}
		affected, _ := res.RowsAffected()
		if affected != 1 {
			return core.NewNotFoundError("sqlstore: code verifier not found")
		}

		consumed = record.toDomain()
		return nil
	})
	if err != nil {
		return core.CodeVerifier{}, err
	}
	return consumed, nil
}

func (s *VerifierStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: verifier store is not configured")
	}
	res, err := s.db.NewDelete().
		Model((*codeVerifierRecord)(nil)).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, core.NewStorageFaultError("sqlstore: purge expired code verifiers failed", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
