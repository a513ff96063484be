package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/daily-harvest/dh-shop-agent/core"
)

// SessionStore keeps one row per auth session id with a secondary lookup by
// shop. Offline sessions carry no expiry and are never purged.
type SessionStore struct {
	db   *bun.DB
	repo repository.Repository[*sessionRecord]
}

func NewSessionStore(db *bun.DB) (*SessionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*sessionRecord](db, sessionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid session repository wiring: %w", err)
		}
	}
	return &SessionStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *SessionStore) Store(ctx context.Context, session core.Session) (core.Session, error) {
	if s == nil || s.db == nil {
		return core.Session{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	if err := session.Validate(); err != nil {
		return core.Session{}, core.NewBadInputError(err.Error())
	}

	record, err := newSessionRecord(session)
	if err != nil {
		return core.Session{}, core.NewBadInputError(err.Error())
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, findErr := findSessionTx(ctx, tx, session.ID)
		if findErr != nil {
			return findErr
		}
		if existing == nil {
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				if !isUniqueViolation(insertErr) {
					return core.NewStorageFaultError("sqlstore: insert session failed", insertErr)
				}
				// Lost a race with another writer for the same id; replace.
				if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", session.ID).Exec(ctx); updateErr != nil {
					return core.NewStorageFaultError("sqlstore: replace session failed", updateErr)
				}
			}
			return nil
		}
		if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", session.ID).Exec(ctx); updateErr != nil {
			return core.NewStorageFaultError("sqlstore: replace session failed", updateErr)
		}
		return nil
	})
	if err != nil {
		return core.Session{}, err
	}
	return record.toDomain()
}

func (s *SessionStore) Load(ctx context.Context, id string) (core.Session, error) {
	if s == nil || s.db == nil {
		return core.Session{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Session{}, fmt.Errorf("sqlstore: session id is required")
	}

	record := &sessionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Session{}, core.NewNotFoundError(fmt.Sprintf("sqlstore: session %q not found", id))
		}
		return core.Session{}, core.NewStorageFaultError("sqlstore: read session failed", err)
	}
	session, err := record.toDomain()
	if err != nil {
		return core.Session{}, core.NewStorageFaultError("sqlstore: decode session failed", err)
	}
	return session, nil
}

// Delete removes the row when present. Deleting an absent id is not an
// error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: session id is required")
	}

	_, err := s.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return core.NewStorageFaultError("sqlstore: delete session failed", err)
	}
	return nil
}

// DeleteMany removes each id in order and stops at the first failure.
// Sessions deleted before the failure stay deleted.
func (s *SessionStore) DeleteMany(ctx context.Context, ids []string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session store is not configured")
	}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return fmt.Errorf("sqlstore: delete session %q: %w", id, err)
		}
	}
	return nil
}

func (s *SessionStore) FindByShop(ctx context.Context, shop string) ([]core.Session, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: session store is not configured")
	}
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, fmt.Errorf("sqlstore: shop is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("shop", "=", shop),
		repository.OrderBy("id ASC"),
	)
	if err != nil {
		return nil, core.NewStorageFaultError("sqlstore: list sessions by shop failed", err)
	}

	out := make([]core.Session, 0, len(records))
	for _, record := range records {
		session, decodeErr := record.toDomain()
		if decodeErr != nil {
			return nil, core.NewStorageFaultError("sqlstore: decode session failed", decodeErr)
		}
		out = append(out, session)
	}
	return out, nil
}

// PurgeExpired removes sessions whose expiry has passed. Rows with a NULL
// expiry are permanent and never match.
func (s *SessionStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: session store is not configured")
	}
	res, err := s.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("expires IS NOT NULL").
		Where("expires <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, core.NewStorageFaultError("sqlstore: purge expired sessions failed", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func findSessionTx(ctx context.Context, tx bun.Tx, id string) (*sessionRecord, error) {
	record := &sessionRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, core.NewStorageFaultError("sqlstore: read session failed", err)
	}
	return record, nil
}
