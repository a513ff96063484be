package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/daily-harvest/dh-shop-agent/core"
)

// ConversationStore owns conversations, their append-only message history,
// and the customer account URL binding. Every write path touches the
// conversation row first so updated_at tracks the latest activity.
type ConversationStore struct {
	db          *bun.DB
	messageRepo repository.Repository[*messageRecord]
	now         func() time.Time
}

type ConversationStoreOption func(*ConversationStore)

func WithConversationClock(now func() time.Time) ConversationStoreOption {
	return func(s *ConversationStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewConversationStore(db *bun.DB, opts ...ConversationStoreOption) (*ConversationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	messageRepo := repository.NewRepository[*messageRecord](db, messageHandlers())
	if validator, ok := messageRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid message repository wiring: %w", err)
		}
	}
	store := &ConversationStore{
		db:          db,
		messageRepo: messageRepo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Ensure creates the conversation row when missing and bumps updated_at
// when it already exists. Both outcomes return the current row.
func (s *ConversationStore) Ensure(ctx context.Context, conversationID string) (core.Conversation, error) {
	if s == nil || s.db == nil {
		return core.Conversation{}, fmt.Errorf("sqlstore: conversation store is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return core.Conversation{}, fmt.Errorf("sqlstore: conversation id is required")
	}

	var record *conversationRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ensured, ensureErr := ensureConversationTx(ctx, tx, conversationID, s.now().UTC())
		if ensureErr != nil {
			return ensureErr
		}
		record = ensured
		return nil
	})
	if err != nil {
		return core.Conversation{}, err
	}
	return record.toDomain(), nil
}

func (s *ConversationStore) AppendMessage(ctx context.Context, in core.AppendMessageInput) (core.Message, error) {
	if s == nil || s.db == nil {
		return core.Message{}, fmt.Errorf("sqlstore: conversation store is not configured")
	}
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return core.Message{}, fmt.Errorf("sqlstore: conversation id is required")
	}
	if strings.TrimSpace(string(in.Role)) == "" {
		return core.Message{}, fmt.Errorf("sqlstore: message role is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return core.Message{}, fmt.Errorf("sqlstore: message content is required")
	}

	record := newMessageRecord(in, uuid.NewString(), s.now().UTC())
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, ensureErr := ensureConversationTx(ctx, tx, conversationID, record.CreatedAt); ensureErr != nil {
			return ensureErr
		}
		if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
			return core.NewStorageFaultError("sqlstore: insert message failed", insertErr)
		}
		return nil
	})
	if err != nil {
		return core.Message{}, err
	}
	return record.toDomain(), nil
}

// History returns messages oldest first. An unknown conversation reads as an
// empty history, not an error.
func (s *ConversationStore) History(ctx context.Context, conversationID string) ([]core.Message, error) {
	if s == nil || s.messageRepo == nil {
		return nil, fmt.Errorf("sqlstore: conversation store is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, fmt.Errorf("sqlstore: conversation id is required")
	}

	records, _, err := s.messageRepo.List(ctx,
		repository.SelectBy("conversation_id", "=", conversationID),
		repository.OrderBy("created_at ASC"),
		repository.OrderBy("id ASC"),
	)
	if err != nil {
		return nil, core.NewStorageFaultError("sqlstore: list messages failed", err)
	}

	out := make([]core.Message, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *ConversationStore) SetAccountURL(ctx context.Context, conversationID string, url string) (core.CustomerAccountURL, error) {
	if s == nil || s.db == nil {
		return core.CustomerAccountURL{}, fmt.Errorf("sqlstore: conversation store is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return core.CustomerAccountURL{}, fmt.Errorf("sqlstore: conversation id is required")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return core.CustomerAccountURL{}, fmt.Errorf("sqlstore: customer account url is required")
	}

	record := &customerAccountURLRecord{
		ConversationID: conversationID,
		URL:            url,
		UpdatedAt:      s.now().UTC(),
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, ensureErr := ensureConversationTx(ctx, tx, conversationID, record.UpdatedAt); ensureErr != nil {
			return ensureErr
		}
		existing, findErr := findAccountURLTx(ctx, tx, conversationID)
		if findErr != nil {
			return findErr
		}
		if existing == nil {
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				if !isUniqueViolation(insertErr) {
					return core.NewStorageFaultError("sqlstore: insert customer account url failed", insertErr)
				}
				// The binding appeared between the read and the insert, so
				// overwrite it like any existing row.
				if _, updateErr := tx.NewUpdate().Model(record).Where("conversation_id = ?", conversationID).Exec(ctx); updateErr != nil {
					return core.NewStorageFaultError("sqlstore: replace customer account url failed", updateErr)
				}
			}
			return nil
		}
		if _, updateErr := tx.NewUpdate().Model(record).Where("conversation_id = ?", conversationID).Exec(ctx); updateErr != nil {
			return core.NewStorageFaultError("sqlstore: replace customer account url failed", updateErr)
		}
		return nil
	})
	if err != nil {
		return core.CustomerAccountURL{}, err
	}
	return record.toDomain(), nil
}

func (s *ConversationStore) GetAccountURL(ctx context.Context, conversationID string) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("sqlstore: conversation store is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return "", fmt.Errorf("sqlstore: conversation id is required")
	}

	record := &customerAccountURLRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.conversation_id = ?", conversationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", core.NewNotFoundError(fmt.Sprintf("sqlstore: customer account url not found for conversation %q", conversationID))
		}
		return "", core.NewStorageFaultError("sqlstore: read customer account url failed", err)
	}
	return record.URL, nil
}

// Delete removes the conversation, its account URL binding, and its message
// history. Messages go through the FK cascade on the conversation row.
// Deleting an unknown conversation is not an error.
func (s *ConversationStore) Delete(ctx context.Context, conversationID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: conversation store is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return fmt.Errorf("sqlstore: conversation id is required")
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*customerAccountURLRecord)(nil)).
			Where("conversation_id = ?", conversationID).
			Exec(ctx); err != nil {
			return core.NewStorageFaultError("sqlstore: delete customer account url failed", err)
		}
		if _, err := tx.NewDelete().
			Model((*conversationRecord)(nil)).
			Where("id = ?", conversationID).
			Exec(ctx); err != nil {
			return core.NewStorageFaultError("sqlstore: delete conversation failed", err)
		}
		return nil
	})
}

func findAccountURLTx(ctx context.Context, tx bun.Tx, conversationID string) (*customerAccountURLRecord, error) {
	record := &customerAccountURLRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.conversation_id = ?", conversationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, core.NewStorageFaultError("sqlstore: read customer account url failed", err)
	}
	return record, nil
}

func ensureConversationTx(ctx context.Context, tx bun.Tx, conversationID string, now time.Time) (*conversationRecord, error) {
	existing := &conversationRecord{}
	err := tx.NewSelect().
		Model(existing).
		Where("?TableAlias.id = ?", conversationID).
		Limit(1).
		Scan(ctx)
	if err != nil && err != sql.ErrNoRows {
		return nil, core.NewStorageFaultError("sqlstore: read conversation failed", err)
	}

	if err == sql.ErrNoRows {
		created := &conversationRecord{ID: conversationID, CreatedAt: now, UpdatedAt: now}
		if _, insertErr := tx.NewInsert().Model(created).Exec(ctx); insertErr != nil {
			if !isUniqueViolation(insertErr) {
				return nil, core.NewStorageFaultError("sqlstore: insert conversation failed", insertErr)
			}
			// Another writer created the row between the read and the
			// insert. Fall through and bump it like any existing row.
		} else {
			return created, nil
		}
	}

	existing.UpdatedAt = now
	if _, updateErr := tx.NewUpdate().
		Model(existing).
		Column("updated_at").
		Where("id = ?", conversationID).
		Exec(ctx); updateErr != nil {
		return nil, core.NewStorageFaultError("sqlstore: touch conversation failed", updateErr)
	}
	if existing.CreatedAt.IsZero() {
		// The racing insert means the read predates the row. Re-read so the
		// caller sees the stored created_at.
		reread := &conversationRecord{}
		if rereadErr := tx.NewSelect().
			Model(reread).
			Where("?TableAlias.id = ?", conversationID).
			Limit(1).
			Scan(ctx); rereadErr != nil {
			return nil, core.NewStorageFaultError("sqlstore: read conversation failed", rereadErr)
		}
		reread.UpdatedAt = now
		return reread, nil
	}
	return existing, nil
}
