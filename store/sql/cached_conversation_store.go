package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/daily-harvest/dh-shop-agent/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const (
	conversationHistoryCacheKeyPrefix = "dh-shop-agent::conversation_history::v1"
	customerAccountURLCacheKeyPrefix  = "dh-shop-agent::customer_account_url::v1"
)

// CachedConversationStore serves history and account-URL reads through a
// cache. Writes go to the base store first and then drop the affected keys.
type CachedConversationStore struct {
	base  core.ConversationStore
	cache repositorycache.CacheService
}

func NewCachedConversationStore(
	base core.ConversationStore,
	cacheService repositorycache.CacheService,
) (*CachedConversationStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base conversation store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: conversation cache service is required")
	}
	return &CachedConversationStore{base: base, cache: cacheService}, nil
}

// ConversationHistoryCacheKey returns the deterministic cache key contract
// for history reads: dh-shop-agent::conversation_history::v1::<conversation_id>
// with the id segment URL-path escaped.
func ConversationHistoryCacheKey(conversationID string) (string, error) {
	trimmed := strings.TrimSpace(conversationID)
	if trimmed == "" {
		return "", core.NewBadInputError("sqlstore: conversation id is required")
	}
	return strings.Join([]string{conversationHistoryCacheKeyPrefix, url.PathEscape(trimmed)}, "::"), nil
}

// CustomerAccountURLCacheKey returns the deterministic cache key contract
// for account-URL reads: dh-shop-agent::customer_account_url::v1::<conversation_id>.
func CustomerAccountURLCacheKey(conversationID string) (string, error) {
	trimmed := strings.TrimSpace(conversationID)
	if trimmed == "" {
		return "", core.NewBadInputError("sqlstore: conversation id is required")
	}
	return strings.Join([]string{customerAccountURLCacheKeyPrefix, url.PathEscape(trimmed)}, "::"), nil
}

func (s *CachedConversationStore) Ensure(ctx context.Context, conversationID string) (core.Conversation, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Conversation{}, fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	return s.base.Ensure(ctx, conversationID)
}

func (s *CachedConversationStore) AppendMessage(ctx context.Context, in core.AppendMessageInput) (core.Message, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Message{}, fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	message, err := s.base.AppendMessage(ctx, in)
	if err != nil {
		return core.Message{}, err
	}
	if err := s.dropHistory(ctx, message.ConversationID); err != nil {
		return core.Message{}, err
	}
	return message, nil
}

func (s *CachedConversationStore) History(ctx context.Context, conversationID string) ([]core.Message, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	cacheKey, err := ConversationHistoryCacheKey(conversationID)
	if err != nil {
		return nil, err
	}

	history, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) ([]core.Message, error) {
		return s.base.History(ctx, conversationID)
	})
	if err != nil {
		return nil, err
	}
	return cloneMessages(history), nil
}

func (s *CachedConversationStore) SetAccountURL(ctx context.Context, conversationID string, accountURL string) (core.CustomerAccountURL, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.CustomerAccountURL{}, fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	record, err := s.base.SetAccountURL(ctx, conversationID, accountURL)
	if err != nil {
		return core.CustomerAccountURL{}, err
	}
	if err := s.dropAccountURL(ctx, record.ConversationID); err != nil {
		return core.CustomerAccountURL{}, err
	}
	return record, nil
}

func (s *CachedConversationStore) GetAccountURL(ctx context.Context, conversationID string) (string, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	cacheKey, err := CustomerAccountURLCacheKey(conversationID)
	if err != nil {
		return "", err
	}

	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (string, error) {
		return s.base.GetAccountURL(ctx, conversationID)
	})
}

func (s *CachedConversationStore) Delete(ctx context.Context, conversationID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached conversation store is not configured")
	}
	if err := s.base.Delete(ctx, conversationID); err != nil {
		return err
	}
	if err := s.dropHistory(ctx, conversationID); err != nil {
		return err
	}
	return s.dropAccountURL(ctx, conversationID)
}

func (s *CachedConversationStore) dropHistory(ctx context.Context, conversationID string) error {
	cacheKey, err := ConversationHistoryCacheKey(conversationID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedConversationStore) dropAccountURL(ctx context.Context, conversationID string) error {
	cacheKey, err := CustomerAccountURLCacheKey(conversationID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneMessages(input []core.Message) []core.Message {
	if input == nil {
		return nil
	}
	out := make([]core.Message, len(input))
	copy(out, input)
	return out
}

var _ core.ConversationStore = (*CachedConversationStore)(nil)
