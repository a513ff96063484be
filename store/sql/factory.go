package sqlstore

import (
	"fmt"

	"github.com/daily-harvest/dh-shop-agent/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db           *bun.DB
	cacheService repositorycache.CacheService

	verifierStore       *VerifierStore
	tokenStore          *TokenStore
	sessionStore        *SessionStore
	conversationStore   *ConversationStore
	cachedConversations *CachedConversationStore
}

type RepositoryFactoryOption func(*RepositoryFactory)

// WithConversationCache wraps the conversation store in a read-through
// cache once stores are built. A nil service leaves the base store in place.
func WithConversationCache(cacheService repositorycache.CacheService) RepositoryFactoryOption {
	return func(f *RepositoryFactory) {
		if f == nil || cacheService == nil {
			return
		}
		f.cacheService = cacheService
	}
}

func NewRepositoryFactory(opts ...RepositoryFactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(factory)
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...RepositoryFactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...RepositoryFactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.verifierStore != nil && f.conversationStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) VerifierStore() core.VerifierStore {
	if f == nil {
		return nil
	}
	return f.verifierStore
}

func (f *RepositoryFactory) TokenStore() core.TokenStore {
	if f == nil {
		return nil
	}
	return f.tokenStore
}

func (f *RepositoryFactory) SessionStore() core.SessionStore {
	if f == nil {
		return nil
	}
	return f.sessionStore
}

func (f *RepositoryFactory) ConversationStore() core.ConversationStore {
	if f == nil {
		return nil
	}
	if f.cachedConversations != nil {
		return f.cachedConversations
	}
	return f.conversationStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	verifierStore, err := NewVerifierStore(f.db)
	if err != nil {
		return err
	}
	f.verifierStore = verifierStore

	tokenStore, err := NewTokenStore(f.db)
	if err != nil {
		return err
	}
	f.tokenStore = tokenStore

	sessionStore, err := NewSessionStore(f.db)
	if err != nil {
		return err
	}
	f.sessionStore = sessionStore

	conversationStore, err := NewConversationStore(f.db)
	if err != nil {
		return err
	}
	f.conversationStore = conversationStore

	if f.cacheService != nil {
		cached, err := NewCachedConversationStore(conversationStore, f.cacheService)
		if err != nil {
			return err
		}
		f.cachedConversations = cached
	}

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
