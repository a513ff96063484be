package shopagent

import (
	"time"

	"github.com/daily-harvest/dh-shop-agent/core"
	"github.com/daily-harvest/dh-shop-agent/shopify"
	sqlstore "github.com/daily-harvest/dh-shop-agent/store/sql"
	"github.com/uptrace/bun"
)

// SQLStoreFactory builds a repository factory for hosts that wire the
// persistence client through service options.
func SQLStoreFactory(opts ...sqlstore.RepositoryFactoryOption) *sqlstore.RepositoryFactory {
	return sqlstore.NewRepositoryFactory(opts...)
}

// SQLStores builds every store directly from a bun handle.
func SQLStores(db *bun.DB, opts ...sqlstore.RepositoryFactoryOption) (core.StoreProvider, error) {
	factory, err := sqlstore.NewRepositoryFactoryFromDB(db, opts...)
	if err != nil {
		return nil, err
	}
	return factory.BuildStores(nil)
}

// MemoryVerifierStore keeps PKCE verifiers in process memory, for tests and
// single-node hosts that do not persist the authorize/callback window.
func MemoryVerifierStore(ttl time.Duration) core.VerifierStore {
	return core.NewMemoryVerifierStore(ttl)
}

// MyshopifyDomainValidator enforces canonical *.myshopify.com shop domains
// on session writes and lookups.
func MyshopifyDomainValidator() core.ShopDomainValidator {
	return shopify.NewDomainValidator()
}
