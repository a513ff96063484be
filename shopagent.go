package shopagent

import "github.com/daily-harvest/dh-shop-agent/core"

type Config = core.Config

type VerifierConfig = core.VerifierConfig
type SessionConfig = core.SessionConfig
type RetentionConfig = core.RetentionConfig
type CacheConfig = core.CacheConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type StoreProvider = core.StoreProvider
type VerifierStore = core.VerifierStore
type TokenStore = core.TokenStore
type SessionStore = core.SessionStore
type ConversationStore = core.ConversationStore
type ShopDomainValidator = core.ShopDomainValidator
type RetentionStores = core.RetentionStores
type RetentionSweeper = core.RetentionSweeper
type RetentionStats = core.RetentionStats

type CodeVerifier = core.CodeVerifier
type CustomerToken = core.CustomerToken
type Conversation = core.Conversation
type Message = core.Message
type MessageRole = core.MessageRole
type CustomerAccountURL = core.CustomerAccountURL
type Session = core.Session
type OnlineAccessInfo = core.OnlineAccessInfo
type AssociatedUser = core.AssociatedUser

type UpsertCustomerTokenInput = core.UpsertCustomerTokenInput
type AppendMessageInput = core.AppendMessageInput

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithPersistenceClient   = core.WithPersistenceClient
	WithRepositoryFactory   = core.WithRepositoryFactory
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithVerifierStore       = core.WithVerifierStore
	WithTokenStore          = core.WithTokenStore
	WithSessionStore        = core.WithSessionStore
	WithConversationStore   = core.WithConversationStore
	WithShopDomainValidator = core.WithShopDomainValidator
	WithClock               = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
