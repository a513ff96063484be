package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service fronts the four stores with input validation, cross-store
// lifecycle rules, structured logging, and uniform error mapping. Secrets
// (verifiers, access tokens) never reach log fields.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	verifierStore     VerifierStore
	tokenStore        TokenStore
	sessionStore      SessionStore
	conversationStore ConversationStore
	shopValidator     ShopDomainValidator
	retention         *RetentionSweeper
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	VerifierStore     VerifierStore
	TokenStore        TokenStore
	SessionStore      SessionStore
	ConversationStore ConversationStore
	ShopValidator     ShopDomainValidator
	Retention         RetentionRunner
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("shop-agent", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("shop-agent"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time {
			return time.Now().UTC()
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	missingStore := builder.verifierStore == nil || builder.tokenStore == nil ||
		builder.sessionStore == nil || builder.conversationStore == nil
	if missingStore && builder.repositoryFactory != nil {
		storeProvider, buildErr := resolveStoreProvider(builder.repositoryFactory, builder.persistenceClient)
		if buildErr != nil {
			return nil, mapBuildError(builder.errorMapper, buildErr)
		}
		if storeProvider != nil {
			if builder.verifierStore == nil {
				builder.verifierStore = storeProvider.VerifierStore()
			}
			if builder.tokenStore == nil {
				builder.tokenStore = storeProvider.TokenStore()
			}
			if builder.sessionStore == nil {
				builder.sessionStore = storeProvider.SessionStore()
			}
			if builder.conversationStore == nil {
				builder.conversationStore = storeProvider.ConversationStore()
			}
		}
	}
	if builder.verifierStore == nil {
		builder.verifierStore = NewMemoryVerifierStore(finalConfig.Verifier.TTL)
	}

	service := &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		verifierStore:     builder.verifierStore,
		tokenStore:        builder.tokenStore,
		sessionStore:      builder.sessionStore,
		conversationStore: builder.conversationStore,
		shopValidator:     builder.shopValidator,
		now:               builder.now,
	}

	sweeper, sweepErr := NewRetentionSweeper(
		finalConfig.Retention,
		RetentionStores{
			Verifiers: builder.verifierStore,
			Tokens:    builder.tokenStore,
			Sessions:  builder.sessionStore,
		},
		WithRetentionLogger(logger),
		WithRetentionClock(builder.now),
	)
	if sweepErr != nil {
		return nil, mapBuildError(builder.errorMapper, sweepErr)
	}
	service.retention = sweeper

	return service, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func resolveStoreProvider(factory any, persistenceClient any) (StoreProvider, error) {
	switch typed := factory.(type) {
	case RepositoryStoreFactory:
		return typed.BuildStores(persistenceClient)
	case StoreProvider:
		return typed, nil
	default:
		return nil, fmt.Errorf("core: repository factory does not provide stores")
	}
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		VerifierStore:     s.verifierStore,
		TokenStore:        s.tokenStore,
		SessionStore:      s.sessionStore,
		ConversationStore: s.conversationStore,
		ShopValidator:     s.shopValidator,
		Retention:         s.retention,
	}
}

// StoreVerifier persists a freshly minted PKCE verifier under its state
// correlator. The state must be unique per authorization attempt.
func (s *Service) StoreVerifier(ctx context.Context, state string, verifier string) (record CodeVerifier, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"state": state}
	defer func() {
		s.observeOperation(ctx, startedAt, "store_verifier", err, fields)
	}()

	if s == nil || s.verifierStore == nil {
		err = s.mapError(fmt.Errorf("core: verifier store is not configured"))
		return CodeVerifier{}, err
	}
	state = strings.TrimSpace(state)
	if state == "" {
		err = s.mapError(NewBadInputError("core: oauth state is required"))
		return CodeVerifier{}, err
	}
	if strings.TrimSpace(verifier) == "" {
		err = s.mapError(NewBadInputError("core: code verifier is required"))
		return CodeVerifier{}, err
	}

	record, err = s.verifierStore.Store(ctx, state, verifier)
	if err != nil {
		err = s.mapError(err)
		return CodeVerifier{}, err
	}
	return record, nil
}

// ConsumeVerifier retrieves and destroys the verifier for state in one
// atomic step. Absent, consumed, and expired all read as not found.
func (s *Service) ConsumeVerifier(ctx context.Context, state string) (record CodeVerifier, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"state": state}
	defer func() {
		s.observeOperation(ctx, startedAt, "consume_verifier", err, fields)
	}()

	if s == nil || s.verifierStore == nil {
		err = s.mapError(fmt.Errorf("core: verifier store is not configured"))
		return CodeVerifier{}, err
	}
	state = strings.TrimSpace(state)
	if state == "" {
		err = s.mapError(NewBadInputError("core: oauth state is required"))
		return CodeVerifier{}, err
	}

	record, err = s.verifierStore.Consume(ctx, state)
	if err != nil {
		err = s.mapError(err)
		return CodeVerifier{}, err
	}
	return record, nil
}

// UpsertCustomerToken writes the conversation's token, creating the owning
// conversation first so the binding always lands on a live row.
func (s *Service) UpsertCustomerToken(ctx context.Context, in UpsertCustomerTokenInput) (token CustomerToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"conversation_id": in.ConversationID}
	defer func() {
		s.observeOperation(ctx, startedAt, "upsert_customer_token", err, fields)
	}()

	if s == nil || s.tokenStore == nil || s.conversationStore == nil {
		err = s.mapError(fmt.Errorf("core: token and conversation stores are not configured"))
		return CustomerToken{}, err
	}
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	if in.ConversationID == "" {
		err = s.mapError(NewBadInputError("core: conversation id is required"))
		return CustomerToken{}, err
	}
	if strings.TrimSpace(in.AccessToken) == "" {
		err = s.mapError(NewBadInputError("core: access token is required"))
		return CustomerToken{}, err
	}
	if in.ExpiresAt.IsZero() {
		err = s.mapError(NewBadInputError("core: token expiry is required"))
		return CustomerToken{}, err
	}

	if _, err = s.conversationStore.Ensure(ctx, in.ConversationID); err != nil {
		err = s.mapError(err)
		return CustomerToken{}, err
	}
	token, err = s.tokenStore.Upsert(ctx, in)
	if err != nil {
		err = s.mapError(err)
		return CustomerToken{}, err
	}
	return token, nil
}

// CustomerToken returns the conversation's live token. Expired rows read as
// not found without being deleted.
func (s *Service) CustomerToken(ctx context.Context, conversationID string) (token CustomerToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"conversation_id": conversationID}
	defer func() {
		s.observeOperation(ctx, startedAt, "get_customer_token", err, fields)
	}()

	if s == nil || s.tokenStore == nil {
		err = s.mapError(fmt.Errorf("core: token store is not configured"))
		return CustomerToken{}, err
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		err = s.mapError(NewBadInputError("core: conversation id is required"))
		return CustomerToken{}, err
	}

	token, err = s.tokenStore.Get(ctx, conversationID)
	if err != nil {
		err = s.mapError(err)
		return CustomerToken{}, err
	}
	return token, nil
}

func (s *Service) StoreSession(ctx context.Context, session Session) (stored Session, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_id": session.ID, "shop": session.Shop}
	defer func() {
		s.observeOperation(ctx, startedAt, "store_session", err, fields)
	}()

	if s == nil || s.sessionStore == nil {
		err = s.mapError(fmt.Errorf("core: session store is not configured"))
		return Session{}, err
	}
	if err = session.Validate(); err != nil {
		err = s.mapError(NewBadInputError(err.Error()))
		return Session{}, err
	}
	if err = s.validateShop(session.Shop); err != nil {
		err = s.mapError(err)
		return Session{}, err
	}

	stored, err = s.sessionStore.Store(ctx, session)
	if err != nil {
		err = s.mapError(err)
		return Session{}, err
	}
	return stored, nil
}

func (s *Service) LoadSession(ctx context.Context, id string) (session Session, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_id": id}
	defer func() {
		s.observeOperation(ctx, startedAt, "load_session", err, fields)
	}()

	if s == nil || s.sessionStore == nil {
		err = s.mapError(fmt.Errorf("core: session store is not configured"))
		return Session{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		err = s.mapError(NewBadInputError("core: session id is required"))
		return Session{}, err
	}

	session, err = s.sessionStore.Load(ctx, id)
	if err != nil {
		err = s.mapError(err)
		return Session{}, err
	}
	return session, nil
}

func (s *Service) DeleteSession(ctx context.Context, id string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_id": id}
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_session", err, fields)
	}()

	if s == nil || s.sessionStore == nil {
		err = s.mapError(fmt.Errorf("core: session store is not configured"))
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		err = s.mapError(NewBadInputError("core: session id is required"))
		return err
	}

	if err = s.sessionStore.Delete(ctx, id); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

// DeleteSessions removes each id in order. A failure stops the walk and is
// reported; sessions already deleted stay deleted.
func (s *Service) DeleteSessions(ctx context.Context, ids []string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_count": len(ids)}
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_sessions", err, fields)
	}()

	if s == nil || s.sessionStore == nil {
		err = s.mapError(fmt.Errorf("core: session store is not configured"))
		return err
	}

	if err = s.sessionStore.DeleteMany(ctx, ids); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

func (s *Service) SessionsByShop(ctx context.Context, shop string) (sessions []Session, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"shop": shop}
	defer func() {
		s.observeOperation(ctx, startedAt, "sessions_by_shop", err, fields)
	}()

	if s == nil || s.sessionStore == nil {
		err = s.mapError(fmt.Errorf("core: session store is not configured"))
		return nil, err
	}
	shop = strings.TrimSpace(shop)
	if shop == "" {
		err = s.mapError(NewBadInputError("core: shop is required"))
		return nil, err
	}
	if err = s.validateShop(shop); err != nil {
		err = s.mapError(err)
		return nil, err
	}

	sessions, err = s.sessionStore.FindByShop(ctx, shop)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return sessions, nil
}

// EnsureConversation creates the conversation when absent and always bumps
// its updatedAt, even for bare existence checks.
func (s *Service) EnsureConversation(ctx context.Context, conversationID string) (conversation Conversation, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"conversation_id": conversationID}
	defer func() {
		s.observeOperation(ctx, startedAt, "ensure_conversation", err, fields)
	}()

	if s == nil || s.conversationStore == nil {
		err = s.mapError(fmt.Errorf("core: conversation store is not configured"))
		return Conversation{}, err
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		err = s.mapError(NewBadInputError("core: conversation id is required"))
		return Conversation{}, err
	}

	conversation, err = s.conversationStore.Ensure(ctx, conversationID)
	if err != nil {
		err = s.mapError(err)
		return Conversation{}, err
	}
	return conversation, nil
}

func (s *Service) AppendMessage(ctx context.Context, in AppendMessageInput) (message Message, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"conversation_id": in.ConversationID, "role": string(in.Role)}
	defer func() {
		s.observeOperation(ctx, startedAt, "append_message", err, fields)
	}()

	if s == nil || s.conversationStore == nil {
		err = s.mapError(fmt.Errorf("core: conversation store is not configured"))
		return Message{}, err
	}
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	if in.ConversationID == "" {
		err = s.mapError(NewBadInputError("core: conversation id is required"))
		return Message{}, err
	}
	if err = in.Role.Validate(); err != nil {
		err = s.mapError(NewBadInputError(err.Error()))
		return Message{}, err
	}
	if strings.TrimSpace(in.Content) == "" {
		err = s.mapError(NewBadInputError("core: message content is required"))
		return Message{}, err
	}

	message, err = s.conversationStore.AppendMessage(ctx, in)
	if err != nil {
		err = s.mapError(err)
		return Message{}, err
	}
	return message, nil
}

func (s *Service) ConversationHistory(ctx context.Context, conversationID string) (messages []Message, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"conversation_id": conversationID}
	defer func() {
		s.observeOperation(ctx, startedAt, "conversation_history", err, fields)
	}()

	if s == nil || s.conversationStore == nil {
		err = s.mapError(fmt.Errorf("core: conversation store is not configured"))
		return nil, err
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		err = s.mapError(NewBadInputError("core: conversation id is required"))
		return nil, err
	}

	messages, err = s.conversationStore.History(ctx, conversationID)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return messages, nil
}

func (s *Service) SetAccountURL(ctx context.Context, conversationID string, url string) (record CustomerAccountURL, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"conversation_id": conversationID}
	defer func() {
		s.observeOperation(ctx, startedAt, "set_account_url", err, fields)
	}()

	if s == nil || s.conversationStore == nil {
		err = s.mapError(fmt.Errorf("core: conversation store is not configured"))
		return CustomerAccountURL{}, err
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		err = s.mapError(NewBadInputError("core: conversation id is required"))
		return CustomerAccountURL{}, err
	}
	if strings.TrimSpace(url) == "" {
		err = s.mapError(NewBadInputError("core: account url is required"))
		return CustomerAccountURL{}, err
	}

	record, err = s.conversationStore.SetAccountURL(ctx, conversationID, url)
	if err != nil {
		err = s.mapError(err)
		return CustomerAccountURL{}, err
	}
	return record, nil
}

func (s *Service) AccountURL(ctx context.Context, conversationID string) (url string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"conversation_id": conversationID}
	defer func() {
		s.observeOperation(ctx, startedAt, "get_account_url", err, fields)
	}()

	if s == nil || s.conversationStore == nil {
		err = s.mapError(fmt.Errorf("core: conversation store is not configured"))
		return "", err
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		err = s.mapError(NewBadInputError("core: conversation id is required"))
		return "", err
	}

	url, err = s.conversationStore.GetAccountURL(ctx, conversationID)
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	return url, nil
}

// DeleteConversation removes the conversation, its messages, and its
// account-URL binding. Tokens belong to the token store and are left for
// retention.
func (s *Service) DeleteConversation(ctx context.Context, conversationID string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"conversation_id": conversationID}
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_conversation", err, fields)
	}()

	if s == nil || s.conversationStore == nil {
		err = s.mapError(fmt.Errorf("core: conversation store is not configured"))
		return err
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		err = s.mapError(NewBadInputError("core: conversation id is required"))
		return err
	}

	if err = s.conversationStore.Delete(ctx, conversationID); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

// RunRetentionSweep purges expired verifier, token, and session rows once.
// It works regardless of Retention.Enabled, which only gates the ticker.
func (s *Service) RunRetentionSweep(ctx context.Context) (stats RetentionStats, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["purged_total"] = stats.Total()
		s.observeOperation(ctx, startedAt, "retention_sweep", err, fields)
	}()

	if s == nil || s.retention == nil {
		err = s.mapError(fmt.Errorf("core: retention sweeper is not configured"))
		return RetentionStats{}, err
	}

	stats, err = s.retention.RunOnce(ctx)
	if err != nil {
		err = s.mapError(err)
		return stats, err
	}
	return stats, nil
}

func (s *Service) validateShop(shop string) error {
	if s == nil || !s.config.Sessions.ValidateShopDomain || s.shopValidator == nil {
		return nil
	}
	if err := s.shopValidator.ValidateShopDomain(shop); err != nil {
		return NewBadInputError(err.Error())
	}
	return nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		if mapped := defaultErrorMapper(err); mapped != nil {
			return mapped
		}
		return err
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}
