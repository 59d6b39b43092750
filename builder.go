package greenauth

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mimigigabyte/greenauth/gateway"
	"github.com/mimigigabyte/greenauth/lockout"
	"github.com/mimigigabyte/greenauth/oauth"
	"github.com/mimigigabyte/greenauth/password"
	"github.com/mimigigabyte/greenauth/store"
	"github.com/mimigigabyte/greenauth/token"
)

// Builder defines a public type used by greenauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	db     *gorm.DB
	redis  *redis.Client

	sms        gateway.SMSSender
	email      gateway.EmailSender
	dupChecker DuplicateChecker
	auditSink  AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithDB describes the withdb operation and its observable behavior.
//
// WithDB does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithDB(db *gorm.DB) *Builder {
	b.db = db
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithSMSGateway describes the withsmsgateway operation and its observable behavior.
//
// WithSMSGateway does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSMSGateway(sender gateway.SMSSender) *Builder {
	b.sms = sender
	return b
}

// WithEmailGateway describes the withemailgateway operation and its observable behavior.
//
// WithEmailGateway does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEmailGateway(sender gateway.EmailSender) *Builder {
	b.email = sender
	return b
}

// WithDuplicateChecker describes the withduplicatechecker operation and its observable behavior.
//
// WithDuplicateChecker does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithDuplicateChecker(checker DuplicateChecker) *Builder {
	b.dupChecker = checker
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.db == nil {
		return nil, errors.New("database handle required")
	}
	if b.sms == nil && b.email == nil {
		return nil, errors.New("at least one code delivery gateway required")
	}

	oauthEnabled := cfg.OAuth.ClientID != ""
	if oauthEnabled && b.redis == nil {
		return nil, errors.New("OAuth requires a redis client for state storage")
	}

	engine := &Engine{
		config:     cfg,
		users:      store.NewUserStore(b.db),
		codes:      store.NewCodeStore(b.db),
		sms:        b.sms,
		email:      b.email,
		dupChecker: b.dupChecker,
		policy: lockout.Policy{
			MaxFailures:  cfg.Lockout.MaxFailures,
			LockDuration: cfg.Lockout.LockDuration,
		},
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	ph, err := password.New(password.Config{
		Cost: cfg.Password.Cost,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = ph

	tm, err := token.NewManager(token.Config{
		Secret:     cloneBytes(cfg.Token.Secret),
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		Issuer:     cfg.Token.Issuer,
		Leeway:     cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	if oauthEnabled {
		client, err := oauth.NewClient(oauth.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			AuthorizeURL: cfg.OAuth.AuthorizeURL,
			TokenURL:     cfg.OAuth.TokenURL,
			ProfileURL:   cfg.OAuth.ProfileURL,
			Timeout:      cfg.OAuth.Timeout,
		})
		if err != nil {
			return nil, err
		}
		engine.oauthClient = client
		engine.states = oauth.NewStateStore(b.redis, cfg.OAuth.StateTTL)
	}

	b.built = true

	return engine, nil
}
