package passport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/go-authgate/passport-local/passport"

var (
	// ErrUnknownStrategy is returned when no strategy is registered under a name.
	ErrUnknownStrategy = errors.New("passport: unknown authentication strategy")
	// ErrNoSerializer is returned by Login when no serializer is configured.
	ErrNoSerializer = errors.New("passport: failed to serialize user into session")
	// ErrNoDeserializer is returned when a session user cannot be restored.
	ErrNoDeserializer = errors.New("passport: failed to deserialize user out of session")
)

// SerializeFunc turns an authenticated user into the value kept in the session.
type SerializeFunc func(ctx context.Context, user any) (string, error)

// DeserializeFunc restores a user from its session value. Returning a nil user
// and nil error invalidates the session.
type DeserializeFunc func(ctx context.Context, id string) (any, error)

// Passport is a registry of named strategies.
type Passport struct {
	mu         sync.RWMutex
	strategies map[string]Strategy

	serialize   SerializeFunc
	deserialize DeserializeFunc
	sessionKey  string

	logger   *zap.Logger
	recorder Recorder
	tracer   trace.Tracer
}

// Option configures a Passport.
type Option func(*Passport)

// WithSerializer sets the function used by Login to store users in the session.
func WithSerializer(fn SerializeFunc) Option {
	return func(p *Passport) { p.serialize = fn }
}

// WithDeserializer sets the function used by the Session middleware.
func WithDeserializer(fn DeserializeFunc) Option {
	return func(p *Passport) { p.deserialize = fn }
}

// WithSessionKey overrides the session key holding the serialized user.
func WithSessionKey(key string) Option {
	return func(p *Passport) {
		if key != "" {
			p.sessionKey = key
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Passport) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(p *Passport) {
		if r != nil {
			p.recorder = r
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Passport) {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates an empty Passport.
func New(opts ...Option) *Passport {
	p := &Passport{
		strategies: make(map[string]Strategy),
		sessionKey: DefaultSessionKey,
		logger:     zap.NewNop(),
		recorder:   nopRecorder{},
		tracer:     otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Use registers s under its own name.
func (p *Passport) Use(s Strategy) *Passport {
	return p.UseAs(s.Name(), s)
}

// UseAs registers s under name, replacing any strategy already there.
func (p *Passport) UseAs(name string, s Strategy) *Passport {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strategies[name] = s
	return p
}

// Unuse removes the strategy registered under name.
func (p *Passport) Unuse(name string) *Passport {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.strategies, name)
	return p
}

// Strategy returns the strategy registered under name.
func (p *Passport) Strategy(name string) (Strategy, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.strategies[name]
	return s, ok
}

// Run executes the named strategy against req and returns its outcome.
func (p *Passport) Run(name string, req *Request, opts Options) (Outcome, error) {
	s, ok := p.Strategy(name)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}

	ctx, span := p.tracer.Start(req.Context(), "passport.authenticate",
		trace.WithAttributes(attribute.String("passport.strategy", name)))
	defer span.End()

	start := time.Now()
	out := s.Authenticate(req.WithContext(ctx), opts)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.String("passport.outcome", out.Kind.String()))
	if out.Kind == KindError {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, "authentication error")
	}
	p.recorder.RecordOutcome(name, out.Kind, elapsed)

	switch out.Kind {
	case KindError:
		p.logger.Error("authentication error",
			zap.String("strategy", name), zap.Error(out.Err), zap.Duration("elapsed", elapsed))
	case KindFailure:
		p.logger.Info("authentication failed",
			zap.String("strategy", name),
			zap.String("message", out.Info.Message()),
			zap.Int("status", out.Status))
	default:
		p.logger.Debug("authentication succeeded",
			zap.String("strategy", name), zap.Duration("elapsed", elapsed))
	}

	return out, nil
}
