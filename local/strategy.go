// Package local implements a passport strategy that authenticates requests
// carrying a username and password, typically submitted through an HTML login
// form or a JSON body.
//
// The strategy only extracts the credentials. Deciding whether they identify a
// user is left to an application-supplied verify callback:
//
//	s, err := local.New(func(ctx context.Context, username, password string, done local.DoneFunc) {
//		user, err := users.FindByUsername(ctx, username)
//		if err != nil {
//			done(err, nil, nil)
//			return
//		}
//		if user == nil || !user.CheckPassword(password) {
//			done(nil, nil, passport.Info{"message": "Incorrect username or password."})
//			return
//		}
//		done(nil, user, nil)
//	})
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"sync"

	"github.com/go-authgate/passport-local/params"
	"github.com/go-authgate/passport-local/passport"

	"go.uber.org/zap"
)

const (
	DefaultName              = "local"
	DefaultUsernameField     = "username"
	DefaultPasswordField     = "password"
	DefaultBadRequestMessage = "Missing credentials"
)

// DoneFunc completes a verification. Exactly one call is honoured:
//   - err != nil reports an error,
//   - a nil (or false) user rejects the credentials, optionally with info,
//   - otherwise user is authenticated, optionally with info.
type DoneFunc func(err error, user any, info passport.Info)

// VerifyFunc checks a username and password and reports through done.
type VerifyFunc func(ctx context.Context, username, password string, done DoneFunc)

// VerifyWithRequestFunc is the PassReqToCallback form of VerifyFunc.
type VerifyWithRequestFunc func(req *passport.Request, username, password string, done DoneFunc)

// Config is the construction-time configuration of a Strategy.
type Config struct {
	// Name defaults to "local".
	Name string
	// UsernameField and PasswordField name the request fields holding the
	// credentials; bracket notation ("user[username]") addresses nested
	// fields.
	UsernameField string
	PasswordField string
	// PassReqToCallback selects VerifyWithRequest instead of Verify.
	PassReqToCallback bool

	Verify            VerifyFunc
	VerifyWithRequest VerifyWithRequestFunc

	Logger *zap.Logger
}

// Option adjusts a Config.
type Option func(*Config)

func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

func WithUsernameField(field string) Option {
	return func(c *Config) { c.UsernameField = field }
}

func WithPasswordField(field string) Option {
	return func(c *Config) { c.PasswordField = field }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Strategy authenticates requests by username and password. Its configuration
// is fixed at construction, so one Strategy serves concurrent requests.
type Strategy struct {
	name              string
	usernameField     string
	passwordField     string
	passReqToCallback bool
	verify            VerifyFunc
	verifyWithRequest VerifyWithRequestFunc
	logger            *zap.Logger
}

var _ passport.Strategy = (*Strategy)(nil)

// New creates a strategy whose verify callback receives the credentials.
func New(verify VerifyFunc, opts ...Option) (*Strategy, error) {
	cfg := Config{Verify: verify}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewFromConfig(cfg)
}

// NewWithRequest creates a strategy whose verify callback also receives the
// request, i.e. with PassReqToCallback enabled.
func NewWithRequest(verify VerifyWithRequestFunc, opts ...Option) (*Strategy, error) {
	cfg := Config{VerifyWithRequest: verify, PassReqToCallback: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewFromConfig(cfg)
}

// NewFromConfig validates cfg and creates a strategy.
func NewFromConfig(cfg Config) (*Strategy, error) {
	switch {
	case cfg.Verify == nil && cfg.VerifyWithRequest == nil:
		return nil, ErrVerifyRequired
	case cfg.PassReqToCallback && cfg.VerifyWithRequest == nil:
		return nil, fmt.Errorf("%w: PassReqToCallback needs a VerifyWithRequestFunc", ErrVerifyMismatch)
	case !cfg.PassReqToCallback && cfg.Verify == nil:
		return nil, fmt.Errorf("%w: a VerifyWithRequestFunc needs PassReqToCallback", ErrVerifyMismatch)
	}

	s := &Strategy{
		name:              cfg.Name,
		usernameField:     cfg.UsernameField,
		passwordField:     cfg.PasswordField,
		passReqToCallback: cfg.PassReqToCallback,
		verify:            cfg.Verify,
		verifyWithRequest: cfg.VerifyWithRequest,
		logger:            cfg.Logger,
	}
	if s.name == "" {
		s.name = DefaultName
	}
	if s.usernameField == "" {
		s.usernameField = DefaultUsernameField
	}
	if s.passwordField == "" {
		s.passwordField = DefaultPasswordField
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// Must panics if err is non-nil. It is meant for package-level setup.
func Must(s *Strategy, err error) *Strategy {
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the registration name, "local" unless configured otherwise.
func (s *Strategy) Name() string { return s.name }

func (s *Strategy) UsernameField() string { return s.usernameField }

func (s *Strategy) PasswordField() string { return s.passwordField }

func (s *Strategy) PassReqToCallback() bool { return s.passReqToCallback }

// Authenticate extracts the credentials from req, body first then query, and
// hands them to the verify callback. Requests without a usable username or
// password fail with status 400 and never reach the callback.
func (s *Strategy) Authenticate(req *passport.Request, opts passport.Options) passport.Outcome {
	username, ok := credential(req, s.usernameField)
	if !ok {
		return badRequest(opts)
	}
	password, ok := credential(req, s.passwordField)
	if !ok {
		return badRequest(opts)
	}
	return s.run(req, username, password)
}

func badRequest(opts passport.Options) passport.Outcome {
	msg := opts.BadRequestMessage
	if msg == "" {
		msg = DefaultBadRequestMessage
	}
	return passport.Fail(passport.Info{"message": msg}, http.StatusBadRequest)
}

// run invokes the verify callback once and waits for the first signal: a
// done call, a panic from the callback body, or cancellation of the request
// context. Anything after the first signal is dropped.
func (s *Strategy) run(req *passport.Request, username, password string) passport.Outcome {
	ctx := req.Context()
	results := make(chan passport.Outcome, 1)

	var once sync.Once
	signal := func(out passport.Outcome) bool {
		sent := false
		once.Do(func() {
			results <- out
			sent = true
		})
		return sent
	}

	done := func(err error, user any, info passport.Info) {
		var out passport.Outcome
		switch {
		case err != nil:
			out = passport.Error(err)
		case absent(user):
			out = passport.Fail(info, 0)
		default:
			out = passport.Success(user, info)
		}
		if !signal(out) {
			s.logger.Debug("dropped extra verify completion",
				zap.String("strategy", s.name), zap.String("kind", out.Kind.String()))
		}
	}

	s.invoke(ctx, req, username, password, done, signal)

	select {
	case out := <-results:
		return out
	case <-ctx.Done():
		signal(passport.Error(ctx.Err()))
		return <-results
	}
}

func (s *Strategy) invoke(
	ctx context.Context,
	req *passport.Request,
	username, password string,
	done DoneFunc,
	signal func(passport.Outcome) bool,
) {
	defer func() {
		if r := recover(); r != nil {
			if !signal(passport.Error(recovered(r))) {
				s.logger.Warn("verify callback panicked after completing",
					zap.String("strategy", s.name), zap.Any("panic", r))
			}
		}
	}()

	if s.passReqToCallback {
		s.verifyWithRequest(req, username, password, done)
		return
	}
	s.verify(ctx, username, password, done)
}

// credential resolves field against the body, then the query. Values that
// resolve but are falsy (empty string, false, zero) also fall through to the
// query.
func credential(req *passport.Request, field string) (string, bool) {
	if req == nil {
		return "", false
	}
	v, ok := params.Lookup(req.Body, field)
	if !ok || falsy(v) {
		v, ok = params.Lookup(req.Query, field)
	}
	if !ok || falsy(v) || params.IsComposite(v) {
		return "", false
	}
	if str, isStr := v.(string); isStr {
		return str, true
	}
	return fmt.Sprint(v), true
}

func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		f, err := strconv.ParseFloat(string(x), 64)
		return err == nil && f == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return rv.IsZero() || (rv.CanFloat() && rv.Float() != rv.Float())
	}
	return false
}

func absent(user any) bool {
	if user == nil {
		return true
	}
	if b, ok := user.(bool); ok {
		return !b
	}
	rv := reflect.ValueOf(user)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
