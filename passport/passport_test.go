package passport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeStrategy returns a fixed outcome and remembers what it was called with.
type fakeStrategy struct {
	name string
	out  Outcome

	mu    sync.Mutex
	calls int
	opts  Options
	ctx   context.Context
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Authenticate(req *Request, opts Options) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.opts = opts
	f.ctx = req.Context()
	return f.out
}

type recordedOutcome struct {
	strategy string
	kind     Kind
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recordedOutcome
}

func (r *fakeRecorder) RecordOutcome(strategy string, kind Kind, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedOutcome{strategy: strategy, kind: kind})
}

func TestPassport_Registry(t *testing.T) {
	p := New()
	local := &fakeStrategy{name: "local"}

	_, ok := p.Strategy("local")
	assert.False(t, ok)

	p.Use(local)
	s, ok := p.Strategy("local")
	require.True(t, ok)
	assert.Same(t, local, s)

	signup := &fakeStrategy{name: "local"}
	p.UseAs("local-signup", signup)
	s, ok = p.Strategy("local-signup")
	require.True(t, ok)
	assert.Same(t, signup, s)

	p.Unuse("local")
	_, ok = p.Strategy("local")
	assert.False(t, ok)
}

func TestPassport_Run_UnknownStrategy(t *testing.T) {
	p := New()

	_, err := p.Run("missing", &Request{}, Options{})

	require.Error(t, err)
	assert.True(t, IsUnknownStrategy(err))
	assert.Contains(t, err.Error(), "missing")
}

func TestPassport_Run(t *testing.T) {
	errDB := errors.New("db down")

	tests := []struct {
		name    string
		out     Outcome
		wantLog string
	}{
		{name: "success", out: Success("user-1", nil), wantLog: "authentication succeeded"},
		{name: "failure", out: Fail(Info{"message": "nope"}, 0), wantLog: "authentication failed"},
		{name: "error", out: Error(errDB), wantLog: "authentication error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			rec := &fakeRecorder{}
			p := New(
				WithLogger(zap.New(core)),
				WithRecorder(rec),
				WithTracerProvider(noop.NewTracerProvider()),
			)
			s := &fakeStrategy{name: "local", out: tt.out}
			p.Use(s)

			out, err := p.Run("local", &Request{}, Options{BadRequestMessage: "custom"})

			require.NoError(t, err)
			assert.Equal(t, tt.out, out)
			assert.Equal(t, 1, s.calls)
			assert.Equal(t, "custom", s.opts.BadRequestMessage)
			assert.NotNil(t, s.ctx)
			assert.Equal(t, []recordedOutcome{{strategy: "local", kind: tt.out.Kind}}, rec.seen)
			assert.Equal(t, 1, logs.FilterMessage(tt.wantLog).Len())
		})
	}
}

func TestPassport_Run_PropagatesContext(t *testing.T) {
	type ctxKey struct{}
	p := New()
	s := &fakeStrategy{name: "local", out: Success("u", nil)}
	p.Use(s)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	_, err := p.Run("local", (&Request{}).WithContext(ctx), Options{})

	require.NoError(t, err)
	assert.Equal(t, "value", s.ctx.Value(ctxKey{}))
}

func TestOptions_IgnoreNil(t *testing.T) {
	p := New(WithLogger(nil), WithRecorder(nil), WithTracerProvider(nil), WithSessionKey(""))

	assert.NotNil(t, p.logger)
	assert.NotNil(t, p.recorder)
	assert.NotNil(t, p.tracer)
	assert.Equal(t, DefaultSessionKey, p.sessionKey)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "failure", KindFailure.String())
	assert.Equal(t, "error", KindError.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestInfo_Message(t *testing.T) {
	assert.Equal(t, "", Info(nil).Message())
	assert.Equal(t, "", Info{"message": 42}.Message())
	assert.Equal(t, "hello", Info{"message": "hello"}.Message())
}

func TestOutcomeConstructors(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, Outcome{Kind: KindSuccess, User: "u", Info: Info{"a": 1}}, Success("u", Info{"a": 1}))
	assert.Equal(t, Outcome{Kind: KindFailure, Info: Info{"a": 1}, Status: 400}, Fail(Info{"a": 1}, 400))
	assert.Equal(t, Outcome{Kind: KindError, Err: err}, Error(err))
}
