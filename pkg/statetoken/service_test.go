package statetoken_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/statetoken"
)

const secret = "test-secret-with-enough-entropy"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newService(t *testing.T, opts ...statetoken.Option) (*statetoken.Service, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := statetoken.New(secret, append([]statetoken.Option{statetoken.WithClock(clk.Now)}, opts...)...)
	require.NoError(t, err)
	return svc, clk
}

func TestNew_RequiresSecret(t *testing.T) {
	for _, s := range []string{"", "   "} {
		_, err := statetoken.New(s)
		assert.ErrorIs(t, err, statetoken.ErrMissingSecret)
	}

	_, err := statetoken.NewFromConfig(statetoken.Config{})
	assert.ErrorIs(t, err, statetoken.ErrMissingSecret)
}

func TestSignVerify_RoundTrip(t *testing.T) {
	svc, _ := newService(t)
	id := uuid.New()

	tok, err := svc.Sign(id)
	require.NoError(t, err)

	got, err := svc.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = svc.Sign(uuid.Nil)
	assert.ErrorIs(t, err, statetoken.ErrInvalidTenant)
}

func TestSign_Format(t *testing.T) {
	svc, clk := newService(t)
	id := uuid.New()

	tok, err := svc.Sign(id)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 2)

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, id.String(), body["tenantId"])
	assert.EqualValues(t, clk.Now().UnixMilli(), body["iat"])
	assert.EqualValues(t, clk.Now().Add(10*time.Minute).UnixMilli(), body["exp"])

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, sig, 32)
}

func TestVerify_Expiry(t *testing.T) {
	svc, clk := newService(t)
	id := uuid.New()
	assert.Equal(t, statetoken.DefaultTTL, svc.TTL())

	tok, err := svc.Sign(id)
	require.NoError(t, err)

	clk.Advance(9 * time.Minute)
	got, err := svc.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	clk.Advance(2 * time.Minute)
	_, err = svc.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, statetoken.ErrInvalidState)
}

func TestVerify_CustomTTL(t *testing.T) {
	svc, clk := newService(t, statetoken.WithTTL(time.Minute))
	tok, err := svc.Sign(uuid.New())
	require.NoError(t, err)

	clk.Advance(61 * time.Second)
	_, err = svc.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, statetoken.ErrInvalidState)
}

func TestVerify_RejectsEverySingleByteChange(t *testing.T) {
	svc, _ := newService(t)
	tok, err := svc.Sign(uuid.New())
	require.NoError(t, err)

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_."
	for i := range len(tok) {
		for _, c := range []byte(alphabet) {
			if c == tok[i] {
				continue
			}
			tampered := tok[:i] + string(c) + tok[i+1:]
			_, err := svc.Verify(context.Background(), tampered)
			require.ErrorIs(t, err, statetoken.ErrInvalidState, "position %d replaced with %q", i, c)
		}
	}
}

func TestVerify_UniformError(t *testing.T) {
	svc, clk := newService(t)
	other, err := statetoken.New("another-secret")
	require.NoError(t, err)

	foreign, err := other.Sign(uuid.New())
	require.NoError(t, err)
	expired, err := svc.Sign(uuid.New())
	require.NoError(t, err)
	clk.Advance(time.Hour)

	missingFields := forge(t, svc, map[string]any{"tenantId": uuid.NewString()})

	inputs := map[string]string{
		"empty":          "",
		"no separator":   "abc",
		"empty payload":  ".abc",
		"empty sig":      "abc.",
		"three parts":    "a.b.c",
		"wrong key":      foreign,
		"expired":        expired,
		"missing fields": missingFields,
	}
	for name, in := range inputs {
		_, err := svc.Verify(context.Background(), in)
		assert.Equal(t, statetoken.ErrInvalidState, err, name)
	}
}

// forge pairs body with the signature of another genuine token.
func forge(t *testing.T, svc *statetoken.Service, body map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	tok, err := svc.Sign(uuid.New())
	require.NoError(t, err)
	_, sig, _ := strings.Cut(tok, ".")
	return base64.RawURLEncoding.EncodeToString(raw) + "." + sig
}

func TestVerify_SingleUse(t *testing.T) {
	svc, clk := newService(t, statetoken.WithReplayGuard(statetoken.NewMemoryReplayGuard()))
	id := uuid.New()

	tok, err := svc.Sign(id)
	require.NoError(t, err)

	got, err := svc.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = svc.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, statetoken.ErrInvalidState)

	// A fresh token for the same tenant is still accepted.
	clk.Advance(time.Millisecond)
	tok2, err := svc.Sign(id)
	require.NoError(t, err)
	require.NotEqual(t, tok, tok2)
	_, err = svc.Verify(context.Background(), tok2)
	assert.NoError(t, err)
}

type failingGuard struct{}

func (failingGuard) Consume(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

// recordingGuard accepts every key and remembers the ttl it was asked for.
type recordingGuard struct {
	mu   sync.Mutex
	ttls []time.Duration
}

func (g *recordingGuard) Consume(_ context.Context, _ string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ttls = append(g.ttls, ttl)
	return true, nil
}

func TestVerify_GuardTTLFollowsServiceClock(t *testing.T) {
	guard := &recordingGuard{}
	// The injected clock is years away from the wall clock.
	svc, clk := newService(t, statetoken.WithReplayGuard(guard))
	clk.now = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	tok, err := svc.Sign(uuid.New())
	require.NoError(t, err)
	clk.Advance(4 * time.Minute)

	_, err = svc.Verify(context.Background(), tok)
	require.NoError(t, err)
	require.Len(t, guard.ttls, 1)
	assert.Equal(t, 6*time.Minute, guard.ttls[0])
}

func TestVerify_GuardFailureIsInvalidState(t *testing.T) {
	svc, _ := newService(t, statetoken.WithReplayGuard(failingGuard{}))
	tok, err := svc.Sign(uuid.New())
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), tok)
	assert.Equal(t, statetoken.ErrInvalidState, err)
}

func TestNewFromConfig(t *testing.T) {
	svc, err := statetoken.NewFromConfig(statetoken.Config{Secret: secret, TTL: 5 * time.Minute, SingleUse: true})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, svc.TTL())

	tok, err := svc.Sign(uuid.New())
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), tok)
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, statetoken.ErrInvalidState)
}

func TestVerify_ConcurrentSingleUse(t *testing.T) {
	svc, _ := newService(t, statetoken.WithReplayGuard(statetoken.NewMemoryReplayGuard()))
	tok, err := svc.Sign(uuid.New())
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Verify(context.Background(), tok); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}
