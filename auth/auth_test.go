package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-qrmi/core"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fixedClock) Sleep(context.Context, time.Duration) error { return nil }

func unsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestExpiryFromJWT(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	got, err := ExpiryFromJWT(unsignedJWT(t, map[string]any{"exp": exp.Unix()}))
	if err != nil {
		t.Fatalf("numeric exp: %v", err)
	}
	if got == nil || !got.Equal(exp) {
		t.Fatalf("expected %s, got %v", exp, got)
	}

	got, err = ExpiryFromJWT(unsignedJWT(t, map[string]any{"exp": fmt.Sprint(exp.Unix())}))
	if err != nil || got == nil || !got.Equal(exp) {
		t.Fatalf("string exp: got %v err %v", got, err)
	}

	got, err = ExpiryFromJWT(unsignedJWT(t, map[string]any{"sub": "user"}))
	if err != nil || got != nil {
		t.Fatalf("expected no expiry without exp claim, got %v err %v", got, err)
	}

	for _, opaque := range []string{"", "plain-api-key", "a.b"} {
		got, err = ExpiryFromJWT(opaque)
		if err != nil || got != nil {
			t.Fatalf("expected no expiry for %q, got %v err %v", opaque, got, err)
		}
	}

	if _, err := ExpiryFromJWT("e30.!!!not-base64!!!.sig"); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestFingerprintIsStableAndOpaque(t *testing.T) {
	first := Fingerprint("secret-token")
	if first == "" || first != Fingerprint("secret-token") {
		t.Fatalf("expected stable fingerprint, got %q", first)
	}
	if strings.Contains(first, "secret") {
		t.Fatalf("fingerprint leaks token: %q", first)
	}
	if first == Fingerprint("other-token") {
		t.Fatalf("expected distinct fingerprints")
	}
	if Fingerprint("  ") != "" {
		t.Fatalf("expected empty fingerprint for blank token")
	}
}

func TestStaticTokenSourceRejectsExpiredJWT(t *testing.T) {
	clock := newFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	token := unsignedJWT(t, map[string]any{"exp": clock.Now().Add(time.Minute).Unix()})

	source, err := NewStaticTokenSource(token, clock.Now)
	if err != nil {
		t.Fatalf("new static source: %v", err)
	}
	got, err := source.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if got.Value != token || got.Source != SourceStatic {
		t.Fatalf("unexpected token %s", got)
	}

	clock.Advance(2 * time.Minute)
	if _, err := source.Token(context.Background(), true); !core.IsKind(err, core.ErrorAuthExpired) {
		t.Fatalf("expected auth expired, got %v", err)
	}

	if _, err := NewStaticTokenSource("  ", nil); !core.IsKind(err, core.ErrorCredentialsMissing) {
		t.Fatalf("expected credentials missing, got %v", err)
	}
}

func TestPasswordGrantSourcePostsRealmForm(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	access := unsignedJWT(t, map[string]any{"exp": exp.Unix()})

	var form map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/oauth/token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = map[string]string{}
		for key := range r.PostForm {
			form[key] = r.PostForm.Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer"}`, access)
	}))
	defer server.Close()

	source, err := NewPasswordGrantSource(PasswordGrantConfig{
		Endpoint: server.URL + "/oauth/token",
		Username: "alice",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	token, err := source.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token.Value != access || token.ExpiresAt == nil || !token.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected token %s", token)
	}
	if form["grant_type"] != passwordGrantType || form["realm"] != passwordGrantRealm {
		t.Fatalf("unexpected grant form %v", form)
	}
	if form["username"] != "alice" || form["password"] != "hunter2" || form["audience"] != passwordGrantAudience {
		t.Fatalf("unexpected credential form %v", form)
	}
}

func TestPasswordGrantSourceDefaultsEndpointScheme(t *testing.T) {
	source, err := NewPasswordGrantSource(PasswordGrantConfig{Username: "alice", Password: "x"})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if source.Endpoint() != "https://"+DefaultPasswordGrantEndpoint {
		t.Fatalf("unexpected default endpoint %q", source.Endpoint())
	}

	source, err = NewPasswordGrantSource(PasswordGrantConfig{Endpoint: "auth.example.test/token", Username: "alice", Password: "x"})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if source.Endpoint() != "https://auth.example.test/token" {
		t.Fatalf("expected https prefix, got %q", source.Endpoint())
	}
}

func TestIAMSourceShortensLifetime(t *testing.T) {
	clock := newFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != iamGrantType || r.PostForm.Get("apikey") != "key-1" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"iam-token","expires_in":3600}`))
	}))
	defer server.Close()

	source, err := NewIAMSource(IAMConfig{Endpoint: server.URL, APIKey: "key-1", Now: clock.Now})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	token, err := source.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	want := clock.Now().Add(54 * time.Minute)
	if token.ExpiresAt == nil || !token.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, token)
	}
}

func TestTokenEndpointFailuresAreClassified(t *testing.T) {
	status := http.StatusServiceUnavailable
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	source, err := NewIAMSource(IAMConfig{Endpoint: server.URL, APIKey: "key"})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if _, err := source.Token(context.Background(), false); !core.IsKind(err, core.ErrorTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}

	status = http.StatusUnauthorized
	_, err = source.Token(context.Background(), false)
	var rejection *rejectionError
	if !errors.As(err, &rejection) || rejection.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected rejection, got %v", err)
	}
}

type scriptedSource struct {
	mu     sync.Mutex
	tokens []core.AuthToken
	errs   []error
	calls  int
	forced int
}

func (s *scriptedSource) Token(_ context.Context, force bool) (core.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if force {
		s.forced++
	}
	if idx < len(s.errs) && s.errs[idx] != nil {
		return core.AuthToken{}, s.errs[idx]
	}
	if idx < len(s.tokens) {
		return s.tokens[idx], nil
	}
	return s.tokens[len(s.tokens)-1], nil
}

func TestManagerRefreshesWithinMargin(t *testing.T) {
	clock := newFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	first := clock.Now().Add(10 * time.Minute)
	second := clock.Now().Add(time.Hour)
	source := &scriptedSource{tokens: []core.AuthToken{
		{Value: "one", ExpiresAt: &first},
		{Value: "two", ExpiresAt: &second},
	}}
	manager, err := NewManager(source, WithClock(clock), WithRefreshMargin(time.Minute), WithName("qpu"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := manager.EnsureValid(context.Background())
	if err != nil || token.Value != "one" {
		t.Fatalf("expected first token, got %s err %v", token, err)
	}
	token, err = manager.Current(context.Background())
	if err != nil || token.Value != "one" || source.calls != 1 {
		t.Fatalf("expected cached token, got %s calls %d err %v", token, source.calls, err)
	}

	clock.Advance(9*time.Minute + 30*time.Second)
	token, err = manager.EnsureValid(context.Background())
	if err != nil || token.Value != "two" {
		t.Fatalf("expected refresh inside margin, got %s err %v", token, err)
	}
	if manager.Refreshes() != 2 {
		t.Fatalf("expected 2 refreshes, got %d", manager.Refreshes())
	}
}

func TestManagerUsesInitialTokenUntilExpiry(t *testing.T) {
	clock := newFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	initialExpiry := clock.Now().Add(5 * time.Minute)
	source := &scriptedSource{tokens: []core.AuthToken{{Value: "fresh"}}}
	manager, err := NewManager(source,
		WithClock(clock),
		WithRefreshMargin(time.Minute),
		WithInitialToken(core.AuthToken{Value: "seed", ExpiresAt: &initialExpiry}),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, _ := manager.EnsureValid(context.Background())
	if token.Value != "seed" || source.calls != 0 {
		t.Fatalf("expected seeded token, got %s", token)
	}
	clock.Advance(5 * time.Minute)
	token, _ = manager.EnsureValid(context.Background())
	if token.Value != "fresh" || source.calls != 1 {
		t.Fatalf("expected source token after expiry, got %s", token)
	}
}

func TestManagerForceRefreshBypassesCache(t *testing.T) {
	source := &scriptedSource{tokens: []core.AuthToken{{Value: "a"}, {Value: "b"}}}
	manager, err := NewManager(source)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := manager.EnsureValid(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	token, err := manager.ForceRefresh(context.Background())
	if err != nil || token.Value != "b" || source.forced != 1 {
		t.Fatalf("expected forced refresh, got %s forced %d err %v", token, source.forced, err)
	}
}

func TestManagerClassifiesRejections(t *testing.T) {
	reject := rejected(http.StatusUnauthorized, "https://auth.test")

	source := &scriptedSource{errs: []error{reject}, tokens: []core.AuthToken{{Value: "x"}}}
	manager, _ := NewManager(source)
	if _, err := manager.EnsureValid(context.Background()); !core.IsKind(err, core.ErrorAuthRejected) {
		t.Fatalf("expected auth rejected on first use, got %v", err)
	}

	source = &scriptedSource{errs: []error{nil, reject}, tokens: []core.AuthToken{{Value: "x"}}}
	manager, _ = NewManager(source)
	if _, err := manager.EnsureValid(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if _, err := manager.ForceRefresh(context.Background()); !core.IsKind(err, core.ErrorAuthExpired) {
		t.Fatalf("expected auth expired after prior success, got %v", err)
	}
}

func TestManagerWithExpiredStaticToken(t *testing.T) {
	clock := newFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	static, err := NewStaticTokenSource(unsignedJWT(t, map[string]any{"exp": clock.Now().Add(-time.Second).Unix()}), clock.Now)
	if err != nil {
		t.Fatalf("new static: %v", err)
	}
	manager, _ := NewManager(static, WithClock(clock))
	if _, err := manager.EnsureValid(context.Background()); !core.IsKind(err, core.ErrorAuthExpired) {
		t.Fatalf("expected auth expired, got %v", err)
	}
}
