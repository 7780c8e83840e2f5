package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/metrics"
	"github.com/MKhiriev/go-sync15/internal/utils"
	"github.com/MKhiriev/go-sync15/models"
)

const (
	retryAfterDefault = 10 * time.Second
	tokenserverSuffix = "1.0/sync/1.5"
)

// tokenFetchResult is a token plus the server time it was issued at.
type tokenFetchResult struct {
	token           models.TokenserverToken
	serverTimestamp models.ServerTimestamp
}

type tokenFetcher interface {
	fetchToken(ctx context.Context) (tokenFetchResult, error)
}

// tokenServerFetcher talks to the real token server.
type tokenServerFetcher struct {
	client      *utils.HTTPClient
	url         string
	accessToken string
	keyID       string
	now         func() time.Time
	metrics     *metrics.Metrics
	log         *logger.Logger
}

// fixupServerURL appends the sync 1.5 path when the configured URL does not
// already end with it.
func fixupServerURL(raw string) string {
	trimmed := strings.TrimRight(raw, "/")
	if strings.HasSuffix(trimmed, tokenserverSuffix) {
		return trimmed
	}
	return trimmed + "/" + tokenserverSuffix
}

func (f *tokenServerFetcher) fetchToken(ctx context.Context) (tokenFetchResult, error) {
	if exp, ok := utils.AccessTokenExpiry(f.accessToken); ok && !exp.After(f.now()) {
		f.log.Warn().Time("exp", exp).Msg("access token already expired, not asking the tokenserver")
		return tokenFetchResult{}, &TokenserverHTTPError{Status: http.StatusUnauthorized}
	}

	f.log.Debug().Str("url", f.url).Msg("fetching token")
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+f.accessToken).
		SetHeader("X-KeyID", f.keyID).
		Get(f.url)
	if err != nil {
		f.metrics.ObserveRequest(http.MethodGet, 0)
		return tokenFetchResult{}, &RequestError{Op: "token", Err: err}
	}
	f.metrics.ObserveRequest(http.MethodGet, resp.StatusCode())

	if !resp.IsSuccess() {
		f.log.Warn().Int("status", resp.StatusCode()).Msg("non-success status when fetching token")
		if ra := resp.Header().Get("Retry-After"); ra != "" {
			wait := retryAfterDefault
			if secs, perr := strconv.ParseFloat(ra, 64); perr == nil && secs >= 0 {
				wait = time.Duration(secs * float64(time.Second))
			}
			return tokenFetchResult{}, &BackoffError{Until: f.now().Add(wait)}
		}
		return tokenFetchResult{}, &TokenserverHTTPError{Status: resp.StatusCode()}
	}

	var token models.TokenserverToken
	if err = json.Unmarshal(resp.Body(), &token); err != nil {
		return tokenFetchResult{}, fmt.Errorf("decode token: %w", err)
	}
	tsHeader := resp.Header().Get("X-Timestamp")
	if tsHeader == "" {
		return tokenFetchResult{}, ErrMissingServerTimestamp
	}
	ts, err := models.ParseServerTimestamp(tsHeader)
	if err != nil {
		return tokenFetchResult{}, fmt.Errorf("%w: %v", ErrMissingServerTimestamp, err)
	}
	return tokenFetchResult{token: token, serverTimestamp: ts}, nil
}

// tokenContext is a usable token. skew is server time minus local time at
// the moment the token was fetched.
type tokenContext struct {
	token       models.TokenserverToken
	credentials hawkCredentials
	validUntil  time.Time
	skew        time.Duration
}

func (c *tokenContext) isValid(now time.Time) bool {
	return now.Before(c.validUntil)
}

func (c *tokenContext) authorization(method, rawURL string, now time.Time) (string, error) {
	req, err := newHawkRequest(method, rawURL)
	if err != nil {
		return "", err
	}
	return req.header(c.credentials, now.Add(c.skew))
}

type tokenStateKind int

const (
	tokenNone tokenStateKind = iota
	tokenReady
	tokenFailed
	tokenBackoff
	tokenNodeReassigned
)

// tokenState is what the provider knows. prevEndpoint survives failures so
// a later node change is still detected.
type tokenState struct {
	kind         tokenStateKind
	ctx          *tokenContext
	err          error
	until        time.Time
	prevEndpoint *string
}

// TokenProvider fetches Sync tokens on demand and keeps them until they
// expire. Once the storage node changes it refuses to hand out tokens and
// every call fails with [ErrStorageReset].
type TokenProvider struct {
	mu      sync.Mutex
	fetcher tokenFetcher
	now     func() time.Time
	state   tokenState
	log     *logger.Logger
}

// NewTokenProvider creates a provider for the token server at rawURL.
func NewTokenProvider(rawURL, accessToken, keyID string, client *utils.HTTPClient,
	m *metrics.Metrics, log *logger.Logger) *TokenProvider {
	f := &tokenServerFetcher{
		client:      client,
		url:         fixupServerURL(rawURL),
		accessToken: accessToken,
		keyID:       keyID,
		now:         time.Now,
		metrics:     m,
		log:         log,
	}
	return newTokenProvider(f, time.Now, log)
}

func newTokenProvider(f tokenFetcher, now func() time.Time, log *logger.Logger) *TokenProvider {
	return &TokenProvider{fetcher: f, now: now, log: log}
}

func (p *TokenProvider) fetchContext(ctx context.Context) (*tokenContext, error) {
	res, err := p.fetcher.fetchToken(ctx)
	if err != nil {
		return nil, err
	}
	local := p.now()
	return &tokenContext{
		token:       res.token,
		credentials: hawkCredentials{ID: res.token.ID, Key: []byte(res.token.Key)},
		validUntil:  local.Add(res.token.Lifetime()),
		skew:        res.serverTimestamp.Time().Sub(local),
	}, nil
}

func (p *TokenProvider) fetchState(ctx context.Context, prev *string) tokenState {
	tc, err := p.fetchContext(ctx)
	if err != nil {
		if until, ok := BackoffUntil(err); ok {
			return tokenState{kind: tokenBackoff, until: until, prevEndpoint: prev}
		}
		return tokenState{kind: tokenFailed, err: err, prevEndpoint: prev}
	}
	if prev != nil && *prev != tc.token.APIEndpoint {
		p.log.Warn().Str("from", *prev).Str("to", tc.token.APIEndpoint).Msg("api_endpoint changed")
		return tokenState{kind: tokenNodeReassigned}
	}
	endpoint := tc.token.APIEndpoint
	return tokenState{kind: tokenReady, ctx: tc, prevEndpoint: &endpoint}
}

// advance returns the next state, or false when the current one stays.
func (p *TokenProvider) advance(ctx context.Context) (tokenState, bool) {
	s := p.state
	switch s.kind {
	case tokenNone:
		return p.fetchState(ctx, nil), true
	case tokenFailed:
		return p.fetchState(ctx, s.prevEndpoint), true
	case tokenReady:
		if s.ctx.isValid(p.now()) {
			return s, false
		}
		return p.fetchState(ctx, s.prevEndpoint), true
	case tokenBackoff:
		if p.now().Before(s.until) {
			p.log.Debug().Time("until", s.until).Msg("enforcing existing backoff")
			return s, false
		}
		return p.fetchState(ctx, s.prevEndpoint), true
	default:
		return s, false
	}
}

func (p *TokenProvider) withToken(ctx context.Context, fn func(*tokenContext) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if next, changed := p.advance(ctx); changed {
		p.state = next
	}

	switch p.state.kind {
	case tokenReady:
		return fn(p.state.ctx)
	case tokenFailed:
		return p.state.err
	case tokenBackoff:
		return &BackoffError{Until: p.state.until}
	case tokenNodeReassigned:
		return ErrStorageReset
	default:
		return fmt.Errorf("token provider stuck without a token")
	}
}

// APIEndpoint returns the storage node URL without a trailing slash.
func (p *TokenProvider) APIEndpoint(ctx context.Context) (string, error) {
	var endpoint string
	err := p.withToken(ctx, func(tc *tokenContext) error {
		endpoint = strings.TrimRight(tc.token.APIEndpoint, "/")
		return nil
	})
	return endpoint, err
}

// HashedUID returns the hashed account uid, used as the telemetry uid.
func (p *TokenProvider) HashedUID(ctx context.Context) (string, error) {
	var uid string
	err := p.withToken(ctx, func(tc *tokenContext) error {
		uid = tc.token.HashedFxaUID
		return nil
	})
	return uid, err
}

// Authorization returns a Hawk Authorization header for the request.
func (p *TokenProvider) Authorization(ctx context.Context, method, rawURL string) (string, error) {
	var header string
	err := p.withToken(ctx, func(tc *tokenContext) error {
		h, err := tc.authorization(method, rawURL, p.now())
		header = h
		return err
	})
	return header, err
}
