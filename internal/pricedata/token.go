package pricedata

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"AlertEngine/pkg/config"
	xhttp "AlertEngine/pkg/http"
	"AlertEngine/pkg/logger"
)

const (
	tokenRefreshMargin = 60 * time.Second
	defaultTokenTTL    = 3600
)

var errEmptyToken = errors.New("token endpoint returned no access_token")

type tokenCtxKey struct{}

// WithToken attaches a caller-propagated bearer token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenCtxKey{}, token)
}

// TokenFromContext returns the propagated token, if any.
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenCtxKey{}).(string)
	return tok
}

// TokenSource yields a bearer token or "" when none is available.
type TokenSource interface {
	Token(ctx context.Context) string
}

// ServiceAccountTokenProvider obtains client-credentials tokens and caches
// them until shortly before expiry.
type ServiceAccountTokenProvider struct {
	client       *xhttp.Client
	tokenURL     string
	clientID     string
	clientSecret string
	audience     string
	scope        string
	log          *logger.Logger
	now          func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func NewServiceAccountTokenProvider(cfg *config.Config, log *logger.Logger) *ServiceAccountTokenProvider {
	auth := cfg.Price.Auth
	return &ServiceAccountTokenProvider{
		client: xhttp.NewClient(
			xhttp.WithConnectTimeout(cfg.Price.ConnectTimeout),
			xhttp.WithReadTimeout(cfg.Price.ReadTimeout),
			xhttp.WithTimeout(cfg.Price.ConnectTimeout+cfg.Price.ReadTimeout),
		),
		tokenURL:     strings.TrimSuffix(auth.Issuer, "/") + "/oauth/token",
		clientID:     auth.ClientID,
		clientSecret: auth.ClientSecret,
		audience:     auth.Audience,
		scope:        auth.Scope,
		log:          log,
		now:          time.Now,
	}
}

type clientCredentialsRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
	GrantType    string `json:"grant_type"`
	Scope        string `json:"scope"`
}

type clientCredentialsResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   *int64 `json:"expires_in"`
}

// Token returns a cached token, refreshing it under a lock when it expires
// within a minute. Failures are logged and yield "".
func (p *ServiceAccountTokenProvider) Token(ctx context.Context) string {
	if tok, ok := p.cached(); ok {
		return tok
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && p.expiresAt.After(p.now().Add(tokenRefreshMargin)) {
		return p.token
	}

	var res clientCredentialsResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     p.tokenURL,
		Headers: map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		Body: clientCredentialsRequest{
			ClientID:     p.clientID,
			ClientSecret: p.clientSecret,
			Audience:     p.audience,
			GrantType:    "client_credentials",
			Scope:        p.scope,
		},
	}, &res)
	if err != nil || res.AccessToken == "" {
		if err == nil {
			err = errEmptyToken
		}
		p.log.Warn("service-account-token-failed", logger.Error(err))
		return ""
	}

	ttl := int64(defaultTokenTTL)
	if res.ExpiresIn != nil {
		ttl = *res.ExpiresIn
	}
	p.token = res.AccessToken
	p.expiresAt = p.now().Add(time.Duration(ttl) * time.Second)
	return p.token
}

func (p *ServiceAccountTokenProvider) cached() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token != "" && p.expiresAt.After(p.now().Add(tokenRefreshMargin)) {
		return p.token, true
	}
	return "", false
}

// TokenPolicy prefers a propagated token and falls back to the service account.
type TokenPolicy struct {
	enablePropagated     bool
	enableServiceAccount bool
	serviceAccount       TokenSource
}

func NewTokenPolicy(cfg *config.Config, sa *ServiceAccountTokenProvider) *TokenPolicy {
	p := &TokenPolicy{
		enablePropagated:     cfg.Price.Auth.EnablePropagated,
		enableServiceAccount: cfg.Price.Auth.EnableServiceAccount,
	}
	if sa != nil {
		p.serviceAccount = sa
	}
	return p
}

func (p *TokenPolicy) Token(ctx context.Context) string {
	if p.enablePropagated {
		if tok := TokenFromContext(ctx); tok != "" {
			return tok
		}
	}
	if p.enableServiceAccount && p.serviceAccount != nil {
		return p.serviceAccount.Token(ctx)
	}
	return ""
}
