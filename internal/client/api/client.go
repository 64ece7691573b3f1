package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/dmitrijs2005/eventdesk/internal/logging"
	"github.com/dmitrijs2005/eventdesk/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	authPathPrefix   = "/auth/"
	refreshTokenPath = "/auth/refresh-token"
)

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// TokenStore holds the credentials the client authenticates with.
// The session store implements it.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	// SetTokens stores a refreshed access token. refresh is empty when the
	// backend did not rotate the refresh token.
	SetTokens(ctx context.Context, access, refresh string) error
	ClearCredentials(ctx context.Context) error
}

type Client struct {
	baseURL string
	http    HTTPClient
	log     logging.Logger

	mu     sync.RWMutex
	tokens TokenStore

	refreshGroup singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) { c.tokens = ts }
}

// New returns a client for the backend rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenStore attaches the credential source after construction; the
// session store needs a client before it can exist itself.
func (c *Client) SetTokenStore(ts TokenStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *Client) tokenStore() TokenStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *Client) accessToken() string {
	if ts := c.tokenStore(); ts != nil {
		return ts.AccessToken()
	}
	return ""
}

// request is one logical call; retried is set once it has been replayed
// after a refresh.
type request struct {
	method  string
	path    string
	body    []byte
	retried bool
}

func isAuthPath(path string) bool {
	return strings.HasPrefix(path, authPathPrefix)
}

// Do performs a JSON call. in may be nil; out may be nil to discard the body.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	req := &request{method: method, path: path}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.body = b
	}

	body, err := c.execute(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, req *request) ([]byte, error) {
	token := c.accessToken()

	body, err := c.send(ctx, req, token)
	if err == nil {
		return body, nil
	}

	if !errors.Is(err, ErrUnauthorized) || isAuthPath(req.path) || req.retried {
		return nil, err
	}

	newToken, rerr := c.renewToken(ctx, token)
	if rerr != nil {
		c.log.Warn(ctx, "token refresh failed, credentials cleared", "path", req.path, "error", rerr)
		return nil, err
	}

	req.retried = true
	c.log.Debug(ctx, "replaying request with refreshed token", "method", req.method, "path", req.path)
	return c.send(ctx, req, newToken)
}

// renewToken returns an access token newer than stale. If another request
// already replaced stale, that token is reused; otherwise one refresh
// exchange runs, shared by all callers that failed with stale.
func (c *Client) renewToken(ctx context.Context, stale string) (string, error) {
	ts := c.tokenStore()
	if ts == nil {
		return "", ErrUnauthorized
	}

	v, err, _ := c.refreshGroup.Do(stale, func() (any, error) {
		if current := ts.AccessToken(); current != "" && current != stale {
			return current, nil
		}
		return c.refresh(context.WithoutCancel(ctx), ts, ts.RefreshToken())
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) refresh(ctx context.Context, ts TokenStore, refreshToken string) (token string, err error) {
	defer func() {
		metrics.ObserveRefresh(err == nil)
		if err != nil {
			if cerr := ts.ClearCredentials(ctx); cerr != nil {
				c.log.Error(ctx, "clearing credentials failed", "error", cerr)
			}
		}
	}()

	if refreshToken == "" {
		return "", fmt.Errorf("refresh token: %w", common.ErrInvalidToken)
	}

	var resp refreshResponse
	if err := c.Do(ctx, http.MethodPost, refreshTokenPath, refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("refresh token: %w", common.ErrInvalidToken)
	}
	if err := ts.SetTokens(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}

	c.log.Info(ctx, "access token refreshed")
	return resp.AccessToken, nil
}

func (c *Client) send(ctx context.Context, req *request, token string) ([]byte, error) {
	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveRequest(req.method, 0, start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.method, req.path, err)
	}
	defer resp.Body.Close()
	metrics.ObserveRequest(req.method, resp.StatusCode, start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", ErrUnavailable, req.method, req.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{
			Method:  req.method,
			Path:    req.path,
			Status:  resp.StatusCode,
			Message: extractMessage(body),
		}
	}
	return body, nil
}
