// api — типизированный клиент REST-бэкенда каталога.
//
// Токен сессии читается в момент отправки (TokenSource), 401 на запросе с
// токеном сессии сообщается обратно в сессию (Expire). Ошибки приводятся к
// таксономии internal/errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	apperrors "github.com/pribylovaa/waste-directory/internal/errors"
	"github.com/pribylovaa/waste-directory/internal/metrics"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Предел тела ответа бэкенда.
const maxBodyBytes = 4 << 20

// TokenSource — текущий токен сессии и приёмник 401.
type TokenSource interface {
	Token() string
	Expire(token string)
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// RPS <= 0 — без ограничения темпа.
	RPS   float64
	Burst int

	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Transport http.RoundTripper
}

type Client struct {
	base *url.URL
	hc   *http.Client

	mu     sync.RWMutex
	tokens TokenSource
}

// authMode — откуда берётся bearer для запроса.
type authMode int

const (
	// authSession — токен текущей сессии; 401 истекает сессию.
	authSession authMode = iota
	// authNone — без заголовка Authorization (login/register).
	authNone
	// authExplicit — токен передан вызывающим через контекст (restore).
	authExplicit
)

// New создаёт клиент с цепочкой транспорта: metadata -> rate limit -> timeout -> logging -> metrics.
func New(opts Options) (*Client, error) {
	const op = "api.New"

	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("%s: empty base url", op)
	}

	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: unsupported scheme %q", op, u.Scheme)
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	rt := Chain(opts.Transport,
		WithMetadata(opts.UserAgent),
		WithRateLimit(limiter),
		WithTimeout(opts.Timeout),
		WithLogging(opts.Logger),
		WithMetrics(opts.Metrics),
	)

	return &Client{
		base: u,
		hc:   &http.Client{Transport: rt},
	}, nil
}

// Bind подключает источник токена. До Bind запросы уходят анонимно.
func (c *Client) Bind(s TokenSource) {
	c.mu.Lock()
	c.tokens = s
	c.mu.Unlock()
}

func (c *Client) source() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// WithRequestID кладёт id входящего запроса в контекст исходящих.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, CtxRequestID, rid)
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	out    any
	auth   authMode
	token  string
}

func (c *Client) do(ctx context.Context, cl call) error {
	var sent string

	switch cl.auth {
	case authSession:
		if src := c.source(); src != nil {
			sent = src.Token()
		}
	case authExplicit:
		sent = cl.token
	}
	ctx = context.WithValue(ctx, CtxAuthToken, sent)
	ctx = context.WithValue(ctx, CtxOp, cl.op)

	u := *c.base
	u.Path = c.base.Path + cl.path
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", cl.op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", cl.op, apperrors.Network(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: %w", cl.op, apperrors.Network(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && cl.auth == authSession && sent != "" {
			if src := c.source(); src != nil {
				src.Expire(sent)
			}
		}
		return fmt.Errorf("%s: %w", cl.op, apperrors.FromStatus(resp.StatusCode, backendMessage(raw, resp.StatusCode)))
	}

	if cl.out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, cl.out); err != nil {
		return fmt.Errorf("%s: %w", cl.op, apperrors.Malformed(resp.StatusCode, err))
	}

	return nil
}

// backendMessage достаёт текст ошибки из тела: "error" (строка),
// "error.message", "message"; иначе — текст статуса.
func backendMessage(body []byte, status int) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error", "error.message", "message"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}

	return http.StatusText(status)
}
