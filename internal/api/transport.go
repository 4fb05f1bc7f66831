package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/waste-directory/internal/metrics"
	"github.com/pribylovaa/waste-directory/pkg/log"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type CtxKey string

const (
	CtxRequestID CtxKey = "request_id"
	CtxAuthToken CtxKey = "auth_token"
	CtxOp        CtxKey = "op"
)

// Middleware — обёртка исходящего транспорта.
type Middleware func(http.RoundTripper) http.RoundTripper

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain собирает транспорт: первая middleware — внешняя.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}

	return rt
}

// WithMetadata — добавляет в исходящий запрос заголовки:
//   - X-Request-Id (если есть в контексте),
//   - Authorization: Bearer <token> (если есть в контексте),
//   - User-Agent (если передан параметром).
//
// Исходный запрос не модифицируется.
func WithMetadata(userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()
			r = r.Clone(ctx)

			if rid, _ := ctx.Value(CtxRequestID).(string); rid != "" {
				r.Header.Set("X-Request-Id", rid)
			}
			if tok, _ := ctx.Value(CtxAuthToken).(string); tok != "" {
				r.Header.Set("Authorization", "Bearer "+tok)
			}
			if userAgent != "" {
				r.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(r)
		})
	}
}

// WithRateLimit ограничивает темп исходящих запросов. l == nil — без ограничения.
// Ожидание токена прерывается отменой контекста запроса.
func WithRateLimit(l *rate.Limiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if l == nil {
			return next
		}

		return roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if err := l.Wait(r.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(r)
		})
	}
}

// WithTimeout навешивает таймаут d на исходящий запрос, если у контекста ещё нет дедлайна.
//
// Контракт:
//  1. d <= 0 — запрос уходит как есть;
//  2. у ctx уже есть deadline — оставляет как есть;
//  3. иначе — context.WithTimeout(ctx, d); cancel вызывается при закрытии тела
//     ответа (тело читается после возврата RoundTrip) либо сразу при ошибке.
func WithTimeout(d time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if d <= 0 {
				return next.RoundTrip(r)
			}
			if _, ok := r.Context().Deadline(); ok {
				return next.RoundTrip(r)
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			resp, err := next.RoundTrip(r.WithContext(ctx))
			if err != nil {
				cancel()
				return nil, err
			}

			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		})
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// WithLogging — логирование исходящих запросов.
// Поведение:
//   - берёт X-Request-Id из заголовков (или генерирует новый и добавляет);
//   - прокладывает обогащённый логгер в контекст (pkg/log);
//   - пишет одну финальную запись уровня Info: msg="http_out", status, dur.
//
// Безопасность: не логирует тела и заголовок Authorization.
func WithLogging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := r.Header.Get("X-Request-Id")
			if rid == "" {
				rid = uuid.NewString()
				r = r.Clone(r.Context())
				r.Header.Set("X-Request-Id", rid)
			}

			op, _ := r.Context().Value(CtxOp).(string)

			l := base.With(
				slog.String("request_id", rid),
				slog.String("op", op),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			r = r.WithContext(log.Into(r.Context(), l))

			resp, err := next.RoundTrip(r)
			if err != nil {
				l.Warn("http_out",
					slog.String("error", err.Error()),
					slog.Duration("dur", time.Since(start)),
				)
				return nil, err
			}

			l.Info("http_out",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}

// WithMetrics пишет счётчик и латентность исходящих запросов по операции.
func WithMetrics(m *metrics.Metrics) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if m == nil {
			return next
		}

		return roundTripFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			op, _ := r.Context().Value(CtxOp).(string)

			resp, err := next.RoundTrip(r)

			status := 0
			if err == nil {
				status = resp.StatusCode
			}
			m.ObserveBackend(op, status, time.Since(start))

			return resp, err
		})
	}
}
