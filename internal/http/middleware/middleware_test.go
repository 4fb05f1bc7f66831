package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pribylovaa/waste-directory/internal/api"
	logctx "github.com/pribylovaa/waste-directory/pkg/log"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// capHandler — тестовый slog.Handler: копит базовые attrs и attrs последней записи.
type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)

	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.count++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out

	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) > 0 {
		h.base = append(h.base, attrs...)
	}

	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

type errEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	order := []string{}

	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-begin")
				next.ServeHTTP(w, r)
				order = append(order, name+"-end")
			})
		}
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	Chain(final, mk("m1"), mk("m2")).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chain", nil))

	require.Equal(t, []string{"m1-begin", "m2-begin", "handler", "m2-end", "m1-end"}, order)
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	t.Parallel()

	var headerID, ctxID string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headerID = r.Header.Get("X-Request-Id")
		ctxID, _ = r.Context().Value(api.CtxRequestID).(string)
	})

	rr := httptest.NewRecorder()
	RequestID()(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, headerID)
	require.Equal(t, headerID, ctxID)
	require.Equal(t, headerID, rr.Header().Get("X-Request-Id"))
}

func TestRequestID_KeepsIncoming(t *testing.T) {
	t.Parallel()

	var ctxID string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID, _ = r.Context().Value(api.CtxRequestID).(string)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "rid-42")
	rr := httptest.NewRecorder()
	RequestID()(h).ServeHTTP(rr, req)

	require.Equal(t, "rid-42", ctxID)
	require.Equal(t, "rid-42", rr.Header().Get("X-Request-Id"))
}

func TestRequestID_TooLongIsReplaced(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("a", 200))
	rr := httptest.NewRecorder()
	RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rr, req)

	require.Len(t, rr.Header().Get("X-Request-Id"), 36)
}

func TestLogging_WritesRouteAndStatus(t *testing.T) {
	t.Parallel()

	ch := &capHandler{}
	r := chi.NewRouter()
	r.Use(Logging(slog.New(ch)))
	r.Get("/companies/{id}", func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, logctx.From(r.Context()))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	})

	req := httptest.NewRequest(http.MethodGet, "/companies/7", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, ch.count)
	require.Equal(t, "http", ch.lastMsg)
	require.Equal(t, slog.LevelInfo, ch.lastLvl)
	require.Equal(t, "/companies/{id}", ch.attrs["route"])
	require.Equal(t, "/companies/7", ch.attrs["path"])
	require.EqualValues(t, http.StatusNotFound, ch.attrs["status"])
	require.EqualValues(t, 4, ch.attrs["bytes"])
	require.Equal(t, "rid-1", ch.attrs["request_id"])
}

func TestRecover_Returns500(t *testing.T) {
	t.Parallel()

	ch := &capHandler{}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Logging(slog.New(ch)), Recover())

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-Id", "rid-p")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "internal", body.Error.Code)
	require.Equal(t, "rid-p", body.Error.RequestID)
	require.NotContains(t, rr.Body.String(), "boom")
}

func TestTimeout_SetsDeadline(t *testing.T) {
	t.Parallel()

	var has bool
	h := Timeout(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, has)

	has = false
	Timeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has = r.Context().Deadline()
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, has)
}

func TestTimeout_KeepsExistingDeadline(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := ctx.Deadline()

	var got time.Time
	h := Timeout(time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	require.Equal(t, want, got)
}

func TestNoStore(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NoStore()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestRequireJSON(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name   string
		method string
		ctype  string
		want   int
	}{
		{"get_passes", http.MethodGet, "", http.StatusOK},
		{"json_passes", http.MethodPost, "application/json", http.StatusOK},
		{"json_charset_passes", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"form_rejected", http.MethodPost, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"plain_rejected", http.MethodPost, "text/plain", http.StatusUnsupportedMediaType},
		{"missing_rejected", http.MethodPost, "", http.StatusUnsupportedMediaType},
	}

	h := RequireJSON()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tc.method, "/login", strings.NewReader("{}"))
			if tc.ctype != "" {
				req.Header.Set("Content-Type", tc.ctype)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, tc.want, rr.Code)
		})
	}
}
