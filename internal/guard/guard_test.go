package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSession — управляемая сессия: ready закрывается вручную.
type fakeSession struct {
	ready chan struct{}
	auth  atomic.Bool
}

func newFakeSession() *fakeSession { return &fakeSession{ready: make(chan struct{})} }

func (f *fakeSession) Ready() <-chan struct{} { return f.ready }
func (f *fakeSession) Authenticated() bool { return f.auth.Load() }
func (f *fakeSession) settle(auth bool) {
	f.auth.Store(auth)
	close(f.ready)
}

var protectedBody = []byte("protected")

func protectedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(protectedBody)
	})
}

func TestState_Transitions(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	g := New(s, "")
	require.Equal(t, Checking, g.State())

	s.settle(true)
	require.Equal(t, Authorized, g.State())

	s.auth.Store(false)
	require.Equal(t, Unauthorized, g.State(), "state is re-evaluated on every call")
}

// Пока сессия не готова, guard не редиректит и не рендерит защищённый view.
func TestProtect_CheckingNeverRedirectsNorRenders(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	g := New(s, "/login")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/companies/create", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	g.Protect(protectedHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Empty(t, rec.Header().Get("Location"))
	require.Empty(t, rec.Body.Bytes())
}

// Запрос, пришедший во время restore, дожидается его и получает итоговое решение.
func TestProtect_WaitsForRestore(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	g := New(s, "/login")

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.settle(true)
	}()

	req := httptest.NewRequest(http.MethodGet, "/companies/create", nil)
	rec := httptest.NewRecorder()
	g.Protect(protectedHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, protectedBody, rec.Body.Bytes())
}

func TestProtect_UnauthorizedRedirectsWithNext(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.settle(false)
	g := New(s, "/login")

	req := httptest.NewRequest(http.MethodGet, "/companies/7/edit?tab=services", nil)
	rec := httptest.NewRecorder()
	g.Protect(protectedHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login?next=%2Fcompanies%2F7%2Fedit%3Ftab%3Dservices", rec.Header().Get("Location"))
	require.NotContains(t, rec.Body.String(), string(protectedBody))
}

func TestAwaitReady(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	g := New(s, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	g.AwaitReady(protectedHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.settle(false)
	rec = httptest.NewRecorder()
	g.AwaitReady(protectedHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginURL(t *testing.T) {
	t.Parallel()

	g := New(newFakeSession(), "")
	require.Equal(t, "/login", g.LoginURL(""))
	require.Equal(t, "/login?next=%2Fcompanies%2Fcreate", g.LoginURL("/companies/create"))
}

func TestSafeNext(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"":                     "/",
		"/companies/3/edit":    "/companies/3/edit",
		"/companies?page=2":    "/companies?page=2",
		"//evil.example.org":   "/",
		"/\\evil.example.org":  "/",
		"https://evil.example": "/",
		"companies":            "/",
		"javascript:alert(1)":  "/",
	}

	for in, want := range tcs {
		require.Equal(t, want, SafeNext(in), "input %q", in)
	}
}
