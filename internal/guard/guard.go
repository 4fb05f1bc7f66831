// guard — доступ к защищённым view по состоянию сессии.
//
// Пока сессия не восстановлена, guard в состоянии Checking: не рендерит
// защищённый view и не редиректит на логин. После Ready — Authorized, если в
// сессии есть пользователь, иначе Unauthorized (303 на /login?next=...).
// Состояние вычисляется заново на каждый запрос.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pribylovaa/waste-directory/pkg/log"
)

type State int

const (
	Checking State = iota
	Authorized
	Unauthorized
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Session — то, что guard читает из сессии.
type Session interface {
	Ready() <-chan struct{}
	Authenticated() bool
}

type Guard struct {
	session   Session
	loginPath string
}

// New создаёт guard. loginPath == "" — "/login".
func New(s Session, loginPath string) *Guard {
	if loginPath == "" {
		loginPath = "/login"
	}

	return &Guard{session: s, loginPath: loginPath}
}

// State — текущее состояние без ожидания.
func (g *Guard) State() State {
	select {
	case <-g.session.Ready():
	default:
		return Checking
	}

	if g.session.Authenticated() {
		return Authorized
	}

	return Unauthorized
}

// Await ждёт выхода из Checking или отмены ctx (тогда возвращает Checking).
func (g *Guard) Await(ctx context.Context) State {
	select {
	case <-g.session.Ready():
		return g.State()
	case <-ctx.Done():
		return Checking
	}
}

// LoginURL — адрес логина с возвратом на from.
func (g *Guard) LoginURL(from string) string {
	if from == "" {
		return g.loginPath
	}

	return g.loginPath + "?next=" + url.QueryEscape(from)
}

// Protect пропускает запрос только в состоянии Authorized.
//   - Checking (ctx запроса истёк раньше restore) — 503 без тела и без редиректа;
//   - Unauthorized — 303 на логин с исходным URI в next;
//   - Authorized — дальше по цепочке.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := g.Await(r.Context())
		l := log.From(r.Context())

		switch state {
		case Authorized:
			next.ServeHTTP(w, r)
		case Unauthorized:
			l.Info("guard_redirect", slog.String("path", r.URL.Path))
			http.Redirect(w, r, g.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		default:
			l.Warn("guard_checking_timeout", slog.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
}

// AwaitReady задерживает запрос до завершения restore, чтобы view видели
// окончательное состояние сессии. Отмена ctx — 503 без тела.
func (g *Guard) AwaitReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-g.session.Ready():
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
}

// SafeNext возвращает next, если это локальный абсолютный путь, иначе "/".
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}

	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}

	return next
}
