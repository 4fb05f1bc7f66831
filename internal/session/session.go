// session — единственная сессия процесса: текущий пользователь и bearer-токен.
//
// Состояние {identity, token} меняется только целиком под мьютексом; HTTP-клиент
// читает токен через Token() в момент отправки. Сетевые вызовы идут вне блокировки,
// запись в хранилище токена — под ней, чтобы порядок Save/Clear совпадал с порядком
// переходов.
package session

//go:generate mockgen -source=session.go -destination=../../mocks/session.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/pribylovaa/waste-directory/internal/errors"
	"github.com/pribylovaa/waste-directory/internal/metrics"
	"github.com/pribylovaa/waste-directory/internal/models"
	"github.com/pribylovaa/waste-directory/pkg/redact"

	"github.com/golang-jwt/jwt/v5"
)

// Таймаут записи в хранилище токена вне контекста запроса (Expire).
const storeIOTimeout = 5 * time.Second

// ErrSuperseded — ответ пришёл после logout/expire и к сессии не применён.
var ErrSuperseded = errors.New("session changed while request was in flight")

// AuthAPI — вызовы бэкенда, нужные сессии.
type AuthAPI interface {
	Login(ctx context.Context, cred models.Credentials) (*models.AuthResponse, error)
	Register(ctx context.Context, p models.Profile) (*models.AuthResponse, error)
	Me(ctx context.Context, token string) (*models.Identity, error)
}

// TokenStore — персистентное хранение токена под фиксированным ключом.
// Load возвращает "" без ошибки, если токена нет.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Snapshot — согласованный срез сессии.
type Snapshot struct {
	Identity *models.Identity `json:"identity"`
	Token    string           `json:"-"`
}

func (s Snapshot) Authenticated() bool { return s.Identity != nil }

type Store struct {
	api     AuthAPI
	tokens  TokenStore
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	identity *models.Identity
	token    string
	// gen растёт на каждом переходе, clears — только на logout/expire.
	gen    uint64
	clears uint64

	ready       chan struct{}
	readyOnce   sync.Once
	restoreOnce sync.Once
}

func New(api AuthAPI, tokens TokenStore, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		api:    api,
		tokens: tokens,
		log:    log,
		now:    time.Now,
		ready:  make(chan struct{}),
	}
}

// SetMetrics подключает счётчик переходов сессии. Вызывается до Restore.
func (s *Store) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// Ready закрывается ровно один раз, когда Restore завершился.
func (s *Store) Ready() <-chan struct{} { return s.ready }

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Restore восстанавливает сессию из сохранённого токена. Повторные вызовы — no-op.
//
// Поведение:
//   - токена нет — сессия пустая;
//   - JWT с истёкшим exp — токен удаляется без обращения к бэкенду;
//   - иначе GET /api/auth/me; любой отказ удаляет токен.
//
// Ready сигнализируется во всех исходах.
func (s *Store) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		defer s.markReady()
		s.restore(ctx)
	})
}

func (s *Store) restore(ctx context.Context) {
	const op = "session.Restore"

	l := s.log.With(slog.String("op", op))

	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	tok, err := s.tokens.Load(ctx)
	if err != nil {
		l.Warn("session_restore_load_failed", slog.String("error", err.Error()))
		s.discard(ctx, l, gen)
		s.metrics.SessionEvent("restore", "store_error")
		return
	}

	if tok == "" {
		l.Info("session_restore_empty")
		s.metrics.SessionEvent("restore", "empty")
		return
	}

	if tokenExpired(tok, s.now()) {
		l.Info("session_restore_expired", slog.String("token", redact.Token(tok)))
		s.discard(ctx, l, gen)
		s.metrics.SessionEvent("restore", "expired")
		return
	}

	id, err := s.api.Me(ctx, tok)
	if err != nil {
		l.Info("session_restore_rejected",
			slog.String("token", redact.Token(tok)),
			slog.String("error", err.Error()),
		)
		s.discard(ctx, l, gen)
		s.metrics.SessionEvent("restore", "rejected")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		l.Info("session_restore_superseded")
		s.metrics.SessionEvent("restore", "superseded")
		return
	}

	s.identity = id
	s.token = tok
	s.gen++

	l.Info("session_restored", slog.Int64("user_id", id.ID))
	s.metrics.SessionEvent("restore", "ok")
}

// discard удаляет сохранённый токен, если с начала restore сессия не менялась
// (иначе токен уже принадлежит новому логину).
func (s *Store) discard(ctx context.Context, l *slog.Logger, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return
	}

	if err := s.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		l.Warn("session_token_clear_failed", slog.String("error", err.Error()))
	}
}

// Login аутентифицирует пользователя и атомарно устанавливает сессию.
// Отказ бэкенда (включая 5xx) — ErrAuthentication с его сообщением, сеть — ErrNetwork;
// в обоих случаях сессия не меняется.
func (s *Store) Login(ctx context.Context, cred models.Credentials) (*models.Identity, error) {
	const op = "session.Login"

	clears := s.clearCount()

	resp, err := s.api.Login(ctx, cred)
	if err != nil {
		s.log.Info("session_login_failed",
			slog.String("email", redact.Email(cred.Email)),
			slog.String("error", err.Error()),
		)
		s.metrics.SessionEvent("login", "rejected")
		return nil, fmt.Errorf("%s: %w", op, rejection(err, "Login failed"))
	}

	id, err := s.commit(ctx, op, clears, resp)
	if err != nil {
		s.metrics.SessionEvent("login", "superseded")
		return nil, err
	}

	s.log.Info("session_login", slog.Int64("user_id", id.ID), slog.String("email", redact.Email(id.Email)))
	s.metrics.SessionEvent("login", "ok")

	return id, nil
}

// Register создаёт аккаунт и сразу входит в него.
// Сообщения "username already exists" / "email already exists" превращаются
// в ошибку соответствующего поля формы.
func (s *Store) Register(ctx context.Context, p models.Profile) (*models.Identity, error) {
	const op = "session.Register"

	clears := s.clearCount()

	resp, err := s.api.Register(ctx, p)
	if err != nil {
		s.log.Info("session_register_failed",
			slog.String("email", redact.Email(p.Email)),
			slog.String("error", err.Error()),
		)
		s.metrics.SessionEvent("register", "rejected")

		if ferr := registerFieldError(err); ferr != nil {
			return nil, fmt.Errorf("%s: %w", op, ferr)
		}
		return nil, fmt.Errorf("%s: %w", op, rejection(err, "Registration failed"))
	}

	id, err := s.commit(ctx, op, clears, resp)
	if err != nil {
		s.metrics.SessionEvent("register", "superseded")
		return nil, err
	}

	s.log.Info("session_register", slog.Int64("user_id", id.ID), slog.String("email", redact.Email(id.Email)))
	s.metrics.SessionEvent("register", "ok")

	return id, nil
}

func (s *Store) commit(ctx context.Context, op string, clears uint64, resp *models.AuthResponse) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clears != clears {
		return nil, fmt.Errorf("%s: %w", op, ErrSuperseded)
	}

	// Сохранение best-effort: сессия процесса действует и без персистентного токена.
	if err := s.tokens.Save(context.WithoutCancel(ctx), resp.AccessToken); err != nil {
		s.log.Warn("session_token_save_failed", slog.String("op", op), slog.String("error", err.Error()))
	}

	id := *resp.User
	s.identity = &id
	s.token = resp.AccessToken
	s.gen++

	out := id
	return &out, nil
}

// Logout очищает сессию и сохранённый токен. Никогда не падает, идемпотентен.
// Ответы запросов, начатых до logout, сессию уже не заполнят.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("session_token_clear_failed", slog.String("op", "session.Logout"), slog.String("error", err.Error()))
	}

	had := s.identity != nil
	s.identity = nil
	s.token = ""
	s.gen++
	s.clears++

	if had {
		s.log.Info("session_logout")
		s.metrics.SessionEvent("logout", "ok")
	}
}

// Expire вызывается HTTP-клиентом на 401 для запроса с токеном token.
// Сессия очищается, только если token всё ещё текущий.
func (s *Store) Expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || token != s.token {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeIOTimeout)
	defer cancel()

	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Warn("session_token_clear_failed", slog.String("op", "session.Expire"), slog.String("error", err.Error()))
	}

	s.identity = nil
	s.token = ""
	s.gen++
	s.clears++

	s.log.Info("session_expired", slog.String("token", redact.Token(token)))
	s.metrics.SessionEvent("expire", "ok")
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Token: s.token}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}

	return snap
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Identity() *models.Identity {
	return s.Snapshot().Identity
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

func (s *Store) clearCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clears
}

// tokenExpired — true только для JWT с exp в прошлом. Подпись не проверяется:
// это оптимизация, решение о валидности остаётся за бэкендом.
func tokenExpired(tok string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return !exp.After(now)
}

// rejection приводит любой не-2xx ответ бэкенда на login/register (4xx и 5xx)
// к ErrAuthentication с его сообщением; статус бэкенда сохраняется.
// Сетевые ошибки и битые ответы возвращаются как есть.
func rejection(err error, fallback string) error {
	var e *apperrors.Error
	if !errors.As(err, &e) || e.Kind == apperrors.ErrNetwork {
		return err
	}
	if e.Status < 400 {
		return err
	}

	msg := e.Message
	if msg == "" || msg == http.StatusText(e.Status) {
		msg = fallback
	}

	return &apperrors.Error{Kind: apperrors.ErrAuthentication, Status: e.Status, Message: msg}
}

func registerFieldError(err error) error {
	var e *apperrors.Error
	if !errors.As(err, &e) || e.Message == "" {
		return nil
	}

	lower := strings.ToLower(e.Message)
	switch {
	case strings.Contains(lower, "username already exists"):
		return apperrors.Field("username", e.Message)
	case strings.Contains(lower, "email already exists"):
		return apperrors.Field("email", e.Message)
	}

	return nil
}
