package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/pribylovaa/waste-directory/internal/errors"
	"github.com/pribylovaa/waste-directory/internal/forms"
	"github.com/pribylovaa/waste-directory/internal/guard"
	"github.com/pribylovaa/waste-directory/internal/session"
	"github.com/pribylovaa/waste-directory/pkg/log"
	"github.com/pribylovaa/waste-directory/pkg/redact"
)

type LoginView struct {
	Authenticated bool   `json:"authenticated"`
	Next          string `json:"next"`
}

type loginRequest struct {
	forms.LoginForm
	Next string `json:"next"`
}

func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LoginView{
		Authenticated: h.Session.Snapshot().Authenticated(),
		Next:          guard.SafeNext(r.URL.Query().Get("next")),
	})
}

// Login — вход. После успеха переход на next (только локальный путь), иначе на главную.
// 401 от бэкенда дополнительно помечает поле пароля.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeStrict(w, r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	if req.Next == "" {
		req.Next = r.URL.Query().Get("next")
	}

	if err := req.Validate(); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	user, err := h.Session.Login(r.Context(), req.Credentials())
	if err != nil {
		log.From(r.Context()).Info("login_rejected",
			slog.String("email", redact.Email(req.Email)),
			slog.String("err", err.Error()),
		)

		err = sessionError(err)

		var be *apperrors.Error
		if errors.As(err, &be) && be.Status == http.StatusUnauthorized {
			writeWithFields(w, r, err, map[string]string{"password": "Invalid email or password"})
			return
		}

		apperrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, Outcome{
		Message:  "Logged in successfully",
		Redirect: guard.SafeNext(req.Next),
		User:     user,
	})
}

func (h *Handlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LoginView{
		Authenticated: h.Session.Snapshot().Authenticated(),
		Next:          "/",
	})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var form forms.RegisterForm
	if err := decodeStrict(w, r, &form); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	if err := form.Validate(); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	user, err := h.Session.Register(r.Context(), form.Profile())
	if err != nil {
		log.From(r.Context()).Info("register_rejected",
			slog.String("email", redact.Email(form.Email)),
			slog.String("err", err.Error()),
		)
		apperrors.WriteError(w, r, sessionError(err))
		return
	}

	writeJSON(w, http.StatusCreated, Outcome{
		Message:  "Account created successfully",
		Redirect: "/",
		User:     user,
	})
}

// Logout всегда успешен.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Session.Logout(r.Context())
	writeJSON(w, http.StatusOK, Outcome{Message: "Logged out", Redirect: "/"})
}

// sessionError — сессия сменилась (logout) пока шёл вход: результат отброшен.
func sessionError(err error) error {
	if errors.Is(err, session.ErrSuperseded) {
		return apperrors.FromStatus(http.StatusConflict, "Session changed, please try again")
	}
	return err
}

// writeWithFields — как apperrors.WriteError, но с ошибками полей для уведомления.
func writeWithFields(w http.ResponseWriter, r *http.Request, err error, fields map[string]string) {
	status, resp := apperrors.ToHTTP(err)
	resp.Error.Fields = fields
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	writeJSON(w, status, resp)
}
