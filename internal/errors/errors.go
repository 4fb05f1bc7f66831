// errors — таксономия ошибок фронтенда каталога и их отображение во view.
//
// Источники ошибок:
//   - транспорт до бэкенда (NetworkError);
//   - ответы бэкенда с не-2xx статусом (Authentication/Authorization/NotFound/Backend);
//   - клиентская валидация форм (ValidationError), до сети не доходит.
//
// Проверка вида ошибки — через errors.Is с сентинелами ниже; детали (статус,
// сообщение бэкенда, поля формы) — через errors.As.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrNetwork — запрос к бэкенду не завершился (DNS, connect, таймаут, обрыв).
	ErrNetwork = stderrors.New("network error")

	// ErrAuthentication — логин/регистрация отклонены бэкендом или 401 на защищённом вызове.
	ErrAuthentication = stderrors.New("authentication failed")

	// ErrAuthorization — пользователь аутентифицирован, но не владелец сущности.
	ErrAuthorization = stderrors.New("not authorized")

	// ErrNotFound — запрошенная сущность отсутствует.
	ErrNotFound = stderrors.New("not found")

	// ErrValidation — клиентская валидация полей формы.
	ErrValidation = stderrors.New("validation failed")

	// ErrBackend — прочие отказы бэкенда (400/409/5xx) и битые ответы.
	ErrBackend = stderrors.New("backend error")
)

// Error — ошибка запроса к бэкенду.
// Kind — один из сентинелов пакета; Status — HTTP-статус бэкенда (0 для сетевых);
// Message — сообщение бэкенда из тела ответа; Err — исходная причина.
type Error struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())

	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Is сопоставляет ошибку с сентинелом её вида.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Network оборачивает транспортную ошибку.
func Network(err error) *Error {
	return &Error{Kind: ErrNetwork, Err: err}
}

// Authentication — отказ в аутентификации с сообщением бэкенда.
func Authentication(msg string) *Error {
	return &Error{Kind: ErrAuthentication, Status: http.StatusUnauthorized, Message: msg}
}

// Authorization — попытка изменить чужую сущность.
func Authorization(msg string) *Error {
	return &Error{Kind: ErrAuthorization, Status: http.StatusForbidden, Message: msg}
}

// NotFound — сущность отсутствует.
func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Status: http.StatusNotFound, Message: msg}
}

// Malformed — бэкенд ответил успешно, но тело не разбирается.
func Malformed(status int, err error) *Error {
	return &Error{Kind: ErrBackend, Status: status, Message: "malformed response", Err: err}
}

// FromStatus строит ошибку по статусу ответа бэкенда:
//   - 401 -> ErrAuthentication;
//   - 403 -> ErrAuthorization;
//   - 404 -> ErrNotFound;
//   - прочее -> ErrBackend.
func FromStatus(status int, msg string) *Error {
	kind := ErrBackend

	switch status {
	case http.StatusUnauthorized:
		kind = ErrAuthentication
	case http.StatusForbidden:
		kind = ErrAuthorization
	case http.StatusNotFound:
		kind = ErrNotFound
	}

	return &Error{Kind: kind, Status: status, Message: msg}
}

// ValidationError — набор ошибок полей формы, ключ — имя поля в wire-формате.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation возвращает nil, если ошибок нет.
func NewValidation(fields map[string]string) *ValidationError {
	if len(fields) == 0 {
		return nil
	}

	return &ValidationError{Fields: fields}
}

// Field — ошибка одного поля.
func Field(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// APIError — единый формат ошибки во view.
// Code — короткий стабильный код; Message — текст уведомления;
// Fields — ошибки полей для отрисовки рядом с инпутами.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус view и тело уведомления.
//
// Поведение:
//   - nil — программная ошибка вызова: 500/internal;
//   - ValidationError — 422 с полями;
//   - отмена/дедлайн контекста — 499/504;
//   - *Error — по виду (см. baseFromKind);
//   - прочее — 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, internal()
	}

	var verr *ValidationError
	if stderrors.As(err, &verr) {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: APIError{
				Code:    "validation_failed",
				Message: "please correct the errors in the form",
				Fields:  verr.Fields,
			},
		}
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrorResponse{Error: APIError{Code: "canceled", Message: "canceled"}}
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: APIError{Code: "deadline_exceeded", Message: "backend did not respond in time"}}
	}

	var e *Error
	if !stderrors.As(err, &e) {
		return http.StatusInternalServerError, internal()
	}

	status, code, msg := baseFromKind(e)
	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// WriteError — хелпер для view-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Message возвращает текст для уведомления пользователю.
func Message(err error) string {
	_, resp := ToHTTP(err)
	return resp.Error.Message
}

// baseFromKind — маппинг вида ошибки в статус view/код/сообщение.
// Сообщение бэкенда показывается как есть (это текст для пользователя),
// детали транспортных ошибок наружу не отдаются.
func baseFromKind(e *Error) (int, string, string) {
	msg := func(fallback string) string {
		if e.Message != "" {
			return e.Message
		}
		return fallback
	}

	switch e.Kind {
	case ErrNetwork:
		return http.StatusServiceUnavailable, "unavailable", "backend unavailable"
	case ErrAuthentication:
		return http.StatusUnauthorized, "unauthenticated", msg("unauthenticated")
	case ErrAuthorization:
		return http.StatusForbidden, "permission_denied", msg("permission denied")
	case ErrNotFound:
		return http.StatusNotFound, "not_found", msg("not found")
	case ErrBackend:
		switch {
		case e.Status == http.StatusBadRequest:
			return http.StatusBadRequest, "invalid_argument", msg("invalid argument")
		case e.Status == http.StatusConflict:
			return http.StatusConflict, "already_exists", msg("already exists")
		case e.Status == http.StatusTooManyRequests:
			return http.StatusTooManyRequests, "resource_exhausted", msg("resource exhausted")
		case e.Status >= 400 && e.Status < 500:
			return e.Status, "rejected", msg("request rejected")
		default:
			return http.StatusBadGateway, "bad_gateway", "backend error"
		}
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

func internal() ErrorResponse {
	return ErrorResponse{Error: APIError{Code: "internal", Message: "internal error"}}
}
