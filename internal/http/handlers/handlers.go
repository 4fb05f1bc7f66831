// handlers — JSON view-эндпойнты фронтенда каталога.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/pribylovaa/waste-directory/internal/errors"
	"github.com/pribylovaa/waste-directory/internal/models"
	"github.com/pribylovaa/waste-directory/internal/session"
)

// maxBody — предел тела формы.
const maxBody = 1 << 20

// Backend — вызовы бэкенда, которые нужны view.
type Backend interface {
	ListCompanies(ctx context.Context, p models.CompanyListParams) (models.Listing, error)
	GetCompany(ctx context.Context, id int64) (*models.Company, error)
	CreateCompany(ctx context.Context, data models.CompanyFormData) (*models.Company, error)
	UpdateCompany(ctx context.Context, id int64, data models.CompanyFormData) (*models.Company, error)
	DeleteCompany(ctx context.Context, id int64) error
	Regions(ctx context.Context) ([]models.Region, error)
	Services(ctx context.Context) ([]models.Service, error)
	Health(ctx context.Context) (*models.Health, error)
}

// Session — сессия пользователя с точки зрения view.
type Session interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, cred models.Credentials) (*models.Identity, error)
	Register(ctx context.Context, p models.Profile) (*models.Identity, error)
	Logout(ctx context.Context)
}

// Handlers агрегирует зависимости view.
type Handlers struct {
	Backend  Backend
	Session  Session
	PageSize int
}

func New(b Backend, s Session, pageSize int) *Handlers {
	return &Handlers{Backend: b, Session: s, PageSize: pageSize}
}

// Outcome — результат изменяющего действия: уведомление и куда перейти дальше.
type Outcome struct {
	Message  string           `json:"message"`
	Redirect string           `json:"redirect"`
	Company  *models.Company  `json:"company,omitempty"`
	User     *models.Identity `json:"user,omitempty"`
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apperrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return apperrors.Field("body", "malformed request body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperrors.Field("body", "malformed request body")
	}

	return nil
}

// companyID — id компании из пути. Непарсящийся id отображается как отсутствующая компания.
func companyID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NotFound("Company not found")
	}
	return id, nil
}

// queryID — неотрицательное целое из query; пустое значение — 0.
func queryID(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, apperrors.Field(key, "must be a non-negative integer")
	}
	return n, nil
}
