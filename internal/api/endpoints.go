package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/pribylovaa/waste-directory/internal/errors"
	"github.com/pribylovaa/waste-directory/internal/models"
)

// ListCompanies — GET /api/companies. Нулевые фильтры не отправляются.
func (c *Client) ListCompanies(ctx context.Context, p models.CompanyListParams) (models.Listing, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("per_page", strconv.Itoa(p.PerPage))
	if p.RegionID != 0 {
		q.Set("region_id", strconv.FormatInt(p.RegionID, 10))
	}
	if p.ServiceID != 0 {
		q.Set("service_id", strconv.FormatInt(p.ServiceID, 10))
	}

	var resp models.CompanyListResponse
	if err := c.do(ctx, call{
		op:     "api.ListCompanies",
		method: http.MethodGet,
		path:   "/api/companies",
		query:  q,
		out:    &resp,
	}); err != nil {
		return models.Listing{}, err
	}

	return models.ListingFromResponse(&resp), nil
}

func (c *Client) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	var out models.Company
	if err := c.do(ctx, call{
		op:     "api.GetCompany",
		method: http.MethodGet,
		path:   companyPath(id),
		out:    &out,
	}); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) CreateCompany(ctx context.Context, data models.CompanyFormData) (*models.Company, error) {
	return c.mutate(ctx, "api.CreateCompany", http.MethodPost, "/api/companies", data)
}

func (c *Client) UpdateCompany(ctx context.Context, id int64, data models.CompanyFormData) (*models.Company, error) {
	return c.mutate(ctx, "api.UpdateCompany", http.MethodPut, companyPath(id), data)
}

func (c *Client) mutate(ctx context.Context, op, method, path string, data models.CompanyFormData) (*models.Company, error) {
	var out models.CompanyMutationResponse
	if err := c.do(ctx, call{op: op, method: method, path: path, body: data, out: &out}); err != nil {
		return nil, err
	}
	if out.Company == nil {
		return nil, fmt.Errorf("%s: %w", op, apperrors.Malformed(http.StatusOK, fmt.Errorf("response has no company")))
	}

	return out.Company, nil
}

func (c *Client) DeleteCompany(ctx context.Context, id int64) error {
	return c.do(ctx, call{
		op:     "api.DeleteCompany",
		method: http.MethodDelete,
		path:   companyPath(id),
	})
}

func (c *Client) Regions(ctx context.Context) ([]models.Region, error) {
	out := []models.Region{}
	if err := c.do(ctx, call{op: "api.Regions", method: http.MethodGet, path: "/api/regions", out: &out}); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Client) Services(ctx context.Context) ([]models.Service, error) {
	out := []models.Service{}
	if err := c.do(ctx, call{op: "api.Services", method: http.MethodGet, path: "/api/services", out: &out}); err != nil {
		return nil, err
	}

	return out, nil
}

// Login — POST /api/auth/login без токена сессии.
func (c *Client) Login(ctx context.Context, cred models.Credentials) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "api.Login", "/api/auth/login", cred)
}

// Register — POST /api/auth/register без токена сессии.
func (c *Client) Register(ctx context.Context, p models.Profile) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "api.Register", "/api/auth/register", p)
}

func (c *Client) authenticate(ctx context.Context, op, path string, body any) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		path:   path,
		body:   body,
		out:    &out,
		auth:   authNone,
	}); err != nil {
		return nil, err
	}
	if !out.Complete() {
		return nil, fmt.Errorf("%s: %w", op, apperrors.Malformed(http.StatusOK, fmt.Errorf("response has no user or token")))
	}

	return &out, nil
}

// Me — GET /api/auth/me с явно переданным токеном. 401 сессию не трогает:
// решение принимает вызывающий (restore).
func (c *Client) Me(ctx context.Context, token string) (*models.Identity, error) {
	const op = "api.Me"

	var out models.Identity
	if err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/api/auth/me",
		out:    &out,
		auth:   authExplicit,
		token:  token,
	}); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, fmt.Errorf("%s: %w", op, apperrors.Malformed(http.StatusOK, fmt.Errorf("identity has no id")))
	}

	return &out, nil
}

// Health — GET /api/health, сводка для главной.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	if err := c.do(ctx, call{
		op:     "api.Health",
		method: http.MethodGet,
		path:   "/api/health",
		out:    &out,
		auth:   authNone,
	}); err != nil {
		return nil, err
	}

	return &out, nil
}

func companyPath(id int64) string {
	return "/api/companies/" + strconv.FormatInt(id, 10)
}
