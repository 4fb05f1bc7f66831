package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pribylovaa/waste-directory/internal/directory"
	apperrors "github.com/pribylovaa/waste-directory/internal/errors"
	"github.com/pribylovaa/waste-directory/internal/forms"
	"github.com/pribylovaa/waste-directory/internal/models"
	"github.com/pribylovaa/waste-directory/pkg/log"
)

// ListingView — страница каталога с текущими фильтрами и справочниками для них.
type ListingView struct {
	Companies  []models.Company `json:"companies"`
	Page       int              `json:"page"`
	PageSize   int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
	TotalItems int              `json:"total_items"`
	RegionID   int64            `json:"region_id"`
	ServiceID  int64            `json:"service_id"`
	Query      string           `json:"q"`
	Regions    []models.Region  `json:"regions"`
	Services   []models.Service `json:"services"`
}

type DetailView struct {
	Company *models.Company `json:"company"`
	IsOwner bool            `json:"is_owner"`
}

// FormView — данные формы создания/редактирования.
type FormView struct {
	ID       int64              `json:"id,omitempty"`
	Draft    forms.CompanyDraft `json:"draft"`
	Regions  []models.Region    `json:"regions"`
	Services []models.Service   `json:"services"`
}

// ListCompanies — листинг. Страница за пределами результата прижимается к последней
// и запрашивается повторно. q фильтрует только полученную страницу.
func (h *Handlers) ListCompanies(w http.ResponseWriter, r *http.Request) {
	q := directory.NewQuery(h.Backend, h.PageSize)

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			apperrors.WriteError(w, r, apperrors.Field("page", "must be an integer"))
			return
		}
		page = n
	}

	regionID, err := queryID(r, "region_id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	serviceID, err := queryID(r, "service_id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	_ = q.SetFilter(directory.FilterRegion, regionID)
	_ = q.SetFilter(directory.FilterService, serviceID)
	q.SetFreeText(r.URL.Query().Get("q"))
	q.SetPage(page)

	listing, err := q.Fetch(r.Context())
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	if page > listing.TotalPages {
		q.SetPage(page)
		if listing, err = q.Fetch(r.Context()); err != nil {
			apperrors.WriteError(w, r, err)
			return
		}
	}

	regions, services := h.options(r.Context())
	params := q.Params()

	writeJSON(w, http.StatusOK, ListingView{
		Companies:  q.VisibleItems(),
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: listing.TotalPages,
		TotalItems: listing.TotalItems,
		RegionID:   params.RegionID,
		ServiceID:  params.ServiceID,
		Query:      q.FreeText(),
		Regions:    regions,
		Services:   services,
	})
}

func (h *Handlers) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, err := companyID(r)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	c, err := h.Backend.GetCompany(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DetailView{
		Company: c,
		IsOwner: c.OwnedBy(h.Session.Snapshot().Identity),
	})
}

func (h *Handlers) NewCompanyForm(w http.ResponseWriter, r *http.Request) {
	regions, services := h.options(r.Context())
	writeJSON(w, http.StatusOK, FormView{
		Draft:    forms.DraftFromCompany(nil),
		Regions:  regions,
		Services: services,
	})
}

func (h *Handlers) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var draft forms.CompanyDraft
	if err := decodeStrict(w, r, &draft); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	c, err := forms.CompanyForm{Draft: draft}.Submit(r.Context(), h.Backend)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, Outcome{
		Message:  "Company created successfully",
		Redirect: companyPath(c.ID),
		Company:  c,
	})
}

// EditCompanyForm — форма редактирования доступна только владельцу.
func (h *Handlers) EditCompanyForm(w http.ResponseWriter, r *http.Request) {
	id, err := companyID(r)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	c, err := h.Backend.GetCompany(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	if !c.OwnedBy(h.Session.Snapshot().Identity) {
		apperrors.WriteError(w, r, apperrors.Authorization("You are not authorized to edit this company"))
		return
	}

	regions, services := h.options(r.Context())
	writeJSON(w, http.StatusOK, FormView{
		ID:       c.ID,
		Draft:    forms.DraftFromCompany(c),
		Regions:  regions,
		Services: services,
	})
}

// UpdateCompany — владение проверяет бэкенд (403).
func (h *Handlers) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, err := companyID(r)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	var draft forms.CompanyDraft
	if err := decodeStrict(w, r, &draft); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	c, err := forms.CompanyForm{ID: id, Draft: draft}.Submit(r.Context(), h.Backend)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, Outcome{
		Message:  "Company updated successfully",
		Redirect: companyPath(id),
		Company:  c,
	})
}

func (h *Handlers) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, err := companyID(r)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	if err := h.Backend.DeleteCompany(r.Context(), id); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, Outcome{Message: "Company deleted successfully", Redirect: "/companies"})
}

// NotFound — view для неизвестных путей.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteError(w, r, apperrors.NotFound("Page not found"))
}

func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteError(w, r, apperrors.FromStatus(http.StatusMethodNotAllowed, "method not allowed"))
}

// options загружает регионы и услуги. Ошибка не фатальна: форма и фильтры
// остаются работоспособными с пустыми списками.
func (h *Handlers) options(ctx context.Context) ([]models.Region, []models.Service) {
	l := log.From(ctx)

	regions, err := h.Backend.Regions(ctx)
	if err != nil {
		l.Warn("regions_unavailable", slog.String("err", err.Error()))
	}
	if regions == nil {
		regions = []models.Region{}
	}

	services, err := h.Backend.Services(ctx)
	if err != nil {
		l.Warn("services_unavailable", slog.String("err", err.Error()))
	}
	if services == nil {
		services = []models.Service{}
	}

	return regions, services
}

func companyPath(id int64) string {
	return "/companies/" + strconv.FormatInt(id, 10)
}
