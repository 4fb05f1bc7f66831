package models

// CompanyListParams — параметры GET /api/companies. Нулевые фильтры не отправляются.
type CompanyListParams struct {
	Page      int
	PerPage   int
	RegionID  int64
	ServiceID int64
}

// CompanyListResponse — wire-ответ листинга.
type CompanyListResponse struct {
	Companies []Company `json:"companies"`
	Total     int       `json:"total"`
	Pages     int       `json:"pages"`
	Page      int       `json:"page"`
	PerPage   int       `json:"per_page"`
}

// Listing — одна страница каталога.
// TotalPages берётся у бэкенда как есть и клиентом не пересчитывается.
type Listing struct {
	Items      []Company `json:"items"`
	TotalItems int       `json:"total_items"`
	TotalPages int       `json:"total_pages"`
}

// ListingFromResponse переводит wire-ответ в Listing.
// Пустой листинг бэкенд отдаёт с pages=0; страниц всегда не меньше одной.
func ListingFromResponse(r *CompanyListResponse) Listing {
	if r == nil {
		return Listing{Items: []Company{}, TotalPages: 1}
	}

	items := r.Companies
	if items == nil {
		items = []Company{}
	}

	pages := r.Pages
	if pages < 1 {
		pages = 1
	}

	total := r.Total
	if total < 0 {
		total = 0
	}

	return Listing{Items: items, TotalItems: total, TotalPages: pages}
}

// Health — ответ GET /api/health.
type Health struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Data    HealthCounts `json:"data"`
}

type HealthCounts struct {
	Users     int `json:"users"`
	Companies int `json:"companies"`
	Regions   int `json:"regions"`
	Services  int `json:"services"`
}
