// directory — модель запроса каталога: страница, фильтры, свободный текст.
//
// Fetch помечает запрос снимком параметров и поколением; результат
// применяется, только если параметры не изменились и более поздний запрос ещё
// не применил свой. Свободный текст фильтрует уже полученную страницу и
// повторного запроса не вызывает.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pribylovaa/waste-directory/internal/models"
)

// DefaultPageSize — размер страницы листинга.
const DefaultPageSize = 9

var (
	ErrUnknownFilter = errors.New("unknown filter kind")
	// ErrSuperseded — ответ устарел: параметры сменились или применён более поздний запрос.
	ErrSuperseded = errors.New("listing response superseded")
)

type FilterKind int

const (
	FilterRegion FilterKind = iota + 1
	FilterService
)

func (k FilterKind) String() string {
	switch k {
	case FilterRegion:
		return "region"
	case FilterService:
		return "service"
	default:
		return "unknown"
	}
}

// Lister — источник страниц каталога.
type Lister interface {
	ListCompanies(ctx context.Context, p models.CompanyListParams) (models.Listing, error)
}

// Params — параметры, уходящие в бэкенд. 0 в фильтре — фильтр не задан.
type Params struct {
	Page      int
	PageSize  int
	RegionID  int64
	ServiceID int64
}

type Query struct {
	lister Lister

	mu        sync.Mutex
	params    Params
	freeText  string
	result    *models.Listing
	due       bool
	issued    uint64
	committed uint64
}

// NewQuery создаёт модель на первой странице. pageSize <= 0 — DefaultPageSize.
func NewQuery(l Lister, pageSize int) *Query {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Query{
		lister: l,
		params: Params{Page: 1, PageSize: pageSize},
		due:    true,
	}
}

// SetFilter задаёт фильтр (0 — снять) и всегда сбрасывает страницу на 1.
func (q *Query) SetFilter(kind FilterKind, id int64) error {
	if id < 0 {
		id = 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	switch kind {
	case FilterRegion:
		q.params.RegionID = id
	case FilterService:
		q.params.ServiceID = id
	default:
		return fmt.Errorf("directory.SetFilter: %w: %d", ErrUnknownFilter, int(kind))
	}

	q.params.Page = 1
	q.due = true

	return nil
}

// SetPage ставит страницу в пределах [1, totalPages]. До первого успешного
// Fetch верхняя граница неизвестна, поэтому ограничивается только снизу.
func (q *Query) SetPage(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.result != nil && n > q.result.TotalPages {
		n = q.result.TotalPages
	}
	if n < 1 {
		n = 1
	}

	q.params.Page = n
	q.due = true
}

// SetFreeText меняет текстовый фильтр видимых элементов. Без запроса к бэкенду.
func (q *Query) SetFreeText(s string) {
	q.mu.Lock()
	q.freeText = s
	q.mu.Unlock()
}

// ClearFilters снимает оба фильтра и текст, возвращает на первую страницу.
func (q *Query) ClearFilters() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.params.RegionID = 0
	q.params.ServiceID = 0
	q.params.Page = 1
	q.freeText = ""
	q.due = true
}

// NeedsFetch — параметры менялись после последнего применённого ответа.
func (q *Query) NeedsFetch() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.due
}

func (q *Query) Params() Params {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.params
}

func (q *Query) FreeText() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.freeText
}

// Result — последний применённый ответ; false, если его ещё не было.
func (q *Query) Result() (models.Listing, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.result == nil {
		return models.Listing{}, false
	}

	return *q.result, true
}

// TotalPages — из последнего ответа бэкенда; 1 до первого ответа.
func (q *Query) TotalPages() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.result == nil {
		return 1
	}

	return q.result.TotalPages
}

// Fetch запрашивает страницу по текущим параметрам. Сетевой вызов идёт вне
// блокировки; устаревший ответ не применяется и возвращается ErrSuperseded.
func (q *Query) Fetch(ctx context.Context) (models.Listing, error) {
	const op = "directory.Fetch"

	q.mu.Lock()
	p := q.params
	q.issued++
	gen := q.issued
	q.mu.Unlock()

	res, err := q.lister.ListCompanies(ctx, models.CompanyListParams{
		Page:      p.Page,
		PerPage:   p.PageSize,
		RegionID:  p.RegionID,
		ServiceID: p.ServiceID,
	})
	if err != nil {
		return models.Listing{}, fmt.Errorf("%s: %w", op, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.params != p || gen < q.committed {
		return models.Listing{}, fmt.Errorf("%s: %w", op, ErrSuperseded)
	}

	q.result = &res
	q.committed = gen
	q.due = false

	return res, nil
}

// VisibleItems — элементы последнего ответа, отфильтрованные по свободному
// тексту как он введён (подстрока в имени или описании без учёта регистра).
func (q *Query) VisibleItems() []models.Company {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.result == nil {
		return []models.Company{}
	}

	needle := strings.ToLower(q.freeText)
	if needle == "" {
		out := make([]models.Company, len(q.result.Items))
		copy(out, q.result.Items)
		return out
	}

	out := make([]models.Company, 0, len(q.result.Items))
	for _, c := range q.result.Items {
		if matches(c, needle) {
			out = append(out, c)
		}
	}

	return out
}

func matches(c models.Company, needle string) bool {
	if strings.Contains(strings.ToLower(c.Name), needle) {
		return true
	}

	return c.Description != nil && strings.Contains(strings.ToLower(*c.Description), needle)
}
