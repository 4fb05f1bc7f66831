package forms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pribylovaa/waste-directory/internal/models"
)

var companyMessages = map[string]string{
	"name.not_blank":     "Company name is required",
	"region_id.required": "Region is required",
	"region_id.gt":       "Region is required",
	"email.loose_email":  "Invalid email address",
	"website.site_url":   "Invalid website URL",
}

// Year — необязательный год основания. Из JSON принимает число, строку или null;
// нечисловое значение превращается в "не задано".
type Year struct {
	v *int
}

func YearOf(n int) Year { return Year{v: &n} }

// ParseYear — разбор пользовательского ввода. Пустое и нечисловое — не задано.
func ParseYear(s string) Year {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return Year{}
	}
	return YearOf(n)
}

func (y Year) Int() (int, bool) {
	if y.v == nil {
		return 0, false
	}
	return *y.v, true
}

func (y Year) ptr() *int {
	if y.v == nil {
		return nil
	}
	n := *y.v
	return &n
}

func (y *Year) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	switch {
	case bytes.Equal(b, []byte("null")):
		*y = Year{}
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*y = ParseYear(s)
	default:
		*y = ParseYear(string(b))
	}

	return nil
}

func (y Year) MarshalJSON() ([]byte, error) {
	if y.v == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(*y.v)), nil
}

// CompanyDraft — редактируемые поля компании.
type CompanyDraft struct {
	Name        string  `json:"name" validate:"not_blank"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email" validate:"omitempty,loose_email"`
	Website     string  `json:"website" validate:"omitempty,site_url"`
	FoundedYear Year    `json:"founded_year"`
	LogoURL     string  `json:"logo_url"`
	RegionID    int64   `json:"region_id" validate:"required,gt=0"`
	ServiceIDs  []int64 `json:"service_ids"`
}

// Normalized — копия с обрезанными пробелами строками и непустым service_ids.
func (d CompanyDraft) Normalized() CompanyDraft {
	out := d
	out.Name = strings.TrimSpace(d.Name)
	out.Description = strings.TrimSpace(d.Description)
	out.Address = strings.TrimSpace(d.Address)
	out.Phone = strings.TrimSpace(d.Phone)
	out.Email = strings.TrimSpace(d.Email)
	out.Website = strings.TrimSpace(d.Website)
	out.LogoURL = strings.TrimSpace(d.LogoURL)

	out.ServiceIDs = make([]int64, len(d.ServiceIDs))
	copy(out.ServiceIDs, d.ServiceIDs)

	return out
}

// Validate проверяет все поля и возвращает все ошибки сразу.
func (d CompanyDraft) Validate() error {
	n := d.Normalized()
	return check(&n, companyMessages)
}

// Payload — тело create/update.
func (d CompanyDraft) Payload() models.CompanyFormData {
	n := d.Normalized()

	return models.CompanyFormData{
		Name:        n.Name,
		Description: n.Description,
		Address:     n.Address,
		Phone:       n.Phone,
		Email:       n.Email,
		Website:     n.Website,
		FoundedYear: n.FoundedYear.ptr(),
		LogoURL:     n.LogoURL,
		RegionID:    n.RegionID,
		ServiceIDs:  n.ServiceIDs,
	}
}

// DraftFromCompany заполняет черновик из карточки (форма редактирования).
func DraftFromCompany(c *models.Company) CompanyDraft {
	if c == nil {
		return CompanyDraft{ServiceIDs: []int64{}}
	}

	d := CompanyDraft{
		Name:        c.Name,
		Description: deref(c.Description),
		Address:     deref(c.Address),
		Phone:       deref(c.Phone),
		Email:       deref(c.Email),
		Website:     deref(c.Website),
		LogoURL:     deref(c.LogoURL),
		RegionID:    c.Region.ID,
		ServiceIDs:  make([]int64, 0, len(c.Services)),
	}
	if c.FoundedYear != nil {
		d.FoundedYear = YearOf(*c.FoundedYear)
	}
	for _, s := range c.Services {
		d.ServiceIDs = append(d.ServiceIDs, s.ID)
	}

	return d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CompanyWriter — create/update на бэкенде.
type CompanyWriter interface {
	CreateCompany(ctx context.Context, data models.CompanyFormData) (*models.Company, error)
	UpdateCompany(ctx context.Context, id int64, data models.CompanyFormData) (*models.Company, error)
}

// CompanyForm — форма создания (ID == 0) или редактирования компании.
type CompanyForm struct {
	ID    int64
	Draft CompanyDraft
}

// Submit валидирует черновик и, только если ошибок нет, отправляет его.
// Ошибки бэкенда возвращаются без изменений вида.
func (f CompanyForm) Submit(ctx context.Context, w CompanyWriter) (*models.Company, error) {
	const op = "forms.CompanyForm.Submit"

	if err := f.Draft.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	payload := f.Draft.Payload()

	var (
		c   *models.Company
		err error
	)
	if f.ID == 0 {
		c, err = w.CreateCompany(ctx, payload)
	} else {
		c, err = w.UpdateCompany(ctx, f.ID, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}
