package models

type Region struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Service struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Company — карточка компании в каталоге. Nullable-поля бэкенда — указатели.
type Company struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Address     *string   `json:"address"`
	Phone       *string   `json:"phone"`
	Email       *string   `json:"email"`
	Website     *string   `json:"website"`
	FoundedYear *int      `json:"founded_year"`
	LogoURL     *string   `json:"logo_url"`
	Region      Region    `json:"region"`
	Services    []Service `json:"services"`
	UserID      int64     `json:"user_id"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

// OwnedBy — принадлежит ли компания пользователю (nil — аноним, не владелец).
func (c *Company) OwnedBy(id *Identity) bool {
	return c != nil && id != nil && c.UserID == id.ID
}

// CompanyFormData — тело POST/PUT /api/companies.
// Строки отправляются всегда: пустая строка на PUT очищает поле.
// founded_year опускается, если год не задан.
type CompanyFormData struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	Website     string  `json:"website"`
	FoundedYear *int    `json:"founded_year,omitempty"`
	LogoURL     string  `json:"logo_url"`
	RegionID    int64   `json:"region_id"`
	ServiceIDs  []int64 `json:"service_ids"`
}

// CompanyMutationResponse — ответ create/update.
type CompanyMutationResponse struct {
	Message string   `json:"message"`
	Company *Company `json:"company"`
}
