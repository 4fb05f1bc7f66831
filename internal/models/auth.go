// Модели REST-бэкенда каталога: wire-формат запросов и ответов.
package models

// Identity — профиль аутентифицированного пользователя.
// Метки времени — строки в формате бэкенда, клиент их только отображает.
type Identity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Credentials — тело POST /api/auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile — тело POST /api/auth/register.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse — ответ login/register.
type AuthResponse struct {
	User        *Identity `json:"user"`
	AccessToken string    `json:"access_token"`
}

// Complete — в ответе есть и пользователь, и токен.
func (r *AuthResponse) Complete() bool {
	return r != nil && r.User != nil && r.AccessToken != ""
}
