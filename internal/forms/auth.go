package forms

import (
	"strings"

	"github.com/pribylovaa/waste-directory/internal/models"
)

var loginMessages = map[string]string{
	"email.not_blank":   "Email is required",
	"email.loose_email": "Email is invalid",
	"password.required": "Password is required",
}

var registerMessages = map[string]string{
	"username.not_blank":       "Username is required",
	"username.min":             "Username must be at least 3 characters",
	"email.not_blank":          "Email is required",
	"email.loose_email":        "Email is invalid",
	"password.required":        "Password is required",
	"password.min":             "Password must be at least 6 characters",
	"confirm_password.eqfield": "Passwords do not match",
}

type LoginForm struct {
	Email    string `json:"email" validate:"not_blank,loose_email"`
	Password string `json:"password" validate:"required"`
}

// Validate проверяет те же значения, что уйдут в Credentials.
func (f LoginForm) Validate() error {
	n := f.normalized()
	return check(&n, loginMessages)
}

func (f LoginForm) Credentials() models.Credentials {
	n := f.normalized()
	return models.Credentials{Email: n.Email, Password: n.Password}
}

func (f LoginForm) normalized() LoginForm {
	f.Email = strings.TrimSpace(f.Email)
	return f
}

// RegisterForm — пароль не обрезается: пробелы в нём значимы.
type RegisterForm struct {
	Username        string `json:"username" validate:"not_blank,min=3"`
	Email           string `json:"email" validate:"not_blank,loose_email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

// Validate проверяет обрезанные username и email: длина считается по тому, что уйдёт в Profile.
func (f RegisterForm) Validate() error {
	n := f.normalized()
	return check(&n, registerMessages)
}

func (f RegisterForm) Profile() models.Profile {
	n := f.normalized()
	return models.Profile{Username: n.Username, Email: n.Email, Password: n.Password}
}

func (f RegisterForm) normalized() RegisterForm {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	return f
}
