package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/waste-directory/internal/guard"
	"github.com/pribylovaa/waste-directory/internal/http/handlers"
	"github.com/pribylovaa/waste-directory/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, g *guard.Guard, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования
		middleware.Logging(opts.Logger),
		middleware.NoStore(),
		middleware.RequireJSON(),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	root.NotFound(h.NotFound)
	root.MethodNotAllowed(h.MethodNotAllowed)

	// Все view видят сессию только после restore.
	root.Group(func(r chi.Router) {
		r.Use(g.AwaitReady)
		registerRoutes(r, h, g)
	})

	return root
}

// registerRoutes — единая точка регистрации всех view.
func registerRoutes(r chi.Router, h *handlers.Handlers, g *guard.Guard) {
	r.Get("/", h.Home)
	r.Get("/session", h.SessionInfo)

	// auth
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterPage)
	r.Post("/register", h.Register)
	r.Post("/logout", h.Logout)

	// companies
	r.Get("/companies", h.ListCompanies)
	r.Get("/companies/{id}", h.GetCompany)

	r.Group(func(r chi.Router) {
		r.Use(g.Protect)

		r.Get("/companies/create", h.NewCompanyForm)
		r.Post("/companies/create", h.CreateCompany)
		r.Get("/companies/{id}/edit", h.EditCompanyForm)
		r.Post("/companies/{id}/edit", h.UpdateCompany)
		r.Post("/companies/{id}/delete", h.DeleteCompany)
	})
}
