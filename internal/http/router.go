package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/middleware"
)

type Deps struct {
	Logger *zap.Logger
	Auth   *middleware.Auth

	AuthHandler    *AuthHandler
	ProductHandler *ProductHandler
	ArticleHandler *ArticleHandler
	EventHandler   *EventHandler
	CartHandler    *CartHandler
	OrderHandler   *OrderHandler

	UploadDir        string
	CORSAllowOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recover(d.Logger))
	r.Use(middleware.CORS(d.CORSAllowOrigins))
	r.Use(middleware.Logging(d.Logger))

	r.Get("/api/health", healthHandler)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/sign-up", d.AuthHandler.SignUp)
		r.Post("/sign-in", d.AuthHandler.SignIn)
		r.Post("/sign-out", d.AuthHandler.SignOut)
		r.With(d.Auth.RequireUser).Get("/session", d.AuthHandler.Session)
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", d.ProductHandler.List)
		r.Get("/{id}", d.ProductHandler.Get)
		r.With(d.Auth.RequireAdmin).Post("/", d.ProductHandler.Create)
		r.With(d.Auth.RequireAdmin).Put("/{id}", d.ProductHandler.Update)
		r.With(d.Auth.RequireAdmin).Delete("/{id}", d.ProductHandler.Delete)
	})

	r.Route("/api/articles", func(r chi.Router) {
		r.With(d.Auth.OptionalUser).Get("/", d.ArticleHandler.List)
		r.Get("/{id}", d.ArticleHandler.Get)
		r.With(d.Auth.RequireAdmin).Post("/", d.ArticleHandler.Create)
		r.With(d.Auth.RequireAdmin).Put("/{id}", d.ArticleHandler.Update)
		r.With(d.Auth.RequireAdmin).Delete("/{id}", d.ArticleHandler.Delete)
	})

	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", d.EventHandler.List)
		r.Get("/{id}", d.EventHandler.Get)
		r.With(d.Auth.RequireAdmin).Post("/", d.EventHandler.Create)
		r.With(d.Auth.RequireAdmin).Put("/{id}", d.EventHandler.Update)
		r.With(d.Auth.RequireAdmin).Delete("/{id}", d.EventHandler.Delete)
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(d.Auth.RequireUser)
		r.Get("/", d.CartHandler.Get)
		r.Post("/", d.CartHandler.Add)
		r.Put("/{id}", d.CartHandler.UpdateQuantity)
		r.Delete("/{id}", d.CartHandler.Remove)
		r.Delete("/", d.CartHandler.Clear)
	})

	r.Route("/api/orders", func(r chi.Router) {
		// Provider-initiated; must stay unauthenticated.
		r.Post("/webhook", d.OrderHandler.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.RequireUser)
			r.Get("/", d.OrderHandler.List)
			r.Get("/{id}", d.OrderHandler.Get)
			r.Post("/", d.OrderHandler.Create)
			r.Post("/{id}/verify-payment", d.OrderHandler.VerifyPayment)
			r.With(d.Auth.RequireAdmin).Put("/{id}/status", d.OrderHandler.UpdateStatus)
		})
	})

	if d.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
