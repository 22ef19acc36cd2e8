package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tamales-preorder/internal/application/notification"
	"github.com/tamales-preorder/internal/application/order"
	"github.com/tamales-preorder/internal/application/user"
	"github.com/tamales-preorder/internal/config"
	"github.com/tamales-preorder/internal/transport/http/handler"
	appmiddleware "github.com/tamales-preorder/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// background work of the rate limiter.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Preflight)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	userSvc := user.NewService(user.ServiceDeps{
		UserRepo: deps.UserRepo,
		CodeTTL:  cfg.VerificationCodeTTL,
	})
	orderSvc := order.NewService(order.ServiceDeps{
		OrderRepo:      deps.OrderRepo,
		InventoryRepo:  deps.InventoryRepo,
		TrackInventory: cfg.TrackInventory,
	})
	notifDeps := notification.ServiceDeps{
		Mailer:        deps.Mailer,
		AdminEmail:    cfg.AdminEmail,
		StoreName:     cfg.StoreName,
		PickupDetails: cfg.PickupDetails,
	}
	if deps.SMSSender != nil {
		notifDeps.SMSSender = deps.SMSSender
	}
	notifSvc := notification.NewService(notifDeps)

	emailRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.EmailRateLimit), cfg.EmailRateBurst)

	healthH := handler.NewHealthHandler()
	apiH := handler.NewAPIHandler(userSvc, orderSvc, notifSvc, emailRL)

	r.Get("/health-check/{action}", healthH.Ping)

	r.Route("/api", func(r chi.Router) {
		// Unmatched methods reach the dispatcher and get its 400.
		r.HandleFunc("/", apiH.Dispatch)

		r.Get("/users", apiH.Action("getUser"))
		r.Post("/users", apiH.Action("createUser"))
		r.Put("/users/verification", apiH.Action("updateVerification"))
		r.Post("/users/verify", apiH.Action("verifyUser"))
	})

	return r
}
