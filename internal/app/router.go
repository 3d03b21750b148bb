package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwanyu/marketplace/internal/access"
	"github.com/iwanyu/marketplace/internal/app/handlers"
	"github.com/iwanyu/marketplace/internal/jwt-new/jwtmiddleware"
	"github.com/iwanyu/marketplace/internal/lib/logger/handlers/urllog"
	"github.com/iwanyu/marketplace/internal/service"
)

// Deps сервисы и инфраструктура, которые обслуживает HTTP API
type Deps struct {
	JWTSecret   string
	Revocations jwtmiddleware.RevocationChecker
	Resolver    service.RoleResolverInterface

	Auth      service.AuthServiceInterface
	Vendors   service.VendorServiceInterface
	Products  service.ProductServiceInterface
	Orders    service.OrderServiceInterface
	Payouts   service.PayoutServiceInterface
	Messages  service.MessageServiceInterface
	Dashboard service.DashboardServiceInterface
	Profiles  service.ProfileServiceInterface

	Files  handlers.FileStore
	Health map[string]handlers.Pinger
}

// NewRouter собирает маршруты. Доступ по деревьям путей решает access.Guard,
// поэтому группы ниже не содержат собственных проверок ролей
func NewRouter(log *slog.Logger, d Deps) http.Handler {
	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(jwtmiddleware.NewJWTMiddleware(log, d.JWTSecret, d.Revocations))
	router.Use(access.Guard(log, d.Resolver))

	router.Get("/healthz", handlers.HealthHandler(log, d.Health))
	router.Get("/files/{bucket}/*", handlers.FileHandler(log, d.Files))

	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", handlers.SignUpHandler(log, d.Auth))
		r.Post("/signin", handlers.SignInHandler(log, d.Auth))
		r.Post("/signout", handlers.SignOutHandler(log, d.Auth))
		r.Get("/session", handlers.SessionHandler(log, d.Auth))
		r.Post("/password-reset", handlers.PasswordResetRequestHandler(log, d.Auth))
		r.Post("/password-reset/confirm", handlers.PasswordResetHandler(log, d.Auth))
	})

	// витрина для покупателей
	router.Route("/api/store", func(r chi.Router) {
		r.Get("/products", handlers.CatalogHandler(log, d.Products))
		r.Post("/orders", handlers.CheckoutHandler(log, d.Orders))
	})

	router.Route("/api/me", func(r chi.Router) {
		r.Get("/", handlers.MeHandler(log))
		r.Get("/vendor", handlers.MyVendorHandler(log, d.Vendors))
		r.Post("/vendor", handlers.RegisterVendorHandler(log, d.Vendors))
	})

	router.Route("/api/messages", func(r chi.Router) {
		r.Get("/", handlers.InboxHandler(log, d.Messages))
		r.Post("/", handlers.SendMessageHandler(log, d.Messages))
		r.Get("/unread", handlers.UnreadCountHandler(log, d.Messages))
		r.Get("/contacts", handlers.ContactsHandler(log, d.Messages))
		r.Get("/stream", handlers.MessageStreamHandler(log, d.Messages))
		r.Get("/with/{peerID}", handlers.ConversationHandler(log, d.Messages))
		r.Post("/{id}/read", handlers.MarkReadHandler(log, d.Messages))
	})

	router.Route("/api/uploads/{bucket}", func(r chi.Router) {
		r.Get("/", handlers.ListUploadsHandler(log, d.Files))
		r.Post("/", handlers.UploadHandler(log, d.Files))
	})

	router.Route("/api/vendor", func(r chi.Router) {
		r.Get("/dashboard", handlers.VendorDashboardHandler(log, d.Dashboard))
		r.Get("/dashboard/sales", handlers.VendorSalesHandler(log, d.Dashboard))

		r.Get("/products", handlers.ListOwnProductsHandler(log, d.Products))
		r.Post("/products", handlers.CreateProductHandler(log, d.Products))
		r.Put("/products/{id}", handlers.UpdateProductHandler(log, d.Products))
		r.Delete("/products/{id}", handlers.DeleteProductHandler(log, d.Products))
		r.Post("/products/{id}/submit", handlers.SubmitProductHandler(log, d.Products))
		r.Post("/products/{id}/archive", handlers.ArchiveProductHandler(log, d.Products))

		r.Get("/orders", handlers.ListOwnOrdersHandler(log, d.Orders))
		r.Get("/orders/{id}", handlers.GetOwnOrderHandler(log, d.Orders))
		r.Patch("/orders/{id}/status", handlers.UpdateOrderStatusHandler(log, d.Orders))

		r.Get("/balance", handlers.BalanceHandler(log, d.Payouts))
		r.Get("/payouts", handlers.ListOwnPayoutsHandler(log, d.Payouts))
		r.Post("/payouts", handlers.RequestPayoutHandler(log, d.Payouts))
	})

	router.Route("/api/admin", func(r chi.Router) {
		r.Get("/dashboard", handlers.AdminDashboardHandler(log, d.Dashboard))
		r.Get("/dashboard/sales", handlers.AdminSalesHandler(log, d.Dashboard))

		r.Get("/vendors", handlers.ListVendorsHandler(log, d.Vendors))
		r.Post("/vendors/{id}/approve", handlers.ApproveVendorHandler(log, d.Vendors))
		r.Post("/vendors/{id}/reject", handlers.RejectVendorHandler(log, d.Vendors))
		r.Post("/vendors/{id}/suspend", handlers.SuspendVendorHandler(log, d.Vendors))

		r.Get("/products", handlers.AdminListProductsHandler(log, d.Products))
		r.Post("/products/{id}/approve", handlers.ApproveProductHandler(log, d.Products))
		r.Post("/products/{id}/reject", handlers.RejectProductHandler(log, d.Products))

		r.Get("/orders", handlers.AdminListOrdersHandler(log, d.Orders))
		r.Get("/orders/export", handlers.ExportOrdersHandler(log, d.Orders))
		r.Patch("/orders/{id}/payment", handlers.UpdatePaymentStatusHandler(log, d.Orders))

		r.Get("/payouts", handlers.AdminListPayoutsHandler(log, d.Payouts))
		r.Post("/payouts/{id}/approve", handlers.ApprovePayoutHandler(log, d.Payouts))
		r.Post("/payouts/{id}/reject", handlers.RejectPayoutHandler(log, d.Payouts))
		r.Post("/payouts/{id}/complete", handlers.CompletePayoutHandler(log, d.Payouts))

		r.Get("/profiles", handlers.AdminListProfilesHandler(log, d.Profiles))
		r.Post("/profiles/{id}/deactivate", handlers.DeactivateProfileHandler(log, d.Profiles))
		r.Post("/profiles/{id}/activate", handlers.ActivateProfileHandler(log, d.Profiles))

		r.Post("/announcements", handlers.AnnounceHandler(log, d.Messages))
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})

	return router
}
