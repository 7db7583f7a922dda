package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/tuition-portal/internal/middleware"
	"github.com/mmeshcher/tuition-portal/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware портала.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/health", h.Health)

	r.Post("/webhook", h.Webhook)
	r.Post("/stripe/webhook", h.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.Middleware(h.service, h.logger))

		r.With(h.gate.Require(custommiddleware.Roles(model.RoleAdmin))).
			Handle("/metrics", promhttp.Handler())

		r.Get("/", h.Index)
		r.Get("/tuition", h.Tuition)
		r.Get("/faq", h.FAQ)
		r.Get("/contact", h.ContactForm)
		r.Post("/contact", h.SubmitContact)

		r.Get("/register", h.RegisterForm)
		r.Post("/register", h.Register)
		r.Get("/login", h.LoginForm)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Get("/checkout/{tariffID}", h.Checkout)
		r.Get("/payment/success", h.PaymentSuccess)
		r.Get("/payment/cancel", h.PaymentCancel)
		r.Get("/payment/receipt", h.SessionReceipt)
		r.Get("/success", h.PaymentSuccess)
		r.Get("/cancel", h.PaymentCancel)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(custommiddleware.Authenticated()))

			r.Get("/dashboard", h.Dashboard)
			r.Get("/dashboard/profile", h.ProfileForm)
			r.Post("/dashboard/profile", h.UpdateProfile)
			r.Get("/dashboard/documents", h.Documents)
			r.Get("/receipts/{paymentID}", h.DownloadReceipt)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.gate.Require(custommiddleware.Roles(model.RoleAdmin, model.RoleManager)))

			r.Get("/", h.AdminIndex)
			r.Get("/stats", h.AdminStats)
			r.Get("/payments", h.AdminPayments)
			r.Get("/payments/{paymentID}/receipt", h.AdminDownloadReceipt)
			r.Get("/contacts", h.AdminContacts)

			r.Group(func(r chi.Router) {
				r.Use(h.gate.Require(custommiddleware.Roles(model.RoleAdmin)))

				r.Post("/payments/{paymentID}/receipt", h.RegenerateReceipt)
				r.Post("/payments/{paymentID}/delete", h.DeletePayment)

				r.Get("/tariffs", h.AdminTariffs)
				r.Get("/tariffs/new", h.NewTariffForm)
				r.Post("/tariffs", h.CreateTariff)
				r.Get("/tariffs/{tariffID}/edit", h.EditTariffForm)
				r.Post("/tariffs/{tariffID}", h.UpdateTariff)
				r.Post("/tariffs/{tariffID}/delete", h.DeleteTariff)

				r.Get("/users", h.AdminUsers)
				r.Post("/users/{userID}/role", h.SetUserRole)

				r.Get("/exports", h.AdminExports)
				r.Get("/export/xlsx", h.ExportXLSX)
				r.Get("/export/csv", h.ExportCSV)
				r.Get("/export/docx", h.ExportDOCX)
			})
		})

		r.NotFound(h.NotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
