package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter mounts every route. allowedOrigins configures CORS; "*" allows
// any origin.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", h.root)

	r.Group(func(r chi.Router) {
		r.Use(h.databaseGate)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/otp-service/health", h.otpHealth)
			r.Get("/logout-status", h.logoutStatus)

			r.Group(func(r chi.Router) {
				r.Use(h.rateLimit("auth"))
				r.Post("/register", h.register)
				r.Post("/login", h.login)
				r.Post("/send-email-otp", h.sendOTP)
				r.Post("/verify-email-otp", h.verifyOTP)
				r.Post("/resend-email-otp", h.resendOTP)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.authenticate)
				r.Get("/verify", h.verify)
				r.Post("/logout", h.logout)
				r.Post("/logout-all-devices", h.logoutAll)
				r.Get("/getuserprofile", h.getProfile)
				r.Put("/updateuserprofile", h.updateProfile)
				r.Put("/updateuserpassword", h.updatePassword)
				r.Put("/updateuserstatus", h.updateStatus)
			})
		})

		r.Route("/restaurants", func(r chi.Router) {
			r.Get("/", h.listRestaurants)
			r.Group(func(r chi.Router) {
				r.Use(h.authenticate)
				r.Post("/", h.createRestaurant)
				r.Get("/mine", h.myRestaurant)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
