package api

import (
	"reservily/internal/config"     // Application configuration
	"reservily/internal/domain"     // Roles
	"reservily/internal/middleware" // Middleware
	"reservily/internal/notify"     // Notifications
	"reservily/internal/storage"    // Proof uploads

	"github.com/gin-contrib/cors"                             // CORS middleware
	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus"          // Metrics registry
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"github.com/redis/go-redis/v9"                            // Redis client
	"github.com/sirupsen/logrus"                              // Logging library
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps are the collaborators the HTTP layer needs
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Config   *config.Config
	Notifier notify.Notifier      // nil disables notifications
	Uploader storage.Uploader     // nil disables proof uploads
	Registry *prometheus.Registry // nil creates a private registry
}

// NewRouter wires every route of the API
func NewRouter(deps Deps) *gin.Engine {
	RegisterValidators()
	cfg := deps.Config
	db, rdb, n := deps.DB, deps.Redis, deps.Notifier
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := gin.New()
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(),
		middleware.ErrorHandler(!cfg.IsProd),
		middleware.Metrics(reg),
		cors.New(corsConfig(cfg.ClientURL)),
	)

	r.GET("/health", HealthHandler())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.NoRoute(middleware.NotFound())

	protect := middleware.Protect(db, cfg.JWTSecret)
	doctorOnly := middleware.Authorize(domain.RoleDoctor)
	patientOnly := middleware.Authorize(domain.RolePatient)
	subscribed := middleware.RequireActiveSubscription(db)

	apiGroup := r.Group("/api")

	// Auth routes
	auth := apiGroup.Group("/auth")
	if rdb != nil {
		auth.Use(middleware.RateLimit(rdb, "auth", cfg.AuthRateLimit, cfg.AuthRateWindow))
	}
	auth.POST("/register", RegisterHandler(db, cfg))
	auth.POST("/login", LoginHandler(db, cfg))
	auth.GET("/me", protect, MeHandler(db))
	auth.PUT("/change-password", protect, ChangePasswordHandler(db))

	// Doctor routes; the listing is public, the rest needs a doctor account
	doctors := apiGroup.Group("/doctors")
	doctors.GET("", ListDoctorsHandler(db, rdb))
	doctors.GET("/:id", GetDoctorHandler(db))
	doctors.GET("/:id/slots", DoctorSlotsHandler(db, cfg.SlotMinutes))

	doctor := doctors.Group("", protect, doctorOnly)
	doctor.GET("/me/subscription", SubscriptionInfoHandler(db, cfg))
	doctor.POST("/payment-proof", SubmitPaymentProofHandler(db, rdb))
	doctor.POST("/payment-proof/upload", UploadPaymentProofHandler(db, deps.Uploader))
	doctor.GET("/me/payment-submissions", MyPaymentSubmissionsHandler(db))
	doctor.GET("/me/payment-submissions/:id/receipt", PaymentReceiptHandler(db, cfg))
	doctor.PUT("/profile", UpdateDoctorProfileHandler(db, rdb))

	listed := doctor.Group("", subscribed)
	listed.GET("/me/availability", MyAvailabilityHandler(db))
	listed.POST("/availability", SetAvailabilityHandler(db, rdb))
	listed.DELETE("/availability/:dayOfWeek", DeleteAvailabilityHandler(db, rdb))
	listed.GET("/me/appointments", DoctorAppointmentsHandler(db))

	// Patient routes
	patients := apiGroup.Group("/patients", protect, patientOnly)
	patients.GET("/profile", PatientProfileHandler())
	patients.PUT("/profile", UpdatePatientProfileHandler(db))
	patients.GET("/appointments", PatientAppointmentsHandler(db))

	// Appointment routes
	appointments := apiGroup.Group("/appointments", protect)
	appointments.POST("", patientOnly, BookAppointmentHandler(db, n, cfg.SlotMinutes))
	appointments.GET("/:id", GetAppointmentHandler(db))
	appointments.PATCH("/:id/cancel", patientOnly, CancelAppointmentHandler(db, n))
	appointments.PATCH("/:id/approve", doctorOnly, subscribed, ApproveAppointmentHandler(db, n))
	appointments.PATCH("/:id/reject", doctorOnly, subscribed, RejectAppointmentHandler(db, n))

	// Admin routes (protected, admin only)
	admin := apiGroup.Group("/admin", protect, middleware.Authorize(domain.RoleAdmin))
	admin.GET("/stats", StatsHandler(db, rdb))
	admin.GET("/users", ListUsersHandler(db))
	admin.GET("/users/:id", GetUserHandler(db))
	admin.PATCH("/users/:id/suspend", SuspendUserHandler(db, rdb))
	admin.PATCH("/users/:id/activate", ActivateUserHandler(db, rdb))
	admin.GET("/payment-submissions", ListPaymentSubmissionsHandler(db))
	admin.POST("/payment-submissions/:id/verify", VerifyPaymentHandler(db, rdb, n, cfg))
	admin.POST("/payment-submissions/:id/reject", RejectPaymentHandler(db, rdb, n))
	admin.GET("/appointments", ListAppointmentsHandler(db))

	return r
}

func corsConfig(origin string) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization")
	if origin == "" || origin == "*" {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = []string{origin}
	cc.AllowCredentials = true
	return cc
}
