package httpapi

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/admin"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

const (
	sessionName           = "storefront_session"
	sessionMaxAge         = 24 * time.Hour
	defaultMaxUploadBytes = 5 << 20
)

// Config задаёт параметры REST API.
type Config struct {
	UploadDir      string
	SessionSecret  string
	SecureCookies  bool
	MaxUploadBytes int64
	// Backend и Version попадают в ответ /api/health.
	Backend string
	Version string
}

// Dependencies — сервисы, которые обслуживает REST API.
type Dependencies struct {
	Repositories domain.Repositories
	Checkout     *checkout.Service
	Admin        *admin.Service
	Payments     payment.Gateway
	Logger       *log.Entry
}

// Server держит зависимости обработчиков.
type Server struct {
	repos    domain.Repositories
	checkout *checkout.Service
	admin    *admin.Service
	payments payment.Gateway
	validate *validator.Validate
	logger   *log.Entry
	cfg      Config
}

// NewRouter собирает gin.Engine со всеми маршрутами /api и статикой /uploads.
func NewRouter(deps Dependencies, cfg Config) (*gin.Engine, error) {
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}
	if cfg.UploadDir == "" {
		return nil, errors.New("upload dir is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}

	s := &Server{
		repos:    deps.Repositories,
		checkout: deps.Checkout,
		admin:    deps.Admin,
		payments: deps.Payments,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.Use(gin.Recovery(), s.requestLogger())
	router.Use(sessions.Sessions(sessionName, store))
	router.Static("/uploads", cfg.UploadDir)
	router.NoRoute(func(c *gin.Context) {
		respondFailure(c, http.StatusNotFound, "Route not found")
	})

	api := router.Group("/api")
	api.GET("/health", s.health)

	products := api.Group("/products")
	products.GET("", s.listProducts)
	products.GET("/categories", s.listCategories)
	products.GET("/:id", s.getProduct)
	products.POST("", s.requireAdmin(), s.createProduct)
	products.PUT("/:id", s.requireAdmin(), s.updateProduct)
	products.DELETE("/:id", s.requireAdmin(), s.deleteProduct)

	orders := api.Group("/orders")
	orders.POST("", s.createOrder)
	orders.GET("/:id", s.getOrder)

	payments := api.Group("/payments")
	payments.POST("/create-order", s.createPaymentOrder)
	payments.POST("/verify", s.verifyPayment)

	adminGroup := api.Group("/admin")
	adminGroup.POST("/login", s.login)
	adminGroup.GET("/status", s.status)

	protected := adminGroup.Group("", s.requireAdmin())
	protected.POST("/logout", s.logout)
	protected.GET("/customers", s.listCustomers)
	protected.GET("/orders", s.listOrders)
	protected.GET("/stats", s.stats)
	protected.GET("/export/orders", s.exportOrders)
	protected.GET("/export/customers", s.exportCustomers)

	return router, nil
}

func (s *Server) health(c *gin.Context) {
	respond(c, http.StatusOK, "Server is running", gin.H{
		"backend":   s.cfg.Backend,
		"version":   s.cfg.Version,
		"timestamp": time.Now().UTC(),
	})
}

// requestLogger пишет одну строку logrus на запрос.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		s.logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(started).String(),
		}).Debug("http request")
	}
}
