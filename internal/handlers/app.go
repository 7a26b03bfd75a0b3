package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"

	"fintrack/internal/apperror"
	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/events"
	"fintrack/internal/mail"
	"fintrack/internal/middleware"
)

const bodyLimit = 8 << 20

// Deps are the services every request can reach through c.Locals.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Mailer  mail.Mailer
	Events  events.Publisher
	Storage fiber.Storage

	// Now overrides the clock of the session and transaction services.
	Now func() time.Time
}

// NewApp builds the fiber application with the full middleware stack and
// every route registered.
func NewApp(deps Deps) *fiber.App {
	cfg := deps.Config

	app := fiber.New(fiber.Config{
		AppName:      "fintrack",
		BodyLimit:    bodyLimit,
		ErrorHandler: apperror.Handler(cfg.IsProduction()),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.Env != config.EnvTest {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(compress.New())

	hstsMaxAge := 0
	if cfg.IsProduction() {
		hstsMaxAge = 31_536_000
	}
	app.Use(helmet.New(helmet.Config{HSTSMaxAge: hstsMaxAge}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	if cfg.CookieSecret != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{Key: cfg.CookieSecret}))
	}

	app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(c *fiber.Ctx) bool {
			sqlDB, err := deps.DB.DB()
			if err != nil {
				return false
			}
			return sqlDB.PingContext(c.UserContext()) == nil
		},
	}))
	app.Use(middleware.RobotsMiddleware)

	SetupRoutes(app, deps)

	return app
}

func SetupRoutes(app *fiber.App, deps Deps) {
	cfg := deps.Config
	signer := auth.NewSigner(cfg)
	if deps.Now != nil {
		signer = signer.WithClock(deps.Now)
	}

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("db", deps.DB)
		c.Locals("signer", signer)
		if deps.Mailer != nil {
			c.Locals("mailer", deps.Mailer)
		}
		if deps.Events != nil {
			c.Locals("events", deps.Events)
		}
		if deps.Storage != nil {
			c.Locals("storage", deps.Storage)
		}
		if deps.Now != nil {
			c.Locals("clock", deps.Now)
		}
		return c.Next()
	})

	api := app.Group("/api")

	if !cfg.IsProduction() {
		api.Get("/diag/client", GetClientInfo)
	}

	authGroup := api.Group("/auth")
	if cfg.AuthRateLimit > 0 {
		authGroup.Use(limiter.New(limiter.Config{
			Max:        cfg.AuthRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return apperror.New(apperror.TooManyRequests, "Too many requests, please try again later")
			},
		}))
	}
	authGroup.Post("/register", Register)
	authGroup.Post("/login", Login)
	authGroup.Post("/refresh-token", RefreshToken)
	authGroup.Post("/forgot-password", ForgotPassword)
	authGroup.Post("/reset-password", ResetPassword)
	authGroup.Post("/logout", Logout)
	authGroup.Get("/sessions", middleware.AuthMiddleware, ListSessions)
	authGroup.Delete("/sessions/:id", middleware.AuthMiddleware, RevokeSession)

	users := api.Group("/users", middleware.AuthMiddleware)
	users.Get("/me", GetCurrentUser)
	users.Patch("/me", UpdateCurrentUser)
	users.Get("/all", middleware.AdminMiddleware, GetAllUsers)
	users.Get("/email", middleware.AdminMiddleware, GetUserByEmail)
	users.Get("/:id", middleware.AdminMiddleware, GetUserByID)
	users.Patch("/:id", middleware.AdminMiddleware, UpdateUserByID)

	categories := api.Group("/trans-categories", middleware.AuthMiddleware)
	categories.Post("/create", CreateCategory)
	categories.Get("/", ListCategories)
	categories.Patch("/:id", UpdateCategory)
	categories.Delete("/:id", DeleteCategory)

	trans := api.Group("/trans", middleware.AuthMiddleware)
	trans.Post("/", CreateTransaction)
	trans.Get("/all", ListTransactions)
	trans.Get("/list-by-date-range", ListTransactionsByDateRange)
	trans.Get("/list-by-time-unit", ListTransactionsByTimeUnit)
	trans.Get("/summary", GetSummary)
	trans.Get("/year-month-list", GetYearMonthList)
	trans.Get("/category-summary-date-range", GetCategorySummaryByDateRange)
	trans.Get("/category-summary-last-n-units", GetCategorySummaryByLastNUnits)
	trans.Get("/monthly-category-summary", GetMonthlyCategorySummary)
	trans.Patch("/:id", UpdateTransaction)
	trans.Delete("/:id", DeleteTransaction)
	trans.Post("/:id/receipt", UploadReceipt)
	trans.Get("/:id/receipt", GetReceipt)

	app.Use(func(c *fiber.Ctx) error {
		return apperror.NewNotFound(fmt.Sprintf("Route %s not found", c.OriginalURL()))
	})
}
