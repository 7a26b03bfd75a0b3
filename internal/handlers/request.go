package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"fintrack/internal/apperror"
	"fintrack/internal/config"
	"fintrack/internal/events"
	"fintrack/internal/mail"
	"fintrack/internal/platform/category"
	"fintrack/internal/platform/session"
	"fintrack/internal/platform/storage"
	"fintrack/internal/platform/transaction"
	"fintrack/internal/platform/user"
	"fintrack/pkg/utils"
)

var (
	errStorageUnavailable = apperror.NewUnavailable("Receipt storage is not configured")

	dateLayouts = []string{time.RFC3339, "2006-01-02"}
)

// parseBody decodes the request body into input and validates it.
func parseBody(c *fiber.Ctx, input any) error {
	if err := c.BodyParser(input); err != nil {
		return apperror.InvalidJSON(err)
	}
	return validate(input)
}

func validate(input any) error {
	if err := config.Validate.Struct(input); err != nil {
		return apperror.Validation(err)
	}
	return nil
}

func paramID(c *fiber.Ctx, name, message string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperror.Wrap(apperror.BadRequest, message, err)
	}
	return id, nil
}

// queryDate reads an optional date given as RFC 3339 or YYYY-MM-DD.
func queryDate(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperror.NewBadRequest(fmt.Sprintf("%s must be a valid date", key))
}

// queryDateRange reads startDate and endDate, both required.
func queryDateRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	start, err := queryDate(c, "startDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := queryDate(c, "endDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start == nil || end == nil {
		return time.Time{}, time.Time{}, apperror.NewBadRequest("startDate and endDate are required")
	}
	return *start, *end, nil
}

func queryCount(c *fiber.Ctx, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || n < 0 {
		return 0, apperror.NewBadRequest(fmt.Sprintf("%s must be a non-negative integer", key))
	}
	return n, nil
}

// queryUnits reads the timeUnit and units pair of the "last n units" endpoints.
func queryUnits(c *fiber.Ctx) (utils.TimeUnit, int, error) {
	unit, err := utils.ParseTimeUnit(c.Query("timeUnit"))
	if err != nil {
		return "", 0, apperror.Wrap(apperror.BadRequest, err.Error(), err)
	}
	n, err := queryCount(c, "units")
	if err != nil {
		return "", 0, err
	}
	return unit, n, nil
}

func clock(c *fiber.Ctx) (func() time.Time, bool) {
	now, ok := c.Locals("clock").(func() time.Time)
	return now, ok
}

func sessionService(c *fiber.Ctx) *session.Service {
	cfg := c.Locals("config").(*config.Config)
	db := c.Locals("db").(*gorm.DB)
	mailer, _ := c.Locals("mailer").(mail.Mailer)
	publisher, _ := c.Locals("events").(events.Publisher)

	svc := session.NewService(db, cfg, mailer, publisher)
	if now, ok := clock(c); ok {
		svc.SetClock(now)
	}
	return svc
}

func userService(c *fiber.Ctx) *user.UserService {
	return user.NewService(c.Locals("db").(*gorm.DB))
}

func categoryService(c *fiber.Ctx) *category.Service {
	return category.NewService(c.Locals("db").(*gorm.DB))
}

func transactionService(c *fiber.Ctx) *transaction.Service {
	svc := transaction.NewService(c.Locals("db").(*gorm.DB))
	if now, ok := clock(c); ok {
		svc.SetClock(now)
	}
	return svc
}

func receiptStore(c *fiber.Ctx) (*storage.ReceiptStore, error) {
	backend, ok := c.Locals("storage").(fiber.Storage)
	if !ok || backend == nil {
		return nil, errStorageUnavailable
	}
	return storage.NewReceiptStore(backend), nil
}
