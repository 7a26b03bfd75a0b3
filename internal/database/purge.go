package database

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron"
	"gorm.io/gorm"
)

// PurgeExpired removes refresh and reset tokens that expired at or before now.
func PurgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	var purged int64

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("expires_at <= ?", now).Delete(&RefreshToken{})
		if result.Error != nil {
			return result.Error
		}
		purged += result.RowsAffected

		result = tx.Where("expires_at <= ?", now).Delete(&PasswordResetToken{})
		if result.Error != nil {
			return result.Error
		}
		purged += result.RowsAffected

		return nil
	})

	return purged, err
}

// StartPurger runs PurgeExpired on the given cron schedule. The caller owns
// the returned scheduler and must Stop it.
func StartPurger(db *gorm.DB, schedule string) (*cron.Cron, error) {
	c := cron.New()

	err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		purged, err := PurgeExpired(ctx, db, time.Now())
		if err != nil {
			log.Errorw("purge expired tokens", "error", err)
			return
		}
		if purged > 0 {
			log.Infow("purged expired tokens", "count", purged)
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()

	return c, nil
}
