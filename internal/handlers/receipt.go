package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"fintrack/internal/apperror"
	"fintrack/internal/middleware"
	"fintrack/internal/platform/storage"
	"fintrack/internal/platform/transaction"
)

const (
	receiptFormField = "receipt"
	maxReceiptSize   = 5 << 20
)

// UploadReceipt stores a receipt for a transaction, replacing any earlier one.
func UploadReceipt(c *fiber.Ctx) error {
	store, err := receiptStore(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "id", invalidTransactionID)
	if err != nil {
		return err
	}

	userID := middleware.CurrentUser(c).ID
	svc := transactionService(c)

	if _, err := svc.Get(c.UserContext(), userID, id); err != nil {
		return err
	}

	file, err := c.FormFile(receiptFormField)
	if err != nil {
		return apperror.Wrap(apperror.BadRequest, "Receipt file is required", err)
	}
	if file.Size > maxReceiptSize {
		return apperror.NewBadRequest("Receipt must be at most 5 MB")
	}
	if !store.IsFileExtensionAllowed(file.Filename) {
		return apperror.NewBadRequest("Receipt must be a jpg, jpeg, png or pdf file")
	}

	key := store.GenerateKeyName(userID, file.Filename)
	if err := store.SaveFile(c, file, key); err != nil {
		return err
	}

	previous, err := svc.AttachReceipt(c.UserContext(), userID, id, key)
	if err != nil {
		if delErr := store.Delete(key); delErr != nil {
			log.Warnw("failed to remove orphaned receipt", "key", key, "error", delErr)
		}
		return err
	}
	if previous != "" {
		if err := store.Delete(previous); err != nil {
			log.Warnw("failed to remove replaced receipt", "key", previous, "error", err)
		}
	}

	updated, err := svc.Get(c.UserContext(), userID, id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(updated)
}

func GetReceipt(c *fiber.Ctx) error {
	store, err := receiptStore(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "id", invalidTransactionID)
	if err != nil {
		return err
	}

	key, err := transactionService(c).Receipt(c.UserContext(), middleware.CurrentUser(c).ID, id)
	if err != nil {
		return err
	}

	data, err := store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return transaction.ErrReceiptNotFound
		}
		return err
	}

	c.Type(storage.Extension(key))
	return c.Send(data)
}
