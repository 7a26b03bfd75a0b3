package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fintrack/internal/middleware"
	"fintrack/internal/platform/transaction"
)

const invalidTransactionID = "Invalid transaction id"

func CreateTransaction(c *fiber.Ctx) error {
	var input transaction.CreateInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	created, err := transactionService(c).Create(c.UserContext(), middleware.CurrentUser(c).ID, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func ListTransactions(c *fiber.Ctx) error {
	transactions, err := transactionService(c).List(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(transactions)
}

// ListTransactionsByDateRange applies startDate and endDate independently;
// either may be left out.
func ListTransactionsByDateRange(c *fiber.Ctx) error {
	start, err := queryDate(c, "startDate")
	if err != nil {
		return err
	}
	end, err := queryDate(c, "endDate")
	if err != nil {
		return err
	}

	transactions, err := transactionService(c).ListByDateRange(c.UserContext(), middleware.CurrentUser(c).ID, start, end)
	if err != nil {
		return err
	}

	return c.JSON(transactions)
}

func ListTransactionsByTimeUnit(c *fiber.Ctx) error {
	unit, n, err := queryUnits(c)
	if err != nil {
		return err
	}

	transactions, err := transactionService(c).ListByLastNUnits(c.UserContext(), middleware.CurrentUser(c).ID, unit, n)
	if err != nil {
		return err
	}

	return c.JSON(transactions)
}

func GetSummary(c *fiber.Ctx) error {
	start, err := queryDate(c, "startDate")
	if err != nil {
		return err
	}
	end, err := queryDate(c, "endDate")
	if err != nil {
		return err
	}

	summary, err := transactionService(c).Summary(c.UserContext(), middleware.CurrentUser(c).ID, start, end)
	if err != nil {
		return err
	}

	return c.JSON(summary)
}

func GetYearMonthList(c *fiber.Ctx) error {
	months, err := transactionService(c).YearMonthList(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(months)
}

func GetCategorySummaryByDateRange(c *fiber.Ctx) error {
	start, end, err := queryDateRange(c)
	if err != nil {
		return err
	}

	summary, err := transactionService(c).CategorySummary(c.UserContext(), middleware.CurrentUser(c).ID, start, end)
	if err != nil {
		return err
	}

	return c.JSON(summary)
}

func GetCategorySummaryByLastNUnits(c *fiber.Ctx) error {
	unit, n, err := queryUnits(c)
	if err != nil {
		return err
	}

	summary, err := transactionService(c).CategorySummaryLastNUnits(c.UserContext(), middleware.CurrentUser(c).ID, unit, n)
	if err != nil {
		return err
	}

	return c.JSON(summary)
}

func GetMonthlyCategorySummary(c *fiber.Ctx) error {
	months, err := queryCount(c, "months")
	if err != nil {
		return err
	}

	summary, err := transactionService(c).MonthlyCategorySummary(c.UserContext(), middleware.CurrentUser(c).ID, months)
	if err != nil {
		return err
	}

	return c.JSON(summary)
}

func UpdateTransaction(c *fiber.Ctx) error {
	id, err := paramID(c, "id", invalidTransactionID)
	if err != nil {
		return err
	}

	var input transaction.UpdateInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	updated, err := transactionService(c).Update(c.UserContext(), middleware.CurrentUser(c).ID, id, input)
	if err != nil {
		return err
	}

	return c.JSON(updated)
}

func DeleteTransaction(c *fiber.Ctx) error {
	id, err := paramID(c, "id", invalidTransactionID)
	if err != nil {
		return err
	}

	deleted, err := transactionService(c).Delete(c.UserContext(), middleware.CurrentUser(c).ID, id)
	if err != nil {
		return err
	}

	return c.JSON(deleted)
}
