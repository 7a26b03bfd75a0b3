package transaction

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/database"
	"fintrack/pkg/utils"
)

type Summary struct {
	TotalIncome    float64 `json:"totalIncome"`
	TotalExpenses  float64 `json:"totalExpenses"`
	CurrentBalance float64 `json:"currentBalance"`
	Currency       string  `json:"currency"`
}

type CategorySummary struct {
	TransCategoryName string  `json:"transCategoryName"`
	TotalAmount       float64 `json:"totalAmount"`
	Count             int64   `json:"count"`
	Type              string  `json:"type"`
}

type MonthCategoryTotal struct {
	CategoryName string  `json:"categoryName"`
	Type         string  `json:"type"`
	TotalAmount  float64 `json:"totalAmount"`
	Count        int64   `json:"count"`
}

type MonthSummary struct {
	Month        string               `json:"month"`
	Transactions []MonthCategoryTotal `json:"transactions"`
}

type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Summary totals income and expenses in the optional window. Amounts are
// not converted between currencies; the reported currency is the one all
// matching transactions share, or the user's preferred one when they differ.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID, start, end *time.Time) (*Summary, error) {
	var rows []struct {
		Type     string
		Currency string
		Total    float64
	}
	err := s.scoped(ctx, userID, start, end).
		Model(&database.Transaction{}).
		Select("type, currency, SUM(amount) AS total").
		Group("type, currency").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	currencies := map[string]struct{}{}
	for _, r := range rows {
		switch r.Type {
		case database.TransactionIncome:
			summary.TotalIncome += r.Total
		case database.TransactionExpense:
			summary.TotalExpenses += r.Total
		}
		currencies[r.Currency] = struct{}{}
	}
	summary.CurrentBalance = summary.TotalIncome - summary.TotalExpenses

	if len(currencies) == 1 {
		for c := range currencies {
			summary.Currency = c
		}
	} else {
		if summary.Currency, err = s.preferredCurrency(ctx, userID); err != nil {
			return nil, err
		}
	}

	return summary, nil
}

// CategorySummary groups the window's transactions by category name and
// type, ordered by name.
func (s *Service) CategorySummary(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]CategorySummary, error) {
	rows := []CategorySummary{}
	err := s.db.WithContext(ctx).
		Table("transactions AS t").
		Select("c.name AS trans_category_name, t.type AS type, SUM(t.amount) AS total_amount, COUNT(*) AS count").
		Joins("JOIN transaction_categories AS c ON c.id = t.trans_category_id").
		Where("t.user_id = ? AND t.date >= ? AND t.date <= ?", userID, start.UTC(), end.UTC()).
		Group("c.name, t.type").
		Order("c.name, t.type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) CategorySummaryLastNUnits(ctx context.Context, userID uuid.UUID, unit utils.TimeUnit, n int) ([]CategorySummary, error) {
	start, end, err := s.window(unit, n)
	if err != nil {
		return nil, err
	}
	return s.CategorySummary(ctx, userID, start, end)
}

// MonthlyCategorySummary breaks the last n calendar months down by month,
// newest first, and by category name within each month.
func (s *Service) MonthlyCategorySummary(ctx context.Context, userID uuid.UUID, months int) ([]MonthSummary, error) {
	start, end, err := s.window(utils.Month, months)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Date         time.Time
		CategoryName string
		Type         string
		Amount       float64
	}
	err = s.db.WithContext(ctx).
		Table("transactions AS t").
		Select("t.date AS date, c.name AS category_name, t.type AS type, t.amount AS amount").
		Joins("JOIN transaction_categories AS c ON c.id = t.trans_category_id").
		Where("t.user_id = ? AND t.date >= ? AND t.date <= ?", userID, start.UTC(), end.UTC()).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	type groupKey struct{ month, name, kind string }
	totals := map[groupKey]*MonthCategoryTotal{}
	for _, r := range rows {
		k := groupKey{r.Date.UTC().Format("2006-01"), r.CategoryName, r.Type}
		t, ok := totals[k]
		if !ok {
			t = &MonthCategoryTotal{CategoryName: r.CategoryName, Type: r.Type}
			totals[k] = t
		}
		t.TotalAmount += r.Amount
		t.Count++
	}

	byMonth := map[string][]MonthCategoryTotal{}
	for k, t := range totals {
		byMonth[k.month] = append(byMonth[k.month], *t)
	}

	summaries := make([]MonthSummary, 0, len(byMonth))
	for month, items := range byMonth {
		sort.Slice(items, func(i, j int) bool {
			if items[i].CategoryName != items[j].CategoryName {
				return items[i].CategoryName < items[j].CategoryName
			}
			return items[i].Type < items[j].Type
		})
		summaries = append(summaries, MonthSummary{Month: month, Transactions: items})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Month > summaries[j].Month })

	return summaries, nil
}

// YearMonthList returns every calendar month the user has transactions in,
// newest first.
func (s *Service) YearMonthList(ctx context.Context, userID uuid.UUID) ([]YearMonth, error) {
	var dates []time.Time
	err := s.db.WithContext(ctx).
		Model(&database.Transaction{}).
		Where("user_id = ?", userID).
		Pluck("date", &dates).Error
	if err != nil {
		return nil, err
	}

	seen := map[YearMonth]struct{}{}
	list := []YearMonth{}
	for _, d := range dates {
		d = d.UTC()
		ym := YearMonth{Year: d.Year(), Month: int(d.Month())}
		if _, ok := seen[ym]; ok {
			continue
		}
		seen[ym] = struct{}{}
		list = append(list, ym)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Year != list[j].Year {
			return list[i].Year > list[j].Year
		}
		return list[i].Month > list[j].Month
	})

	return list, nil
}
