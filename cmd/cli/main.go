package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"fintrack/internal/database"
	"fintrack/internal/platform/session"
	"fintrack/internal/platform/transaction"
	"fintrack/pkg/utils"
)

var (
	apiBaseURL string
	token      string
)

type ResponseError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

var apiServiceBase = func() *resty.Client {
	client := resty.New().
		SetBaseURL(apiBaseURL).
		SetHeader("Accept", "application/json").
		SetError(&ResponseError{}).
		OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() < 400 {
				return nil
			}

			if e, ok := resp.Error().(*ResponseError); ok {
				if e.Message != "" {
					return errors.New(e.Message)
				}
				if e.Error != "" {
					return errors.New(e.Error)
				}
			}
			return fmt.Errorf("request failed with status %d", resp.StatusCode())
		})

	if token != "" {
		client.SetAuthToken(token)
	}

	return client
}

var rootCmd = &cobra.Command{
	Use:   "fintrack",
	Short: "Personal finance tracker CLI",
}

var registerCmd = &cobra.Command{
	Use:   "register <name> <email>",
	Short: "Register a new account with a generated password",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		password := utils.GenerateRandomString(16)

		resp, err := apiServiceBase().R().
			SetBody(map[string]string{
				"name":     args[0],
				"email":    args[1],
				"password": password,
			}).
			SetResult(&session.RegisterResponse{}).
			Post("/auth/register")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		user := resp.Result().(*session.RegisterResponse)

		fmt.Println("User ID  :", user.ID)
		fmt.Println("Email    :", user.Email)
		fmt.Println("Role     :", user.Role)
		fmt.Println("Password :", password)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Log in and print an access token",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := apiServiceBase().R().
			SetBody(map[string]string{
				"email":    args[0],
				"password": args[1],
			}).
			SetResult(&session.LoginResponse{}).
			Post("/auth/login")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		login := resp.Result().(*session.LoginResponse)

		fmt.Println("User ID :", login.ID)
		fmt.Println("Role    :", login.Role)
		fmt.Println("Token   :", login.Token)
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List transaction categories",
	Run: func(cmd *cobra.Command, args []string) {
		var categories []database.TransactionCategory

		_, err := apiServiceBase().R().
			SetResult(&categories).
			Get("/trans-categories")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		for _, c := range categories {
			fmt.Printf("%s  %-8s %s\n", c.ID, c.Type, c.Name)
		}
	},
}

var transCmd = &cobra.Command{
	Use:   "trans",
	Short: "Manage transactions",
}

var (
	transCategory    string
	transAmount      float64
	transType        string
	transCurrency    string
	transDescription string
	summaryFrom      string
	summaryTo        string
)

var transAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a transaction",
	Run: func(cmd *cobra.Command, args []string) {
		body := map[string]any{
			"transCategoryId": transCategory,
			"amount":          transAmount,
			"type":            transType,
			"description":     transDescription,
		}
		if transCurrency != "" {
			body["currency"] = transCurrency
		}

		resp, err := apiServiceBase().R().
			SetBody(body).
			SetResult(&database.Transaction{}).
			Post("/trans")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		t := resp.Result().(*database.Transaction)

		fmt.Println("Transaction ID :", t.ID)
		fmt.Println("Amount         :", t.Amount, t.Currency)
		fmt.Println("Type           :", t.Type)
		fmt.Println("Date           :", t.Date.Format("2006-01-02 15:04"))
	},
}

var transSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show income, expenses and balance",
	Run: func(cmd *cobra.Command, args []string) {
		req := apiServiceBase().R().SetResult(&transaction.Summary{})
		if summaryFrom != "" {
			req.SetQueryParam("startDate", summaryFrom)
		}
		if summaryTo != "" {
			req.SetQueryParam("endDate", summaryTo)
		}

		resp, err := req.Get("/trans/summary")
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		summary := resp.Result().(*transaction.Summary)

		fmt.Printf("Income   : %.2f %s\n", summary.TotalIncome, summary.Currency)
		fmt.Printf("Expenses : %.2f %s\n", summary.TotalExpenses, summary.Currency)
		fmt.Printf("Balance  : %.2f %s\n", summary.CurrentBalance, summary.Currency)
	},
}

func main() {
	transAddCmd.Flags().StringVarP(&transCategory, "category", "c", "", "Category ID")
	transAddCmd.Flags().Float64VarP(&transAmount, "amount", "a", 0, "Amount")
	transAddCmd.Flags().StringVarP(&transType, "type", "t", "expense", "income or expense")
	transAddCmd.Flags().StringVar(&transCurrency, "currency", "", "ISO 4217 currency code")
	transAddCmd.Flags().StringVarP(&transDescription, "description", "d", "", "Description")
	transAddCmd.MarkFlagRequired("category")
	transAddCmd.MarkFlagRequired("amount")

	transSummaryCmd.Flags().StringVar(&summaryFrom, "from", "", "Start date (YYYY-MM-DD)")
	transSummaryCmd.Flags().StringVar(&summaryTo, "to", "", "End date (YYYY-MM-DD)")

	transCmd.AddCommand(transAddCmd)
	transCmd.AddCommand(transSummaryCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(transCmd)

	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api", "http://localhost:3000/api", "API base URL")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "k", os.Getenv("FT_TOKEN"), "Access token")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
