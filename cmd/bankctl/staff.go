package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/auth"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store/postgres"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/validate"

	"github.com/spf13/cobra"
)

var (
	staffUsername      string
	staffFullName      string
	staffIDNumber      string
	staffAccountNumber string
	staffPassword      string
)

func staffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(staffCreateCmd())
	return cmd
}

func staffCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		Long: `Create a staff account directly in the database.

The password is read from --password or, when that is empty, from
BANKCTL_STAFF_PASSWORD so it stays out of shell history.

Examples:
  bankctl staff create --username teller --full-name "Tina Teller" \
    --id-number 8001015009087 --account-number 2222222222`,
		RunE: runStaffCreate,
	}

	cmd.Flags().StringVar(&staffUsername, "username", "", "login name")
	cmd.Flags().StringVar(&staffFullName, "full-name", "", "full name")
	cmd.Flags().StringVar(&staffIDNumber, "id-number", "", "national ID number")
	cmd.Flags().StringVar(&staffAccountNumber, "account-number", "", "account number")
	cmd.Flags().StringVar(&staffPassword, "password", "", "password (defaults to $BANKCTL_STAFF_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("full-name")
	_ = cmd.MarkFlagRequired("id-number")
	_ = cmd.MarkFlagRequired("account-number")
	return cmd
}

func runStaffCreate(cmd *cobra.Command, args []string) error {
	password := staffPassword
	if password == "" {
		password = os.Getenv("BANKCTL_STAFF_PASSWORD")
	}
	if password == "" {
		return errors.New("password is required (--password or BANKCTL_STAFF_PASSWORD)")
	}

	ctx := cmd.Context()
	cfg, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := postgres.NewStore(pool, postgres.Options{QueryTimeout: cfg.Database.QueryTimeout})
	accounts, err := auth.NewService(st, auth.Options{BcryptCost: auth.DefaultBcryptCost})
	if err != nil {
		return err
	}

	user, err := accounts.Register(ctx, auth.RegisterInput{
		Username:      staffUsername,
		FullName:      staffFullName,
		IDNumber:      staffIDNumber,
		AccountNumber: staffAccountNumber,
		Password:      password,
	}, models.RoleStaff)
	if err != nil {
		var verr *validate.Error
		switch {
		case errors.As(err, &verr):
			return fmt.Errorf("invalid %s: %s", verr.Field, verr.Message)
		case errors.Is(err, store.ErrUserExists):
			return errors.New("username, account, or ID already exists")
		}
		return fmt.Errorf("create staff user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created staff user %s (%s)\n", user.Username, user.UserID)
	return nil
}
