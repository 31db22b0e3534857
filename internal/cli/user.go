package cli

import (
	"github.com/spf13/cobra"

	"github.com/hongminglow/record-archive/internal/models"
	"github.com/hongminglow/record-archive/internal/models/dto"
)

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCommand(rootOpts))
	return cmd
}

func newUserAddCommand(rootOpts *RootOptions) *cobra.Command {
	var req dto.RegisterRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user and print its bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := svc.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (required)")
	cmd.Flags().StringVar(&req.Role, "role", models.RoleCustomer, "one of admin, owner, customer, idf_customer")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "display name (defaults to the email's local part)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
