package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hongminglow/record-archive/internal/models"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change system settings",
	}
	cmd.AddCommand(newSettingsGetCommand(rootOpts))
	cmd.AddCommand(newSettingsSetCommand(rootOpts))
	return cmd
}

func newSettingsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			admin := models.DevAdmin
			cur, err := svc.GetSettings(cmd.Context(), &admin)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cur)
		},
	}
}

func newSettingsSetCommand(rootOpts *RootOptions) *cobra.Command {
	var autoApprove bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := map[string]any{}
			if cmd.Flags().Changed("order-auto-approve") {
				patch["order_auto_approve"] = autoApprove
			}
			if len(patch) == 0 {
				return errors.New("nothing to set")
			}

			svc, closeFn, err := openService(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			admin := models.DevAdmin
			cur, err := svc.PutSettings(cmd.Context(), patch, &admin)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cur)
		},
	}

	cmd.Flags().BoolVar(&autoApprove, "order-auto-approve", false, "approve new orders on creation")
	return cmd
}
