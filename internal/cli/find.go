package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hongminglow/record-archive/internal/models"
)

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:   "find <resource>",
		Short: "List records matching exact-equality filters",
		Long: `List records of a collection as a JSON array.

Each --where key=value adds an equality condition. Values that parse as
JSON (numbers, true, false, null, quoted strings) are compared as such;
anything else is compared as a plain string.`,
		Example: `  archivectl find orders --where status=pending
  archivectl find products --where stock_qty=0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseWhere(where)
			if err != nil {
				return err
			}

			svc, closeFn, err := openService(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			admin := models.DevAdmin
			items, err := svc.Find(cmd.Context(), args[0], filter, &admin)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "key=value condition (repeatable)")
	return cmd
}

func parseWhere(pairs []string) (map[string]any, error) {
	filter := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --where %q: want key=value", pair)
		}
		filter[strings.TrimSpace(key)] = parseValue(raw)
	}
	return filter, nil
}

func parseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	switch v.(type) {
	case map[string]any, []any:
		return raw
	}
	return v
}
