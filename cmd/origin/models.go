package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"name-origin/internal/storage"
)

func modelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect the database model registry",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List registered models, newest first",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := a.openDB()
				if err != nil {
					return err
				}
				defer db.Close()

				models, err := db.ListModels(cmd.Context())
				if err != nil {
					return err
				}
				renderModels(os.Stdout, models)
				return nil
			},
		},
		&cobra.Command{
			Use:   "activate <id>",
			Short: "Serve predictions from a registered model",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := a.openDB()
				if err != nil {
					return err
				}
				defer db.Close()

				if err := db.ActivateModel(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Model %s is now active\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func (a *app) openDB() (*storage.DB, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return storage.NewDB(a.cfg.DatabaseURL)
}

func renderModels(w io.Writer, models []*storage.ModelRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Variant", "Classes", "Accuracy", "Created", "Active"})
	for _, m := range models {
		active := ""
		if m.Active {
			active = "*"
		}
		table.Append([]string{
			m.ID,
			m.Variant,
			strings.Join(m.Classes, ","),
			fmt.Sprintf("%.4f", m.Accuracy),
			m.CreatedAt.Format("2006-01-02 15:04"),
			active,
		})
	}
	table.Render()
}
