package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"name-origin/internal/dataset"
	"name-origin/internal/pipeline"
	"name-origin/internal/storage"
)

func trainCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a classifier on a labelled CSV and save the artifact bundle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			datasetPath, _ := cmd.Flags().GetString("dataset")
			variantName, _ := cmd.Flags().GetString("variant")
			comparison, _ := cmd.Flags().GetString("comparison")
			register, _ := cmd.Flags().GetBool("register")
			if datasetPath == "" {
				datasetPath = a.cfg.DatasetPath
			}
			if variantName == "" {
				variantName = a.cfg.Variant
			}

			variant, err := pipeline.ParseVariant(variantName)
			if err != nil {
				return err
			}
			records, err := dataset.Load(datasetPath, columns(a.cfg))
			if err != nil {
				return err
			}

			bundle, eval, err := pipeline.Train(records, trainOptions(a.cfg, variant), a.logger)
			if err != nil {
				return err
			}
			if err := bundle.Save(a.cfg.ModelPath); err != nil {
				return err
			}
			a.logger.Info("bundle saved", "path", a.cfg.ModelPath, "id", bundle.Manifest.ID)

			fmt.Printf("Accuracy: %.4f\n\n%s", eval.Report.Accuracy, eval.Report)
			if comparison != "" {
				if err := writeComparison(comparison, eval); err != nil {
					return err
				}
			}
			if register {
				return registerBundle(cmd.Context(), a, bundle)
			}
			return nil
		},
	}
	cmd.Flags().String("dataset", "", "Labelled CSV with name and origin columns")
	cmd.Flags().String("variant", "", "Model variant: forest or recurrent")
	cmd.Flags().String("comparison", "", "Write the held-out name/actual/predicted table to this CSV")
	cmd.Flags().Bool("register", false, "Store the bundle in the database model registry and activate it")
	return cmd
}

func evaluateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a saved bundle on a labelled CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			datasetPath, _ := cmd.Flags().GetString("dataset")
			comparison, _ := cmd.Flags().GetString("comparison")
			if datasetPath == "" {
				datasetPath = a.cfg.DatasetPath
			}

			bundle, err := pipeline.Load(a.cfg.ModelPath)
			if err != nil {
				return err
			}
			records, err := dataset.Load(datasetPath, columns(a.cfg))
			if err != nil {
				return err
			}
			eval, err := pipeline.EvaluateBundle(bundle, records)
			if err != nil {
				return err
			}
			if eval.Skipped > 0 {
				a.logger.Warn("records skipped", "count", eval.Skipped)
			}

			fmt.Printf("Accuracy: %.4f\n\n%s", eval.Report.Accuracy, eval.Report)
			if comparison != "" {
				return writeComparison(comparison, eval)
			}
			return nil
		},
	}
	cmd.Flags().String("dataset", "", "Labelled CSV with name and origin columns")
	cmd.Flags().String("comparison", "", "Write the name/actual/predicted table to this CSV")
	return cmd
}

func writeComparison(path string, eval *pipeline.Evaluation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create comparison file: %w", err)
	}
	if err := eval.WriteComparisonCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write comparison file: %w", err)
	}
	return f.Close()
}

func registerBundle(ctx context.Context, a *app, bundle *pipeline.Bundle) error {
	if a.cfg.DatabaseURL == "" {
		return fmt.Errorf("--register needs DATABASE_URL")
	}
	db, err := storage.NewDB(a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	blob, err := bundle.MarshalBinary()
	if err != nil {
		return err
	}
	m := bundle.Manifest
	rec := storage.ModelRecord{
		ID:            m.ID,
		Variant:       string(m.Variant),
		FormatVersion: m.FormatVersion,
		Classes:       m.Classes,
		Accuracy:      m.Accuracy,
		CreatedAt:     m.CreatedAt,
	}
	if err := db.SaveModel(ctx, rec, blob, true); err != nil {
		return err
	}
	a.logger.Info("model registered", "id", m.ID)
	return nil
}
