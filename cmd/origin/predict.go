package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"name-origin/internal/pipeline"
)

func predictCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "predict [name...]",
		Short: "Classify names given as arguments, or interactively from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := pipeline.Load(a.cfg.ModelPath)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				err := pipeline.NewSession(bundle, a.logger).Run(ctx, os.Stdin, os.Stdout)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			preds, errs := bundle.ClassifyAll(args)
			for i, name := range args {
				if errs[i] != nil {
					fmt.Printf("Error: %v\n", errs[i])
					continue
				}
				fmt.Printf("Predicted origin for '%s': %s (%.2f)\n", name, preds[i].Origin, preds[i].Confidence)
			}
			return nil
		},
	}
}
