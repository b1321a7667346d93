package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"name-origin/internal/cv"
	"name-origin/internal/pipeline"
)

// extraction is the per-file outcome of the extract command.
type extraction struct {
	File        string               `json:"file"`
	Contact     cv.Contact           `json:"contact"`
	Links       *cv.ProfileLinks     `json:"links,omitempty"`
	Origin      *pipeline.Prediction `json:"origin,omitempty"`
	OriginError string               `json:"origin_error,omitempty"`
	Error       string               `json:"error,omitempty"`
}

func extractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file-or-dir>",
		Short: "Extract contact details from resumes and classify the candidate names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validate, _ := cmd.Flags().GetBool("validate-links")
			asJSON, _ := cmd.Flags().GetBool("json")
			outPath, _ := cmd.Flags().GetString("out")
			timeout, _ := cmd.Flags().GetDuration("link-timeout")

			paths, err := cv.CollectFiles(args[0])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no supported documents under %s", args[0])
			}

			// Extraction works without a model; origins are simply left out.
			bundle, err := pipeline.Load(a.cfg.ModelPath)
			if err != nil {
				a.logger.Warn("no model loaded, skipping origin prediction", "error", err)
				bundle = nil
			}

			parser := cv.NewParser(a.cfg.UploadsDir)
			links := cv.NewLinkValidator(timeout)
			start := time.Now()
			results := cv.ProcessFiles(cmd.Context(), paths, a.cfg.Workers, func(ctx context.Context, path string) (extraction, error) {
				parsed, err := parser.ParsePath(path)
				if err != nil {
					return extraction{}, err
				}
				out := extraction{File: path, Contact: parsed.Contact}
				if validate {
					l := links.CheckAll(ctx, parsed.Contact)
					out.Links = &l
				}
				if bundle != nil && parsed.Contact.Name != "" {
					pred, err := bundle.Classify(parsed.Contact.Name)
					if err != nil {
						out.OriginError = err.Error()
					} else {
						out.Origin = &pred
					}
				}
				return out, nil
			})
			a.logger.Info("extraction complete", "files", len(paths), "duration", time.Since(start).Round(time.Millisecond))

			rows := make([]extraction, len(results))
			for i, r := range results {
				rows[i] = r.Value
				if r.Err != nil {
					rows[i] = extraction{File: r.Path, Error: r.Err.Error()}
				}
			}
			if outPath != "" {
				if err := writeExtractionsFile(outPath, rows); err != nil {
					return err
				}
				a.logger.Info("results saved", "path", outPath)
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			renderExtractions(os.Stdout, rows)
			return nil
		},
	}
	cmd.Flags().Bool("validate-links", false, "Check GitHub and LinkedIn URLs with a HEAD request")
	cmd.Flags().Duration("link-timeout", 5*time.Second, "Timeout for each link check")
	cmd.Flags().Bool("json", false, "Print results as JSON")
	cmd.Flags().String("out", "", "Also write the results to this CSV file")
	return cmd
}

func renderExtractions(w io.Writer, rows []extraction) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Name", "Email", "Phone", "Origin", "GitHub", "LinkedIn"})
	table.SetAutoWrapText(false)
	for _, r := range rows {
		if r.Error != "" {
			table.Append([]string{r.File, "error: " + r.Error, "", "", "", "", ""})
			continue
		}
		origin := r.OriginError
		if r.Origin != nil {
			origin = fmt.Sprintf("%s (%.2f)", r.Origin.Origin, r.Origin.Confidence)
		}
		github, linkedin := r.linkCells()
		table.Append([]string{r.File, r.Contact.Name, r.Contact.Email, r.Contact.PrimaryPhone, origin, github, linkedin})
	}
	table.Render()
}

// linkCells renders every GitHub and LinkedIn URL, with its status when the
// links were checked.
func (r extraction) linkCells() (github, linkedin string) {
	if r.Links != nil {
		return resultCell(r.Links.GitHub), resultCell(r.Links.LinkedIn)
	}
	return urlCell(r.Contact.GitHubLinks), urlCell(r.Contact.LinkedInLinks)
}

func resultCell(results []cv.LinkResult) string {
	if len(results) == 0 {
		return "Not Available"
	}
	parts := make([]string, len(results))
	for i, l := range results {
		parts[i] = fmt.Sprintf("%s: %s", l.URL, l.Status)
	}
	return strings.Join(parts, ", ")
}

func urlCell(urls []string) string {
	if len(urls) == 0 {
		return "Not Available"
	}
	return strings.Join(urls, ", ")
}

func writeExtractionsFile(path string, rows []extraction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	if err := writeExtractionsCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write results file: %w", err)
	}
	return f.Close()
}

// writeExtractionsCSV writes one row per resume.
func writeExtractionsCSV(w io.Writer, rows []extraction) error {
	cw := csv.NewWriter(w)
	header := []string{"File Name", "Name", "Email", "Primary Phone", "Secondary Phone", "Address",
		"Origin", "Confidence", "GitHub", "LinkedIn", "Error"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		origin, confidence := r.OriginError, ""
		if r.Origin != nil {
			origin, confidence = r.Origin.Origin, fmt.Sprintf("%.4f", r.Origin.Confidence)
		}
		github, linkedin := r.linkCells()
		if r.Error != "" {
			github, linkedin = "", ""
		}
		c := r.Contact
		record := []string{filepath.Base(r.File), c.Name, c.Email, c.PrimaryPhone, c.SecondaryPhone, c.Address,
			origin, confidence, github, linkedin, r.Error}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
