package cmd

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/promoops/artaudit/internal/config"
	"github.com/promoops/artaudit/internal/export"
	"github.com/promoops/artaudit/internal/models"
	"github.com/promoops/artaudit/internal/queue"
	"github.com/spf13/cobra"
)

func newAuditCmd() *cobra.Command {
	var configPath string
	var outputPath string
	var spellingMode string

	cmd := &cobra.Command{
		Use:   "audit [images...]",
		Short: "Audit marketing-art images from the command line",
		Long: `Runs the given image files through the full audit pipeline and prints
a verdict per image: detected codes and prices, catalog cross-check with
price-mismatch flags, and the spelling report.

Images are processed one at a time, in order, exactly as the web queue
would process them.`,
		Example: `  # Audit two flyers
  artaudit audit flyer1.png flyer2.jpg

  # Audit a folder's images and export the results to parquet
  artaudit audit campaign/*.png --output results.parquet`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if spellingMode != "" {
				mode := config.SpellingMode(spellingMode)
				if mode != config.SpellingSequential && mode != config.SpellingConcurrent {
					return fmt.Errorf("invalid --spelling-mode %q (want sequential or concurrent)", spellingMode)
				}
				cfg.Pipeline.SpellingMode = mode
			}

			scheduler := newScheduler(cfg)
			scheduler.Start(cmd.Context())

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				scheduler.Enqueue(filepath.Base(path), models.ImagePayload{
					Data:     data,
					MIMEType: mimeTypeForFile(path, data),
				})
			}

			slog.Info("Batch started", "images", len(args))

			items, err := waitForBatch(cmd, scheduler)
			if err != nil {
				return err
			}

			printVerdicts(items)

			if outputPath != "" {
				if err := export.WriteFile(outputPath, items); err != nil {
					return err
				}
				slog.Info("Results exported", "path", outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write results to a parquet file")
	cmd.Flags().StringVar(&spellingMode, "spelling-mode", "", "Spelling audit ordering: sequential or concurrent")

	return cmd
}

// waitForBatch polls the queue snapshot until every item is terminal.
func waitForBatch(cmd *cobra.Command, scheduler *queue.Scheduler) ([]models.BatchItem, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-cmd.Context().Done():
			return scheduler.Snapshot(), cmd.Context().Err()
		case <-ticker.C:
			items := scheduler.Snapshot()
			done := true
			for _, item := range items {
				if !item.Status.Terminal() {
					done = false
					break
				}
			}
			if done {
				return items, nil
			}
		}
	}
}

func printVerdicts(items []models.BatchItem) {
	for _, item := range items {
		fmt.Printf("\n%s [%s]\n", item.DisplayName, item.Status)
		if item.Status == models.StatusError {
			fmt.Printf("  %s\n", item.ErrorMessage)
			continue
		}

		for _, r := range item.Results {
			line := fmt.Sprintf("  %s", r.Product.Code)
			if r.Product.VisualPrice != nil {
				line += fmt.Sprintf("  printed %.2f", *r.Product.VisualPrice)
			}
			switch {
			case !r.Match.Found && r.Match.CodeSuggestion != "":
				line += fmt.Sprintf("  NOT FOUND (did you mean %s?)", r.Match.CodeSuggestion)
			case !r.Match.Found:
				line += "  NOT FOUND"
			case r.PriceMismatch:
				line += fmt.Sprintf("  PRICE MISMATCH (catalog %s)", r.Match.CurrentPrice)
			default:
				line += "  ok"
			}
			if r.HasDiscount {
				line += "  [discounted]"
			}
			fmt.Println(line)
		}

		if item.Spelling != nil && item.Spelling.HasErrors {
			fmt.Println("  spelling issues:")
			for _, c := range item.Spelling.Corrections {
				fmt.Printf("    %q -> %q (%s)\n", c.Original, c.Suggestion, c.Context)
			}
		} else {
			fmt.Println("  spelling ok")
		}
	}
}

func mimeTypeForFile(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(t, "image/") {
		return t
	}
	return http.DetectContentType(data)
}
