package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/amireaper/config"
	"github.com/yairfalse/amireaper/providers/aws"
	"github.com/yairfalse/amireaper/resolver"
	"github.com/yairfalse/amireaper/storage"
	"github.com/yairfalse/amireaper/telemetry"
	"github.com/yairfalse/amireaper/types"
)

var (
	scanConfigPath string
	scanRegion     string
	scanOutput     string
	scanUnattached string
	scanMinAgeDays int
	scanNoRecord   bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Compute unreferenced AMI candidates",
	Long: `Scan the account for AMI deletion candidates.

The scan lists every AMI the account owns, then unions the image IDs
referenced by non-terminated instances, scaled-to-zero groups, and
(depending on policy) unattached launch configurations and templates.
Catalog minus referenced is the candidate list.`,
	Example: `  amireaper scan                          # Scan with defaults
  amireaper scan --region eu-west-1       # Scan a specific region
  amireaper scan --min-age-days 30        # Only candidates older than 30 days
  amireaper scan --unattached collect     # Unattached configs don't pin images
  amireaper scan --output json            # Machine-readable output`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanConfigPath, "config", "c", "", "Path to configuration file")
	scanCmd.Flags().StringVarP(&scanRegion, "region", "r", "", "AWS region to scan (overrides config)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "table", "Output format: table, json")
	scanCmd.Flags().StringVar(&scanUnattached, "unattached", "", "Unattached config/template accounting: preserve, collect")
	scanCmd.Flags().IntVar(&scanMinAgeDays, "min-age-days", -1, "Only report candidates at least this old")
	scanCmd.Flags().BoolVar(&scanNoRecord, "no-record", false, "Skip recording this run in the history store")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := scanConfig()
	if err != nil {
		return err
	}
	if scanOutput != "table" && scanOutput != "json" {
		return fmt.Errorf("invalid output format: %s (must be table or json)", scanOutput)
	}

	ctx := context.Background()
	logger := telemetry.NewLogger("amireaper")

	fetcher, err := aws.New(ctx, aws.Config{
		Region:           cfg.Region,
		RetryMaxAttempts: cfg.RetryMaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	catalog, sources, err := fetchAll(ctx, fetcher, logger)
	if err != nil {
		// No partial results: computing deletion candidates from
		// incomplete reference data is unsafe.
		return err
	}

	referenced := resolver.Referenced(sources, cfg.UnattachedAction)
	candidates := resolver.Candidates(catalog, referenced)
	if cfg.MinAgeDays > 0 {
		minAge := time.Duration(cfg.MinAgeDays) * 24 * time.Hour
		candidates = resolver.OlderThan(catalog, candidates, minAge, time.Now())
	}

	logger.LogRunComplete(ctx, len(catalog), len(referenced), len(candidates))

	if !scanNoRecord {
		if err := recordRun(cfg, catalog, referenced, candidates); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record run: %v\n", err)
		}
	}

	if scanOutput == "json" {
		return outputJSON(cfg.Region, catalog, referenced, candidates)
	}
	return outputTable(cfg.Region, catalog, referenced, candidates)
}

// scanConfig builds the effective configuration from file and flags.
func scanConfig() (*config.Config, error) {
	cfg := config.Default()
	if scanConfigPath != "" {
		loaded, err := config.Load(scanConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if scanRegion != "" {
		cfg.Region = scanRegion
	}
	if scanUnattached != "" {
		cfg.UnattachedAction = resolver.UnattachedAction(scanUnattached)
	}
	if scanMinAgeDays >= 0 {
		cfg.MinAgeDays = scanMinAgeDays
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fetchAll runs every fetch operation sequentially. The sources are
// independent; any failure aborts the scan.
func fetchAll(ctx context.Context, fetcher *aws.Fetcher, logger *telemetry.Logger) (types.ImageCatalog, resolver.Sources, error) {
	var sources resolver.Sources

	catalog, err := fetcher.FetchCatalog(ctx)
	if err != nil {
		logger.LogSourceError(ctx, "catalog", err)
		return nil, sources, err
	}

	fetches := []struct {
		name string
		dest *types.ImageSet
		fn   func(context.Context) (types.ImageSet, error)
	}{
		{"active instances", &sources.ActiveInstances, fetcher.FetchActiveInstanceImageIDs},
		{"attached configs", &sources.AttachedConfigs, fetcher.FetchAttachedConfigImageIDs},
		{"attached templates", &sources.AttachedTemplates, fetcher.FetchAttachedTemplateImageIDs},
		{"zero-capacity configs", &sources.ZeroCapacityConfigs, fetcher.FetchZeroCapacityConfigImageIDs},
		{"zero-capacity templates", &sources.ZeroCapacityTemplates, fetcher.FetchZeroCapacityTemplateImageIDs},
		{"unattached configs", &sources.UnattachedConfigs, fetcher.FetchUnattachedConfigImageIDs},
		{"unattached templates", &sources.UnattachedTemplates, fetcher.FetchUnattachedTemplateImageIDs},
	}

	for _, fetch := range fetches {
		ids, err := fetch.fn(ctx)
		if err != nil {
			logger.LogSourceError(ctx, fetch.name, err)
			return nil, sources, err
		}
		logger.LogSourceComplete(ctx, fetch.name, len(ids))
		*fetch.dest = ids
	}

	return catalog, sources, nil
}

func recordRun(cfg *config.Config, catalog types.ImageCatalog, referenced, candidates types.ImageSet) error {
	store, err := storage.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.RecordRun(storage.RunRecord{
		Timestamp:       time.Now(),
		Region:          cfg.Region,
		CatalogSize:     len(catalog),
		ReferencedCount: len(referenced),
		Candidates:      candidates.Values(),
	})
}

// scanReport is the JSON output shape.
type scanReport struct {
	Region          string           `json:"region"`
	CatalogSize     int              `json:"catalog_size"`
	ReferencedCount int              `json:"referenced_count"`
	Candidates      []candidateImage `json:"candidates"`
}

type candidateImage struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func buildReport(region string, catalog types.ImageCatalog, referenced, candidates types.ImageSet) scanReport {
	report := scanReport{
		Region:          region,
		CatalogSize:     len(catalog),
		ReferencedCount: len(referenced),
		Candidates:      []candidateImage{},
	}
	for _, id := range candidates.Values() {
		c := candidateImage{ID: id}
		if image, ok := catalog[id]; ok {
			c.Name = image.Name
			if !image.CreatedAt.IsZero() {
				c.CreatedAt = image.CreatedAt.Format(time.RFC3339)
			}
		}
		report.Candidates = append(report.Candidates, c)
	}
	return report
}

func outputJSON(region string, catalog types.ImageCatalog, referenced, candidates types.ImageSet) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildReport(region, catalog, referenced, candidates))
}

func outputTable(region string, catalog types.ImageCatalog, referenced, candidates types.ImageSet) error {
	report := buildReport(region, catalog, referenced, candidates)

	fmt.Printf("Region %s: %d images owned, %d referenced, %d candidates\n\n",
		report.Region, report.CatalogSize, report.ReferencedCount, len(report.Candidates))

	if len(report.Candidates) == 0 {
		fmt.Println("No unreferenced AMIs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IMAGE ID\tNAME\tCREATED")
	for _, c := range report.Candidates {
		created := c.CreatedAt
		if created == "" {
			created = "-"
		}
		name := c.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, name, created)
	}
	return w.Flush()
}
