package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/export"
	"github.com/ternarybob/marketlens/internal/services/registry"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze registered files and export the report",
	Long: `Selects files (all of them unless --files is given), runs one analysis
and writes the report in the requested format. The customer variant uses
the profiles named with --customers, or every profile when none are named.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

var (
	analyzeVariant   string
	analyzeModel     string
	analyzeFiles     []string
	analyzeCustomers []string
	analyzeFormat    string
	analyzeOutput    string
)

func init() {
	flags := analyzeCmd.Flags()
	flags.StringVar(&analyzeVariant, "variant", "", "Analysis variant (market, energy, customer); defaults to analysis.default_variant")
	flags.StringVar(&analyzeModel, "model", "", "Model override, e.g. claude-sonnet-4-5")
	flags.StringSliceVar(&analyzeFiles, "files", nil, "File ids to analyze (default all)")
	flags.StringSliceVar(&analyzeCustomers, "customers", nil, "Customer ids for the customer variant (default all)")
	flags.StringVarP(&analyzeFormat, "format", "f", "md", "Export format (md, pdf, xlsx, png-pdf)")
	flags.StringVarP(&analyzeOutput, "output", "o", "", "Output path or directory (default: generated file name)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(analyzeFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	variant := application.Session.DefaultVariant()
	if analyzeVariant != "" {
		if variant, err = models.ParseVariant(analyzeVariant); err != nil {
			return err
		}
	}

	if err := selectInputs(ctx, application.Files, application.Customers, variant); err != nil {
		return err
	}

	selected := application.Files.Selected()
	logger.Info().
		Str("variant", string(variant)).
		Int("files", len(selected)).
		Msg("Running analysis")

	report, err := application.Session.Run(ctx, variant, analyzeModel)
	if err != nil {
		return err
	}

	doc, err := application.Export.Export(ctx, report, format)
	if err != nil {
		return err
	}

	path := analyzeOutput
	if path == "" {
		path = doc.Filename
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, doc.Filename)
	}
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Printf("%s\n%s\n\nwrote %s (%s)\n",
		report.Result.Title,
		strings.TrimSpace(report.Result.Summary),
		path,
		humanize.IBytes(uint64(len(doc.Data))))
	return nil
}

// selectInputs replaces the in-memory selections with the ids given on the
// command line, falling back to every record
func selectInputs(ctx context.Context, files *registry.Files, customers *registry.Customers, variant models.AnalysisVariant) error {
	ids := analyzeFiles
	if len(ids) == 0 {
		for _, record := range files.List(registry.ListOptions{}) {
			ids = append(ids, record.ID)
		}
	}
	if err := files.Select(ctx, ids...); err != nil {
		return err
	}

	if variant != models.VariantCustomer {
		return nil
	}
	customerIDs := analyzeCustomers
	if len(customerIDs) == 0 {
		for _, customer := range customers.List() {
			customerIDs = append(customerIDs, customer.ID)
		}
	}
	return customers.Select(ctx, customerIDs...)
}
