package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/ingest"
	"github.com/ternarybob/marketlens/internal/services/registry"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Add local files to the registry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered files",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var removeCmd = &cobra.Command{
	Use:   "remove [ids...]",
	Short: "Remove files from the registry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

var (
	listQuery string
	listSort  string
	listOrder string
)

func init() {
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Case-insensitive name filter")
	listCmd.Flags().StringVar(&listSort, "sort", "upload_date", "Sort field (name, size, upload_date)")
	listCmd.Flags().StringVar(&listOrder, "order", "desc", "Sort order (asc, desc)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	sources := make([]ingest.Source, 0, len(args))
	failed := 0
	for _, path := range args {
		src, err := ingest.FromPath(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipped %s: %v\n", path, err)
			failed++
			continue
		}
		sources = append(sources, src)
	}

	result := application.Ingest.IngestBatch(cmd.Context(), sources)
	for _, failure := range result.Failures {
		fmt.Fprintf(os.Stderr, "skipped %s: %v\n", failure.Name, failure.Err)
	}
	failed += len(result.Failures)

	if len(result.Records) > 0 {
		if err := application.Files.Add(cmd.Context(), result.Records...); err != nil {
			return err
		}
	}

	for _, record := range result.Records {
		fmt.Printf("added %s  %s (%s, %s)\n", record.ID, record.Name, record.Preview, humanize.IBytes(uint64(record.Size)))
	}
	if len(result.Records) == 0 && failed > 0 {
		return fmt.Errorf("no files added")
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	records := application.Files.List(registry.ListOptions{
		Query: listQuery,
		Sort:  models.ParseSortField(listSort),
		Order: models.ParseSortOrder(listOrder),
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Type", "Size", "Uploaded"})
	table.SetAutoWrapText(false)
	for _, record := range records {
		table.Append([]string{
			record.ID,
			record.Name,
			string(record.Preview),
			humanize.IBytes(uint64(record.Size)),
			humanize.Time(record.UploadedAt),
		})
	}
	table.SetFooter([]string{"", "", "", "", fmt.Sprintf("%d files", len(records))})
	table.Render()
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	removed, err := application.Files.Remove(cmd.Context(), args...)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d of %d\n", len(removed), len(args))
	return nil
}
