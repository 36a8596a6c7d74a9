package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/FilterCam/internal/filter"
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Inspect the filter cycle",
}

var filtersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List filters in cycle order",
	Example: `  # Table (default)
  filtercam filters list

  # JSON
  filtercam filters list --format json`,
	RunE: runFiltersList,
}

var filtersNextCmd = &cobra.Command{
	Use:   "next NAME",
	Short: "Print the filter that follows NAME in the cycle",
	Args:  cobra.ExactArgs(1),
	RunE:  runFiltersNext,
}

var filtersFormat string

func init() {
	rootCmd.AddCommand(filtersCmd)
	filtersCmd.AddCommand(filtersListCmd)
	filtersCmd.AddCommand(filtersNextCmd)

	filtersListCmd.Flags().StringVarP(&filtersFormat, "format", "f", "table", "output format (table or json)")
}

func runFiltersList(cmd *cobra.Command, args []string) error {
	ids := filter.All()

	switch filtersFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(ids)
	case "table":
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tNEXT")
		for _, id := range ids {
			fmt.Fprintf(w, "%d\t%s\t%s\n", int(id), id, id.Next())
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", filtersFormat)
	}
}

func runFiltersNext(cmd *cobra.Command, args []string) error {
	id, err := filter.Parse(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id.Next())
	return nil
}
