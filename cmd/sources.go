package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spigell/job-alert/internal/sources"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered job sources",
	Run: func(_ *cobra.Command, _ []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tACCESS\tRISK\tCOMPANY CONFIG\tDEFAULT")
		for _, meta := range sources.Registry() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n",
				meta.Name, meta.AccessMode, meta.RiskLevel, meta.RequiresCompanyConfig, meta.EnabledByDefault)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
