package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/internal/release"
)

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "List deploys recorded in the local release history",
	RunE:  runReleases,
}

func runReleases(cmd *cobra.Command, args []string) error {
	_, dir, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	ledger := release.NewLedger(ledgerPath(dir))
	history, err := ledger.Read()
	if err != nil {
		return err
	}

	if len(history.Releases) == 0 {
		fmt.Println("No releases recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERIAL\tDEPLOYED\tSERVICE\tIMAGE\tDIGEST\tURL")
	for _, rel := range history.Releases {
		digest := rel.Digest
		if len(digest) > 19 {
			digest = digest[:19] // "sha256:" + 12 hex chars
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			rel.Serial,
			rel.DeployedAt.Format("2006-01-02 15:04:05"),
			rel.Service,
			rel.Image,
			digest,
			rel.URL,
		)
	}
	return w.Flush()
}
