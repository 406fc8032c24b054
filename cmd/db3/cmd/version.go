package cmd

import (
	"fmt"

	"github.com/datachainlab/db3/app"
	"github.com/spf13/cobra"
	tmversion "github.com/tendermint/tendermint/version"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (app protocol %d, abci %s)\n",
				app.Name, app.Version, app.AppVersion, tmversion.ABCIVersion)
			return nil
		},
	}
}
