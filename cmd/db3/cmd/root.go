package cmd

import (
	"github.com/spf13/cobra"
)

const about = `db3: a decentralized key-value store node

Run "db3 node" next to a tendermint node configured with
--proxy_app=tcp://127.0.0.1:26658.`

// NewRootCmd returns the db3 command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "db3",
		Short:        "db3 storage node",
		Long:         about,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		NewNodeCmd(),
		NewVersionCmd(),
	)
	return rootCmd
}
