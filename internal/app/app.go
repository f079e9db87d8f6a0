package app

import (
	"github.com/spf13/cobra"

	"github.com/xab-mack/solrange/internal/cli"
)

func BuildRoot() *cobra.Command {
	root := &cobra.Command{Use: "solrange", Short: "Interval range analysis for Solidity and DeFi protocols"}
	cli.AddCommands(root)
	return root
}
