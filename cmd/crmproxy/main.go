package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFiles []string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crmproxy",
		Short:         "HubSpot CRM gateway with AI lead insights",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newInsightCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "crmproxy:", err)
		os.Exit(1)
	}
}
