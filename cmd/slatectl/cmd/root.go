// Package cmd implements slatectl's subcommands, grounded on the pack's
// cobra CLI idiom (github.com/hashmap-kz/kubectl-atomic-apply's cmd/root.go
// shape: one NewRootCmd() assembling an explicit list of subcommands, flags
// bound per-command rather than globally).
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// client carries the API endpoint and bearer token every subcommand needs;
// populated from persistent flags in NewRootCmd.
type client struct {
	baseURL string
	token   string
}

// NewRootCmd assembles the slatectl command tree.
func NewRootCmd() *cobra.Command {
	c := &client{}

	root := &cobra.Command{
		Use:           "slatectl",
		Short:         "Command-line client for the federation control plane API",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&c.baseURL, "server", "http://localhost:18080", "federation API base URL")
	root.PersistentFlags().StringVar(&c.token, "token", os.Getenv("SLATE_TOKEN"), "bearer token (defaults to $SLATE_TOKEN)")

	root.AddCommand(
		newUsersCmd(c),
		newGroupsCmd(c),
		newClustersCmd(c),
		newAppsCmd(c),
		newInstancesCmd(c),
		newSecretsCmd(c),
	)
	return root
}
