package cmd

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func newClustersCmd(c *client) *cobra.Command {
	root := &cobra.Command{
		Use:   "clusters",
		Short: "Manage clusters",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", "/v1alpha3/clusters", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a cluster by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", "/v1alpha3/clusters/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var name, group, org, kubeconfigPath string
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			kubeconfig := ""
			if kubeconfigPath != "" {
				raw, err := os.ReadFile(kubeconfigPath)
				if err != nil {
					return fmt.Errorf("reading kubeconfig: %w", err)
				}
				kubeconfig = string(raw)
			}
			body := map[string]any{"metadata": map[string]any{
				"name": name, "group": group, "organization": org, "kubeconfig": kubeconfig,
			}}
			var out any
			if err := c.do("POST", "/v1alpha3/clusters", body, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	register.Flags().StringVar(&name, "name", "", "cluster name")
	register.Flags().StringVar(&group, "group", "", "owning group ID or name")
	register.Flags().StringVar(&org, "organization", "", "owning organization")
	register.Flags().StringVar(&kubeconfigPath, "kubeconfig", "", "path to the cluster's kubeconfig file")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a cluster (cascades to hosted instances/secrets)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do("DELETE", "/v1alpha3/clusters/"+url.PathEscape(args[0]), nil, nil)
		},
	}

	grant := &cobra.Command{
		Use:   "grant-group <cluster-id> <group-id>",
		Short: "Grant a group access to a cluster",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/v1alpha3/clusters/%s/allowed_groups/%s", url.PathEscape(args[0]), url.PathEscape(args[1]))
			return c.do("PUT", path, nil, nil)
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke-group <cluster-id> <group-id>",
		Short: "Revoke a group's access to a cluster",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/v1alpha3/clusters/%s/allowed_groups/%s", url.PathEscape(args[0]), url.PathEscape(args[1]))
			return c.do("DELETE", path, nil, nil)
		},
	}

	grantApp := &cobra.Command{
		Use:   "grant-app <cluster-id> <group-id> <app-name>",
		Short: "Grant a group permission to install an application on a cluster",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/v1alpha3/clusters/%s/allowed_groups/%s/applications/%s",
				url.PathEscape(args[0]), url.PathEscape(args[1]), url.PathEscape(args[2]))
			return c.do("PUT", path, nil, nil)
		},
	}

	revokeApp := &cobra.Command{
		Use:   "revoke-app <cluster-id> <group-id> <app-name>",
		Short: "Revoke a group's permission to install an application on a cluster",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/v1alpha3/clusters/%s/allowed_groups/%s/applications/%s",
				url.PathEscape(args[0]), url.PathEscape(args[1]), url.PathEscape(args[2]))
			return c.do("DELETE", path, nil, nil)
		},
	}

	root.AddCommand(list, get, register, del, grant, revoke, grantApp, revokeApp)
	return root
}
