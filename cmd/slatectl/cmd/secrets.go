package cmd

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func newSecretsCmd(c *client) *cobra.Command {
	root := &cobra.Command{
		Use:   "secrets",
		Short: "Manage secrets",
	}

	var group string
	list := &cobra.Command{
		Use:   "list",
		Short: "List secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1alpha3/secrets"
			if group != "" {
				path += "?group=" + url.QueryEscape(group)
			}
			var out any
			if err := c.do("GET", path, nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	list.Flags().StringVar(&group, "group", "", "filter by owning group ID or name")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a secret by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", "/v1alpha3/secrets/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var name, createGroup, cluster, fromFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			data := ""
			if fromFile != "" {
				raw, err := os.ReadFile(fromFile)
				if err != nil {
					return fmt.Errorf("reading secret data: %w", err)
				}
				data = string(raw)
			}
			body := map[string]any{"metadata": map[string]any{
				"name": name, "group": createGroup, "cluster": cluster, "data": data,
			}}
			var out any
			if err := c.do("POST", "/v1alpha3/secrets", body, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	create.Flags().StringVar(&name, "name", "", "secret name")
	create.Flags().StringVar(&createGroup, "group", "", "owning group ID or name")
	create.Flags().StringVar(&cluster, "cluster", "", "target cluster ID or name")
	create.Flags().StringVar(&fromFile, "from-file", "", "path to a file holding the secret's data")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do("DELETE", "/v1alpha3/secrets/"+url.PathEscape(args[0]), nil, nil)
		},
	}

	root.AddCommand(list, get, create, del)
	return root
}
