package cmd

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func newAppsCmd(c *client) *cobra.Command {
	root := &cobra.Command{
		Use:   "apps",
		Short: "Browse the application catalog and install applications",
	}

	var query string
	var dev, test bool
	search := &cobra.Command{
		Use:   "search",
		Short: "Search the application catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1alpha3/apps?name=" + url.QueryEscape(query)
			if dev {
				path += "&dev=true"
			}
			if test {
				path += "&test=true"
			}
			var out any
			if err := c.do("GET", path, nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	search.Flags().StringVar(&query, "name", "", "application name substring")
	search.Flags().BoolVar(&dev, "dev", false, "include the development repository")
	search.Flags().BoolVar(&test, "test", false, "include the test repository")

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Get an application's catalog entry and default configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", "/v1alpha3/apps/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var group, cluster, configPath string
	install := &cobra.Command{
		Use:   "install <name>",
		Short: "Install an application onto a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configuration := ""
			if configPath != "" {
				raw, err := os.ReadFile(configPath)
				if err != nil {
					return fmt.Errorf("reading configuration: %w", err)
				}
				configuration = string(raw)
			}
			body := map[string]any{"group": group, "cluster": cluster, "configuration": configuration}
			var out any
			if err := c.do("POST", "/v1alpha3/apps/"+url.PathEscape(args[0]), body, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	install.Flags().StringVar(&group, "group", "", "installing group ID or name")
	install.Flags().StringVar(&cluster, "cluster", "", "target cluster ID or name")
	install.Flags().StringVar(&configPath, "values", "", "path to a Helm values YAML file")

	root.AddCommand(search, get, install)
	return root
}
