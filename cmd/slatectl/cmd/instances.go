package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newInstancesCmd(c *client) *cobra.Command {
	root := &cobra.Command{
		Use:   "instances",
		Short: "Manage application instances",
	}

	var group string
	list := &cobra.Command{
		Use:   "list",
		Short: "List instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1alpha3/instances"
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
		Short: "Get an instance by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", "/v1alpha3/instances/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Uninstall an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do("DELETE", "/v1alpha3/instances/"+url.PathEscape(args[0]), nil, nil)
		},
	}

	var maxLines int
	var container string
	var previous bool
	logs := &cobra.Command{
		Use:   "logs <id>",
		Short: "Fetch an instance's pod logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/v1alpha3/instances/%s/logs?max_lines=%d&previous=%t",
				url.PathEscape(args[0]), maxLines, previous)
			if container != "" {
				path += "&container=" + url.QueryEscape(container)
			}
			var out any
			if err := c.do("GET", path, nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	logs.Flags().IntVar(&maxLines, "max-lines", 200, "maximum log lines to return")
	logs.Flags().StringVar(&container, "container", "", "container name, if the instance runs more than one")
	logs.Flags().BoolVar(&previous, "previous", false, "fetch logs from the previous container instance")

	var replicas int
	var deployment string
	scale := &cobra.Command{
		Use:   "scale <id>",
		Short: "Scale a deployment within an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"replicas": replicas, "deployment": deployment}
			return c.do("PUT", "/v1alpha3/instances/"+url.PathEscape(args[0])+"/scale", body, nil)
		},
	}
	scale.Flags().IntVar(&replicas, "replicas", 1, "target replica count")
	scale.Flags().StringVar(&deployment, "deployment", "", "deployment name")

	var restartDeployment string
	restart := &cobra.Command{
		Use:   "restart <id>",
		Short: "Restart a deployment within an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"deployment": restartDeployment}
			return c.do("POST", "/v1alpha3/instances/"+url.PathEscape(args[0])+"/restart", body, nil)
		},
	}
	restart.Flags().StringVar(&restartDeployment, "deployment", "", "deployment name")

	root.AddCommand(list, get, del, logs, scale, restart)
	return root
}
