package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newGroupsCmd(c *client) *cobra.Command {
	root := &cobra.Command{
		Use:   "groups",
		Short: "Manage groups",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", "/v1alpha3/groups", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a group by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", "/v1alpha3/groups/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var name, email, scienceField, description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"metadata": map[string]any{
				"name": name, "email": email, "scienceField": scienceField, "description": description,
			}}
			var out any
			if err := c.do("POST", "/v1alpha3/groups", body, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	create.Flags().StringVar(&name, "name", "", "group name")
	create.Flags().StringVar(&email, "email", "", "contact email")
	create.Flags().StringVar(&scienceField, "science-field", "", "field of science")
	create.Flags().StringVar(&description, "description", "", "description")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a group (cascades to owned clusters/instances/secrets)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do("DELETE", "/v1alpha3/groups/"+url.PathEscape(args[0]), nil, nil)
		},
	}

	members := &cobra.Command{
		Use:   "members <id>",
		Short: "List a group's members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", fmt.Sprintf("/v1alpha3/groups/%s/members", url.PathEscape(args[0])), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	root.AddCommand(list, get, create, del, members)
	return root
}
