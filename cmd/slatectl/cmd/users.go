package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newUsersCmd(c *client) *cobra.Command {
	root := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", "/v1alpha3/users", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a user by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", "/v1alpha3/users/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var globusID string
	find := &cobra.Command{
		Use:   "find",
		Short: "Find a user by Globus ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			path := "/v1alpha3/find_user?globus_id=" + url.QueryEscape(globusID)
			if err := c.do("GET", path, nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	find.Flags().StringVar(&globusID, "globus-id", "", "Globus ID to look up")

	var name, email, phone, institution, createGlobusID string
	var admin bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"metadata": map[string]any{
				"globusID": createGlobusID, "name": name, "email": email,
				"phone": phone, "institution": institution, "admin": admin,
			}}
			var out any
			if err := c.do("POST", "/v1alpha3/users", body, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	create.Flags().StringVar(&name, "name", "", "user name")
	create.Flags().StringVar(&createGlobusID, "globus-id", "", "Globus ID")
	create.Flags().StringVar(&email, "email", "", "user email")
	create.Flags().StringVar(&phone, "phone", "", "user phone")
	create.Flags().StringVar(&institution, "institution", "", "user institution")
	create.Flags().BoolVar(&admin, "admin", false, "grant admin privileges")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do("DELETE", "/v1alpha3/users/"+url.PathEscape(args[0]), nil, nil)
		},
	}

	groups := &cobra.Command{
		Use:   "groups <id>",
		Short: "List a user's groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if err := c.do("GET", fmt.Sprintf("/v1alpha3/users/%s/groups", url.PathEscape(args[0])), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	root.AddCommand(list, get, find, create, del, groups)
	return root
}
