package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/miniaturedb/internal/auth"
	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage login accounts in the local users store",
	}
	cmd.AddCommand(newUserAddCmd(), newUserPasswdCmd(), newUserListCmd(), newUserDeleteCmd())
	return cmd
}

// readPassword returns the flag value, or the first line of in when the
// flag is empty.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// withAuth runs fn against an auth service over the local stores.
func withAuth(fn func(svc *auth.Service) error) error {
	b, cfg, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Detach()
	return fn(auth.NewService(b.Users(), b.Sessions(), cfg.SessionTTL, nil))
}

func newUserAddCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			return withAuth(func(svc *auth.Service) error {
				u, err := svc.CreateUser(cmd.Context(), args[0], pw)
				if err != nil {
					return fmt.Errorf("add user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %s\n", u.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	return cmd
}

func newUserPasswdCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a user's password and revoke their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			return withAuth(func(svc *auth.Service) error {
				if err := svc.SetPassword(cmd.Context(), args[0], pw); err != nil {
					return fmt.Errorf("set password: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password (read from stdin when omitted)")
	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(func(svc *auth.Service) error {
				users, err := svc.Users(cmd.Context())
				if err != nil {
					return sysError("list users: %w", err)
				}
				if flags.jsonMode {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(users)
				}
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					rows = append(rows, []string{u.Username, u.CreatedAt.Local().Format("2006-01-02 15:04")})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"USERNAME", "CREATED"}, rows))
				return nil
			})
		},
	}
}

func newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user with their sessions and settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(func(svc *auth.Service) error {
				err := svc.DeleteUser(cmd.Context(), args[0])
				if errors.Is(err, types.ErrNotFound) {
					return fmt.Errorf("user %q not found", args[0])
				}
				if err != nil {
					return sysError("delete user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", args[0])
				return nil
			})
		},
	}
}
