// Package admin implements the gatekeeper admin CLI. Commands operate on
// the configured store directly, so the first user can be created before
// any strategy would let a request through.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/server/sessions"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Opener opens the tables the commands work on. The caller closes them.
type Opener func(ctx context.Context) (*server.Stores, error)

// readPassword and isTerminal are test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

const rootLong = `Manage gatekeeper users and sessions directly in the configured store.

Run with the server stopped: the server keeps its own copy of every table
and writes it back on shutdown, replacing changes made here.`

type cli struct {
	open Opener
	in   *bufio.Reader
	out  io.Writer
}

// NewRootCommand builds the command tree reading from in and writing to out.
func NewRootCommand(open Opener, in io.Reader, out io.Writer) *cobra.Command {
	c := &cli{open: open, in: bufio.NewReader(in), out: out}

	root := &cobra.Command{
		Use:           "gatekeeper-admin",
		Short:         "Manage gatekeeper users and sessions",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)

	users := &cobra.Command{Use: "user", Short: "Manage users"}
	users.AddCommand(c.userAddCmd(), c.userListCmd(), c.userDeleteCmd(), c.userResetCmd())

	sess := &cobra.Command{Use: "sessions", Short: "Manage persisted sessions"}
	sess.AddCommand(c.sessionsPurgeCmd())

	root.AddCommand(users, sess, c.countCmd())
	return root
}

func (c *cli) withStores(ctx context.Context, fn func(*server.Stores) error) error {
	st, err := c.open(ctx)
	if err != nil {
		return err
	}
	return errors.Join(fn(st), st.Close())
}

func (c *cli) password() (string, error) {
	fmt.Fprint(c.out, "Enter password: ")
	if isTerminal(int(os.Stdin.Fd())) {
		pw, err := readPassword(int(os.Stdin.Fd()))
		defer common.WipeByteArray(pw)
		fmt.Fprintln(c.out)
		return string(pw), err
	}
	line, err := c.in.ReadString('\n')
	fmt.Fprintln(c.out)
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) userAddCmd() *cobra.Command {
	var reg services.Registration

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user, prompting for the password",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := c.password()
			if err != nil {
				return err
			}
			reg.Password = pw

			return c.withStores(cmd.Context(), func(st *server.Stores) error {
				u, err := services.NewUserService(st.Users, nil).Register(cmd.Context(), reg)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "created %s (%s)\n", u.ID, u.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reg.Email, "email", "", "user email")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStores(cmd.Context(), func(st *server.Stores) error {
				w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tEMAIL\tNAME\tCREATED")
				for _, u := range st.Users.All() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.DisplayName(), u.CreatedAt)
				}
				return w.Flush()
			})
		},
	}
}

// findUser accepts an id or an email.
func findUser(st *server.Stores, key string) (models.User, error) {
	if u, err := st.Users.Get(key); err == nil {
		return u, nil
	}
	found := st.Users.Search(models.UserByEmail(key))
	if len(found) == 0 {
		return models.User{}, fmt.Errorf("user %q: %w", key, common.ErrorNotFound)
	}
	return found[0], nil
}

func (c *cli) userDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|email>",
		Short: "Delete a user and their persisted sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withStores(ctx, func(st *server.Stores) error {
				u, err := findUser(st, args[0])
				if err != nil {
					return err
				}
				if err := st.Users.Remove(ctx, u.ID); err != nil {
					return err
				}
				n, err := st.Sessions.RemoveWhere(ctx, func(s *models.UserSession) bool { return s.UserID == u.ID })
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "deleted %s, %d session(s)\n", u.ID, n)
				return nil
			})
		},
	}
}

func (c *cli) userResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Issue a single-use reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStores(cmd.Context(), func(st *server.Stores) error {
				token, err := services.NewUserService(st.Users, nil).GetResetPasswordToken(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, token)
				return nil
			})
		},
	}
}

func (c *cli) sessionsPurgeCmd() *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove persisted sessions older than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAge <= 0 {
				return fmt.Errorf("--max-age must be positive: %w", common.ErrorValidation)
			}
			return c.withStores(cmd.Context(), func(st *server.Stores) error {
				reg := sessions.NewRegistry(sessions.WithBackend(sessions.NewStored(st.Sessions)))
				n, err := reg.Purge(cmd.Context(), sessions.Policy{MaxAge: maxAge})
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "purged %d session(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "session lifetime, e.g. 1h")
	return cmd
}

func (c *cli) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print table sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStores(cmd.Context(), func(st *server.Stores) error {
				fmt.Fprintf(c.out, "%s: %d\n%s: %d\n",
					models.KindUser, st.Users.Count(), models.KindUserSession, st.Sessions.Count())
				return nil
			})
		},
	}
}
