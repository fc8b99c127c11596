package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thousandtech/chatroom/internal/cache"
	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/client"
	"github.com/thousandtech/chatroom/internal/config"
	"github.com/thousandtech/chatroom/internal/logging"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in and remember the user",
		Long: "Sign in to the server. The password is prompted for on a terminal,\n" +
			"otherwise the first line of stdin is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := readCredentials(cmd, args)
			if err != nil {
				return err
			}
			if err := authenticate(cmd, "login", creds); err != nil {
				return err
			}

			store := config.NewContextStore(appConfig.ContextPath())
			ctx, err := store.Load()
			if err != nil {
				// A corrupt context file is replaced.
				ctx = &config.Context{}
			}
			ctx.SignIn(creds.Username, appConfig.Server.URL)
			if err := store.Save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", creds.Username)
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := readCredentials(cmd, args)
			if err != nil {
				return err
			}
			if err := authenticate(cmd, "register", creds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s; run `chatroom login %s` to sign in\n", creds.Username, creds.Username)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	var purgeCache bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.NewContextStore(appConfig.ContextPath()).Clear(); err != nil {
				return err
			}
			if purgeCache {
				store, err := cache.Open(appConfig.CachePath())
				if err != nil {
					return err
				}
				defer store.Close()
				ctx, cancel := commandContext(cmd)
				defer cancel()
				if err := store.Purge(ctx, ""); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
	cmd.Flags().BoolVar(&purgeCache, "purge-cache", false, "also delete the local transcript cache")
	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := config.NewContextStore(appConfig.ContextPath()).Load()
			if err != nil {
				return err
			}
			if name := strings.TrimSpace(appConfig.User.Name); name != "" {
				ctx.Username = name
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), ctx)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ctx.String())
			return nil
		},
	}
}

func authenticate(cmd *cobra.Command, op string, creds chat.Credentials) error {
	log := logging.Component("cli")
	log.Debug().
		Interface("request", logging.RedactMap(map[string]any{"username": creds.Username, "password": creds.Password})).
		Str("op", op).
		Msg("authenticating")

	ctx, cancel := commandContext(cmd)
	defer cancel()

	api := newAPI(appConfig)
	var (
		result chat.Result
		err    error
	)
	if op == "register" {
		result, err = api.Register(ctx, creds)
	} else {
		result, err = api.Login(ctx, creds)
	}
	if err != nil {
		if errors.Is(err, client.ErrRejected) {
			msg := strings.TrimSpace(result.Msg)
			if msg == "" {
				msg = "rejected"
			}
			return Exitf(ExitCodeRejected, "%s failed: %s", op, msg)
		}
		return err
	}
	return nil
}

func readCredentials(cmd *cobra.Command, args []string) (chat.Credentials, error) {
	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)
	interactive := false
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		interactive = true
	}

	var creds chat.Credentials
	if len(args) > 0 {
		creds.Username = strings.TrimSpace(args[0])
	} else {
		creds.Username = strings.TrimSpace(currentUser(appConfig))
	}
	if creds.Username == "" {
		if !interactive {
			return creds, fmt.Errorf("username is required")
		}
		fmt.Fprint(cmd.ErrOrStderr(), "Username: ")
		line, err := readLine(reader)
		if err != nil {
			return creds, err
		}
		creds.Username = strings.TrimSpace(line)
	}

	if interactive {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		secret, err := term.ReadPassword(int(in.(*os.File).Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return creds, fmt.Errorf("read password: %w", err)
		}
		creds.Password = string(secret)
	} else {
		line, err := readLine(reader)
		if err != nil {
			return creds, fmt.Errorf("read password: %w", err)
		}
		creds.Password = line
	}
	if creds.Username == "" || creds.Password == "" {
		return creds, fmt.Errorf("username and password are required")
	}
	return creds, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
