package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hrms/internal/domain/auth"
	cryptoutil "hrms/internal/platform/crypto"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User account maintenance",
	}
	cmd.AddCommand(newResetPasswordCmd())
	return cmd
}

func newResetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for a user and revoke their sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return errors.New("--email is required")
			}
			password, err := promptNewPassword(cmd)
			if err != nil {
				return err
			}

			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			cryptoSvc, err := cryptoutil.New(cfg.DataEncryptionKey, cfg.RetiredEncryptionKeys...)
			if err != nil {
				return err
			}
			svc := auth.NewService(auth.NewStore(pool), cryptoSvc, cfg.JWTSecret, cfg.JWTTTL)
			if err := svc.SetPassword(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s; existing sessions revoked\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

// promptNewPassword reads the password twice without echo when attached to
// a terminal, or line by line from piped input.
func promptNewPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	errOut := cmd.ErrOrStderr()

	var read func() (string, error)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		read = func() (string, error) {
			raw, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(errOut)
			return string(raw), err
		}
	} else {
		reader := bufio.NewReader(in)
		read = func() (string, error) {
			line, err := reader.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && line != "") {
				return "", err
			}
			return strings.TrimRight(line, "\r\n"), nil
		}
	}

	fmt.Fprint(errOut, "New password: ")
	first, err := read()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(errOut, "Confirm password: ")
	second, err := read()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	if err := auth.ValidatePassword(first); err != nil {
		return "", err
	}
	return first, nil
}
