package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/giantswarm/sitegate/security"
)

func newHashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a site password read from stdin",
		Long: `Read a password from the first line of stdin and print its bcrypt hash.
The hash can be stored in the secret environment variable instead of the plain
password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return oops.Code("INPUT_INVALID").Wrapf(err, "read password")
			}
			password := strings.TrimRight(line, "\r\n")
			if !security.ValidPasswordInput(password) {
				return oops.Code("INPUT_INVALID").
					Errorf("password must be 1 to %d bytes", security.MaxPasswordLength)
			}

			hash, err := security.HashPassword(password, cost)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	return cmd
}
