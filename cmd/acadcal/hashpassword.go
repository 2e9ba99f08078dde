package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"acadcal/internal/auth"
)

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:  "hash-password",
		Usage: "Print an Argon2id hash for basic_auth.password_hash.",
		Description: "Prompts twice on a terminal. Otherwise the first line of stdin is hashed,\n" +
			"e.g. `echo secret | acadcal hash-password`.",
		Action: func(c *cli.Context) error {
			password, err := readPassword(c)
			if err != nil {
				return err
			}
			if password == "" {
				return cli.Exit("password cannot be empty", 1)
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, hash)
			return nil
		},
	}
}

// readPassword reads without echo when stdin is a terminal and asks for
// confirmation.
func readPassword(c *cli.Context) (string, error) {
	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		fmt.Fprint(c.App.ErrWriter, "Enter password:   ")
		first, err := term.ReadPassword(fd)
		fmt.Fprintln(c.App.ErrWriter)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		fmt.Fprint(c.App.ErrWriter, "Confirm password: ")
		second, err := term.ReadPassword(fd)
		fmt.Fprintln(c.App.ErrWriter)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if string(first) != string(second) {
			return "", cli.Exit("passwords do not match", 1)
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
