package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/chimebell/chime/pkg/credstore"
	"github.com/chimebell/chime/pkg/logger"
)

func openCreds(ctx *cli.Context, action string) *credstore.Store {
	store, err := openCredStore(logger.NewConsoleLogger())
	if err != nil {
		printRuntimeErr(ctx, "auth", action, err)
		return nil
	}
	return store
}

func authSet(ctx *cli.Context) error {
	host := ctx.Args().First()
	if host == "" {
		return printErrWithCmdHelp(ctx, errors.New("no host provided"))
	}
	if host == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	fmt.Printf("Username for %s: ", host)
	reader := bufio.NewReader(os.Stdin)
	username, err := reader.ReadString('\n')
	if err != nil {
		printRuntimeErr(ctx, "auth", "read_username", err)
		return nil
	}
	username = strings.TrimSpace(username)

	fmt.Printf("Password for %s: ", host)
	password, err := readPassword()
	fmt.Println()
	if err != nil {
		printRuntimeErr(ctx, "auth", "read_password", err)
		return nil
	}

	store := openCreds(ctx, "set")
	if store == nil {
		return nil
	}
	defer store.Close()

	err = store.Set(credstore.Credential{
		Host:     host,
		Username: username,
		Password: password,
		AddedAt:  time.Now(),
	})
	if err != nil {
		printRuntimeErr(ctx, "auth", "set", err)
		return nil
	}
	fmt.Printf("Stored credentials for %s.\n", host)
	return nil
}

func authList(ctx *cli.Context) error {
	store := openCreds(ctx, "list")
	if store == nil {
		return nil
	}
	defer store.Close()

	creds := store.List()
	if len(creds) == 0 {
		fmt.Println("chime: no credentials stored")
		return nil
	}
	for _, c := range creds {
		fmt.Printf("%s  %s  added %s\n", c.Host, c.Username, c.AddedAt.Format("2006-01-02"))
	}
	return nil
}

func authDel(ctx *cli.Context) error {
	host := ctx.Args().First()
	if host == "" {
		return printErrWithCmdHelp(ctx, errors.New("no host provided"))
	}
	if host == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	store := openCreds(ctx, "del")
	if store == nil {
		return nil
	}
	defer store.Close()

	if err := store.Delete(host); err != nil {
		printRuntimeErr(ctx, "auth", "del", err)
		return nil
	}
	fmt.Printf("Deleted credentials for %s.\n", host)
	return nil
}

// readPassword reads without echo when stdin is a terminal, and falls
// back to a plain line read when it is not (pipes, tests).
func readPassword() (string, error) {
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		return string(b), err
	}
	var line string
	_, err := fmt.Scanln(&line)
	return line, err
}
