// trustboot bootstraps mutual-TLS trust between an authority, an inheritor
// and any number of leaves that share an exchange directory.
//
// Usage:
//
//	trustboot bootstrap --role authority
//	trustboot issue --watch
//	trustboot validate
//	trustboot --help
//
// Exit status is 0 on success, 1 on runtime failure, 2 on usage errors,
// 3 on configuration errors, 4 when an upstream artifact never appeared and
// 5 when the store does not match its role's trust policy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sufield/trustboot/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.RedactError(err))
	}
	os.Exit(cli.ExitCode(err))
}
