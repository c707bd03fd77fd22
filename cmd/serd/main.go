// Command serd runs the SER protocol session server.
package main

import (
	"context"
	"os"

	"github.com/roach88/serd/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
