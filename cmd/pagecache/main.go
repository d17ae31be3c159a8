// Command pagecache fetches page text for URLs through a cached wrapper.
//
// Results are keyed by URL and stored in memory, Redis or SQLite, so a
// repeated URL is served from the cache until its entry expires:
//
//	pagecache --backend redis --redis-url redis://localhost:6379/0 \
//	    fetch https://www.google.com/ https://www.python.org https://www.google.com/
//
// Every flag can also be set through a PAGECACHE_* environment variable,
// read from the process environment or a .env file in the working directory.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command tree and reports a failure on stderr. It returns
// the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "pagecache:", err)
		return 1
	}
	return 0
}
