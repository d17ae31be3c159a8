package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "pagecache",
		Short:         "Fetch page text through a result cache",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.String("backend", "memory", "cache backend: memory, redis or sqlite")
	pf.String("redis-url", "", "redis connection URL, e.g. redis://localhost:6379/0")
	pf.String("redis-prefix", "pagecache", "namespace for redis keys")
	pf.String("sqlite-path", "pagecache.db", "sqlite database file")
	pf.String("expiry", "100s", "how long fetched pages stay cached (90s, 15m, 1d)")
	pf.String("hash", "md5", "cache key digest: md5 or xxhash")
	pf.Bool("single-flight", false, "coalesce concurrent fetches of the same URL")
	pf.Bool("zero-as-miss", false, "refetch pages whose cached text is empty")
	pf.String("timeout", "10s", "per-request timeout")
	pf.Int("retries", 2, "retries for failed requests (4xx responses are not retried)")
	pf.Int("concurrency", 1, "URLs fetched at once")
	pf.Int("max-requests", 4, "outbound requests in flight at once")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("metrics", "none", "metrics exporter: none, stdout, otlp or prometheus")
	pf.String("tracing", "none", "tracing exporter: none, stdout, otlp or jaeger")

	root.AddCommand(
		newFetchCmd(),
		newKeyCmd(),
		newCheckCmd(),
	)

	return root
}
