package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/memocache/health"
)

var errUnhealthy = errors.New("unhealthy")

func newCheckCmd() *cobra.Command {
	var (
		asJSON   bool
		readOnly bool
		upstream string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the cache backend (and optionally an upstream) is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			slowThreshold, err := durationFlagOrEnv(cmd, "slow")
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			agg := health.NewAggregator(health.AggregatorConfig{Timeout: s.timeout})

			backend, closeBackend, err := openBackend(ctx, s)
			if err != nil {
				openErr := err
				agg.Register("backend", health.NewCheckerFunc("backend", func(context.Context) health.Result {
					return health.Unhealthy("backend could not be opened", openErr)
				}))
			} else {
				defer func() {
					err = errors.CombineErrors(err, closeBackend())
				}()
				agg.Register("backend", health.NewBackendChecker(backend, health.BackendCheckerConfig{
					Name:          s.backend,
					ReadOnly:      readOnly,
					SlowThreshold: slowThreshold,
				}))
			}
			if upstream != "" {
				agg.Register("upstream", upstreamChecker(upstream))
			}

			report := agg.Report(agg.CheckAll(ctx))

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				for _, c := range report.Checks {
					line := fmt.Sprintf("%-10s %-9s %s", c.Name, c.Status, c.Message)
					if c.Error != "" {
						line += ": " + c.Error
					}
					fmt.Fprintln(out, line)
				}
				fmt.Fprintf(out, "overall    %s\n", report.Status)
			}

			if report.Status == health.StatusUnhealthy.String() {
				return errUnhealthy
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print the report as JSON")
	f.BoolVar(&readOnly, "read-only", false, "only ping the backend, do not write a probe entry")
	f.String("slow", "0s", "report the backend degraded when a round trip is slower")
	f.StringVar(&upstream, "upstream", "", "also check that this URL answers")

	return cmd
}

// upstreamChecker reports whether url answers a HEAD request. 5xx responses
// are unhealthy, other non-2xx responses are degraded.
func upstreamChecker(url string) health.Checker {
	return health.NewCheckerFunc("upstream", func(ctx context.Context) health.Result {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return health.Unhealthy("invalid upstream url", err)
		}

		start := time.Now()
		resp, err := httpClient.Do(req)
		if err != nil {
			return health.Unhealthy("upstream unreachable", err)
		}
		_ = resp.Body.Close()

		details := map[string]any{"status_code": resp.StatusCode, "latency": time.Since(start).String()}
		switch {
		case resp.StatusCode >= 500:
			return health.Unhealthy(resp.Status, health.ErrCheckFailed).WithDetails(details)
		case resp.StatusCode >= 300:
			return health.Degraded(resp.Status).WithDetails(details)
		default:
			return health.Healthy(resp.Status).WithDetails(details)
		}
	})
}
