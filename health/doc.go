// Package health checks that a cache backend is usable.
//
// A Checker reports a Result with a Status of Healthy, Degraded or
// Unhealthy. BackendChecker pings a backend when it can and performs a
// set/get round trip under a probe key. An Aggregator runs several checkers
// with a shared timeout and folds their results into one Status and a
// Report suitable for JSON output.
//
//	agg := health.NewAggregator()
//	agg.Register("backend", health.NewBackendChecker(backend, health.BackendCheckerConfig{}))
//
//	results := agg.CheckAll(ctx)
//	report := agg.Report(results)
//	if report.Status == health.StatusUnhealthy.String() {
//	    os.Exit(1)
//	}
package health
