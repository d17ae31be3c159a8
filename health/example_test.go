package health_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/memocache/cache"
	"github.com/jonwraymond/memocache/health"
)

func ExampleNewBackendChecker() {
	checker := health.NewBackendChecker(cache.NewMemoryBackend(), health.BackendCheckerConfig{})

	result := checker.Check(context.Background())

	fmt.Println("Checker name:", checker.Name())
	fmt.Println("Status:", result.Status)
	fmt.Println("Message:", result.Message)
	// Output:
	// Checker name: backend
	// Status: healthy
	// Message: backend read and write ok
}

func ExampleAggregator_Report() {
	agg := health.NewAggregator()
	agg.Register("backend", health.NewBackendChecker(cache.NewMemoryBackend(), health.BackendCheckerConfig{}))
	agg.Register("upstream", health.NewCheckerFunc("upstream", func(ctx context.Context) health.Result {
		return health.Degraded("slow responses")
	}))

	report := agg.Report(agg.CheckAll(context.Background()))

	fmt.Println("Overall:", report.Status)
	for _, c := range report.Checks {
		fmt.Printf("%s: %s\n", c.Name, c.Status)
	}
	// Output:
	// Overall: degraded
	// backend: healthy
	// upstream: degraded
}
