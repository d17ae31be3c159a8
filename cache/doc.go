// Package cache provides function-level result caching.
//
// A computation is described by a Signature (its parameters and their
// defaults) and wrapped with Wrap. Each invocation binds its arguments,
// projects them onto the configured sign variables, derives a deterministic
// key and consults a Backend before running the computation:
//
//	sig := cache.MustSignature("pages", "get_page_text",
//	    cache.Required("page_url"),
//	    cache.Optional("timeout", 10),
//	)
//	w, err := cache.NewWrapper(backend, cache.Config{
//	    SignVariables: []string{"page_url"},
//	    Expiry:        100 * time.Second,
//	})
//	fetch, err := cache.Wrap(w, sig, getPageText)
//	text, err := fetch(ctx, cache.Call("https://example.com"))
//
// Only sign variables participate in the key: two calls that differ in
// other arguments share one cache entry.
package cache
