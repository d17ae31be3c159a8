package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/memocache/cache"
)

func newKeyCmd() *cobra.Command {
	var pattern bool

	cmd := &cobra.Command{
		Use:   "key URL...",
		Short: "Print the cache key each URL is stored under",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			w, err := newWrapper(s, cache.NewMemoryBackend(), nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, url := range args {
				key, err := w.Key(pageTextSignature, cache.Keywords(map[string]any{"page_url": url}))
				if err != nil {
					return err
				}
				if s.backend == "redis" && s.redisPrefix != "" {
					key = s.redisPrefix + ":" + key
				}
				if pattern {
					p, err := cache.Pattern(pageTextSignature.Identity(), []any{url})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\t%s\t%s\n", url, key, p)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", url, key)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&pattern, "pattern", false, "also print the pre-hash key pattern")

	return cmd
}
