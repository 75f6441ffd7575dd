package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/scorelens-cli/internal/cache"
	"github.com/KaramelBytes/scorelens-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr    string
	serveRedis   string
	serveNoCache bool
)

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Serve the analytics JSON API (optionally preloading a score sheet)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		views, err := viewOptions()
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = c.ServerAddr
		}
		if addr == "" {
			addr = ":5000"
		}

		var store cache.Store
		if !serveNoCache {
			redisAddr := serveRedis
			if redisAddr == "" {
				redisAddr = c.RedisAddr
			}
			if redisAddr != "" {
				rs, err := cache.NewRedis(cache.RedisConfig{Addr: redisAddr, Password: c.RedisPassword, DB: c.RedisDB})
				if err != nil {
					return err
				}
				store = rs
			} else {
				store = cache.NewMemory()
			}
			defer store.Close()
		}
		ttl := c.CacheTTL()
		if ttl <= 0 {
			ttl = cache.DefaultTTL
		}

		loader := newLoader()
		srv := server.New(server.Options{
			Addr:     addr,
			Loader:   loader,
			Cache:    store,
			CacheTTL: ttl,
			Views:    views,
			Log:      logger,
		})
		if len(args) == 1 {
			ds, err := loader.LoadFile(args[0])
			if err != nil {
				return err
			}
			srv.SetDataset(ds)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Loaded %s: %d students, %d subjects\n", ds.Name(), ds.Len(), ds.NumSubjects())
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on %s (Ctrl+C to stop)\n", addr)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config server_addr)")
	serveCmd.Flags().StringVar(&serveRedis, "redis", "", "redis address for the view cache (default from config redis_addr)")
	serveCmd.Flags().BoolVar(&serveNoCache, "no-cache", false, "disable the view cache")
}
