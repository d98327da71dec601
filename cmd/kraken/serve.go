package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kraken-build/kraken/pkg/adapters/fsstore"
	"github.com/kraken-build/kraken/pkg/adapters/httpapi"
	"github.com/kraken-build/kraken/pkg/build"
	"github.com/kraken-build/kraken/pkg/observability"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only HTTP query server",
	Long: `Serves the project tree, execution graph and persisted run states as a JSON
API, plus Prometheus metrics. The server never triggers task execution.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		stateDir, _ := cmd.Flags().GetString("state-dir")

		store := fsstore.New(stateDir)
		bctx, logger, err := newBuildContext(cmd, build.WithStateStore(store))
		if err != nil {
			fail(err)
		}

		handler := httpapi.NewHandler(bctx,
			httpapi.WithMetrics(observability.NewMetrics()),
			httpapi.WithLogger(logger),
		)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting kraken server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("kraken server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("state-dir", "", "Directory for persisted run state (default .kraken/state)")
}
