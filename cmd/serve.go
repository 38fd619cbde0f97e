package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tanvirhossain/oporichita/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question answering API over HTTP",
	Long: `Starts an HTTP server exposing POST /api/ask for questions,
GET /api/stats for usage statistics and GET /healthz for health checks.
Each client conversation gets its own session with short-term memory.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "port to listen on")
	serveCmd.Flags().Bool("allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	port, _ := cmd.Flags().GetInt("port")
	allowAll, _ := cmd.Flags().GetBool("allow-all-origins")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{Port: port, AllowAll: allowAll}, engine)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		engine.Shutdown(context.Background())
		return err
	case <-sigCh:
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			engine.Shutdown(context.Background())
			return err
		}
		return engine.Shutdown(context.Background())
	}
}
