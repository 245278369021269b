package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/suplook/internal/api"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the operator HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.New(env.APIDeps()).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		logStartup(env, port)
		return runServer(ctx, srv)
	},
}

// runServer serves until ctx is cancelled, then drains in-flight requests.
func runServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})
	return g.Wait()
}

func logStartup(env *appEnv, port int) {
	st := env.Status
	zap.L().Info("starting server",
		zap.Int("port", port),
		zap.String("store", cfg.Store.Driver),
		zap.String("catalog", string(env.Catalog.Source())),
		zap.Int("corrections", env.Corrections.Count()),
		zap.Bool("vision", st.AnthropicConfigured),
		zap.Bool("maps", st.GoogleConfigured),
		zap.Bool("directory", st.YelpConfigured),
		zap.Bool("image_search", st.JinaConfigured),
		zap.Bool("salesforce", st.SalesforceConfigured),
	)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
