package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Brownie44l1/webby/internal/config"
	"github.com/Brownie44l1/webby/internal/handlers"
	"github.com/Brownie44l1/webby/internal/logger"
	"github.com/Brownie44l1/webby/internal/request"
	"github.com/Brownie44l1/webby/internal/response"
	"github.com/Brownie44l1/webby/internal/router"
	"github.com/Brownie44l1/webby/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "httpserver: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	fs := pflag.NewFlagSet("httpserver", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	accessOut, err := logger.Open(cfg.AccessLog)
	if err != nil {
		return err
	}
	defer accessOut.Close()
	errorOut, err := logger.Open(cfg.ErrorLog)
	if err != nil {
		return err
	}
	defer errorOut.Close()

	rt := router.New()
	srv := server.New(cfg, rt.Route)
	srv.AccessLog = logger.New(accessOut, cfg.Debug)
	srv.ErrorLog = logger.New(errorOut, cfg.Debug)

	routes(rt, cfg, srv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe(ctx)
	}()

	select {
	case err := <-errc:
		// Startup failure, or the loop ended on its own
		return err
	case <-ctx.Done():
	}

	srv.ErrorLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil {
		return err
	}

	stats := srv.Metrics().Snapshot()
	srv.ErrorLog.Info("server stopped",
		"connections", stats.ConnectionsAccepted,
		"requests", stats.RequestsTotal,
		"decode_errors", stats.DecodeErrors,
		"errors_5xx", stats.Errors5xx,
	)
	return nil
}

func routes(rt *router.Router, cfg *config.Config, srv *server.Server) {
	if cfg.StaticRoot != "" {
		rt.Add("/", handlers.FileHandler(cfg.StaticRoot))
	} else {
		rt.GET("/", handleHome)
	}

	rt.GET("/health", handleHealth)
	rt.GET("/stats", func(w *response.Response, r *request.Request) {
		writeJSON(w, response.StatusOK, srv.Metrics().Snapshot())
	})
	rt.Handle(request.MethodREST, "/notes", handlers.RESTHandler(newNotes()))
}

func handleHome(w *response.Response, r *request.Request) {
	html := `<!DOCTYPE html>
<html>
<head><title>webby</title></head>
<body>
	<h1>webby</h1>
	<ul>
		<li><a href="/health">Health</a></li>
		<li><a href="/stats">Stats</a></li>
		<li><a href="/notes">Notes</a></li>
	</ul>
</body>
</html>`

	w.HTML(response.StatusOK, html)
}

func handleHealth(w *response.Response, r *request.Request) {
	writeJSON(w, response.StatusOK, map[string]string{
		"status":        "healthy",
		"connection_id": r.ConnectionID,
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w *response.Response, code response.StatusCode, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		w.Error(response.StatusInternalServerError, "")
		return
	}
	w.JSON(code, string(body))
}
