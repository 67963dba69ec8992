package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sgdevmon/devhealth-cli/internal/model"
	"github.com/sgdevmon/devhealth-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scored results to the monitoring dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		run, err := st.LatestScoreRun(r.Context())
		if err != nil {
			serverError(w, "dashboard", err)
			return
		}
		if run == nil {
			writeJSONError(w, http.StatusNotFound, "no completed score run")
			return
		}
		scores, err := st.ScoresForRun(r.Context(), run.ID)
		if err != nil {
			serverError(w, "dashboard", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"run":        run,
			"developers": scores,
		})
	})

	r.Get("/api/developers/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		ticker := chi.URLParam(r, "ticker")

		history, err := st.LatestHistory(r.Context())
		if err != nil {
			serverError(w, "developer", err)
			return
		}
		var dev *model.Developer
		if history != nil {
			for i := range history.Developers {
				if strings.EqualFold(history.Developers[i].Ticker, ticker) {
					dev = &history.Developers[i]
					break
				}
			}
		}
		if dev == nil {
			writeJSONError(w, http.StatusNotFound, "unknown ticker")
			return
		}

		var score *store.DeveloperScore
		run, err := st.LatestScoreRun(r.Context())
		if err != nil {
			serverError(w, "developer", err)
			return
		}
		if run != nil {
			score, err = st.GetDeveloperScore(r.Context(), run.ID, dev.Ticker)
			if err != nil {
				serverError(w, "developer", err)
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"developer": dev,
			"score":     score,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func serverError(w http.ResponseWriter, handler string, err error) {
	zap.L().Error("serve: handler failed", zap.String("handler", handler), zap.Error(err))
	writeJSONError(w, http.StatusInternalServerError, "internal error")
}
