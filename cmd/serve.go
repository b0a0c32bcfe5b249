package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens-cli/internal/analysis"
	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/internal/monitoring"
	"github.com/brandlens/brandlens-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for analysis requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		engine, err := buildEngine(st)
		if err != nil {
			return err
		}

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
			snap, err := monitoring.NewCollector(st).Collect(r.Context(), 24)
			if err != nil {
				zap.L().Error("collect metrics", zap.Error(err))
				http.Error(w, `{"error":"metrics collection failed"}`, http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, snap)
		})

		mux.HandleFunc("GET /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
			run, err := st.GetRun(r.Context(), r.PathValue("id"))
			if err != nil {
				http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, run)
		})

		mux.HandleFunc("POST /analyze", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Questions []model.Question `json:"questions"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			if len(req.Questions) == 0 {
				http.Error(w, `{"error":"questions are required"}`, http.StatusBadRequest)
				return
			}

			runCfg, err := buildRunConfig()
			if err != nil {
				http.Error(w, `{"error":"invalid run configuration"}`, http.StatusInternalServerError)
				return
			}

			run, err := st.CreateRun(ctx, runCfg)
			if err != nil {
				zap.L().Error("create run", zap.Error(err))
				http.Error(w, `{"error":"could not create run"}`, http.StatusInternalServerError)
				return
			}

			// Analyze asynchronously under the server context; the run
			// record carries the outcome.
			go runAsync(ctx, st, engine, run, req.Questions, runCfg)

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status": "accepted",
				"run_id": run.ID,
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func runAsync(ctx context.Context, st store.Store, engine *analysis.Engine, run *model.Run, questions []model.Question, runCfg *model.RunConfiguration) {
	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		zap.L().Error("mark run running", zap.String("run_id", run.ID), zap.Error(err))
		return
	}

	result, err := engine.Run(ctx, questions, runCfg)
	if err != nil {
		zap.L().Error("async analysis failed", zap.String("run_id", run.ID), zap.Error(err))
		return
	}

	if err := st.SaveRunResult(ctx, run.ID, analysis.RunStatusFor(result), result); err != nil {
		zap.L().Error("save run result", zap.String("run_id", run.ID), zap.Error(err))
		return
	}

	zap.L().Info("async analysis complete",
		zap.String("run_id", run.ID),
		zap.Int("failed", result.FailedQuestions),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
