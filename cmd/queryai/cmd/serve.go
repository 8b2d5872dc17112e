package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rssebambulidde/QueryAI-sub001/internal/config"
	qerrors "github.com/rssebambulidde/QueryAI-sub001/internal/errors"
	"github.com/rssebambulidde/QueryAI-sub001/internal/index"
	"github.com/rssebambulidde/QueryAI-sub001/internal/pipeline"
	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
	"github.com/rssebambulidde/QueryAI-sub001/internal/sizing"
	"github.com/rssebambulidde/QueryAI-sub001/internal/telemetry"
)

const serverShutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	var chunksPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the context assembly HTTP service",
		Long: `Run an HTTP service exposing context assembly and index maintenance.

Endpoints:
  POST   /v1/assemble       assemble a context for a query
  POST   /v1/chunks         add chunks to the index
  DELETE /v1/chunks/{id}    remove one chunk
  DELETE /v1/documents/{id} remove all chunks of a document
  GET    /v1/stats          index statistics
  GET    /healthz           liveness probe

Metrics are served on the address from metrics_addr, if configured.

Examples:
  queryai serve --addr :8080
  queryai serve --addr :8080 --chunks corpus.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), addr, chunksPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address for the API")
	cmd.Flags().StringVarP(&chunksPath, "chunks", "c", "", "Path to a JSON chunks file to preload")

	return cmd
}

func runServe(ctx context.Context, addr, chunksPath string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	metrics := telemetry.New()
	p := buildPipeline(cfg, index.New(), metrics)

	if chunksPath != "" {
		chunks, err := loadChunks(chunksPath)
		if err != nil {
			return err
		}
		p.AddChunks(chunks)
		slog.Info("chunks_preloaded", slog.Int("count", len(chunks)), slog.String("path", chunksPath))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         addr,
		Handler:      newAPIHandler(p, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("api_listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
		go func() {
			slog.Info("metrics_listening", slog.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting_down")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return srv.Shutdown(shutdownCtx)
}

// assembleRequest is the POST /v1/assemble payload.
type assembleRequest struct {
	Query       string          `json:"query"`
	OwnerID     string          `json:"ownerId"`
	TopicID     string          `json:"topicId,omitempty"`
	DocumentIDs []string        `json:"documentIds,omitempty"`
	Model       string          `json:"model,omitempty"`
	Preference  string          `json:"preference,omitempty"`
	WebSnippets []snippetRecord `json:"webSnippets,omitempty"`
}

// newAPIHandler builds the HTTP mux around a pipeline.
func newAPIHandler(p *pipeline.Pipeline, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/assemble", func(w http.ResponseWriter, r *http.Request) {
		var req assembleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		model := req.Model
		if model == "" {
			model = cfg.Model
		}
		snippets := make([]retrieval.ContextItem, 0, len(req.WebSnippets))
		for _, s := range req.WebSnippets {
			snippets = append(snippets, retrieval.ContextItem{
				Content: s.Content,
				Score:   s.Score,
				Source:  retrieval.SourceWeb,
				Display: retrieval.DisplayMetadata{Title: s.Title, SourceURL: s.SourceURL},
			})
		}

		assembled, err := p.AssembleContext(r.Context(), req.Query, retrieval.SearchFilters{
			OwnerID:     req.OwnerID,
			TopicID:     req.TopicID,
			DocumentIDs: req.DocumentIDs,
			TopK:        cfg.Search.TopK,
			MinScore:    cfg.Search.MinScore,
		}, model, pipeline.Options{
			Preference:  sizing.Preference(req.Preference),
			WebSnippets: snippets,
		})
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, assembled)
	})

	mux.HandleFunc("POST /v1/chunks", func(w http.ResponseWriter, r *http.Request) {
		var records []chunkRecord
		if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		chunks := make([]*retrieval.Chunk, 0, len(records))
		for _, rec := range records {
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			chunks = append(chunks, &retrieval.Chunk{
				ID:         rec.ID,
				DocumentID: rec.DocumentID,
				Content:    rec.Content,
				OwnerID:    rec.OwnerID,
				TopicID:    rec.TopicID,
				ChunkIndex: rec.ChunkIndex,
				Index:      retrieval.IndexMetadata{Language: rec.Language, Section: rec.Section},
				Display:    retrieval.DisplayMetadata{Title: rec.Title, SourceURL: rec.SourceURL, Page: rec.Page},
			})
		}
		p.AddChunks(chunks)
		writeJSON(w, http.StatusOK, map[string]int{"added": len(chunks)})
	})

	mux.HandleFunc("DELETE /v1/chunks/{id}", func(w http.ResponseWriter, r *http.Request) {
		p.RemoveChunk(r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("DELETE /v1/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		removed := p.RemoveDocument(r.PathValue("id"))
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	})

	mux.HandleFunc("GET /v1/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, p.Stats())
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("response_write_failed", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusForError maps retrieval errors to HTTP statuses.
func statusForError(err error) int {
	var rerr *qerrors.RetrievalError
	if errors.As(err, &rerr) {
		switch {
		case rerr.Code == qerrors.ErrCodeAllPathsFailed:
			return http.StatusServiceUnavailable
		case strings.HasPrefix(rerr.Code, "ERR_4"):
			return http.StatusUnprocessableEntity
		case strings.HasPrefix(rerr.Code, "ERR_1"):
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}
