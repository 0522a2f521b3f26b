package httpapi

import (
	"context"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jian-li1/reddit-llm/internal/prompt"
	"github.com/jian-li1/reddit-llm/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Reply(ctx context.Context, message string, history []prompt.Message) iter.Seq[string]
	Info() types.InfoResponse
	ListModels() ([]types.Model, error)
	Ready(ctx context.Context) error
}

// NewMux builds the chi router serving the chat page and API.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// NDJSON is not in the default compressible types, so /chat streams raw.
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{"X-Reply-ID", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/", servePage)

	r.Post("/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(svc, w, r)
	})

	r.Get("/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Info())
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		models, err := svc.ListModels()
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		if models == nil {
			models = []types.Model{}
		}
		writeJSON(w, types.ModelsResponse{Models: models})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := svc.Ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable: " + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func handleChat(svc Service, w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id := uuid.NewString()
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Reply-ID", id)
	flusher, _ := w.(http.Flusher)

	lvl := requestLogLevel(r)
	out := io.Writer(w)
	if lvl >= LevelDebug {
		out = io.MultiWriter(w, &loggingLineWriter{log: zlog})
	}
	log := zlog.With().Str("reply_id", id).Str("request_id", middleware.GetReqID(r.Context())).Logger()
	start := time.Now()
	if lvl >= LevelInfo {
		log.Info().Str("path", r.URL.Path).Int("history_turns", len(req.History)).Msg("chat start")
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if replyTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, replyTimeout)
		defer tcancel()
	}

	enc := json.NewEncoder(out)
	var (
		text string
		n    int
	)
	for snap := range svc.Reply(ctx, req.Message, historyMessages(req.History)) {
		text = snap
		n++
		if err := enc.Encode(types.ChatChunk{ID: id, Text: snap}); err != nil {
			if lvl >= LevelError {
				log.Error().Err(err).Msg("chat write")
			}
			return
		}
		chatSnapshotsTotal.Inc()
		if flusher != nil {
			flusher.Flush()
		}
	}
	if r.Context().Err() != nil {
		if lvl >= LevelInfo {
			log.Info().Str("status", "client_gone").Int("snapshots", n).Dur("dur", time.Since(start)).Msg("chat end")
		}
		return
	}
	_ = enc.Encode(types.ChatChunk{ID: id, Text: text, Snapshots: n, Done: true})
	if flusher != nil {
		flusher.Flush()
	}
	if lvl >= LevelInfo {
		log.Info().Str("status", "200").Int("snapshots", n).Dur("dur", time.Since(start)).Msg("chat end")
	}
}

// historyMessages converts request turns to prompt messages. Unknown roles
// are kept as user turns.
func historyMessages(turns []types.Turn) []prompt.Message {
	if len(turns) == 0 {
		return nil
	}
	out := make([]prompt.Message, 0, len(turns))
	for _, t := range turns {
		role := prompt.RoleUser
		if prompt.Role(strings.ToLower(t.Role)) == prompt.RoleAssistant {
			role = prompt.RoleAssistant
		}
		out = append(out, prompt.Message{Role: role, Content: t.Content})
	}
	return out
}
