package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/generator"
	"github.com/katalvlaran/melodia/midiexport"
	"github.com/katalvlaran/melodia/store"
)

// Cache stores generated results by fingerprint and seed.
type Cache interface {
	Get(ctx context.Context, fingerprint string, seed int64) (store.Record, error)
	Put(ctx context.Context, res *generator.Result) (uuid.UUID, error)
}

// GenerateRequest is the body of POST /v1/exercises. A missing spec means
// exercise.Default().
type GenerateRequest struct {
	Spec      *exercise.Spec    `json:"spec,omitempty"`
	Seed      int64             `json:"seed"`
	Overrides map[uuid.UUID]int `json:"overrides,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CacheHeader reports "hit" or "miss" on generation responses.
const CacheHeader = "X-Melodia-Cache"

// MaxRequestBytes caps the body of POST /v1/exercises.
const MaxRequestBytes = 1 << 20

// Server routes HTTP requests to the generator.
type Server struct {
	log    *zap.Logger
	gen    *generator.Generator
	cache  Cache
	tempo  float64
	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithTempo sets the tempo of MIDI downloads. Panics if bpm <= 0.
func WithTempo(bpm float64) Option {
	if bpm <= 0 {
		panic(fmt.Sprintf("server: WithTempo(%v): tempo must be positive", bpm))
	}

	return func(s *Server) { s.tempo = bpm }
}

// New builds a Server. cache may be nil to disable caching.
func New(log *zap.Logger, gen *generator.Generator, cache Cache, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{log: log, gen: gen, cache: cache, tempo: midiexport.DefaultTempo, router: mux.NewRouter()}
	for _, o := range opts {
		o(s)
	}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/exercises", s.generate).Methods(http.MethodPost)
	v1.HandleFunc("/exercises/{fingerprint}/{seed:-?[0-9]+}/midi", s.midi).Methods(http.MethodGet)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	spec := exercise.Default()
	if req.Spec != nil {
		spec = *req.Spec
	}

	// 1) Replay from the cache when no overrides are involved. The key
	// carries the generator settings so a reconfigured service never serves
	// melodies chosen under the old ones.
	cacheable := s.cache != nil && len(req.Overrides) == 0
	if cacheable {
		rec, err := s.cache.Get(r.Context(), s.gen.Fingerprint(spec), req.Seed)
		switch {
		case err == nil:
			w.Header().Set(CacheHeader, "hit")
			writeJSON(w, statusOf(rec.Result), rec.Result)
			return
		case !errors.Is(err, store.ErrNotFound):
			s.log.Warn("cache lookup failed", zap.Error(err))
		}
	}

	// 2) Generate.
	gen := s.gen
	if len(req.Overrides) > 0 {
		gen = gen.With(generator.WithOverrides(req.Overrides))
	}
	res, err := gen.Generate(spec, req.Seed)
	if err != nil {
		if errors.Is(err, exercise.ErrInvalidSpec) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.log.Error("generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// 3) Cache and answer.
	if cacheable {
		if _, err := s.cache.Put(r.Context(), res); err != nil {
			s.log.Warn("cache store failed", zap.Error(err))
		}
	}
	w.Header().Set(CacheHeader, "miss")
	writeJSON(w, statusOf(res), res)
}

func (s *Server) midi(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	seed, err := strconv.ParseInt(vars["seed"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("seed: %w", err))
		return
	}
	if s.cache == nil {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}
	rec, err := s.cache.Get(r.Context(), vars["fingerprint"], seed)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !rec.Result.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, rec.Result)
		return
	}

	b, err := midiexport.Encode(rec.Result.Events, rec.Result.Meter,
		midiexport.WithTempo(s.tempo),
		midiexport.WithHarmony(rec.Result.Harmony),
		midiexport.WithName(rec.Fingerprint))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%d.mid", rec.Fingerprint, seed)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		s.log.Warn("midi write failed", zap.Error(err))
	}
}

func statusOf(res *generator.Result) int {
	if res.OK() {
		return http.StatusOK
	}

	return http.StatusUnprocessableEntity
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
