package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nzvengeance/gsf-buildbot/internal/calculator"
	"github.com/nzvengeance/gsf-buildbot/internal/config"
	"github.com/nzvengeance/gsf-buildbot/internal/crypto"
	"github.com/nzvengeance/gsf-buildbot/internal/database"
	"github.com/nzvengeance/gsf-buildbot/internal/llm"
	syncsvc "github.com/nzvengeance/gsf-buildbot/internal/sync"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// UserHeader carries the tag of the user a request is made for. The chat
// adapter in front of this service is trusted to set it.
const UserHeader = "X-User-Tag"

type ctxKey int

const userKey ctxKey = iota

type Server struct {
	db             *database.DB
	cfg            *config.Config
	calc           *calculator.Calculator
	scheduler      *syncsvc.Scheduler
	sealer         *crypto.Sealer
	llmRateLimiter *rate.Limiter
	ipLimiters     *ipLimiters
	newLLMClient   func(provider, apiKey string) (llm.Client, error)
}

func NewServer(db *database.DB, cfg *config.Config, calc *calculator.Calculator, scheduler *syncsvc.Scheduler, sealer *crypto.Sealer) *Server {
	return &Server{
		db:             db,
		cfg:            cfg,
		calc:           calc,
		scheduler:      scheduler,
		sealer:         sealer,
		llmRateLimiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
		ipLimiters:     newIPLimiters(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		newLLMClient:   llm.NewClient,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", UserHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.healthCheck)
		r.Get("/status", s.getStatus)

		// Reference data
		r.Route("/ships", func(r chi.Router) {
			r.Get("/", s.listShips)
			r.Get("/{ref}", s.getShip)
		})
		r.Route("/lookup", func(r chi.Router) {
			r.Get("/crew/{name}", s.lookupCrew)
			r.Get("/{category}/{name}", s.lookupComponent)
		})

		r.Route("/builds", func(r chi.Router) {
			r.Get("/public", s.listPublicBuilds)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Get("/", s.listBuilds)
				r.Post("/", s.createBuild)
				r.Get("/{ref}", s.getBuild)
				r.Delete("/{ref}", s.deleteBuild)
				r.Post("/{ref}/select", s.selectElement)
				r.Put("/{ref}/public", s.setBuildPublic)
				r.With(s.rateLimitIP).Get("/{ref}/stats", s.getBuildStats)
			})
		})

		// Everything below acts for a user
		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.With(s.rateLimitIP).Get("/ttk", s.timeToKill)
			r.With(s.rateLimitIP).Get("/analysis", s.getAnalysis)

			r.Route("/analysis/llm", func(r chi.Router) {
				r.With(s.rateLimitLLM).Post("/", s.generateAIAnalysis)
				r.Get("/latest", s.getLatestAIAnalysis)
				r.Get("/history", s.getAIAnalysisHistory)
				r.Delete("/{id}", s.deleteAIAnalysis)
			})
		})

		// Settings
		r.Route("/settings/llm", func(r chi.Router) {
			r.Get("/", s.getLLMConfig)
			r.Put("/", s.setLLMConfig)
			r.With(s.rateLimitLLM).Post("/test", s.testLLMConnection)
			r.Get("/models", s.listLLMModels)
		})

		// Catalog sync
		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", s.getSyncStatus)
			r.Post("/catalog", s.triggerCatalogSync)
		})
	})

	return r
}

// --- Middleware ---

func (s *Server) rateLimitLLM(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.llmRateLimiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded - please wait before making another LLM request")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitIP throttles the calculation routes per client address.
func (s *Server) rateLimitIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ipLimiters.get(clientIP(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded - slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := strings.TrimSpace(r.Header.Get(UserHeader))
		if tag == "" {
			writeError(w, http.StatusUnauthorized, "Missing "+UserHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, tag)))
	})
}

func userFrom(ctx context.Context) string {
	tag, _ := ctx.Value(userKey).(string)
	return tag
}

// ipLimiters hands out one token bucket per client address. The LRU bound
// keeps a scan of many addresses from growing the map without limit.
type ipLimiters struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *rate.Limiter]
	limit rate.Limit
	burst int
}

func newIPLimiters(limit rate.Limit, burst int) *ipLimiters {
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	cache, _ := lru.New[string, *rate.Limiter](4096)
	return &ipLimiters{cache: cache, limit: limit, burst: burst}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.cache.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.cache.Add(ip, limiter)
	}
	return limiter
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// --- Health & Status ---

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cat := s.calc.Catalog()
	dbStatus := "ok"
	if err := s.db.Ping(ctx); err != nil {
		dbStatus = err.Error()
	}
	syncHistory, _ := s.db.GetLatestSyncHistory(ctx, 1)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"catalog_version": cat.Version,
		"ships":           len(cat.Ships),
		"crew":            len(cat.Crew),
		"actives":         len(cat.Actives),
		"database":        dbStatus,
		"last_sync":       syncHistory,
		"config": map[string]interface{}{
			"db_driver":        s.cfg.DBDriver,
			"default_distance": s.cfg.DefaultDistance,
			"reload_schedule":  s.cfg.ReloadSchedule,
		},
	})
}

// --- Sync ---

func (s *Server) getSyncStatus(w http.ResponseWriter, r *http.Request) {
	history, err := s.db.GetLatestSyncHistory(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch sync history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) triggerCatalogSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.scheduler.ReloadCatalog(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("manual catalog reload failed")
		writeError(w, http.StatusInternalServerError, "Catalog reload failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
