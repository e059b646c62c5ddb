package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/docuform/autofill-backend/internal/api/handlers"
	"github.com/docuform/autofill-backend/internal/api/middleware"
	"github.com/docuform/autofill-backend/internal/auth"
	"github.com/docuform/autofill-backend/internal/cache"
	"github.com/docuform/autofill-backend/internal/config"
	"github.com/docuform/autofill-backend/internal/document"
	"github.com/docuform/autofill-backend/internal/embedding"
	"github.com/docuform/autofill-backend/internal/formfill"
	"github.com/docuform/autofill-backend/internal/llm"
	"github.com/docuform/autofill-backend/internal/queue"
	"github.com/docuform/autofill-backend/internal/rag"
	"github.com/docuform/autofill-backend/internal/vectorindex"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
	llmGW llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Services
	docSvc := document.NewService(rt.db, rt.cfg.Upload.Dir)
	queueClient := queue.NewClient(rt.cfg.Redis)
	queryCache := cache.NewCache(rt.redis)

	index := vectorindex.NewPgVectorIndex(rt.db, rt.cfg.Index.Dimension)
	store := vectorindex.NewStore(index, rt.cfg.Index)
	embedSvc := embedding.NewService(rt.llmGW, rt.cfg.LLM.EmbeddingModel)

	retriever := rag.NewRetriever(store, embedSvc, rt.cfg.Index.TopK)
	generator := rag.NewGenerator(rt.llmGW, rt.cfg.LLM)
	matcher := formfill.NewMatcher(store, embedSvc, rt.llmGW, rt.cfg.LLM)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		docH := handlers.NewDocumentHandler(docSvc, store, queueClient, queryCache, rt.cfg.Upload.MaxFileSize)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Delete("/{id}", docH.Delete)
			r.Get("/{id}/status", docH.Status)
		})

		chatH := handlers.NewChatHandler(retriever, generator, queryCache)
		r.Post("/chat", chatH.Chat)
		r.Post("/search", chatH.Search)

		autofillH := handlers.NewAutofillHandler(matcher)
		r.Post("/autofill/match-field", autofillH.MatchField)

		statsH := handlers.NewStatsHandler(store)
		r.Get("/index/stats", statsH.IndexStats)
	})

	return r
}
