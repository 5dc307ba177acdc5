package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/studydeck/studydeck/internal/api/http"
	"github.com/studydeck/studydeck/internal/auth"
	authmw "github.com/studydeck/studydeck/internal/auth/middleware"
	"github.com/studydeck/studydeck/internal/config"
	"github.com/studydeck/studydeck/internal/db"
	"github.com/studydeck/studydeck/internal/events"
	"github.com/studydeck/studydeck/internal/flashcard"
	"github.com/studydeck/studydeck/internal/llm"
	"github.com/studydeck/studydeck/internal/quiz"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	cards := flashcard.NewSQLStore(dbh)
	sessions := quiz.NewSQLSessionStore(dbh)
	eventLog := events.NewLog(dbh)

	// --- Grading oracle ---
	oracle := buildOracle(ctx, cfg)

	machine := quiz.NewMachine(oracle, quiz.NewSequencer(cards), cfg.AdvanceKeyword, cfg.HistoryLimit)
	orchestrator := quiz.NewOrchestrator(sessions, machine, eventLog)

	// --- Auth ---
	authSvc := authmw.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)

	if cfg.Mode == config.ModeOffline && cfg.SeedUserPassword != "" {
		if err := auth.SeedUser(ctx, dbh, cfg.SeedUserEmail, cfg.SeedUserPassword); err != nil {
			log.Fatalf("seed user: %v", err)
		}
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/register", auth.RegisterHandler(dbh))
		r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	}

	// Protected API (JWT → learner key in context)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))

		pr.Route("/chat", func(cr chi.Router) {
			cr.Post("/study", api.StudyTurnHandler(orchestrator))
			cr.Post("/reset", api.ResetSessionHandler(orchestrator))
		})

		pr.Route("/decks", func(dr chi.Router) {
			dr.Post("/", api.CreateDeckHandler(cards))
			dr.Post("/import", api.ImportDeckHandler(cards))
			dr.Get("/", api.ListDecksHandler(cards))
		})

		pr.Route("/cards", func(cr chi.Router) {
			cr.Post("/", api.CreateCardHandler(cards))
			cr.Get("/topic/{topic}", api.SearchTopicHandler(cards))
			cr.Get("/{cardID}", api.GetCardHandler(cards))
			cr.Put("/{cardID}", api.UpdateCardHandler(cards))
			cr.Delete("/{cardID}", api.DeleteCardHandler(cards))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

// buildOracle picks the LLM provider from the environment, falling back
// to the deterministic text matcher when no key is configured.
func buildOracle(ctx context.Context, cfg config.Config) quiz.Oracle {
	llmCfg := llm.ConfigFromEnv()
	if os.Getenv("STUDYDECK_LLM_PROVIDER") == "" {
		discovered, ok := llm.DiscoverConfig()
		if !ok {
			log.Printf("no LLM key found; grading with local text matching")
			return quiz.NewTextMatchOracle()
		}
		llmCfg = discovered
	}

	if err := llmCfg.Validate(); err != nil {
		log.Fatalf("llm config: %v", err)
	}
	provider, err := llm.NewProvider(ctx, llmCfg)
	if err != nil {
		log.Fatalf("llm provider: %v", err)
	}
	log.Printf("grading with %s (%s)", llmCfg.Provider, provider.ModelID())
	return quiz.NewLLMOracle(provider, cfg.OracleTimeout)
}
