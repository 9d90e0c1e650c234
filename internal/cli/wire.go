package cli

import (
	"context"
	"net/http"
	"time"

	"stephly/internal/assistant"
	"stephly/internal/auth"
	"stephly/internal/config"
	"stephly/internal/currency"
	apphttp "stephly/internal/http"
	"stephly/internal/llm"
	"stephly/internal/log"
	"stephly/internal/search"
	"stephly/internal/services"
	"stephly/internal/store"
)

// App is the assembled application graph.
type App struct {
	Services apphttp.Services
	Issuer   *auth.Issuer
}

// NewGenerator returns the Gemini client, or llm.Disabled when no key is set
// or the client cannot be built.
func NewGenerator(ctx context.Context, cfg *config.Config, logger *log.Logger) llm.Generator {
	if cfg.GeminiAPIKey == "" {
		logger.Info("Gemini disabled - no GEMINI_API_KEY provided")
		return llm.Disabled{}
	}
	gen, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout, logger)
	if err != nil {
		logger.Warn("Gemini unavailable, falling back to offline replies", log.FieldError, err)
		return llm.Disabled{}
	}
	logger.Info("Gemini initialized", "model", gen.Model())
	return gen
}

// NewSearcher chains Google (when configured), DuckDuckGo and Wikipedia.
func NewSearcher(ctx context.Context, cfg *config.Config, logger *log.Logger) *search.Chain {
	var providers []search.Provider
	if cfg.SearchEnabled() {
		g, err := search.NewGoogle(ctx, cfg.GoogleSearchAPIKey, cfg.GoogleSearchEngineID)
		if err != nil {
			logger.Warn("Google search unavailable", log.FieldError, err)
		} else {
			providers = append(providers, g)
		}
	}
	providers = append(providers, search.NewDuckDuckGo(), search.NewWikipedia())
	return search.NewChain(logger, providers...)
}

// NewApp builds the services over st. publisher may be nil.
func NewApp(ctx context.Context, cfg *config.Config, st store.Store, publisher services.EventPublisher, logger *log.Logger) *App {
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)

	txs := services.NewTransactionService(st, publisher, logger)
	budgets := services.NewBudgetService(st, logger)
	todos := services.NewTodoService(st, txs, logger, services.WithAtomicCompletion(cfg.AtomicTodoCompletion))
	users := services.NewUserService(st, issuer, logger)

	ai := assistant.New(st, txs, budgets, todos, NewGenerator(ctx, cfg, logger), logger,
		assistant.WithSearcher(NewSearcher(ctx, cfg, logger)))

	rates := currency.NewClient(cfg.ExchangeRatesURL, cfg.RatesTTL, &http.Client{Timeout: 10 * time.Second}, logger)

	return &App{
		Services: apphttp.Services{
			Store:        st,
			Users:        users,
			Transactions: txs,
			Budgets:      budgets,
			Todos:        todos,
			Assistant:    ai,
			Currency:     rates,
		},
		Issuer: issuer,
	}
}
