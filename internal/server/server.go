package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"mesa-chat-backend/internal/config"
	"mesa-chat-backend/internal/db"
	"mesa-chat-backend/internal/events"
	"mesa-chat-backend/internal/ledger"
	"mesa-chat-backend/internal/order"
	"mesa-chat-backend/internal/provider"
	"mesa-chat-backend/internal/scheduling"
	"mesa-chat-backend/internal/store"
	"mesa-chat-backend/internal/tools"
	"mesa-chat-backend/internal/types"
)

type Server struct {
	router    *chi.Mux
	cfg       config.Config
	log       zerolog.Logger
	history   *store.MemoryStore
	credits   *store.MemoryCredits
	configs   *store.FileConfigStore
	providers *provider.Dispatcher
	actions   *tools.Dispatcher
	orders    *order.Service
	database  *db.DB
	publisher *events.Publisher
}

func NewServer(cfg config.Config, log zerolog.Logger) (*Server, error) {
	adapters := map[provider.Family]provider.Adapter{}
	if cfg.OpenAIAPIKey != "" {
		adapters[provider.FamilyOpenAI] = provider.NewOpenAIAdapter(cfg.OpenAIAPIKey)
	}
	if cfg.AnthropicAPIKey != "" {
		adapters[provider.FamilyAnthropic] = provider.NewAnthropicAdapter(cfg.AnthropicAPIKey)
	}
	if cfg.GeminiAPIKey != "" {
		adapters[provider.FamilyGemini] = provider.NewGeminiAdapter(cfg.GeminiAPIKey)
	}
	if cfg.DeepSeekAPIKey != "" {
		adapters[provider.FamilyDeepSeek] = provider.NewOpenAICompatAdapter(cfg.DeepSeekAPIKey, "https://api.deepseek.com")
	}
	if cfg.GrokAPIKey != "" {
		adapters[provider.FamilyGrok] = provider.NewOpenAICompatAdapter(cfg.GrokAPIKey, "https://api.x.ai/v1")
	}
	if len(adapters) == 0 {
		log.Warn().Msg("no backend API keys configured; chat turns will fail until provided")
	}

	var carts order.CartStore = store.NewMemoryCartStore()
	if cfg.RedisAddr != "" {
		carts = store.NewRedisCartStore(cfg.RedisAddr)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis cart storage")
	}

	var orderStore order.OrderStore = store.NewMemoryOrderStore()
	var database *db.DB
	if cfg.DatabaseURL != "" {
		var err error
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		if err := database.EnsureSchema(); err != nil {
			database.Close()
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		orderStore = store.NewDatabaseOrderStore(database)
		log.Info().Msg("database connection established")
	} else {
		log.Warn().Msg("DB_URL not provided; orders are kept in memory only")
	}

	orderSvc := order.NewService(carts, orderStore, log)
	if cfg.LedgerToken != "" {
		orderSvc.Ledger = ledger.New(cfg.LedgerBaseURL, cfg.LedgerToken)
	}
	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		var err error
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			// Event publication is best effort end to end; a broker that is
			// down at startup must not keep the service down.
			log.Warn().Err(err).Msg("order event publisher unavailable")
		} else {
			orderSvc.Events = publisher
		}
	}

	calClient := scheduling.NewCalClient(cfg.SchedulingBaseURL, cfg.SchedulingAPIKey)
	handlers := append(
		tools.NewOrderHandlers(orderSvc, log),
		tools.NewSchedulingHandler(calClient, log),
	)
	actions, err := tools.NewDispatcher(log, handlers...)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	r := chi.NewRouter()
	// The chat widget is embedded cross-origin; every response carries
	// permissive CORS headers.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Conversation-Id"},
		ExposedHeaders: []string{"X-Conversation-Id"},
		MaxAge:         300,
	}))

	s := &Server{
		router:    r,
		cfg:       cfg,
		log:       log,
		history:   store.NewMemoryStore(40),
		credits:   store.NewMemoryCredits(cfg.MessageCredits),
		configs:   store.NewFileConfigStore(cfg.ChatbotConfigDir),
		providers: provider.NewDispatcher(adapters),
		actions:   actions,
		orders:    orderSvc,
		database:  database,
		publisher: publisher,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/chat", s.handleChat)
	s.router.Get("/api/orders/{orderID}", s.handleGetOrder)
	s.router.Post("/api/conversations/{conversationID}/reset", s.handleReset)
}

func (s *Server) Router() http.Handler { return s.router }

// Close releases the server's external connections.
func (s *Server) Close() {
	if s.database != nil {
		s.database.Close()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.database != nil {
		if err := s.database.HealthCheck(); err != nil {
			status["database"] = "down"
		} else {
			status["database"] = "ok"
		}
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func newConversationID() string {
	return fmt.Sprintf("c_%d", time.Now().UnixNano())
}

// getOrCreateConversationID resolves the conversation from the request body,
// header or cookie, minting a fresh ID when none exists.
func (s *Server) getOrCreateConversationID(w http.ResponseWriter, r *http.Request, fromBody string) string {
	cid := fromBody
	if cid == "" {
		cid = r.Header.Get("X-Conversation-Id")
	}
	if cid == "" {
		cid, _ = GetConversationCookie(r)
	}
	if cid == "" {
		cid = newConversationID()
		s.log.Debug().Str("conversationId", cid).Str("path", r.URL.Path).Msg("new conversation")
	}
	SetConversationCookie(w, cid)
	return cid
}
