package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopify-embed-auth/internal/application"
	"shopify-embed-auth/internal/domain"
	"shopify-embed-auth/internal/infrastructure/config"
	"shopify-embed-auth/internal/infrastructure/encryption"
	"shopify-embed-auth/internal/infrastructure/middleware"
	"shopify-embed-auth/internal/infrastructure/repository"
	shopifyinfra "shopify-embed-auth/internal/infrastructure/shopify"
	"shopify-embed-auth/internal/ports"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Access tokens are encrypted at rest when a key is configured
	var crypto ports.EncryptionService
	if cfg.EncryptionKey != "" {
		service, err := encryption.NewService(cfg.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
		}
		crypto = service
	} else {
		logger.Warn().Msg("ENCRYPTION_KEY not set, access tokens stored in plaintext")
	}

	// Pick the session store backend
	var sessions ports.SessionRepository
	switch cfg.SessionStore {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		sessions = repository.NewRedisSessionRepository(client, crypto)

	case config.StoreMongo:
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		repo := repository.NewMongoSessionRepository(client.Database(cfg.MongoDatabase), crypto)
		if err := repo.EnsureIndexes(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create session indexes")
		}
		sessions = repo

	default:
		store := repository.NewMemorySessionRepository()
		defer store.Close()
		sessions = store
	}
	logger.Info().Str("backend", cfg.SessionStore).Msg("Session store ready")

	// Shopify adapters
	pool := shopifyinfra.NewClientPool(cfg.APIKey, cfg.APISecret, cfg.APIVersion)
	platform := shopifyinfra.NewAdminPlatform(pool, cfg.Scopes, logger)
	adminClient := shopifyinfra.NewAdminClient(pool, logger)
	authClient := shopifyinfra.NewAuthClient(cfg.APIKey, cfg.APISecret, logger)
	decoder := shopifyinfra.NewSessionTokenDecoder(cfg.APISecret, cfg.APIKey)

	// Application services
	oauthService := shopifyinfra.NewOAuthService(sessions, authClient, cfg.Scopes, cfg.RedirectURI(), cfg.OnlineSessions, logger)
	resolver := application.NewSessionResolver(sessions, decoder, logger)
	validator := application.NewScopeValidator(platform)
	planner := application.NewRedirectPlanner(cfg.LoginPath, logger)
	accessService := application.NewAccessService(resolver, validator, planner, application.NewITPDetector(), sessions, logger, cfg.OnlineSessions)

	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)
	authenticator := middleware.NewAuthenticator(accessService, platform, metrics, middleware.CookieConfig{
		Domain: cfg.CookieDomain,
		Secure: cfg.SecureCookies,
	}, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(metrics.Handler())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Public routes
	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation - public
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // The URL pointing to API definition
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth routes
	r.Get(cfg.LoginPath, loginHandler(oauthService, authenticator, logger))
	r.Get("/auth/callback", oauthCallbackHandler(oauthService, authenticator, planner, cfg.APIKey, logger))

	// Embedded app routes, session required
	r.Group(func(pr chi.Router) {
		pr.Use(authenticator.Middleware())
		pr.Get("/", homeHandler())
		pr.Get("/api/shop", shopHandler(adminClient, accessService, authenticator, logger))
		pr.Get("/api/products", productsHandler(adminClient, accessService, authenticator, logger))
	})

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// loginHandler initiates the OAuth flow. It doubles as the top-level
// redirect target for browsers that must grant cookie storage first:
// arriving with top_level=true records the grant before continuing.
func loginHandler(oauthService *shopifyinfra.OAuthService, authenticator *middleware.Authenticator, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}

		if r.URL.Query().Get("top_level") == "true" {
			authenticator.GrantTopLevelCookie(w)
		}

		begin, err := oauthService.BeginAuth(r.Context(), shop, r.URL.Query().Get("return_to"))
		if err != nil {
			if errors.Is(err, domain.ErrInvalidShopDomain) {
				http.Error(w, "invalid shop domain", http.StatusBadRequest)
				return
			}
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin oauth")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		// The cookie lets the callback find the pending session again
		authenticator.SetSessionCookie(w, begin.PendingSession.ID, 10*time.Minute)
		http.Redirect(w, r, begin.AuthorizeURL, http.StatusFound)
	}
}

// oauthCallbackHandler completes the OAuth flow
func oauthCallbackHandler(
	oauthService *shopifyinfra.OAuthService,
	authenticator *middleware.Authenticator,
	planner *application.RedirectPlanner,
	clientID string,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pendingID string
		if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
			pendingID = cookie.Value
		}

		session, returnTo, err := oauthService.ValidateCallback(r.Context(), pendingID, r.URL)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidHMAC) || errors.Is(err, domain.ErrInvalidOAuthState):
				logger.Warn().Err(err).Msg("Rejected oauth callback")
				http.Error(w, "Invalid oauth callback", http.StatusForbidden)
			case domain.RecoverableAuthError(err):
				// The handshake went stale; start over
				logger.Warn().Err(err).Msg("Oauth callback without usable handshake, restarting")
				http.Redirect(w, r, planner.LoginPath()+"?shop="+r.URL.Query().Get("shop"), http.StatusFound)
			case errors.Is(err, domain.ErrInvalidShopDomain):
				http.Error(w, "invalid shop domain", http.StatusBadRequest)
			default:
				logger.Error().Err(err).Msg("Failed to complete oauth")
				http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			}
			return
		}

		var cookieTTL time.Duration
		if session.ExpiresAt != nil {
			cookieTTL = time.Until(*session.ExpiresAt)
		}
		authenticator.SetSessionCookie(w, session.ID, cookieTTL)

		// Send the merchant back where they came from: the recorded return
		// path first, then the embedded app inside the admin, then root
		target := returnTo
		if target == "" {
			if embedded, err := domain.EmbeddedAppURL(r.URL.Query().Get("host"), clientID); err == nil {
				target = embedded
			} else {
				target = "/"
			}
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// homeHandler reports the active session, mostly useful to verify an
// embedded setup end to end
func homeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := domain.ActiveSessionFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"shop":   session.Shop,
			"scopes": session.Scopes,
			"online": session.IsOnline,
		})
	}
}

// shopHandler fetches the shop record with the active session
func shopHandler(
	adminClient ports.AdminClient,
	accessService *application.AccessService,
	authenticator *middleware.Authenticator,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := domain.ActiveSessionFromContext(r.Context())

		shop, err := adminClient.GetShop(r.Context(), session)
		if err != nil {
			respondUpstreamError(w, r, session, err, accessService, authenticator, logger)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(shop)
	}
}

// productsHandler lists products with the active session
func productsHandler(
	adminClient ports.AdminClient,
	accessService *application.AccessService,
	authenticator *middleware.Authenticator,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := domain.ActiveSessionFromContext(r.Context())

		products, err := adminClient.ListProducts(r.Context(), session)
		if err != nil {
			respondUpstreamError(w, r, session, err, accessService, authenticator, logger)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"products": products,
			"count":    len(products),
		})
	}
}

// respondUpstreamError lets the access service decide what an Admin API
// failure means. A revoked token turns into a fresh auth round trip;
// anything else surfaces as a gateway error.
func respondUpstreamError(
	w http.ResponseWriter,
	r *http.Request,
	session *domain.Session,
	err error,
	accessService *application.AccessService,
	authenticator *middleware.Authenticator,
	logger zerolog.Logger,
) {
	req := middleware.BuildRequestInfo(r)
	decision, err := accessService.HandleUpstreamError(r.Context(), req, session, err)
	if err != nil {
		logger.Error().Err(err).Str("shop", session.Shop).Msg("Admin API call failed")
		http.Error(w, "Upstream request failed", http.StatusBadGateway)
		return
	}
	authenticator.RedirectToLogin(w, r, req, decision)
}
