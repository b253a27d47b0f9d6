package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrymomot/budgetbook/modules/auth"
	"github.com/dmitrymomot/budgetbook/modules/budget"
	"github.com/dmitrymomot/budgetbook/modules/user"
	"github.com/dmitrymomot/budgetbook/pkg/config"
	"github.com/dmitrymomot/budgetbook/pkg/cookie"
	"github.com/dmitrymomot/budgetbook/pkg/email"
	"github.com/dmitrymomot/budgetbook/pkg/httpserver"
	"github.com/dmitrymomot/budgetbook/pkg/jwt"
	"github.com/dmitrymomot/budgetbook/pkg/logger"
	"github.com/dmitrymomot/budgetbook/pkg/mongo"
	"github.com/dmitrymomot/budgetbook/pkg/ratelimiter"
	"github.com/dmitrymomot/budgetbook/pkg/redis"
)

type appConfig struct {
	Environment     string        `env:"APP_ENVIRONMENT" envDefault:"development"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173"`
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`
	LoginRateStore  string        `env:"LOGIN_RATE_STORE" envDefault:"memory"` // memory | redis
}

func main() {
	var appCfg appConfig
	var authCfg auth.Config
	var mongoCfg mongo.Config
	var redisCfg redis.Config
	var emailCfg email.Config
	var httpCfg httpserver.Config

	config.MustLoad(&appCfg)
	config.MustLoad(&authCfg)
	config.MustLoad(&mongoCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&httpCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, "budgetbook"))
	slog.SetDefault(log)

	production := appCfg.Environment == "production" || appCfg.Environment == "prod"

	jwtSecret := authCfg.JWTSecret
	if jwtSecret == "" {
		if production {
			log.Error("AUTH_JWT_SECRET is required in production")
			os.Exit(1)
		}
		jwtSecret = ephemeralSecret()
		log.Warn("AUTH_JWT_SECRET is not set; generated an ephemeral secret, sessions will not survive a restart")
	}
	identitySecret := authCfg.IdentitySecret
	if identitySecret == "" {
		identitySecret = jwtSecret
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := mongo.NewWithDatabase(ctx, mongoCfg, mongoCfg.Database)
	if err != nil {
		log.Error("failed to connect to mongo", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	tokenStore, err := auth.NewMongoTokenStore(ctx, db)
	if err != nil {
		log.Error("failed to init token store", logger.Error(err))
		os.Exit(1)
	}
	users, err := user.NewMongoDirectory(ctx, db)
	if err != nil {
		log.Error("failed to init user directory", logger.Error(err))
		os.Exit(1)
	}
	budgetStore, err := budget.NewMongoStorage(ctx, db)
	if err != nil {
		log.Error("failed to init budget storage", logger.Error(err))
		os.Exit(1)
	}

	var mailer email.EmailSender
	if emailCfg.PostmarkServerToken != "" {
		mailer, err = email.NewPostmarkSender(emailCfg)
		if err != nil {
			log.Error("failed to init postmark sender", logger.Error(err))
			os.Exit(1)
		}
	} else {
		if production {
			log.Error("POSTMARK_SERVER_TOKEN is required in production")
			os.Exit(1)
		}
		mailer = email.NewDevSender(emailCfg.DevOutputDir)
		log.Warn("postmark is not configured; login emails are written to disk",
			slog.String("dir", emailCfg.DevOutputDir))
	}

	var identityBackend auth.TokenBackend
	switch authCfg.IdentityBackend {
	case "production":
		identityBackend, err = auth.NewProductionBackend(identitySecret)
	default:
		identityBackend, err = auth.NewLocalBackend(identitySecret)
	}
	if err != nil {
		log.Error("failed to init identity backend", logger.Error(err))
		os.Exit(1)
	}

	jwtSvc, err := jwt.NewFromString(jwtSecret)
	if err != nil {
		log.Error("failed to init jwt service", logger.Error(err))
		os.Exit(1)
	}

	cookies := cookie.New(cookie.WithSecure(authCfg.SecureCookies))

	issuer := auth.NewIssuer(tokenStore, mailer, authCfg.AppURL,
		auth.WithMagicLinkTTL(authCfg.MagicLinkTTL),
		auth.WithSendTimeout(authCfg.MailSendTimeout),
		auth.WithIssuerLogger(log),
	)
	verifier := auth.NewVerifier(tokenStore,
		auth.WithReplayGraceWindow(authCfg.ReplayGraceWindow),
		auth.WithVerifierLogger(log),
	)
	sessions := auth.NewSessionIssuer(users, jwtSvc, identityBackend,
		auth.WithSessionTTL(authCfg.SessionTTL),
		auth.WithSessionLogger(log),
	)
	authHandler := auth.NewHandler(issuer, verifier, sessions, cookies,
		auth.WithSecureCookies(authCfg.SecureCookies),
		auth.WithCrossSiteCookies(authCfg.CrossSiteCookies),
		auth.WithHandlerLogger(log),
	)
	sessionMW := auth.Middleware(jwtSvc, cookies, log)

	var limiterStore ratelimiter.Store = ratelimiter.NewMemoryStore()
	healthchecks := []func(context.Context) error{mongo.Healthcheck(db.Client())}
	if appCfg.LoginRateStore == "redis" {
		config.MustLoad(&redisCfg)
		redisClient, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			log.Error("failed to connect to redis", logger.Error(err))
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()
		limiterStore = ratelimiter.NewRedisStore(redisClient, "budgetbook:login")
		healthchecks = append(healthchecks, redis.Healthcheck(redisClient))
	}
	loginLimiter := ratelimiter.Middleware(
		ratelimiter.New(limiterStore, ratelimiter.Config{
			Limit:  appCfg.LoginRateLimit,
			Window: appCfg.LoginRateWindow,
		}),
		clientIPKey,
	)

	budgetSvc := budget.NewService(budgetStore, budget.WithServiceLogger(log))
	budgetHandler := budget.NewHandler(budgetSvc, users, log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Mount("/auth", authHandler.Router(auth.RouterOptions{
			LoginLimiter: loginLimiter,
			Session:      sessionMW,
		}))
		api.Group(func(protected chi.Router) {
			protected.Use(sessionMW)
			protected.Mount("/budget", budgetHandler.Router())
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		for _, check := range healthchecks {
			if err := check(r.Context()); err != nil {
				log.Warn("healthcheck failed", logger.Error(err))
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if authCfg.SweepInterval > 0 {
		sweeper := auth.NewSweeper(tokenStore, authCfg.SweepInterval, log)
		go sweeper.Run(ctx)
	}

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// clientIPKey keys the login rate limit by client IP. RealIP middleware has
// already resolved proxy headers into RemoteAddr.
func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func ephemeralSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
