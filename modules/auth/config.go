package auth

import "time"

// Config is the authentication configuration surface.
type Config struct {
	// JWTSecret signs session credentials. Required in production; outside
	// production an ephemeral secret is generated with a startup warning,
	// which invalidates sessions on restart.
	JWTSecret string `env:"AUTH_JWT_SECRET"`

	// IdentitySecret signs identity-provider tokens. Falls back to
	// JWTSecret when empty.
	IdentitySecret string `env:"AUTH_IDENTITY_SECRET"`

	// IdentityBackend selects the identity token backend: "production" or
	// "local". Chosen once at startup.
	IdentityBackend string `env:"AUTH_IDENTITY_BACKEND" envDefault:"local"`

	MagicLinkTTL      time.Duration `env:"AUTH_MAGIC_LINK_TTL" envDefault:"15m"`
	SessionTTL        time.Duration `env:"AUTH_SESSION_TTL" envDefault:"24h"`
	ReplayGraceWindow time.Duration `env:"AUTH_REPLAY_GRACE_WINDOW" envDefault:"0"` // keep zero in production
	MailSendTimeout   time.Duration `env:"AUTH_MAIL_SEND_TIMEOUT" envDefault:"10s"`

	// AppURL is the absolute origin the confirmation links are built on.
	AppURL string `env:"APP_URL" envDefault:"http://localhost:8080"`

	SecureCookies    bool `env:"AUTH_SECURE_COOKIES" envDefault:"false"`
	CrossSiteCookies bool `env:"AUTH_CROSS_SITE_COOKIES" envDefault:"false"`

	// SweepInterval controls the background expired-token sweep; zero
	// disables it.
	SweepInterval time.Duration `env:"AUTH_SWEEP_INTERVAL" envDefault:"10m"`
}
