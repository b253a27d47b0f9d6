package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/budgetbook/pkg/cookie"
	"github.com/dmitrymomot/budgetbook/pkg/logger"
)

// genericLinkError is the single externally visible failure message for
// token verification. Not-found, already-used and expired all map to it so
// responses cannot be used to probe token state.
const genericLinkError = "invalid or expired link"

// Handler exposes the authentication flow over HTTP.
type Handler struct {
	issuer    *Issuer
	verifier  *Verifier
	sessions  *SessionIssuer
	cookies   *cookie.Manager
	logger    *slog.Logger
	secure    bool
	crossSite bool
}

// HandlerOption configures a Handler during construction.
type HandlerOption func(*Handler)

// WithHandlerLogger sets a custom logger for the handler.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// WithSecureCookies marks session cookies Secure. Required in production.
func WithSecureCookies(secure bool) HandlerOption {
	return func(h *Handler) { h.secure = secure }
}

// WithCrossSiteCookies switches the session cookie to SameSite=None, which
// forces Secure as the browser requires it for cross-site cookies.
func WithCrossSiteCookies(crossSite bool) HandlerOption {
	return func(h *Handler) { h.crossSite = crossSite }
}

// NewHandler creates the auth HTTP handler.
func NewHandler(issuer *Issuer, verifier *Verifier, sessions *SessionIssuer, cookies *cookie.Manager, opts ...HandlerOption) *Handler {
	h := &Handler{
		issuer:   issuer,
		verifier: verifier,
		sessions: sessions,
		cookies:  cookies,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// RouterOptions carries the middleware the router mounts around individual
// endpoints.
type RouterOptions struct {
	// LoginLimiter rate limits the email-login endpoint. Optional.
	LoginLimiter func(http.Handler) http.Handler
	// Session validates the session cookie. Required for /status.
	Session func(http.Handler) http.Handler
}

// Router mounts the auth endpoints.
func (h *Handler) Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	if opts.LoginLimiter != nil {
		r.With(opts.LoginLimiter).Post("/email-login", h.EmailLogin)
	} else {
		r.Post("/email-login", h.EmailLogin)
	}

	r.Post("/verify-token", h.VerifyToken)
	r.Post("/logout", h.Logout)

	r.Group(func(pr chi.Router) {
		pr.Use(opts.Session)
		pr.Get("/status", h.Status)
	})

	return r
}

// EmailLogin accepts an email address and sends a magic link to it.
func (h *Handler) EmailLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid request body",
		})
		return
	}

	address, err := h.issuer.Request(r.Context(), req.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"email":   address,
		})
	case errors.Is(err, ErrInvalidEmail):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid email address",
		})
	case errors.Is(err, ErrMailDelivery):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "failed to send login email, please try again",
		})
	default:
		h.logger.Error("email login failed",
			logger.Error(err),
			logger.Component("auth.handler"),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "internal error",
		})
	}
}

// VerifyToken consumes a magic-link secret and, on success, provisions the
// account, sets the session cookie and returns the identity-provider token.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   genericLinkError,
		})
		return
	}

	address, err := h.verifier.Verify(r.Context(), req.Token)
	if err != nil {
		// The precise reason stays in the logs; the response is uniform.
		h.logger.Info("token verification rejected",
			logger.Error(err),
			logger.Component("auth.handler"),
		)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   genericLinkError,
		})
		return
	}

	sess, err := h.sessions.Issue(r.Context(), address)
	if err != nil {
		h.logger.Error("session issuance failed",
			logger.Email(address),
			logger.Error(err),
			logger.Component("auth.handler"),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "failed to provision account, please try again",
		})
		return
	}

	ttl := int(h.sessions.TTL().Seconds())
	h.cookies.Set(w, SessionCookieName, sess.Credential, h.cookieOptions(ttl)...)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"identityProviderToken": sess.IdentityToken,
		"email":                 sess.Email,
		"expiresIn":             ttl,
	})
}

// Status reports the authenticated caller. Mounted behind the session
// middleware, so reaching it implies a valid credential.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := CurrentIdentity(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"authenticated": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          map[string]any{"email": id.Email},
	})
}

// Logout clears the session cookie. The credential itself stays valid until
// its exp claim; destroying it client-side is the whole lifecycle.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Delete(w, SessionCookieName)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) cookieOptions(maxAge int) []cookie.Option {
	opts := []cookie.Option{
		cookie.WithMaxAge(maxAge),
		cookie.WithHTTPOnly(true),
		cookie.WithPath("/"),
	}
	if h.crossSite {
		// SameSite=None requires Secure.
		opts = append(opts, cookie.WithSameSite(http.SameSiteNoneMode), cookie.WithSecure(true))
	} else {
		opts = append(opts, cookie.WithSameSite(http.SameSiteLaxMode), cookie.WithSecure(h.secure))
	}
	return opts
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
