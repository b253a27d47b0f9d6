package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrymomot/budgetbook/pkg/email"
	"github.com/dmitrymomot/budgetbook/pkg/logger"
)

// emailRegex is a pragmatic address format check; deliverability is proven
// by the user clicking the link.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail lowercases and trims an address so lookups and the
// one-live-token-per-email invariant are case-insensitive.
func NormalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Issuer creates magic-link tokens and hands them to the mailer. Store
// access and mail delivery are strictly sequential: the mailer is never
// called while a store operation is in flight.
type Issuer struct {
	store       TokenStore
	mailer      email.EmailSender
	baseURL     string
	ttl         time.Duration
	sendTimeout time.Duration
	logger      *slog.Logger
}

// IssuerOption configures an Issuer during construction.
type IssuerOption func(*Issuer)

// WithIssuerLogger sets a custom logger for the issuer.
func WithIssuerLogger(l *slog.Logger) IssuerOption {
	return func(i *Issuer) { i.logger = l }
}

// WithMagicLinkTTL sets the lifetime of issued tokens.
func WithMagicLinkTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) { i.ttl = ttl }
}

// WithSendTimeout bounds a single mail delivery attempt.
func WithSendTimeout(d time.Duration) IssuerOption {
	return func(i *Issuer) { i.sendTimeout = d }
}

// NewIssuer creates a token issuer. baseURL is the absolute origin the
// confirmation link is built on.
func NewIssuer(store TokenStore, mailer email.EmailSender, baseURL string, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		store:       store,
		mailer:      mailer,
		baseURL:     strings.TrimRight(baseURL, "/"),
		ttl:         DefaultMagicLinkTTL,
		sendTimeout: 10 * time.Second,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Request validates the address, supersedes any live token for it, creates
// a fresh one and emails the confirmation link. It returns the normalized
// address. On ErrMailDelivery the token stays valid and unconsumed; the
// mail may still arrive late, or the next request reissues.
func (i *Issuer) Request(ctx context.Context, address string) (string, error) {
	address = NormalizeEmail(address)
	if !emailRegex.MatchString(address) {
		return "", ErrInvalidEmail
	}

	// Best effort: a stale token that survives here is still single-use
	// and bounded by its own expiry.
	if err := i.store.Invalidate(ctx, address); err != nil {
		i.logger.Warn("failed to invalidate prior tokens",
			logger.Email(address),
			logger.Error(err),
			logger.Component("auth.issuer"),
		)
	}

	t, err := i.store.Create(ctx, address, i.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to create login token: %w", err)
	}

	link := i.baseURL + "/auth/confirm?token=" + url.QueryEscape(t.Secret)

	// Mail delivery happens outside any store critical section and under
	// its own deadline so a slow SMTP hop cannot pin the request.
	sendCtx, cancel := context.WithTimeout(ctx, i.sendTimeout)
	defer cancel()

	err = i.mailer.SendEmail(sendCtx, email.SendEmailParams{
		SendTo:   address,
		Subject:  "Sign in to Budgetbook",
		BodyHTML: loginEmailBody(link, i.ttl),
		Tag:      "magic-link",
	})
	if err != nil {
		i.logger.Error("login email delivery failed",
			logger.Email(address),
			logger.Error(err),
			logger.Component("auth.issuer"),
		)
		return "", errors.Join(ErrMailDelivery, err)
	}

	return address, nil
}

func loginEmailBody(link string, ttl time.Duration) string {
	return fmt.Sprintf(`<html><body>
<p>Click the link below to sign in to Budgetbook:</p>
<p><a href="%s">Sign in</a></p>
<p>The link is valid for %d minutes and can be used once. If you did not
request it, you can safely ignore this email.</p>
</body></html>`, link, int(ttl.Minutes()))
}
