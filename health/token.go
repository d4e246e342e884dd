package health

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCheckerConfig configures the session token probe.
type TokenCheckerConfig struct {
	// Name of the probe. Default: "authenticated"
	Name string

	// Token returns the current session token.
	Token func() string

	// ExpiryWarning is how long before expiry the probe reports degraded.
	// Default: 5 minutes
	ExpiryWarning time.Duration

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// TokenChecker reports whether the client holds a usable session token.
// The token's signature is not verified; the report server owns the key.
// Only the registered claims are read.
type TokenChecker struct {
	config TokenCheckerConfig
	parser *jwt.Parser
}

// NewTokenChecker creates a session token probe.
func NewTokenChecker(config TokenCheckerConfig) *TokenChecker {
	if config.Name == "" {
		config.Name = "authenticated"
	}
	if config.ExpiryWarning <= 0 {
		config.ExpiryWarning = 5 * time.Minute
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Token == nil {
		config.Token = func() string { return "" }
	}

	return &TokenChecker{config: config, parser: jwt.NewParser()}
}

// Name returns the name of this checker.
func (c *TokenChecker) Name() string {
	return c.config.Name
}

// Check inspects the current session token.
func (c *TokenChecker) Check(_ context.Context) Result {
	raw := c.config.Token()
	if raw == "" {
		return Unhealthy("no session token", ErrTokenMissing)
	}

	var claims jwt.RegisteredClaims
	if _, _, err := c.parser.ParseUnverified(raw, &claims); err != nil {
		return Unhealthy("session token malformed", fmt.Errorf("%w: %v", ErrCheckFailed, err))
	}

	details := map[string]any{"subject": claims.Subject}
	if claims.Issuer != "" {
		details["issuer"] = claims.Issuer
	}
	if claims.ExpiresAt == nil {
		return Healthy("session token has no expiry").WithDetails(details)
	}

	expiresAt := claims.ExpiresAt.Time
	remaining := expiresAt.Sub(c.config.Clock())
	details["expires_at"] = expiresAt.UTC().Format(time.RFC3339)

	switch {
	case remaining <= 0:
		return Unhealthy("session token expired", ErrTokenExpired).WithDetails(details)
	case remaining < c.config.ExpiryWarning:
		return Degraded(fmt.Sprintf("session token expires in %s", remaining.Round(time.Second))).WithDetails(details)
	default:
		return Healthy("session token valid").WithDetails(details)
	}
}
