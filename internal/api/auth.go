package api

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// authenticateRequest validates the Authorization header and returns the user ID.
func (s *Server) authenticateRequest(_ context.Context, authHeader string) (string, error) {
	if authHeader == "" {
		return "", huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", huma.Error401Unauthorized("Invalid authorization header format")
	}

	claims, err := s.tokens.VerifyAccessToken(parts[1])
	if err != nil {
		s.logger.Debug("rejected access token", "error", err)
		return "", huma.Error401Unauthorized("Invalid or expired token")
	}

	return claims.UserID, nil
}

// authorizeCron guards the sweep endpoints. With a cron key configured the
// X-API-Key header must match it; otherwise any authenticated user may call them.
func (s *Server) authorizeCron(ctx context.Context, apiKey, authHeader string) error {
	if s.opts.CronAPIKey == "" {
		_, err := s.authenticateRequest(ctx, authHeader)
		return err
	}

	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.opts.CronAPIKey)) != 1 {
		return huma.Error401Unauthorized("Invalid API key")
	}
	return nil
}
