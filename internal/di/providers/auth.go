package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/habitleague/habitleague-server/internal/auth"
	"github.com/habitleague/habitleague-server/internal/config"
	"github.com/habitleague/habitleague-server/internal/logger"
)

// accessTokenDuration bounds tokens minted locally by the seed tool.
// Tokens from the auth service carry their own expiry.
const accessTokenDuration = 24 * time.Hour

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey returns the configured token key, or loads or generates
// {data}/auth.key when none is configured.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.TokenKey != "" {
		key, err := auth.ParseKey(cfg.Auth.TokenKey)
		if err != nil {
			return nil, err
		}
		log.Info("Authentication key loaded from configuration")
		return AuthKey(key), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.Storage.DataPath)
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded", "path", cfg.Storage.DataPath)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	authKey := do.MustInvoke[AuthKey](i)
	return auth.NewTokenService([]byte(authKey), accessTokenDuration)
}
