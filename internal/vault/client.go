// Package vault resolves credentials (database password, API keys, bot
// tokens) from HashiCorp Vault when configured, with environment
// variables as the fallback.
package vault

import (
	"context"
	"fmt"
	"sync"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"
)

// Config holds connection settings. An empty Address disables Vault.
type Config struct {
	Address string
	Token   string
	// MountPath is the KV v2 mount, e.g. "secret".
	MountPath string
}

// Client reads KV secrets with a per-path cache. All methods are safe
// for concurrent use.
type Client struct {
	api   *vaultapi.Client
	mount string
	log   zerolog.Logger

	mu    sync.RWMutex
	cache map[string]map[string]interface{}
}

// New connects to Vault. Returns (nil, nil) when no address is
// configured so callers can treat Vault as optional.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, nil
	}
	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	api.SetToken(cfg.Token)

	mount := cfg.MountPath
	if mount == "" {
		mount = "secret"
	}
	return &Client{
		api:   api,
		mount: mount,
		log:   logger.With().Str("component", "Vault").Logger(),
		cache: make(map[string]map[string]interface{}),
	}, nil
}

// Secret returns one key from a KV v2 secret path, caching the whole
// secret on first read.
func (c *Client) Secret(ctx context.Context, path, key string) (string, error) {
	c.mu.RLock()
	data, ok := c.cache[path]
	c.mu.RUnlock()

	if !ok {
		secret, err := c.api.KVv2(c.mount).Get(ctx, path)
		if err != nil {
			return "", fmt.Errorf("read vault secret %s: %w", path, err)
		}
		data = secret.Data
		c.mu.Lock()
		c.cache[path] = data
		c.mu.Unlock()
	}

	val, ok := data[key]
	if !ok {
		return "", fmt.Errorf("vault secret %s has no key %q", path, key)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("vault secret %s key %q is not a string", path, key)
	}
	return str, nil
}

// SecretOr returns the Vault value, or the fallback when the client is
// nil or the read fails.
func (c *Client) SecretOr(ctx context.Context, path, key, fallback string) string {
	if c == nil {
		return fallback
	}
	val, err := c.Secret(ctx, path, key)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Str("key", key).
			Msg("vault lookup failed, using fallback")
		return fallback
	}
	return val
}
