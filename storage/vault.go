package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/identity-registry/interfaces"
)

// VaultConfig describes a KV v2 mount holding state documents.
type VaultConfig struct {
	// Address of the Vault server, e.g. https://vault.example.com:8200
	Address   string
	MountPath string
	DataPath  string

	// Token authenticates requests. Empty falls back to VAULT_TOKEN.
	Token string

	// TLS is applied when client certificates or a private CA are used.
	TLS *api.TLSConfig

	Timeout time.Duration
}

// VaultPublisher keeps state documents in a Vault KV v2 mount, one secret per
// content hash. Documents are stored base64 encoded in the "content" field.
type VaultPublisher struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultPublisher creates a publisher for the mount described by cfg.
func NewVaultPublisher(cfg VaultConfig, log *slog.Logger) (*VaultPublisher, error) {
	config := api.DefaultConfig()
	config.Address = cfg.Address
	if cfg.Timeout > 0 {
		config.Timeout = cfg.Timeout
	}
	if cfg.TLS != nil {
		if err := config.ConfigureTLS(cfg.TLS); err != nil {
			return nil, fmt.Errorf("failed to configure Vault TLS: %w", err)
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	mountPath := strings.Trim(cfg.MountPath, "/")
	dataPath := strings.Trim(cfg.DataPath, "/")
	if mountPath == "" {
		return nil, fmt.Errorf("%w: missing Vault mount path", interfaces.ErrInvalidLocationURI)
	}

	return &VaultPublisher{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(cfg.Address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

// Publish stores data under HashOf(data) and returns the hash.
func (b *VaultPublisher) Publish(ctx context.Context, data []byte) (string, error) {
	hash, err := HashOf(data)
	if err != nil {
		return "", err
	}
	if err := b.Store(ctx, hash, data); err != nil {
		return "", err
	}
	return hash, nil
}

// Store writes data under hash.
func (b *VaultPublisher) Store(ctx context.Context, hash string, data []byte) error {
	if err := ValidateIPFSHash(hash); err != nil {
		return err
	}

	start := time.Now()
	secretPath := b.secretPath(hash)
	_, err := b.client.Logical().WriteWithContext(ctx, secretPath, map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		b.log.Error("Failed to write to Vault", slog.String("path", secretPath), "err", err)
		return fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored content in Vault",
		slog.String("hash", hash),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Fetch reads the document stored under hash.
// Returns ErrContentNotFound if no such secret exists.
func (b *VaultPublisher) Fetch(ctx context.Context, hash string) ([]byte, error) {
	if err := ValidateIPFSHash(hash); err != nil {
		return nil, err
	}

	secretPath := b.secretPath(hash)
	secret, err := b.client.Logical().ReadWithContext(ctx, secretPath)
	if err != nil {
		b.log.Error("Failed to read from Vault", slog.String("path", secretPath), "err", err)
		return nil, fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, hash)
	}

	// KV v2 nests the stored fields under "data"
	fields, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response for %s", hash)
	}
	content, ok := fields["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data for %s", hash)
	}

	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("invalid content encoding in Vault data for %s: %w", hash, err)
	}
	return data, nil
}

// Available checks that Vault is initialized and unsealed.
func (b *VaultPublisher) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}
	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

// Name returns a unique identifier for this publisher.
func (b *VaultPublisher) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this publisher, without the token.
func (b *VaultPublisher) LocationURI() string {
	return b.locationURI
}

func (b *VaultPublisher) secretPath(hash string) string {
	if b.dataPath == "" {
		return fmt.Sprintf("%s/data/%s", b.mountPath, hash)
	}
	return fmt.Sprintf("%s/data/%s/%s", b.mountPath, b.dataPath, hash)
}
