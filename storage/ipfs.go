package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/identity-registry/interfaces"
)

// IPFSPublisher publishes state documents to an IPFS node over its HTTP API.
type IPFSPublisher struct {
	shell       *shell.Shell
	host        string
	port        string
	timeout     time.Duration
	log         *slog.Logger
	locationURI string
}

// NewIPFSPublisher creates a publisher talking to the IPFS API at host:port.
// Every request is bounded by timeout.
func NewIPFSPublisher(host, port string, timeout time.Duration, log *slog.Logger) *IPFSPublisher {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSPublisher{
		shell:       sh,
		host:        host,
		port:        port,
		timeout:     timeout,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout),
	}
}

// Publish adds data to IPFS and returns the CIDv0 the node assigned to it.
// Returns ErrBackendUnavailable if the node is not reachable.
func (b *IPFSPublisher) Publish(ctx context.Context, data []byte) (string, error) {
	start := time.Now()

	if !b.Available(ctx) {
		return "", interfaces.ErrBackendUnavailable
	}

	hash, err := b.shell.Add(bytes.NewReader(data), shell.CidVersion(0), shell.Pin(true))
	if err != nil {
		b.log.Error("Failed to add data to IPFS", "err", err, slog.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("failed to add data to IPFS: %w", err)
	}
	if err := ValidateIPFSHash(hash); err != nil {
		return "", fmt.Errorf("IPFS node returned an unusable hash: %w", err)
	}

	b.log.Debug("Published content to IPFS",
		slog.String("hash", hash),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return hash, nil
}

// Fetch retrieves data from IPFS by its content hash.
// Returns ErrContentNotFound if the node does not know the hash.
func (b *IPFSPublisher) Fetch(ctx context.Context, hash string) ([]byte, error) {
	start := time.Now()

	if err := ValidateIPFSHash(hash); err != nil {
		return nil, err
	}
	if !b.Available(ctx) {
		b.log.Warn("IPFS node unavailable", slog.String("host", b.host), slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.Cat("/ipfs/" + hash)
	if err != nil {
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "no link named") {
			b.log.Debug("Content not found in IPFS", slog.String("hash", hash))
			return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, hash)
		}
		b.log.Error("Failed to fetch data from IPFS", slog.String("hash", hash), "err", err)
		return nil, fmt.Errorf("failed to fetch data from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	b.log.Debug("Fetched content from IPFS",
		slog.String("hash", hash),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSPublisher) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this publisher.
func (b *IPFSPublisher) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this publisher.
func (b *IPFSPublisher) LocationURI() string {
	return b.locationURI
}
