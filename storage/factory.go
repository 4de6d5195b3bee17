package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/identity-registry/interfaces"
)

const (
	defaultIPFSPort    = "5001"
	defaultIPFSTimeout = 30 * time.Second
)

// PublisherFactory creates content publishers from location URIs.
type PublisherFactory struct {
	log *slog.Logger
}

// NewPublisherFactory creates a new factory instance.
func NewPublisherFactory(logger *slog.Logger) *PublisherFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublisherFactory{log: logger}
}

// PublisherFor creates a publisher from a location URI.
//
// Supported schemes:
//   - ipfs://host[:port]/?timeout=30s - IPFS node HTTP API
//   - file:///absolute/path or file://./relative/path - local directory
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-east-1&endpoint=http://minio:9000&path_style=true
//   - vault://[TOKEN@]host:8200/mount/path?scheme=https&ca_cert=/ca.pem&client_cert=/c.pem&client_key=/k.pem
//
// IPFS is a content network and assigns hashes, the other backends store
// documents under the hash they are given when combined with it.
func (pf *PublisherFactory) PublisherFor(locationURI string) (interfaces.ContentPublisher, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "ipfs":
		return pf.createIPFSPublisher(u)
	case "file":
		return pf.createFilePublisher(u)
	case "s3":
		return pf.createS3Publisher(u)
	case "vault":
		return pf.createVaultPublisher(u)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// CreateMultiPublisher creates a publisher over every URI that could be parsed.
// Returns an error if none could.
func (pf *PublisherFactory) CreateMultiPublisher(locationURIs []string) (interfaces.ContentPublisher, error) {
	backends := make([]interfaces.ContentPublisher, 0, len(locationURIs))

	for _, uri := range locationURIs {
		backend, err := pf.PublisherFor(uri)
		if err != nil {
			pf.log.Warn("Failed to create content publisher",
				"err", err,
				slog.String("locationURI", uri))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: no valid content publishers created", interfaces.ErrInvalidLocationURI)
	}
	if len(backends) == 1 {
		return backends[0], nil
	}

	return NewMultiPublisher(backends, pf.log), nil
}

func (pf *PublisherFactory) createIPFSPublisher(u *url.URL) (interfaces.ContentPublisher, error) {
	pf.log.Debug("Creating IPFS publisher", slog.String("uri", u.String()))

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing host in %s", interfaces.ErrInvalidLocationURI, u.String())
	}
	port := u.Port()
	if port == "" {
		port = defaultIPFSPort
	}

	timeout := defaultIPFSTimeout
	if raw := u.Query().Get("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timeout %q: %w", interfaces.ErrInvalidLocationURI, raw, err)
		}
		timeout = parsed
	}

	return NewIPFSPublisher(host, port, timeout, pf.log), nil
}

func (pf *PublisherFactory) createFilePublisher(u *url.URL) (interfaces.ContentPublisher, error) {
	pf.log.Debug("Creating file publisher", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, u.String())
	}

	return NewFilePublisher(path, pf.log)
}

func (pf *PublisherFactory) createS3Publisher(u *url.URL) (interfaces.ContentPublisher, error) {
	pf.log.Debug("Creating S3 publisher", slog.String("bucket", u.Host))

	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing bucket in S3 URI", interfaces.ErrInvalidLocationURI)
	}

	query := u.Query()
	cfg := S3Config{
		Bucket:   u.Host,
		Prefix:   strings.TrimPrefix(u.Path, "/"),
		Region:   query.Get("region"),
		Endpoint: query.Get("endpoint"),
	}
	if raw := query.Get("path_style"); raw != "" {
		pathStyle, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad path_style %q: %w", interfaces.ErrInvalidLocationURI, raw, err)
		}
		cfg.PathStyle = pathStyle
	}
	if u.User != nil {
		cfg.AccessKey = u.User.Username()
		cfg.SecretKey, _ = u.User.Password()
	}

	return NewS3Publisher(cfg, pf.log)
}

func (pf *PublisherFactory) createVaultPublisher(u *url.URL) (interfaces.ContentPublisher, error) {
	pf.log.Debug("Creating Vault publisher", slog.String("host", u.Host))

	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in Vault URI", interfaces.ErrInvalidLocationURI)
	}
	mountPath, dataPath, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if mountPath == "" {
		return nil, fmt.Errorf("%w: missing mount path in Vault URI", interfaces.ErrInvalidLocationURI)
	}

	query := u.Query()
	scheme := query.Get("scheme")
	if scheme == "" {
		scheme = "https"
	}

	cfg := VaultConfig{
		Address:   scheme + "://" + u.Host,
		MountPath: mountPath,
		DataPath:  dataPath,
	}
	if u.User != nil {
		cfg.Token = u.User.Username()
	}
	if raw := query.Get("timeout"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timeout %q: %w", interfaces.ErrInvalidLocationURI, raw, err)
		}
		cfg.Timeout = timeout
	}
	if query.Has("ca_cert") || query.Has("client_cert") {
		cfg.TLS = &api.TLSConfig{
			CACert:     query.Get("ca_cert"),
			ClientCert: query.Get("client_cert"),
			ClientKey:  query.Get("client_key"),
		}
	}

	return NewVaultPublisher(cfg, pf.log)
}
