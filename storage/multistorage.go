package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ruteri/identity-registry/interfaces"
)

// MultiPublisher publishes to every available backend and fetches from the
// first backend that has the content.
type MultiPublisher struct {
	backends []interfaces.ContentPublisher
	log      *slog.Logger
}

// NewMultiPublisher creates a publisher fanning out to backends.
func NewMultiPublisher(backends []interfaces.ContentPublisher, logger *slog.Logger) *MultiPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiPublisher{
		backends: backends,
		log:      logger,
	}
}

// Fetch tries the available backends in order.
func (m *MultiPublisher) Fetch(ctx context.Context, hash string) ([]byte, error) {
	start := time.Now()
	var errs *multierror.Error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("hash", hash))
			continue
		}

		data, err := backend.Fetch(ctx, hash)
		if err == nil {
			m.log.Info("Successfully fetched content",
				slog.String("backend_name", backend.Name()),
				slog.String("hash", hash),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = multierror.Append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("hash", hash),
			"err", err)
	}

	if errs == nil {
		return nil, fmt.Errorf("%w: no backend available to fetch %s", interfaces.ErrBackendUnavailable, hash)
	}

	m.log.Error("All backends failed to fetch content",
		slog.String("hash", hash),
		slog.Int("failed_backends", errs.Len()),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all backends failed to fetch %s: %w", hash, errs.ErrorOrNil())
}

// Publish stores data in every available backend and returns the hash to record.
//
// Content networks (publishers that assign hashes, such as IPFS) are published
// to first, regardless of their order, and must agree on the hash. Content
// stores then keep the document under that hash, so the recorded reference
// resolves through the gateway as well as through every mirror. Without a
// content network the first store that accepts the document assigns the hash.
// A failing content network fails the publish; failing mirrors are only logged.
func (m *MultiPublisher) Publish(ctx context.Context, data []byte) (string, error) {
	start := time.Now()

	var networks []interfaces.ContentPublisher
	var stores []interfaces.ContentStore
	for _, backend := range m.backends {
		if store, ok := backend.(interfaces.ContentStore); ok {
			stores = append(stores, store)
		} else {
			networks = append(networks, backend)
		}
	}

	var result string
	var err error
	if len(networks) > 0 {
		result, err = m.publishToNetworks(ctx, networks, data)
	} else {
		result, stores, err = m.publishToFirstStore(ctx, stores, data)
	}
	if err != nil {
		m.log.Error("Failed to publish data",
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return "", err
	}

	var mirrorErrs *multierror.Error
	for _, store := range stores {
		if !store.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", store.Name()))
			continue
		}
		if err := store.Store(ctx, result, data); err != nil {
			mirrorErrs = multierror.Append(mirrorErrs, fmt.Errorf("%s: %w", store.Name(), err))
		}
	}
	if mirrorErrs != nil {
		m.log.Warn("Failed to mirror content",
			slog.String("hash", result),
			"err", mirrorErrs.ErrorOrNil())
	}

	m.log.Info("Successfully published content",
		slog.String("hash", result),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

func (m *MultiPublisher) publishToNetworks(ctx context.Context, networks []interfaces.ContentPublisher, data []byte) (string, error) {
	var result, resultBackend string
	var errs *multierror.Error

	for _, backend := range networks {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		hash, err := backend.Publish(ctx, data)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Failed to publish to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}

		if result == "" {
			result, resultBackend = hash, backend.Name()
		} else if result != hash {
			return "", fmt.Errorf("%w: %s assigned %s, %s assigned %s", interfaces.ErrInconsistentHash, resultBackend, result, backend.Name(), hash)
		}
	}

	if result != "" {
		return result, nil
	}
	if errs == nil {
		return "", fmt.Errorf("%w: no content network available to publish", interfaces.ErrBackendUnavailable)
	}
	return "", fmt.Errorf("all content networks failed to publish data: %w", errs.ErrorOrNil())
}

// publishToFirstStore lets the first store that accepts the document assign
// its hash and returns the stores that still have to mirror it.
func (m *MultiPublisher) publishToFirstStore(ctx context.Context, stores []interfaces.ContentStore, data []byte) (string, []interfaces.ContentStore, error) {
	var errs *multierror.Error

	for i, store := range stores {
		if !store.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", store.Name()))
			continue
		}

		hash, err := store.Publish(ctx, data)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			m.log.Debug("Failed to publish to backend",
				slog.String("backend_name", store.Name()),
				"err", err)
			continue
		}
		return hash, stores[i+1:], nil
	}

	if errs == nil {
		return "", nil, fmt.Errorf("%w: no backend available to publish", interfaces.ErrBackendUnavailable)
	}
	return "", nil, fmt.Errorf("all backends failed to publish data: %w", errs.ErrorOrNil())
}

// Available checks if any backend is available.
func (m *MultiPublisher) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this publisher.
func (m *MultiPublisher) Name() string {
	return "multi-publisher"
}

// LocationURI combines the location URIs of all backends.
func (m *MultiPublisher) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
