package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ruteri/identity-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateIPFSHash tests the content hash format check
func TestValidateIPFSHash(t *testing.T) {
	tests := []struct {
		name  string
		hash  string
		valid bool
	}{
		{name: "cidv0", hash: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", valid: true},
		{name: "random", hash: RandomIPFSHash(), valid: true},
		{name: "empty", hash: "", valid: false},
		{name: "too short", hash: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbd", valid: false},
		{name: "too long", hash: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdGG", valid: false},
		{name: "not base58", hash: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPb0O", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIPFSHash(tt.hash)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, interfaces.ErrInvalidIPFSHash)
			}
		})
	}
}

// TestRandomIPFSHash tests that generated hashes are distinct CIDv0 strings
func TestRandomIPFSHash(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		hash := RandomIPFSHash()
		require.Len(t, hash, interfaces.IPFSHashLength)
		assert.True(t, strings.HasPrefix(hash, "Qm"))
		assert.False(t, seen[hash])
		seen[hash] = true
	}
}

// TestHashOf tests the locally computed CIDv0
func TestHashOf(t *testing.T) {
	h1, err := HashOf([]byte("state"))
	require.NoError(t, err)
	require.NoError(t, ValidateIPFSHash(h1))

	h2, err := HashOf([]byte("state"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := HashOf([]byte("other state"))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

// TestFilePublisher tests publishing and fetching documents from a directory
func TestFilePublisher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := filepath.Join(t.TempDir(), "state")

	publisher, err := NewFilePublisher(dir, logger)
	require.NoError(t, err)
	assert.True(t, publisher.Available(context.Background()))
	assert.Equal(t, "file://"+dir, publisher.LocationURI())
	assert.Equal(t, "file-state", publisher.Name())

	doc := []byte(`{"level": 12, "inventory": ["pickaxe"]}`)
	hash, err := publisher.Publish(context.Background(), doc)
	require.NoError(t, err)
	require.NoError(t, ValidateIPFSHash(hash))
	assert.FileExists(t, filepath.Join(dir, hash))

	fetched, err := publisher.Fetch(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, doc, fetched)

	_, err = publisher.Fetch(context.Background(), RandomIPFSHash())
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	_, err = publisher.Fetch(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, interfaces.ErrInvalidIPFSHash)
}

// TestPublisherFactory tests creating publishers from location URIs
func TestPublisherFactory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := NewPublisherFactory(logger)
	dir := t.TempDir()

	t.Run("file", func(t *testing.T) {
		publisher, err := factory.PublisherFor("file://" + dir)
		require.NoError(t, err)
		assert.IsType(t, &FilePublisher{}, publisher)
		assert.Equal(t, "file://"+dir, publisher.LocationURI())
	})

	t.Run("ipfs", func(t *testing.T) {
		publisher, err := factory.PublisherFor("ipfs://127.0.0.1:5001/?timeout=5s")
		require.NoError(t, err)
		assert.IsType(t, &IPFSPublisher{}, publisher)
		assert.Equal(t, "ipfs-127.0.0.1-5001", publisher.Name())
	})

	t.Run("ipfs default port", func(t *testing.T) {
		publisher, err := factory.PublisherFor("ipfs://localhost")
		require.NoError(t, err)
		assert.Equal(t, "ipfs-localhost-5001", publisher.Name())
	})

	t.Run("s3", func(t *testing.T) {
		publisher, err := factory.PublisherFor("s3://AKID:SECRET@states/players?region=eu-west-1&endpoint=http://127.0.0.1:9000&path_style=true")
		require.NoError(t, err)
		require.IsType(t, &S3Publisher{}, publisher)
		assert.Equal(t, "s3-states", publisher.Name())
		assert.NotContains(t, publisher.LocationURI(), "SECRET")
		assert.Equal(t, "players/"+"QmHash", publisher.(*S3Publisher).objectKey("QmHash"))
	})

	t.Run("vault", func(t *testing.T) {
		publisher, err := factory.PublisherFor("vault://s.token@127.0.0.1:8200/secret/registry/state?scheme=http")
		require.NoError(t, err)
		require.IsType(t, &VaultPublisher{}, publisher)
		assert.Equal(t, "vault-secret-registry/state", publisher.Name())
		assert.Equal(t, "secret/data/registry/state/QmHash", publisher.(*VaultPublisher).secretPath("QmHash"))
		assert.NotContains(t, publisher.LocationURI(), "s.token")
	})

	t.Run("invalid", func(t *testing.T) {
		for _, uri := range []string{"gs://bucket/prefix", "ipfs://", "ipfs://host/?timeout=soon", "file://", "s3:///prefix", "s3://bucket/?path_style=maybe", "vault://host:8200", "vault://host:8200/secret?timeout=soon"} {
			_, err := factory.PublisherFor(uri)
			assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI, uri)
		}
	})

	t.Run("multi", func(t *testing.T) {
		publisher, err := factory.CreateMultiPublisher([]string{"file://" + dir, "ipfs://127.0.0.1:5001", "unknown://x"})
		require.NoError(t, err)
		assert.IsType(t, &MultiPublisher{}, publisher)

		single, err := factory.CreateMultiPublisher([]string{"file://" + dir})
		require.NoError(t, err)
		assert.IsType(t, &FilePublisher{}, single)

		_, err = factory.CreateMultiPublisher([]string{"unknown://x"})
		assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
	})
}
