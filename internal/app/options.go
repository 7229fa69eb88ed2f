package app

import (
	"crypto/ed25519"

	"github.com/youthperformance/xlens/internal/blobstore"
	"github.com/youthperformance/xlens/internal/config"
	"github.com/youthperformance/xlens/internal/oracle"
	"github.com/youthperformance/xlens/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the service configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSigningKey sets the certificate signing key. Without it, Start
// generates an ephemeral key and previously issued certificates will not
// verify across restarts.
func WithSigningKey(priv ed25519.PrivateKey) Option {
	return func(s *Service) {
		if len(priv) == ed25519.PrivateKeySize {
			s.signingKey = priv
		}
	}
}

// WithAnalyzer overrides analyzer selection, for tests.
func WithAnalyzer(a oracle.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithBlobStore overrides the artifact store, for tests.
func WithBlobStore(b blobstore.Store) Option {
	return func(s *Service) {
		if b != nil {
			s.blobs = b
		}
	}
}
