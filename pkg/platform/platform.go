// Package platform defines the contract between the deploy pipeline and the
// cloud platforms that host the image registry and the managed service.
package platform

import (
	"context"

	"github.com/slipway-sh/slipway/internal/config"
)

// RegistryAuth carries docker registry credentials obtained from a platform.
type RegistryAuth struct {
	Username      string
	Password      string
	ServerAddress string
}

// Target is a deploy destination: an image registry plus a managed
// serverless container service.
type Target interface {
	// Name returns the platform identifier ("aws", "gcp").
	Name() string

	// EnsureRepository creates the registry namespace if it does not exist
	// and returns the repository path images are pushed to (without a tag).
	// An already-existing namespace is success, not failure.
	EnsureRepository(ctx context.Context, cfg *config.Config) (string, error)

	// RegistryAuth returns push credentials for the repository.
	RegistryAuth(ctx context.Context, cfg *config.Config) (RegistryAuth, error)

	// ResolveSecret validates a secret reference and returns the canonical
	// identifier the service definition should use.
	ResolveSecret(ctx context.Context, ref string) (string, error)

	// Deploy creates or updates the managed service to serve imageRef and
	// returns the service URL, which may be empty when the platform cannot
	// report one yet.
	Deploy(ctx context.Context, cfg *config.Config, imageRef string) (string, error)

	// Close releases platform client resources.
	Close() error
}
