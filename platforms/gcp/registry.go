package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/artifactregistry/apiv1/artifactregistrypb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/slipway-sh/slipway/internal/config"
	"github.com/slipway-sh/slipway/internal/logging"
	"github.com/slipway-sh/slipway/pkg/platform"
)

// EnsureRepository creates the Artifact Registry docker repository if absent
// and returns the path images are pushed to. AlreadyExists is success.
func (p *Platform) EnsureRepository(ctx context.Context, cfg *config.Config) (string, error) {
	op, err := p.repositories.CreateRepository(ctx, &artifactregistrypb.CreateRepositoryRequest{
		Parent:       p.parent(),
		RepositoryId: cfg.Repository,
		Repository: &artifactregistrypb.Repository{
			Format: artifactregistrypb.Repository_DOCKER,
		},
	})
	if err != nil {
		if !isAlreadyExists(err) {
			return "", fmt.Errorf("failed to create repository %s: %w", cfg.Repository, err)
		}
		logging.Debug("repository already exists", "repository", cfg.Repository)
	} else {
		if _, err := op.Wait(ctx); err != nil && !isAlreadyExists(err) {
			return "", fmt.Errorf("failed to create repository %s: %w", cfg.Repository, err)
		}
	}

	return fmt.Sprintf("%s/%s/%s/%s", p.registryHost(), p.project, cfg.Repository, cfg.Image.Name), nil
}

// RegistryAuth returns docker credentials for Artifact Registry: an OAuth
// access token under the well-known oauth2accesstoken user.
func (p *Platform) RegistryAuth(ctx context.Context, cfg *config.Config) (platform.RegistryAuth, error) {
	token, err := p.tokenSource.Token()
	if err != nil {
		return platform.RegistryAuth{}, fmt.Errorf("failed to obtain access token: %w", err)
	}
	return platform.RegistryAuth{
		Username:      "oauth2accesstoken",
		Password:      token.AccessToken,
		ServerAddress: p.registryHost(),
	}, nil
}

// isAlreadyExists reports whether err is the AlreadyExists status, which
// EnsureRepository treats as success.
func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

func (p *Platform) registryHost() string {
	return p.region + "-docker.pkg.dev"
}
