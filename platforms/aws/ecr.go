package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"github.com/slipway-sh/slipway/internal/config"
	"github.com/slipway-sh/slipway/internal/logging"
	"github.com/slipway-sh/slipway/pkg/platform"
)

// EnsureRepository creates the ECR repository if absent and returns its URI.
// A repository that already exists is success: this step must be safe to run
// on every deploy.
func (p *Platform) EnsureRepository(ctx context.Context, cfg *config.Config) (string, error) {
	name := repositoryName(cfg)

	_, err := p.ecrClient.CreateRepository(ctx, &ecr.CreateRepositoryInput{
		RepositoryName: &name,
	})
	if err != nil {
		if !isRepositoryExists(err) {
			return "", fmt.Errorf("failed to create repository %s: %w", name, err)
		}
		logging.Debug("repository already exists", "repository", name)
	}

	out, err := p.ecrClient.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{name},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe repository %s: %w", name, err)
	}
	if len(out.Repositories) == 0 || out.Repositories[0].RepositoryUri == nil {
		return "", fmt.Errorf("repository %s has no URI", name)
	}

	return *out.Repositories[0].RepositoryUri, nil
}

// RegistryAuth exchanges the caller's AWS credentials for temporary docker
// credentials on the account's ECR registry.
func (p *Platform) RegistryAuth(ctx context.Context, cfg *config.Config) (platform.RegistryAuth, error) {
	out, err := p.ecrClient.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return platform.RegistryAuth{}, fmt.Errorf("failed to get ECR authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 || out.AuthorizationData[0].AuthorizationToken == nil {
		return platform.RegistryAuth{}, fmt.Errorf("ECR returned no authorization data")
	}

	data := out.AuthorizationData[0]
	username, password, err := decodeAuthToken(*data.AuthorizationToken)
	if err != nil {
		return platform.RegistryAuth{}, err
	}

	server := ""
	if data.ProxyEndpoint != nil {
		server = strings.TrimPrefix(*data.ProxyEndpoint, "https://")
	}

	return platform.RegistryAuth{
		Username:      username,
		Password:      password,
		ServerAddress: server,
	}, nil
}

// isRepositoryExists reports whether err is ECR's already-exists error,
// which EnsureRepository treats as success.
func isRepositoryExists(err error) bool {
	var exists *ecrtypes.RepositoryAlreadyExistsException
	return errors.As(err, &exists)
}

// decodeAuthToken splits the base64 "user:password" token ECR returns.
func decodeAuthToken(token string) (string, string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode ECR authorization token: %w", err)
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", fmt.Errorf("malformed ECR authorization token")
	}
	return user, pass, nil
}

// repositoryName returns the ECR repository name. The configured repository
// acts as a namespace prefix for the image, matching the registry layout the
// other platforms use.
func repositoryName(cfg *config.Config) string {
	return cfg.Repository + "/" + cfg.Image.Name
}
