// Package gcp deploys to Google Artifact Registry and Cloud Run.
package gcp

import (
	"context"
	"fmt"

	artifactregistry "cloud.google.com/go/artifactregistry/apiv1"
	run "cloud.google.com/go/run/apiv2"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Platform implements platform.Target for GCP: images live in Artifact
// Registry, the service runs on Cloud Run.
type Platform struct {
	project string
	region  string

	services     *run.ServicesClient
	repositories *artifactregistry.Client
	secrets      *secretmanager.Client
	tokenSource  oauth2.TokenSource
}

// New creates a Platform using application default credentials. A non-empty
// endpoint routes all API calls to a custom host without authentication,
// for local simulators.
func New(ctx context.Context, project, region, endpoint string) (*Platform, error) {
	var opts []option.ClientOption
	var ts oauth2.TokenSource

	if endpoint != "" {
		opts = append(opts,
			option.WithEndpoint(endpoint),
			option.WithoutAuthentication(),
		)
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "unauthenticated"})
	} else {
		creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to load GCP credentials: %w", err)
		}
		ts = creds.TokenSource
	}

	services, err := run.NewServicesClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud Run client: %w", err)
	}

	repositories, err := artifactregistry.NewClient(ctx, opts...)
	if err != nil {
		_ = services.Close()
		return nil, fmt.Errorf("failed to create Artifact Registry client: %w", err)
	}

	secrets, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		_ = services.Close()
		_ = repositories.Close()
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &Platform{
		project:      project,
		region:       region,
		services:     services,
		repositories: repositories,
		secrets:      secrets,
		tokenSource:  ts,
	}, nil
}

func (p *Platform) Name() string { return "gcp" }

func (p *Platform) Close() error {
	errServices := p.services.Close()
	errRepos := p.repositories.Close()
	errSecrets := p.secrets.Close()
	if errServices != nil {
		return errServices
	}
	if errRepos != nil {
		return errRepos
	}
	return errSecrets
}

// parent returns the location-scoped parent resource path.
func (p *Platform) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", p.project, p.region)
}
