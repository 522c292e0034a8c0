package pipeline

import (
	"context"
	"fmt"

	"github.com/slipway-sh/slipway/internal/builder"
	"github.com/slipway-sh/slipway/internal/logging"
	"github.com/slipway-sh/slipway/internal/release"
	"github.com/slipway-sh/slipway/pkg/platform"
)

// EnsureRepository creates the registry namespace if absent and records the
// repository path and the full image reference for the steps after it.
func EnsureRepository(target platform.Target) Step {
	return StepFunc{
		StepName: "ensure-repository",
		Fn: func(ctx context.Context, rc *RunContext) error {
			repo, err := target.EnsureRepository(ctx, rc.Config)
			if err != nil {
				return err
			}
			rc.Repository = repo
			rc.ImageRef = repo + ":" + rc.Config.Image.Tag
			logging.Info("repository ready", "repository", repo)
			return nil
		},
	}
}

// BuildImage builds the configured context and tags the result with both the
// local reference and the registry reference at the fixed tag. Reusing the
// tag means each run supersedes the previous image.
func BuildImage(b *builder.Builder) Step {
	return StepFunc{
		StepName: "build-image",
		Fn: func(ctx context.Context, rc *RunContext) error {
			if rc.ImageRef == "" {
				return fmt.Errorf("image reference not set: ensure-repository must run first")
			}
			img := rc.Config.Image
			return b.Build(ctx, img.Context, img.Dockerfile, []string{rc.Config.LocalRef(), rc.ImageRef})
		},
	}
}

// TagImage retags a previously built local image with the registry
// reference, for pushing without rebuilding.
func TagImage(b *builder.Builder) Step {
	return StepFunc{
		StepName: "tag-image",
		Fn: func(ctx context.Context, rc *RunContext) error {
			if rc.ImageRef == "" {
				return fmt.Errorf("image reference not set: ensure-repository must run first")
			}
			return b.Tag(ctx, rc.Config.LocalRef(), rc.ImageRef)
		},
	}
}

// PushImage pushes the registry reference with credentials from the target.
func PushImage(b *builder.Builder, target platform.Target) Step {
	return StepFunc{
		StepName: "push-image",
		Fn: func(ctx context.Context, rc *RunContext) error {
			auth, err := target.RegistryAuth(ctx, rc.Config)
			if err != nil {
				return err
			}
			digest, err := b.Push(ctx, rc.ImageRef, auth)
			if err != nil {
				return err
			}
			rc.ImageDigest = digest
			logging.Info("image pushed", "ref", rc.ImageRef, "digest", digest)
			return nil
		},
	}
}

// DeployService points the managed service at the pushed image.
func DeployService(target platform.Target) Step {
	return StepFunc{
		StepName: "deploy-service",
		Fn: func(ctx context.Context, rc *RunContext) error {
			url, err := target.Deploy(ctx, rc.Config, rc.ImageRef)
			if err != nil {
				return err
			}
			rc.ServiceURL = url
			logging.Info("service deployed", "service", rc.Config.Service.Name, "url", url)
			return nil
		},
	}
}

// RecordRelease appends the completed deploy to the local release ledger.
func RecordRelease(ledger *release.Ledger) Step {
	return StepFunc{
		StepName: "record-release",
		Fn: func(ctx context.Context, rc *RunContext) error {
			return ledger.Append(&release.Release{
				Platform: rc.Config.Platform,
				Service:  rc.Config.Service.Name,
				Image:    rc.ImageRef,
				Digest:   rc.ImageDigest,
				URL:      rc.ServiceURL,
			})
		},
	}
}
