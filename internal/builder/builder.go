package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/slipway-sh/slipway/internal/logging"
	"github.com/slipway-sh/slipway/pkg/platform"
)

// Builder builds, tags, and pushes images through the local Docker daemon.
type Builder struct {
	cli *client.Client
	out io.Writer
}

func New() (*Builder, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return &Builder{cli: cli, out: os.Stderr}, nil
}

// SetOutput redirects daemon build/push output (used by tests).
func (b *Builder) SetOutput(w io.Writer) { b.out = w }

// Build builds an image from contextDir/dockerfile and applies every tag in
// tags. The daemon's own output is streamed through and an in-stream build
// error fails the build.
func (b *Builder) Build(ctx context.Context, contextDir, dockerfile string, tags []string) error {
	tar, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("failed to create build context tar: %w", err)
	}
	defer tar.Close()

	opts := types.ImageBuildOptions{
		Tags:       tags,
		Dockerfile: dockerfile,
		Remove:     true,
	}

	resp, err := b.cli.ImageBuild(ctx, tar, opts)
	if err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	if err := b.stream(resp.Body); err != nil {
		return fmt.Errorf("image build failed: %w", err)
	}

	logging.Debug("image built", "tags", strings.Join(tags, ","))
	return nil
}

// Tag applies an additional reference to an existing local image.
func (b *Builder) Tag(ctx context.Context, source, target string) error {
	if err := b.cli.ImageTag(ctx, source, target); err != nil {
		return fmt.Errorf("failed to tag %s as %s: %w", source, target, err)
	}
	return nil
}

// Push pushes ref using the given registry credentials and returns the
// pushed image digest (empty when the daemon does not report one).
func (b *Builder) Push(ctx context.Context, ref string, auth platform.RegistryAuth) (string, error) {
	encoded, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      auth.Username,
		Password:      auth.Password,
		ServerAddress: auth.ServerAddress,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode registry auth: %w", err)
	}

	rc, err := b.cli.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: encoded})
	if err != nil {
		return "", fmt.Errorf("failed to push image %s: %w", ref, err)
	}
	defer rc.Close()

	if err := b.stream(rc); err != nil {
		return "", fmt.Errorf("image push failed: %w", err)
	}

	inspect, _, err := b.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("failed to inspect pushed image: %w", err)
	}
	return digestFor(ref, inspect.RepoDigests), nil
}

// stream relays a daemon JSON message stream, surfacing any error embedded
// in it.
func (b *Builder) stream(r io.Reader) error {
	return jsonmessage.DisplayJSONMessagesStream(r, b.out, 0, false, nil)
}

// digestFor picks the repo digest matching ref's repository out of the
// image's RepoDigests list.
func digestFor(ref string, repoDigests []string) string {
	repo := ref
	if i := strings.LastIndex(ref, ":"); i > strings.LastIndex(ref, "/") {
		repo = ref[:i]
	}
	for _, rd := range repoDigests {
		if name, digest, ok := strings.Cut(rd, "@"); ok && name == repo {
			return digest
		}
	}
	return ""
}
