package builder

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// RunLocal starts a locally built image as a container with the service port
// published on the same host port, for a smoke run before deploying. It
// returns the container ID; the container keeps running until removed.
func (b *Builder) RunLocal(ctx context.Context, ref, name string, port int, env map[string]string) (string, error) {
	p := nat.Port(fmt.Sprintf("%d/tcp", port))
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			p: []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: fmt.Sprintf("%d", port),
				},
			},
		},
		AutoRemove: true,
	}

	config := &container.Config{
		Image: ref,
		Env:   envList(env),
		ExposedPorts: nat.PortSet{
			p: struct{}{},
		},
	}

	resp, err := b.cli.ContainerCreate(ctx,
		config,
		hostConfig,
		&network.NetworkingConfig{},
		&v1.Platform{},
		name,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if err := b.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	return resp.ID, nil
}

// StopLocal stops and removes a smoke-run container.
func (b *Builder) StopLocal(ctx context.Context, id string) error {
	timeout := 10 // seconds
	if err := b.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

func envList(m map[string]string) []string {
	var env []string
	for k, v := range m {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
