package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipway-sh/slipway/internal/config"
	"github.com/slipway-sh/slipway/internal/release"
	"github.com/slipway-sh/slipway/pkg/platform"
)

// fakeTarget implements platform.Target for step tests.
type fakeTarget struct {
	repository string
	deployURL  string
	err        error

	deployedRef string
}

func (f *fakeTarget) Name() string { return "fake" }

func (f *fakeTarget) EnsureRepository(ctx context.Context, cfg *config.Config) (string, error) {
	return f.repository, f.err
}

func (f *fakeTarget) RegistryAuth(ctx context.Context, cfg *config.Config) (platform.RegistryAuth, error) {
	return platform.RegistryAuth{Username: "user", Password: "pass"}, f.err
}

func (f *fakeTarget) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return ref, f.err
}

func (f *fakeTarget) Deploy(ctx context.Context, cfg *config.Config, imageRef string) (string, error) {
	f.deployedRef = imageRef
	return f.deployURL, f.err
}

func (f *fakeTarget) Close() error { return nil }

func TestEnsureRepositoryStep(t *testing.T) {
	target := &fakeTarget{repository: "registry.example.com/apps/promptd"}
	rc := &RunContext{Config: testConfig()}

	step := EnsureRepository(target)
	assert.Equal(t, "ensure-repository", step.Name())
	require.NoError(t, step.Run(context.Background(), rc))

	assert.Equal(t, "registry.example.com/apps/promptd", rc.Repository)
	assert.Equal(t, "registry.example.com/apps/promptd:latest", rc.ImageRef)
}

func TestEnsureRepositoryStep_Error(t *testing.T) {
	target := &fakeTarget{err: fmt.Errorf("permission denied")}
	rc := &RunContext{Config: testConfig()}

	err := EnsureRepository(target).Run(context.Background(), rc)
	require.Error(t, err)
	assert.Empty(t, rc.ImageRef)
}

func TestBuildImageStep_RequiresImageRef(t *testing.T) {
	rc := &RunContext{Config: testConfig()}

	err := BuildImage(nil).Run(context.Background(), rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure-repository must run first")
}

func TestTagImageStep_RequiresImageRef(t *testing.T) {
	rc := &RunContext{Config: testConfig()}

	err := TagImage(nil).Run(context.Background(), rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure-repository must run first")
}

func TestDeployServiceStep(t *testing.T) {
	target := &fakeTarget{deployURL: "https://promptd-abc.a.run.app"}
	rc := &RunContext{
		Config:   testConfig(),
		ImageRef: "registry.example.com/apps/promptd:latest",
	}

	require.NoError(t, DeployService(target).Run(context.Background(), rc))

	assert.Equal(t, "registry.example.com/apps/promptd:latest", target.deployedRef)
	assert.Equal(t, "https://promptd-abc.a.run.app", rc.ServiceURL)
}

func TestRecordReleaseStep(t *testing.T) {
	ledger := release.NewLedger(filepath.Join(t.TempDir(), "releases.json"))
	rc := &RunContext{
		Config:      testConfig(),
		ImageRef:    "registry.example.com/apps/promptd:latest",
		ImageDigest: "sha256:abc",
		ServiceURL:  "https://promptd-abc.a.run.app",
	}

	require.NoError(t, RecordRelease(ledger).Run(context.Background(), rc))

	h, err := ledger.Read()
	require.NoError(t, err)
	require.Len(t, h.Releases, 1)
	rel := h.Releases[0]
	assert.Equal(t, 1, rel.Serial)
	assert.Equal(t, "gcp", rel.Platform)
	assert.Equal(t, "promptd", rel.Service)
	assert.Equal(t, "registry.example.com/apps/promptd:latest", rel.Image)
	assert.Equal(t, "sha256:abc", rel.Digest)
	assert.Equal(t, "https://promptd-abc.a.run.app", rel.URL)
}
