package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/run/apiv2/runpb"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/slipway-sh/slipway/internal/config"
	"github.com/slipway-sh/slipway/internal/logging"
)

// Deploy creates or updates the Cloud Run service to serve imageRef and
// returns its URL. Concurrent deploys to the same service are resolved by
// Cloud Run itself: the last revision to be created wins.
func (p *Platform) Deploy(ctx context.Context, cfg *config.Config, imageRef string) (string, error) {
	svcName := fmt.Sprintf("%s/services/%s", p.parent(), cfg.Service.Name)

	secretName := ""
	if cfg.Service.Secret != nil {
		resolved, err := p.ResolveSecret(ctx, cfg.Service.Secret.ValueFrom)
		if err != nil {
			return "", err
		}
		secretName = resolved
	}

	template := &runpb.RevisionTemplate{
		Containers: []*runpb.Container{
			p.containerSpec(cfg, imageRef, secretName),
		},
	}

	existing, err := p.services.GetService(ctx, &runpb.GetServiceRequest{Name: svcName})
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return "", fmt.Errorf("failed to get service %s: %w", cfg.Service.Name, err)
		}

		op, err := p.services.CreateService(ctx, &runpb.CreateServiceRequest{
			Parent:    p.parent(),
			ServiceId: cfg.Service.Name,
			Service:   &runpb.Service{Template: template},
		})
		if err != nil {
			return "", fmt.Errorf("failed to create service %s: %w", cfg.Service.Name, err)
		}
		svc, err := op.Wait(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to create service %s: %w", cfg.Service.Name, err)
		}
		logging.Debug("service created", "service", cfg.Service.Name, "uri", svc.Uri)
		return svc.Uri, nil
	}

	existing.Template = template
	op, err := p.services.UpdateService(ctx, &runpb.UpdateServiceRequest{Service: existing})
	if err != nil {
		return "", fmt.Errorf("failed to update service %s: %w", cfg.Service.Name, err)
	}
	svc, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to update service %s: %w", cfg.Service.Name, err)
	}
	logging.Debug("service updated", "service", cfg.Service.Name, "uri", svc.Uri)
	return svc.Uri, nil
}

// containerSpec builds the Cloud Run container: the image, the service port,
// plain env vars, and the one secret injected as an env var sourced from
// Secret Manager.
func (p *Platform) containerSpec(cfg *config.Config, imageRef, secretName string) *runpb.Container {
	var envVars []*runpb.EnvVar
	for k, v := range cfg.Service.Env {
		envVars = append(envVars, &runpb.EnvVar{
			Name:   k,
			Values: &runpb.EnvVar_Value{Value: v},
		})
	}

	if cfg.Service.Secret != nil && secretName != "" {
		envVars = append(envVars, &runpb.EnvVar{
			Name: cfg.Service.Secret.Name,
			Values: &runpb.EnvVar_ValueSource{
				ValueSource: &runpb.EnvVarSource{
					SecretKeyRef: &runpb.SecretKeySelector{
						Secret:  secretName,
						Version: "latest",
					},
				},
			},
		})
	}

	return &runpb.Container{
		Image: imageRef,
		Env:   envVars,
		Ports: []*runpb.ContainerPort{
			{ContainerPort: int32(cfg.Service.Port)},
		},
		Resources: &runpb.ResourceRequirements{
			Limits: map[string]string{
				"cpu":    cpuLimit(cfg.Service.CPU),
				"memory": memoryLimit(cfg.Service.Memory),
			},
		},
	}
}

// ResolveSecret validates that the referenced Secret Manager secret exists
// and returns the short name Cloud Run's SecretKeySelector expects for
// same-project secrets.
func (p *Platform) ResolveSecret(ctx context.Context, ref string) (string, error) {
	name := ref
	if !strings.HasPrefix(ref, "projects/") {
		name = fmt.Sprintf("projects/%s/secrets/%s", p.project, ref)
	}

	secret, err := p.secrets.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret %s: %w", ref, err)
	}

	// projects/P/secrets/NAME -> NAME
	parts := strings.Split(secret.Name, "/")
	return parts[len(parts)-1], nil
}

// cpuLimit maps Fargate-style CPU units to Cloud Run vCPUs; any other value
// passes through as a quantity.
func cpuLimit(cpu string) string {
	switch cpu {
	case "256", "512", "1024":
		return "1"
	case "2048":
		return "2"
	case "4096":
		return "4"
	}
	return cpu
}

// memoryLimit converts bare mebibyte values to a Cloud Run quantity.
func memoryLimit(memory string) string {
	for _, r := range memory {
		if r < '0' || r > '9' {
			return memory
		}
	}
	return memory + "Mi"
}
