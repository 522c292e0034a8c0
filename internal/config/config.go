package config

import (
	"fmt"
	"time"
)

// Config is the top-level deploy configuration, evaluated from slipway.pkl.
type Config struct {
	Platform   string   `pkl:"platform"` // "aws" or "gcp"
	Project    string   `pkl:"project"`  // GCP project ID; unused on AWS
	Region     string   `pkl:"region"`
	Repository string   `pkl:"repository"` // registry namespace, created if absent
	Endpoint   string   `pkl:"endpoint"`   // custom API endpoint (simulators); empty for real clouds
	Image      *Image   `pkl:"image"`
	Service    *Service `pkl:"service"`
	Retry      *Retry   `pkl:"retry"`       // nil: steps run exactly once
	StepTimeout string  `pkl:"stepTimeout"` // per-step timeout, Go duration string
}

// Image describes what to build and the fixed tag it is published under.
// The tag is deliberately not content-addressed: every run overwrites it,
// superseding the previous image.
type Image struct {
	Name       string `pkl:"name"`
	Tag        string `pkl:"tag"`
	Context    string `pkl:"context"`
	Dockerfile string `pkl:"dockerfile"`
}

// Service describes the managed service that serves the image.
type Service struct {
	Name   string            `pkl:"name"`
	Port   int               `pkl:"port"`
	Env    map[string]string `pkl:"env"`
	Secret *SecretEnv        `pkl:"secret"`
	CPU    string            `pkl:"cpu"`
	Memory string            `pkl:"memory"`

	// AWS (ECS Fargate) specifics. Ignored on GCP.
	Cluster          string   `pkl:"cluster"`
	Subnets          []string `pkl:"subnets"`
	SecurityGroups   []string `pkl:"securityGroups"`
	ExecutionRoleARN string   `pkl:"executionRoleArn"`
	LogGroup         string   `pkl:"logGroup"`
}

// SecretEnv injects one secret value into the service as an environment
// variable. ValueFrom is a platform secret reference: a Secrets Manager ARN,
// secretsmanager://name or ssm://name on AWS, a Secret Manager secret name
// on GCP.
type SecretEnv struct {
	Name      string `pkl:"name"`
	ValueFrom string `pkl:"valueFrom"`
}

// Retry enables per-step retry of transient errors. Steps still abort the
// pipeline on their final failure.
type Retry struct {
	MaxRetries int    `pkl:"maxRetries"`
	BaseDelay  string `pkl:"baseDelay"`
	MaxDelay   string `pkl:"maxDelay"`
}

// ApplyDefaults fills in optional fields.
func (c *Config) ApplyDefaults() {
	if c.Image != nil {
		if c.Image.Tag == "" {
			c.Image.Tag = "latest"
		}
		if c.Image.Context == "" {
			c.Image.Context = "."
		}
		if c.Image.Dockerfile == "" {
			c.Image.Dockerfile = "Dockerfile"
		}
	}
	if c.Service != nil {
		if c.Service.Port == 0 {
			c.Service.Port = 8080
		}
		if c.Service.CPU == "" {
			c.Service.CPU = "256"
		}
		if c.Service.Memory == "" {
			c.Service.Memory = "512"
		}
		if c.Service.Cluster == "" {
			c.Service.Cluster = "default"
		}
		if c.Service.LogGroup == "" {
			c.Service.LogGroup = "/slipway/" + c.Service.Name
		}
	}
}

// Validate checks the configuration before any pipeline step runs.
func (c *Config) Validate() error {
	switch c.Platform {
	case "aws", "gcp":
	case "":
		return fmt.Errorf("platform is required")
	default:
		return fmt.Errorf("unknown platform: %s", c.Platform)
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.Repository == "" {
		return fmt.Errorf("repository is required")
	}
	if c.Platform == "gcp" && c.Project == "" {
		return fmt.Errorf("project is required for platform gcp")
	}
	if c.Image == nil || c.Image.Name == "" {
		return fmt.Errorf("image.name is required")
	}
	if c.Service == nil || c.Service.Name == "" {
		return fmt.Errorf("service.name is required")
	}
	if c.Service.Secret != nil {
		if c.Service.Secret.Name == "" || c.Service.Secret.ValueFrom == "" {
			return fmt.Errorf("service.secret requires both name and valueFrom")
		}
	}
	if c.Platform == "aws" {
		if len(c.Service.Subnets) == 0 {
			return fmt.Errorf("service.subnets is required for platform aws")
		}
		if c.Service.ExecutionRoleARN == "" {
			return fmt.Errorf("service.executionRoleArn is required for platform aws")
		}
	}
	if c.StepTimeout != "" {
		if _, err := time.ParseDuration(c.StepTimeout); err != nil {
			return fmt.Errorf("invalid stepTimeout: %w", err)
		}
	}
	if c.Retry != nil {
		if c.Retry.MaxRetries < 0 {
			return fmt.Errorf("retry.maxRetries must not be negative")
		}
		for _, d := range []string{c.Retry.BaseDelay, c.Retry.MaxDelay} {
			if d == "" {
				continue
			}
			if _, err := time.ParseDuration(d); err != nil {
				return fmt.Errorf("invalid retry delay %q: %w", d, err)
			}
		}
	}
	return nil
}

// StepTimeoutDuration returns the configured per-step timeout, or zero when
// unset (callers fall back to their own default).
func (c *Config) StepTimeoutDuration() time.Duration {
	if c.StepTimeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.StepTimeout)
	return d
}

// LocalRef returns the image reference used for local builds and smoke runs.
func (c *Config) LocalRef() string {
	return c.Image.Name + ":" + c.Image.Tag
}
