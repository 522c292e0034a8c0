package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/slipway-sh/slipway/internal/config"
	"github.com/slipway-sh/slipway/internal/logging"
)

// Deploy registers a new task definition revision for imageRef and points
// the ECS service at it, creating the service on first deploy. Two
// concurrent deploys race on the service: the platform serves whichever
// revision was registered by the deploy that finishes last.
func (p *Platform) Deploy(ctx context.Context, cfg *config.Config, imageRef string) (string, error) {
	if err := p.ensureLogGroup(ctx, cfg.Service.LogGroup); err != nil {
		return "", err
	}

	taskDefARN, err := p.registerTaskDefinition(ctx, cfg, imageRef)
	if err != nil {
		return "", err
	}

	if err := p.upsertService(ctx, cfg, taskDefARN); err != nil {
		return "", err
	}

	url, err := p.serviceURL(ctx, cfg)
	if err != nil {
		// Deploy itself succeeded; the URL is best-effort on Fargate.
		logging.Warn("could not resolve service URL", "service", cfg.Service.Name, "error", err)
		return "", nil
	}
	return url, nil
}

// ensureLogGroup creates the awslogs log group if absent; an existing group
// is success.
func (p *Platform) ensureLogGroup(ctx context.Context, name string) error {
	_, err := p.logsClient.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: &name,
	})
	if err != nil && !isLogGroupExists(err) {
		return fmt.Errorf("failed to create log group %s: %w", name, err)
	}
	return nil
}

// isLogGroupExists reports whether err is CloudWatch Logs' already-exists
// error, which ensureLogGroup treats as success.
func isLogGroupExists(err error) bool {
	var exists *cwltypes.ResourceAlreadyExistsException
	return errors.As(err, &exists)
}

func (p *Platform) registerTaskDefinition(ctx context.Context, cfg *config.Config, imageRef string) (string, error) {
	svc := cfg.Service

	var environment []ecstypes.KeyValuePair
	for k, v := range svc.Env {
		environment = append(environment, ecstypes.KeyValuePair{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	var secrets []ecstypes.Secret
	if svc.Secret != nil {
		valueFrom, err := p.ResolveSecret(ctx, svc.Secret.ValueFrom)
		if err != nil {
			return "", err
		}
		secrets = append(secrets, ecstypes.Secret{
			Name:      aws.String(svc.Secret.Name),
			ValueFrom: aws.String(valueFrom),
		})
	}

	out, err := p.ecsClient.RegisterTaskDefinition(ctx, &ecs.RegisterTaskDefinitionInput{
		Family:                  aws.String(svc.Name),
		RequiresCompatibilities: []ecstypes.Compatibility{ecstypes.CompatibilityFargate},
		NetworkMode:             ecstypes.NetworkModeAwsvpc,
		Cpu:                     aws.String(svc.CPU),
		Memory:                  aws.String(svc.Memory),
		ExecutionRoleArn:        aws.String(svc.ExecutionRoleARN),
		ContainerDefinitions: []ecstypes.ContainerDefinition{
			{
				Name:        aws.String(svc.Name),
				Image:       aws.String(imageRef),
				Essential:   aws.Bool(true),
				Environment: environment,
				Secrets:     secrets,
				PortMappings: []ecstypes.PortMapping{
					{
						ContainerPort: aws.Int32(int32(svc.Port)),
						Protocol:      ecstypes.TransportProtocolTcp,
					},
				},
				LogConfiguration: &ecstypes.LogConfiguration{
					LogDriver: ecstypes.LogDriverAwslogs,
					Options: map[string]string{
						"awslogs-group":         svc.LogGroup,
						"awslogs-region":        p.region,
						"awslogs-stream-prefix": svc.Name,
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to register task definition: %w", err)
	}

	arn := *out.TaskDefinition.TaskDefinitionArn
	logging.Debug("registered task definition", "arn", arn)
	return arn, nil
}

// upsertService updates the service to the new task definition, or creates
// it when it does not exist yet.
func (p *Platform) upsertService(ctx context.Context, cfg *config.Config, taskDefARN string) error {
	svc := cfg.Service

	if p.serviceActive(ctx, svc) {
		_, err := p.ecsClient.UpdateService(ctx, &ecs.UpdateServiceInput{
			Cluster:            aws.String(svc.Cluster),
			Service:            aws.String(svc.Name),
			TaskDefinition:     aws.String(taskDefARN),
			ForceNewDeployment: true,
		})
		if err != nil {
			return fmt.Errorf("failed to update service %s: %w", svc.Name, err)
		}
		return nil
	}

	_, err := p.ecsClient.CreateService(ctx, &ecs.CreateServiceInput{
		Cluster:        aws.String(svc.Cluster),
		ServiceName:    aws.String(svc.Name),
		TaskDefinition: aws.String(taskDefARN),
		DesiredCount:   aws.Int32(1),
		LaunchType:     ecstypes.LaunchTypeFargate,
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        svc.Subnets,
				SecurityGroups: svc.SecurityGroups,
				AssignPublicIp: ecstypes.AssignPublicIpEnabled,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create service %s: %w", svc.Name, err)
	}
	return nil
}

func (p *Platform) serviceActive(ctx context.Context, svc *config.Service) bool {
	out, err := p.ecsClient.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(svc.Cluster),
		Services: []string{svc.Name},
	})
	if err != nil || len(out.Services) == 0 {
		return false
	}
	return out.Services[0].Status != nil && *out.Services[0].Status == "ACTIVE"
}
