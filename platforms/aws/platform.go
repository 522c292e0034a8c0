// Package aws deploys to Amazon ECR and ECS Fargate.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Platform implements platform.Target for AWS: images live in ECR, the
// service runs on ECS Fargate.
type Platform struct {
	region string

	ecrClient            *ecr.Client
	ecsClient            *ecs.Client
	ec2Client            *ec2.Client
	logsClient           *cloudwatchlogs.Client
	secretsmanagerClient *secretsmanager.Client
	ssmClient            *ssm.Client
}

func New(ctx context.Context, region string) (*Platform, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &Platform{
		region:               region,
		ecrClient:            ecr.NewFromConfig(cfg),
		ecsClient:            ecs.NewFromConfig(cfg),
		ec2Client:            ec2.NewFromConfig(cfg),
		logsClient:           cloudwatchlogs.NewFromConfig(cfg),
		secretsmanagerClient: secretsmanager.NewFromConfig(cfg),
		ssmClient:            ssm.NewFromConfig(cfg),
	}, nil
}

func (p *Platform) Name() string { return "aws" }

// Close is a no-op; aws-sdk-go-v2 clients hold no resources needing release.
func (p *Platform) Close() error { return nil }
