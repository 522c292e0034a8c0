package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/slipway-sh/slipway/internal/config"
)

const (
	urlPollInterval = 5 * time.Second
	urlPollTimeout  = 2 * time.Minute
)

// serviceURL resolves the public address of the service's running task:
// task -> ENI attachment -> EC2 network interface -> public IP. Fargate has
// no managed ingress, so this waits for a running task with bounded polling.
func (p *Platform) serviceURL(ctx context.Context, cfg *config.Config) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, urlPollTimeout)
	defer cancel()

	svc := cfg.Service
	ticker := time.NewTicker(urlPollInterval)
	defer ticker.Stop()

	for {
		task, err := p.runningTask(ctx, svc)
		if err == nil {
			eniID := extractENIID(task)
			if eniID == "" {
				return "", fmt.Errorf("task has no network interface attachment")
			}
			ip, err := p.publicIP(ctx, eniID)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("http://%s:%d", ip, svc.Port), nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("timed out waiting for a running task: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *Platform) runningTask(ctx context.Context, svc *config.Service) (ecstypes.Task, error) {
	list, err := p.ecsClient.ListTasks(ctx, &ecs.ListTasksInput{
		Cluster:       aws.String(svc.Cluster),
		ServiceName:   aws.String(svc.Name),
		DesiredStatus: ecstypes.DesiredStatusRunning,
	})
	if err != nil {
		return ecstypes.Task{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(list.TaskArns) == 0 {
		return ecstypes.Task{}, fmt.Errorf("no running tasks")
	}

	out, err := p.ecsClient.DescribeTasks(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(svc.Cluster),
		Tasks:   list.TaskArns[:1],
	})
	if err != nil {
		return ecstypes.Task{}, fmt.Errorf("failed to describe tasks: %w", err)
	}
	if len(out.Tasks) == 0 {
		return ecstypes.Task{}, fmt.Errorf("task not found")
	}
	return out.Tasks[0], nil
}

// extractENIID pulls the ENI ID out of a Fargate task's attachment details.
func extractENIID(task ecstypes.Task) string {
	for _, attachment := range task.Attachments {
		if attachment.Type == nil || *attachment.Type != "ElasticNetworkInterface" {
			continue
		}
		for _, detail := range attachment.Details {
			if detail.Name != nil && *detail.Name == "networkInterfaceId" && detail.Value != nil {
				return *detail.Value
			}
		}
	}
	return ""
}

func (p *Platform) publicIP(ctx context.Context, eniID string) (string, error) {
	out, err := p.ec2Client.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
		NetworkInterfaceIds: []string{eniID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe network interface %s: %w", eniID, err)
	}
	if len(out.NetworkInterfaces) == 0 || out.NetworkInterfaces[0].Association == nil ||
		out.NetworkInterfaces[0].Association.PublicIp == nil {
		return "", fmt.Errorf("network interface %s has no public IP", eniID)
	}
	return *out.NetworkInterfaces[0].Association.PublicIp, nil
}
