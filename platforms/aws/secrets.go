package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ResolveSecret validates a secret reference and returns the ARN the task
// definition injects via valueFrom. Accepted forms:
//
//	arn:aws:secretsmanager:...   used as-is after validation
//	secretsmanager://name        resolved through Secrets Manager
//	ssm://name                   resolved through SSM Parameter Store
func (p *Platform) ResolveSecret(ctx context.Context, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "arn:aws:secretsmanager:"), strings.HasPrefix(ref, "secretsmanager://"):
		name := strings.TrimPrefix(ref, "secretsmanager://")
		out, err := p.secretsmanagerClient.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
			SecretId: &name,
		})
		if err != nil {
			return "", fmt.Errorf("failed to resolve secret %s: %w", ref, err)
		}
		return *out.ARN, nil

	case strings.HasPrefix(ref, "arn:aws:ssm:"), strings.HasPrefix(ref, "ssm://"):
		name := strings.TrimPrefix(ref, "ssm://")
		out, err := p.ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
			Name: &name,
		})
		if err != nil {
			return "", fmt.Errorf("failed to resolve SSM parameter %s: %w", ref, err)
		}
		return *out.Parameter.ARN, nil
	}

	return "", fmt.Errorf("unsupported secret reference %q: expected a Secrets Manager ARN, secretsmanager:// or ssm://", ref)
}
