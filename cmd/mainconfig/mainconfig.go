package mainconfig

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"

	appconfig "github.com/mzansiprolife/platform/internal/config"
)

// LoadAWSConfig centralizes AWS SDK initialization for the SES email path.
// Credentials come from the default chain (env vars, instance profile).
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
}
