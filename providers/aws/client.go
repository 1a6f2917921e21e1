package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// The price list API is only served from a few regions
const pricingRegion = "us-east-1"

// Client bundles the AWS service clients the launcher talks to
type Client struct {
	SageMaker *sagemaker.Client
	S3        *s3.Client
	STS       *sts.Client
	Pricing   *pricing.Client
	Region    string
}

// ClientOptions configures NewClient
type ClientOptions struct {
	Region string

	// Optional S3-compatible endpoint with static keys, e.g. a local MinIO
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// NewClient creates AWS clients from the default credential chain
func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.S3Endpoint == "" {
			return
		}
		o.BaseEndpoint = aws.String(opts.S3Endpoint)
		o.UsePathStyle = true
		if opts.S3AccessKeyID != "" && opts.S3SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(opts.S3AccessKeyID, opts.S3SecretAccessKey, "")
		}
	})

	return &Client{
		SageMaker: sagemaker.NewFromConfig(cfg),
		S3:        s3Client,
		STS:       sts.NewFromConfig(cfg),
		Pricing: pricing.NewFromConfig(cfg, func(o *pricing.Options) {
			o.Region = pricingRegion
		}),
		Region: cfg.Region,
	}, nil
}
