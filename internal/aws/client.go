// Package aws provides a thin wrapper around the aws-sdk-go-v2 ECS and S3
// clients. It resolves credentials and region, paces API calls, wraps
// provider failures with a stack trace, and exposes the narrow operations
// used by monitoring checks.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"
)

const (
	DefaultRegion = "us-east-1"
	DefaultMaxRPS = 10
	MinMaxRPS     = 1
	MaxMaxRPS     = 100
)

// Config holds the configuration for connecting to AWS.
type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	Profile   string
	Retries   int
	MaxRPS    int
}

// ECSAPI defines the ECS operations used by the client.
type ECSAPI interface {
	ListContainerInstances(ctx context.Context, params *ecs.ListContainerInstancesInput, optFns ...func(*ecs.Options)) (*ecs.ListContainerInstancesOutput, error)
	DescribeContainerInstances(ctx context.Context, params *ecs.DescribeContainerInstancesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeContainerInstancesOutput, error)
}

// S3API defines the S3 operations used by the client.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Client wraps the SDK service clients and satisfies check.AWSClient.
type Client struct {
	ecs     ECSAPI
	s3      S3API
	limiter *rate.Limiter
}

// NewClient loads the AWS configuration and builds the service clients.
//
// Credential precedence:
//  1. Static keys (--access-key and --secret-key), both required
//  2. Named profile (--profile)
//  3. The SDK default chain (environment, shared config, instance role)
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	} else if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Retries > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(cfg.Retries))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return New(ecs.NewFromConfig(awsCfg), s3.NewFromConfig(awsCfg), cfg.MaxRPS), nil
}

// New builds a Client around already constructed service clients. maxRPS
// outside [MinMaxRPS, MaxMaxRPS] falls back to DefaultMaxRPS.
func New(ecsClient ECSAPI, s3Client S3API, maxRPS int) *Client {
	if maxRPS < MinMaxRPS || maxRPS > MaxMaxRPS {
		maxRPS = DefaultMaxRPS
	}
	return &Client{
		ecs:     ecsClient,
		s3:      s3Client,
		limiter: rate.NewLimiter(rate.Limit(maxRPS), maxRPS),
	}
}

// ListContainerInstances returns one page of container instance ARNs.
func (c *Client) ListContainerInstances(ctx context.Context, cluster string, maxResults int32, token *string) ([]string, *string, error) {
	const op = "ListContainerInstances"
	if err := c.wait(ctx); err != nil {
		return nil, nil, wrap("ECS", op, cluster, err)
	}

	out, err := c.ecs.ListContainerInstances(ctx, &ecs.ListContainerInstancesInput{
		Cluster:    aws.String(cluster),
		MaxResults: aws.Int32(maxResults),
		NextToken:  token,
	})
	if err != nil {
		return nil, nil, wrap("ECS", op, cluster, err)
	}
	return out.ContainerInstanceArns, out.NextToken, nil
}

// DescribeContainerInstances returns the described instances and the
// provider-reported failures for arns.
func (c *Client) DescribeContainerInstances(ctx context.Context, cluster string, arns []string) ([]ecstypes.ContainerInstance, []ecstypes.Failure, error) {
	const op = "DescribeContainerInstances"
	if err := c.wait(ctx); err != nil {
		return nil, nil, wrap("ECS", op, cluster, err)
	}

	out, err := c.ecs.DescribeContainerInstances(ctx, &ecs.DescribeContainerInstancesInput{
		Cluster:            aws.String(cluster),
		ContainerInstances: arns,
	})
	if err != nil {
		return nil, nil, wrap("ECS", op, cluster, err)
	}
	return out.ContainerInstances, out.Failures, nil
}

// ListObjects returns one page of object keys under prefix.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string, maxKeys int32, token *string) ([]string, *string, error) {
	const op = "ListObjectsV2"
	resource := bucket + "/" + prefix
	if err := c.wait(ctx); err != nil {
		return nil, nil, wrap("S3", op, resource, err)
	}

	in := &s3.ListObjectsV2Input{
		Bucket:            aws.String(bucket),
		MaxKeys:           aws.Int32(maxKeys),
		ContinuationToken: token,
	}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	out, err := c.s3.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, nil, wrap("S3", op, resource, err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}

	// S3 only sets NextContinuationToken on truncated listings, but be
	// strict about it.
	if !aws.ToBool(out.IsTruncated) {
		return keys, nil, nil
	}
	return keys, out.NextContinuationToken, nil
}

// wait blocks until the limiter admits the next call. A token that would
// only arrive after the deadline is reported as context.DeadlineExceeded.
func (c *Client) wait(ctx context.Context) error {
	err := c.limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
}
