package check

import (
	"context"

	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// AWSClient defines the provider operations used by monitoring checks.
// This interface is satisfied by the wrapper in internal/aws and allows
// checks to be unit-tested with mock implementations.
type AWSClient interface {
	// ListContainerInstances returns one page of container instance ARNs
	// for cluster and the token of the next page (nil on the last page).
	// Used by: ECS agent check.
	ListContainerInstances(ctx context.Context, cluster string, maxResults int32, token *string) ([]string, *string, error)

	// DescribeContainerInstances returns the container instances for up
	// to 100 ARNs, plus the ARNs the provider could not describe.
	// Used by: ECS agent check.
	DescribeContainerInstances(ctx context.Context, cluster string, arns []string) ([]ecstypes.ContainerInstance, []ecstypes.Failure, error)

	// ListObjects returns one page of object keys under prefix and the
	// token of the next page (nil on the last page).
	// Used by: S3 objects check.
	ListObjects(ctx context.Context, bucket, prefix string, maxKeys int32, token *string) ([]string, *string, error)
}
