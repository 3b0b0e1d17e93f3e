package check

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// mockAWSClient implements AWSClient over in-memory clusters and buckets.
// Listings are paginated with numeric offset tokens.
type mockAWSClient struct {
	mu sync.Mutex

	// instances per cluster, in listing order.
	instances map[string][]ecstypes.ContainerInstance
	// ARNs the describe call reports as failures.
	failing map[string]bool
	// keys per bucket, in listing order.
	objects map[string][]string

	listErr     map[string]error
	describeErr map[string]error
	objectsErr  error

	// listPageSize overrides the caller's page size when positive.
	listPageSize int

	listCalls     int
	describeSizes []int
	objectCalls   int
}

func newMockAWSClient() *mockAWSClient {
	return &mockAWSClient{
		instances:   make(map[string][]ecstypes.ContainerInstance),
		failing:     make(map[string]bool),
		objects:     make(map[string][]string),
		listErr:     make(map[string]error),
		describeErr: make(map[string]error),
	}
}

func (m *mockAWSClient) addInstance(cluster, id string, connected bool) {
	arn := fmt.Sprintf("arn:aws:ecs:us-east-1:123456789012:container-instance/%s/%s", cluster, id)
	inst := ecstypes.ContainerInstance{
		ContainerInstanceArn: aws.String(arn),
		AgentConnected:       connected,
	}
	if id != "" {
		inst.Ec2InstanceId = aws.String(id)
	}
	m.instances[cluster] = append(m.instances[cluster], inst)
}

func (m *mockAWSClient) page(items []string, size int32, token *string) ([]string, *string, error) {
	if m.listPageSize > 0 {
		size = int32(m.listPageSize)
	}
	start := 0
	if token != nil {
		var err error
		if start, err = strconv.Atoi(*token); err != nil {
			return nil, nil, fmt.Errorf("bad token %q", *token)
		}
	}
	end := min(start+int(size), len(items))
	var next *string
	if end < len(items) {
		next = aws.String(strconv.Itoa(end))
	}
	return items[start:end], next, nil
}

func (m *mockAWSClient) ListContainerInstances(_ context.Context, cluster string, maxResults int32, token *string) ([]string, *string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	if err := m.listErr[cluster]; err != nil {
		return nil, nil, err
	}
	arns := make([]string, 0, len(m.instances[cluster]))
	for _, inst := range m.instances[cluster] {
		arns = append(arns, aws.ToString(inst.ContainerInstanceArn))
	}
	return m.page(arns, maxResults, token)
}

func (m *mockAWSClient) DescribeContainerInstances(_ context.Context, cluster string, arns []string) ([]ecstypes.ContainerInstance, []ecstypes.Failure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.describeSizes = append(m.describeSizes, len(arns))

	if err := m.describeErr[cluster]; err != nil {
		return nil, nil, err
	}
	if len(arns) > describeBatchSize {
		return nil, nil, fmt.Errorf("too many arns: %d", len(arns))
	}

	byARN := make(map[string]ecstypes.ContainerInstance, len(m.instances[cluster]))
	for _, inst := range m.instances[cluster] {
		byARN[aws.ToString(inst.ContainerInstanceArn)] = inst
	}

	var out []ecstypes.ContainerInstance
	var failures []ecstypes.Failure
	for _, arn := range arns {
		inst, ok := byARN[arn]
		if !ok || m.failing[arn] {
			failures = append(failures, ecstypes.Failure{Arn: aws.String(arn), Reason: aws.String("MISSING")})
			continue
		}
		out = append(out, inst)
	}
	return out, failures, nil
}

func (m *mockAWSClient) ListObjects(_ context.Context, bucket, prefix string, maxKeys int32, token *string) ([]string, *string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objectCalls++

	if m.objectsErr != nil {
		return nil, nil, m.objectsErr
	}
	var keys []string
	for _, k := range m.objects[bucket] {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return m.page(keys, maxKeys, token)
}
