package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"

	"github.com/DLAKE-IO/check-aws/internal/output"
	"github.com/DLAKE-IO/check-aws/internal/pager"
	"github.com/DLAKE-IO/check-aws/internal/threshold"
)

// describeBatchSize is the DescribeContainerInstances per-call limit.
const describeBatchSize = 100

// AgentRecord is one inspected ECS container instance.
//
// ID is the EC2 instance id the instance is reported under; ARN is the
// container instance ARN it was listed by. Both are kept because the
// listing and the report use different identifier schemes.
type AgentRecord struct {
	ID        string
	ARN       string
	Connected bool
}

// agentConnected is the health predicate for container instances.
func agentConnected(r AgentRecord) bool { return r.Connected }

// ECSAgentCheck monitors ECS container agent connectivity across one or
// more clusters. Any disconnected agent produces CRITICAL; there is no
// WARNING tier.
type ECSAgentCheck struct {
	Clusters    []string
	Concurrency int
}

// NewECSAgentCheck creates an ECSAgentCheck. Cluster entries may be
// comma-separated; at least one non-blank name is required.
func NewECSAgentCheck(clusters []string, concurrency int) (*ECSAgentCheck, error) {
	names := NormalizeNames(clusters)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: cluster(s) required", ErrConfiguration)
	}
	return &ECSAgentCheck{Clusters: names, Concurrency: concurrency}, nil
}

// Name returns the check identifier used in the output prefix.
func (ch *ECSAgentCheck) Name() string { return "ECS_AGENT" }

// Run lists and describes the container instances of every cluster and
// reports the clusters with disconnected agents.
func (ch *ECSAgentCheck) Run(ctx context.Context, client AWSClient) (*output.Result, error) {
	agg := &Aggregator[AgentRecord]{
		Collect: func(ctx context.Context, cluster string) ([]AgentRecord, error) {
			return collectAgents(ctx, client, cluster)
		},
		Healthy:     agentConnected,
		Concurrency: ch.Concurrency,
	}

	groups, err := agg.Aggregate(ctx, ch.Clusters)
	if err != nil {
		return nil, err
	}

	unhealthy := groups.Unhealthy()
	disconnected := 0
	for _, g := range unhealthy {
		disconnected += len(g.Unhealthy)
	}

	perfData := []output.PerfDatum{
		{Label: "clusters", Value: float64(len(groups.All)), Min: "0"},
		{Label: "instances", Value: float64(groups.Records()), Min: "0"},
		{Label: "instances_disconnected", Value: float64(disconnected), Min: "0"},
	}

	status := threshold.EvaluatePresence(len(unhealthy))
	if status == output.OK {
		return &output.Result{
			Status:    status,
			CheckName: ch.Name(),
			Summary:   strings.Join(groups.Names(), ", "),
			PerfData:  perfData,
		}, nil
	}

	names := make([]string, len(unhealthy))
	var details strings.Builder
	for i, g := range unhealthy {
		names[i] = g.Name
		if i > 0 {
			details.WriteByte('\n')
		}
		ids := make([]string, len(g.Unhealthy))
		for j, r := range g.Unhealthy {
			ids[j] = r.ID
		}
		fmt.Fprintf(&details, "%s: %s", g.Name, strings.Join(ids, ", "))
	}
	fmt.Fprintf(&details, "\nclusters checked: %s", strings.Join(groups.Names(), ", "))

	return &output.Result{
		Status:    status,
		CheckName: ch.Name(),
		Summary:   strings.Join(names, ", "),
		Details:   details.String(),
		PerfData:  perfData,
	}, nil
}

// collectAgents enumerates every container instance ARN of cluster and
// inspects them.
func collectAgents(ctx context.Context, client AWSClient, cluster string) ([]AgentRecord, error) {
	p := pager.New(func(ctx context.Context, token *string) ([]string, *string, error) {
		return client.ListContainerInstances(ctx, cluster, pager.MaxPageSize, token)
	}, pager.WithName("ecs:"+cluster))

	arns, err := p.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(arns) == 0 {
		return nil, nil
	}
	return inspectAgents(ctx, client, cluster, arns)
}

// inspectAgents describes arns in batches and returns one record per
// described instance, in provider order. Instances the provider reports as
// failures are logged and skipped.
func inspectAgents(ctx context.Context, client AWSClient, cluster string, arns []string) ([]AgentRecord, error) {
	log := zerolog.Ctx(ctx)

	records := make([]AgentRecord, 0, len(arns))
	for start := 0; start < len(arns); start += describeBatchSize {
		end := min(start+describeBatchSize, len(arns))

		instances, failures, err := client.DescribeContainerInstances(ctx, cluster, arns[start:end])
		if err != nil {
			return nil, err
		}

		for _, f := range failures {
			log.Warn().
				Str("cluster", cluster).
				Str("arn", aws.ToString(f.Arn)).
				Str("reason", aws.ToString(f.Reason)).
				Msg("container instance could not be described")
		}

		for _, inst := range instances {
			arn := aws.ToString(inst.ContainerInstanceArn)
			id := aws.ToString(inst.Ec2InstanceId)
			if id == "" {
				id = arn
			}
			records = append(records, AgentRecord{
				ID:        id,
				ARN:       arn,
				Connected: inst.AgentConnected,
			})
		}
	}

	return records, nil
}
