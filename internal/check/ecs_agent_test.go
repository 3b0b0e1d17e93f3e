package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/DLAKE-IO/check-aws/internal/output"
)

func TestNewECSAgentCheck(t *testing.T) {
	tests := []struct {
		name     string
		clusters []string
		want     []string
		wantErr  bool
	}{
		{name: "single", clusters: []string{"default"}, want: []string{"default"}},
		{name: "comma separated", clusters: []string{"a,b"}, want: []string{"a", "b"}},
		{name: "repeated flag and duplicates", clusters: []string{"a", "b, a"}, want: []string{"a", "b"}},
		{name: "nil", clusters: nil, wantErr: true},
		{name: "blank entries only", clusters: []string{" ", ","}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := NewECSAgentCheck(tt.clusters, 0)
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("expected configuration error, got %v", err)
				}
				if !strings.Contains(err.Error(), "cluster(s) required") {
					t.Errorf("error %q should mention the missing clusters", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ch.Name() != "ECS_AGENT" {
				t.Errorf("Name() = %q, want %q", ch.Name(), "ECS_AGENT")
			}
			if strings.Join(ch.Clusters, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Clusters = %v, want %v", ch.Clusters, tt.want)
			}
		})
	}
}

func TestECSAgentCheckRun(t *testing.T) {
	tests := []struct {
		name        string
		clusters    []string
		setup       func(m *mockAWSClient)
		wantStatus  output.Status
		wantSummary string
		wantDetails string
		absent      []string
	}{
		{
			name:     "CRITICAL - one disconnected agent",
			clusters: []string{"default"},
			setup: func(m *mockAWSClient) {
				m.addInstance("default", "i-1", true)
				m.addInstance("default", "i-2", false)
			},
			wantStatus:  output.Critical,
			wantSummary: "default",
			wantDetails: "default: i-2\nclusters checked: default",
			absent:      []string{"i-1"},
		},
		{
			name:     "OK - all agents connected",
			clusters: []string{"default"},
			setup: func(m *mockAWSClient) {
				m.addInstance("default", "i-1", true)
				m.addInstance("default", "i-2", true)
			},
			wantStatus:  output.OK,
			wantSummary: "default",
		},
		{
			name:     "CRITICAL - only the unhealthy cluster is named",
			clusters: []string{"a", "b"},
			setup: func(m *mockAWSClient) {
				m.addInstance("a", "i-1", true)
				m.addInstance("b", "i-2", false)
				m.addInstance("b", "i-3", true)
			},
			wantStatus:  output.Critical,
			wantSummary: "b",
			wantDetails: "b: i-2\nclusters checked: a, b",
			absent:      []string{"i-1", "i-3"},
		},
		{
			name:     "CRITICAL - several clusters keep request order",
			clusters: []string{"c", "a", "b"},
			setup: func(m *mockAWSClient) {
				m.addInstance("a", "i-1", false)
				m.addInstance("b", "i-2", true)
				m.addInstance("c", "i-3", false)
				m.addInstance("c", "i-4", false)
			},
			wantStatus:  output.Critical,
			wantSummary: "c, a",
			wantDetails: "c: i-3, i-4\na: i-1\nclusters checked: c, a, b",
		},
		{
			name:     "OK - clusters listed in request order",
			clusters: []string{"b", "a"},
			setup: func(m *mockAWSClient) {
				m.addInstance("a", "i-1", true)
				m.addInstance("b", "i-2", true)
			},
			wantStatus:  output.OK,
			wantSummary: "b, a",
		},
		{
			name:        "OK - empty cluster",
			clusters:    []string{"empty"},
			setup:       func(*mockAWSClient) {},
			wantStatus:  output.OK,
			wantSummary: "empty",
		},
		{
			name:     "OK - undescribable instance is skipped",
			clusters: []string{"default"},
			setup: func(m *mockAWSClient) {
				m.addInstance("default", "i-1", true)
				m.addInstance("default", "i-2", false)
				m.failing[arnOf(m, "default", 1)] = true
			},
			wantStatus:  output.OK,
			wantSummary: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockAWSClient()
			tt.setup(m)

			ch, err := NewECSAgentCheck(tt.clusters, 2)
			if err != nil {
				t.Fatalf("NewECSAgentCheck: %v", err)
			}
			result, err := ch.Run(context.Background(), m)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", result.Status, tt.wantStatus)
			}
			if result.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", result.Summary, tt.wantSummary)
			}
			if result.Details != tt.wantDetails {
				t.Errorf("Details = %q, want %q", result.Details, tt.wantDetails)
			}
			for _, s := range tt.absent {
				if strings.Contains(result.String(), s) {
					t.Errorf("output %q should not mention %q", result.String(), s)
				}
			}
		})
	}
}

func TestECSAgentCheckPerfData(t *testing.T) {
	m := newMockAWSClient()
	m.addInstance("a", "i-1", true)
	m.addInstance("b", "i-2", false)
	m.addInstance("b", "i-3", false)

	ch, _ := NewECSAgentCheck([]string{"a", "b"}, 0)
	result, err := ch.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "clusters=2;;;0; instances=3;;;0; instances_disconnected=2;;;0;"
	if got := output.FormatPerfData(result.PerfData); got != want {
		t.Errorf("perfdata = %q, want %q", got, want)
	}
}

func TestECSAgentCheckBatchesLargeClusters(t *testing.T) {
	m := newMockAWSClient()
	for i := range 250 {
		m.addInstance("big", fmt.Sprintf("i-%03d", i), i != 249)
	}

	ch, _ := NewECSAgentCheck([]string{"big"}, 0)
	result, err := ch.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.listCalls != 3 {
		t.Errorf("list calls = %d, want 3", m.listCalls)
	}
	if fmt.Sprint(m.describeSizes) != "[100 100 50]" {
		t.Errorf("describe batch sizes = %v, want [100 100 50]", m.describeSizes)
	}
	if result.Status != output.Critical {
		t.Errorf("Status = %v, want %v", result.Status, output.Critical)
	}
	if result.Details != "big: i-249\nclusters checked: big" {
		t.Errorf("Details = %q, want %q", result.Details, "big: i-249\nclusters checked: big")
	}
}

func TestECSAgentCheckSmallPages(t *testing.T) {
	m := newMockAWSClient()
	m.listPageSize = 1
	m.addInstance("default", "i-1", true)
	m.addInstance("default", "i-2", false)
	m.addInstance("default", "i-3", true)

	ch, _ := NewECSAgentCheck([]string{"default"}, 0)
	result, err := ch.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.listCalls != 3 {
		t.Errorf("list calls = %d, want 3", m.listCalls)
	}
	if fmt.Sprint(m.describeSizes) != "[3]" {
		t.Errorf("describe batch sizes = %v, want [3]", m.describeSizes)
	}
	if result.Details != "default: i-2\nclusters checked: default" {
		t.Errorf("Details = %q, want %q", result.Details, "default: i-2\nclusters checked: default")
	}
}

func TestECSAgentCheckFallsBackToARN(t *testing.T) {
	m := newMockAWSClient()
	m.addInstance("default", "", false)
	arn := arnOf(m, "default", 0)

	ch, _ := NewECSAgentCheck([]string{"default"}, 0)
	result, err := ch.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Details != "default: "+arn+"\nclusters checked: default" {
		t.Errorf("Details = %q, want the ARN %q", result.Details, arn)
	}
}

func TestECSAgentCheckProviderErrors(t *testing.T) {
	denied := errors.New("AccessDeniedException: not authorized")

	tests := []struct {
		name      string
		setup     func(m *mockAWSClient)
		wantInErr string
	}{
		{
			name: "list fails",
			setup: func(m *mockAWSClient) {
				m.addInstance("a", "i-1", true)
				m.listErr["b"] = denied
			},
			wantInErr: "b: ",
		},
		{
			name: "describe fails",
			setup: func(m *mockAWSClient) {
				m.addInstance("b", "i-1", true)
				m.describeErr["b"] = denied
			},
			wantInErr: "b: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockAWSClient()
			tt.setup(m)

			ch, _ := NewECSAgentCheck([]string{"a", "b"}, 0)
			result, err := ch.Run(context.Background(), m)

			if err == nil {
				t.Fatalf("expected error, got result %v", result)
			}
			if result != nil {
				t.Errorf("expected nil result on error, got %v", result)
			}
			if !errors.Is(err, denied) {
				t.Errorf("error %v should wrap the provider error", err)
			}
			if !strings.Contains(err.Error(), tt.wantInErr) {
				t.Errorf("error %q should name the cluster", err)
			}
		})
	}
}

// arnOf returns the ARN of the i-th instance registered for cluster.
func arnOf(m *mockAWSClient, cluster string, i int) string {
	return *m.instances[cluster][i].ContainerInstanceArn
}

func TestECSAgentCheckCriticalListsEveryCluster(t *testing.T) {
	m := newMockAWSClient()
	m.addInstance("a", "i-1", true)
	m.addInstance("b", "i-2", false)

	ch, _ := NewECSAgentCheck([]string{"a", "b"}, 0)
	result, err := ch.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != output.Critical {
		t.Fatalf("Status = %v, want %v", result.Status, output.Critical)
	}
	if strings.Contains(result.Summary, "a") {
		t.Errorf("Summary %q should only name the unhealthy cluster", result.Summary)
	}
	lines := strings.Split(result.Details, "\n")
	if last := lines[len(lines)-1]; last != "clusters checked: a, b" {
		t.Errorf("last details line = %q, want every cluster checked", last)
	}
	for _, line := range lines[:len(lines)-1] {
		if strings.HasPrefix(line, "a:") {
			t.Errorf("healthy cluster a should not get a member line: %q", line)
		}
	}
}

