// Package output builds Nagios-compliant plugin output: status line,
// optional long text, and performance data. Handles OK, WARNING,
// CRITICAL, and UNKNOWN formatting.
package output

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	nagios "github.com/atc0005/go-nagios"
)

// Prefix is the product tag that opens every status line.
const Prefix = "AWS"

// Status represents a Nagios check exit status.
//
// OK < Warning < Critical is a severity order. Unknown sits outside it and
// is reported whenever evaluation could not complete.
type Status int

const (
	OK       Status = 0
	Warning  Status = 1
	Critical Status = 2
	Unknown  Status = 3
)

// String returns the uppercase Nagios status label.
func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode returns the plugin exit code for this status. The values match
// the nagios.State*ExitCode constants; anything out of range is UNKNOWN.
func (s Status) ExitCode() int {
	if s < OK || s > Unknown {
		return int(Unknown)
	}
	return int(s)
}

// PerfDatum represents a single Nagios performance data metric.
type PerfDatum struct {
	Label string  // Metric name (lowercase, underscore-separated, no spaces)
	Value float64 // Metric value
	UOM   string  // Unit of measurement: %, B, s, c, or empty
	Warn  string  // Warning boundary
	Crit  string  // Critical boundary
	Min   string  // Minimum possible value
	Max   string  // Maximum possible value
}

// String formats the PerfDatum as a Nagios performance data entry.
//
// Format: label=value[UOM];[warn];[crit];[min];[max]
func (pd PerfDatum) String() string {
	return fmt.Sprintf("%s=%s%s;%s;%s;%s;%s",
		pd.Label,
		formatValue(pd.Value),
		pd.UOM,
		pd.Warn,
		pd.Crit,
		pd.Min,
		pd.Max,
	)
}

// Result represents the structured output of a check execution.
type Result struct {
	Status    Status      // Nagios status (OK, Warning, Critical, Unknown)
	CheckName string      // Uppercase check name: ECS_AGENT, S3_OBJECTS
	Summary   string      // One-line human-readable summary
	Details   string      // Optional multi-line long text
	PerfData  []PerfDatum // Performance data metrics
}

// StatusLine returns the first output line without performance data.
func (r *Result) StatusLine() string {
	return fmt.Sprintf("%s %s %s - %s", Prefix, r.CheckName, r.Status, r.Summary)
}

// String formats the Result as Nagios-compliant output.
//
// Format:
//
//	AWS <CHECK> <STATUS> - <summary> | <perfdata>
//	<optional long text>
func (r *Result) String() string {
	var b strings.Builder

	b.WriteString(r.StatusLine())

	if len(r.PerfData) > 0 {
		b.WriteString(" | ")
		b.WriteString(FormatPerfData(r.PerfData))
	}

	if r.Details != "" {
		b.WriteByte('\n')
		b.WriteString(r.Details)
	}

	return b.String()
}

// FormatPerfData formats a slice of PerfDatum as a space-separated string.
func FormatPerfData(data []PerfDatum) string {
	parts := make([]string, len(data))
	for i, pd := range data {
		parts[i] = pd.String()
	}
	return strings.Join(parts, " ")
}

// ApplyToPlugin populates a go-nagios Plugin from this Result.
// Plugin.ReturnCheckResults() then prints the output and exits with
// the mapped status code. Status and text are always applied; perfdata
// entries that go-nagios rejects are skipped and returned as an error.
func (r *Result) ApplyToPlugin(p *nagios.Plugin) error {
	p.ServiceOutput = r.StatusLine()
	p.ExitStatusCode = r.Status.ExitCode()

	if r.Details != "" {
		p.LongServiceOutput = r.Details
	}

	var errs []error
	for _, pd := range r.PerfData {
		err := p.AddPerfData(false, nagios.PerformanceData{
			Label:             pd.Label,
			Value:             formatValue(pd.Value),
			UnitOfMeasurement: pd.UOM,
			Warn:              pd.Warn,
			Crit:              pd.Crit,
			Min:               pd.Min,
			Max:               pd.Max,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("perfdata %q: %w", pd.Label, err))
		}
	}
	return errors.Join(errs...)
}

// formatValue formats a float64 for performance data output.
// Integers are formatted without decimals (e.g., "45"); non-integers
// use the shortest decimal representation (e.g., "34.2").
func formatValue(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
