package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	arg "github.com/alexflint/go-arg"
	nagios "github.com/atc0005/go-nagios"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	awsclient "github.com/DLAKE-IO/check-aws/internal/aws"
	"github.com/DLAKE-IO/check-aws/internal/check"
	"github.com/DLAKE-IO/check-aws/internal/output"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// ECSAgentCmd defines flags for the ecs-agent subcommand.
type ECSAgentCmd struct {
	Clusters []string `arg:"-c,--cluster,separate" help:"Cluster(s) to check, comma-separated or repeatable" validate:"required,min=1"`
}

// S3ObjectsCmd defines flags for the s3-objects subcommand.
type S3ObjectsCmd struct {
	Bucket   string `arg:"-b,--bucket" help:"The name of the S3 bucket" validate:"required"`
	Prefix   string `arg:"-p,--prefix" help:"The prefix (e.g. nested folders)"`
	Warning  string `arg:"-w,--warning" help:"Warn if count is greater than or equal to COUNT" validate:"required,number"`
	Critical string `arg:"-c,--critical" help:"Critical if count is greater than or equal to COUNT" validate:"required,number"`
}

// Args holds all CLI flags and subcommand pointers for check-aws.
// When a subcommand pointer is non-nil, that check was selected.
type Args struct {
	ECSAgent  *ECSAgentCmd  `arg:"subcommand:ecs-agent" help:"Check ECS container agent connectivity"`
	S3Objects *S3ObjectsCmd `arg:"subcommand:s3-objects" help:"Check the number of objects under an S3 prefix"`

	Region      string        `arg:"-r,--region,env:AWS_REGION" default:"us-east-1" help:"AWS region"`
	AccessKey   string        `arg:"-a,--access-key" help:"AWS access key (requires --secret-key)"`
	SecretKey   string        `arg:"-s,--secret-key" help:"AWS secret access key (requires --access-key)"`
	Profile     string        `arg:"--profile" help:"Named profile from the shared AWS config"`
	Timeout     time.Duration `arg:"-t,--timeout" default:"30s" help:"Overall timeout for AWS API calls" validate:"min=1s,max=120s"`
	Retries     int           `arg:"--retries" default:"3" help:"Maximum attempts per AWS API call" validate:"min=1,max=10"`
	MaxRPS      int           `arg:"--max-rps" default:"10" help:"Maximum AWS API requests per second" validate:"min=1,max=100"`
	Concurrency int           `arg:"--concurrency" default:"4" help:"Clusters evaluated in parallel" validate:"min=1,max=32"`
	Verbose     bool          `arg:"-v,--verbose" help:"Write debug logs to stderr"`
}

// Description returns the program description for go-arg help output.
func (Args) Description() string {
	return "Nagios-compatible monitoring plugin for AWS ECS agents and S3 object counts"
}

// Version returns the version string for --version.
func (Args) Version() string {
	return "check-aws " + version
}

func main() {
	plugin := nagios.NewPlugin()
	defer plugin.ReturnCheckResults()

	checkName := "UNKNOWN"
	defer recoverPanic(plugin, &checkName)

	var args Args
	parser, err := arg.NewParser(arg.Config{Program: "check-aws"}, &args)
	if err != nil {
		plugin.ServiceOutput = fmt.Sprintf("%s UNKNOWN - Internal error: %s", output.Prefix, err)
		plugin.ExitStatusCode = nagios.StateUNKNOWNExitCode
		return
	}

	if err := parser.Parse(os.Args[1:]); err != nil {
		switch {
		case errors.Is(err, arg.ErrHelp):
			// Nagios convention: --help exits UNKNOWN (3).
			parser.WriteHelp(os.Stdout)
			os.Exit(nagios.StateUNKNOWNExitCode)
		case errors.Is(err, arg.ErrVersion):
			fmt.Fprintln(os.Stdout, args.Version())
			os.Exit(nagios.StateUNKNOWNExitCode)
		default:
			plugin.ServiceOutput = fmt.Sprintf("%s UNKNOWN - %s", output.Prefix, err)
			plugin.ExitStatusCode = nagios.StateUNKNOWNExitCode
			return
		}
	}

	// Exactly one subcommand must be specified.
	if parser.Subcommand() == nil {
		plugin.ServiceOutput = noCheckMessage(newRegistry(&args))
		plugin.ExitStatusCode = nagios.StateUNKNOWNExitCode
		return
	}

	checkName = resolveCheckName(&args)

	if err := validate(&args); err != nil {
		unknown(checkName, err).ApplyToPlugin(plugin)
		return
	}

	logger := newLogger(args.Verbose)

	ctx, cancel := context.WithTimeout(context.Background(), args.Timeout)
	defer cancel()
	ctx = logger.WithContext(ctx)

	// Instantiate the check from CLI flags before touching the network.
	chk, err := newRegistry(&args).Build(parser.SubcommandNames()[0])
	if err != nil {
		unknown(checkName, err).ApplyToPlugin(plugin)
		return
	}

	client, err := awsclient.NewClient(ctx, awsclient.Config{
		Region:    args.Region,
		AccessKey: args.AccessKey,
		SecretKey: args.SecretKey,
		Profile:   args.Profile,
		Retries:   args.Retries,
		MaxRPS:    args.MaxRPS,
	})
	if err != nil {
		report(plugin, logger, checkName, output.Err(err), args.Timeout)
		return
	}

	started := time.Now()
	outcome := output.FromRun(chk.Run(ctx, client))
	logger.Debug().
		Str("check", chk.Name()).
		Dur("elapsed", time.Since(started)).
		Bool("failed", outcome.Failed()).
		Msg("check finished")

	report(plugin, logger, chk.Name(), outcome, args.Timeout)
}

// newRegistry registers a factory per subcommand. Factories capture the
// parsed flags and only run for the selected subcommand.
func newRegistry(args *Args) *check.Registry {
	r := check.NewRegistry()
	r.Register("ecs-agent", func() (check.Check, error) {
		return check.NewECSAgentCheck(args.ECSAgent.Clusters, args.Concurrency)
	})
	r.Register("s3-objects", func() (check.Check, error) {
		s := args.S3Objects
		return check.NewS3ObjectsCheck(s.Bucket, s.Prefix, s.Warning, s.Critical)
	})
	return r
}

// noCheckMessage is the status line printed when no subcommand was given.
func noCheckMessage(r *check.Registry) string {
	return fmt.Sprintf("%s UNKNOWN - No check specified. Usage: check-aws <%s> [flags]",
		output.Prefix, strings.Join(r.Names(), "|"))
}

// resolveCheckName returns the uppercase check name for the selected subcommand.
func resolveCheckName(args *Args) string {
	switch {
	case args.ECSAgent != nil:
		return "ECS_AGENT"
	case args.S3Objects != nil:
		return "S3_OBJECTS"
	default:
		return "UNKNOWN"
	}
}

// report is the single point where a check outcome, successful or not,
// becomes plugin output.
func report(plugin *nagios.Plugin, logger zerolog.Logger, checkName string, outcome output.Outcome, timeout time.Duration) {
	if outcome.Failed() {
		logger.Error().
			Err(outcome.Err).
			Str("check", checkName).
			Str("code", awsclient.ErrorCode(outcome.Err)).
			Msg("check could not be evaluated")
	}
	if err := outcome.Resolve(checkName, explainer(timeout)).ApplyToPlugin(plugin); err != nil {
		logger.Debug().Err(err).Str("check", checkName).Msg("perfdata dropped")
	}
}

// explainer returns the summary function used for failed outcomes.
//
// Every failure maps to UNKNOWN; the summary only varies by cause:
//   - deadline exceeded → "AWS API timeout after <timeout>"
//   - provider API errors → "<Service> <Operation> (<resource>) failed: <code>: <message>"
//   - anything else → the error text
func explainer(timeout time.Duration) func(error) string {
	return func(err error) string {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Sprintf("AWS API timeout after %s", timeout)
		}
		return awsclient.Explain(err)
	}
}

// unknown builds an UNKNOWN result for errors raised before the check ran.
func unknown(checkName string, err error) *output.Result {
	return &output.Result{
		Status:    output.Unknown,
		CheckName: checkName,
		Summary:   err.Error(),
	}
}

// recoverPanic turns a panic into an UNKNOWN result carrying the stack.
// It must be deferred after plugin.ReturnCheckResults so it runs first.
func recoverPanic(plugin *nagios.Plugin, checkName *string) {
	r := recover()
	if r == nil {
		return
	}
	output.Err(fmt.Errorf("panic: %v\n%s", r, debug.Stack())).
		Resolve(*checkName, nil).
		ApplyToPlugin(plugin)
}

// newLogger returns a stderr logger; stdout is reserved for plugin output.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// validate checks global flags, then the selected subcommand's flags.
// Validation stops at the first failure; errors are not accumulated.
func validate(args *Args) error {
	// Static credentials come in pairs.
	if (args.AccessKey == "") != (args.SecretKey == "") {
		missing := "--secret-key"
		if args.AccessKey == "" {
			missing = "--access-key"
		}
		return fmt.Errorf("Incomplete static credentials: missing %s", missing)
	}

	v := newValidator()
	if err := v.Struct(args); err != nil {
		return describeValidation(err)
	}

	switch {
	case args.ECSAgent != nil:
		if err := v.Struct(args.ECSAgent); err != nil {
			return describeValidation(err)
		}
		if len(check.NormalizeNames(args.ECSAgent.Clusters)) == 0 {
			return fmt.Errorf("cluster(s) required")
		}
	case args.S3Objects != nil:
		if err := v.Struct(args.S3Objects); err != nil {
			return describeValidation(err)
		}
	}
	return nil
}

// newValidator returns a validator that names fields by their long flag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return flagName(f.Tag.Get("arg"), f.Name)
	})
	return v
}

// flagName extracts "--name" from a go-arg tag such as "-c,--cluster,separate".
func flagName(tag, fallback string) string {
	for _, part := range strings.Split(tag, ",") {
		if strings.HasPrefix(part, "--") {
			return part
		}
	}
	return fallback
}

// describeValidation converts the first validator failure into a
// one-line, flag-oriented message.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	flag := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("Missing required flag %s", flag)
	case "number":
		return fmt.Errorf("Invalid %s %q: must be a non-negative integer", flag, fmt.Sprint(fe.Value()))
	case "min":
		return fmt.Errorf("Invalid %s %q: must be at least %s", flag, fmt.Sprint(fe.Value()), fe.Param())
	case "max":
		return fmt.Errorf("Invalid %s %q: must be at most %s", flag, fmt.Sprint(fe.Value()), fe.Param())
	default:
		return fmt.Errorf("Invalid %s %q", flag, fmt.Sprint(fe.Value()))
	}
}
