// Package aws fetches image references from an AWS account.
//
// The fetcher answers one question per operation: which image IDs does this
// source currently reference. All operations are read-only, paginated, and
// hold no state between calls. Retries on throttling are delegated to the
// SDK retryer configured at construction.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// Fetcher issues read-only listing calls against EC2 and Auto Scaling.
type Fetcher struct {
	region string

	// AWS clients (interfaces for testability)
	ec2Client EC2API
	asgClient AutoScalingAPI
}

// Config holds fetcher construction options.
type Config struct {
	Region string
	// RetryMaxAttempts bounds SDK-level retries on throttling and transient
	// transport errors. Zero keeps the SDK default.
	RetryMaxAttempts int
}

// New creates a Fetcher with real AWS clients.
func New(ctx context.Context, cfg Config) (*Fetcher, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.RetryMaxAttempts > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(cfg.RetryMaxAttempts))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Fetcher{
		region:    cfg.Region,
		ec2Client: ec2.NewFromConfig(awsCfg),
		asgClient: autoscaling.NewFromConfig(awsCfg),
	}, nil
}

// NewWithClients creates a Fetcher with injected clients. Tests use this to
// substitute mocks.
func NewWithClients(region string, ec2Client EC2API, asgClient AutoScalingAPI) *Fetcher {
	return &Fetcher{
		region:    region,
		ec2Client: ec2Client,
		asgClient: asgClient,
	}
}

// Region returns the region the fetcher queries.
func (f *Fetcher) Region() string {
	return f.region
}

// QueryError wraps a remote listing failure with the source that issued it.
// The fetcher never recovers from one locally; callers decide whether to
// abort the run or skip the source.
type QueryError struct {
	Source string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Source, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func queryErr(source string, err error) *QueryError {
	return &QueryError{Source: source, Err: err}
}
