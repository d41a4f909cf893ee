package aws

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/cenkalti/backoff/v4"
)

// throttlingCodes are the provider error codes worth retrying with backoff.
// Anything else fails immediately; the provisioner treats it as a hard error.
var throttlingCodes = map[string]struct{}{
	"Throttling":                             {},
	"ThrottlingException":                    {},
	"RequestLimitExceeded":                   {},
	"TooManyRequestsException":               {},
	"PriorRequestNotComplete":                {},
	"SlowDown":                               {},
	"ProvisionedThroughputExceededException": {},
}

type retrier struct {
	callTimeout     time.Duration
	maxRetryElapsed time.Duration
}

func newRetrier(callTimeout, maxRetryElapsed time.Duration) *retrier {
	return &retrier{callTimeout: callTimeout, maxRetryElapsed: maxRetryElapsed}
}

// do runs op with a per-call timeout, retrying throttling-class failures with
// exponential backoff until maxRetryElapsed is spent.
func (r *retrier) do(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = r.maxRetryElapsed

	return backoff.Retry(func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		defer cancel()

		err := op(callCtx)
		if err == nil {
			return nil
		}
		if isThrottling(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

func isThrottling(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		_, throttled := throttlingCodes[aerr.Code()]
		return throttled
	}
	return false
}

// IsNotFound reports whether the provider says the resource is already gone,
// which every delete path treats as success.
func IsNotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case "NoSuchBucket", "NotFound", "NoSuchKey",
		"NoSuchDistribution", "NoSuchOriginAccessControl",
		"ResourceNotFoundException":
		return true
	}
	return false
}
