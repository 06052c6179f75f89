package ucase

import (
	"fmt"
	"github.com/nextlevelmlops/iris-ml-classification/pkg/mlserving"
)

type FailureTier int

const (
	TierUpstream FailureTier = iota + 1
	TierUnexpected
)

type Failure struct {
	Tier       FailureTier
	Kind       mlserving.Kind
	StatusCode int
	Body       string
	Err        error
}

// Classify is the single classification step between the client errors and
// the user interface.
func Classify(err error) Failure {
	if err == nil {
		return Failure{}
	}

	e, ok := mlserving.AsError(err)
	if ok && e.Upstream() {
		return Failure{
			Tier:       TierUpstream,
			Kind:       e.Kind,
			StatusCode: e.StatusCode,
			Body:       e.Body,
			Err:        err,
		}
	}

	return Failure{Tier: TierUnexpected, Kind: mlserving.KindOf(err), Err: err}
}

func (f Failure) Message() string {
	switch f.Tier {
	case TierUpstream:
		return fmt.Sprintf("API Error: %d - %s", f.StatusCode, f.Body)
	case TierUnexpected:
		return fmt.Sprintf("Unexpected error: %v", f.Err)
	default:
		return ""
	}
}
