package ucase

import "go.uber.org/zap"

// Stage is a step of a single prediction request.
type Stage int

const (
	StageIdle Stage = iota
	StageTokenRequested
	StageTokenObtained
	StageInferenceRequested
	StageCompleted
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageTokenRequested:
		return "token_requested"
	case StageTokenObtained:
		return "token_obtained"
	case StageInferenceRequested:
		return "inference_requested"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// stageRun tracks the linear progression of one request. It is not shared
// between requests.
type stageRun struct {
	current  Stage
	lastGood Stage
	logger   *zap.Logger
}

func newStageRun(logger *zap.Logger) *stageRun {
	return &stageRun{current: StageIdle, lastGood: StageIdle, logger: logger}
}

func (r *stageRun) advance(next Stage) {
	if r.current == StageFailed || r.current == StageCompleted {
		return
	}

	r.logger.Debug("stage transition", zap.Stringer("from", r.current), zap.Stringer("to", next))
	r.current = next
	r.lastGood = next
}

func (r *stageRun) fail(err error) {
	r.logger.Debug("stage transition",
		zap.Stringer("from", r.current),
		zap.Stringer("to", StageFailed),
		zap.Error(err),
	)
	r.current = StageFailed
}
