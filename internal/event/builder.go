package event

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/akira-syou/computeproof/internal/digest"
)

// Completion status values carried by JobCompleted events.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Documented defaults applied when the caller omits a field. These are stable
// for the lifetime of a process; tests rely on them.
const (
	DefaultJobType           = "training"
	DefaultSubmittedBy       = "0xDefaultAddress"
	DefaultEstimatedDuration = 3600
	DefaultDockerImage       = "pytorch/pytorch:2.0-cuda11.7"
	DefaultPriority          = "medium"
	DefaultScheduledNode     = "gpu-node-01"
	DefaultQueuePosition     = 1
	DefaultExecutorNode      = "gpu-node-01"
	DefaultProgress          = 50
	DefaultCurrentEpoch      = 15
	DefaultTotalEpochs       = 30
	DefaultAvgGPUUtilization = 92.5
	DefaultMemoryUsage       = "32GB/40GB"
	DefaultTotalDuration     = 3600
	DefaultErrorCode         = "UNKNOWN_ERROR"
	DefaultErrorMessage      = "Job execution failed"
	DefaultStackTrace        = "No stack trace available"
	DefaultRetryAttempt      = 1

	processIDMin = 10000
	processIDMax = 99999
)

func defaultGPURequirement() *GPURequirement {
	return &GPURequirement{Type: "NVIDIA-A100", Count: 1, Memory: "40GB"}
}

func defaultNodeSpecs() *NodeSpecs {
	return &NodeSpecs{GPUModel: "NVIDIA A100 80GB", CPUCores: 32, RAMGB: 256}
}

func defaultGPUUtilization() *GPUUtilization {
	return &GPUUtilization{Allocated: 1, Temperature: []float64{65, 66}}
}

func defaultFinalMetrics() map[string]float64 {
	return map[string]float64{"accuracy": 0.945, "loss": 0.032}
}

// Input carries caller-supplied fields for any event kind. Zero values mean
// "not supplied" and trigger the documented default, matching the upstream
// wire behavior where falsy fields are replaced wholesale.
type Input struct {
	JobID   string
	AssetID string

	// Timestamp is honored for JobSubmitted and JobScheduled only. The
	// remaining kinds record externally observed occurrences and always
	// stamp the builder clock.
	Timestamp int64

	// JobSubmitted
	JobType           string
	SubmittedBy       string
	GPURequirement    *GPURequirement
	EstimatedDuration int64
	DockerImage       string
	InputDataHash     string
	Priority          string

	// JobScheduled
	ScheduledNode string
	NodeSpecs     *NodeSpecs
	ScheduledTime string
	QueuePosition int

	// JobStarted
	ExecutorNode   string
	ContainerID    string
	GPUUtilization *GPUUtilization
	ProcessID      int

	// JobProgressUpdate
	Progress          float64
	CurrentEpoch      int
	TotalEpochs       int
	AvgGPUUtilization float64
	MemoryUsage       string

	// JobCompleted
	CompletionStatus string
	TotalDuration    int64
	GPUHoursUsed     float64
	ExitCode         int
	OutputArtifacts  []string
	FinalMetrics     map[string]float64

	// JobFailed
	ErrorCode        string
	ErrorMessage     string
	StackTrace       string
	PartialOutputNid *string
	RetryAttempt     int
}

// Builder constructs events with defaults filled in. Both time and randomness
// are injectable so tests can build byte-identical events.
type Builder struct {
	now     func() time.Time
	randInt func(lo, hi int) int
}

// NewBuilder returns a builder backed by the system clock and math/rand.
func NewBuilder() *Builder {
	return NewBuilderWith(time.Now, func(lo, hi int) int {
		return lo + rand.Intn(hi-lo+1)
	})
}

// NewBuilderWith returns a builder with injected time and randomness sources.
func NewBuilderWith(now func() time.Time, randInt func(lo, hi int) int) *Builder {
	return &Builder{now: now, randInt: randInt}
}

// Build turns caller input into a fully defaulted event of the given kind.
// It fails only when kind is not one of the six recognized types; missing
// optional detail is never an error.
func (b *Builder) Build(kind Kind, in Input) (Event, error) {
	now := b.now()

	ev := Event{
		EventType: kind,
		Timestamp: now.Unix(),
	}

	switch kind {
	case KindJobSubmitted:
		ev.JobID = in.JobID
		if in.Timestamp != 0 {
			ev.Timestamp = in.Timestamp
		}
		ev.Submitted = b.buildSubmitted(in)
		ev.Executor = ev.Submitted.SubmittedBy

	case KindJobScheduled:
		ev.JobNid = in.AssetID
		if in.Timestamp != 0 {
			ev.Timestamp = in.Timestamp
		}
		ev.Scheduled = b.buildScheduled(in, now)
		ev.Executor = "scheduler"

	case KindJobStarted:
		ev.JobNid = in.AssetID
		ev.Started = b.buildStarted(in, now)
		ev.Executor = ev.Started.ExecutorNode

	case KindJobProgressUpdate:
		ev.JobNid = in.AssetID
		ev.Progress = buildProgress(in)
		ev.Executor = "monitoring-system"

	case KindJobCompleted:
		ev.JobNid = in.AssetID
		ev.Completed = buildCompleted(in, now)
		ev.Executor = orDefault(in.ExecutorNode, DefaultExecutorNode)

	case KindJobFailed:
		ev.JobNid = in.AssetID
		ev.Failed = buildFailed(in, now)
		ev.Executor = "error-handler"

	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return ev, nil
}

func (b *Builder) buildSubmitted(in Input) *Submitted {
	s := &Submitted{
		JobType:           orDefault(in.JobType, DefaultJobType),
		SubmittedBy:       orDefault(in.SubmittedBy, DefaultSubmittedBy),
		GPURequirement:    in.GPURequirement,
		EstimatedDuration: in.EstimatedDuration,
		DockerImage:       orDefault(in.DockerImage, DefaultDockerImage),
		InputDataHash:     in.InputDataHash,
		Priority:          orDefault(in.Priority, DefaultPriority),
	}
	if s.GPURequirement == nil {
		s.GPURequirement = defaultGPURequirement()
	}
	if s.EstimatedDuration == 0 {
		s.EstimatedDuration = DefaultEstimatedDuration
	}
	if s.InputDataHash == "" {
		// Content reference derived from the job id when none supplied.
		if h, err := digest.Hex(map[string]string{"job": in.JobID}); err == nil {
			s.InputDataHash = h
		}
	}
	return s
}

func (b *Builder) buildScheduled(in Input, now time.Time) *Scheduled {
	s := &Scheduled{
		ScheduledNode: orDefault(in.ScheduledNode, DefaultScheduledNode),
		NodeSpecs:     in.NodeSpecs,
		ScheduledTime: orDefault(in.ScheduledTime, now.UTC().Format(time.RFC3339)),
		QueuePosition: in.QueuePosition,
	}
	if s.NodeSpecs == nil {
		s.NodeSpecs = defaultNodeSpecs()
	}
	if s.QueuePosition == 0 {
		s.QueuePosition = DefaultQueuePosition
	}
	return s
}

func (b *Builder) buildStarted(in Input, now time.Time) *Started {
	s := &Started{
		ExecutorNode:    orDefault(in.ExecutorNode, DefaultExecutorNode),
		ActualStartTime: now.UTC().Format(time.RFC3339),
		ContainerID:     in.ContainerID,
		GPUUtilization:  in.GPUUtilization,
		ProcessID:       in.ProcessID,
	}
	if s.ContainerID == "" {
		if h, err := digest.Hex(map[string]string{"nid": in.AssetID}); err == nil {
			s.ContainerID = "docker://" + h[:12]
		}
	}
	if s.GPUUtilization == nil {
		s.GPUUtilization = defaultGPUUtilization()
	}
	if s.ProcessID == 0 {
		s.ProcessID = b.randInt(processIDMin, processIDMax)
	}
	return s
}

func buildProgress(in Input) *Progress {
	p := &Progress{
		Progress:          in.Progress,
		CurrentEpoch:      in.CurrentEpoch,
		TotalEpochs:       in.TotalEpochs,
		AvgGPUUtilization: in.AvgGPUUtilization,
		MemoryUsage:       orDefault(in.MemoryUsage, DefaultMemoryUsage),
	}
	if p.Progress == 0 {
		p.Progress = DefaultProgress
	}
	if p.CurrentEpoch == 0 {
		p.CurrentEpoch = DefaultCurrentEpoch
	}
	if p.TotalEpochs == 0 {
		p.TotalEpochs = DefaultTotalEpochs
	}
	if p.AvgGPUUtilization == 0 {
		p.AvgGPUUtilization = DefaultAvgGPUUtilization
	}
	return p
}

func buildCompleted(in Input, now time.Time) *Completed {
	c := &Completed{
		CompletionStatus: orDefault(in.CompletionStatus, StatusSuccess),
		ActualEndTime:    now.UTC().Format(time.RFC3339),
		TotalDuration:    in.TotalDuration,
		GPUHoursUsed:     in.GPUHoursUsed,
		ExitCode:         in.ExitCode,
		OutputArtifacts:  in.OutputArtifacts,
		FinalMetrics:     in.FinalMetrics,
		C2PAVerified:     true,
	}
	if c.TotalDuration == 0 {
		c.TotalDuration = DefaultTotalDuration
	}
	if c.GPUHoursUsed == 0 {
		c.GPUHoursUsed = float64(c.TotalDuration) / 3600
	}
	if c.OutputArtifacts == nil {
		c.OutputArtifacts = []string{}
	}
	if c.FinalMetrics == nil {
		c.FinalMetrics = defaultFinalMetrics()
	}
	return c
}

func buildFailed(in Input, now time.Time) *Failed {
	f := &Failed{
		FailureTime:      now.UTC().Format(time.RFC3339),
		ErrorCode:        orDefault(in.ErrorCode, DefaultErrorCode),
		ErrorMessage:     orDefault(in.ErrorMessage, DefaultErrorMessage),
		StackTrace:       orDefault(in.StackTrace, DefaultStackTrace),
		PartialOutputNid: in.PartialOutputNid,
		RetryAttempt:     in.RetryAttempt,
	}
	if f.RetryAttempt == 0 {
		f.RetryAttempt = DefaultRetryAttempt
	}
	return f
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
