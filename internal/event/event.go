// Package event defines the six GPU job lifecycle event kinds and the
// builder that turns caller input into fully defaulted, committable events.
package event

// Kind identifies a lifecycle event type. The set is closed: Build rejects
// anything outside the six recognized kinds.
type Kind string

const (
	KindJobSubmitted      Kind = "JobSubmitted"
	KindJobScheduled      Kind = "JobScheduled"
	KindJobStarted        Kind = "JobStarted"
	KindJobProgressUpdate Kind = "JobProgressUpdate"
	KindJobCompleted      Kind = "JobCompleted"
	KindJobFailed         Kind = "JobFailed"
)

// Valid reports whether k is one of the six recognized kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindJobSubmitted, KindJobScheduled, KindJobStarted,
		KindJobProgressUpdate, KindJobCompleted, KindJobFailed:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Event is the atomic unit of record. It marshals to the flat JSON object
// committed to the anchoring ledger: common fields plus exactly one variant
// payload inlined via its embedded pointer (nil variants are skipped by
// encoding/json). Once committed an event is immutable; ordering across a
// job's events is always re-derived from Timestamp at read time.
type Event struct {
	EventType Kind   `json:"eventType"`
	JobID     string `json:"jobId,omitempty"`
	JobNid    string `json:"jobNid,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Executor  string `json:"executor"`

	*Submitted
	*Scheduled
	*Started
	*Progress
	*Completed
	*Failed
}

// GPURequirement describes the GPUs a job asks for.
type GPURequirement struct {
	Type   string `json:"type"`
	Count  int    `json:"count"`
	Memory string `json:"memory"`
}

// NodeSpecs describes the node a job was scheduled onto.
type NodeSpecs struct {
	GPUModel string `json:"gpuModel"`
	CPUCores int    `json:"cpuCores"`
	RAMGB    int    `json:"ramGB"`
}

// GPUUtilization is a point-in-time GPU allocation snapshot.
type GPUUtilization struct {
	Allocated   int       `json:"allocated"`
	Temperature []float64 `json:"temperature"`
}

// Submitted is the JobSubmitted payload.
type Submitted struct {
	JobType           string          `json:"jobType"`
	SubmittedBy       string          `json:"submittedBy"`
	GPURequirement    *GPURequirement `json:"gpuRequirement"`
	EstimatedDuration int64           `json:"estimatedDuration"`
	DockerImage       string          `json:"dockerImage"`
	InputDataHash     string          `json:"inputDataHash"`
	Priority          string          `json:"priority"`
}

// Scheduled is the JobScheduled payload.
type Scheduled struct {
	ScheduledNode string     `json:"scheduledNode"`
	NodeSpecs     *NodeSpecs `json:"nodeSpecs"`
	ScheduledTime string     `json:"scheduledTime"`
	QueuePosition int        `json:"queuePosition"`
}

// Started is the JobStarted payload.
type Started struct {
	ExecutorNode    string          `json:"executorNode"`
	ActualStartTime string          `json:"actualStartTime"`
	ContainerID     string          `json:"containerId"`
	GPUUtilization  *GPUUtilization `json:"gpuUtilization"`
	ProcessID       int             `json:"processId"`
}

// Progress is the JobProgressUpdate payload.
type Progress struct {
	Progress          float64 `json:"progress"`
	CurrentEpoch      int     `json:"currentEpoch"`
	TotalEpochs       int     `json:"totalEpochs"`
	AvgGPUUtilization float64 `json:"avgGpuUtilization"`
	MemoryUsage       string  `json:"memoryUsage"`
}

// Completed is the JobCompleted payload.
type Completed struct {
	CompletionStatus string             `json:"completionStatus"`
	ActualEndTime    string             `json:"actualEndTime"`
	TotalDuration    int64              `json:"totalDuration"`
	GPUHoursUsed     float64            `json:"gpuHoursUsed"`
	ExitCode         int                `json:"exitCode"`
	OutputArtifacts  []string           `json:"outputArtifacts"`
	FinalMetrics     map[string]float64 `json:"finalMetrics"`
	C2PAVerified     bool               `json:"c2paVerified"`
}

// Failed is the JobFailed payload.
type Failed struct {
	FailureTime      string  `json:"failureTime"`
	ErrorCode        string  `json:"errorCode"`
	ErrorMessage     string  `json:"errorMessage"`
	StackTrace       string  `json:"stackTrace"`
	PartialOutputNid *string `json:"partialOutputNid"`
	RetryAttempt     int     `json:"retryAttempt"`
}
