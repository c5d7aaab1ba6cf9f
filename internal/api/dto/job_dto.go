package dto

import (
	"github.com/akira-syou/computeproof/internal/event"
)

// TransitionRequest is the JSON body accepted by the submit and transition
// endpoints. Every field is optional; omitted fields fall back to the
// documented event defaults.
type TransitionRequest struct {
	JobID     string `json:"jobId"`
	Timestamp int64  `json:"timestamp"`

	JobType           string                `json:"jobType"`
	SubmittedBy       string                `json:"submittedBy"`
	GPURequirement    *event.GPURequirement `json:"gpuRequirement"`
	EstimatedDuration int64                 `json:"estimatedDuration"`
	DockerImage       string                `json:"dockerImage"`
	InputDataHash     string                `json:"inputDataHash"`
	Priority          string                `json:"priority"`

	ScheduledNode string           `json:"scheduledNode"`
	NodeSpecs     *event.NodeSpecs `json:"nodeSpecs"`
	ScheduledTime string           `json:"scheduledTime"`
	QueuePosition int              `json:"queuePosition"`

	ExecutorNode   string                `json:"executorNode"`
	ContainerID    string                `json:"containerId"`
	GPUUtilization *event.GPUUtilization `json:"gpuUtilization"`
	ProcessID      int                   `json:"processId"`

	Progress          float64 `json:"progress"`
	CurrentEpoch      int     `json:"currentEpoch"`
	TotalEpochs       int     `json:"totalEpochs"`
	AvgGPUUtilization float64 `json:"avgGpuUtilization"`
	MemoryUsage       string  `json:"memoryUsage"`

	CompletionStatus string             `json:"completionStatus"`
	TotalDuration    int64              `json:"totalDuration"`
	GPUHoursUsed     float64            `json:"gpuHoursUsed"`
	ExitCode         int                `json:"exitCode"`
	OutputArtifacts  []string           `json:"outputArtifacts"`
	FinalMetrics     map[string]float64 `json:"finalMetrics"`

	ErrorCode        string  `json:"errorCode"`
	ErrorMessage     string  `json:"errorMessage"`
	StackTrace       string  `json:"stackTrace"`
	PartialOutputNid *string `json:"partialOutputNid"`
	RetryAttempt     int     `json:"retryAttempt"`
}

// ToInput maps the request body onto builder input.
func (r *TransitionRequest) ToInput() event.Input {
	return event.Input{
		JobID:             r.JobID,
		Timestamp:         r.Timestamp,
		JobType:           r.JobType,
		SubmittedBy:       r.SubmittedBy,
		GPURequirement:    r.GPURequirement,
		EstimatedDuration: r.EstimatedDuration,
		DockerImage:       r.DockerImage,
		InputDataHash:     r.InputDataHash,
		Priority:          r.Priority,
		ScheduledNode:     r.ScheduledNode,
		NodeSpecs:         r.NodeSpecs,
		ScheduledTime:     r.ScheduledTime,
		QueuePosition:     r.QueuePosition,
		ExecutorNode:      r.ExecutorNode,
		ContainerID:       r.ContainerID,
		GPUUtilization:    r.GPUUtilization,
		ProcessID:         r.ProcessID,
		Progress:          r.Progress,
		CurrentEpoch:      r.CurrentEpoch,
		TotalEpochs:       r.TotalEpochs,
		AvgGPUUtilization: r.AvgGPUUtilization,
		MemoryUsage:       r.MemoryUsage,
		CompletionStatus:  r.CompletionStatus,
		TotalDuration:     r.TotalDuration,
		GPUHoursUsed:      r.GPUHoursUsed,
		ExitCode:          r.ExitCode,
		OutputArtifacts:   r.OutputArtifacts,
		FinalMetrics:      r.FinalMetrics,
		ErrorCode:         r.ErrorCode,
		ErrorMessage:      r.ErrorMessage,
		StackTrace:        r.StackTrace,
		PartialOutputNid:  r.PartialOutputNid,
		RetryAttempt:      r.RetryAttempt,
	}
}

// EnqueueTransitionRequest is the body for the async transition endpoint.
type EnqueueTransitionRequest struct {
	EventType string            `json:"eventType" binding:"required"`
	Input     TransitionRequest `json:"input"`
}

// TransitionMessage is the wire format published to RabbitMQ for the relay
// service.
type TransitionMessage struct {
	AssetID   string            `json:"assetId"`
	EventType string            `json:"eventType"`
	Input     TransitionRequest `json:"input"`
}

// SubmitJobResponse is returned by the submit endpoint.
type SubmitJobResponse struct {
	Success     bool   `json:"success"`
	JobNid      string `json:"jobNid"`
	JobID       string `json:"jobId"`
	TxHash      string `json:"txHash"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	Message     string `json:"message"`
}

// TransitionResponse is returned by the synchronous transition endpoints.
type TransitionResponse struct {
	Success     bool   `json:"success"`
	TxHash      string `json:"txHash"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	Message     string `json:"message"`
}

// JobSummary is a dashboard listing entry.
type JobSummary struct {
	JobNid      string `json:"jobNid"`
	JobID       string `json:"jobId"`
	JobType     string `json:"jobType"`
	Status      string `json:"status"`
	SubmittedBy string `json:"submittedBy"`
}

// ListJobsResponse is returned by the dashboard listing endpoint.
type ListJobsResponse struct {
	Success bool         `json:"success"`
	Jobs    []JobSummary `json:"jobs"`
	Total   int          `json:"total"`
}
