package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedBuilder(unix int64) *Builder {
	return NewBuilderWith(
		func() time.Time { return time.Unix(unix, 0).UTC() },
		func(lo, hi int) int { return lo },
	)
}

func TestBuild_UnknownKind(t *testing.T) {
	b := fixedBuilder(1700000000)

	_, err := b.Build(Kind("JobParked"), Input{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Contains(t, err.Error(), "JobParked")
}

func TestBuild_Deterministic(t *testing.T) {
	b := fixedBuilder(1700000000)
	in := Input{JobID: "job-1", AssetID: "nid-1"}

	for _, kind := range []Kind{
		KindJobSubmitted, KindJobScheduled, KindJobStarted,
		KindJobProgressUpdate, KindJobCompleted, KindJobFailed,
	} {
		t.Run(string(kind), func(t *testing.T) {
			first, err := b.Build(kind, in)
			require.NoError(t, err)
			second, err := b.Build(kind, in)
			require.NoError(t, err)

			firstJSON, err := json.Marshal(first)
			require.NoError(t, err)
			secondJSON, err := json.Marshal(second)
			require.NoError(t, err)

			assert.Equal(t, string(firstJSON), string(secondJSON))
		})
	}
}

func TestBuild_SubmittedDefaults(t *testing.T) {
	b := fixedBuilder(1700000000)

	ev, err := b.Build(KindJobSubmitted, Input{JobID: "job-1"})
	require.NoError(t, err)

	assert.Equal(t, KindJobSubmitted, ev.EventType)
	assert.Equal(t, "job-1", ev.JobID)
	assert.Equal(t, int64(1700000000), ev.Timestamp)
	assert.Equal(t, DefaultSubmittedBy, ev.Executor)

	require.NotNil(t, ev.Submitted)
	assert.Equal(t, DefaultJobType, ev.Submitted.JobType)
	assert.Equal(t, DefaultSubmittedBy, ev.Submitted.SubmittedBy)
	assert.Equal(t, int64(DefaultEstimatedDuration), ev.Submitted.EstimatedDuration)
	assert.Equal(t, DefaultDockerImage, ev.Submitted.DockerImage)
	assert.Equal(t, DefaultPriority, ev.Submitted.Priority)
	assert.Len(t, ev.Submitted.InputDataHash, 64)

	require.NotNil(t, ev.Submitted.GPURequirement)
	assert.Equal(t, "NVIDIA-A100", ev.Submitted.GPURequirement.Type)
	assert.Equal(t, 1, ev.Submitted.GPURequirement.Count)
	assert.Equal(t, "40GB", ev.Submitted.GPURequirement.Memory)
}

func TestBuild_SubmittedCallerFields(t *testing.T) {
	b := fixedBuilder(1700000000)

	ev, err := b.Build(KindJobSubmitted, Input{
		JobID:       "job-π",
		JobType:     "inference",
		SubmittedBy: "0xAlice",
		Timestamp:   1234,
		GPURequirement: &GPURequirement{
			Type: "NVIDIA-H100", Count: 8, Memory: "80GB",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1234), ev.Timestamp)
	assert.Equal(t, "inference", ev.Submitted.JobType)
	assert.Equal(t, "0xAlice", ev.Submitted.SubmittedBy)
	assert.Equal(t, "0xAlice", ev.Executor)
	assert.Equal(t, 8, ev.Submitted.GPURequirement.Count)
}

func TestBuild_ScheduledDefaults(t *testing.T) {
	b := fixedBuilder(1700000000)

	ev, err := b.Build(KindJobScheduled, Input{AssetID: "nid-1"})
	require.NoError(t, err)

	assert.Equal(t, "nid-1", ev.JobNid)
	assert.Equal(t, "scheduler", ev.Executor)
	require.NotNil(t, ev.Scheduled)
	assert.Equal(t, DefaultScheduledNode, ev.Scheduled.ScheduledNode)
	assert.Equal(t, DefaultQueuePosition, ev.Scheduled.QueuePosition)
	assert.Equal(t, "2023-11-14T22:13:20Z", ev.Scheduled.ScheduledTime)
	require.NotNil(t, ev.Scheduled.NodeSpecs)
	assert.Equal(t, 32, ev.Scheduled.NodeSpecs.CPUCores)
}

func TestBuild_StartedDefaults(t *testing.T) {
	b := fixedBuilder(1700000000)

	ev, err := b.Build(KindJobStarted, Input{AssetID: "nid-1"})
	require.NoError(t, err)

	require.NotNil(t, ev.Started)
	assert.Equal(t, DefaultExecutorNode, ev.Started.ExecutorNode)
	assert.Equal(t, DefaultExecutorNode, ev.Executor)
	assert.True(t, len(ev.Started.ContainerID) > len("docker://"))
	assert.Contains(t, ev.Started.ContainerID, "docker://")
	// Injected randomness pins the default pid to the range floor.
	assert.Equal(t, 10000, ev.Started.ProcessID)
	require.NotNil(t, ev.Started.GPUUtilization)
	assert.Equal(t, 1, ev.Started.GPUUtilization.Allocated)
	assert.Equal(t, []float64{65, 66}, ev.Started.GPUUtilization.Temperature)
}

func TestBuild_StartedStampsServerTime(t *testing.T) {
	b := fixedBuilder(1700000000)

	// Caller-supplied timestamps are ignored for externally observed kinds.
	ev, err := b.Build(KindJobStarted, Input{AssetID: "nid-1", Timestamp: 42})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ev.Timestamp)
}

func TestBuild_ProgressDefaults(t *testing.T) {
	b := fixedBuilder(1700000000)

	ev, err := b.Build(KindJobProgressUpdate, Input{AssetID: "nid-1"})
	require.NoError(t, err)

	assert.Equal(t, "monitoring-system", ev.Executor)
	require.NotNil(t, ev.Progress)
	assert.Equal(t, float64(DefaultProgress), ev.Progress.Progress)
	assert.Equal(t, DefaultCurrentEpoch, ev.Progress.CurrentEpoch)
	assert.Equal(t, DefaultTotalEpochs, ev.Progress.TotalEpochs)
	assert.Equal(t, DefaultAvgGPUUtilization, ev.Progress.AvgGPUUtilization)
	assert.Equal(t, DefaultMemoryUsage, ev.Progress.MemoryUsage)
}

func TestBuild_CompletedDefaults(t *testing.T) {
	b := fixedBuilder(1700000000)

	ev, err := b.Build(KindJobCompleted, Input{AssetID: "nid-1"})
	require.NoError(t, err)

	require.NotNil(t, ev.Completed)
	assert.Equal(t, StatusSuccess, ev.Completed.CompletionStatus)
	assert.Equal(t, int64(DefaultTotalDuration), ev.Completed.TotalDuration)
	assert.Equal(t, 1.0, ev.Completed.GPUHoursUsed)
	assert.Equal(t, 0, ev.Completed.ExitCode)
	assert.NotNil(t, ev.Completed.OutputArtifacts)
	assert.Empty(t, ev.Completed.OutputArtifacts)
	assert.True(t, ev.Completed.C2PAVerified)
	assert.Equal(t, 0.945, ev.Completed.FinalMetrics["accuracy"])
}

func TestBuild_CompletedGPUHoursFollowDuration(t *testing.T) {
	b := fixedBuilder(1700000000)

	ev, err := b.Build(KindJobCompleted, Input{AssetID: "nid-1", TotalDuration: 1800})
	require.NoError(t, err)

	assert.Equal(t, int64(1800), ev.Completed.TotalDuration)
	assert.Equal(t, 0.5, ev.Completed.GPUHoursUsed)
}

func TestBuild_FailedDefaults(t *testing.T) {
	b := fixedBuilder(1700000000)

	ev, err := b.Build(KindJobFailed, Input{AssetID: "nid-1"})
	require.NoError(t, err)

	assert.Equal(t, "error-handler", ev.Executor)
	require.NotNil(t, ev.Failed)
	assert.Equal(t, DefaultErrorCode, ev.Failed.ErrorCode)
	assert.Equal(t, DefaultErrorMessage, ev.Failed.ErrorMessage)
	assert.Equal(t, DefaultStackTrace, ev.Failed.StackTrace)
	assert.Nil(t, ev.Failed.PartialOutputNid)
	assert.Equal(t, DefaultRetryAttempt, ev.Failed.RetryAttempt)
}

func TestEvent_WireRoundTrip(t *testing.T) {
	b := fixedBuilder(1700000000)

	ev, err := b.Build(KindJobCompleted, Input{AssetID: "nid-1", CompletionStatus: "failed"})
	require.NoError(t, err)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	// Flat wire object: variant fields inline next to the common ones, and
	// only the one variant present.
	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, "JobCompleted", wire["eventType"])
	assert.Equal(t, "failed", wire["completionStatus"])
	assert.Contains(t, wire, "exitCode")
	assert.NotContains(t, wire, "scheduledNode")
	assert.NotContains(t, wire, "errorCode")

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, KindJobCompleted, decoded.EventType)
	require.NotNil(t, decoded.Completed)
	assert.Equal(t, "failed", decoded.Completed.CompletionStatus)
	assert.Nil(t, decoded.Failed)
}
