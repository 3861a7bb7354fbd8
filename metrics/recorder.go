package metrics

import "time"

// SkipReason enumerates why an access did not produce a usage record write.
type SkipReason string

const (
	// SkipThrottled means the record already lists the consumer and was written today.
	SkipThrottled SkipReason = "throttled"
	// SkipUnresolved means the tracking identity has no installed versions.
	SkipUnresolved SkipReason = "unresolved_owner"
	// SkipNoManifest means no consumer manifest could be determined.
	SkipNoManifest SkipReason = "no_manifest"
	// SkipFailed means the record could not be read or written.
	SkipFailed SkipReason = "failed"
)

// DeleteKind enumerates why the collector removed a space.
type DeleteKind string

const (
	DeleteUnreachable DeleteKind = "unreachable"
	DeleteOrphan      DeleteKind = "orphan"
	DeleteNamespace   DeleteKind = "namespace"
	DeleteExplicit    DeleteKind = "explicit"
	DeleteReset       DeleteKind = "reset"
)

// Recorder receives scratch space events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	IncRecordWrite()
	IncRecordSkip(reason SkipReason)
	IncSpaceDeleted(kind DeleteKind)
	IncDeleteFailure()
	SetOrphansPending(n int)
	ObserveCollectDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncRecordWrite() {}
func (NoopRecorder) IncRecordSkip(SkipReason) {}
func (NoopRecorder) IncSpaceDeleted(DeleteKind) {}
func (NoopRecorder) IncDeleteFailure() {}
func (NoopRecorder) SetOrphansPending(int) {}
func (NoopRecorder) ObserveCollectDuration(time.Duration) {}
