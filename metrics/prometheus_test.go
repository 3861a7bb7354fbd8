package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncRecordWrite()
	pr.IncRecordWrite()
	pr.IncRecordSkip(SkipThrottled)
	pr.IncSpaceDeleted(DeleteOrphan)
	pr.IncDeleteFailure()
	pr.SetOrphansPending(4)
	pr.ObserveCollectDuration(25 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.recordWrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.recordSkips.WithLabelValues(string(SkipThrottled))))
	assert.Equal(t, 0.0, testutil.ToFloat64(pr.recordSkips.WithLabelValues(string(SkipFailed))))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.spacesDeleted.WithLabelValues(string(DeleteOrphan))))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.deleteFailures))
	assert.Equal(t, 4.0, testutil.ToFloat64(pr.orphansPending))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestNewPrometheusRecorder_NilRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusRecorder(nil).IncRecordWrite()
	})
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.IncRecordWrite()
		r.IncRecordSkip(SkipNoManifest)
		r.IncSpaceDeleted(DeleteReset)
		r.IncDeleteFailure()
		r.SetOrphansPending(1)
		r.ObserveCollectDuration(time.Second)
	})
}
