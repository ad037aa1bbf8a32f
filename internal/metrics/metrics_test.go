package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.PageFetched("feed", 2)
	c.PageFetched("feed", 1)
	c.PageFailed("feed")
	c.MutationRolledBack("like")
	c.LiveMessage("/subscribe/3")
	c.LiveState("connected")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.pagesFetched.WithLabelValues("feed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.itemsMerged.WithLabelValues("feed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pagesFailed.WithLabelValues("feed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rollbacks.WithLabelValues("like")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.liveMessages.WithLabelValues("/subscribe/3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.liveStates.WithLabelValues("connected")))
}

func TestCollectorDoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}
