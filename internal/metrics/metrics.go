// Package metrics exposes Prometheus counters for collection sync, optimistic
// mutations and the live channel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is what the sync components report to. Nop is the default.
type Recorder interface {
	PageFetched(collection string, items int)
	PageFailed(collection string)
	StaleDropped(collection string)
	MutationRolledBack(name string)
	LiveMessage(destination string)
	LiveState(state string)
}

// Collector records to Prometheus.
type Collector struct {
	pagesFetched *prometheus.CounterVec
	itemsMerged  *prometheus.CounterVec
	pagesFailed  *prometheus.CounterVec
	staleDropped *prometheus.CounterVec
	rollbacks    *prometheus.CounterVec
	liveMessages *prometheus.CounterVec
	liveStates   *prometheus.CounterVec
}

// NewCollector registers all metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_pages_fetched_total",
			Help: "Pages fetched and merged, by collection.",
		}, []string{"collection"}),
		itemsMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_items_fetched_total",
			Help: "Items received in fetched pages, by collection.",
		}, []string{"collection"}),
		pagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_pages_failed_total",
			Help: "Page fetches that returned an error, by collection.",
		}, []string{"collection"}),
		staleDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_stale_pages_dropped_total",
			Help: "Page responses discarded because the collection was closed or reset.",
		}, []string{"collection"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_mutation_rollbacks_total",
			Help: "Optimistic mutations reverted after a failed confirmation.",
		}, []string{"mutation"}),
		liveMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_live_messages_total",
			Help: "Messages received on live subscriptions, by destination.",
		}, []string{"destination"}),
		liveStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_live_state_transitions_total",
			Help: "Live channel state transitions, by target state.",
		}, []string{"state"}),
	}

	reg.MustRegister(
		c.pagesFetched,
		c.itemsMerged,
		c.pagesFailed,
		c.staleDropped,
		c.rollbacks,
		c.liveMessages,
		c.liveStates,
	)
	return c
}

func (c *Collector) PageFetched(collection string, items int) {
	c.pagesFetched.WithLabelValues(collection).Inc()
	c.itemsMerged.WithLabelValues(collection).Add(float64(items))
}

func (c *Collector) PageFailed(collection string) {
	c.pagesFailed.WithLabelValues(collection).Inc()
}

func (c *Collector) StaleDropped(collection string) {
	c.staleDropped.WithLabelValues(collection).Inc()
}

func (c *Collector) MutationRolledBack(name string) {
	c.rollbacks.WithLabelValues(name).Inc()
}

func (c *Collector) LiveMessage(destination string) {
	c.liveMessages.WithLabelValues(destination).Inc()
}

func (c *Collector) LiveState(state string) {
	c.liveStates.WithLabelValues(state).Inc()
}

type nop struct{}

// Nop discards everything.
var Nop Recorder = nop{}

func (nop) PageFetched(string, int)   {}
func (nop) PageFailed(string)         {}
func (nop) StaleDropped(string)       {}
func (nop) MutationRolledBack(string) {}
func (nop) LiveMessage(string)        {}
func (nop) LiveState(string)          {}
