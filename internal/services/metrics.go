package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Labels: target (post, comment), direction (up, retract)
	voteToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hnlite",
		Subsystem: "votes",
		Name:      "toggles_total",
		Help:      "Committed vote toggles",
	}, []string{"target", "direction"})

	// Labels: parent (post, comment)
	commentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hnlite",
		Subsystem: "comments",
		Name:      "created_total",
		Help:      "Committed comment inserts",
	}, []string{"parent"})

	// Labels: table, column
	counterRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hnlite",
		Subsystem: "reconcile",
		Name:      "repaired_total",
		Help:      "Drifted cached counters rewritten by Fix",
	}, []string{"table", "column"})
)
