package dates

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	proposalsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dates_proposals_created_total",
			Help: "Total number of date proposals created",
		},
	)

	proposalRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dates_proposal_rejections_total",
			Help: "Proposal creations rejected, by error code",
		},
		[]string{"code"},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dates_transitions_total",
			Help: "State machine transitions, by resulting status",
		},
		[]string{"status"},
	)

	feedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dates_feedback_total",
			Help: "Date feedback submissions, by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordProposalCreated counts a committed proposal
func RecordProposalCreated() {
	proposalsCreatedTotal.Inc()
}

// RecordProposalRejection counts a creation rejected with a domain code
func RecordProposalRejection(code string) {
	proposalRejectionsTotal.WithLabelValues(code).Inc()
}

// RecordTransition counts a state machine transition
func RecordTransition(status string) {
	transitionsTotal.WithLabelValues(status).Inc()
}

// RecordFeedback counts a feedback submission
func RecordFeedback(outcome string) {
	feedbackTotal.WithLabelValues(outcome).Inc()
}
