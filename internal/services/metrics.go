package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Total number of test sessions started",
		},
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_sessions_active",
			Help: "Number of sessions currently running",
		},
	)

	sessionsAbandoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_sessions_abandoned_total",
			Help: "Total number of sessions exited without an attempt",
		},
	)

	attemptsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempts_completed_total",
			Help: "Total number of finalized attempts",
		},
		[]string{"end_reason"},
	)

	attemptPercentage = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_attempt_percentage",
			Help:    "Distribution of attempt percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	questionGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_question_generations_total",
			Help: "Question generation requests by result",
		},
		[]string{"result"},
	)

	generationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_question_generation_duration_seconds",
			Help:    "Time spent waiting for the question generator",
			Buckets: prometheus.DefBuckets,
		},
	)

	feedbackRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_feedback_requests_total",
			Help: "Feedback lookups by source",
		},
		[]string{"source"},
	)
)
