// Package metrics объявляет счётчики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IssuanceOutcomes результаты выдачи пропусков по виду и исходу.
	IssuanceOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatepass",
		Name:      "issuance_outcomes_total",
		Help:      "Entitlement issuance outcomes by kind and outcome.",
	}, []string{"kind", "outcome"})

	// DeliveryFallbacks отправки, при которых документ заменён текстом.
	DeliveryFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatepass",
		Name:      "delivery_fallbacks_total",
		Help:      "Deliveries that fell back to a text-only message.",
	}, []string{"kind"})

	// ConversationTurns обработанные входящие сообщения по состоянию сессии.
	ConversationTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatepass",
		Name:      "conversation_turns_total",
		Help:      "Inbound conversation turns by session state.",
	}, []string{"state"})

	// ConversationFaults ходы, завершившиеся сбросом сессии.
	ConversationFaults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gatepass",
		Name:      "conversation_faults_total",
		Help:      "Conversation turns that failed and reset the session.",
	})

	// RemindersPublished напоминания, поставленные в очередь, по тону.
	RemindersPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatepass",
		Name:      "reminders_published_total",
		Help:      "Outstanding balance reminders queued for delivery by tone.",
	}, []string{"tone"})

	// RemindersDelivered результаты отправки напоминаний из очереди.
	RemindersDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatepass",
		Name:      "reminders_delivered_total",
		Help:      "Queued reminders by delivery result.",
	}, []string{"result"})

	// VerificationResults проверки пропусков на входе по результату.
	VerificationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatepass",
		Name:      "verification_results_total",
		Help:      "Gate verifications by result.",
	}, []string{"status"})
)
