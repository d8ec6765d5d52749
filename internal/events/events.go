// Package events defines the intake event stream. Events are appended to a
// transactional outbox inside the same transaction as the intake write and
// relayed to Kafka by the outbox worker, so downstream consumers see exactly
// the state changes that committed.
package events

import "time"

// Action identifies what happened.
type Action string

const (
	// ActionSubmissionCreated fires once per submission created by the
	// link flow, never for updates to an existing submitter.
	ActionSubmissionCreated Action = "submission.created"

	// ActionSubmitterUpdated fires when a returning visitor merges new
	// values into an open submitter.
	ActionSubmitterUpdated Action = "submitter.updated"

	// ActionCompletedRevisit fires when a visitor matching a completed
	// submitter is redirected to the completed view. No state changes.
	ActionCompletedRevisit Action = "submission.completed_revisit"
)

// Event is emitted from the intake flow. Keep it transport-agnostic so the
// outbox store and the Kafka relay can share it.
type Event struct {
	Action       Action    `json:"action"`
	AccountID    int64     `json:"account_id"`
	TemplateID   int64     `json:"template_id"`
	SubmissionID int64     `json:"submission_id"`
	SubmitterID  int64     `json:"submitter_id"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}
