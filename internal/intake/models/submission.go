package models

import "time"

// Submission source tags. Link is the only source this service creates;
// the others arrive through API or bulk channels and are excluded from
// link-based matching via the submitter's external id.
const (
	SourceLink = "link"
	SourceAPI  = "api"
	SourceBulk = "bulk"
)

// Submission groups the submitters answering one instance of a template.
//
// A submission is link-matchable as a candidate only when it is not archived
// and its expiration is unset or still in the future.
type Submission struct {
	ID                 int64               `json:"id"`
	TemplateID         int64               `json:"template_id"`
	AccountID          int64               `json:"account_id"`
	Source             string              `json:"source"`
	TemplateSubmitters []TemplateSubmitter `json:"template_submitters"`
	// DefinedSubmitterUUIDs records which template slots are bound to a
	// real submitter. Finalized inside the intake transaction so a
	// submission never commits with a half-assigned slot.
	DefinedSubmitterUUIDs []string   `json:"defined_submitter_uuids"`
	ExpireAt              *time.Time `json:"expire_at,omitempty"`
	ArchivedAt            *time.Time `json:"archived_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// IsMatchable reports whether submitters of this submission belong in the
// link-flow candidate pool at the given time.
func (s *Submission) IsMatchable(now time.Time) bool {
	if s.ArchivedAt != nil {
		return false
	}
	return s.ExpireAt == nil || s.ExpireAt.After(now)
}
