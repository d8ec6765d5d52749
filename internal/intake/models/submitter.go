package models

import (
	"maps"
	"time"
)

// Attachment is a file answering one of the submitter's fields. The uuid is
// what field values reference; carry-over on resubmission copies the
// attachment only when the new values still reference it.
type Attachment struct {
	UUID        string `json:"uuid"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// Submitter is one participant of a submission.
//
// Invariants:
//   - UUID references a slot declared on the submission's template
//   - AccountID mirrors the owning submission's account
//   - once CompletedAt is set the record is immutable from the link flow;
//     further visits redirect to the completed view instead of mutating
type Submitter struct {
	ID           int64  `json:"id"`
	SubmissionID int64  `json:"submission_id"`
	AccountID    int64  `json:"account_id"`
	UUID         string `json:"uuid"`
	Slug         string `json:"slug"`

	// Identity attributes used for matching. All optional; blanks are
	// ignored during lookup. Email, phone and cpf are stored normalized.
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Name  string `json:"name,omitempty"`
	CPF   string `json:"cpf,omitempty"`

	// ExternalID is set when the submitter was created through a non-link
	// channel; such records never match link lookups.
	ExternalID *string `json:"external_id,omitempty"`

	Values      map[string]any `json:"values"`
	Preferences map[string]any `json:"preferences"`
	Metadata    map[string]any `json:"metadata"`

	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"ua,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DeclinedAt  *time.Time `json:"declined_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (s *Submitter) IsCompleted() bool { return s.CompletedAt != nil }
func (s *Submitter) IsDeclined() bool  { return s.DeclinedAt != nil }

// IsNew reports whether the submitter has not been persisted yet.
func (s *Submitter) IsNew() bool { return s.ID == 0 }

// MergeValues overlays patch onto the submitter's values map. New keys are
// added, colliding keys take the patch value, untouched keys survive. The
// merge is idempotent for repeated identical patches.
func (s *Submitter) MergeValues(patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	if s.Values == nil {
		s.Values = make(map[string]any, len(patch))
	}
	maps.Copy(s.Values, patch)
}

// ValuesReference reports whether any stored value equals uuid. Fields
// answered with a file reference hold the attachment uuid as their value,
// so this is the carry-over test for attachments.
func (s *Submitter) ValuesReference(uuid string) bool {
	for _, v := range s.Values {
		if str, ok := v.(string); ok && str == uuid {
			return true
		}
	}
	return false
}

// MergeValuesMap is the pure form of the overlay rule: base is not mutated,
// patch wins on key conflicts.
func MergeValuesMap(base, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(patch))
	maps.Copy(merged, base)
	maps.Copy(merged, patch)
	return merged
}
