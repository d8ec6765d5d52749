package models

import "time"

// TemplateSubmitter is a slot declared on a template: a role that a
// submission must eventually bind to a real submitter. Slots are identified
// by a stable uuid that submitters reference.
type TemplateSubmitter struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Template is a reusable form definition addressed by its public slug.
//
// Invariants:
//   - Submitters is non-empty and ordered; the first slot is the fallback
//     assignment for new link submitters
//   - a submitter's UUID always references one of these slots
type Template struct {
	ID         int64               `json:"id"`
	AccountID  int64               `json:"account_id"`
	Slug       string              `json:"slug"`
	Name       string              `json:"name"`
	ArchivedAt *time.Time          `json:"archived_at,omitempty"`
	Submitters []TemplateSubmitter `json:"submitters"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// IsArchived reports whether the template has been taken out of circulation.
// Archived templates never accept intake writes.
func (t *Template) IsArchived() bool {
	return t.ArchivedAt != nil
}

// Slot returns the declared slot with the given uuid, if any.
func (t *Template) Slot(uuid string) (TemplateSubmitter, bool) {
	for _, s := range t.Submitters {
		if s.UUID == uuid {
			return s, true
		}
	}
	return TemplateSubmitter{}, false
}
