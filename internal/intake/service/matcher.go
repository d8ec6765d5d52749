package service

import (
	"formgate/internal/intake/models"
	"formgate/pkg/normalize"
)

// LookupAttrs are the identity attributes a visitor presents. Blank
// attributes are ignored during matching.
type LookupAttrs struct {
	Email string
	Phone string
	Name  string
	CPF   string
}

// Normalized returns a copy with email, phone and cpf reduced to their
// canonical forms. Matching and storage both use the normalized values so
// "A@B.com " and "a@b.com" are the same visitor.
func (l LookupAttrs) Normalized() LookupAttrs {
	l.Email = normalize.Email(l.Email)
	l.Phone = normalize.Phone(l.Phone)
	l.CPF = normalize.CPF(l.CPF)
	return l
}

// IsBlank reports whether no identity attribute was presented.
func (l LookupAttrs) IsBlank() bool {
	return l.Email == "" && l.Phone == "" && l.Name == "" && l.CPF == ""
}

// Match scans the candidate pool in order (most recent first) and returns
// the first submitter whose attributes equal every non-blank lookup
// attribute. Returns nil when nothing matches; the caller then initializes
// a brand-new submitter.
func Match(pool []*models.Submitter, lookup LookupAttrs) *models.Submitter {
	for _, s := range pool {
		if matches(s, lookup) {
			return s
		}
	}
	return nil
}

func matches(s *models.Submitter, lookup LookupAttrs) bool {
	if lookup.Email != "" && s.Email != lookup.Email {
		return false
	}
	if lookup.Phone != "" && s.Phone != lookup.Phone {
		return false
	}
	if lookup.Name != "" && s.Name != lookup.Name {
		return false
	}
	if lookup.CPF != "" && s.CPF != lookup.CPF {
		return false
	}
	return true
}

// UndefinedSlots returns the template slots that no submitter in the
// candidate pool occupies, preserving template order. Computed once per
// request and reused for both ambiguity detection and slot fallback so the
// two call sites cannot drift.
func UndefinedSlots(template *models.Template, pool []*models.Submitter) []models.TemplateSubmitter {
	occupied := make(map[string]struct{}, len(pool))
	for _, s := range pool {
		occupied[s.UUID] = struct{}{}
	}

	var undefined []models.TemplateSubmitter
	for _, slot := range template.Submitters {
		if _, ok := occupied[slot.UUID]; !ok {
			undefined = append(undefined, slot)
		}
	}
	return undefined
}

// resolveSlotUUID is the slot assignment policy for new submitters: first
// undefined slot wins, then the template's first declared slot. Evaluated
// left to right, stopping at the first present value.
func resolveSlotUUID(undefined []models.TemplateSubmitter, template *models.Template) string {
	if len(undefined) > 0 {
		return undefined[0].UUID
	}
	if len(template.Submitters) > 0 {
		return template.Submitters[0].UUID
	}
	return ""
}
