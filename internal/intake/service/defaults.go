package service

import (
	"maps"

	"formgate/internal/intake/models"
)

// defaultValuesKey is where a submitter's preferences store the values that
// seed a resubmission.
const defaultValuesKey = "default_values"

// Defaults are the starting values, preferences and metadata for a new
// submitter. Sourced from a prior submitter only when the visitor presented
// an explicit resubmission reference, never inferred.
type Defaults struct {
	Values      map[string]any
	Preferences map[string]any
	Metadata    map[string]any
}

// ResolveDefaults computes the defaults for a new submitter.
//
// With no prior submitter the override values stand alone. With a prior
// submitter the stored default_values map seeds the result and the override
// wins on key conflicts, so a caller can supply corrected fields that take
// precedence over inherited ones. Preferences and metadata are inherited
// verbatim when non-empty; an empty map counts as absent and falls back to
// the send_email default.
func ResolveDefaults(prior *models.Submitter, override map[string]any) Defaults {
	d := Defaults{
		Values:      models.MergeValuesMap(priorDefaultValues(prior), override),
		Preferences: map[string]any{"send_email": true},
		Metadata:    map[string]any{},
	}

	if prior != nil {
		if len(prior.Preferences) > 0 {
			d.Preferences = maps.Clone(prior.Preferences)
		}
		if len(prior.Metadata) > 0 {
			d.Metadata = maps.Clone(prior.Metadata)
		}
	}
	return d
}

func priorDefaultValues(prior *models.Submitter) map[string]any {
	if prior == nil {
		return nil
	}
	if dv, ok := prior.Preferences[defaultValuesKey].(map[string]any); ok {
		return dv
	}
	return nil
}

// CarryOverAttachments selects which of the prior submitter's attachments
// follow it onto the new record: only those whose uuid the new values map
// still references as a value. An attachment for a field that was not
// re-affirmed stays behind.
func CarryOverAttachments(prior *models.Submitter, values map[string]any) []models.Attachment {
	if prior == nil || len(values) == 0 {
		return nil
	}

	referenced := make(map[string]struct{}, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			referenced[s] = struct{}{}
		}
	}

	var copied []models.Attachment
	for _, a := range prior.Attachments {
		if _, ok := referenced[a.UUID]; ok {
			copied = append(copied, a)
		}
	}
	return copied
}
