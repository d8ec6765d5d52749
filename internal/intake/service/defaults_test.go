package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"formgate/internal/intake/models"
)

func TestResolveDefaults(t *testing.T) {
	t.Run("no prior submitter keeps only the override", func(t *testing.T) {
		d := ResolveDefaults(nil, map[string]any{"f1": "v1"})

		assert.Equal(t, map[string]any{"f1": "v1"}, d.Values)
		assert.Equal(t, map[string]any{"send_email": true}, d.Preferences)
		assert.Empty(t, d.Metadata)
	})

	t.Run("override wins over inherited default values", func(t *testing.T) {
		prior := &models.Submitter{
			Preferences: map[string]any{
				"default_values": map[string]any{"a": float64(1), "b": float64(2)},
			},
		}

		d := ResolveDefaults(prior, map[string]any{"b": float64(9), "c": float64(3)})

		assert.Equal(t, map[string]any{
			"a": float64(1),
			"b": float64(9),
			"c": float64(3),
		}, d.Values)
	})

	t.Run("non-empty prior preferences are inherited", func(t *testing.T) {
		prior := &models.Submitter{
			Preferences: map[string]any{"send_email": false, "send_sms": true},
			Metadata:    map[string]any{"campaign": "q3"},
		}

		d := ResolveDefaults(prior, nil)

		assert.Equal(t, false, d.Preferences["send_email"])
		assert.Equal(t, true, d.Preferences["send_sms"])
		assert.Equal(t, "q3", d.Metadata["campaign"])
	})

	t.Run("empty prior preferences fall back to send_email default", func(t *testing.T) {
		prior := &models.Submitter{Preferences: map[string]any{}}

		d := ResolveDefaults(prior, nil)

		assert.Equal(t, map[string]any{"send_email": true}, d.Preferences)
	})

	t.Run("inherited maps are clones, prior stays untouched", func(t *testing.T) {
		prior := &models.Submitter{
			Preferences: map[string]any{"send_email": false},
		}

		d := ResolveDefaults(prior, nil)
		d.Preferences["send_email"] = true

		assert.Equal(t, false, prior.Preferences["send_email"])
	})
}

func TestCarryOverAttachments(t *testing.T) {
	prior := &models.Submitter{
		Attachments: []models.Attachment{
			{UUID: "att-1", Filename: "id.pdf"},
			{UUID: "att-2", Filename: "proof.pdf"},
		},
	}

	t.Run("only attachments referenced by the new values follow", func(t *testing.T) {
		copied := CarryOverAttachments(prior, map[string]any{"field-1": "att-1"})

		assert.Len(t, copied, 1)
		assert.Equal(t, "att-1", copied[0].UUID)
	})

	t.Run("unreferenced attachments stay behind", func(t *testing.T) {
		assert.Empty(t, CarryOverAttachments(prior, map[string]any{"field-1": "something-else"}))
	})

	t.Run("no values means no carry-over", func(t *testing.T) {
		assert.Empty(t, CarryOverAttachments(prior, nil))
	})

	t.Run("no prior means no carry-over", func(t *testing.T) {
		assert.Empty(t, CarryOverAttachments(nil, map[string]any{"field-1": "att-1"}))
	})

	t.Run("non-string values never reference attachments", func(t *testing.T) {
		assert.Empty(t, CarryOverAttachments(prior, map[string]any{"field-1": 42}))
	})
}
