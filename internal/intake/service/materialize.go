package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"formgate/internal/intake/models"
	"formgate/pkg/requestcontext"
)

// materialize fills in a freshly initialized submitter: slot assignment,
// request metadata, resolved defaults and carried-over attachments. Returns
// the new submission when the submitter does not belong to one yet; the
// caller persists both inside one transaction.
func materialize(
	ctx context.Context,
	submitter *models.Submitter,
	template *models.Template,
	undefined []models.TemplateSubmitter,
	prior *models.Submitter,
	defaults Defaults,
) *models.Submission {
	now := requestcontext.Now(ctx)

	submitter.UUID = resolveSlotUUID(undefined, template)
	submitter.Slug = uuid.NewString()
	submitter.IP = requestcontext.ClientIP(ctx)
	submitter.UserAgent = requestcontext.UserAgent(ctx)
	submitter.Values = defaults.Values
	submitter.Preferences = defaults.Preferences
	submitter.Metadata = defaults.Metadata
	submitter.Attachments = CarryOverAttachments(prior, submitter.Values)
	submitter.CreatedAt = now
	submitter.UpdatedAt = now

	annotateClient(submitter)

	var submission *models.Submission
	if submitter.SubmissionID == 0 {
		submission = &models.Submission{
			TemplateID:         template.ID,
			AccountID:          template.AccountID,
			Source:             models.SourceLink,
			TemplateSubmitters: template.Submitters,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
	}

	// The submitter always mirrors its submission's account.
	submitter.AccountID = template.AccountID

	return submission
}

// annotateClient records the parsed browser and platform next to the raw
// user agent string. Consumers filtering submissions by client get names
// instead of raw UA strings.
func annotateClient(submitter *models.Submitter) {
	if submitter.UserAgent == "" {
		return
	}
	ua := useragent.New(submitter.UserAgent)
	if submitter.Metadata == nil {
		submitter.Metadata = map[string]any{}
	}
	if name, version := ua.Browser(); name != "" {
		submitter.Metadata["browser"] = name
		if version != "" {
			submitter.Metadata["browser_version"] = version
		}
	}
	if os := ua.OS(); os != "" {
		submitter.Metadata["os"] = os
	}
}
