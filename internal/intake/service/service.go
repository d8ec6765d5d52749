// Package service implements the link intake flow: resolving which submitter
// an anonymous visitor is, and creating or updating that submitter plus its
// enclosing submission.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"formgate/internal/events"
	intakemetrics "formgate/internal/intake/metrics"
	"formgate/internal/intake/models"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/i18n"
	"formgate/pkg/normalize"
	"formgate/pkg/platform/sentinel"
	"formgate/pkg/requestcontext"
)

// Store is the persistence surface the intake flow consumes. Candidate
// filtering happens in the store; everything above it operates on the
// already-filtered pool.
type Store interface {
	FindTemplateBySlug(ctx context.Context, slug string) (*models.Template, error)

	// CandidateSubmitters returns the link-matchable pool for a template:
	// submitters of unarchived, unexpired submissions, not declined, with
	// no external id, ordered most recent first. With onlyIncomplete set,
	// completed submitters are excluded as well (resubmission continues an
	// open attempt, it never reopens a finished one).
	CandidateSubmitters(ctx context.Context, templateID int64, onlyIncomplete bool) ([]*models.Submitter, error)

	FindSubmitterBySlug(ctx context.Context, templateID int64, slug string) (*models.Submitter, error)
	CompletedSubmitterByEmail(ctx context.Context, templateID int64, email string) (*models.Submitter, error)

	CreateSubmission(ctx context.Context, submission *models.Submission) error
	CreateSubmitter(ctx context.Context, submitter *models.Submitter) error
	UpdateSubmitter(ctx context.Context, submitter *models.Submitter) error

	// AssignDefinedSubmitters finalizes which template slots the
	// submission considers bound. Runs inside the intake transaction.
	AssignDefinedSubmitters(ctx context.Context, submissionID int64) error

	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// WebhookDispatcher enqueues submission.created jobs, one per registered
// destination. Called strictly after the intake transaction commits.
type WebhookDispatcher interface {
	SubmissionCreated(ctx context.Context, accountID, submissionID int64) (int, error)
}

// EventRecorder appends intake events to the outbox. Called inside the
// intake transaction so events commit with the state change they describe.
type EventRecorder interface {
	Record(ctx context.Context, event events.Event) error
}

// Service orchestrates the intake state machine.
type Service struct {
	store    Store
	webhooks WebhookDispatcher
	events   EventRecorder
	logger   *slog.Logger
	metrics  *intakemetrics.Metrics
}

type Option func(*Service)

func WithWebhooks(d WebhookDispatcher) Option {
	return func(s *Service) { s.webhooks = d }
}

func WithEvents(r EventRecorder) Option {
	return func(s *Service) { s.events = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *intakemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the intake service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateParams carries the visitor-supplied submitter fields.
type UpdateParams struct {
	Email string
	Phone string
	Name  string
	CPF   string

	// Values is the free-form field map (field uuid -> value).
	Values map[string]any

	// ResubmitSlug references a prior submitter whose defaults and
	// attachments seed the new attempt.
	ResubmitSlug string
}

// OutcomeKind enumerates the terminal states of one intake request.
type OutcomeKind string

const (
	OutcomeRedirectStart     OutcomeKind = "redirect_start"
	OutcomeRedirectCompleted OutcomeKind = "redirect_completed"
	OutcomeRedirectSubmit    OutcomeKind = "redirect_submit"
	OutcomeRenderNotFound    OutcomeKind = "render_not_found"
	OutcomeRenderInvalid     OutcomeKind = "render_invalid"
)

// Outcome tells the transport layer where to send the visitor next. Render
// outcomes re-display the form; redirect outcomes carry the address parts.
type Outcome struct {
	Kind          OutcomeKind
	TemplateSlug  string
	SubmitterSlug string
	Email         string
	Message       string
	FieldErrors   map[string]string
}

// Show resolves the template and a fresh, unsaved submitter for the slot a
// first-time visitor would fill.
func (s *Service) Show(ctx context.Context, slug string) (*models.Template, *models.Submitter, error) {
	template, err := s.loadTemplate(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	pool, err := s.store.CandidateSubmitters(ctx, template.ID, false)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate submitters")
	}

	submitter := &models.Submitter{
		AccountID: template.AccountID,
		UUID:      resolveSlotUUID(UndefinedSlots(template, pool), template),
	}
	return template, submitter, nil
}

// Update runs the intake state machine for one request. All failures short
// of template resolution recover into an Outcome; the error return is
// reserved for not-found templates and infrastructure faults.
func (s *Service) Update(ctx context.Context, slug string, params UpdateParams) (Outcome, error) {
	start := time.Now()
	defer s.observeUpdate(start)

	template, err := s.loadTemplate(ctx, slug)
	if err != nil {
		return Outcome{}, err
	}

	if template.IsArchived() {
		// Soft redirect to the start of the flow, nothing mutated.
		return Outcome{Kind: OutcomeRedirectStart, TemplateSlug: template.Slug}, nil
	}

	lookup := LookupAttrs{
		Email: params.Email,
		Phone: params.Phone,
		Name:  params.Name,
		CPF:   params.CPF,
	}.Normalized()

	outcome, err := s.resolveAndSave(ctx, template, lookup, params)
	if errors.Is(err, sentinel.ErrConflict) {
		// Two simultaneous first visits raced on the same open slot. The
		// winner committed; rerunning the lookup now finds its submitter.
		outcome, err = s.resolveAndSave(ctx, template, lookup, params)
	}
	if err != nil {
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "intake update failed")
	}
	return outcome, nil
}

// Completed finds the completed submitter a repeat visitor is shown after
// their submission finished.
func (s *Service) Completed(ctx context.Context, slug, email string) (*models.Submitter, error) {
	template, err := s.loadTemplate(ctx, slug)
	if err != nil {
		return nil, err
	}

	submitter, err := s.store.CompletedSubmitterByEmail(ctx, template.ID, normalize.Email(email))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "submitter not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load completed submitter")
	}
	return submitter, nil
}

func (s *Service) loadTemplate(ctx context.Context, slug string) (*models.Template, error) {
	template, err := s.store.FindTemplateBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "template not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load template")
	}
	return template, nil
}

func (s *Service) resolveAndSave(
	ctx context.Context,
	template *models.Template,
	lookup LookupAttrs,
	params UpdateParams,
) (Outcome, error) {
	pool, err := s.store.CandidateSubmitters(ctx, template.ID, params.ResubmitSlug != "")
	if err != nil {
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate submitters")
	}

	submitter := Match(pool, lookup)

	if submitter != nil && submitter.IsCompleted() {
		s.incCompletedRedirects()
		// Best effort: a revisit changes no state, so a failed record only
		// costs the event.
		if err := s.record(ctx, events.ActionCompletedRevisit, template, submitter); err != nil {
			s.logger.WarnContext(ctx, "failed to record completed revisit", "error", err.Error())
		}
		return Outcome{
			Kind:         OutcomeRedirectCompleted,
			TemplateSlug: template.Slug,
			Email:        lookup.Email,
		}, nil
	}

	undefined := UndefinedSlots(template, pool)

	if submitter == nil && len(undefined) > 1 {
		// More than one open slot: the flow cannot know which one this
		// visitor fills. Surfaced as a localized message, nothing mutated.
		s.incAmbiguousLookups()
		return Outcome{
			Kind:         OutcomeRenderNotFound,
			TemplateSlug: template.Slug,
			Message:      i18n.T(requestcontext.Locale(ctx), "not_found"),
		}, nil
	}

	if submitter == nil {
		return s.createSubmitter(ctx, template, lookup, params, undefined)
	}
	return s.updateSubmitter(ctx, template, submitter, params)
}

func (s *Service) createSubmitter(
	ctx context.Context,
	template *models.Template,
	lookup LookupAttrs,
	params UpdateParams,
	undefined []models.TemplateSubmitter,
) (Outcome, error) {
	var prior *models.Submitter
	if params.ResubmitSlug != "" {
		found, err := s.store.FindSubmitterBySlug(ctx, template.ID, params.ResubmitSlug)
		switch {
		case err == nil:
			prior = found
		case errors.Is(err, sentinel.ErrNotFound):
			// Stale resubmission reference: proceed without defaults.
		default:
			return Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resubmitted submitter")
		}
	}

	submitter := &models.Submitter{
		Email: lookup.Email,
		Phone: lookup.Phone,
		Name:  lookup.Name,
		CPF:   lookup.CPF,
	}
	submission := materialize(ctx, submitter, template, undefined, prior, ResolveDefaults(prior, params.Values))

	if fields := validateSubmitter(submitter); len(fields) > 0 {
		return Outcome{
			Kind:         OutcomeRenderInvalid,
			TemplateSlug: template.Slug,
			FieldErrors:  fields,
		}, nil
	}

	err := s.store.RunInTx(ctx, func(txCtx context.Context) error {
		if submission != nil {
			if err := s.store.CreateSubmission(txCtx, submission); err != nil {
				return err
			}
			submitter.SubmissionID = submission.ID
			submitter.AccountID = submission.AccountID
		}
		if err := s.store.CreateSubmitter(txCtx, submitter); err != nil {
			return err
		}
		if err := s.store.AssignDefinedSubmitters(txCtx, submitter.SubmissionID); err != nil {
			return err
		}
		return s.record(txCtx, events.ActionSubmissionCreated, template, submitter)
	})
	if err != nil {
		// Conflicts bubble up raw so Update can retry the resolution.
		return Outcome{}, err
	}

	s.incSubmittersCreated()
	s.dispatchCreationWebhooks(ctx, submitter)

	return Outcome{
		Kind:          OutcomeRedirectSubmit,
		TemplateSlug:  template.Slug,
		SubmitterSlug: submitter.Slug,
	}, nil
}

func (s *Service) updateSubmitter(
	ctx context.Context,
	template *models.Template,
	submitter *models.Submitter,
	params UpdateParams,
) (Outcome, error) {
	submitter.MergeValues(params.Values)
	submitter.UpdatedAt = requestcontext.Now(ctx)

	err := s.store.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpdateSubmitter(txCtx, submitter); err != nil {
			return err
		}
		return s.record(txCtx, events.ActionSubmitterUpdated, template, submitter)
	})
	if err != nil {
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update submitter")
	}

	s.incSubmittersUpdated()

	return Outcome{
		Kind:          OutcomeRedirectSubmit,
		TemplateSlug:  template.Slug,
		SubmitterSlug: submitter.Slug,
	}, nil
}

// validateSubmitter checks the identity attributes of a new submitter.
// Existing submitters keep whatever identity they matched on.
func validateSubmitter(submitter *models.Submitter) map[string]string {
	fields := make(map[string]string)
	if submitter.Email == "" && submitter.Phone == "" && submitter.Name == "" && submitter.CPF == "" {
		fields["email"] = "at least one of email, phone or name is required"
	}
	if submitter.Email != "" && !strings.Contains(submitter.Email, "@") {
		fields["email"] = "is not a valid email address"
	}
	return fields
}

func (s *Service) record(ctx context.Context, action events.Action, template *models.Template, submitter *models.Submitter) error {
	if s.events == nil {
		return nil
	}
	return s.events.Record(ctx, events.Event{
		Action:       action,
		AccountID:    submitter.AccountID,
		TemplateID:   template.ID,
		SubmissionID: submitter.SubmissionID,
		SubmitterID:  submitter.ID,
		Timestamp:    requestcontext.Now(ctx),
		RequestID:    requestcontext.RequestID(ctx),
	})
}

// dispatchCreationWebhooks enqueues one job per registered destination.
// Failures are logged, never surfaced: delivery is asynchronous and must not
// roll back a committed intake.
func (s *Service) dispatchCreationWebhooks(ctx context.Context, submitter *models.Submitter) {
	if s.webhooks == nil {
		return
	}
	n, err := s.webhooks.SubmissionCreated(ctx, submitter.AccountID, submitter.SubmissionID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue submission.created webhooks",
			"submission_id", submitter.SubmissionID,
			"error", err.Error(),
		)
		return
	}
	if n > 0 {
		if s.metrics != nil {
			s.metrics.WebhookJobs.Add(float64(n))
		}
		s.logger.InfoContext(ctx, "enqueued submission.created webhooks",
			"submission_id", submitter.SubmissionID,
			"destinations", n,
		)
	}
}

func (s *Service) observeUpdate(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveUpdate(start)
	}
}

func (s *Service) incSubmittersCreated() {
	if s.metrics != nil {
		s.metrics.SubmittersCreated.Inc()
	}
}

func (s *Service) incSubmittersUpdated() {
	if s.metrics != nil {
		s.metrics.SubmittersUpdated.Inc()
	}
}

func (s *Service) incAmbiguousLookups() {
	if s.metrics != nil {
		s.metrics.AmbiguousLookups.Inc()
	}
}

func (s *Service) incCompletedRedirects() {
	if s.metrics != nil {
		s.metrics.CompletedRedirects.Inc()
	}
}
