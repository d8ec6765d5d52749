// Package store provides the intake persistence implementations: an
// in-memory store used by unit tests and dependency-free dev runs, and the
// postgres store used in production.
package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"formgate/internal/intake/models"
	"formgate/pkg/platform/sentinel"
	"formgate/pkg/requestcontext"
)

// InMemory keeps templates, submissions and submitters in maps. It mirrors
// the postgres store's observable behavior, including the open-slot
// uniqueness constraint, so services can be tested against it.
type InMemory struct {
	mu          sync.RWMutex
	templates   map[int64]*models.Template
	submissions map[int64]*models.Submission
	submitters  map[int64]*models.Submitter

	nextTemplateID   int64
	nextSubmissionID int64
	nextSubmitterID  int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		templates:   make(map[int64]*models.Template),
		submissions: make(map[int64]*models.Submission),
		submitters:  make(map[int64]*models.Submitter),
	}
}

// AddTemplate seeds a template, assigning an id when missing.
func (s *InMemory) AddTemplate(t *models.Template) *models.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		s.nextTemplateID++
		t.ID = s.nextTemplateID
	}
	s.templates[t.ID] = t
	return t
}

func (s *InMemory) FindTemplateBySlug(_ context.Context, slug string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.templates {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) CandidateSubmitters(ctx context.Context, templateID int64, onlyIncomplete bool) ([]*models.Submitter, error) {
	now := requestcontext.Now(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var pool []*models.Submitter
	for _, sub := range s.submitters {
		submission, ok := s.submissions[sub.SubmissionID]
		if !ok || submission.TemplateID != templateID || !submission.IsMatchable(now) {
			continue
		}
		if sub.IsDeclined() || sub.ExternalID != nil {
			continue
		}
		if onlyIncomplete && sub.IsCompleted() {
			continue
		}
		pool = append(pool, cloneSubmitter(sub))
	}

	// Most recent submitter first; ties cannot happen on a sequence.
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID > pool[j].ID })
	return pool, nil
}

func (s *InMemory) FindSubmitterBySlug(_ context.Context, templateID int64, slug string) (*models.Submitter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submitters {
		submission, ok := s.submissions[sub.SubmissionID]
		if ok && submission.TemplateID == templateID && sub.Slug == slug {
			return cloneSubmitter(sub), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) CompletedSubmitterByEmail(_ context.Context, templateID int64, email string) (*models.Submitter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.Submitter
	for _, sub := range s.submitters {
		submission, ok := s.submissions[sub.SubmissionID]
		if !ok || submission.TemplateID != templateID {
			continue
		}
		if !sub.IsCompleted() || sub.Email != email {
			continue
		}
		if best == nil || sub.ID > best.ID {
			best = sub
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneSubmitter(best), nil
}

func (s *InMemory) CreateSubmission(_ context.Context, submission *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubmissionID++
	submission.ID = s.nextSubmissionID
	s.submissions[submission.ID] = submission
	return nil
}

func (s *InMemory) CreateSubmitter(_ context.Context, submitter *models.Submitter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One open submitter per (submission, slot), matching the postgres
	// partial unique index.
	for _, existing := range s.submitters {
		if existing.SubmissionID == submitter.SubmissionID &&
			existing.UUID == submitter.UUID &&
			!existing.IsCompleted() {
			return sentinel.ErrConflict
		}
	}

	s.nextSubmitterID++
	submitter.ID = s.nextSubmitterID
	s.submitters[submitter.ID] = cloneSubmitter(submitter)
	return nil
}

func (s *InMemory) UpdateSubmitter(_ context.Context, submitter *models.Submitter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submitters[submitter.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.submitters[submitter.ID] = cloneSubmitter(submitter)
	return nil
}

func (s *InMemory) AssignDefinedSubmitters(_ context.Context, submissionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	submission, ok := s.submissions[submissionID]
	if !ok {
		return sentinel.ErrNotFound
	}

	occupied := make(map[string]struct{})
	for _, sub := range s.submitters {
		if sub.SubmissionID == submissionID {
			occupied[sub.UUID] = struct{}{}
		}
	}

	defined := make([]string, 0, len(occupied))
	for _, slot := range submission.TemplateSubmitters {
		if _, ok := occupied[slot.UUID]; ok {
			defined = append(defined, slot.UUID)
		}
	}
	submission.DefinedSubmitterUUIDs = defined
	return nil
}

// RunInTx executes fn directly; the in-memory store has no transactional
// isolation.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Submitter returns a copy of the stored submitter, for test assertions.
func (s *InMemory) Submitter(id int64) (*models.Submitter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submitters[id]
	if !ok {
		return nil, false
	}
	return cloneSubmitter(sub), true
}

// Submission returns a stored submission, for test assertions.
func (s *InMemory) Submission(id int64) (*models.Submission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	return sub, ok
}

// SubmitterCount reports how many submitters are persisted.
func (s *InMemory) SubmitterCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.submitters)
}

// SubmissionCount reports how many submissions are persisted.
func (s *InMemory) SubmissionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.submissions)
}

// Seed inserts a submission with its submitters, assigning ids. Intended
// for tests and dev bootstrap.
func (s *InMemory) Seed(submission *models.Submission, submitters ...*models.Submitter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if submission.ID == 0 {
		s.nextSubmissionID++
		submission.ID = s.nextSubmissionID
	}
	s.submissions[submission.ID] = submission

	for _, sub := range submitters {
		if sub.ID == 0 {
			s.nextSubmitterID++
			sub.ID = s.nextSubmitterID
		}
		sub.SubmissionID = submission.ID
		s.submitters[sub.ID] = cloneSubmitter(sub)
	}
}

func cloneSubmitter(s *models.Submitter) *models.Submitter {
	c := *s
	c.Values = maps.Clone(s.Values)
	c.Preferences = maps.Clone(s.Preferences)
	c.Metadata = maps.Clone(s.Metadata)
	c.Attachments = slices.Clone(s.Attachments)
	return &c
}
