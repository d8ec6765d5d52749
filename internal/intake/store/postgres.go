package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"formgate/internal/intake/models"
	"formgate/pkg/platform/sentinel"
	txcontext "formgate/pkg/platform/tx"
	"formgate/pkg/requestcontext"
)

const uniqueViolation = "23505"

// Postgres implements the intake store over database/sql with the pgx
// driver. Structured fields (slots, values, preferences, metadata,
// attachments) live in jsonb columns.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx wraps fn in a transaction carried through the context, so every
// store call inside fn executes against the same transaction.
func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Postgres) FindTemplateBySlug(ctx context.Context, slug string) (*models.Template, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT id, account_id, slug, name, archived_at, submitters, created_at, updated_at
		FROM templates
		WHERE slug = $1
	`, slug)

	var (
		t             models.Template
		submittersRaw []byte
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.Slug, &t.Name, &t.ArchivedAt, &submittersRaw, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	if err := json.Unmarshal(submittersRaw, &t.Submitters); err != nil {
		return nil, fmt.Errorf("decode template submitters: %w", err)
	}
	return &t, nil
}

const submitterColumns = `
	s.id, s.submission_id, s.account_id, s.uuid, s.slug,
	s.email, s.phone, s.name, s.cpf, s.external_id,
	s."values", s.preferences, s.metadata, s.attachments,
	s.ip, s.ua, s.completed_at, s.declined_at, s.created_at, s.updated_at`

// CandidateSubmitters builds the link-matchable pool: unarchived and
// unexpired submissions of the template, submitters not declined and not
// externally created, most recent first. With onlyIncomplete, completed
// submitters are filtered out as well.
func (s *Postgres) CandidateSubmitters(ctx context.Context, templateID int64, onlyIncomplete bool) ([]*models.Submitter, error) {
	query := `
		SELECT ` + submitterColumns + `
		FROM submitters s
		JOIN submissions sub ON sub.id = s.submission_id
		WHERE sub.template_id = $1
		  AND sub.archived_at IS NULL
		  AND (sub.expire_at IS NULL OR sub.expire_at > $2)
		  AND s.declined_at IS NULL
		  AND s.external_id IS NULL`
	if onlyIncomplete {
		query += `
		  AND s.completed_at IS NULL`
	}
	query += `
		ORDER BY s.id DESC`

	rows, err := s.querier(ctx).QueryContext(ctx, query, templateID, requestcontext.Now(ctx))
	if err != nil {
		return nil, fmt.Errorf("query candidate submitters: %w", err)
	}
	defer rows.Close()

	var pool []*models.Submitter
	for rows.Next() {
		submitter, err := scanSubmitter(rows)
		if err != nil {
			return nil, err
		}
		pool = append(pool, submitter)
	}
	return pool, rows.Err()
}

func (s *Postgres) FindSubmitterBySlug(ctx context.Context, templateID int64, slug string) (*models.Submitter, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+submitterColumns+`
		FROM submitters s
		JOIN submissions sub ON sub.id = s.submission_id
		WHERE sub.template_id = $1 AND s.slug = $2
	`, templateID, slug)

	submitter, err := scanSubmitter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return submitter, err
}

func (s *Postgres) CompletedSubmitterByEmail(ctx context.Context, templateID int64, email string) (*models.Submitter, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+submitterColumns+`
		FROM submitters s
		JOIN submissions sub ON sub.id = s.submission_id
		WHERE sub.template_id = $1
		  AND s.completed_at IS NOT NULL
		  AND s.email = $2
		ORDER BY s.id DESC
		LIMIT 1
	`, templateID, email)

	submitter, err := scanSubmitter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return submitter, err
}

func (s *Postgres) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	slots, err := json.Marshal(submission.TemplateSubmitters)
	if err != nil {
		return fmt.Errorf("encode template submitters: %w", err)
	}
	defined, err := json.Marshal(definedOrEmpty(submission.DefinedSubmitterUUIDs))
	if err != nil {
		return fmt.Errorf("encode defined submitters: %w", err)
	}

	row := s.querier(ctx).QueryRowContext(ctx, `
		INSERT INTO submissions
			(template_id, account_id, source, template_submitters, defined_submitter_uuids,
			 expire_at, archived_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`,
		submission.TemplateID,
		submission.AccountID,
		submission.Source,
		slots,
		defined,
		submission.ExpireAt,
		submission.ArchivedAt,
		orNow(submission.CreatedAt),
	)
	if err := row.Scan(&submission.ID); err != nil {
		return fmt.Errorf("insert submission: %w", mapConstraint(err))
	}
	return nil
}

func (s *Postgres) CreateSubmitter(ctx context.Context, submitter *models.Submitter) error {
	values, preferences, metadata, attachments, err := encodeSubmitterJSON(submitter)
	if err != nil {
		return err
	}

	row := s.querier(ctx).QueryRowContext(ctx, `
		INSERT INTO submitters
			(submission_id, account_id, uuid, slug, email, phone, name, cpf, external_id,
			 "values", preferences, metadata, attachments, ip, ua,
			 completed_at, declined_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)
		RETURNING id
	`,
		submitter.SubmissionID,
		submitter.AccountID,
		submitter.UUID,
		submitter.Slug,
		nullIfEmpty(submitter.Email),
		nullIfEmpty(submitter.Phone),
		nullIfEmpty(submitter.Name),
		nullIfEmpty(submitter.CPF),
		submitter.ExternalID,
		values, preferences, metadata, attachments,
		nullIfEmpty(submitter.IP),
		nullIfEmpty(submitter.UserAgent),
		submitter.CompletedAt,
		submitter.DeclinedAt,
		orNow(submitter.CreatedAt),
	)
	if err := row.Scan(&submitter.ID); err != nil {
		return fmt.Errorf("insert submitter: %w", mapConstraint(err))
	}
	return nil
}

func (s *Postgres) UpdateSubmitter(ctx context.Context, submitter *models.Submitter) error {
	values, preferences, metadata, attachments, err := encodeSubmitterJSON(submitter)
	if err != nil {
		return err
	}

	res, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE submitters
		SET email = $2, phone = $3, name = $4, cpf = $5,
		    "values" = $6, preferences = $7, metadata = $8, attachments = $9,
		    ip = $10, ua = $11, completed_at = $12, declined_at = $13, updated_at = $14
		WHERE id = $1
	`,
		submitter.ID,
		nullIfEmpty(submitter.Email),
		nullIfEmpty(submitter.Phone),
		nullIfEmpty(submitter.Name),
		nullIfEmpty(submitter.CPF),
		values, preferences, metadata, attachments,
		nullIfEmpty(submitter.IP),
		nullIfEmpty(submitter.UserAgent),
		submitter.CompletedAt,
		submitter.DeclinedAt,
		submitter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update submitter: %w", mapConstraint(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// AssignDefinedSubmitters recomputes which slots the submission has bound
// submitters for, from the submitters present at call time.
func (s *Postgres) AssignDefinedSubmitters(ctx context.Context, submissionID int64) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE submissions sub
		SET defined_submitter_uuids = COALESCE(
			(SELECT jsonb_agg(DISTINCT s.uuid) FROM submitters s WHERE s.submission_id = sub.id),
			'[]'::jsonb
		), updated_at = $2
		WHERE sub.id = $1
	`, submissionID, requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("assign defined submitters: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmitter(row rowScanner) (*models.Submitter, error) {
	var (
		sub                                      models.Submitter
		email, phone, name, cpf, ip, ua          sql.NullString
		values, preferences, metadata, attachRaw []byte
	)
	err := row.Scan(
		&sub.ID, &sub.SubmissionID, &sub.AccountID, &sub.UUID, &sub.Slug,
		&email, &phone, &name, &cpf, &sub.ExternalID,
		&values, &preferences, &metadata, &attachRaw,
		&ip, &ua, &sub.CompletedAt, &sub.DeclinedAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Email = email.String
	sub.Phone = phone.String
	sub.Name = name.String
	sub.CPF = cpf.String
	sub.IP = ip.String
	sub.UserAgent = ua.String

	if err := decodeJSON(values, &sub.Values); err != nil {
		return nil, err
	}
	if err := decodeJSON(preferences, &sub.Preferences); err != nil {
		return nil, err
	}
	if err := decodeJSON(metadata, &sub.Metadata); err != nil {
		return nil, err
	}
	if err := decodeJSON(attachRaw, &sub.Attachments); err != nil {
		return nil, err
	}
	return &sub, nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode submitter json: %w", err)
	}
	return nil
}

func encodeSubmitterJSON(submitter *models.Submitter) (values, preferences, metadata, attachments []byte, err error) {
	if values, err = json.Marshal(mapOrEmpty(submitter.Values)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode values: %w", err)
	}
	if preferences, err = json.Marshal(mapOrEmpty(submitter.Preferences)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode preferences: %w", err)
	}
	if metadata, err = json.Marshal(mapOrEmpty(submitter.Metadata)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode metadata: %w", err)
	}
	atts := submitter.Attachments
	if atts == nil {
		atts = []models.Attachment{}
	}
	if attachments, err = json.Marshal(atts); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode attachments: %w", err)
	}
	return values, preferences, metadata, attachments, nil
}

// mapConstraint translates a unique violation into the conflict sentinel so
// the orchestrator can retry its resolution.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", sentinel.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func mapOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func definedOrEmpty(defined []string) []string {
	if defined == nil {
		return []string{}
	}
	return defined
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
