package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/submission"
)

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

const submissionColumns = `id, edition_id, advisor_id, main_author_id, title, abstract, pdf_file_key,
link_hosted_file, phone_number, co_advisor, status, proposed_block_id, proposed_position,
created_at, updated_at`

var submissionSortable = []string{"title", "status", "created_at"}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	sub.ID = uuid.New().String()
	query := `
INSERT INTO submission (` + submissionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := repo.db.ExecContext(ctx, query,
		sub.ID, sub.EditionID, sub.AdvisorID, sub.MainAuthorID, sub.Title, sub.Abstract,
		sub.PDFFileKey, sub.LinkHostedFile, sub.PhoneNumber, sub.CoAdvisor, sub.Status,
		sub.ProposedBlockID, sub.ProposedPosition, sub.CreatedAt.UTC(), sub.UpdatedAt.UTC(),
	)
	if err != nil {
		return submission.Submission{}, trapUniqueErr(err, map[string]error{
			"submission_title_edition_key":  submission.ErrTitleExists,
			"submission_author_edition_key": submission.ErrAlreadySubmitted,
		}, "inserting submission")
	}
	return sub, nil
}

func (repo *submissionRepository) GetSubmissionByID(ctx context.Context, id string) (submission.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return submission.Submission{}, submission.ErrNotFound
	}
	var sub submission.Submission
	err := repo.db.GetContext(ctx, &sub, `SELECT `+submissionColumns+` FROM submission WHERE id = $1`, id)
	if err != nil {
		return submission.Submission{}, trapNoRowsErr(err, submission.ErrNotFound, "finding submission by ID")
	}
	return sub, nil
}

func (repo *submissionRepository) SubmissionExists(ctx context.Context, id string) error {
	_, err := repo.GetSubmissionByID(ctx, id)
	return err
}

func (repo *submissionRepository) CheckAuthorUniqueness(ctx context.Context, mainAuthorID, editionID string, excludedSubs ...submission.Submission) error {
	return repo.checkUniqueness(ctx,
		`main_author_id = ?`, []interface{}{mainAuthorID, editionID},
		submission.ErrAlreadySubmitted, excludedSubs)
}

func (repo *submissionRepository) CheckTitleUniqueness(ctx context.Context, title, editionID string, excludedSubs ...submission.Submission) error {
	return repo.checkUniqueness(ctx,
		`title = ?`, []interface{}{title, editionID},
		submission.ErrTitleExists, excludedSubs)
}

func (repo *submissionRepository) checkUniqueness(ctx context.Context, cond string, args []interface{}, taken error, excludedSubs []submission.Submission) error {
	query := `SELECT EXISTS (SELECT 1 FROM submission WHERE ` + cond + ` AND edition_id = ?`
	if len(excludedSubs) > 0 {
		ids := make([]string, 0, len(excludedSubs))
		for _, sub := range excludedSubs {
			ids = append(ids, sub.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += `)`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "checking submission uniqueness")
	}

	var exists bool
	if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking submission uniqueness")
	}
	if exists {
		return taken
	}
	return nil
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter *submission.QueryFilter, ordering []core.DBOrdering) ([]submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submission`
	var conds []string
	var args []interface{}

	fallbackOrder := "created_at DESC"
	if filter != nil {
		if filter.EditionID != "" {
			conds = append(conds, `edition_id = ?`)
			args = append(args, filter.EditionID)
		}
		if filter.MainAuthorID != "" {
			conds = append(conds, `main_author_id = ?`)
			args = append(args, filter.MainAuthorID)
		}
		if filter.WithoutPresentation {
			conds = append(conds, `id NOT IN (SELECT submission_id FROM presentation)`)
		}
		if filter.ShowConfirmedOnly {
			conds = append(conds, `status = ?`)
			args = append(args, submission.StatusConfirmed)
		}
		if filter.OrderByProposedPresentation {
			fallbackOrder = "proposed_block_id ASC NULLS LAST, proposed_position ASC NULLS LAST"
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += orderBy(ordering, submissionSortable, fallbackOrder)

	subs := make([]submission.Submission, 0)
	if err := repo.db.SelectContext(ctx, &subs, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return subs, nil
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	query := `
UPDATE submission
SET advisor_id = $1, main_author_id = $2, title = $3, abstract = $4, pdf_file_key = $5,
    link_hosted_file = $6, phone_number = $7, co_advisor = $8, status = $9,
    proposed_block_id = $10, proposed_position = $11, updated_at = $12
WHERE id = $13`
	res, err := repo.db.ExecContext(ctx, query,
		sub.AdvisorID, sub.MainAuthorID, sub.Title, sub.Abstract, sub.PDFFileKey,
		sub.LinkHostedFile, sub.PhoneNumber, sub.CoAdvisor, sub.Status,
		sub.ProposedBlockID, sub.ProposedPosition, sub.UpdatedAt.UTC(), sub.ID,
	)
	if err != nil {
		return submission.Submission{}, trapUniqueErr(err, map[string]error{
			"submission_title_edition_key":  submission.ErrTitleExists,
			"submission_author_edition_key": submission.ErrAlreadySubmitted,
		}, "updating submission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return submission.Submission{}, submission.ErrNotFound
	}
	return repo.GetSubmissionByID(ctx, sub.ID)
}

func (repo *submissionRepository) DeleteSubmission(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM submission WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	return nil
}
