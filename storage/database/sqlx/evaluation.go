package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core/evaluation"
)

type evaluationRepository struct {
	db *sqlx.DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *sqlx.DB) *evaluationRepository {
	return &evaluationRepository{db: db}
}

const evaluationColumns = `id, presentation_id, user_id, score, comment, created_at, updated_at`

func (repo *evaluationRepository) CreateEvaluation(ctx context.Context, ev evaluation.Evaluation) (evaluation.Evaluation, error) {
	ev.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO evaluation (`+evaluationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.PresentationID, ev.UserID, ev.Score, ev.Comment, ev.CreatedAt.UTC(), ev.UpdatedAt.UTC(),
	)
	if err != nil {
		return evaluation.Evaluation{}, trapUniqueErr(err, map[string]error{
			"evaluation_presentation_user_key": evaluation.ErrAlreadyEvaluated,
		}, "inserting evaluation")
	}
	return ev, nil
}

func (repo *evaluationRepository) GetEvaluationByID(ctx context.Context, id string) (evaluation.Evaluation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	var ev evaluation.Evaluation
	err := repo.db.GetContext(ctx, &ev, `SELECT `+evaluationColumns+` FROM evaluation WHERE id = $1`, id)
	if err != nil {
		return evaluation.Evaluation{}, trapNoRowsErr(err, evaluation.ErrNotFound, "finding evaluation by ID")
	}
	return ev, nil
}

func (repo *evaluationRepository) CheckEvaluationUniqueness(ctx context.Context, presentationID, userID string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM evaluation WHERE presentation_id = $1 AND user_id = $2)`,
		presentationID, userID,
	)
	if err != nil {
		return errors.Wrap(err, "checking evaluation uniqueness")
	}
	if exists {
		return evaluation.ErrAlreadyEvaluated
	}
	return nil
}

func (repo *evaluationRepository) QueryEvaluations(ctx context.Context, filter *evaluation.QueryFilter) ([]evaluation.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluation`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.PresentationID != "" {
			conds = append(conds, `presentation_id = ?`)
			args = append(args, filter.PresentationID)
		}
		if filter.UserID != "" {
			conds = append(conds, `user_id = ?`)
			args = append(args, filter.UserID)
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY created_at ASC`

	evs := make([]evaluation.Evaluation, 0)
	if err := repo.db.SelectContext(ctx, &evs, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying evaluations")
	}
	return evs, nil
}

func (repo *evaluationRepository) DeleteEvaluation(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM evaluation WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting evaluation")
	}
	return nil
}
