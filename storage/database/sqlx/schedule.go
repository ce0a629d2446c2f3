package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/schedule"
)

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

const blockColumns = `id, edition_id, room_id, type, title, start_time, duration, created_at, updated_at`

var blockSortable = []string{"title", "start_time", "created_at"}

func (repo *scheduleRepository) CreateBlock(ctx context.Context, blk schedule.Block) (schedule.Block, error) {
	blk.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO block (`+blockColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		blk.ID, blk.EditionID, blk.RoomID, blk.Type, blk.Title,
		blk.StartTime.UTC(), blk.Duration, blk.CreatedAt.UTC(), blk.UpdatedAt.UTC(),
	)
	if err != nil {
		return schedule.Block{}, errors.Wrap(err, "inserting block")
	}
	return blk, nil
}

func (repo *scheduleRepository) GetBlockByID(ctx context.Context, id string) (schedule.Block, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Block{}, schedule.ErrBlockNotFound
	}
	var blk schedule.Block
	err := repo.db.GetContext(ctx, &blk, `SELECT `+blockColumns+` FROM block WHERE id = $1`, id)
	if err != nil {
		return schedule.Block{}, trapNoRowsErr(err, schedule.ErrBlockNotFound, "finding block by ID")
	}
	return blk, nil
}

func (repo *scheduleRepository) QueryBlocks(ctx context.Context, editionID string, ordering []core.DBOrdering) ([]schedule.Block, error) {
	blocks := make([]schedule.Block, 0)
	query := `SELECT ` + blockColumns + ` FROM block WHERE edition_id = $1` + orderBy(ordering, blockSortable, "start_time ASC")
	if err := repo.db.SelectContext(ctx, &blocks, query, editionID); err != nil {
		return nil, errors.Wrap(err, "querying blocks")
	}
	return blocks, nil
}

func (repo *scheduleRepository) UpdateBlock(ctx context.Context, blk schedule.Block) (schedule.Block, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE block SET room_id = $1, type = $2, title = $3, start_time = $4, duration = $5, updated_at = $6 WHERE id = $7`,
		blk.RoomID, blk.Type, blk.Title, blk.StartTime.UTC(), blk.Duration, blk.UpdatedAt.UTC(), blk.ID,
	)
	if err != nil {
		return schedule.Block{}, errors.Wrap(err, "updating block")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Block{}, schedule.ErrBlockNotFound
	}
	return repo.GetBlockByID(ctx, blk.ID)
}

func (repo *scheduleRepository) DeleteBlock(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM block WHERE id = $1`, id); err != nil {
		var pqErr *pq.Error
		if errors.As(errors.Cause(err), &pqErr) && pqErr.Code.Class() == "23" {
			return schedule.ErrBlockInUse
		}
		return errors.Wrap(err, "deleting block")
	}
	return nil
}

const presentationColumns = `id, submission_id, block_id, position, status, public_average_score,
evaluators_average_score, created_at, updated_at`

// CreatePresentation relies on the slot and submission unique indexes as the
// authority on collisions; concurrent claims lose on the INSERT itself.
func (repo *scheduleRepository) CreatePresentation(ctx context.Context, p schedule.Presentation) (schedule.Presentation, error) {
	p.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO presentation (`+presentationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.SubmissionID, p.BlockID, p.Position, p.Status,
		p.PublicAverageScore, p.EvaluatorsAverageScore, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return schedule.Presentation{}, trapUniqueErr(err, map[string]error{
			"presentation_slot_key":       schedule.ErrPositionTaken,
			"presentation_submission_key": schedule.ErrAlreadyConfirmed,
		}, "inserting presentation")
	}
	return p, nil
}

func (repo *scheduleRepository) GetPresentationByID(ctx context.Context, id string) (schedule.Presentation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Presentation{}, schedule.ErrPresentationNotFound
	}
	var p schedule.Presentation
	err := repo.db.GetContext(ctx, &p, `SELECT `+presentationColumns+` FROM presentation WHERE id = $1`, id)
	if err != nil {
		return schedule.Presentation{}, trapNoRowsErr(err, schedule.ErrPresentationNotFound, "finding presentation by ID")
	}
	return p, nil
}

func (repo *scheduleRepository) GetPresentationBySubmissionID(ctx context.Context, submissionID string) (schedule.Presentation, error) {
	var p schedule.Presentation
	err := repo.db.GetContext(ctx, &p,
		`SELECT `+presentationColumns+` FROM presentation WHERE submission_id = $1`, submissionID)
	if err != nil {
		return schedule.Presentation{}, trapNoRowsErr(err, schedule.ErrPresentationNotFound, "finding presentation by submission")
	}
	return p, nil
}

func (repo *scheduleRepository) GetPresentationAt(ctx context.Context, blockID string, position int) (schedule.Presentation, error) {
	var p schedule.Presentation
	err := repo.db.GetContext(ctx, &p,
		`SELECT `+presentationColumns+` FROM presentation WHERE block_id = $1 AND position = $2`, blockID, position)
	if err != nil {
		return schedule.Presentation{}, trapNoRowsErr(err, schedule.ErrPresentationNotFound, "finding presentation at position")
	}
	return p, nil
}

func (repo *scheduleRepository) QueryPresentationsByBlock(ctx context.Context, blockID string) ([]schedule.Presentation, error) {
	prezs := make([]schedule.Presentation, 0)
	err := repo.db.SelectContext(ctx, &prezs,
		`SELECT `+presentationColumns+` FROM presentation WHERE block_id = $1 ORDER BY position ASC`, blockID)
	if err != nil {
		return nil, errors.Wrap(err, "querying presentations by block")
	}
	return prezs, nil
}

func (repo *scheduleRepository) QueryPresentationsByEdition(ctx context.Context, editionID string) ([]schedule.Presentation, error) {
	prezs := make([]schedule.Presentation, 0)
	query := `
SELECT p.` + "id, p.submission_id, p.block_id, p.position, p.status, p.public_average_score, p.evaluators_average_score, p.created_at, p.updated_at" + `
FROM presentation p
JOIN block b ON b.id = p.block_id
WHERE b.edition_id = $1
ORDER BY b.start_time ASC, p.position ASC`
	if err := repo.db.SelectContext(ctx, &prezs, query, editionID); err != nil {
		return nil, errors.Wrap(err, "querying presentations by edition")
	}
	return prezs, nil
}

func (repo *scheduleRepository) UpdatePresentationStatus(ctx context.Context, id string, status schedule.PresentationStatus) (schedule.Presentation, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE presentation SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return schedule.Presentation{}, errors.Wrap(err, "updating presentation status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Presentation{}, schedule.ErrPresentationNotFound
	}
	return repo.GetPresentationByID(ctx, id)
}

func (repo *scheduleRepository) UpdatePresentationScores(ctx context.Context, id string, public, evaluators null.Float64) (schedule.Presentation, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE presentation SET public_average_score = $1, evaluators_average_score = $2, updated_at = NOW() WHERE id = $3`,
		public, evaluators, id)
	if err != nil {
		return schedule.Presentation{}, errors.Wrap(err, "updating presentation scores")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Presentation{}, schedule.ErrPresentationNotFound
	}
	return repo.GetPresentationByID(ctx, id)
}

func (repo *scheduleRepository) DeletePresentation(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM presentation WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting presentation")
	}
	return nil
}

const rankedColumns = `p.id, p.submission_id, p.block_id, p.position, p.status, p.public_average_score,
p.evaluators_average_score, p.created_at, p.updated_at,
s.title AS submission_title, s.main_author_id, u.name AS main_author_name, u.email AS main_author_email`

const rankedJoins = `
FROM presentation p
JOIN submission s ON s.id = p.submission_id
JOIN "user" u ON u.id = s.main_author_id
JOIN block b ON b.id = p.block_id`

func (repo *scheduleRepository) TopByEvaluators(ctx context.Context, editionID string, limit int) ([]schedule.RankedPresentation, error) {
	return repo.top(ctx, editionID, "evaluators_average_score", limit)
}

func (repo *scheduleRepository) TopByAudience(ctx context.Context, editionID string, limit int) ([]schedule.RankedPresentation, error) {
	return repo.top(ctx, editionID, "public_average_score", limit)
}

func (repo *scheduleRepository) top(ctx context.Context, editionID, scoreCol string, limit int) ([]schedule.RankedPresentation, error) {
	query := fmt.Sprintf(`SELECT %s %s
WHERE b.edition_id = $1 AND p.%s IS NOT NULL
ORDER BY p.%s DESC, p.submission_id ASC`, rankedColumns, rankedJoins, scoreCol, scoreCol)
	args := []interface{}{editionID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	ranked := make([]schedule.RankedPresentation, 0)
	if err := repo.db.SelectContext(ctx, &ranked, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying ranked presentations")
	}
	return ranked, nil
}

func (repo *scheduleRepository) QueryPresentedWithAuthors(ctx context.Context, editionID string) ([]schedule.RankedPresentation, error) {
	query := fmt.Sprintf(`SELECT %s %s
WHERE b.edition_id = $1 AND p.status = $2
ORDER BY b.start_time ASC, p.position ASC`, rankedColumns, rankedJoins)

	presented := make([]schedule.RankedPresentation, 0)
	if err := repo.db.SelectContext(ctx, &presented, query, editionID, schedule.StatusPresented); err != nil {
		return nil, errors.Wrap(err, "querying presented presentations")
	}
	return presented, nil
}
