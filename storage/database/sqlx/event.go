package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/event"
)

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

const editionColumns = `id, name, description, location, start_date, end_date, submission_start_date,
submission_deadline, is_active, is_evaluation_restrict_to_logged_users, presentation_duration,
presentations_per_block, created_at, updated_at`

var editionSortable = []string{"name", "start_date", "created_at"}

func (repo *eventRepository) CreateEdition(ctx context.Context, ed event.Edition) (event.Edition, error) {
	ed.ID = uuid.New().String()
	query := `
INSERT INTO edition (` + editionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := repo.db.ExecContext(ctx, query,
		ed.ID, ed.Name, ed.Description, ed.Location,
		ed.StartDate.UTC(), ed.EndDate.UTC(), ed.SubmissionStartDate.UTC(), ed.SubmissionDeadline.UTC(),
		ed.IsActive, ed.IsEvaluationRestrictToLoggedUsers,
		ed.PresentationDuration, ed.PresentationsPerBlock,
		ed.CreatedAt.UTC(), ed.UpdatedAt.UTC(),
	)
	if err != nil {
		return event.Edition{}, errors.Wrap(err, "inserting edition")
	}
	return ed, nil
}

func (repo *eventRepository) GetEditionByID(ctx context.Context, id string) (event.Edition, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Edition{}, event.ErrNotFound
	}
	var ed event.Edition
	err := repo.db.GetContext(ctx, &ed, `SELECT `+editionColumns+` FROM edition WHERE id = $1`, id)
	if err != nil {
		return event.Edition{}, trapNoRowsErr(err, event.ErrNotFound, "finding edition by ID")
	}
	return ed, nil
}

func (repo *eventRepository) GetActiveEdition(ctx context.Context) (event.Edition, error) {
	var ed event.Edition
	err := repo.db.GetContext(ctx, &ed, `SELECT `+editionColumns+` FROM edition WHERE is_active LIMIT 1`)
	if err != nil {
		return event.Edition{}, trapNoRowsErr(err, event.ErrNoActive, "finding active edition")
	}
	return ed, nil
}

func (repo *eventRepository) QueryEditions(ctx context.Context, ordering []core.DBOrdering) ([]event.Edition, error) {
	editions := make([]event.Edition, 0)
	query := `SELECT ` + editionColumns + ` FROM edition` + orderBy(ordering, editionSortable, "start_date DESC")
	if err := repo.db.SelectContext(ctx, &editions, query); err != nil {
		return nil, errors.Wrap(err, "querying editions")
	}
	return editions, nil
}

func (repo *eventRepository) UpdateEdition(ctx context.Context, ed event.Edition, isActive *bool) (event.Edition, error) {
	query := `
UPDATE edition
SET name = $1, description = $2, location = $3, start_date = $4, end_date = $5,
    submission_start_date = $6, submission_deadline = $7,
    is_evaluation_restrict_to_logged_users = $8, presentation_duration = $9,
    presentations_per_block = $10, updated_at = $11,
    is_active = COALESCE($12::boolean, is_active)
WHERE id = $13`
	res, err := repo.db.ExecContext(ctx, query,
		ed.Name, ed.Description, ed.Location, ed.StartDate.UTC(), ed.EndDate.UTC(),
		ed.SubmissionStartDate.UTC(), ed.SubmissionDeadline.UTC(),
		ed.IsEvaluationRestrictToLoggedUsers, ed.PresentationDuration,
		ed.PresentationsPerBlock, ed.UpdatedAt.UTC(), boolPtrToNull(isActive), ed.ID,
	)
	if err != nil {
		return event.Edition{}, errors.Wrap(err, "updating edition")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Edition{}, event.ErrNotFound
	}
	return repo.GetEditionByID(ctx, ed.ID)
}

func (repo *eventRepository) SetActiveEdition(ctx context.Context, id string) (event.Edition, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Edition{}, event.ErrNotFound
	}

	var ed event.Edition
	err := core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE edition SET is_active = FALSE, updated_at = $1 WHERE is_active AND id <> $2`, now, id,
		); err != nil {
			return errors.Wrap(err, "deactivating editions")
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE edition SET is_active = TRUE, updated_at = $1 WHERE id = $2`, now, id,
		)
		if err != nil {
			return errors.Wrap(err, "activating edition")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return event.ErrNotFound
		}
		err = tx.GetContext(ctx, &ed, `SELECT `+editionColumns+` FROM edition WHERE id = $1`, id)
		return trapNoRowsErr(err, event.ErrNotFound, "finding activated edition")
	})
	if err != nil {
		return event.Edition{}, err
	}
	return ed, nil
}

func (repo *eventRepository) DeleteEdition(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM edition WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting edition")
	}
	return nil
}

const roomColumns = `id, edition_id, name, description, created_at, updated_at`

var roomSortable = []string{"name", "created_at"}

func (repo *eventRepository) CreateRoom(ctx context.Context, room event.Room) (event.Room, error) {
	room.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO room (`+roomColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		room.ID, room.EditionID, room.Name, room.Description, room.CreatedAt.UTC(), room.UpdatedAt.UTC(),
	)
	if err != nil {
		return event.Room{}, errors.Wrap(err, "inserting room")
	}
	return room, nil
}

func (repo *eventRepository) GetRoomByID(ctx context.Context, id string) (event.Room, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Room{}, event.ErrRoomNotFound
	}
	var room event.Room
	err := repo.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM room WHERE id = $1`, id)
	if err != nil {
		return event.Room{}, trapNoRowsErr(err, event.ErrRoomNotFound, "finding room by ID")
	}
	return room, nil
}

func (repo *eventRepository) QueryRooms(ctx context.Context, editionID string, ordering []core.DBOrdering) ([]event.Room, error) {
	rooms := make([]event.Room, 0)
	query := `SELECT ` + roomColumns + ` FROM room WHERE edition_id = $1` + orderBy(ordering, roomSortable, "name ASC")
	if err := repo.db.SelectContext(ctx, &rooms, query, editionID); err != nil {
		return nil, errors.Wrap(err, "querying rooms")
	}
	return rooms, nil
}

func (repo *eventRepository) UpdateRoom(ctx context.Context, room event.Room) (event.Room, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE room SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		room.Name, room.Description, room.UpdatedAt.UTC(), room.ID,
	)
	if err != nil {
		return event.Room{}, errors.Wrap(err, "updating room")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Room{}, event.ErrRoomNotFound
	}
	return repo.GetRoomByID(ctx, room.ID)
}

func (repo *eventRepository) DeleteRoom(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM room WHERE id = $1`, id); err != nil {
		var pqErr *pq.Error
		if errors.As(errors.Cause(err), &pqErr) && pqErr.Code.Class() == "23" {
			return event.ErrRoomReferenced
		}
		return errors.Wrap(err, "deleting room")
	}
	return nil
}

func boolPtrToNull(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return *b
}
