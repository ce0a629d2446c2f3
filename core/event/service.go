package event

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
)

var (
	// errors
	ErrNotFound       = errors.New("event edition not found")
	ErrRoomNotFound   = errors.New("room not found")
	ErrNoActive       = errors.New("no active event edition")
	ErrRoomReferenced = errors.New("room is still referenced by presentation blocks")
)

type (
	Repository interface {
		CreateEdition(ctx context.Context, ed Edition) (Edition, error)
		GetEditionByID(ctx context.Context, id string) (Edition, error)
		GetActiveEdition(ctx context.Context) (Edition, error)
		QueryEditions(ctx context.Context, ordering []core.DBOrdering) ([]Edition, error)
		UpdateEdition(ctx context.Context, ed Edition, isActive *bool) (Edition, error)
		// SetActiveEdition atomically deactivates every other edition and
		// activates the given one.
		SetActiveEdition(ctx context.Context, id string) (Edition, error)
		DeleteEdition(ctx context.Context, id string) error

		CreateRoom(ctx context.Context, room Room) (Room, error)
		GetRoomByID(ctx context.Context, id string) (Room, error)
		QueryRooms(ctx context.Context, editionID string, ordering []core.DBOrdering) ([]Room, error)
		UpdateRoom(ctx context.Context, room Room) (Room, error)
		DeleteRoom(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, ne NewEdition) (Edition, error)
		GetByID(ctx context.Context, id string) (Edition, error)
		GetActive(ctx context.Context) (Edition, error)
		Query(ctx context.Context, ordering []core.DBOrdering) ([]Edition, error)
		Update(ctx context.Context, id string, ue UpdateEdition) (Edition, error)
		SetActive(ctx context.Context, id string) (Edition, error)
		Delete(ctx context.Context, id string) error

		CreateRoom(ctx context.Context, nr NewRoom) (Room, error)
		GetRoomByID(ctx context.Context, id string) (Room, error)
		QueryRooms(ctx context.Context, editionID string, ordering []core.DBOrdering) ([]Room, error)
		UpdateRoom(ctx context.Context, id string, nr NewRoom) (Room, error)
		DeleteRoom(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, ne NewEdition) (Edition, error) {
	now := time.Now().UTC()
	ed := Edition{
		Name:                              ne.Name,
		Description:                       ne.Description,
		Location:                          ne.Location,
		StartDate:                         ne.StartDate,
		EndDate:                           ne.EndDate,
		SubmissionStartDate:               ne.SubmissionStartDate,
		SubmissionDeadline:                ne.SubmissionDeadline,
		IsEvaluationRestrictToLoggedUsers: ne.IsEvaluationRestrictToLoggedUsers,
		PresentationDuration:              ne.PresentationDuration,
		PresentationsPerBlock:             ne.PresentationsPerBlock,
		CreatedAt:                         now,
		UpdatedAt:                         now,
	}
	return svc.repo.CreateEdition(ctx, ed)
}

func (svc *service) GetByID(ctx context.Context, id string) (Edition, error) {
	return svc.repo.GetEditionByID(ctx, id)
}

func (svc *service) GetActive(ctx context.Context) (Edition, error) {
	return svc.repo.GetActiveEdition(ctx)
}

func (svc *service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Edition, error) {
	return svc.repo.QueryEditions(ctx, ordering)
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateEdition) (Edition, error) {
	ed := Edition{
		ID:                    id,
		Name:                  ue.Name,
		Description:           ue.Description,
		Location:              ue.Location,
		StartDate:             ue.StartDate,
		EndDate:               ue.EndDate,
		SubmissionStartDate:   ue.SubmissionStartDate,
		SubmissionDeadline:    ue.SubmissionDeadline,
		PresentationDuration:  ue.PresentationDuration,
		PresentationsPerBlock: ue.PresentationsPerBlock,
		UpdatedAt:             time.Now().UTC(),
	}
	if ue.IsEvaluationRestrictToLoggedUsers != nil {
		ed.IsEvaluationRestrictToLoggedUsers = *ue.IsEvaluationRestrictToLoggedUsers
	}
	return svc.repo.UpdateEdition(ctx, ed, nil)
}

func (svc *service) SetActive(ctx context.Context, id string) (Edition, error) {
	return svc.repo.SetActiveEdition(ctx, id)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEdition(ctx, id)
}

func (svc *service) CreateRoom(ctx context.Context, nr NewRoom) (Room, error) {
	if _, err := svc.repo.GetEditionByID(ctx, nr.EditionID); err != nil {
		return Room{}, err
	}
	now := time.Now().UTC()
	room := Room{
		EditionID:   nr.EditionID,
		Name:        nr.Name,
		Description: nr.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateRoom(ctx, room)
}

func (svc *service) GetRoomByID(ctx context.Context, id string) (Room, error) {
	return svc.repo.GetRoomByID(ctx, id)
}

func (svc *service) QueryRooms(ctx context.Context, editionID string, ordering []core.DBOrdering) ([]Room, error) {
	return svc.repo.QueryRooms(ctx, editionID, ordering)
}

func (svc *service) UpdateRoom(ctx context.Context, id string, nr NewRoom) (Room, error) {
	room, err := svc.repo.GetRoomByID(ctx, id)
	if err != nil {
		return Room{}, err
	}
	room.Name = nr.Name
	room.Description = nr.Description
	room.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRoom(ctx, room)
}

func (svc *service) DeleteRoom(ctx context.Context, id string) error {
	if err := svc.repo.DeleteRoom(ctx, id); err != nil {
		if errors.Cause(err) == ErrRoomReferenced {
			return core.NewStateConflictError(ErrRoomReferenced)
		}
		return err
	}
	return nil
}
