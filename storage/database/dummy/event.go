package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEdition(ctx context.Context, ed event.Edition) (event.Edition, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ed.ID = uuid.New().String()
	repo.db.editions[ed.ID] = &ed
	return ed, nil
}

func (repo *eventRepository) GetEditionByID(ctx context.Context, id string) (event.Edition, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ed, ok := repo.db.editions[id]; ok {
		return *ed, nil
	}
	return event.Edition{}, event.ErrNotFound
}

func (repo *eventRepository) GetActiveEdition(ctx context.Context) (event.Edition, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, ed := range repo.db.editions {
		if ed.IsActive {
			return *ed, nil
		}
	}
	return event.Edition{}, event.ErrNoActive
}

func (repo *eventRepository) QueryEditions(ctx context.Context, ordering []core.DBOrdering) ([]event.Edition, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	editions := make([]event.Edition, 0, len(repo.db.editions))
	for _, ed := range repo.db.editions {
		editions = append(editions, *ed)
	}
	sort.Slice(editions, func(i, j int) bool { return editions[i].StartDate.After(editions[j].StartDate) })
	return editions, nil
}

func (repo *eventRepository) UpdateEdition(ctx context.Context, ed event.Edition, isActive *bool) (event.Edition, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.editions[ed.ID]
	if !ok {
		return event.Edition{}, event.ErrNotFound
	}

	orig.Name = ed.Name
	orig.Description = ed.Description
	orig.Location = ed.Location
	orig.StartDate = ed.StartDate
	orig.EndDate = ed.EndDate
	orig.SubmissionStartDate = ed.SubmissionStartDate
	orig.SubmissionDeadline = ed.SubmissionDeadline
	orig.IsEvaluationRestrictToLoggedUsers = ed.IsEvaluationRestrictToLoggedUsers
	orig.PresentationDuration = ed.PresentationDuration
	orig.PresentationsPerBlock = ed.PresentationsPerBlock
	orig.UpdatedAt = ed.UpdatedAt
	if isActive != nil {
		orig.IsActive = *isActive
	}
	return *orig, nil
}

func (repo *eventRepository) SetActiveEdition(ctx context.Context, id string) (event.Edition, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ed, ok := repo.db.editions[id]
	if !ok {
		return event.Edition{}, event.ErrNotFound
	}

	now := time.Now().UTC()
	for _, other := range repo.db.editions {
		if other.IsActive && other.ID != id {
			other.IsActive = false
			other.UpdatedAt = now
		}
	}
	ed.IsActive = true
	ed.UpdatedAt = now
	return *ed, nil
}

func (repo *eventRepository) DeleteEdition(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.editions, id)
	return nil
}

func (repo *eventRepository) CreateRoom(ctx context.Context, room event.Room) (event.Room, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	room.ID = uuid.New().String()
	repo.db.rooms[room.ID] = &room
	return room, nil
}

func (repo *eventRepository) GetRoomByID(ctx context.Context, id string) (event.Room, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if room, ok := repo.db.rooms[id]; ok {
		return *room, nil
	}
	return event.Room{}, event.ErrRoomNotFound
}

func (repo *eventRepository) QueryRooms(ctx context.Context, editionID string, ordering []core.DBOrdering) ([]event.Room, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rooms := make([]event.Room, 0)
	for _, room := range repo.db.rooms {
		if room.EditionID == editionID {
			rooms = append(rooms, *room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

func (repo *eventRepository) UpdateRoom(ctx context.Context, room event.Room) (event.Room, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.rooms[room.ID]
	if !ok {
		return event.Room{}, event.ErrRoomNotFound
	}
	orig.Name = room.Name
	orig.Description = room.Description
	orig.UpdatedAt = room.UpdatedAt
	return *orig, nil
}

func (repo *eventRepository) DeleteRoom(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, blk := range repo.db.blocks {
		if blk.RoomID.Valid && blk.RoomID.String == id {
			return event.ErrRoomReferenced
		}
	}
	delete(repo.db.rooms, id)
	return nil
}
