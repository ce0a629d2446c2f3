package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/event"
	"github.com/wepgcomp/wepgcomp/core/schedule"
	dummydb "github.com/wepgcomp/wepgcomp/storage/database/dummy"
	testutil "github.com/wepgcomp/wepgcomp/tests"
)

func setup(t *testing.T) (event.Service, *dummydb.DB) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return event.NewService(dummydb.NewEventRepository(db)), db
}

func Test_service_SetActive(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	repo := dummydb.NewEventRepository(db)
	start := time.Date(2026, time.November, 9, 0, 0, 0, 0, time.UTC)

	// no edition is active yet
	if _, err := svc.GetActive(ctx); errors.Cause(err) != event.ErrNoActive {
		t.Fatalf("GetActive() error = %v, want %v", err, event.ErrNoActive)
	}

	ed2025 := testutil.CreateEdition(t, repo, "WEPGCOMP 2025", start.AddDate(-1, 0, 0), 5, 20, 3, true)
	ed2026 := testutil.CreateEdition(t, repo, "WEPGCOMP 2026", start, 5, 20, 3, false)

	active, err := svc.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive() failed: %v", err)
	}
	if active.ID != ed2025.ID {
		t.Errorf("GetActive() = %v, want %v", active.ID, ed2025.ID)
	}

	// activating 2026 deactivates 2025
	if _, err = svc.SetActive(ctx, ed2026.ID); err != nil {
		t.Fatalf("SetActive() failed: %v", err)
	}
	active, err = svc.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive() failed: %v", err)
	}
	if active.ID != ed2026.ID {
		t.Errorf("GetActive() = %v, want %v", active.ID, ed2026.ID)
	}
	old, err := svc.GetByID(ctx, ed2025.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if old.IsActive {
		t.Error("SetActive() must deactivate the previously active edition")
	}

	// unknown edition
	if _, err = svc.SetActive(ctx, "00000000-0000-0000-0000-000000000000"); errors.Cause(err) != event.ErrNotFound {
		t.Errorf("SetActive() error = %v, want %v", err, event.ErrNotFound)
	}
}

func Test_service_rooms(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	start := time.Date(2026, time.November, 9, 0, 0, 0, 0, time.UTC)

	ed := testutil.CreateEdition(t, dummydb.NewEventRepository(db), "WEPGCOMP 2026", start, 5, 20, 3, true)

	// rooms belong to an existing edition
	if _, err := svc.CreateRoom(ctx, event.NewRoom{EditionID: "nope", Name: "Auditorium"}); errors.Cause(err) != event.ErrNotFound {
		t.Fatalf("CreateRoom() error = %v, want %v", err, event.ErrNotFound)
	}

	room, err := svc.CreateRoom(ctx, event.NewRoom{EditionID: ed.ID, Name: "Auditorium"})
	if err != nil {
		t.Fatalf("CreateRoom() failed: %v", err)
	}

	rooms, err := svc.QueryRooms(ctx, ed.ID, nil)
	if err != nil {
		t.Fatalf("QueryRooms() failed: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("QueryRooms() len = %d, want 1", len(rooms))
	}

	// a room referenced by a block cannot be deleted
	schedRepo := dummydb.NewScheduleRepository(db)
	now := time.Now().UTC()
	blk, err := schedRepo.CreateBlock(ctx, schedule.Block{
		EditionID: ed.ID,
		RoomID:    testutil.NullStr(room.ID),
		Type:      schedule.BlockTypePresentation,
		Title:     "Session A",
		StartTime: start,
		Duration:  60,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateBlock() failed: %v", err)
	}
	var cErr *core.StateConflictError
	if err := svc.DeleteRoom(ctx, room.ID); !errors.As(err, &cErr) {
		t.Fatalf("DeleteRoom() error = %v, want StateConflictError", err)
	}

	// unreferenced rooms go away
	if err := schedRepo.DeleteBlock(ctx, blk.ID); err != nil {
		t.Fatalf("DeleteBlock() failed: %v", err)
	}
	if err := svc.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("DeleteRoom() failed: %v", err)
	}
	if _, err := svc.GetRoomByID(ctx, room.ID); errors.Cause(err) != event.ErrRoomNotFound {
		t.Errorf("GetRoomByID() error = %v, want %v", err, event.ErrRoomNotFound)
	}
}
