package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/wepgcomp/wepgcomp/core/event"
	"github.com/wepgcomp/wepgcomp/core/schedule"
	"github.com/wepgcomp/wepgcomp/core/user"
	testutil "github.com/wepgcomp/wepgcomp/tests"
)

func Test_eventApi_editionQuery(t *testing.T) {
	testutil.ResetDB(t, db)

	now := time.Now().UTC().Truncate(time.Second)
	older := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2025", now.AddDate(-1, 0, 0), 5, 20, 3, false)
	newer := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2026", now.AddDate(0, 2, 0), 5, 20, 3, true)

	tests := []httpTest{
		{name: "List is public", path: "/api/editions", wantCode: http.StatusOK, wantData: marchallList(t, newer, older)},
		{name: "Active edition", path: "/api/editions/active", wantCode: http.StatusOK, wantData: marchallObj(t, newer)},
		{name: "Detail", path: "/api/editions/" + older.ID, wantCode: http.StatusOK, wantData: marchallObj(t, older)},
		{
			name: "Unknown edition", path: "/api/editions/deadbeef", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "event edition not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_eventApi_editionCreate(t *testing.T) {
	testutil.ResetDB(t, db)

	listener := testutil.CreateUser(t, usrRepo, "Listener", "listener@test.br", "",
		user.ProfileListener, user.LevelDefault, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.br", "",
		user.ProfileProfessor, user.LevelAdmin, true)

	start := time.Date(2026, time.November, 9, 0, 0, 0, 0, time.UTC)
	body := marchallObj(t, event.NewEdition{
		Name:                  "WEPGCOMP 2026",
		Location:              "Salvador, BA",
		StartDate:             start,
		EndDate:               start.AddDate(0, 0, 5),
		SubmissionStartDate:   start.AddDate(0, 0, -30),
		SubmissionDeadline:    start.AddDate(0, 0, -7),
		PresentationDuration:  20,
		PresentationsPerBlock: 3,
	})

	tests := []httpTest{
		{name: "Auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", body: body, token: getToken(t, listener),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Deadline before window start", token: getToken(t, admin),
			body: marchallObj(t, event.NewEdition{
				Name:                  "Broken",
				StartDate:             start,
				EndDate:               start.AddDate(0, 0, 5),
				SubmissionStartDate:   start.AddDate(0, 0, -7),
				SubmissionDeadline:    start.AddDate(0, 0, -30),
				PresentationDuration:  20,
				PresentationsPerBlock: 3,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"submission_deadline": "submission_deadline must be greater than or equal to SubmissionStartDate",
			}),
		},
		{name: "Created", body: body, token: getToken(t, admin), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/editions", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var ed event.Edition
				if err := json.Unmarshal(rec.Body.Bytes(), &ed); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if ed.ID == "" || ed.IsActive {
					t.Errorf("new edition must get an ID and start inactive; got %+v", ed)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_eventApi_editionSetActive(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.br", "",
		user.ProfileProfessor, user.LevelAdmin, true)
	now := time.Now().UTC().Truncate(time.Second)
	prev := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2025", now.AddDate(-1, 0, 0), 5, 20, 3, true)
	next := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2026", now.AddDate(0, 2, 0), 5, 20, 3, false)

	req, rec := newAuthRequest(http.MethodPost, "/api/editions/"+next.ID+"/set-active", getToken(t, admin))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("set-active code = %v; body %s", rec.Code, rec.Body.String())
	}

	var activated event.Edition
	if err := json.Unmarshal(rec.Body.Bytes(), &activated); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if !activated.IsActive || activated.ID != next.ID {
		t.Errorf("set-active did not activate the edition; got %+v", activated)
	}

	// previous active edition was switched off
	req, rec = newRequest(http.MethodGet, "/api/editions/"+prev.ID)
	app.ServeHTTP(rec, req)
	var demoted event.Edition
	if err := json.Unmarshal(rec.Body.Bytes(), &demoted); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if demoted.IsActive {
		t.Error("only one edition may be active at a time")
	}
}

func Test_eventApi_rooms(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.br", "",
		user.ProfileProfessor, user.LevelAdmin, true)
	ed := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2026", time.Now().UTC().AddDate(0, 2, 0), 5, 20, 3, true)
	adminToken := getToken(t, admin)

	// create
	req, rec := newAuthRequest(http.MethodPost, "/api/rooms", adminToken,
		marchallObj(t, event.NewRoom{EditionID: ed.ID, Name: "Auditorio A"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create room code = %v; body %s", rec.Code, rec.Body.String())
	}
	var room event.Room
	if err := json.Unmarshal(rec.Body.Bytes(), &room); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}

	// anonymous listing scoped by edition
	req, rec = newRequest(http.MethodGet, "/api/rooms?edition_id="+ed.ID)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, room)}, rec)

	// anonymous writes are rejected
	req, rec = newRequest(http.MethodDelete, "/api/rooms/"+room.ID)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	// a room referenced by a block cannot be removed
	if _, err := schedRepo.CreateBlock(context.Background(), schedule.Block{
		EditionID: ed.ID,
		RoomID:    testutil.NullStr(room.ID),
		Type:      schedule.BlockTypePresentation,
		Title:     "Session A",
		StartTime: time.Now().UTC().AddDate(0, 2, 1),
		Duration:  60,
	}); err != nil {
		t.Fatalf("CreateBlock(): %v", err)
	}
	req, rec = newAuthRequest(http.MethodDelete, "/api/rooms/"+room.ID, adminToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict,
		wantData: marchallObj(t, httpErr{Error: "room is still referenced by presentation blocks"}),
	}, rec)
}
