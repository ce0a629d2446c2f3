package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/wepgcomp/wepgcomp/core/evaluation"
	"github.com/wepgcomp/wepgcomp/core/schedule"
	"github.com/wepgcomp/wepgcomp/core/user"
	testutil "github.com/wepgcomp/wepgcomp/tests"
)

func Test_evaluationApi_submit(t *testing.T) {
	testutil.ResetDB(t, db)

	professor := testutil.CreateUser(t, usrRepo, "Professor", "prof@test.br", "",
		user.ProfileProfessor, user.LevelDefault, true)
	listener := testutil.CreateUser(t, usrRepo, "Listener", "listener@test.br", "",
		user.ProfileListener, user.LevelDefault, true)
	presenter := testutil.CreateUser(t, usrRepo, "Presenter", "presenter@test.br", "",
		user.ProfilePresenter, user.LevelDefault, true)

	start := time.Date(2026, time.November, 9, 9, 0, 0, 0, time.UTC)
	ed := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2026", start, 5, 20, 3, true)
	blk := testutil.CreateBlock(t, schedRepo, ed.ID, "Session A", start, 60)
	sub := testutil.CreateSubmission(t, subRepo, ed.ID, presenter.ID, "Paper One")
	prez := testutil.CreatePresentation(t, schedRepo, sub.ID, blk.ID, 0)

	profToken := getToken(t, professor)

	tests := []httpTest{
		{
			name: "Auth required", body: marchallObj(t, evaluation.NewEvaluation{PresentationID: prez.ID, Score: 5}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Score bounds", token: profToken,
			body:     marchallObj(t, evaluation.NewEvaluation{PresentationID: prez.ID, Score: 6}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown presentation", token: profToken,
			body:     marchallObj(t, evaluation.NewEvaluation{PresentationID: "deadbeef", Score: 5}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "presentation not found"}),
		},
		{
			name: "Submitted", token: profToken,
			body:     marchallObj(t, evaluation.NewEvaluation{PresentationID: prez.ID, Score: 5, Comment: "Solid work"}),
			wantCode: http.StatusCreated,
		},
		{
			name: "One evaluation per user", token: profToken,
			body:     marchallObj(t, evaluation.NewEvaluation{PresentationID: prez.ID, Score: 1}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"presentation_id": "user already evaluated this presentation"}),
		},
		{
			name: "Audience score", token: getToken(t, listener),
			body:     marchallObj(t, evaluation.NewEvaluation{PresentationID: prez.ID, Score: 3}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/evaluations", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				if tt.wantCode == http.StatusCreated {
					var ev evaluation.Evaluation
					if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
						t.Fatalf("json.Unmarshal(): %v", err)
					}
					if ev.UserID == "" {
						t.Error("evaluation must record the authenticated user")
					}
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// both averages end up on the presentation
	req, rec := newRequest(http.MethodGet, "/api/presentations/"+prez.ID)
	app.ServeHTTP(rec, req)
	var scored schedule.Presentation
	if err := json.Unmarshal(rec.Body.Bytes(), &scored); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if !scored.EvaluatorsAverageScore.Valid || scored.EvaluatorsAverageScore.Float64 != 5 {
		t.Errorf("evaluators average = %+v, want 5", scored.EvaluatorsAverageScore)
	}
	if !scored.PublicAverageScore.Valid || scored.PublicAverageScore.Float64 != 3 {
		t.Errorf("public average = %+v, want 3", scored.PublicAverageScore)
	}
}

func Test_evaluationApi_adminOnlyReads(t *testing.T) {
	testutil.ResetDB(t, db)

	listener := testutil.CreateUser(t, usrRepo, "Listener", "listener@test.br", "",
		user.ProfileListener, user.LevelDefault, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.br", "",
		user.ProfileProfessor, user.LevelAdmin, true)
	presenter := testutil.CreateUser(t, usrRepo, "Presenter", "presenter@test.br", "",
		user.ProfilePresenter, user.LevelDefault, true)

	start := time.Date(2026, time.November, 9, 9, 0, 0, 0, time.UTC)
	ed := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2026", start, 5, 20, 3, true)
	blk := testutil.CreateBlock(t, schedRepo, ed.ID, "Session A", start, 60)
	sub := testutil.CreateSubmission(t, subRepo, ed.ID, presenter.ID, "Paper One")
	prez := testutil.CreatePresentation(t, schedRepo, sub.ID, blk.ID, 0)

	// seed one evaluation through the API
	req, rec := newAuthRequest(http.MethodPost, "/api/evaluations", getToken(t, listener),
		marchallObj(t, evaluation.NewEvaluation{PresentationID: prez.ID, Score: 4}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed code = %v; body %s", rec.Code, rec.Body.String())
	}
	var ev evaluation.Evaluation
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}

	tests := []httpTest{
		{
			name: "Listing needs admin", method: http.MethodGet, path: "/api/evaluations",
			token: getToken(t, listener), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Listing filtered", method: http.MethodGet, path: "/api/evaluations?presentation_id=" + prez.ID,
			token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, ev),
		},
		{
			name: "Detail", method: http.MethodGet, path: "/api/evaluations/" + ev.ID,
			token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, ev),
		},
		{
			name: "Destroy needs admin", method: http.MethodDelete, path: "/api/evaluations/" + ev.ID,
			token: getToken(t, listener), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// destroying the only evaluation clears the audience average
	req, rec = newAuthRequest(http.MethodDelete, "/api/evaluations/"+ev.ID, getToken(t, admin))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("destroy code = %v; body %s", rec.Code, rec.Body.String())
	}
	req, rec = newRequest(http.MethodGet, "/api/presentations/"+prez.ID)
	app.ServeHTTP(rec, req)
	var scored schedule.Presentation
	if err := json.Unmarshal(rec.Body.Bytes(), &scored); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if scored.PublicAverageScore.Valid {
		t.Errorf("public average = %+v, want null after the evaluation is removed", scored.PublicAverageScore)
	}
}
