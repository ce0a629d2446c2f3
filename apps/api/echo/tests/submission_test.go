package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	echoapi "github.com/wepgcomp/wepgcomp/apps/api/echo"
	"github.com/wepgcomp/wepgcomp/core/submission"
	"github.com/wepgcomp/wepgcomp/core/user"
	testutil "github.com/wepgcomp/wepgcomp/tests"
)

func Test_submissionApi_create(t *testing.T) {
	testutil.ResetDB(t, db)

	presenter := testutil.CreateUser(t, usrRepo, "Presenter", "presenter@test.br", "",
		user.ProfilePresenter, user.LevelDefault, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other@test.br", "",
		user.ProfilePresenter, user.LevelDefault, true)

	// submission window open: starts in two weeks
	start := time.Now().UTC().AddDate(0, 0, 14)
	ed := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2026", start, 5, 20, 3, true)

	newSub := func(title, mainAuthorID string) []byte {
		return marchallObj(t, submission.NewSubmission{
			EditionID:    ed.ID,
			MainAuthorID: mainAuthorID,
			Title:        title,
			Abstract:     "An abstract long enough to pass validation.",
			PDFFileKey:   "submissions/test.pdf",
			PhoneNumber:  "+55 71 99999-0000",
		})
	}

	tests := []httpTest{
		{name: "Auth required", body: newSub("Paper One", ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Cannot submit for someone else", body: newSub("Paper One", other.ID), token: getToken(t, presenter),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{name: "Created, author defaulted", body: newSub("Paper One", ""), token: getToken(t, presenter), wantCode: http.StatusCreated},
		{
			name: "One submission per edition", body: newSub("Paper Too", presenter.ID), token: getToken(t, presenter),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"main_author_id": "main author already has a submission in this edition"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/submissions", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var sub submission.Submission
				if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if sub.MainAuthorID != presenter.ID {
					t.Errorf("main author = %v, want the authenticated user %v", sub.MainAuthorID, presenter.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_submissionApi_queryScoping(t *testing.T) {
	testutil.ResetDB(t, db)

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice@test.br", "",
		user.ProfilePresenter, user.LevelDefault, true)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob@test.br", "",
		user.ProfilePresenter, user.LevelDefault, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.br", "",
		user.ProfileProfessor, user.LevelAdmin, true)

	ed := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2026", time.Now().UTC().AddDate(0, 0, 14), 5, 20, 3, true)
	aliceSub := testutil.CreateSubmission(t, subRepo, ed.ID, alice.ID, "Alice Paper")
	testutil.CreateSubmission(t, subRepo, ed.ID, bob.ID, "Bob Paper")

	fetch := func(t *testing.T, token string) []submission.Detail {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/api/submissions", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("list code = %v; body %s", rec.Code, rec.Body.String())
		}
		var subs []submission.Detail
		if err := json.Unmarshal(rec.Body.Bytes(), &subs); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		return subs
	}

	if subs := fetch(t, getToken(t, alice)); len(subs) != 1 || subs[0].ID != aliceSub.ID {
		t.Errorf("non-admins must only see their own submissions; got %+v", subs)
	}
	if subs := fetch(t, getToken(t, admin)); len(subs) != 2 {
		t.Errorf("admins see every submission; got %d", len(subs))
	}

	// detail access: strangers get a 404, not a 403
	req, rec := newAuthRequest(http.MethodGet, "/api/submissions/"+aliceSub.ID, getToken(t, bob))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/api/submissions/"+aliceSub.ID, getToken(t, alice))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("owner detail code = %v; body %s", rec.Code, rec.Body.String())
	}
}

func Test_submissionApi_upload(t *testing.T) {
	testutil.ResetDB(t, db)

	presenter := testutil.CreateUser(t, usrRepo, "Presenter", "presenter@test.br", "",
		user.ProfilePresenter, user.LevelDefault, true)
	token := getToken(t, presenter)

	newUpload := func(t *testing.T, filename string) (*http.Request, *httptest.ResponseRecorder) {
		t.Helper()
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile(): %v", err)
		}
		if _, err = part.Write([]byte("%PDF-1.4 test")); err != nil {
			t.Fatalf("part.Write(): %v", err)
		}
		if err = w.Close(); err != nil {
			t.Fatalf("multipart.Close(): %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/submissions/upload", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		return req, httptest.NewRecorder()
	}

	// PDFs only
	req, rec := newUpload(t, "paper.docx")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"file": "only PDF files are accepted"}),
	}, rec)

	req, rec = newUpload(t, "paper.pdf")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if !strings.HasPrefix(resp.PDFFileKey, "submissions/") || !strings.HasSuffix(resp.PDFFileKey, ".pdf") {
		t.Errorf("pdf_file_key = %q, want submissions/<uuid>.pdf", resp.PDFFileKey)
	}
}
