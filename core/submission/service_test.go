package submission_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/submission"
	"github.com/wepgcomp/wepgcomp/core/user"
	storagesvc "github.com/wepgcomp/wepgcomp/services/storage"
	dummydb "github.com/wepgcomp/wepgcomp/storage/database/dummy"
	testutil "github.com/wepgcomp/wepgcomp/tests"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixture struct {
	svc   submission.Service
	db    *dummydb.DB
	files *storagesvc.MemoryService
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	files := storagesvc.NewMemoryService()
	svc := submission.NewService(
		dummydb.NewSubmissionRepository(db),
		dummydb.NewUserRepository(db),
		dummydb.NewEventRepository(db),
		dummydb.NewScheduleRepository(db),
		files,
		nopLogger{},
	)
	return fixture{svc: svc, db: db, files: files}
}

func newSubmissionInput(editionID, mainAuthorID, title string) submission.NewSubmission {
	return submission.NewSubmission{
		EditionID:    editionID,
		MainAuthorID: mainAuthorID,
		Title:        title,
		Abstract:     "An abstract long enough to pass validation.",
		PDFFileKey:   "submissions/" + strings.ToLower(title) + ".pdf",
		PhoneNumber:  "+55 71 99999-0000",
		Status:       submission.StatusSubmitted,
	}
}

func Test_service_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// the submission window spans [start-30d, start-7d]; start in 14 days
	// leaves it open
	openStart := time.Now().UTC().AddDate(0, 0, 14)
	eventRepo := dummydb.NewEventRepository(f.db)
	userRepo := dummydb.NewUserRepository(f.db)
	ed := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2026", openStart, 5, 20, 3, true)

	author := testutil.CreateUser(t, userRepo, "Author", "author@test.br", "pwd",
		user.ProfilePresenter, user.LevelDefault, true)
	advisor := testutil.CreateUser(t, userRepo, "Advisor", "advisor@test.br", "pwd",
		user.ProfileProfessor, user.LevelDefault, true)
	listener := testutil.CreateUser(t, userRepo, "Listener", "listener@test.br", "pwd",
		user.ProfileListener, user.LevelDefault, true)

	// advisor must hold the Professor profile
	ns := newSubmissionInput(ed.ID, author.ID, "Paper One")
	ns.AdvisorID = testutil.NullStr(listener.ID)
	if _, err := f.svc.Create(ctx, ns); errors.Cause(err) != submission.ErrAdvisorNotFound {
		t.Fatalf("Create() error = %v, want %v", err, submission.ErrAdvisorNotFound)
	}

	ns.AdvisorID = testutil.NullStr(advisor.ID)
	sub, err := f.svc.Create(ctx, ns)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if sub.ID == "" {
		t.Error("Create() must assign an id")
	}

	var vErr *core.ValidationError

	// one submission per author per edition
	_, err = f.svc.Create(ctx, newSubmissionInput(ed.ID, author.ID, "Paper Other"))
	if !errors.As(err, &vErr) || errors.Cause(vErr.Err) != submission.ErrAlreadySubmitted {
		t.Fatalf("Create() second submission error = %v, want %v", err, submission.ErrAlreadySubmitted)
	}

	// titles are unique within the edition
	author2 := testutil.CreateUser(t, userRepo, "Author2", "author2@test.br", "pwd",
		user.ProfilePresenter, user.LevelDefault, true)
	_, err = f.svc.Create(ctx, newSubmissionInput(ed.ID, author2.ID, "Paper One"))
	if !errors.As(err, &vErr) || errors.Cause(vErr.Err) != submission.ErrTitleExists {
		t.Fatalf("Create() duplicate title error = %v, want %v", err, submission.ErrTitleExists)
	}

	// closed window: edition started today, deadline passed a week ago
	closedEd := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2025", time.Now().UTC(), 5, 20, 3, false)
	_, err = f.svc.Create(ctx, newSubmissionInput(closedEd.ID, author2.ID, "Late Paper"))
	if !errors.As(err, &vErr) {
		t.Fatalf("Create() after deadline error = %v, want ValidationError", err)
	}
	if !strings.HasPrefix(vErr.Error(), "submissions closed on") {
		t.Errorf("Create() after deadline error = %q, must name the deadline", vErr.Error())
	}

	// window not yet open: edition starts in 60 days, window opens in 30
	futureEd := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2027", time.Now().UTC().AddDate(0, 0, 60), 5, 20, 3, false)
	_, err = f.svc.Create(ctx, newSubmissionInput(futureEd.ID, author2.ID, "Early Paper"))
	if !errors.As(err, &vErr) {
		t.Fatalf("Create() before window error = %v, want ValidationError", err)
	}
	if !strings.HasPrefix(vErr.Error(), "submissions open on") {
		t.Errorf("Create() before window error = %q, must name the opening date", vErr.Error())
	}
}

func Test_service_Create_placement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	openStart := time.Now().UTC().AddDate(0, 0, 14)
	eventRepo := dummydb.NewEventRepository(f.db)
	userRepo := dummydb.NewUserRepository(f.db)
	schedRepo := dummydb.NewScheduleRepository(f.db)

	// 20-minute slots, 60-minute block: positions 0..2
	ed := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2026", openStart, 5, 20, 3, true)
	otherEd := testutil.CreateEdition(t, eventRepo, "WEPGCOMP 2027", openStart.AddDate(1, 0, 0), 5, 20, 3, false)
	blk := testutil.CreateBlock(t, schedRepo, ed.ID, "Session A", openStart, 60)
	foreignBlk := testutil.CreateBlock(t, schedRepo, otherEd.ID, "Session X", openStart.AddDate(1, 0, 0), 60)

	author := testutil.CreateUser(t, userRepo, "Author", "author@test.br", "pwd",
		user.ProfilePresenter, user.LevelDefault, true)

	var vErr *core.ValidationError

	// proposed block must belong to the submission's edition
	ns := newSubmissionInput(ed.ID, author.ID, "Paper One")
	ns.ProposedBlockID = testutil.NullStr(foreignBlk.ID)
	ns.ProposedPosition = testutil.NullInt(0)
	if _, err := f.svc.Create(ctx, ns); !errors.As(err, &vErr) {
		t.Fatalf("Create() cross-edition block error = %v, want ValidationError", err)
	}

	// proposed position must fit the block
	ns.ProposedBlockID = testutil.NullStr(blk.ID)
	ns.ProposedPosition = testutil.NullInt(3)
	if _, err := f.svc.Create(ctx, ns); !errors.As(err, &vErr) {
		t.Fatalf("Create() out-of-range position error = %v, want ValidationError", err)
	}

	// a confirmed presentation occupies its slot
	occupant := testutil.CreateUser(t, userRepo, "Occupant", "occupant@test.br", "pwd",
		user.ProfilePresenter, user.LevelDefault, true)
	occSub := testutil.CreateSubmission(t, dummydb.NewSubmissionRepository(f.db), ed.ID, occupant.ID, "Occupying Paper")
	testutil.CreatePresentation(t, schedRepo, occSub.ID, blk.ID, 1)

	ns.ProposedPosition = testutil.NullInt(1)
	if _, err := f.svc.Create(ctx, ns); !errors.As(err, &vErr) {
		t.Fatalf("Create() occupied slot error = %v, want ValidationError", err)
	}

	// a free slot goes through, and the proposed start time derives from it
	ns.ProposedPosition = testutil.NullInt(2)
	sub, err := f.svc.Create(ctx, ns)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	detail, err := f.svc.GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if detail.ProposedStartTime == nil {
		t.Fatal("GetByID() proposed start time must be set")
	}
	if want := blk.StartTime.Add(40 * time.Minute); !detail.ProposedStartTime.Equal(want) {
		t.Errorf("GetByID() proposed start = %v, want %v", detail.ProposedStartTime, want)
	}

	// the submission keeps its own confirmed slot on update
	testutil.CreatePresentation(t, schedRepo, sub.ID, blk.ID, 2)
	us := submission.UpdateSubmission{}
	if err := us.Validate(detail.Submission); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if _, err := f.svc.Update(ctx, sub.ID, us); err != nil {
		t.Fatalf("Update() keeping own slot failed: %v", err)
	}
}

func Test_service_Delete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	openStart := time.Now().UTC().AddDate(0, 0, 14)
	ed := testutil.CreateEdition(t, dummydb.NewEventRepository(f.db), "WEPGCOMP 2026", openStart, 5, 20, 3, true)
	author := testutil.CreateUser(t, dummydb.NewUserRepository(f.db), "Author", "author@test.br", "pwd",
		user.ProfilePresenter, user.LevelDefault, true)

	ns := newSubmissionInput(ed.ID, author.ID, "Paper One")
	if err := f.files.Save(ns.PDFFileKey, strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	sub, err := f.svc.Create(ctx, ns)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// a failing file deletion must not block the row deletion
	f.files.FailDeletes = true
	deleted, err := f.svc.Delete(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if deleted.ID != sub.ID {
		t.Errorf("Delete() = %v, want %v", deleted.ID, sub.ID)
	}
	if _, err = f.svc.GetByID(ctx, sub.ID); errors.Cause(err) != submission.ErrNotFound {
		t.Errorf("GetByID() after delete error = %v, want %v", err, submission.ErrNotFound)
	}
	if !f.files.Has(ns.PDFFileKey) {
		t.Error("failed file deletion must leave the stored file in place")
	}
}

func Test_service_Update_omittedFields(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	openStart := time.Now().UTC().AddDate(0, 0, 14)
	ed := testutil.CreateEdition(t, dummydb.NewEventRepository(f.db), "WEPGCOMP 2026", openStart, 5, 20, 3, true)
	author := testutil.CreateUser(t, dummydb.NewUserRepository(f.db), "Author", "author@test.br", "pwd",
		user.ProfilePresenter, user.LevelDefault, true)

	sub, err := f.svc.Create(ctx, newSubmissionInput(ed.ID, author.ID, "Paper One"))
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	confirm := submission.UpdateSubmission{Status: submission.StatusConfirmed}
	if err = confirm.Validate(sub); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if sub, err = f.svc.Update(ctx, sub.ID, confirm); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if sub.Status != submission.StatusConfirmed {
		t.Fatalf("Status = %v, want %v", sub.Status, submission.StatusConfirmed)
	}

	// an update that omits the status must not reset it
	us := submission.UpdateSubmission{Abstract: "A freshly reworded abstract for the paper."}
	if err = us.Validate(sub); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	updated, err := f.svc.Update(ctx, sub.ID, us)
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.Status != submission.StatusConfirmed {
		t.Errorf("Status = %v, want %v", updated.Status, submission.StatusConfirmed)
	}
	if updated.Title != sub.Title || updated.PhoneNumber != sub.PhoneNumber {
		t.Errorf("omitted fields must keep their values; got %+v", updated)
	}
	if updated.Abstract == sub.Abstract {
		t.Error("supplied abstract must be written")
	}

	// a submission may keep its own title on update
	same := submission.UpdateSubmission{Title: sub.Title}
	if err = same.Validate(updated); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if _, err = f.svc.Update(ctx, sub.ID, same); err != nil {
		t.Errorf("Update() with own title error = %v, want nil", err)
	}
}
