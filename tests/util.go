package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/wepgcomp/wepgcomp/core/event"
	"github.com/wepgcomp/wepgcomp/core/schedule"
	"github.com/wepgcomp/wepgcomp/core/submission"
	"github.com/wepgcomp/wepgcomp/core/user"
	dummydb "github.com/wepgcomp/wepgcomp/storage/database/dummy"
)

// ResetDB empties all tables between tests.
func ResetDB(t *testing.T, db *dummydb.DB) {
	t.Helper()
	db.Reset()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	profile user.Profile,
	level user.Level,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:            name,
		Email:           email,
		Profile:         profile,
		Level:           level,
		IsActive:        isActive,
		IsEmailVerified: true,
		CreatedAt:       tstamp,
		UpdatedAt:       tstamp,
	}
	user.ComputeFlags(profile, level, nil).Apply(&usr)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateEdition(
	t *testing.T,
	repo event.Repository,
	name string,
	start time.Time,
	days int,
	presentationDuration, presentationsPerBlock int,
	isActive bool,
) event.Edition {
	t.Helper()

	now := time.Now().UTC()
	ed, err := repo.CreateEdition(context.Background(), event.Edition{
		Name:                  name,
		Location:              "Salvador, BA",
		StartDate:             start,
		EndDate:               start.AddDate(0, 0, days),
		SubmissionStartDate:   start.AddDate(0, 0, -30),
		SubmissionDeadline:    start.AddDate(0, 0, -7),
		IsActive:              isActive,
		PresentationDuration:  presentationDuration,
		PresentationsPerBlock: presentationsPerBlock,
		CreatedAt:             now,
		UpdatedAt:             now,
	})
	if err != nil {
		t.Fatalf("CreateEdition() failed: %v", err)
	}
	return ed
}

func CreateBlock(
	t *testing.T,
	repo schedule.Repository,
	editionID, title string,
	startTime time.Time,
	duration int,
) schedule.Block {
	t.Helper()

	now := time.Now().UTC()
	blk, err := repo.CreateBlock(context.Background(), schedule.Block{
		EditionID: editionID,
		Type:      schedule.BlockTypePresentation,
		Title:     title,
		StartTime: startTime,
		Duration:  duration,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateBlock() failed: %v", err)
	}
	return blk
}

func CreateSubmission(
	t *testing.T,
	repo submission.Repository,
	editionID, mainAuthorID, title string,
) submission.Submission {
	t.Helper()

	now := time.Now().UTC()
	sub, err := repo.CreateSubmission(context.Background(), submission.Submission{
		EditionID:    editionID,
		MainAuthorID: mainAuthorID,
		Title:        title,
		Abstract:     "An abstract long enough to pass validation.",
		PDFFileKey:   "submissions/" + title + ".pdf",
		PhoneNumber:  "+55 71 99999-0000",
		Status:       submission.StatusSubmitted,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return sub
}

func CreatePresentation(
	t *testing.T,
	repo schedule.Repository,
	submissionID, blockID string,
	position int,
) schedule.Presentation {
	t.Helper()

	now := time.Now().UTC()
	prez, err := repo.CreatePresentation(context.Background(), schedule.Presentation{
		SubmissionID: submissionID,
		BlockID:      blockID,
		Position:     position,
		Status:       schedule.StatusToPresent,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreatePresentation() failed: %v", err)
	}
	return prez
}

// NullStr wraps s in a valid null.String.
func NullStr(s string) null.String { return null.StringFrom(s) }

// NullInt wraps i in a valid null.Int.
func NullInt(i int) null.Int { return null.IntFrom(i) }
