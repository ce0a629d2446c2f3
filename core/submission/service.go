package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/event"
	"github.com/wepgcomp/wepgcomp/core/schedule"
	"github.com/wepgcomp/wepgcomp/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("submission not found")
	ErrAdvisorNotFound    = errors.New("advisor not found")
	ErrMainAuthorNotFound = errors.New("main author not found")
	ErrAlreadySubmitted   = errors.New("main author already has a submission in this edition")
	ErrTitleExists        = errors.New("a submission with this title already exists in this edition")
	ErrInvalidPosition    = errors.New("proposed position exceeds the block capacity")
	ErrPositionTaken      = errors.New("proposed position is already taken in this block")
	ErrBlockEditionMismatch = errors.New("proposed block belongs to another edition")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		// SubmissionExists is the schedule package's SubmissionChecker.
		SubmissionExists(ctx context.Context, id string) error
		// CheckAuthorUniqueness fails with ErrAlreadySubmitted when the main
		// author already has a submission in the edition, excludedSubs aside.
		CheckAuthorUniqueness(ctx context.Context, mainAuthorID, editionID string, excludedSubs ...Submission) error
		// CheckTitleUniqueness fails with ErrTitleExists when the (title,
		// edition) pair is taken, excludedSubs aside. Case-sensitive.
		CheckTitleUniqueness(ctx context.Context, title, editionID string, excludedSubs ...Submission) error
		QuerySubmissions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)
		DeleteSubmission(ctx context.Context, id string) error
	}

	// UserStore resolves users; satisfied by the user repository.
	UserStore interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
	}

	// EditionStore resolves editions; satisfied by the event repository.
	EditionStore interface {
		GetEditionByID(ctx context.Context, id string) (event.Edition, error)
	}

	// PlacementStore resolves blocks and confirmed occupancy; satisfied by the
	// schedule repository.
	PlacementStore interface {
		GetBlockByID(ctx context.Context, id string) (schedule.Block, error)
		GetPresentationAt(ctx context.Context, blockID string, position int) (schedule.Presentation, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewSubmission) (Submission, error)
		GetByID(ctx context.Context, id string) (Detail, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Detail, error)
		Update(ctx context.Context, id string, us UpdateSubmission) (Submission, error)
		// Delete removes the submission and best-effort deletes its uploaded
		// file; a failed file deletion is logged, not propagated.
		Delete(ctx context.Context, id string) (Submission, error)
		// ProposedStartTime derives the advisory wall-clock start of sub, or
		// nil when the placement is incomplete.
		ProposedStartTime(ctx context.Context, sub Submission) (*time.Time, error)
	}

	service struct {
		repo       Repository
		users      UserStore
		editions   EditionStore
		placements PlacementStore
		files      core.FileStorage
		logger     core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	users UserStore,
	editions EditionStore,
	placements PlacementStore,
	files core.FileStorage,
	logger core.Logger,
) Service {
	return &service{
		repo:       repo,
		users:      users,
		editions:   editions,
		placements: placements,
		files:      files,
		logger:     logger,
	}
}

func (svc *service) Create(ctx context.Context, ns NewSubmission) (Submission, error) {
	if err := svc.checkAdvisor(ctx, ns.AdvisorID.String, ns.AdvisorID.Valid); err != nil {
		return Submission{}, err
	}
	if err := svc.checkMainAuthor(ctx, ns.MainAuthorID); err != nil {
		return Submission{}, err
	}
	if err := svc.repo.CheckAuthorUniqueness(ctx, ns.MainAuthorID, ns.EditionID); err != nil {
		return Submission{}, asValidationErr(err, "main_author_id", ErrAlreadySubmitted)
	}
	edition, err := svc.editions.GetEditionByID(ctx, ns.EditionID)
	if err != nil {
		return Submission{}, err
	}
	if err = checkSubmissionWindow(&edition, nowFunc().UTC()); err != nil {
		return Submission{}, err
	}
	if err = svc.repo.CheckTitleUniqueness(ctx, ns.Title, ns.EditionID); err != nil {
		return Submission{}, asValidationErr(err, "title", ErrTitleExists)
	}

	now := nowFunc().UTC()
	sub := Submission{
		EditionID:        ns.EditionID,
		AdvisorID:        ns.AdvisorID,
		MainAuthorID:     ns.MainAuthorID,
		Title:            ns.Title,
		Abstract:         ns.Abstract,
		PDFFileKey:       ns.PDFFileKey,
		LinkHostedFile:   ns.LinkHostedFile,
		PhoneNumber:      ns.PhoneNumber,
		CoAdvisor:        ns.CoAdvisor,
		Status:           ns.Status,
		ProposedBlockID:  ns.ProposedBlockID,
		ProposedPosition: ns.ProposedPosition,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err = svc.checkPlacement(ctx, &sub, &edition); err != nil {
		return Submission{}, err
	}
	return svc.repo.CreateSubmission(ctx, sub)
}

func (svc *service) GetByID(ctx context.Context, id string) (Detail, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	start, err := svc.ProposedStartTime(ctx, sub)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Submission: sub, ProposedStartTime: start}, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Detail, error) {
	subs, err := svc.repo.QuerySubmissions(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}

	details := make([]Detail, 0, len(subs))
	for i := range subs {
		start, err := svc.ProposedStartTime(ctx, subs[i])
		if err != nil {
			return nil, err
		}
		details = append(details, Detail{Submission: subs[i], ProposedStartTime: start})
	}
	return details, nil
}

// Update re-validates every supplied field against the same rules as Create,
// excluding the submission's own row from uniqueness and occupancy checks.
// The submission window is not re-checked: edits remain possible after the
// deadline.
func (svc *service) Update(ctx context.Context, id string, us UpdateSubmission) (Submission, error) {
	orig, err := svc.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return Submission{}, err
	}

	if us.AdvisorID != orig.AdvisorID {
		if err = svc.checkAdvisor(ctx, us.AdvisorID.String, us.AdvisorID.Valid); err != nil {
			return Submission{}, err
		}
	}
	if us.MainAuthorID != orig.MainAuthorID {
		if err = svc.checkMainAuthor(ctx, us.MainAuthorID); err != nil {
			return Submission{}, err
		}
	}
	if err = svc.repo.CheckAuthorUniqueness(ctx, us.MainAuthorID, orig.EditionID, orig); err != nil {
		return Submission{}, asValidationErr(err, "main_author_id", ErrAlreadySubmitted)
	}
	if err = svc.repo.CheckTitleUniqueness(ctx, us.Title, orig.EditionID, orig); err != nil {
		return Submission{}, asValidationErr(err, "title", ErrTitleExists)
	}

	sub := orig
	sub.AdvisorID = us.AdvisorID
	sub.MainAuthorID = us.MainAuthorID
	sub.Title = us.Title
	sub.Abstract = us.Abstract
	sub.PDFFileKey = us.PDFFileKey
	sub.LinkHostedFile = us.LinkHostedFile
	sub.PhoneNumber = us.PhoneNumber
	sub.CoAdvisor = us.CoAdvisor
	sub.Status = us.Status
	sub.ProposedBlockID = us.ProposedBlockID
	sub.ProposedPosition = us.ProposedPosition
	sub.UpdatedAt = nowFunc().UTC()

	if sub.HasProposedPlacement() {
		edition, err := svc.editions.GetEditionByID(ctx, sub.EditionID)
		if err != nil {
			return Submission{}, err
		}
		if err = svc.checkPlacement(ctx, &sub, &edition); err != nil {
			return Submission{}, err
		}
	}
	return svc.repo.UpdateSubmission(ctx, sub)
}

func (svc *service) Delete(ctx context.Context, id string) (Submission, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return Submission{}, err
	}

	// best-effort cleanup; an orphan file must never block the row deletion
	if sub.PDFFileKey != "" {
		if err := svc.files.Delete(sub.PDFFileKey); err != nil {
			svc.logger.Error(fmt.Sprintf("deleting submission file %q: %v", sub.PDFFileKey, err), err)
		}
	}

	if err = svc.repo.DeleteSubmission(ctx, id); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (svc *service) ProposedStartTime(ctx context.Context, sub Submission) (*time.Time, error) {
	if !sub.HasProposedPlacement() {
		return nil, nil
	}
	blk, err := svc.placements.GetBlockByID(ctx, sub.ProposedBlockID.String)
	if err != nil {
		if err == schedule.ErrBlockNotFound {
			return nil, nil
		}
		return nil, err
	}
	if blk.StartTime.IsZero() {
		return nil, nil
	}
	edition, err := svc.editions.GetEditionByID(ctx, sub.EditionID)
	if err != nil {
		return nil, err
	}
	start := blk.PositionStartTime(sub.ProposedPosition.Int, edition.PresentationDuration)
	return &start, nil
}

func (svc *service) checkAdvisor(ctx context.Context, advisorID string, set bool) error {
	if !set {
		return nil
	}
	advisor, err := svc.users.GetUserByID(ctx, advisorID)
	if err != nil {
		if err == user.ErrNotFound {
			return ErrAdvisorNotFound
		}
		return err
	}
	if !advisor.IsProfessor() {
		return ErrAdvisorNotFound
	}
	return nil
}

func (svc *service) checkMainAuthor(ctx context.Context, mainAuthorID string) error {
	if _, err := svc.users.GetUserByID(ctx, mainAuthorID); err != nil {
		if err == user.ErrNotFound {
			return ErrMainAuthorNotFound
		}
		return err
	}
	return nil
}

// checkPlacement validates a proposed (block, position) pair: the block must
// exist in the submission's edition, the position must fit the block capacity,
// and the slot must not be occupied by another submission's CONFIRMED
// presentation. Proposals of other submissions do not count as occupancy.
func (svc *service) checkPlacement(ctx context.Context, sub *Submission, edition *event.Edition) error {
	if !sub.HasProposedPlacement() {
		return nil
	}

	blk, err := svc.placements.GetBlockByID(ctx, sub.ProposedBlockID.String)
	if err != nil {
		return err
	}
	if blk.EditionID != sub.EditionID {
		return core.NewValidationError(ErrBlockEditionMismatch,
			core.FieldError{Field: "proposed_block_id", Error: ErrBlockEditionMismatch.Error()})
	}

	position := sub.ProposedPosition.Int
	if position > blk.MaxPosition(edition.PresentationDuration) {
		return core.NewValidationError(ErrInvalidPosition,
			core.FieldError{Field: "proposed_position", Error: ErrInvalidPosition.Error()})
	}

	p, err := svc.placements.GetPresentationAt(ctx, blk.ID, position)
	if err != nil {
		if err == schedule.ErrPresentationNotFound {
			return nil // slot is free
		}
		return err
	}
	if p.SubmissionID == sub.ID {
		return nil // a submission may keep its own confirmed slot
	}
	return core.NewValidationError(ErrPositionTaken,
		core.FieldError{Field: "proposed_position", Error: ErrPositionTaken.Error()})
}

// checkSubmissionWindow fails with a message naming the violated bound when
// now falls outside the edition's submission window.
func checkSubmissionWindow(edition *event.Edition, now time.Time) error {
	if edition.SubmissionWindowOpen(now) {
		return nil
	}
	if now.Before(edition.SubmissionStartDate) {
		err := fmt.Errorf("submissions open on %s", edition.SubmissionStartDate.Format("2006-01-02 15:04 MST"))
		return core.NewValidationError(err, core.FieldError{Field: "edition_id", Error: err.Error()})
	}
	err := fmt.Errorf("submissions closed on %s", edition.SubmissionDeadline.Format("2006-01-02 15:04 MST"))
	return core.NewValidationError(err, core.FieldError{Field: "edition_id", Error: err.Error()})
}

func asValidationErr(err error, field string, sentinel error) error {
	if err == sentinel {
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return err
}
