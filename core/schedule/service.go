package schedule

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/event"
)

var (
	// errors
	ErrBlockNotFound        = errors.New("presentation block not found")
	ErrPresentationNotFound = errors.New("presentation not found")
	ErrNotPresentationBlock = errors.New("block does not hold presentation slots")
	ErrInvalidPosition      = errors.New("position exceeds the block capacity")
	ErrPositionTaken        = errors.New("position is already taken in this block")
	ErrAlreadyConfirmed     = errors.New("submission already has a confirmed presentation")
	ErrBlockInUse           = errors.New("block still has confirmed presentations")
	ErrRoomEditionMismatch  = errors.New("room belongs to another edition")
	ErrBlockTooShort        = errors.New("duration cannot host the confirmed presentations")
)

type (
	Repository interface {
		CreateBlock(ctx context.Context, blk Block) (Block, error)
		GetBlockByID(ctx context.Context, id string) (Block, error)
		QueryBlocks(ctx context.Context, editionID string, ordering []core.DBOrdering) ([]Block, error)
		UpdateBlock(ctx context.Context, blk Block) (Block, error)
		// DeleteBlock fails with ErrBlockInUse while presentations reference the block.
		DeleteBlock(ctx context.Context, id string) error

		// CreatePresentation atomically claims the (block, position) slot: a
		// concurrent claim of the same slot yields ErrPositionTaken and a second
		// confirmation of the same submission yields ErrAlreadyConfirmed,
		// regardless of any pre-check interleaving.
		CreatePresentation(ctx context.Context, p Presentation) (Presentation, error)
		GetPresentationByID(ctx context.Context, id string) (Presentation, error)
		GetPresentationBySubmissionID(ctx context.Context, submissionID string) (Presentation, error)
		GetPresentationAt(ctx context.Context, blockID string, position int) (Presentation, error)
		QueryPresentationsByBlock(ctx context.Context, blockID string) ([]Presentation, error)
		QueryPresentationsByEdition(ctx context.Context, editionID string) ([]Presentation, error)
		UpdatePresentationStatus(ctx context.Context, id string, status PresentationStatus) (Presentation, error)
		UpdatePresentationScores(ctx context.Context, id string, public, evaluators null.Float64) (Presentation, error)
		DeletePresentation(ctx context.Context, id string) error

		// Ranking reads; non-null score, descending, ties broken by submission
		// id ascending. limit <= 0 means unlimited.
		TopByEvaluators(ctx context.Context, editionID string, limit int) ([]RankedPresentation, error)
		TopByAudience(ctx context.Context, editionID string, limit int) ([]RankedPresentation, error)

		// QueryPresentedWithAuthors returns the edition's Presented
		// presentations joined with their submission and main author.
		QueryPresentedWithAuthors(ctx context.Context, editionID string) ([]RankedPresentation, error)
	}

	// SubmissionChecker reports whether a submission exists; satisfied by the
	// submission repository.
	SubmissionChecker interface {
		SubmissionExists(ctx context.Context, id string) error
	}

	// EditionStore resolves editions and rooms; satisfied by the event repository.
	EditionStore interface {
		GetEditionByID(ctx context.Context, id string) (event.Edition, error)
		GetRoomByID(ctx context.Context, id string) (event.Room, error)
	}

	Service interface {
		CreateBlock(ctx context.Context, nb NewBlock) (Block, error)
		GetBlock(ctx context.Context, id string) (Block, error)
		QueryBlocks(ctx context.Context, editionID string, ordering []core.DBOrdering) ([]Block, error)
		UpdateBlock(ctx context.Context, id string, ub UpdateBlock) (Block, error)
		DeleteBlock(ctx context.Context, id string) error

		Confirm(ctx context.Context, np NewPresentation) (Presentation, error)
		GetPresentation(ctx context.Context, id string) (Presentation, error)
		QueryPresentations(ctx context.Context, editionID string) ([]Presentation, error)
		PresentationStartTime(ctx context.Context, p Presentation) (time.Time, error)
		SetPresentationStatus(ctx context.Context, id string, status PresentationStatus) (Presentation, error)
		DeletePresentation(ctx context.Context, id string) error

		TopByEvaluators(ctx context.Context, editionID string, limit int) ([]RankedPresentation, error)
		TopByAudience(ctx context.Context, editionID string, limit int) ([]RankedPresentation, error)

		// SendCertificates emails a presentation certificate to the main
		// author of every Presented presentation of the edition and returns
		// the number of certificates dispatched.
		SendCertificates(ctx context.Context, editionID string) (int, error)
	}

	service struct {
		repo        Repository
		editions    EditionStore
		submissions SubmissionChecker
		mailSvc     core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, editions EditionStore, submissions SubmissionChecker, mailSvc core.EmailService) Service {
	return &service{
		repo:        repo,
		editions:    editions,
		submissions: submissions,
		mailSvc:     mailSvc,
	}
}

func (svc *service) CreateBlock(ctx context.Context, nb NewBlock) (Block, error) {
	edition, err := svc.editions.GetEditionByID(ctx, nb.EditionID)
	if err != nil {
		return Block{}, err
	}
	if err = svc.checkRoom(ctx, nb.RoomID, edition.ID); err != nil {
		return Block{}, err
	}

	now := time.Now().UTC()
	blk := Block{
		EditionID: nb.EditionID,
		RoomID:    nb.RoomID,
		Type:      nb.Type,
		Title:     nb.Title,
		StartTime: nb.StartTime,
		Duration:  nb.Duration,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateBlock(ctx, blk)
}

func (svc *service) GetBlock(ctx context.Context, id string) (Block, error) {
	return svc.repo.GetBlockByID(ctx, id)
}

func (svc *service) QueryBlocks(ctx context.Context, editionID string, ordering []core.DBOrdering) ([]Block, error) {
	return svc.repo.QueryBlocks(ctx, editionID, ordering)
}

func (svc *service) UpdateBlock(ctx context.Context, id string, ub UpdateBlock) (Block, error) {
	blk, err := svc.repo.GetBlockByID(ctx, id)
	if err != nil {
		return Block{}, err
	}
	edition, err := svc.editions.GetEditionByID(ctx, blk.EditionID)
	if err != nil {
		return Block{}, err
	}
	if err = svc.checkRoom(ctx, ub.RoomID, edition.ID); err != nil {
		return Block{}, err
	}

	// a shrunk block must still host every confirmed position
	if ub.Duration < blk.Duration {
		prezs, err := svc.repo.QueryPresentationsByBlock(ctx, id)
		if err != nil {
			return Block{}, err
		}
		maxPos := (&Block{Duration: ub.Duration}).MaxPosition(edition.PresentationDuration)
		for _, p := range prezs {
			if p.Position > maxPos {
				return Block{}, core.NewValidationError(ErrBlockTooShort,
					core.FieldError{Field: "duration", Error: ErrBlockTooShort.Error()})
			}
		}
	}

	blk.RoomID = ub.RoomID
	blk.Type = ub.Type
	blk.Title = ub.Title
	blk.StartTime = ub.StartTime
	blk.Duration = ub.Duration
	blk.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateBlock(ctx, blk)
}

func (svc *service) DeleteBlock(ctx context.Context, id string) error {
	if err := svc.repo.DeleteBlock(ctx, id); err != nil {
		if err == ErrBlockInUse {
			return core.NewValidationError(err)
		}
		return err
	}
	return nil
}

// Confirm turns a (submission, block, position) triple into the authoritative
// occupancy record. The repository's atomic claim is the final arbiter of
// collisions; the checks here only produce friendlier errors for the common
// cases.
func (svc *service) Confirm(ctx context.Context, np NewPresentation) (Presentation, error) {
	if err := svc.submissions.SubmissionExists(ctx, np.SubmissionID); err != nil {
		return Presentation{}, err
	}
	blk, err := svc.repo.GetBlockByID(ctx, np.BlockID)
	if err != nil {
		return Presentation{}, err
	}
	if blk.Type != BlockTypePresentation {
		return Presentation{}, core.NewValidationError(ErrNotPresentationBlock,
			core.FieldError{Field: "block_id", Error: ErrNotPresentationBlock.Error()})
	}
	edition, err := svc.editions.GetEditionByID(ctx, blk.EditionID)
	if err != nil {
		return Presentation{}, err
	}
	if np.Position < 0 || np.Position > blk.MaxPosition(edition.PresentationDuration) {
		return Presentation{}, core.NewValidationError(ErrInvalidPosition,
			core.FieldError{Field: "position", Error: ErrInvalidPosition.Error()})
	}

	now := time.Now().UTC()
	p := Presentation{
		SubmissionID: np.SubmissionID,
		BlockID:      np.BlockID,
		Position:     np.Position,
		Status:       np.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p, err = svc.repo.CreatePresentation(ctx, p)
	if err != nil {
		switch err {
		case ErrPositionTaken:
			return Presentation{}, core.NewValidationError(err, core.FieldError{Field: "position", Error: err.Error()})
		case ErrAlreadyConfirmed:
			return Presentation{}, core.NewValidationError(err, core.FieldError{Field: "submission_id", Error: err.Error()})
		}
		return Presentation{}, err
	}
	return p, nil
}

func (svc *service) GetPresentation(ctx context.Context, id string) (Presentation, error) {
	return svc.repo.GetPresentationByID(ctx, id)
}

func (svc *service) QueryPresentations(ctx context.Context, editionID string) ([]Presentation, error) {
	if _, err := svc.editions.GetEditionByID(ctx, editionID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPresentationsByEdition(ctx, editionID)
}

// PresentationStartTime computes the confirmed wall-clock start of p.
func (svc *service) PresentationStartTime(ctx context.Context, p Presentation) (time.Time, error) {
	blk, err := svc.repo.GetBlockByID(ctx, p.BlockID)
	if err != nil {
		return time.Time{}, err
	}
	edition, err := svc.editions.GetEditionByID(ctx, blk.EditionID)
	if err != nil {
		return time.Time{}, err
	}
	return blk.PositionStartTime(p.Position, edition.PresentationDuration), nil
}

func (svc *service) SetPresentationStatus(ctx context.Context, id string, status PresentationStatus) (Presentation, error) {
	p, err := svc.repo.GetPresentationByID(ctx, id)
	if err != nil {
		return Presentation{}, err
	}
	if p.Status == status {
		return Presentation{}, core.NewStateConflictError(errors.New("presentation is already in the requested status"))
	}
	return svc.repo.UpdatePresentationStatus(ctx, id, status)
}

func (svc *service) DeletePresentation(ctx context.Context, id string) error {
	return svc.repo.DeletePresentation(ctx, id)
}

func (svc *service) TopByEvaluators(ctx context.Context, editionID string, limit int) ([]RankedPresentation, error) {
	if _, err := svc.editions.GetEditionByID(ctx, editionID); err != nil {
		return nil, err
	}
	return svc.repo.TopByEvaluators(ctx, editionID, limit)
}

func (svc *service) TopByAudience(ctx context.Context, editionID string, limit int) ([]RankedPresentation, error) {
	if _, err := svc.editions.GetEditionByID(ctx, editionID); err != nil {
		return nil, err
	}
	return svc.repo.TopByAudience(ctx, editionID, limit)
}

func (svc *service) SendCertificates(ctx context.Context, editionID string) (int, error) {
	edition, err := svc.editions.GetEditionByID(ctx, editionID)
	if err != nil {
		return 0, err
	}
	presented, err := svc.repo.QueryPresentedWithAuthors(ctx, editionID)
	if err != nil {
		return 0, err
	}

	messages := make([]*core.EmailMessage, 0, len(presented))
	for _, p := range presented {
		start, err := svc.PresentationStartTime(ctx, p.Presentation)
		if err != nil {
			return 0, err
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: p.MainAuthorName, Address: p.MainAuthorEmail}},
			Subject:      "Certificado de apresentação - " + edition.Name,
			TemplateName: "certificate",
			TemplateData: struct {
				Name        string
				Title       string
				EditionName string
				Location    string
				PresentedAt time.Time
			}{p.MainAuthorName, p.SubmissionTitle, edition.Name, edition.Location, start},
		})
	}
	svc.mailSvc.SendMessages(messages...)
	return len(messages), nil
}

func (svc *service) checkRoom(ctx context.Context, roomID null.String, editionID string) error {
	if !roomID.Valid {
		return nil
	}
	room, err := svc.editions.GetRoomByID(ctx, roomID.String)
	if err != nil {
		return err
	}
	if room.EditionID != editionID {
		return core.NewValidationError(ErrRoomEditionMismatch,
			core.FieldError{Field: "room_id", Error: ErrRoomEditionMismatch.Error()})
	}
	return nil
}
