package submission

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/wepgcomp/wepgcomp/core"
)

type Status string

const (
	StatusSubmitted Status = "Submitted"
	StatusConfirmed Status = "Confirmed"
	StatusWithdrawn Status = "Withdrawn"
)

// Submission is an authored work belonging to one edition. The proposed
// placement (block + position) is the submitter's requested slot and is
// advisory only; the confirmed placement is a schedule.Presentation record.
type Submission struct {
	ID           string      `json:"id" db:"id"`
	EditionID    string      `json:"edition_id" db:"edition_id"`
	AdvisorID    null.String `json:"advisor_id,omitempty" db:"advisor_id"`
	MainAuthorID string      `json:"main_author_id" db:"main_author_id"`

	Title          string      `json:"title" db:"title"`
	Abstract       string      `json:"abstract" db:"abstract"`
	PDFFileKey     string      `json:"pdf_file_key" db:"pdf_file_key"`
	LinkHostedFile null.String `json:"link_hosted_file,omitempty" db:"link_hosted_file"`
	PhoneNumber    string      `json:"phone_number" db:"phone_number"`
	CoAdvisor      null.String `json:"co_advisor,omitempty" db:"co_advisor"`
	Status         Status      `json:"status" db:"status"`

	ProposedBlockID  null.String `json:"proposed_block_id,omitempty" db:"proposed_block_id"`
	ProposedPosition null.Int    `json:"proposed_position,omitempty" db:"proposed_position"`

	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// HasProposedPlacement reports whether a proposed (block, position) pair is set.
func (s *Submission) HasProposedPlacement() bool {
	return s.ProposedBlockID.Valid && s.ProposedPosition.Valid
}

// Detail is a submission with its derived proposed start time attached.
// ProposedStartTime is nil whenever the proposed block, the proposed position
// or the block's start time is missing.
type Detail struct {
	Submission
	ProposedStartTime *time.Time `json:"proposed_start_time"`
}

// NewSubmission contains information needed to create a new Submission.
type NewSubmission struct {
	EditionID    string      `json:"edition_id" validate:"required"`
	AdvisorID    null.String `json:"advisor_id"`
	MainAuthorID string      `json:"main_author_id" validate:"required"`

	Title          string      `json:"title" validate:"required,min=5"`
	Abstract       string      `json:"abstract" validate:"required,min=10"`
	PDFFileKey     string      `json:"pdf_file_key" validate:"required"`
	LinkHostedFile null.String `json:"link_hosted_file"`
	PhoneNumber    string      `json:"phone_number" validate:"required,phone"`
	CoAdvisor      null.String `json:"co_advisor"`
	Status         Status      `json:"status" validate:"omitempty,oneof=Submitted Confirmed Withdrawn"`

	ProposedBlockID  null.String `json:"proposed_block_id"`
	ProposedPosition null.Int    `json:"proposed_position"`
}

func (ns *NewSubmission) Validate() error {
	ns.Title = core.CleanString(ns.Title)
	ns.Abstract = core.CleanString(ns.Abstract)
	ns.PhoneNumber = core.CleanString(ns.PhoneNumber)
	if ns.Status == "" {
		ns.Status = StatusSubmitted
	}

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return validatePlacementPair(ns.ProposedBlockID, ns.ProposedPosition)
}

// UpdateSubmission defines what information may be provided to modify an
// existing Submission. Only supplied fields are re-validated; an omitted
// status leaves the stored status unchanged.
type UpdateSubmission struct {
	AdvisorID    null.String `json:"advisor_id"`
	MainAuthorID string      `json:"main_author_id"`

	Title          string      `json:"title" validate:"omitempty,min=5"`
	Abstract       string      `json:"abstract" validate:"omitempty,min=10"`
	PDFFileKey     string      `json:"pdf_file_key"`
	LinkHostedFile null.String `json:"link_hosted_file"`
	PhoneNumber    string      `json:"phone_number" validate:"omitempty,phone"`
	CoAdvisor      null.String `json:"co_advisor"`
	Status         Status      `json:"status" validate:"omitempty,oneof=Submitted Confirmed Withdrawn"`

	ProposedBlockID  null.String `json:"proposed_block_id"`
	ProposedPosition null.Int    `json:"proposed_position"`
}

func (us *UpdateSubmission) Validate(orig Submission) error {
	title := core.CleanString(us.Title)
	if title != "" {
		us.Title = title
	} else {
		us.Title = orig.Title
	}
	abstract := core.CleanString(us.Abstract)
	if abstract != "" {
		us.Abstract = abstract
	} else {
		us.Abstract = orig.Abstract
	}
	if us.PhoneNumber == "" {
		us.PhoneNumber = orig.PhoneNumber
	} else {
		us.PhoneNumber = core.CleanString(us.PhoneNumber)
	}
	if us.PDFFileKey == "" {
		us.PDFFileKey = orig.PDFFileKey
	}
	if us.MainAuthorID == "" {
		us.MainAuthorID = orig.MainAuthorID
	}
	if !us.AdvisorID.Valid {
		us.AdvisorID = orig.AdvisorID
	}
	if !us.LinkHostedFile.Valid {
		us.LinkHostedFile = orig.LinkHostedFile
	}
	if !us.CoAdvisor.Valid {
		us.CoAdvisor = orig.CoAdvisor
	}
	if us.Status == "" {
		us.Status = orig.Status
	}
	if !us.ProposedBlockID.Valid {
		us.ProposedBlockID = orig.ProposedBlockID
	}
	if !us.ProposedPosition.Valid {
		us.ProposedPosition = orig.ProposedPosition
	}

	if err := core.Validate.Struct(us); err != nil {
		return err
	}
	return validatePlacementPair(us.ProposedBlockID, us.ProposedPosition)
}

// validatePlacementPair enforces that a proposed block always comes with a
// non-negative proposed position.
func validatePlacementPair(blockID null.String, position null.Int) error {
	if blockID.Valid && !position.Valid {
		return core.NewValidationError(nil,
			core.FieldError{Field: "proposed_position", Error: "required when a proposed block is set"})
	}
	if position.Valid && position.Int < 0 {
		return core.NewValidationError(nil,
			core.FieldError{Field: "proposed_position", Error: "must not be negative"})
	}
	return nil
}

// QueryFilter narrows submission listings. All criteria are ANDed.
type QueryFilter struct {
	EditionID                   string `query:"edition_id"`
	MainAuthorID                string `query:"main_author_id"`
	WithoutPresentation         bool   `query:"without_presentation"`
	ShowConfirmedOnly           bool   `query:"show_confirmed_only"`
	OrderByProposedPresentation bool   `query:"order_by_proposed_presentation"`
}
