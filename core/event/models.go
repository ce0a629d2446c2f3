package event

import (
	"time"

	"github.com/wepgcomp/wepgcomp/core"
)

// Edition is one instance of the recurring workshop; it scopes every room,
// block, submission and presentation.
type Edition struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	Location    string `json:"location" db:"location"`

	StartDate           time.Time `json:"start_date" db:"start_date"`
	EndDate             time.Time `json:"end_date" db:"end_date"`
	SubmissionStartDate time.Time `json:"submission_start_date" db:"submission_start_date"`
	SubmissionDeadline  time.Time `json:"submission_deadline" db:"submission_deadline"`

	IsActive                          bool `json:"is_active" db:"is_active"`
	IsEvaluationRestrictToLoggedUsers bool `json:"is_evaluation_restrict_to_logged_users" db:"is_evaluation_restrict_to_logged_users"`

	PresentationDuration int `json:"presentation_duration" db:"presentation_duration"` // minutes
	PresentationsPerBlock int `json:"presentations_per_block" db:"presentations_per_block"`

	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// SubmissionWindowOpen reports whether t falls within the submission window.
func (e *Edition) SubmissionWindowOpen(t time.Time) bool {
	return !t.Before(e.SubmissionStartDate) && !t.After(e.SubmissionDeadline)
}

type Room struct {
	ID          string    `json:"id" db:"id"`
	EditionID   string    `json:"edition_id" db:"edition_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewEdition contains information needed to create a new Edition.
type NewEdition struct {
	Name        string `json:"name" validate:"required,min=3"`
	Description string `json:"description"`
	Location    string `json:"location"`

	StartDate           time.Time `json:"start_date" validate:"required"`
	EndDate             time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	SubmissionStartDate time.Time `json:"submission_start_date" validate:"required"`
	SubmissionDeadline  time.Time `json:"submission_deadline" validate:"required,gtefield=SubmissionStartDate"`

	IsEvaluationRestrictToLoggedUsers bool `json:"is_evaluation_restrict_to_logged_users"`

	PresentationDuration  int `json:"presentation_duration" validate:"required,gt=0"`
	PresentationsPerBlock int `json:"presentations_per_block" validate:"required,gt=0"`
}

func (ne *NewEdition) Validate() error {
	ne.Name = core.CleanString(ne.Name)
	ne.Description = core.CleanString(ne.Description)
	ne.Location = core.CleanString(ne.Location)
	return core.Validate.Struct(ne)
}

// UpdateEdition defines what information may be provided to modify an existing
// Edition. Zero-valued fields are left unchanged.
type UpdateEdition struct {
	Name        string `json:"name" validate:"omitempty,min=3"`
	Description string `json:"description"`
	Location    string `json:"location"`

	StartDate           time.Time `json:"start_date"`
	EndDate             time.Time `json:"end_date"`
	SubmissionStartDate time.Time `json:"submission_start_date"`
	SubmissionDeadline  time.Time `json:"submission_deadline"`

	IsEvaluationRestrictToLoggedUsers *bool `json:"is_evaluation_restrict_to_logged_users"`

	PresentationDuration  int `json:"presentation_duration" validate:"omitempty,gt=0"`
	PresentationsPerBlock int `json:"presentations_per_block" validate:"omitempty,gt=0"`
}

func (ue *UpdateEdition) Validate(orig Edition) error {
	name := core.CleanString(ue.Name)
	if name != "" {
		ue.Name = name
	} else {
		ue.Name = orig.Name
	}
	if ue.Description == "" {
		ue.Description = orig.Description
	}
	if ue.Location == "" {
		ue.Location = orig.Location
	}
	if ue.StartDate.IsZero() {
		ue.StartDate = orig.StartDate
	}
	if ue.EndDate.IsZero() {
		ue.EndDate = orig.EndDate
	}
	if ue.SubmissionStartDate.IsZero() {
		ue.SubmissionStartDate = orig.SubmissionStartDate
	}
	if ue.SubmissionDeadline.IsZero() {
		ue.SubmissionDeadline = orig.SubmissionDeadline
	}
	if ue.PresentationDuration == 0 {
		ue.PresentationDuration = orig.PresentationDuration
	}
	if ue.PresentationsPerBlock == 0 {
		ue.PresentationsPerBlock = orig.PresentationsPerBlock
	}

	if err := core.Validate.Struct(ue); err != nil {
		return err
	}
	if ue.EndDate.Before(ue.StartDate) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "must not precede the start date"})
	}
	if ue.SubmissionDeadline.Before(ue.SubmissionStartDate) {
		return core.NewValidationError(nil, core.FieldError{Field: "submission_deadline", Error: "must not precede the submission start date"})
	}
	return nil
}

// NewRoom contains information needed to create a new Room.
type NewRoom struct {
	EditionID   string `json:"edition_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (nr *NewRoom) Validate() error {
	nr.Name = core.CleanString(nr.Name)
	nr.Description = core.CleanString(nr.Description)
	return core.Validate.Struct(nr)
}
