package schedule

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/wepgcomp/wepgcomp/core"
)

// BlockType distinguishes general sessions (talks, breaks) from blocks that
// hold a sequence of presentation slots.
type BlockType string

const (
	BlockTypeGeneral      BlockType = "General"
	BlockTypePresentation BlockType = "Presentation"
)

// Block is a scheduled time container belonging to one edition. General-type
// blocks may have no room.
type Block struct {
	ID        string      `json:"id" db:"id"`
	EditionID string      `json:"edition_id" db:"edition_id"`
	RoomID    null.String `json:"room_id,omitempty" db:"room_id"`
	Type      BlockType   `json:"type" db:"type"`
	Title     string      `json:"title" db:"title"`
	StartTime time.Time   `json:"start_time" db:"start_time"`
	Duration  int         `json:"duration" db:"duration"` // minutes
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// MaxPosition returns the last valid zero-based slot index for the block given
// the edition's presentation duration, or -1 when the block cannot host any.
func (b *Block) MaxPosition(presentationDuration int) int {
	if presentationDuration <= 0 {
		return -1
	}
	return b.Duration/presentationDuration - 1
}

// PositionStartTime returns the wall-clock start of the given slot:
// block start + position x presentation duration, minute granularity.
func (b *Block) PositionStartTime(position, presentationDuration int) time.Time {
	return b.StartTime.Add(time.Duration(position*presentationDuration) * time.Minute)
}

// EndTime returns the wall-clock end of the block.
func (b *Block) EndTime() time.Time {
	return b.StartTime.Add(time.Duration(b.Duration) * time.Minute)
}

type PresentationStatus string

const (
	StatusToPresent    PresentationStatus = "ToPresent"
	StatusPresented    PresentationStatus = "Presented"
	StatusNotPresented PresentationStatus = "NotPresented"
)

// Presentation is the confirmed assignment of one submission to one position
// within one block. (BlockID, Position) pairs are unique among presentations;
// this is the authoritative occupancy record.
type Presentation struct {
	ID           string             `json:"id" db:"id"`
	SubmissionID string             `json:"submission_id" db:"submission_id"`
	BlockID      string             `json:"block_id" db:"block_id"`
	Position     int                `json:"position" db:"position"`
	Status       PresentationStatus `json:"status" db:"status"`

	// populated by the evaluation subsystem
	PublicAverageScore     null.Float64 `json:"public_average_score" db:"public_average_score"`
	EvaluatorsAverageScore null.Float64 `json:"evaluators_average_score" db:"evaluators_average_score"`

	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// RankedPresentation is a presentation joined with its submission and main
// author, as returned by the ranking queries.
type RankedPresentation struct {
	Presentation
	SubmissionTitle string `json:"submission_title" db:"submission_title"`
	MainAuthorID    string `json:"main_author_id" db:"main_author_id"`
	MainAuthorName  string `json:"main_author_name" db:"main_author_name"`
	MainAuthorEmail string `json:"main_author_email" db:"main_author_email"`
}

// NewBlock contains information needed to create a new Block.
type NewBlock struct {
	EditionID string      `json:"edition_id" validate:"required"`
	RoomID    null.String `json:"room_id"`
	Type      BlockType   `json:"type" validate:"required,oneof=General Presentation"`
	Title     string      `json:"title" validate:"required"`
	StartTime time.Time   `json:"start_time" validate:"required"`
	Duration  int         `json:"duration" validate:"required,gt=0"` // minutes
}

func (nb *NewBlock) Validate() error {
	nb.Title = core.CleanString(nb.Title)
	return core.Validate.Struct(nb)
}

// UpdateBlock defines what information may be provided to modify an existing
// Block. Zero-valued fields are left unchanged.
type UpdateBlock struct {
	RoomID    null.String `json:"room_id"`
	Type      BlockType   `json:"type" validate:"omitempty,oneof=General Presentation"`
	Title     string      `json:"title"`
	StartTime time.Time   `json:"start_time"`
	Duration  int         `json:"duration" validate:"omitempty,gt=0"` // minutes
}

func (ub *UpdateBlock) Validate(orig Block) error {
	title := core.CleanString(ub.Title)
	if title != "" {
		ub.Title = title
	} else {
		ub.Title = orig.Title
	}
	if ub.Type == "" {
		ub.Type = orig.Type
	}
	if ub.StartTime.IsZero() {
		ub.StartTime = orig.StartTime
	}
	if ub.Duration == 0 {
		ub.Duration = orig.Duration
	}
	if !ub.RoomID.Valid {
		ub.RoomID = orig.RoomID
	}
	return core.Validate.Struct(ub)
}

// NewPresentation contains information needed to confirm a presentation slot.
type NewPresentation struct {
	SubmissionID string             `json:"submission_id" validate:"required"`
	BlockID      string             `json:"block_id" validate:"required"`
	Position     int                `json:"position" validate:"gte=0"`
	Status       PresentationStatus `json:"status" validate:"omitempty,oneof=ToPresent Presented NotPresented"`
}

func (np *NewPresentation) Validate() error {
	if np.Status == "" {
		np.Status = StatusToPresent
	}
	return core.Validate.Struct(np)
}
