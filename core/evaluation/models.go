package evaluation

import (
	"time"

	"github.com/wepgcomp/wepgcomp/core"
)

type (
	Evaluation struct {
		ID             string    `json:"id" db:"id"`
		PresentationID string    `json:"presentation_id" db:"presentation_id"`
		UserID         string    `json:"user_id" db:"user_id"`
		Score          int       `json:"score" db:"score"`
		Comment        string    `json:"comment,omitempty" db:"comment"`
		CreatedAt      time.Time `json:"created_at" db:"created_at"`
		UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
	}

	NewEvaluation struct {
		PresentationID string `json:"presentation_id" validate:"required"`
		Score          int    `json:"score" validate:"required,min=1,max=5"`
		Comment        string `json:"comment"`
	}

	QueryFilter struct {
		PresentationID string
		UserID         string
	}
)

func (ne *NewEvaluation) Validate() error {
	ne.PresentationID = core.CleanString(ne.PresentationID)
	ne.Comment = core.CleanString(ne.Comment)
	if err := core.Validate.Struct(ne); err != nil {
		return core.NewValidationError(err)
	}
	return nil
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || *qf == QueryFilter{}
}
