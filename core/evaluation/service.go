package evaluation

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/schedule"
	"github.com/wepgcomp/wepgcomp/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("evaluation not found")
	ErrAlreadyEvaluated = errors.New("user already evaluated this presentation")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error)
		GetEvaluationByID(ctx context.Context, id string) (Evaluation, error)
		// CheckEvaluationUniqueness fails with ErrAlreadyEvaluated when the
		// (presentation, user) pair already has an evaluation.
		CheckEvaluationUniqueness(ctx context.Context, presentationID, userID string) error
		QueryEvaluations(ctx context.Context, filter *QueryFilter) ([]Evaluation, error)
		DeleteEvaluation(ctx context.Context, id string) error
	}

	// UserStore resolves evaluators; satisfied by the user repository.
	UserStore interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
	}

	// PresentationStore resolves presentations and persists recomputed
	// averages; satisfied by the schedule repository.
	PresentationStore interface {
		GetPresentationByID(ctx context.Context, id string) (schedule.Presentation, error)
		UpdatePresentationScores(ctx context.Context, id string, public, evaluators null.Float64) (schedule.Presentation, error)
	}

	Service interface {
		// Submit records userID's score for a presentation and recomputes the
		// presentation's audience and evaluator averages.
		Submit(ctx context.Context, userID string, ne NewEvaluation) (Evaluation, error)
		GetByID(ctx context.Context, id string) (Evaluation, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Evaluation, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo          Repository
		users         UserStore
		presentations PresentationStore
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users UserStore, presentations PresentationStore) Service {
	return &service{repo: repo, users: users, presentations: presentations}
}

func (svc *service) Submit(ctx context.Context, userID string, ne NewEvaluation) (Evaluation, error) {
	if _, err := svc.presentations.GetPresentationByID(ctx, ne.PresentationID); err != nil {
		return Evaluation{}, err
	}
	if err := svc.repo.CheckEvaluationUniqueness(ctx, ne.PresentationID, userID); err != nil {
		if err == ErrAlreadyEvaluated {
			return Evaluation{}, core.NewValidationError(err,
				core.FieldError{Field: "presentation_id", Error: err.Error()})
		}
		return Evaluation{}, err
	}

	now := nowFunc().UTC()
	ev, err := svc.repo.CreateEvaluation(ctx, Evaluation{
		PresentationID: ne.PresentationID,
		UserID:         userID,
		Score:          ne.Score,
		Comment:        ne.Comment,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Evaluation{}, err
	}
	if err = svc.recomputeAverages(ctx, ne.PresentationID); err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Evaluation, error) {
	return svc.repo.GetEvaluationByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Evaluation, error) {
	return svc.repo.QueryEvaluations(ctx, filter)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	ev, err := svc.repo.GetEvaluationByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteEvaluation(ctx, id); err != nil {
		return err
	}
	return svc.recomputeAverages(ctx, ev.PresentationID)
}

// recomputeAverages splits a presentation's evaluations into evaluator-sourced
// (users flagged isTeacherActive or isAdmin) and audience-sourced scores and
// persists both averages. An average with no contributing score is stored as
// null rather than zero.
func (svc *service) recomputeAverages(ctx context.Context, presentationID string) error {
	evs, err := svc.repo.QueryEvaluations(ctx, &QueryFilter{PresentationID: presentationID})
	if err != nil {
		return err
	}

	var evaluatorSum, audienceSum, evaluatorN, audienceN int
	for _, ev := range evs {
		usr, err := svc.users.GetUserByID(ctx, ev.UserID)
		if err != nil {
			if err == user.ErrNotFound {
				continue // evaluator deleted since; drop their score
			}
			return err
		}
		if usr.IsTeacherActive || usr.IsAdmin {
			evaluatorSum += ev.Score
			evaluatorN++
		} else {
			audienceSum += ev.Score
			audienceN++
		}
	}

	var public, evaluators null.Float64
	if audienceN > 0 {
		public = null.Float64From(float64(audienceSum) / float64(audienceN))
	}
	if evaluatorN > 0 {
		evaluators = null.Float64From(float64(evaluatorSum) / float64(evaluatorN))
	}
	_, err = svc.presentations.UpdatePresentationScores(ctx, presentationID, public, evaluators)
	return err
}
