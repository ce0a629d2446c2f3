package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/wepgcomp/wepgcomp/core/evaluation"
)

type evaluationRepository struct {
	db *DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *DB) *evaluationRepository {
	return &evaluationRepository{db: db}
}

func (repo *evaluationRepository) CreateEvaluation(ctx context.Context, ev evaluation.Evaluation) (evaluation.Evaluation, error) {
	if err := repo.CheckEvaluationUniqueness(ctx, ev.PresentationID, ev.UserID); err != nil {
		return evaluation.Evaluation{}, err
	}

	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ev.ID = uuid.New().String()
	repo.db.evaluations[ev.ID] = &ev
	return ev, nil
}

func (repo *evaluationRepository) GetEvaluationByID(ctx context.Context, id string) (evaluation.Evaluation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ev, ok := repo.db.evaluations[id]; ok {
		return *ev, nil
	}
	return evaluation.Evaluation{}, evaluation.ErrNotFound
}

func (repo *evaluationRepository) CheckEvaluationUniqueness(ctx context.Context, presentationID, userID string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, ev := range repo.db.evaluations {
		if ev.PresentationID == presentationID && ev.UserID == userID {
			return evaluation.ErrAlreadyEvaluated
		}
	}
	return nil
}

func (repo *evaluationRepository) QueryEvaluations(ctx context.Context, filter *evaluation.QueryFilter) ([]evaluation.Evaluation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	evs := make([]evaluation.Evaluation, 0)
	for _, ev := range repo.db.evaluations {
		if filter != nil {
			if filter.PresentationID != "" && ev.PresentationID != filter.PresentationID {
				continue
			}
			if filter.UserID != "" && ev.UserID != filter.UserID {
				continue
			}
		}
		evs = append(evs, *ev)
	}
	sort.Slice(evs, func(i, j int) bool { return evs[i].CreatedAt.Before(evs[j].CreatedAt) })
	return evs, nil
}

func (repo *evaluationRepository) DeleteEvaluation(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.evaluations, id)
	return nil
}
