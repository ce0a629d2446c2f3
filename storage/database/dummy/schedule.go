package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) CreateBlock(ctx context.Context, blk schedule.Block) (schedule.Block, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	blk.ID = uuid.New().String()
	repo.db.blocks[blk.ID] = &blk
	return blk, nil
}

func (repo *scheduleRepository) GetBlockByID(ctx context.Context, id string) (schedule.Block, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if blk, ok := repo.db.blocks[id]; ok {
		return *blk, nil
	}
	return schedule.Block{}, schedule.ErrBlockNotFound
}

func (repo *scheduleRepository) QueryBlocks(ctx context.Context, editionID string, ordering []core.DBOrdering) ([]schedule.Block, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	blocks := make([]schedule.Block, 0)
	for _, blk := range repo.db.blocks {
		if blk.EditionID == editionID {
			blocks = append(blocks, *blk)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].StartTime.Before(blocks[j].StartTime) })
	return blocks, nil
}

func (repo *scheduleRepository) UpdateBlock(ctx context.Context, blk schedule.Block) (schedule.Block, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.blocks[blk.ID]
	if !ok {
		return schedule.Block{}, schedule.ErrBlockNotFound
	}
	orig.RoomID = blk.RoomID
	orig.Type = blk.Type
	orig.Title = blk.Title
	orig.StartTime = blk.StartTime
	orig.Duration = blk.Duration
	orig.UpdatedAt = blk.UpdatedAt
	return *orig, nil
}

func (repo *scheduleRepository) DeleteBlock(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, p := range repo.db.presentations {
		if p.BlockID == id {
			return schedule.ErrBlockInUse
		}
	}
	delete(repo.db.blocks, id)
	return nil
}

func (repo *scheduleRepository) CreatePresentation(ctx context.Context, p schedule.Presentation) (schedule.Presentation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.presentations {
		if other.SubmissionID == p.SubmissionID {
			return schedule.Presentation{}, schedule.ErrAlreadyConfirmed
		}
		if other.BlockID == p.BlockID && other.Position == p.Position {
			return schedule.Presentation{}, schedule.ErrPositionTaken
		}
	}

	p.ID = uuid.New().String()
	repo.db.presentations[p.ID] = &p
	return p, nil
}

func (repo *scheduleRepository) GetPresentationByID(ctx context.Context, id string) (schedule.Presentation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.presentations[id]; ok {
		return *p, nil
	}
	return schedule.Presentation{}, schedule.ErrPresentationNotFound
}

func (repo *scheduleRepository) GetPresentationBySubmissionID(ctx context.Context, submissionID string) (schedule.Presentation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.presentations {
		if p.SubmissionID == submissionID {
			return *p, nil
		}
	}
	return schedule.Presentation{}, schedule.ErrPresentationNotFound
}

func (repo *scheduleRepository) GetPresentationAt(ctx context.Context, blockID string, position int) (schedule.Presentation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.presentations {
		if p.BlockID == blockID && p.Position == position {
			return *p, nil
		}
	}
	return schedule.Presentation{}, schedule.ErrPresentationNotFound
}

func (repo *scheduleRepository) QueryPresentationsByBlock(ctx context.Context, blockID string) ([]schedule.Presentation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	prezs := make([]schedule.Presentation, 0)
	for _, p := range repo.db.presentations {
		if p.BlockID == blockID {
			prezs = append(prezs, *p)
		}
	}
	sort.Slice(prezs, func(i, j int) bool { return prezs[i].Position < prezs[j].Position })
	return prezs, nil
}

func (repo *scheduleRepository) QueryPresentationsByEdition(ctx context.Context, editionID string) ([]schedule.Presentation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	prezs := make([]schedule.Presentation, 0)
	for _, p := range repo.db.presentations {
		if blk, ok := repo.db.blocks[p.BlockID]; ok && blk.EditionID == editionID {
			prezs = append(prezs, *p)
		}
	}
	sort.Slice(prezs, func(i, j int) bool {
		bi, bj := repo.db.blocks[prezs[i].BlockID], repo.db.blocks[prezs[j].BlockID]
		if !bi.StartTime.Equal(bj.StartTime) {
			return bi.StartTime.Before(bj.StartTime)
		}
		return prezs[i].Position < prezs[j].Position
	})
	return prezs, nil
}

func (repo *scheduleRepository) UpdatePresentationStatus(ctx context.Context, id string, status schedule.PresentationStatus) (schedule.Presentation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p, ok := repo.db.presentations[id]
	if !ok {
		return schedule.Presentation{}, schedule.ErrPresentationNotFound
	}
	p.Status = status
	return *p, nil
}

func (repo *scheduleRepository) UpdatePresentationScores(ctx context.Context, id string, public, evaluators null.Float64) (schedule.Presentation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p, ok := repo.db.presentations[id]
	if !ok {
		return schedule.Presentation{}, schedule.ErrPresentationNotFound
	}
	p.PublicAverageScore = public
	p.EvaluatorsAverageScore = evaluators
	return *p, nil
}

func (repo *scheduleRepository) DeletePresentation(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.presentations, id)
	return nil
}

func (repo *scheduleRepository) TopByEvaluators(ctx context.Context, editionID string, limit int) ([]schedule.RankedPresentation, error) {
	return repo.top(editionID, limit, func(p schedule.Presentation) null.Float64 { return p.EvaluatorsAverageScore })
}

func (repo *scheduleRepository) TopByAudience(ctx context.Context, editionID string, limit int) ([]schedule.RankedPresentation, error) {
	return repo.top(editionID, limit, func(p schedule.Presentation) null.Float64 { return p.PublicAverageScore })
}

func (repo *scheduleRepository) top(editionID string, limit int, score func(schedule.Presentation) null.Float64) ([]schedule.RankedPresentation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ranked := make([]schedule.RankedPresentation, 0)
	for _, p := range repo.db.presentations {
		blk, ok := repo.db.blocks[p.BlockID]
		if !ok || blk.EditionID != editionID || !score(*p).Valid {
			continue
		}
		ranked = append(ranked, repo.join(*p))
	}

	sort.Slice(ranked, func(i, j int) bool {
		si, sj := score(ranked[i].Presentation).Float64, score(ranked[j].Presentation).Float64
		if si != sj {
			return si > sj
		}
		return ranked[i].SubmissionID < ranked[j].SubmissionID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (repo *scheduleRepository) QueryPresentedWithAuthors(ctx context.Context, editionID string) ([]schedule.RankedPresentation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	presented := make([]schedule.RankedPresentation, 0)
	for _, p := range repo.db.presentations {
		blk, ok := repo.db.blocks[p.BlockID]
		if !ok || blk.EditionID != editionID || p.Status != schedule.StatusPresented {
			continue
		}
		presented = append(presented, repo.join(*p))
	}
	sort.Slice(presented, func(i, j int) bool { return presented[i].SubmissionID < presented[j].SubmissionID })
	return presented, nil
}

// join denormalizes a presentation with its submission and main author;
// callers must hold the lock.
func (repo *scheduleRepository) join(p schedule.Presentation) schedule.RankedPresentation {
	ranked := schedule.RankedPresentation{Presentation: p}
	if sub, ok := repo.db.submissions[p.SubmissionID]; ok {
		ranked.SubmissionTitle = sub.Title
		ranked.MainAuthorID = sub.MainAuthorID
		if author, ok := repo.db.users[sub.MainAuthorID]; ok {
			ranked.MainAuthorName = author.Name
			ranked.MainAuthorEmail = author.Email
		}
	}
	return ranked
}
