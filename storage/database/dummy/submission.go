package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	if err := repo.CheckAuthorUniqueness(ctx, sub.MainAuthorID, sub.EditionID); err != nil {
		return submission.Submission{}, err
	}
	if err := repo.CheckTitleUniqueness(ctx, sub.Title, sub.EditionID); err != nil {
		return submission.Submission{}, err
	}

	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sub.ID = uuid.New().String()
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *submissionRepository) GetSubmissionByID(ctx context.Context, id string) (submission.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return *sub, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) SubmissionExists(ctx context.Context, id string) error {
	_, err := repo.GetSubmissionByID(ctx, id)
	return err
}

func (repo *submissionRepository) CheckAuthorUniqueness(ctx context.Context, mainAuthorID, editionID string, excludedSubs ...submission.Submission) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sub := range repo.db.submissions {
		if sub.MainAuthorID == mainAuthorID && sub.EditionID == editionID && !isExcludedSub(*sub, excludedSubs) {
			return submission.ErrAlreadySubmitted
		}
	}
	return nil
}

func (repo *submissionRepository) CheckTitleUniqueness(ctx context.Context, title, editionID string, excludedSubs ...submission.Submission) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sub := range repo.db.submissions {
		if sub.Title == title && sub.EditionID == editionID && !isExcludedSub(*sub, excludedSubs) {
			return submission.ErrTitleExists
		}
	}
	return nil
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter *submission.QueryFilter, ordering []core.DBOrdering) ([]submission.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, sub := range repo.db.submissions {
		subs = append(subs, *sub)
	}

	orderByProposed := false
	if filter != nil {
		orderByProposed = filter.OrderByProposedPresentation

		if filter.EditionID != "" {
			var filtered []submission.Submission
			for _, sub := range subs {
				if sub.EditionID == filter.EditionID {
					filtered = append(filtered, sub)
				}
			}
			subs = filtered
		}
		if filter.MainAuthorID != "" {
			var filtered []submission.Submission
			for _, sub := range subs {
				if sub.MainAuthorID == filter.MainAuthorID {
					filtered = append(filtered, sub)
				}
			}
			subs = filtered
		}
		if filter.WithoutPresentation {
			confirmed := make(map[string]bool, len(repo.db.presentations))
			for _, p := range repo.db.presentations {
				confirmed[p.SubmissionID] = true
			}
			var filtered []submission.Submission
			for _, sub := range subs {
				if !confirmed[sub.ID] {
					filtered = append(filtered, sub)
				}
			}
			subs = filtered
		}
		if filter.ShowConfirmedOnly {
			var filtered []submission.Submission
			for _, sub := range subs {
				if sub.Status == submission.StatusConfirmed {
					filtered = append(filtered, sub)
				}
			}
			subs = filtered
		}
	}

	sort.Slice(subs, func(i, j int) bool {
		if orderByProposed {
			si, sj := subs[i], subs[j]
			if si.ProposedBlockID.Valid != sj.ProposedBlockID.Valid {
				return si.ProposedBlockID.Valid
			}
			if si.ProposedBlockID.String != sj.ProposedBlockID.String {
				return si.ProposedBlockID.String < sj.ProposedBlockID.String
			}
			if si.ProposedPosition.Int != sj.ProposedPosition.Int {
				return si.ProposedPosition.Int < sj.ProposedPosition.Int
			}
		}
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	return subs, nil
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.submissions[sub.ID]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}

	orig.AdvisorID = sub.AdvisorID
	orig.MainAuthorID = sub.MainAuthorID
	orig.Title = sub.Title
	orig.Abstract = sub.Abstract
	orig.PDFFileKey = sub.PDFFileKey
	orig.LinkHostedFile = sub.LinkHostedFile
	orig.PhoneNumber = sub.PhoneNumber
	orig.CoAdvisor = sub.CoAdvisor
	orig.Status = sub.Status
	orig.ProposedBlockID = sub.ProposedBlockID
	orig.ProposedPosition = sub.ProposedPosition
	orig.UpdatedAt = sub.UpdatedAt
	return *orig, nil
}

func (repo *submissionRepository) DeleteSubmission(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.submissions, id)
	return nil
}

func isExcludedSub(sub submission.Submission, excludedSubs []submission.Submission) bool {
	for _, excl := range excludedSubs {
		if excl.ID == sub.ID {
			return true
		}
	}
	return false
}
