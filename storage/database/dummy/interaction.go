package dummydb

import (
	"context"
	"sort"

	"github.com/FARHATREKAYA/quran-app/core/interaction"
)

type interactionRepository struct {
	db *DB
}

var _ interaction.Repository = (*interactionRepository)(nil) // interface compliance check

func NewInteractionRepository(db *DB) interaction.Repository {
	return &interactionRepository{db: db}
}

func (repo *interactionRepository) CreateComment(_ context.Context, c interaction.Comment) (interaction.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = repo.db.nextPK()
	c.Username = repo.db.username(c.UserID)
	c.VerseInfo = interaction.VerseInfo{}
	repo.db.comments[c.ID] = &c
	return c, nil
}

func (repo *interactionRepository) GetComment(_ context.Context, id int64) (interaction.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.comments[id]; ok {
		res := *c
		res.Username = repo.db.username(c.UserID)
		return res, nil
	}
	return interaction.Comment{}, interaction.ErrCommentNotFound
}

// filterComments must be called with the read lock held.
func (repo *interactionRepository) filterComments(filter interaction.CommentFilter) []interaction.Comment {
	comments := make([]interaction.Comment, 0)
	for _, c := range repo.db.comments {
		switch {
		case filter.VerseID != 0 && c.VerseID != filter.VerseID,
			filter.UserID != "" && c.UserID != filter.UserID,
			filter.Approved != nil && c.IsApproved != *filter.Approved,
			filter.VisibleTo != "" && !(c.IsPublic && c.IsApproved) && c.UserID != filter.VisibleTo:
			continue
		}
		res := *c
		res.Username = repo.db.username(c.UserID)
		comments = append(comments, res)
	}
	return comments
}

func (repo *interactionRepository) QueryComments(_ context.Context, filter interaction.CommentFilter) ([]interaction.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	comments := repo.filterComments(filter)
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID > comments[j].ID
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments, nil
}

func (repo *interactionRepository) CountComments(_ context.Context, filter interaction.CommentFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.filterComments(filter)), nil
}

func (repo *interactionRepository) UpdateComment(_ context.Context, c interaction.Comment) (interaction.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.comments[c.ID]
	if !ok {
		return interaction.Comment{}, interaction.ErrCommentNotFound
	}
	orig.Content = c.Content
	orig.IsPublic = c.IsPublic
	orig.IsApproved = c.IsApproved
	orig.ApprovedBy = c.ApprovedBy
	orig.ApprovedAt = c.ApprovedAt
	orig.UpdatedAt = c.UpdatedAt

	res := *orig
	res.Username = repo.db.username(orig.UserID)
	return res, nil
}

func (repo *interactionRepository) DeleteComment(_ context.Context, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.comments[id]; !ok {
		return interaction.ErrCommentNotFound
	}
	delete(repo.db.comments, id)
	return nil
}

func (repo *interactionRepository) CreateReport(_ context.Context, r interaction.Report) (interaction.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	r.ID = repo.db.nextPK()
	r.Username = repo.db.username(r.UserID)
	r.VerseInfo = interaction.VerseInfo{}
	repo.db.reports[r.ID] = &r
	return r, nil
}

func (repo *interactionRepository) GetReport(_ context.Context, id int64) (interaction.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.reports[id]; ok {
		res := *r
		res.Username = repo.db.username(r.UserID)
		return res, nil
	}
	return interaction.Report{}, interaction.ErrReportNotFound
}

// filterReports must be called with the read lock held.
func (repo *interactionRepository) filterReports(filter interaction.ReportFilter) []interaction.Report {
	reports := make([]interaction.Report, 0)
	for _, r := range repo.db.reports {
		switch {
		case filter.VerseID != 0 && r.VerseID != filter.VerseID,
			filter.UserID != "" && r.UserID != filter.UserID,
			filter.Status != "" && r.Status != filter.Status:
			continue
		}
		res := *r
		res.Username = repo.db.username(r.UserID)
		reports = append(reports, res)
	}
	return reports
}

func (repo *interactionRepository) QueryReports(_ context.Context, filter interaction.ReportFilter) ([]interaction.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reports := repo.filterReports(filter)
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].ID > reports[j].ID
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

func (repo *interactionRepository) CountReports(_ context.Context, filter interaction.ReportFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.filterReports(filter)), nil
}

func (repo *interactionRepository) UpdateReport(_ context.Context, r interaction.Report) (interaction.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.reports[r.ID]
	if !ok {
		return interaction.Report{}, interaction.ErrReportNotFound
	}
	orig.Status = r.Status
	orig.AdminNotes = r.AdminNotes
	orig.ResolvedAt = r.ResolvedAt

	res := *orig
	res.Username = repo.db.username(orig.UserID)
	return res, nil
}
