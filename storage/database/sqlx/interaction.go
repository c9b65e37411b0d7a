package sqlxrepos

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/FARHATREKAYA/quran-app/core/interaction"
)

var (
	commentColumns = []string{
		"id", "user_id", "verse_id", "content", "is_public", "is_approved", "approved_by", "approved_at",
		"created_at", "updated_at",
	}
	reportColumns = []string{
		"id", "user_id", "verse_id", "report_type", "description", "status", "admin_notes", "created_at", "resolved_at",
	}
)

type commentRow struct {
	ID         int64       `db:"id"`
	UserID     string      `db:"user_id"`
	Username   string      `db:"username"`
	VerseID    int         `db:"verse_id"`
	Content    string      `db:"content"`
	IsPublic   bool        `db:"is_public"`
	IsApproved bool        `db:"is_approved"`
	ApprovedBy null.String `db:"approved_by"`
	ApprovedAt null.Time   `db:"approved_at"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (r commentRow) comment() interaction.Comment {
	return interaction.Comment{
		ID:         r.ID,
		UserID:     r.UserID,
		Username:   r.Username,
		VerseID:    r.VerseID,
		Content:    r.Content,
		IsPublic:   r.IsPublic,
		IsApproved: r.IsApproved,
		ApprovedBy: r.ApprovedBy.String,
		ApprovedAt: timePtr(r.ApprovedAt),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type reportRow struct {
	ID          int64     `db:"id"`
	UserID      string    `db:"user_id"`
	Username    string    `db:"username"`
	VerseID     int       `db:"verse_id"`
	ReportType  string    `db:"report_type"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	AdminNotes  string    `db:"admin_notes"`
	CreatedAt   time.Time `db:"created_at"`
	ResolvedAt  null.Time `db:"resolved_at"`
}

func (r reportRow) report() interaction.Report {
	return interaction.Report{
		ID:          r.ID,
		UserID:      r.UserID,
		Username:    r.Username,
		VerseID:     r.VerseID,
		ReportType:  r.ReportType,
		Description: r.Description,
		Status:      r.Status,
		AdminNotes:  r.AdminNotes,
		CreatedAt:   r.CreatedAt.UTC(),
		ResolvedAt:  timePtr(r.ResolvedAt),
	}
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

type interactionRepository struct {
	pg *Postgres
}

var _ interaction.Repository = (*interactionRepository)(nil) // interface compliance check

func NewInteractionRepository(pg *Postgres) interaction.Repository {
	return &interactionRepository{pg: pg}
}

func (repo *interactionRepository) selectComments(columns ...string) squirrel.SelectBuilder {
	if len(columns) == 0 {
		columns = append(prefixed("c", commentColumns), "u.username")
	}
	return repo.pg.psql.Select(columns...).
		From("verse_comments c").
		Join("users u ON u.id = c.user_id")
}

func (repo *interactionRepository) getComment(ctx context.Context, pg *Postgres, id int64) (interaction.Comment, error) {
	var row commentRow
	if err := pg.get(ctx, &row, repo.selectComments().Where(squirrel.Eq{"c.id": id})); err != nil {
		return interaction.Comment{}, trapNoRowsErr(err, interaction.ErrCommentNotFound)
	}
	return row.comment(), nil
}

func (repo *interactionRepository) CreateComment(ctx context.Context, c interaction.Comment) (interaction.Comment, error) {
	var id int64
	q := repo.pg.psql.Insert("verse_comments").
		Columns(commentColumns[1:]...).
		Values(c.UserID, c.VerseID, c.Content, c.IsPublic, c.IsApproved, null.NewString(c.ApprovedBy, c.ApprovedBy != ""),
			nullTime(c.ApprovedAt), c.CreatedAt.UTC(), c.UpdatedAt.UTC()).
		Suffix("RETURNING id")
	if err := repo.pg.get(ctx, &id, q); err != nil {
		return interaction.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return repo.getComment(ctx, repo.pg, id)
}

func (repo *interactionRepository) GetComment(ctx context.Context, id int64) (interaction.Comment, error) {
	return repo.getComment(ctx, repo.pg, id)
}

func filterComments(q squirrel.SelectBuilder, filter interaction.CommentFilter) squirrel.SelectBuilder {
	if filter.VerseID != 0 {
		q = q.Where(squirrel.Eq{"c.verse_id": filter.VerseID})
	}
	if filter.UserID != "" {
		q = q.Where(squirrel.Eq{"c.user_id": filter.UserID})
	}
	if filter.Approved != nil {
		q = q.Where(squirrel.Eq{"c.is_approved": *filter.Approved})
	}
	if filter.VisibleTo != "" {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"c.is_public": true, "c.is_approved": true},
			squirrel.Eq{"c.user_id": filter.VisibleTo},
		})
	}
	return q
}

func (repo *interactionRepository) QueryComments(ctx context.Context, filter interaction.CommentFilter) ([]interaction.Comment, error) {
	var rows []commentRow
	q := filterComments(repo.selectComments(), filter).OrderBy("c.created_at DESC", "c.id DESC")
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting comments")
	}
	comments := make([]interaction.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, r.comment())
	}
	return comments, nil
}

func (repo *interactionRepository) CountComments(ctx context.Context, filter interaction.CommentFilter) (int, error) {
	n, err := repo.pg.count(ctx, filterComments(repo.selectComments("COUNT(*)"), filter))
	if err != nil {
		return 0, errors.Wrap(err, "counting comments")
	}
	return n, nil
}

func (repo *interactionRepository) UpdateComment(ctx context.Context, c interaction.Comment) (interaction.Comment, error) {
	var updated interaction.Comment
	err := repo.pg.RunInTx(ctx, func(tx *Postgres) error {
		q := tx.psql.Update("verse_comments").
			SetMap(map[string]interface{}{
				"content":     c.Content,
				"is_public":   c.IsPublic,
				"is_approved": c.IsApproved,
				"approved_by": null.NewString(c.ApprovedBy, c.ApprovedBy != ""),
				"approved_at": nullTime(c.ApprovedAt),
				"updated_at":  c.UpdatedAt.UTC(),
			}).
			Where(squirrel.Eq{"id": c.ID})
		n, err := tx.execAffected(ctx, q)
		if err != nil {
			return errors.Wrap(err, "updating comment")
		}
		if n == 0 {
			return interaction.ErrCommentNotFound
		}
		updated, err = repo.getComment(ctx, tx, c.ID)
		return err
	})
	if err != nil {
		return interaction.Comment{}, err
	}
	return updated, nil
}

func (repo *interactionRepository) DeleteComment(ctx context.Context, id int64) error {
	n, err := repo.pg.execAffected(ctx, repo.pg.psql.Delete("verse_comments").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	if n == 0 {
		return interaction.ErrCommentNotFound
	}
	return nil
}

func (repo *interactionRepository) selectReports(columns ...string) squirrel.SelectBuilder {
	if len(columns) == 0 {
		columns = append(prefixed("r", reportColumns), "u.username")
	}
	return repo.pg.psql.Select(columns...).
		From("verse_reports r").
		Join("users u ON u.id = r.user_id")
}

func (repo *interactionRepository) getReport(ctx context.Context, pg *Postgres, id int64) (interaction.Report, error) {
	var row reportRow
	if err := pg.get(ctx, &row, repo.selectReports().Where(squirrel.Eq{"r.id": id})); err != nil {
		return interaction.Report{}, trapNoRowsErr(err, interaction.ErrReportNotFound)
	}
	return row.report(), nil
}

func (repo *interactionRepository) CreateReport(ctx context.Context, r interaction.Report) (interaction.Report, error) {
	var id int64
	q := repo.pg.psql.Insert("verse_reports").
		Columns(reportColumns[1:]...).
		Values(r.UserID, r.VerseID, r.ReportType, r.Description, r.Status, r.AdminNotes, r.CreatedAt.UTC(), nullTime(r.ResolvedAt)).
		Suffix("RETURNING id")
	if err := repo.pg.get(ctx, &id, q); err != nil {
		return interaction.Report{}, errors.Wrap(err, "inserting report")
	}
	return repo.getReport(ctx, repo.pg, id)
}

func (repo *interactionRepository) GetReport(ctx context.Context, id int64) (interaction.Report, error) {
	return repo.getReport(ctx, repo.pg, id)
}

func filterReports(q squirrel.SelectBuilder, filter interaction.ReportFilter) squirrel.SelectBuilder {
	if filter.VerseID != 0 {
		q = q.Where(squirrel.Eq{"r.verse_id": filter.VerseID})
	}
	if filter.UserID != "" {
		q = q.Where(squirrel.Eq{"r.user_id": filter.UserID})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"r.status": filter.Status})
	}
	return q
}

func (repo *interactionRepository) QueryReports(ctx context.Context, filter interaction.ReportFilter) ([]interaction.Report, error) {
	var rows []reportRow
	q := filterReports(repo.selectReports(), filter).OrderBy("r.created_at DESC", "r.id DESC")
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting reports")
	}
	reports := make([]interaction.Report, 0, len(rows))
	for _, r := range rows {
		reports = append(reports, r.report())
	}
	return reports, nil
}

func (repo *interactionRepository) CountReports(ctx context.Context, filter interaction.ReportFilter) (int, error) {
	n, err := repo.pg.count(ctx, filterReports(repo.selectReports("COUNT(*)"), filter))
	if err != nil {
		return 0, errors.Wrap(err, "counting reports")
	}
	return n, nil
}

func (repo *interactionRepository) UpdateReport(ctx context.Context, r interaction.Report) (interaction.Report, error) {
	var updated interaction.Report
	err := repo.pg.RunInTx(ctx, func(tx *Postgres) error {
		q := tx.psql.Update("verse_reports").
			SetMap(map[string]interface{}{
				"status":      r.Status,
				"admin_notes": r.AdminNotes,
				"resolved_at": nullTime(r.ResolvedAt),
			}).
			Where(squirrel.Eq{"id": r.ID})
		n, err := tx.execAffected(ctx, q)
		if err != nil {
			return errors.Wrap(err, "updating report")
		}
		if n == 0 {
			return interaction.ErrReportNotFound
		}
		updated, err = repo.getReport(ctx, tx, r.ID)
		return err
	})
	if err != nil {
		return interaction.Report{}, err
	}
	return updated, nil
}
