package interaction

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/quran"
	"github.com/FARHATREKAYA/quran-app/core/user"
)

var (
	// errors
	ErrCommentNotFound = core.NewNotFoundError("comment")
	ErrReportNotFound  = core.NewNotFoundError("report")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateComment(ctx context.Context, c Comment) (Comment, error)
		GetComment(ctx context.Context, id int64) (Comment, error)
		// QueryComments returns the matching comments, newest first.
		QueryComments(ctx context.Context, filter CommentFilter) ([]Comment, error)
		CountComments(ctx context.Context, filter CommentFilter) (int, error)
		UpdateComment(ctx context.Context, c Comment) (Comment, error)
		DeleteComment(ctx context.Context, id int64) error

		CreateReport(ctx context.Context, r Report) (Report, error)
		GetReport(ctx context.Context, id int64) (Report, error)
		// QueryReports returns the matching reports, newest first.
		QueryReports(ctx context.Context, filter ReportFilter) ([]Report, error)
		CountReports(ctx context.Context, filter ReportFilter) (int, error)
		UpdateReport(ctx context.Context, r Report) (Report, error)
	}

	Verses interface {
		GetVerses(ctx context.Context, ids ...int) (map[int]quran.Verse, error)
		ListSurahs(ctx context.Context) ([]quran.Surah, error)
	}

	Users interface {
		Count(ctx context.Context, filter user.QueryFilter) (int, error)
	}

	Service interface {
		VerseComments(ctx context.Context, verseID int, viewer user.User) ([]Comment, error)
		CreateComment(ctx context.Context, userID string, verseID int, nc NewComment) (Comment, error)
		UpdateComment(ctx context.Context, userID string, verseID int, id int64, uc UpdateComment) (Comment, error)
		DeleteComment(ctx context.Context, userID string, verseID int, id int64) error
		UserComments(ctx context.Context, userID string) ([]Comment, error)

		CreateReport(ctx context.Context, userID string, verseID int, nr NewReport) (Report, error)
		UserVerseReports(ctx context.Context, userID string, verseID int) ([]Report, error)
		UserReports(ctx context.Context, userID string) ([]Report, error)

		// admin
		PendingComments(ctx context.Context) ([]Comment, error)
		AllComments(ctx context.Context, approvedOnly bool) ([]Comment, error)
		// ModerateComment returns a message describing the outcome.
		ModerateComment(ctx context.Context, adminID string, id int64, m Moderation) (string, error)
		Reports(ctx context.Context, status string) ([]Report, error)
		UpdateReport(ctx context.Context, id int64, ur UpdateReport) (Report, error)
		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo   Repository
		verses Verses
		users  Users
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, verses Verses, users Users) Service {
	return &service{repo: repo, verses: verses, users: users}
}

func (svc *service) VerseComments(ctx context.Context, verseID int, viewer user.User) ([]Comment, error) {
	filter := CommentFilter{VerseID: verseID}
	if !viewer.IsAdmin {
		filter.VisibleTo = viewer.ID
	}
	comments, err := svc.repo.QueryComments(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	return comments, nil
}

func (svc *service) checkVerse(ctx context.Context, verseID int) error {
	verses, err := svc.verses.GetVerses(ctx, verseID)
	if err != nil {
		return errors.Wrap(err, "getting verse")
	}
	if _, ok := verses[verseID]; !ok {
		return quran.ErrVerseNotFound
	}
	return nil
}

// CreateComment expects a validated NewComment.
func (svc *service) CreateComment(ctx context.Context, userID string, verseID int, nc NewComment) (Comment, error) {
	if err := svc.checkVerse(ctx, verseID); err != nil {
		return Comment{}, err
	}
	now := NowFunc().UTC()
	c := Comment{
		UserID:    userID,
		VerseID:   verseID,
		Content:   nc.Content,
		IsPublic:  nc.IsPublic == nil || *nc.IsPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateComment(ctx, c)
}

// ownComment returns the comment `id` on `verseID` written by `userID`.
func (svc *service) ownComment(ctx context.Context, userID string, verseID int, id int64) (Comment, error) {
	c, err := svc.repo.GetComment(ctx, id)
	if err != nil {
		return Comment{}, err
	}
	if c.UserID != userID || c.VerseID != verseID {
		return Comment{}, ErrCommentNotFound
	}
	return c, nil
}

// UpdateComment expects a validated UpdateComment.
func (svc *service) UpdateComment(ctx context.Context, userID string, verseID int, id int64, uc UpdateComment) (Comment, error) {
	c, err := svc.ownComment(ctx, userID, verseID, id)
	if err != nil {
		return Comment{}, err
	}
	c.Content = uc.Content
	c.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateComment(ctx, c)
}

func (svc *service) DeleteComment(ctx context.Context, userID string, verseID int, id int64) error {
	if _, err := svc.ownComment(ctx, userID, verseID, id); err != nil {
		return err
	}
	return svc.repo.DeleteComment(ctx, id)
}

func (svc *service) UserComments(ctx context.Context, userID string) ([]Comment, error) {
	return svc.queryComments(ctx, CommentFilter{UserID: userID})
}

// CreateReport expects a validated NewReport.
func (svc *service) CreateReport(ctx context.Context, userID string, verseID int, nr NewReport) (Report, error) {
	if err := svc.checkVerse(ctx, verseID); err != nil {
		return Report{}, err
	}
	return svc.repo.CreateReport(ctx, Report{
		UserID:      userID,
		VerseID:     verseID,
		ReportType:  nr.ReportType,
		Description: nr.Description,
		Status:      StatusPending,
		CreatedAt:   NowFunc().UTC(),
	})
}

func (svc *service) UserVerseReports(ctx context.Context, userID string, verseID int) ([]Report, error) {
	return svc.queryReports(ctx, ReportFilter{UserID: userID, VerseID: verseID})
}

func (svc *service) UserReports(ctx context.Context, userID string) ([]Report, error) {
	return svc.queryReports(ctx, ReportFilter{UserID: userID})
}

func (svc *service) PendingComments(ctx context.Context) ([]Comment, error) {
	approved := false
	return svc.queryComments(ctx, CommentFilter{Approved: &approved})
}

func (svc *service) AllComments(ctx context.Context, approvedOnly bool) ([]Comment, error) {
	var filter CommentFilter
	if approvedOnly {
		approved := true
		filter.Approved = &approved
	}
	return svc.queryComments(ctx, filter)
}

// ModerateComment expects a validated Moderation.
func (svc *service) ModerateComment(ctx context.Context, adminID string, id int64, m Moderation) (string, error) {
	c, err := svc.repo.GetComment(ctx, id)
	if err != nil {
		return "", err
	}

	now := NowFunc().UTC()
	switch m.Action {
	case ActionApprove, ActionDecline:
		c.IsApproved = m.Action == ActionApprove
		c.ApprovedBy = adminID
		c.ApprovedAt = &now
		c.UpdatedAt = now
		if _, err = svc.repo.UpdateComment(ctx, c); err != nil {
			return "", err
		}
		if c.IsApproved {
			return "Comment approved successfully", nil
		}
		return "Comment declined", nil
	case ActionDelete:
		if err = svc.repo.DeleteComment(ctx, id); err != nil {
			return "", err
		}
		return "Comment deleted", nil
	default:
		return "", core.NewValidationError(nil, core.FieldError{Field: "action", Error: "invalid action"})
	}
}

func (svc *service) Reports(ctx context.Context, status string) ([]Report, error) {
	return svc.queryReports(ctx, ReportFilter{Status: status})
}

// UpdateReport expects a validated UpdateReport.
func (svc *service) UpdateReport(ctx context.Context, id int64, ur UpdateReport) (Report, error) {
	r, err := svc.repo.GetReport(ctx, id)
	if err != nil {
		return Report{}, err
	}
	r.Status = ur.Status
	r.AdminNotes = ur.AdminNotes
	if ur.Status == StatusResolved || ur.Status == StatusRejected {
		now := NowFunc().UTC()
		r.ResolvedAt = &now
	}
	return svc.repo.UpdateReport(ctx, r)
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	var (
		stats    Stats
		err      error
		approved = false
		blocked  = false
	)
	if stats.PendingComments, err = svc.repo.CountComments(ctx, CommentFilter{Approved: &approved}); err != nil {
		return Stats{}, errors.Wrap(err, "counting pending comments")
	}
	if stats.TotalComments, err = svc.repo.CountComments(ctx, CommentFilter{}); err != nil {
		return Stats{}, errors.Wrap(err, "counting comments")
	}
	if stats.PendingReports, err = svc.repo.CountReports(ctx, ReportFilter{Status: StatusPending}); err != nil {
		return Stats{}, errors.Wrap(err, "counting pending reports")
	}
	if stats.TotalReports, err = svc.repo.CountReports(ctx, ReportFilter{}); err != nil {
		return Stats{}, errors.Wrap(err, "counting reports")
	}
	if stats.TotalUsers, err = svc.users.Count(ctx, user.QueryFilter{}); err != nil {
		return Stats{}, errors.Wrap(err, "counting users")
	}
	if stats.BlockedUsers, err = svc.users.Count(ctx, user.QueryFilter{IsActive: &blocked}); err != nil {
		return Stats{}, errors.Wrap(err, "counting blocked users")
	}
	return stats, nil
}

func (svc *service) queryComments(ctx context.Context, filter CommentFilter) ([]Comment, error) {
	comments, err := svc.repo.QueryComments(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	ids := make([]int, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.VerseID)
	}
	infos, err := svc.verseInfos(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range comments {
		comments[i].VerseInfo = infos[comments[i].VerseID]
	}
	return comments, nil
}

func (svc *service) queryReports(ctx context.Context, filter ReportFilter) ([]Report, error) {
	reports, err := svc.repo.QueryReports(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	ids := make([]int, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.VerseID)
	}
	infos, err := svc.verseInfos(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		reports[i].VerseInfo = infos[reports[i].VerseID]
	}
	return reports, nil
}

func (svc *service) verseInfos(ctx context.Context, verseIDs []int) (map[int]VerseInfo, error) {
	infos := make(map[int]VerseInfo, len(verseIDs))
	if len(verseIDs) == 0 {
		return infos, nil
	}
	verses, err := svc.verses.GetVerses(ctx, verseIDs...)
	if err != nil {
		return nil, errors.Wrap(err, "getting verses")
	}
	surahs, err := svc.verses.ListSurahs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing surahs")
	}
	names := make(map[int]string, len(surahs))
	for _, s := range surahs {
		names[s.ID] = s.NameEnglish
	}

	for _, id := range verseIDs {
		v, ok := verses[id]
		if !ok {
			infos[id] = VerseInfo{Label: "Unknown"}
			continue
		}
		name := names[v.SurahID]
		infos[id] = VerseInfo{
			SurahName:   name,
			VerseNumber: v.VerseNumberInSurah,
			Label:       fmt.Sprintf("%s %d", name, v.VerseNumberInSurah),
		}
	}
	return infos, nil
}
