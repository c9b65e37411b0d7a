package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/user"
)

var userColumns = []string{
	"id", "username", "email", "password_hash", "is_guest", "is_admin", "is_active", "google_id", "facebook_id",
	"preferred_theme", "preferred_language", "created_at", "updated_at", "last_login",
}

type userRow struct {
	ID                string      `db:"id"`
	Username          string      `db:"username"`
	Email             null.String `db:"email"`
	PasswordHash      null.Bytes  `db:"password_hash"`
	IsGuest           bool        `db:"is_guest"`
	IsAdmin           bool        `db:"is_admin"`
	IsActive          bool        `db:"is_active"`
	GoogleID          null.String `db:"google_id"`
	FacebookID        null.String `db:"facebook_id"`
	PreferredTheme    string      `db:"preferred_theme"`
	PreferredLanguage string      `db:"preferred_language"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
	LastLogin         null.Time   `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:                usr.ID,
		Username:          usr.Username,
		Email:             null.NewString(usr.Email, usr.Email != ""),
		PasswordHash:      null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		IsGuest:           usr.IsGuest,
		IsAdmin:           usr.IsAdmin,
		IsActive:          usr.IsActive,
		GoogleID:          null.NewString(usr.GoogleID, usr.GoogleID != ""),
		FacebookID:        null.NewString(usr.FacebookID, usr.FacebookID != ""),
		PreferredTheme:    usr.PreferredTheme,
		PreferredLanguage: usr.PreferredLanguage,
		CreatedAt:         usr.CreatedAt.UTC(),
		UpdatedAt:         usr.UpdatedAt.UTC(),
		LastLogin:         null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:                r.ID,
		Username:          r.Username,
		Email:             r.Email.String,
		PasswordHash:      r.PasswordHash.Bytes,
		IsGuest:           r.IsGuest,
		IsAdmin:           r.IsAdmin,
		IsActive:          r.IsActive,
		GoogleID:          r.GoogleID.String,
		FacebookID:        r.FacebookID.String,
		PreferredTheme:    r.PreferredTheme,
		PreferredLanguage: r.PreferredLanguage,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

func (r userRow) values() []interface{} {
	return []interface{}{
		r.ID, r.Username, r.Email, r.PasswordHash, r.IsGuest, r.IsAdmin, r.IsActive, r.GoogleID, r.FacebookID,
		r.PreferredTheme, r.PreferredLanguage, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	}
}

type userRepository struct {
	pg *Postgres
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(pg *Postgres) user.Repository {
	return &userRepository{pg: pg}
}

func userUniquenessError(err error) error {
	switch {
	case isUniqueViolation(err, "users_username_key"):
		return user.ErrUsernameExists
	case isUniqueViolation(err, "users_email_key"):
		return user.ErrEmailExists
	}
	return err
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := repo.pg.psql.Insert("users").
		Columns(userColumns...).
		Values(newUserRow(usr).values()...)

	if _, err := repo.pg.exec(ctx, q); err != nil {
		return user.User{}, errors.Wrap(userUniquenessError(err), "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := repo.pg.psql.Select(userColumns...).From("users").Limit(1)
	switch {
	case filter.ID != "":
		q = q.Where(squirrel.Eq{"id": filter.ID})
	case filter.UsernameOrEmail != "":
		q = q.Where("(LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?))", filter.UsernameOrEmail, filter.UsernameOrEmail)
	case filter.Email != "":
		q = q.Where("LOWER(email) = LOWER(?)", filter.Email)
	case filter.GoogleID != "":
		q = q.Where(squirrel.Eq{"google_id": filter.GoogleID})
	case filter.FacebookID != "":
		q = q.Where(squirrel.Eq{"facebook_id": filter.FacebookID})
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.pg.get(ctx, &row, q); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound)
	}
	return row.user(), nil
}

func (repo *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	q := repo.pg.psql.Select("COUNT(*)").From("users").Where("LOWER(username) = LOWER(?)", username)
	n, err := repo.pg.count(ctx, q)
	if err != nil {
		return false, errors.Wrap(err, "checking username")
	}
	return n > 0, nil
}

func filterUsers(q squirrel.SelectBuilder, filter user.QueryFilter) squirrel.SelectBuilder {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where(squirrel.Or{
			squirrel.Like{"LOWER(username)": pattern},
			squirrel.Like{"LOWER(email)": pattern},
		})
	}
	if filter.IsActive != nil {
		q = q.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}
	if filter.IsAdmin != nil {
		q = q.Where(squirrel.Eq{"is_admin": *filter.IsAdmin})
	}
	return q
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]user.User, error) {
	page.Clean()
	q := filterUsers(repo.pg.psql.Select(userColumns...).From("users"), filter).
		Offset(uint64(page.Skip)).
		Limit(uint64(page.Limit))

	orderings := core.CleanOrderings(ordering, "username", "created_at", "last_login")
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "created_at"}}
	}
	for _, ord := range orderings {
		q = q.OrderBy(ord.String())
	}

	var rows []userRow
	if err := repo.pg.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) CountUsers(ctx context.Context, filter user.QueryFilter) (int, error) {
	n, err := repo.pg.count(ctx, filterUsers(repo.pg.psql.Select("COUNT(*)").From("users"), filter))
	if err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := newUserRow(usr)
	q := repo.pg.psql.Update("users").
		SetMap(map[string]interface{}{
			"username":           row.Username,
			"email":              row.Email,
			"password_hash":      row.PasswordHash,
			"is_guest":           row.IsGuest,
			"is_admin":           row.IsAdmin,
			"is_active":          row.IsActive,
			"google_id":          row.GoogleID,
			"facebook_id":        row.FacebookID,
			"preferred_theme":    row.PreferredTheme,
			"preferred_language": row.PreferredLanguage,
			"updated_at":         row.UpdatedAt,
			"last_login":         row.LastLogin,
		}).
		Where(squirrel.Eq{"id": usr.ID})

	n, err := repo.pg.execAffected(ctx, q)
	if err != nil {
		return user.User{}, errors.Wrap(userUniquenessError(err), "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

// DeleteUser relies on ON DELETE CASCADE for the user's khatms, bookmarks, comments and reports.
func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	return repo.pg.RunInTx(ctx, func(tx *Postgres) error {
		n, err := tx.execAffected(ctx, tx.psql.Delete("users").Where(squirrel.Eq{"id": id}))
		if err != nil {
			return errors.Wrap(err, "deleting user")
		}
		if n == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}
