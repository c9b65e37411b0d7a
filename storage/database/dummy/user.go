package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// checkUniqueness must be called with the lock held.
func (repo *userRepository) checkUniqueness(usr user.User) error {
	for _, u := range repo.db.users {
		if u.ID == usr.ID {
			continue
		}
		if strings.EqualFold(u.Username, usr.Username) {
			return user.ErrUsernameExists
		}
		if usr.Email != "" && strings.EqualFold(u.Email, usr.Email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	for _, usr := range repo.db.users {
		switch {
		case filter.UsernameOrEmail != "":
			if strings.EqualFold(usr.Username, filter.UsernameOrEmail) || (usr.Email != "" && strings.EqualFold(usr.Email, filter.UsernameOrEmail)) {
				return *usr, nil
			}
		case filter.Email != "":
			if strings.EqualFold(usr.Email, filter.Email) {
				return *usr, nil
			}
		case filter.GoogleID != "":
			if usr.GoogleID == filter.GoogleID {
				return *usr, nil
			}
		case filter.FacebookID != "":
			if usr.FacebookID == filter.FacebookID {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if strings.EqualFold(usr.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

// filter must be called with the read lock held.
func (repo *userRepository) filter(filter user.QueryFilter) []user.User {
	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		if search != "" && !strings.Contains(strings.ToLower(u.Username), search) && !strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.IsAdmin != nil && u.IsAdmin != *filter.IsAdmin {
			continue
		}
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, page core.Page, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.filter(filter)

	ord := core.DBOrdering{Field: "created_at"}
	if ords := core.CleanOrderings(ordering, "username", "created_at"); len(ords) > 0 {
		ord = ords[0]
	}
	sort.SliceStable(users, func(i, j int) bool {
		var less bool
		if ord.Field == "username" {
			less = users[i].Username < users[j].Username
		} else {
			less = users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		if ord.Ascending {
			return less
		}
		return !less
	})

	page.Clean()
	if page.Skip >= len(users) {
		return []user.User{}, nil
	}
	end := page.Skip + page.Limit
	if end > len(users) {
		end = len(users)
	}
	return users[page.Skip:end], nil
}

func (repo *userRepository) CountUsers(_ context.Context, filter user.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}
	repo.db.deleteUserData(id)
	delete(repo.db.users, id)
	return nil
}
