package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func isExcluded(usr *user.User, excludedUsers []user.User) bool {
	for _, u := range excludedUsers {
		if u.ID == usr.ID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if isExcluded(usr, excludedUsers) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.CheckUsernameUniqueness(ctx, usr.Username, usr.Email); err != nil {
		return user.User{}, err
	}

	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = newID()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func matchesUser(usr *user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" && !contains(filter.Search, usr.Name, usr.Username, usr.Email) {
		return false
	}
	if len(filter.Roles) > 0 {
		found := false
		for _, prefix := range filter.Roles {
			if usr.RoleStartsWith(prefix) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && usr.Active() != *filter.IsActive {
		return false
	}
	if filter.Department != "" && !strings.EqualFold(usr.Department, filter.Department) {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func userLess(a, b user.User, ord core.DBOrdering) (less, equal bool) {
	var x, y string
	switch ord.Field {
	case "name":
		x, y = strings.ToLower(a.Name), strings.ToLower(b.Name)
	case "username":
		x, y = a.Username, b.Username
	case "email":
		x, y = a.Email, b.Email
	default:
		if a.CreatedAt.Equal(b.CreatedAt) {
			return false, true
		}
		if ord.Ascending {
			return a.CreatedAt.Before(b.CreatedAt), false
		}
		return a.CreatedAt.After(b.CreatedAt), false
	}
	if x == y {
		return false, true
	}
	if ord.Ascending {
		return x < y, false
	}
	return x > y, false
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if matchesUser(usr, filter) {
			users = append(users, *usr)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			if less, equal := userLess(users[i], users[j], ord); !equal {
				return less
			}
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	var uname, email string
	switch {
	case filter.Username != "":
		uname = filter.Username
	case filter.Email != "":
		email = filter.Email
	case len(filter.UsernameOrEmail) > 0:
		uname = filter.UsernameOrEmail[0]
		email = uname
		if len(filter.UsernameOrEmail) == 2 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
		}
	default:
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		if (uname != "" && usr.Username == uname) || (email != "" && usr.Email == email) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.CheckUsernameUniqueness(ctx, usr.Username, usr.Email, usr); err != nil {
		return user.User{}, err
	}

	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID != "" {
		repo.db.mu.RLock()
		_, ok := repo.db.users[usr.ID]
		repo.db.mu.RUnlock()
		if ok {
			return repo.UpdateUser(ctx, usr)
		}
	}
	return repo.CreateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.users[id]; ok {
			delete(repo.db.users, id)
			n++
		}
	}
	return n, nil
}

func (repo *userRepository) CountUsersByRoleGroup(_ context.Context) (map[string]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[string]int)
	for _, usr := range repo.db.users {
		groups := make(map[string]bool, len(usr.Roles))
		for _, role := range usr.Roles {
			groups[user.RoleGroup(role)] = true
		}
		for group := range groups {
			counts[group]++
		}
	}
	return counts, nil
}
