package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email && !isExcludedUser(usr, excludedUsers) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.CheckEmailUniqueness(ctx, usr.Email); err != nil {
		return user.User{}, err
	}

	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := repo.query()

	if filter != nil {
		if filter.Search != "" {
			var filtered []user.User
			search := strings.ToLower(filter.Search)
			for _, u := range users {
				if strings.Contains(strings.ToLower(u.Name), search) ||
					strings.Contains(strings.ToLower(u.Email), search) {
					filtered = append(filtered, u)
				}
			}
			users = filtered
		}
		if len(filter.Profiles) > 0 {
			var filtered []user.User
			for _, u := range users {
				for _, p := range filter.Profiles {
					if u.Profile == p {
						filtered = append(filtered, u)
						break
					}
				}
			}
			users = filtered
		}
		if len(filter.Levels) > 0 {
			var filtered []user.User
			for _, u := range users {
				for _, l := range filter.Levels {
					if u.Level == l {
						filtered = append(filtered, u)
						break
					}
				}
			}
			users = filtered
		}
		if filter.IsActive != nil {
			var filtered []user.User
			for _, u := range users {
				if u.IsActive == *filter.IsActive {
					filtered = append(filtered, u)
				}
			}
			users = filtered
		}
		if !filter.CreatedFrom.IsZero() {
			var filtered []user.User
			from := filter.CreatedFrom.UTC()
			for _, u := range users {
				if !u.CreatedAt.Before(from) {
					filtered = append(filtered, u)
				}
			}
			users = filtered
		}
		if !filter.CreatedTo.IsZero() {
			var filtered []user.User
			to := filter.CreatedTo.UTC()
			for _, u := range users {
				if !u.CreatedAt.After(to) {
					filtered = append(filtered, u)
				}
			}
			users = filtered
		}
	}

	sortUsers(users, ordering)
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	// only save set fields
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		origUsr.IsActive = *isActive
	}
	origUsr.Name = usr.Name
	origUsr.Email = usr.Email
	origUsr.RegistrationNumber = usr.RegistrationNumber
	origUsr.Profile = usr.Profile
	origUsr.Level = usr.Level
	origUsr.IsAdmin = usr.IsAdmin
	origUsr.IsSuperadmin = usr.IsSuperadmin
	origUsr.IsTeacherActive = usr.IsTeacherActive
	origUsr.IsPresenterActive = usr.IsPresenterActive
	origUsr.IsEmailVerified = usr.IsEmailVerified
	origUsr.PhotoFileKey = usr.PhotoFileKey
	origUsr.UpdatedAt = usr.UpdatedAt

	return *origUsr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}

func (repo *userRepository) CountSuperadmins(ctx context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, usr := range repo.db.users {
		if usr.IsSuperadmin && usr.IsActive {
			count++
		}
	}
	return count, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	origUsr.LastLogin = usr.LastLogin
	return *origUsr, nil
}

func (repo *userRepository) CreateEmailToken(ctx context.Context, tok user.EmailToken) (user.EmailToken, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	tok.ID = uuid.New().String()
	repo.db.emailTokens[tok.ID] = &tok
	return tok, nil
}

func (repo *userRepository) ConfirmEmail(ctx context.Context, tokenID string, notBefore time.Time) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	tok, ok := repo.db.emailTokens[tokenID]
	if !ok || tok.UsedAt.Valid {
		return user.User{}, user.ErrInvalidToken
	}
	if tok.CreatedAt.Before(notBefore) {
		return user.User{}, user.ErrTokenExpired
	}
	usr, ok := repo.db.users[tok.UserID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	now := time.Now().UTC()
	tok.UsedAt = null.TimeFrom(now)
	usr.IsEmailVerified = true
	usr.UpdatedAt = now
	return *usr, nil
}

func isExcludedUser(usr user.User, excludedUsers []user.User) bool {
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return true
		}
	}
	return false
}

func sortUsers(users []user.User, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
		return
	}
	ord := ordering[0]
	sort.Slice(users, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "name":
			less = users[i].Name < users[j].Name
		case "email":
			less = users[i].Email < users[j].Email
		default:
			less = users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		if !ord.Ascending {
			return !less
		}
		return less
	})
}
