package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, registration_number, profile, level, is_admin, is_superadmin,
is_teacher_active, is_presenter_active, is_active, is_email_verified, photo_file_key, password_hash,
created_at, updated_at, last_login`

var userSortable = []string{"name", "email", "created_at"}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = ?`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND id NOT IN (?)`
		var err error
		if query, args, err = sqlx.In(query+`)`, email, ids); err != nil {
			return errors.Wrap(err, "checking email uniqueness")
		}
	} else {
		query += `)`
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	query := `
INSERT INTO "user" (` + userColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := repo.db.ExecContext(ctx, query,
		usr.ID, usr.Name, usr.Email, usr.RegistrationNumber, usr.Profile, usr.Level,
		usr.IsAdmin, usr.IsSuperadmin, usr.IsTeacherActive, usr.IsPresenterActive,
		usr.IsActive, usr.IsEmailVerified, usr.PhotoFileKey, usr.PasswordHash,
		usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), usr.LastLogin.UTC(),
	)
	if err != nil {
		return user.User{}, trapUniqueErr(err, map[string]error{
			"user_email_key": user.ErrEmailExists,
		}, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT `+userColumns+` FROM "user" WHERE id = $1`, id)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT `+userColumns+` FROM "user" WHERE email = $1`, email)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by email")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM "user"`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, `(name ILIKE ? OR email ILIKE ?)`)
			args = append(args, val, val)
		}
		if len(filter.Profiles) > 0 {
			conds = append(conds, `profile IN (?)`)
			args = append(args, filter.Profiles)
		}
		if len(filter.Levels) > 0 {
			conds = append(conds, `level IN (?)`)
			args = append(args, filter.Levels)
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, `created_at >= ?`)
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, `created_at <= ?`)
			args = append(args, filter.CreatedTo.UTC())
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += orderBy(ordering, userSortable, "created_at DESC")

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0)
	if err = repo.db.SelectContext(ctx, &users, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	sets := []string{
		"name = ?", "email = ?", "registration_number = ?", "profile = ?", "level = ?",
		"is_admin = ?", "is_superadmin = ?", "is_teacher_active = ?", "is_presenter_active = ?",
		"is_email_verified = ?", "photo_file_key = ?", "updated_at = ?",
	}
	args := []interface{}{
		usr.Name, usr.Email, usr.RegistrationNumber, usr.Profile, usr.Level,
		usr.IsAdmin, usr.IsSuperadmin, usr.IsTeacherActive, usr.IsPresenterActive,
		usr.IsEmailVerified, usr.PhotoFileKey, usr.UpdatedAt.UTC(),
	}
	if usr.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, usr.PasswordHash)
	}
	if isActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *isActive)
	}
	args = append(args, usr.ID)

	query := fmt.Sprintf(`UPDATE "user" SET %s WHERE id = ?`, strings.Join(sets, ", "))
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return user.User{}, trapUniqueErr(err, map[string]error{
			"user_email_key": user.ErrEmailExists,
		}, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func (repo *userRepository) CountSuperadmins(ctx context.Context) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM "user" WHERE is_superadmin AND is_active`)
	if err != nil {
		return 0, errors.Wrap(err, "counting superadmins")
	}
	return count, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	_, err := repo.db.ExecContext(ctx, `UPDATE "user" SET last_login = $1 WHERE id = $2`, usr.LastLogin.UTC(), usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (repo *userRepository) CreateEmailToken(ctx context.Context, tok user.EmailToken) (user.EmailToken, error) {
	tok.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO email_token (id, user_id, created_at, used_at) VALUES ($1, $2, $3, $4)`,
		tok.ID, tok.UserID, tok.CreatedAt.UTC(), tok.UsedAt,
	)
	if err != nil {
		return user.EmailToken{}, errors.Wrap(err, "inserting email token")
	}
	return tok, nil
}

func (repo *userRepository) ConfirmEmail(ctx context.Context, tokenID string, notBefore time.Time) (user.User, error) {
	if _, err := uuid.Parse(tokenID); err != nil {
		return user.User{}, user.ErrInvalidToken
	}

	var usr user.User
	err := core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		var tok user.EmailToken
		err := tx.GetContext(ctx, &tok,
			`SELECT id, user_id, created_at, used_at FROM email_token WHERE id = $1 AND used_at IS NULL FOR UPDATE`,
			tokenID,
		)
		if err != nil {
			return trapNoRowsErr(err, user.ErrInvalidToken, "finding email token")
		}
		if tok.CreatedAt.Before(notBefore) {
			return user.ErrTokenExpired
		}

		now := time.Now().UTC()
		if _, err = tx.ExecContext(ctx, `UPDATE email_token SET used_at = $1 WHERE id = $2`, now, tok.ID); err != nil {
			return errors.Wrap(err, "consuming email token")
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE "user" SET is_email_verified = TRUE, updated_at = $1 WHERE id = $2`, now, tok.UserID,
		); err != nil {
			return errors.Wrap(err, "verifying user email")
		}
		err = tx.GetContext(ctx, &usr, `SELECT `+userColumns+` FROM "user" WHERE id = $1`, tok.UserID)
		return trapNoRowsErr(err, user.ErrNotFound, "finding verified user")
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}
