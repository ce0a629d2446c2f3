package user

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/wepgcomp/wepgcomp/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrLastSuperadmin = errors.New("cannot demote or deactivate the last remaining superadmin")
)

// EmailToken is a single-use email-confirmation token.
type EmailToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"` // UTC
	UsedAt    null.Time `db:"used_at"`
}

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
		CountSuperadmins(ctx context.Context) (int, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)

		CreateEmailToken(ctx context.Context, tok EmailToken) (EmailToken, error)
		// ConfirmEmail atomically consumes the token and marks its user's email
		// verified. A missing or already-used token yields ErrInvalidToken; a
		// token created before notBefore yields ErrTokenExpired and stays unused.
		ConfirmEmail(ctx context.Context, tokenID string, notBefore time.Time) (User, error)
	}

	Service interface {
		CheckUniqueness(email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Register(ctx context.Context, nu NewUser) (User, error)
		ConfirmEmail(ctx context.Context, tokenID string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		ToggleActive(ctx context.Context, id string, active bool) (User, error)
		Delete(ctx context.Context, ids ...string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
	}
}

func (svc *service) CheckUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create creates a user with the exact profile and level supplied; it is meant
// for admin flows. Self-service signup goes through Register.
func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:               nu.Name,
		Email:              nu.Email,
		RegistrationNumber: nu.RegistrationNumber,
		Profile:            nu.Profile,
		Level:              nu.Level,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	ComputeFlags(usr.Profile, usr.Level, nil).Apply(&usr)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Register creates the user and sends the email-confirmation link.
func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Level = LevelDefault // no self-service admins
	usr, err := svc.Create(ctx, nu)
	if err != nil {
		return User{}, err
	}

	tok, err := svc.repo.CreateEmailToken(ctx, EmailToken{UserID: usr.ID, CreatedAt: time.Now().UTC()})
	if err != nil {
		return User{}, err
	}
	svc.sendEmailConfirmationMail(usr, tok)
	return usr, nil
}

func (svc *service) ConfirmEmail(ctx context.Context, tokenID string) (User, error) {
	notBefore := time.Now().UTC().Add(-core.Conf.EmailConfirmationTimeoutDelta)
	return svc.repo.ConfirmEmail(ctx, tokenID, notBefore)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	origUsr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if err = svc.checkSuperadminGuard(ctx, origUsr, uu.Level, uu.IsActive); err != nil {
		return User{}, err
	}

	usr := User{
		ID:                 id,
		Name:               uu.Name,
		Email:              uu.Email,
		RegistrationNumber: uu.RegistrationNumber,
		Profile:            uu.Profile,
		Level:              uu.Level,
		UpdatedAt:          time.Now().UTC(),
	}
	ComputeFlags(usr.Profile, usr.Level, uu.IsTeacherActive).Apply(&usr)
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

// ToggleActive flips a user's active state; toggling to the current state is a
// state conflict.
func (svc *service) ToggleActive(ctx context.Context, id string, active bool) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.IsActive == active {
		return User{}, core.NewStateConflictError(errors.New("user is already in the requested state"))
	}
	if err = svc.checkSuperadminGuard(ctx, usr, usr.Level, &active); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, &active)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.SetLastLogin(ctx, usr)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return svc.sendPasswordResetMail(usr)
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr, nil)
	return err
}

// checkSuperadminGuard rejects demoting or deactivating the last superadmin.
func (svc *service) checkSuperadminGuard(ctx context.Context, origUsr User, newLevel Level, isActive *bool) error {
	if !origUsr.IsSuperadmin {
		return nil
	}
	demoted := newLevel != "" && newLevel != LevelSuperadmin
	deactivated := isActive != nil && !*isActive
	if !(demoted || deactivated) {
		return nil
	}
	count, err := svc.repo.CountSuperadmins(ctx)
	if err != nil {
		return err
	}
	if count <= 1 {
		return core.NewValidationError(ErrLastSuperadmin, core.FieldError{Field: "level", Error: ErrLastSuperadmin.Error()})
	}
	return nil
}

func (svc *service) sendEmailConfirmationMail(usr User, tok EmailToken) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Confirme seu email",
		TemplateName: "email-confirm",
		TemplateData: struct {
			User  User
			Token string
		}{usr, tok.ID},
	})
}

func (svc *service) sendPasswordResetMail(usr User) error {
	token, err := makeToken(usr)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Redefinição de senha",
		TemplateName: "password-reset",
		TemplateData: struct {
			User  User
			UID   string
			Token string
		}{usr, EncodeUID(usr), token},
	})
	return nil
}
