package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wepgcomp/wepgcomp/core"
)

// Profiles determine what a user does in the workshop.
type Profile string

const (
	ProfileProfessor Profile = "Professor"
	ProfilePresenter Profile = "Presenter"
	ProfileListener  Profile = "Listener"
)

// Levels determine what a user may administer.
type Level string

const (
	LevelSuperadmin Level = "Superadmin"
	LevelAdmin      Level = "Admin"
	LevelDefault    Level = "Default"
)

type User struct {
	ID                 string  `json:"id" db:"id"`
	Name               string  `json:"name" db:"name"`
	Email              string  `json:"email" db:"email"`
	RegistrationNumber string  `json:"registration_number,omitempty" db:"registration_number"`
	Profile            Profile `json:"profile" db:"profile"`
	Level              Level   `json:"level" db:"level"`

	// derived flags; see ComputeFlags
	IsAdmin           bool `json:"is_admin" db:"is_admin"`
	IsSuperadmin      bool `json:"is_superadmin" db:"is_superadmin"`
	IsTeacherActive   bool `json:"is_teacher_active" db:"is_teacher_active"`
	IsPresenterActive bool `json:"is_presenter_active" db:"is_presenter_active"`

	IsActive        bool      `json:"is_active" db:"is_active"`
	IsEmailVerified bool      `json:"is_email_verified" db:"is_email_verified"`
	PhotoFileKey    string    `json:"photo_file_key,omitempty" db:"photo_file_key"`
	PasswordHash    []byte    `json:"-" db:"password_hash"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin       time.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsProfessor() bool { return u.Profile == ProfileProfessor }
func (u *User) IsPresenter() bool { return u.Profile == ProfilePresenter }
func (u *User) IsListener() bool  { return u.Profile == ProfileListener }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name               string  `json:"name" validate:"required"`
	Email              string  `json:"email" validate:"required,email"`
	Password           string  `json:"password" validate:"required,min=8"`
	PasswordConfirm    string  `json:"password_confirm" validate:"required,eqfield=Password"`
	Profile            Profile `json:"profile" validate:"omitempty,oneof=Professor Presenter Listener"`
	Level              Level   `json:"level" validate:"omitempty,oneof=Superadmin Admin Default"`
	RegistrationNumber string  `json:"registration_number" validate:"omitempty,alphanum_"`
}

func (nu *NewUser) Validate(svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.RegistrationNumber = core.CleanString(nu.RegistrationNumber)
	if nu.Profile == "" {
		nu.Profile = ProfileListener
	}
	if nu.Level == "" {
		nu.Level = LevelDefault
	}

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Zero-valued fields are left unchanged.
type UpdateUser struct {
	Name               string  `json:"name"`
	Email              string  `json:"email" validate:"omitempty,email"`
	Profile            Profile `json:"profile" validate:"omitempty,oneof=Professor Presenter Listener"`
	Level              Level   `json:"level" validate:"omitempty,oneof=Superadmin Admin Default"`
	RegistrationNumber string  `json:"registration_number" validate:"omitempty,alphanum_"`
	IsActive           *bool   `json:"is_active"`
	IsTeacherActive    *bool   `json:"is_teacher_active"` // caller intent; see ComputeFlags
	Password           string  `json:"password" validate:"omitempty,min=8"`
	PasswordConfirm    string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, svc Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.Profile == "" {
		uu.Profile = origUsr.Profile
	}
	if uu.Level == "" {
		uu.Level = origUsr.Level
	}
	uu.RegistrationNumber = core.CleanString(uu.RegistrationNumber)
	if uu.RegistrationNumber == "" {
		uu.RegistrationNumber = origUsr.RegistrationNumber
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate() error { return core.Validate.Struct(rp) }

type QueryFilter struct {
	Search      string    `query:"search"`
	Profiles    []Profile `query:"profile"`
	Levels      []Level   `query:"level"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Profiles == nil && qf.Levels == nil && qf.IsActive == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
