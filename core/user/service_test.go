package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
	"github.com/wepgcomp/wepgcomp/core/user"
	emailsvc "github.com/wepgcomp/wepgcomp/services/email"
	dummydb "github.com/wepgcomp/wepgcomp/storage/database/dummy"
	testutil "github.com/wepgcomp/wepgcomp/tests"
)

func setup(t *testing.T) (user.Service, user.Repository) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewUserRepository(db)
	svc := user.NewService(repo, emailsvc.NewConsoleServiceMock())
	return svc, repo
}

func Test_service_Register(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	sentBefore := len(emailsvc.SentMessages)

	nu := user.NewUser{
		Name:            "Ada Lovelace",
		Email:           "ada@test.br",
		Password:        "LetMeIn123!",
		PasswordConfirm: "LetMeIn123!",
		Profile:         user.ProfilePresenter,
		Level:           user.LevelSuperadmin, // must be ignored
	}
	if err := nu.Validate(svc); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	usr, err := svc.Register(ctx, nu)
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if usr.Level != user.LevelDefault {
		t.Errorf("Register() level = %v, want %v", usr.Level, user.LevelDefault)
	}
	if usr.IsAdmin || usr.IsSuperadmin {
		t.Error("Register() must not grant admin flags")
	}
	if !usr.IsPresenterActive {
		t.Error("Register() presenter must be presenter-active")
	}
	if usr.IsEmailVerified {
		t.Error("Register() email must start unverified")
	}
	if got := len(emailsvc.SentMessages); got != sentBefore+1 {
		t.Errorf("Register() sent %d mails, want 1", got-sentBefore)
	} else if msg := emailsvc.SentMessages[got-1]; msg.TemplateName != "email-confirm" {
		t.Errorf("Register() mail template = %q, want %q", msg.TemplateName, "email-confirm")
	}

	// duplicate email
	if err := nu.Validate(svc); err == nil {
		t.Error("Validate() on duplicate email must fail")
	}
}

func Test_service_ConfirmEmail(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr, err := svc.Register(ctx, user.NewUser{
		Name:            "Grace Hopper",
		Email:           "grace@test.br",
		Password:        "LetMeIn123!",
		PasswordConfirm: "LetMeIn123!",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	expired, err := repo.CreateEmailToken(ctx, user.EmailToken{
		UserID:    usr.ID,
		CreatedAt: time.Now().UTC().Add(-core.Conf.EmailConfirmationTimeoutDelta - time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateEmailToken() failed: %v", err)
	}
	valid, err := repo.CreateEmailToken(ctx, user.EmailToken{UserID: usr.ID, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateEmailToken() failed: %v", err)
	}

	if _, err = svc.ConfirmEmail(ctx, "nope"); errors.Cause(err) != user.ErrInvalidToken {
		t.Errorf("ConfirmEmail() error = %v, want %v", err, user.ErrInvalidToken)
	}
	if _, err = svc.ConfirmEmail(ctx, expired.ID); errors.Cause(err) != user.ErrTokenExpired {
		t.Errorf("ConfirmEmail() error = %v, want %v", err, user.ErrTokenExpired)
	}

	confirmed, err := svc.ConfirmEmail(ctx, valid.ID)
	if err != nil {
		t.Fatalf("ConfirmEmail() failed: %v", err)
	}
	if !confirmed.IsEmailVerified {
		t.Error("ConfirmEmail() must mark the email verified")
	}

	// token is single-use
	if _, err = svc.ConfirmEmail(ctx, valid.ID); errors.Cause(err) != user.ErrInvalidToken {
		t.Errorf("ConfirmEmail() reuse error = %v, want %v", err, user.ErrInvalidToken)
	}
}

func Test_service_lastSuperadminGuard(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	boss := testutil.CreateUser(t, repo, "Boss", "boss@test.br", "pwd", user.ProfileProfessor, user.LevelSuperadmin, true)

	// demoting the only superadmin fails
	_, err := svc.Update(ctx, boss.ID, user.UpdateUser{
		Name: boss.Name, Email: boss.Email, Profile: boss.Profile,
		Level: user.LevelDefault,
	})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Update() error = %v, want ValidationError", err)
	}

	// deactivating the only superadmin fails
	if _, err = svc.ToggleActive(ctx, boss.ID, false); !errors.As(err, &vErr) {
		t.Fatalf("ToggleActive() error = %v, want ValidationError", err)
	}

	// with a second superadmin the demotion goes through
	testutil.CreateUser(t, repo, "Boss2", "boss2@test.br", "pwd", user.ProfileProfessor, user.LevelSuperadmin, true)
	demoted, err := svc.Update(ctx, boss.ID, user.UpdateUser{
		Name: boss.Name, Email: boss.Email, Profile: boss.Profile,
		Level: user.LevelDefault,
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if demoted.IsSuperadmin || demoted.IsAdmin {
		t.Error("Update() demoted user must lose admin flags")
	}
}

func Test_service_ToggleActive(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "User", "user@test.br", "pwd", user.ProfileListener, user.LevelDefault, true)

	// same state conflicts
	var cErr *core.StateConflictError
	if _, err := svc.ToggleActive(ctx, usr.ID, true); !errors.As(err, &cErr) {
		t.Fatalf("ToggleActive() error = %v, want StateConflictError", err)
	}

	deactivated, err := svc.ToggleActive(ctx, usr.ID, false)
	if err != nil {
		t.Fatalf("ToggleActive() failed: %v", err)
	}
	if deactivated.IsActive {
		t.Error("ToggleActive() must deactivate the user")
	}
}

func Test_service_ResetPassword(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "User", "reset@test.br", "oldpwd", user.ProfileListener, user.LevelDefault, true)
	sentBefore := len(emailsvc.SentMessages)

	if err := svc.RequestPasswordReset(ctx, usr.Email); err != nil {
		t.Fatalf("RequestPasswordReset() failed: %v", err)
	}
	if got := len(emailsvc.SentMessages); got != sentBefore+1 {
		t.Fatalf("RequestPasswordReset() sent %d mails, want 1", got-sentBefore)
	}
	data, ok := emailsvc.SentMessages[len(emailsvc.SentMessages)-1].TemplateData.(struct {
		User  user.User
		UID   string
		Token string
	})
	if !ok {
		t.Fatal("RequestPasswordReset() unexpected template data shape")
	}

	err := svc.ResetPassword(ctx, user.ResetUserPassword{
		UID:             data.UID,
		Token:           data.Token,
		Password:        "NewPwd456!",
		PasswordConfirm: "NewPwd456!",
	})
	if err != nil {
		t.Fatalf("ResetPassword() failed: %v", err)
	}

	updated, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if err := updated.CheckPassword("NewPwd456!"); err != nil {
		t.Errorf("CheckPassword() after reset failed: %v", err)
	}

	// token is invalidated by the password change
	err = svc.ResetPassword(ctx, user.ResetUserPassword{
		UID:             data.UID,
		Token:           data.Token,
		Password:        "Other789!",
		PasswordConfirm: "Other789!",
	})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("ResetPassword() reuse error = %v, want ValidationError", err)
	}
}
