package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	echoapi "github.com/wepgcomp/wepgcomp/apps/api/echo"
	"github.com/wepgcomp/wepgcomp/core/user"
	emailsvc "github.com/wepgcomp/wepgcomp/services/email"
	testutil "github.com/wepgcomp/wepgcomp/tests"
)

func Test_userApi_register(t *testing.T) {
	testutil.ResetDB(t, db)

	existing := testutil.CreateUser(t, usrRepo, "Existing", "taken@test.br", "pwd",
		user.ProfileListener, user.LevelDefault, true)

	tests := []httpTest{
		{
			name: "required fields", body: marchallObj(t, user.NewUser{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":             "this field is required",
				"email":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{
			name: "password mismatch",
			body: marchallObj(t, user.NewUser{
				Name: "Ada", Email: "ada@test.br", Password: "secretpwd1", PasswordConfirm: "secretpwd2",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"password_confirm": "password_confirm must be equal to Password",
			}),
		},
		{
			name: "email taken",
			body: marchallObj(t, user.NewUser{
				Name: "Copy Cat", Email: existing.Email, Password: "secretpwd1", PasswordConfirm: "secretpwd1",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "registered",
			body: marchallObj(t, user.NewUser{
				Name: "Ada", Email: "ada@test.br", Password: "secretpwd1", PasswordConfirm: "secretpwd1",
				Profile: user.ProfilePresenter,
			}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentCount := len(emailsvc.SentMessages)

			req, rec := newRequest(http.MethodPost, "/api/users/register", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusCreated {
				checkCodeAndData(t, tt, rec)
				return
			}

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var usr user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
				t.Fatalf("json.Unmarshal(): %v", err)
			}
			if usr.Level != user.LevelDefault || usr.IsAdmin {
				t.Errorf("self-registration must not grant admin levels; got %+v", usr)
			}
			if usr.IsEmailVerified {
				t.Error("email must start unverified")
			}
			if len(emailsvc.SentMessages) != sentCount+1 {
				t.Errorf("confirmation email not sent; sent = %d, want %d", len(emailsvc.SentMessages), sentCount+1)
			}
		})
	}
}

func Test_userApi_login(t *testing.T) {
	testutil.ResetDB(t, db)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.br", "secretpwd1",
		user.ProfilePresenter, user.LevelDefault, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog@test.br", "secretpwd1",
		user.ProfileListener, user.LevelDefault, false)

	tests := []httpTest{
		{
			name: "unknown email", body: marchallObj(t, echoapi.LoginRequest{Email: "lol@test.br", Password: "secretpwd1"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "inactive account", body: marchallObj(t, echoapi.LoginRequest{Email: naughty.Email, Password: "secretpwd1"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "logged in", body: marchallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: "secretpwd1"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal(): %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	testutil.ResetDB(t, db)

	path := func(search, ordering string, profiles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		for _, p := range profiles {
			v.Add("profile", p)
		}
		return "/api/users?" + v.Encode()
	}

	now := time.Now()
	t1 := now.Add(1 * time.Hour)
	t2 := now.Add(2 * time.Hour)
	t3 := now.Add(3 * time.Hour)

	listener := testutil.CreateUser(t, usrRepo, "Listener", "listener@test.br", "",
		user.ProfileListener, user.LevelDefault, true, t1)
	presenter := testutil.CreateUser(t, usrRepo, "Presenter", "presenter@test.br", "",
		user.ProfilePresenter, user.LevelDefault, true, t2)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.br", "",
		user.ProfileProfessor, user.LevelAdmin, true, t3)

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/api/users", token: getToken(t, listener),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{name: "Get all", path: "/api/users", token: adminToken, wantData: marchallList(t, admin, presenter, listener)},
		{name: "search (unknown)", path: path("lol", ""), token: adminToken, wantData: empty},
		{name: "search=present", path: path("present", ""), token: adminToken, wantData: marchallList(t, presenter)},
		{
			name: "profile=Professor", path: path("", "", string(user.ProfileProfessor)),
			token: adminToken, wantData: marchallList(t, admin),
		},
		{
			name: "order by name", path: path("", "name"), token: adminToken,
			wantData: marchallList(t, admin, listener, presenter),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDetail(t *testing.T) {
	testutil.ResetDB(t, db)

	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner@test.br", "",
		user.ProfilePresenter, user.LevelDefault, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other@test.br", "",
		user.ProfileListener, user.LevelDefault, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.br", "",
		user.ProfileProfessor, user.LevelAdmin, true)

	tests := []httpTest{
		{name: "Auth required", path: "/api/users/" + owner.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Stranger sees 404", path: "/api/users/" + owner.ID, token: getToken(t, other),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Owner allowed", path: "/api/users/" + owner.ID, token: getToken(t, owner),
			wantCode: http.StatusOK, wantData: marchallObj(t, owner),
		},
		{
			name: "Admin allowed", path: "/api/users/" + owner.ID, token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, owner),
		},
		{
			name: "Unknown ID", path: "/api/users/deadbeef", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
