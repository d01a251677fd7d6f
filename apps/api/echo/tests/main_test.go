package tests

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"os"
	"testing"
	"time"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/guardian"
	"github.com/trezcool/shule/core/org"
	"github.com/trezcool/shule/core/quiz"
	"github.com/trezcool/shule/core/role"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	notifsvc "github.com/trezcool/shule/services/notification"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

var (
	app     Server
	usrSvc  *user.Service
	roleSvc *role.Service
)

func TestMain(m *testing.M) {
	conf := &core.Config{
		AppName:                   "Shule",
		Env:                       "TEST",
		TestMode:                  true,
		SecretKey:                 []byte("secret"),
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = time.Hour

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	db, err := dummydb.Open()
	if err != nil {
		log.Fatal(err)
	}

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	sink := notifsvc.NewCaptureSink()
	usrSvc = user.NewService(dummydb.NewUserRepository(db), mailSvc, conf)
	orgSvc := org.NewService(dummydb.NewOrgRepository(db))
	roleSvc = role.NewService(dummydb.NewRoleRepository(db), sink)
	guardianSvc := guardian.NewService(dummydb.NewGuardianRepository(db), sink)
	enrRepo := dummydb.NewEnrollmentRepository(db)
	courseSvc := course.NewService(dummydb.NewCourseRepository(db), enrRepo, sink)
	quizSvc := quiz.NewService(dummydb.NewQuizRepository(db), courseSvc, sink)
	accountSvc := account.NewService(usrSvc, orgSvc, roleSvc, mailSvc, sink, conf)
	authSvc := auth.NewService(orgSvc, courseSvc, enrRepo, quizSvc, roleSvc, guardianSvc)

	// set up server
	app = NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		AccountSvc:     accountSvc,
		OrgSvc:         orgSvc,
		GuardianSvc:    guardianSvc,
		CourseSvc:      courseSvc,
		QuizSvc:        quizSvc,
		AuthSvc:        authSvc,
		SignalShutdown: func() {},
	})

	os.Exit(m.Run())
}

func newAuthRequest(method, path, token string, data ...interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		_ = json.NewEncoder(&body).Encode(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...interface{}) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func do(t *testing.T, req *http.Request, rec *httptest.ResponseRecorder, wantCode int, out ...interface{}) {
	t.Helper()
	app.ServeHTTP(rec, req)
	if rec.Code != wantCode {
		t.Fatalf("failed! code = %v; wantCode %v; body = %s", rec.Code, wantCode, rec.Body.String())
	}
	if len(out) > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out[0]); err != nil {
			t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
		}
	}
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func signup(t *testing.T, kind, email string) user.User {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/v1/accounts/signup/"+kind, user.NewUser{
		FirstName:       "Test",
		LastName:        "User",
		Email:           email,
		Password:        "S3cr3t!pwd",
		PasswordConfirm: "S3cr3t!pwd",
	})
	var usr user.User
	do(t, req, rec, http.StatusCreated, &usr)
	return usr
}
