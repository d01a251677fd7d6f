package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/trezcool/shule/apps/api/echo"
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
	sendgridmail "github.com/trezcool/shule/services/email/sendgrid"
	logsvc "github.com/trezcool/shule/services/logger"
	notifsvc "github.com/trezcool/shule/services/notification"
	"github.com/trezcool/shule/storage/database"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	sdb := sqlxrepos.NewDB(db)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = sendgridmail.NewService(conf, logger)
	}
	sink := notifsvc.NewLogSink(logger)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(sdb), mailSvc, conf)
	orgSvc := org.NewService(sqlxrepos.NewOrgRepository(sdb))
	roleSvc := role.NewService(sqlxrepos.NewRoleRepository(sdb), sink)
	guardianSvc := guardian.NewService(sqlxrepos.NewGuardianRepository(sdb), sink)
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(sdb), sqlxrepos.NewEnrollmentRepository(sdb), sink)
	quizSvc := quiz.NewService(sqlxrepos.NewQuizRepository(sdb), courseSvc, sink)
	accountSvc := account.NewService(usrSvc, orgSvc, roleSvc, mailSvc, sink, conf)
	authSvc := auth.NewService(orgSvc, courseSvc, enrollmentGetter{courseSvc}, quizSvc, roleSvc, guardianSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:        conf.Server.Host,
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		AccountSvc:     accountSvc,
		OrgSvc:         orgSvc,
		GuardianSvc:    guardianSvc,
		CourseSvc:      courseSvc,
		QuizSvc:        quizSvc,
		AuthSvc:        authSvc,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

// enrollmentGetter narrows the course service to the lookup the authorization
// facade needs.
type enrollmentGetter struct {
	svc *course.Service
}

func (g enrollmentGetter) GetEnrollmentByID(ctx context.Context, id string) (course.Enrollment, error) {
	return g.svc.GetEnrollment(ctx, id)
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
