package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/quiz"
)

type quizApi struct {
	opts *Options
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := quizApi{opts: opts}

	qg := g.Group("/quizzes", jwt)
	qg.POST("", api.create)
	qg.GET("/:id", api.retrieve)
	qg.POST("/:id/publish", api.publish)
	qg.POST("/:id/questions", api.addQuestion)
	qg.POST("/:id/attempts", api.startAttempt)
	qg.GET("/:id/attempts", api.listAttempts)

	bg := g.Group("/questions", jwt)
	bg.POST("", api.createQuestion)

	ag := g.Group("/attempts", jwt)
	ag.POST("/:id/submit", api.submitAttempt)
	ag.POST("/:id/abandon", api.abandonAttempt)
	ag.POST("/:id/violations", api.recordViolation)
}

func (api *quizApi) authorize(ctx echo.Context, actorID string, action auth.Action, res auth.Resource) error {
	dec, err := api.opts.AuthSvc.Authorize(ctx.Request().Context(), actorID, action, res)
	if err != nil {
		return err
	}
	if !dec.Allowed {
		return echo.NewHTTPError(http.StatusForbidden, dec.Reason)
	}
	return nil
}

func (api *quizApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.authorize(ctx, claims.Subject, auth.ActionCreateQuiz, auth.NewResource(auth.KindCourse, data.CourseID)); err != nil {
		return err
	}

	q, err := api.opts.QuizSvc.CreateQuiz(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.authorize(ctx, claims.Subject, auth.ActionViewCourse, auth.NewResource(auth.KindQuiz, ctx.Param("id"))); err != nil {
		return err
	}

	q, err := api.opts.QuizSvc.GetQuizByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quizApi) publish(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.authorize(ctx, claims.Subject, auth.ActionPublishQuiz, auth.NewResource(auth.KindQuiz, ctx.Param("id"))); err != nil {
		return err
	}

	q, err := api.opts.QuizSvc.Publish(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quizApi) createQuestion(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data quiz.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if data.Scope.IsOrg() {
		if err := api.authorize(ctx, claims.Subject, auth.ActionCreateQuestion, auth.NewResource(auth.KindOrganization, data.Scope.Org)); err != nil {
			return err
		}
	} else if data.Scope.SoloTeacher != claims.Subject {
		return errHttpForbidden
	}

	item, err := api.opts.QuizSvc.CreateQuestion(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *quizApi) addQuestion(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.authorize(ctx, claims.Subject, auth.ActionAddQuizQuestion, auth.NewResource(auth.KindQuiz, ctx.Param("id"))); err != nil {
		return err
	}

	var data struct {
		QuestionID string  `json:"question_id"`
		Points     float64 `json:"points"`
		Position   int     `json:"position"`
		Randomize  bool    `json:"randomize"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding quiz question")
	}

	qq, err := api.opts.QuizSvc.AddQuestion(ctx.Request().Context(), ctx.Param("id"), data.QuestionID, data.Points, data.Position, data.Randomize)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, qq)
}

// startAttempt opens an attempt for the authenticated student.
func (api *quizApi) startAttempt(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	a, err := api.opts.QuizSvc.Start(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *quizApi) listAttempts(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	studentID := ctx.QueryParam("student_id")
	if studentID == "" {
		studentID = claims.Subject
	}
	if studentID != claims.Subject {
		// staff and linked guardians may read another student's history
		if err := api.authorize(ctx, claims.Subject, auth.ActionReadAttempts, auth.NewResource(auth.KindStudent, studentID)); err != nil {
			return err
		}
	}

	attempts, err := api.opts.QuizSvc.GetAttempts(ctx.Request().Context(), studentID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *quizApi) submitAttempt(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data struct {
		Answers []quiz.SubmittedAnswer `json:"answers"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding answers")
	}

	a, err := api.opts.QuizSvc.Submit(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Answers)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *quizApi) abandonAttempt(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	a, err := api.opts.QuizSvc.Abandon(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *quizApi) recordViolation(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data struct {
		Kind string `json:"kind"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding violation")
	}

	a, err := api.opts.QuizSvc.RecordViolation(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Kind)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}
