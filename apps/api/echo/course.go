package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/course"
)

type courseApi struct {
	opts *Options
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := courseApi{opts: opts}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/enroll", api.enroll)
	cg.GET("/:id/enrollments", api.listEnrollments)

	eg := g.Group("/enrollments", jwt)
	eg.PUT("/:id/status", api.setEnrollmentStatus)
	eg.GET("/mine", api.listMine)
}

// authorize runs the decision through the facade and converts a deny into a
// 403 carrying the reason.
func (api *courseApi) authorize(ctx echo.Context, actorID string, action auth.Action, res auth.Resource) error {
	dec, err := api.opts.AuthSvc.Authorize(ctx.Request().Context(), actorID, action, res)
	if err != nil {
		return err
	}
	if !dec.Allowed {
		return echo.NewHTTPError(http.StatusForbidden, dec.Reason)
	}
	return nil
}

func (api *courseApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	// check the actor may create within the target scope; organization
	// membership is checked against the org resource itself
	if data.Scope.IsOrg() {
		if err := api.authorize(ctx, claims.Subject, auth.ActionCreateCourse, auth.NewResource(auth.KindOrganization, data.Scope.Org)); err != nil {
			return err
		}
	} else if data.Scope.SoloTeacher != claims.Subject {
		return errHttpForbidden
	}

	c, err := api.opts.CourseSvc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.authorize(ctx, claims.Subject, auth.ActionViewCourse, auth.NewResource(auth.KindCourse, ctx.Param("id"))); err != nil {
		return err
	}

	c, err := api.opts.CourseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data struct {
		StudentID string        `json:"student_id"`
		Source    course.Source `json:"source"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding enrollment request")
	}

	courseID := ctx.Param("id")
	if data.StudentID == "" || data.StudentID == claims.Subject {
		// self-enrollment
		data.StudentID = claims.Subject
		data.Source = course.SourceSelf
	} else {
		if err := api.authorize(ctx, claims.Subject, auth.ActionEnrollStudent, auth.NewResource(auth.KindCourse, courseID)); err != nil {
			return err
		}
		if data.Source == "" {
			data.Source = course.SourceTeacher
		}
	}

	e, err := api.opts.CourseSvc.Enroll(ctx.Request().Context(), data.StudentID, courseID, data.Source)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *courseApi) listEnrollments(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.authorize(ctx, claims.Subject, auth.ActionViewCourse, auth.NewResource(auth.KindCourse, ctx.Param("id"))); err != nil {
		return err
	}

	enrs, err := api.opts.CourseSvc.ListEnrollmentsByCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *courseApi) setEnrollmentStatus(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.authorize(ctx, claims.Subject, auth.ActionSetEnrollmentStatus, auth.NewResource(auth.KindEnrollment, ctx.Param("id"))); err != nil {
		return err
	}

	var data struct {
		Status course.Status `json:"status"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding status update")
	}

	e, err := api.opts.CourseSvc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *courseApi) listMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	enrs, err := api.opts.CourseSvc.ListEnrollmentsByStudent(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrs)
}
