package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/guardian"
)

type guardianApi struct {
	opts *Options
}

func registerGuardianAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := guardianApi{opts: opts}

	gg := g.Group("/guardians", jwt)
	gg.POST("/links", api.requestLink)
	gg.POST("/links/:id/respond", api.respondToLink)
	gg.GET("/children", api.listChildren)
	gg.GET("/links/pending", api.listPending)
}

// requestLink lets the authenticated guardian request a link to a student.
func (api *guardianApi) requestLink(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data struct {
		StudentID string        `json:"student_id"`
		Kind      guardian.Kind `json:"relationship_kind"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding link request")
	}

	l, err := api.opts.GuardianSvc.RequestLink(ctx.Request().Context(), guardian.NewLink{
		GuardianID: claims.Subject,
		StudentID:  data.StudentID,
		Kind:       data.Kind,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, l)
}

// respondToLink lets the student on the link accept or reject it.
func (api *guardianApi) respondToLink(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data struct {
		Accept bool `json:"accept"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding link response")
	}

	l, err := api.opts.GuardianSvc.RespondToLink(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Accept)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *guardianApi) listChildren(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	childIDs, err := api.opts.GuardianSvc.ListChildren(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	children := make([]interface{}, 0, len(childIDs))
	for _, id := range childIDs {
		usr, err := api.opts.UserSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			return errors.Wrap(err, "finding child by ID")
		}
		children = append(children, usr)
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *guardianApi) listPending(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	links, err := api.opts.GuardianSvc.ListPendingForStudent(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, links)
}
