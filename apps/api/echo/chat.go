package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core/chat"
)

type chatApi struct {
	svc      *chat.Service
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, jwt, deny echo.MiddlewareFunc, deps ServerDeps) {
	api := chatApi{svc: deps.ChatSvc, validate: deps.Validate}

	cg := g.Group("/chat", jwt, deny)
	cg.POST("/ask", api.ask)
	cg.POST("/reminder", api.reminder)
}

func (api *chatApi) ask(ctx echo.Context) error {
	var data chat.Question
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Question")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AnswerResponse{
		Answer: api.svc.Ask(ctx.Request().Context(), data.Question),
	})
}

func (api *chatApi) reminder(ctx echo.Context) error {
	var data chat.ReminderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReminderRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AnswerResponse{
		Answer: api.svc.Reminder(ctx.Request().Context(), data),
	})
}

type AnswerResponse struct {
	Answer string `json:"answer"`
}
