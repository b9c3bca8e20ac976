package chat

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iamthanushgowdap/apsconnect/core"
)

// Fallback answers used whenever the completion backend misbehaves; the
// chat view must never see a hard failure.
const (
	FallbackAnswer = "Sorry, I could not reach the campus assistant right now. " +
		"Please try again in a moment, or contact the college office directly."
	FallbackReminder = "Reminder: your task is due soon. Please check the portal for details."
)

type (
	// Completer is the hosted prompt-completion backend. Calls are
	// stateless: no session or context is carried between them.
	Completer interface {
		Complete(ctx context.Context, prompt string) (string, error)
	}

	Question struct {
		Question string `json:"question" validate:"required"`
	}

	ReminderRequest struct {
		TaskName    string    `json:"task_name" validate:"required"`
		Deadline    time.Time `json:"deadline" validate:"required"`
		Description string    `json:"description"`
	}

	Service struct {
		completer Completer
		logger    core.Logger
	}
)

func (q *Question) Validate(validate *validator.Validate) error {
	q.Question = core.CleanString(q.Question)
	return validate.Struct(q)
}

func (rr *ReminderRequest) Validate(validate *validator.Validate) error {
	rr.TaskName = core.CleanString(rr.TaskName)
	return validate.Struct(rr)
}

func NewService(completer Completer, logger core.Logger) *Service {
	return &Service{completer: completer, logger: logger}
}

// Ask answers a campus question. Backend failures degrade to a static
// fallback message, never an error.
func (svc *Service) Ask(ctx context.Context, question string) string {
	prompt := "You are the campus assistant for APS College of Engineering. " +
		"Answer the following student question about the campus, courses, " +
		"facilities or procedures, concisely and helpfully.\n\nQuestion: " + question
	answer, err := svc.completer.Complete(ctx, prompt)
	if err != nil || answer == "" {
		if err != nil {
			svc.logger.Warn("assistant completion failed", err)
		}
		return FallbackAnswer
	}
	return answer
}

// Reminder phrases a short reminder message for a task deadline.
func (svc *Service) Reminder(ctx context.Context, rr ReminderRequest) string {
	prompt := "Write a single short, friendly reminder message for a student. " +
		"Task: " + rr.TaskName + ". Due: " + rr.Deadline.Format("Mon, 02 Jan 2006 15:04") + "." +
		appendIf(rr.Description != "", " Details: "+rr.Description)
	msg, err := svc.completer.Complete(ctx, prompt)
	if err != nil || msg == "" {
		if err != nil {
			svc.logger.Warn("assistant reminder failed", err)
		}
		return FallbackReminder
	}
	return msg
}

func appendIf(cond bool, s string) string {
	if cond {
		return s
	}
	return ""
}
