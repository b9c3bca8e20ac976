package chat_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iamthanushgowdap/apsconnect/core/chat"
	assistantsvc "github.com/iamthanushgowdap/apsconnect/services/assistant"
	logsvc "github.com/iamthanushgowdap/apsconnect/services/logger"
)

func newService(completer chat.Completer) *chat.Service {
	return chat.NewService(completer, logsvc.NewStdLogger(log.New(io.Discard, "", 0)))
}

func TestService_Ask(t *testing.T) {
	ctx := context.Background()

	t.Run("answers from the completion backend", func(t *testing.T) {
		svc := newService(assistantsvc.NewDummyCompleter("The library is open 8am-8pm."))
		got := svc.Ask(ctx, "When is the library open?")
		assert.Equal(t, "The library is open 8am-8pm.", got)
	})

	t.Run("backend failure degrades to the fallback", func(t *testing.T) {
		completer := assistantsvc.NewDummyCompleter("")
		completer.Fail = true
		svc := newService(completer)
		assert.Equal(t, chat.FallbackAnswer, svc.Ask(ctx, "Anyone there?"))
	})

	t.Run("empty completion degrades to the fallback", func(t *testing.T) {
		svc := newService(assistantsvc.NewDummyCompleter(""))
		assert.Equal(t, chat.FallbackAnswer, svc.Ask(ctx, "Anyone there?"))
	})
}

func TestService_Reminder(t *testing.T) {
	ctx := context.Background()
	rr := chat.ReminderRequest{
		TaskName: "Physics Lab 1",
		Deadline: time.Date(2026, 9, 4, 17, 0, 0, 0, time.UTC),
	}

	t.Run("phrases a reminder", func(t *testing.T) {
		svc := newService(assistantsvc.NewDummyCompleter("Don't forget Physics Lab 1 by Friday!"))
		assert.Equal(t, "Don't forget Physics Lab 1 by Friday!", svc.Reminder(ctx, rr))
	})

	t.Run("backend failure degrades to the fallback", func(t *testing.T) {
		completer := assistantsvc.NewDummyCompleter("")
		completer.Fail = true
		svc := newService(completer)
		assert.Equal(t, chat.FallbackReminder, svc.Reminder(ctx, rr))
	})
}
