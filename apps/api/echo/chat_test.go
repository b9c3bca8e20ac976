package echoapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamthanushgowdap/apsconnect/core/chat"
	assistantsvc "github.com/iamthanushgowdap/apsconnect/services/assistant"
	logsvc "github.com/iamthanushgowdap/apsconnect/services/logger"
)

func Test_chatApi_ask(t *testing.T) {
	deps, _, _ := testDeps(t)
	completer := assistantsvc.NewDummyCompleter("The library opens at 8 AM.")
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	api := &chatApi{svc: chat.NewService(completer, logger), validate: deps.Validate}
	e := echo.New()

	ask := func(question string) AnswerResponse {
		t.Helper()
		ec, rec := newRequest(e, http.MethodPost, "/chat/ask", marshal(t, chat.Question{Question: question}))
		require.NoError(t, api.ask(ec))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp AnswerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	assert.Equal(t, "The library opens at 8 AM.", ask("When does the library open?").Answer)

	t.Run("backend failure degrades to the fallback", func(t *testing.T) {
		completer.Fail = true
		assert.Equal(t, chat.FallbackAnswer, ask("Anyone home?").Answer)
	})

	t.Run("empty question is rejected", func(t *testing.T) {
		ec, _ := newRequest(e, http.MethodPost, "/chat/ask", marshal(t, chat.Question{}))
		assert.Error(t, api.ask(ec))
	})
}
