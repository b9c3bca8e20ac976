package assistantsvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/iamthanushgowdap/apsconnect/core/chat"
)

// DummyCompleter echoes a canned answer; used in DEV and tests.
type DummyCompleter struct {
	Answer string
	Fail   bool
}

var _ chat.Completer = (*DummyCompleter)(nil)

func NewDummyCompleter(answer string) *DummyCompleter {
	return &DummyCompleter{Answer: answer}
}

func (c *DummyCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.Fail {
		return "", errors.New("assistant unavailable")
	}
	return c.Answer, nil
}
