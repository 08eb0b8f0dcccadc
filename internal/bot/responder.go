package bot

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/guild-bag/internal/core/domain"
	bagerrors "github.com/rl1809/guild-bag/internal/errors"
)

// Responder turns command errors into user-facing replies.
type Responder struct {
	prefix string
	log    *logrus.Entry
}

func NewResponder(prefix string, log *logrus.Entry) *Responder {
	return &Responder{prefix: prefix, log: log}
}

// Respond returns the reply for err. ok is false for errors that are only
// logged and never shown to the user.
func (r *Responder) Respond(req domain.Request, err error) (reply string, ok bool) {
	switch bagerrors.GetCode(err) {
	case bagerrors.ErrCodeBadArgument:
		return "Invalid arguments. Please check your command format.", true

	case bagerrors.ErrCodeCommandNotFound:
		return fmt.Sprintf("Command not found. Use %sh to see available commands.", r.prefix), true

	case bagerrors.ErrCodeMissingArgument:
		return fmt.Sprintf("Missing required arguments. Use %sh to see command formats.", r.prefix), true

	default:
		fields := logrus.Fields{
			"request_id": req.ID,
			"author":     req.Author,
			"command":    req.Text,
		}
		var bagErr *bagerrors.BagError
		if errors.As(err, &bagErr) && bagErr.Details != nil {
			fields["details"] = bagErr.Details
		}
		r.log.WithFields(fields).WithError(err).Error("command failed")
		return "", false
	}
}
