package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agromind/plantchat/pkg/inference"
)

// FallbackReply replaces the reply of any exchange whose inference call failed.
const FallbackReply = "Sorry, I couldn't reach the AI server."

// Kind selects the inference service an exchange is sent to.
type Kind int

const (
	KindConverse Kind = iota
	KindDiagnose
)

func (k Kind) String() string {
	switch k {
	case KindConverse:
		return "converse"
	case KindDiagnose:
		return "diagnose"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Exchange is one accepted submission awaiting its reply. Token and Index
// identify it: settlement patches exactly the transcript entry at Index,
// whatever was appended in the meantime.
type Exchange struct {
	Token     string
	MessageID string
	Index     int
	Kind      Kind
	Edit      bool

	Prompt string
	Image  []byte
	Plant  string
}

// Outcome is the settled result of an exchange. Err is kept for logging and
// callers that want to report it; Reply is always what goes in the transcript.
type Outcome struct {
	Reply string
	Err   error
}

// Dispatch performs the exchange's single inference call. It does not touch
// the session, so it is safe to run off the owning goroutine.
func (e *Exchange) Dispatch(ctx context.Context, gw inference.Gateway) Outcome {
	var (
		reply string
		err   error
	)

	switch e.Kind {
	case KindDiagnose:
		var res inference.DiagnoseResult
		res, err = gw.Diagnose(ctx, e.Image, e.Plant)
		reply = res.Reply()
	default:
		var res inference.ConverseResult
		res, err = gw.Converse(ctx, e.Prompt)
		reply = res.Response
	}

	if err != nil {
		slog.Warn("Inference request failed", "token", e.Token, "kind", e.Kind, "index", e.Index, "error", err)
		return Outcome{Reply: FallbackReply, Err: err}
	}
	return Outcome{Reply: reply}
}
