package actorutil

import (
	"github.com/plugwise/p1-legacy/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

// ReplyTo is where the answer to req goes: its explicit reply ref, or the sender.
func ReplyTo(ctx actor.Context, req domain.ActorRequest) *actor.PID {
	if pid := req.ReplyTo(); pid != nil {
		return pid
	}
	return ctx.Sender()
}
