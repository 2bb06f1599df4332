package core

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Router fans one event out to a set of outbounds. Delivery is best-effort
// and fire-and-forget: a full or closed outbound drops the frame, nothing is
// buffered or retried.
type Router struct{}

func NewRouter() *Router { return &Router{} }

func (rt *Router) Deliver(targets []Outbound, v any) (sent, dropped int) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.router").Msg("marshal event")
		return 0, len(targets)
	}
	for _, t := range targets {
		if err := t.TrySend(b); err != nil {
			dropped++
			continue
		}
		sent++
	}
	if dropped > 0 {
		log.Debug().Str("module", "core.router").Int("sent", sent).Int("dropped", dropped).Msg("delivery result")
	}
	return sent, dropped
}
