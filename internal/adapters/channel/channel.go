package channel

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/internal/app"
	"github.com/huddlechat/huddle/internal/config"
	"github.com/huddlechat/huddle/internal/core"
	"github.com/huddlechat/huddle/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	cfg      *config.Config
	registry *app.Registry
}

func NewController(cfg *config.Config, registry *app.Registry) *Controller {
	return &Controller{cfg: cfg, registry: registry}
}

// session is the per-channel state. A channel binds exactly one connection
// id and at most one room for its whole lifetime.
type session struct {
	ctl    *Controller
	connID domain.ConnID
	conn   *Conn
	room   *core.Actor
	cancel context.CancelFunc

	leaveOnce sync.Once
}

// Handle upgrades the request and runs the channel until it closes. The
// preflight happened over REST already, but it reserved nothing: membership
// starts only at the explicit join_room event.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "channel").Msg("ws upgrade")
		return
	}

	connID := domain.NewConnID()
	log.Info().Str("module", "channel").Str("conn", string(connID)).Msg("channel established")

	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		ctl:    ctl,
		connID: connID,
		conn:   newConn(ws, ctl.cfg.SendBuffer),
		cancel: cancel,
	}

	go s.writePump(ctx)
	go s.readPump(ctx)
}

// teardown is the sole cleanup path. Explicit leave events, read errors and
// context cancellation all land here, and the room sees exactly one leave.
func (s *session) teardown() {
	s.leaveOnce.Do(func() {
		if s.room != nil {
			s.room.Leave(s.connID)
		}
		s.conn.Close()
		s.cancel()
		log.Info().Str("module", "channel").Str("conn", string(s.connID)).Msg("channel closed")
	})
}
