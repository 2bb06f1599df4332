package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/internal/app"
	"github.com/huddlechat/huddle/internal/domain"
)

type Handlers struct {
	coord *app.Coordinator
}

func NewHandlers(coord *app.Coordinator) *Handlers {
	return &Handlers{coord: coord}
}

type JoinRoomRequest struct {
	RoomID string `json:"roomID" binding:"required"`
}

type CreateRoomResponse struct {
	OK     bool          `json:"ok"`
	RoomID domain.RoomID `json:"roomId,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// CreateRoom mints a room and returns its id. Generation failure is
// unexpected and fatal to this request only.
func (h *Handlers) CreateRoom(c *gin.Context) {
	id, err := h.coord.CreateRoom()
	if err != nil {
		c.JSON(http.StatusInternalServerError, OKResponse{OK: false})
		return
	}
	c.JSON(http.StatusOK, CreateRoomResponse{OK: true, RoomID: id})
}

// JoinRoom is the preflight existence check. ok:false is a normal outcome,
// not an error status: the client returns to its unjoined state.
func (h *Handlers) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Str("module", "adapters.http").Msg("bad join_room payload")
		c.JSON(http.StatusBadRequest, OKResponse{OK: false})
		return
	}
	ok := h.coord.ValidateRoom(domain.RoomID(req.RoomID))
	c.JSON(http.StatusOK, OKResponse{OK: ok})
}
