package handlers

import (
	"github.com/harentsoaR/auc-api/internal/logging"
	"github.com/harentsoaR/auc-api/internal/services"
	"github.com/harentsoaR/auc-api/internal/store"
)

// Handler carries the process-wide collaborators every route needs. It holds
// no per-request state; each route leases its own store connection.
type Handler struct {
	Store     *store.Manager
	Avatars   *services.AvatarService
	Locks     services.Locker
	Log       logging.Logger
	JWTSecret []byte
}

func NewHandler(st *store.Manager, avatars *services.AvatarService, locks services.Locker, log logging.Logger, jwtSecret []byte) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{
		Store:     st,
		Avatars:   avatars,
		Locks:     locks,
		Log:       log,
		JWTSecret: jwtSecret,
	}
}
