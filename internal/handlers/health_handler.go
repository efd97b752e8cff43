package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/auc-api/internal/models"
	"github.com/harentsoaR/auc-api/internal/store"
)

// Health leases a connection and pings the database through it.
func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	err := h.Store.With(ctx, func(ctx context.Context, db store.Database) error {
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("%w: ping: %w", store.ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		h.fail(c, "health", err)
		return
	}

	h.ok(c, "OK", gin.H{"database": h.Store.DatabaseName()})
}

// EnsureIndexes creates the indexes the handlers rely on.
func (h *Handler) EnsureIndexes(ctx context.Context) error {
	return h.Store.With(ctx, func(ctx context.Context, db store.Database) error {
		return db.Collection(models.UsersCollection).EnsureUniqueIndex(ctx, models.FieldEmail)
	})
}
