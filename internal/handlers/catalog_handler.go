package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/auc-api/internal/models"
	"github.com/harentsoaR/auc-api/internal/store"
)

// GetMenu returns the whole top-level menu ordered by mid.
func (h *Handler) GetMenu(c *gin.Context) {
	h.list(c, "get menu", models.MenuCollection, store.Document{}, store.FindOptions{
		Sort: []store.SortKey{store.Asc(models.FieldMenuOrder)},
	})
}

// GetSubMenu returns the submenu entries matching the request body ordered
// by smid.
func (h *Handler) GetSubMenu(c *gin.Context) {
	filter, err := bindDocument(c)
	if err != nil {
		h.fail(c, "get submenu", err)
		return
	}
	h.list(c, "get submenu", models.SubMenuCollection, filter, store.FindOptions{
		Sort: []store.SortKey{store.Asc(models.FieldSubMenuOrder)},
	})
}

func (h *Handler) GetItems(c *gin.Context) {
	h.list(c, "get items", models.ItemsCollection, store.Document{}, store.FindOptions{})
}

// GetInbox returns the messages addressed to the userId path parameter.
func (h *Handler) GetInbox(c *gin.Context) {
	owner := c.Param("userId")
	h.list(c, "get inbox", models.InboxCollection, store.Document{models.FieldInboxOwner: owner}, store.FindOptions{})
}

func (h *Handler) list(c *gin.Context, op, collection string, filter store.Document, opts store.FindOptions) {
	ctx := c.Request.Context()

	var docs []store.Document
	err := h.Store.With(ctx, func(ctx context.Context, db store.Database) error {
		var err error
		docs, err = db.Collection(collection).Find(ctx, filter, opts)
		return err
	})
	if err != nil {
		h.fail(c, op, err)
		return
	}

	h.ok(c, "OK", docs)
}
