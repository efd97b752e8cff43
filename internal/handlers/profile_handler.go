package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/auc-api/internal/models"
	"github.com/harentsoaR/auc-api/internal/store"
)

const avatarFormField = "myfile"

// GetProfile returns the users matching the request body, without their
// stored credential.
func (h *Handler) GetProfile(c *gin.Context) {
	h.findUsers(c, "get profile", store.Document{models.FieldPassword: 0})
}

// GetUserName returns only the name fields of the matching users.
func (h *Handler) GetUserName(c *gin.Context) {
	h.findUsers(c, "get user name", store.Document{models.FieldFirstName: 1, models.FieldLastName: 1})
}

func (h *Handler) findUsers(c *gin.Context, op string, projection store.Document) {
	ctx := c.Request.Context()

	filter, err := bindDocument(c)
	if err != nil {
		h.fail(c, op, err)
		return
	}

	var users []store.Document
	err = h.Store.With(ctx, func(ctx context.Context, db store.Database) error {
		var err error
		users, err = db.Collection(models.UsersCollection).Find(ctx, filter, store.FindOptions{Projection: projection})
		return err
	})
	if err != nil {
		h.fail(c, op, err)
		return
	}

	h.ok(c, "OK", users)
}

// UploadAvatar stores the uploaded picture under the fname form value and
// records its URL on the user whose email equals fname.
func (h *Handler) UploadAvatar(c *gin.Context) {
	ctx := c.Request.Context()

	file, err := c.FormFile(avatarFormField)
	if err != nil {
		h.reject(c, http.StatusBadRequest, models.KindBadRequest, "File not found.")
		return
	}
	name := c.PostForm("fname")

	src, err := file.Open()
	if err != nil {
		h.fail(c, "upload avatar", err)
		return
	}
	defer src.Close()

	imgURL, err := h.Avatars.Save(ctx, name, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		h.fail(c, "upload avatar", err)
		return
	}

	var res store.UpdateResult
	err = h.Store.With(ctx, func(ctx context.Context, db store.Database) error {
		var err error
		res, err = db.Collection(models.UsersCollection).UpdateOne(ctx,
			store.Document{models.FieldEmail: name},
			store.Document{models.FieldImgURL: imgURL},
		)
		return err
	})
	if err != nil {
		h.fail(c, "upload avatar", err)
		return
	}

	h.Log.Info(ctx, "avatar uploaded", "key", imgURL, "matched", res.Matched)
	h.ok(c, "File is uploaded.", gin.H{models.FieldImgURL: imgURL})
}
