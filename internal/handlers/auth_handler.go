package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/auc-api/internal/models"
	"github.com/harentsoaR/auc-api/internal/store"
	"github.com/harentsoaR/auc-api/internal/utils"
)

// RegisterUser stores the request body as a new user unless the email is
// already taken. Registrations for one email are serialised through h.Locks
// and the unique index on users.email backs that up across replicas.
func (h *Handler) RegisterUser(c *gin.Context) {
	ctx := c.Request.Context()

	doc, err := bindDocument(c)
	if err != nil {
		h.fail(c, "register", err)
		return
	}

	email, _ := doc[models.FieldEmail].(string)
	if email == "" {
		h.reject(c, http.StatusBadRequest, models.KindBadRequest, "Email is required.")
		return
	}

	// Hash before taking the lock so slow bcrypt work does not hold it.
	if err := hashCredential(doc); err != nil {
		h.fail(c, "register", err)
		return
	}

	unlock, err := h.Locks.Lock(ctx, "signup:"+email)
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	defer unlock()

	exists := false
	err = h.Store.With(ctx, func(ctx context.Context, db store.Database) error {
		users := db.Collection(models.UsersCollection)

		_, err := users.FindOne(ctx, store.Document{models.FieldEmail: email})
		switch {
		case err == nil:
			exists = true
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("lookup user: %w", err)
		}

		if _, err := users.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		exists, err = true, nil
	}
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	if exists {
		h.reject(c, http.StatusConflict, models.KindConflict, "User already exists.")
		return
	}

	h.Log.Info(ctx, "user registered", "email", email)
	h.ok(c, "Registered successfully.", nil)
}

// hashCredential replaces the plain credential (password or legacy pwd)
// with its bcrypt hash under the password field.
func hashCredential(doc store.Document) error {
	secret, _ := doc[models.FieldPassword].(string)
	if secret == "" {
		secret, _ = doc[models.FieldLegacyPassword].(string)
	}
	delete(doc, models.FieldLegacyPassword)
	if secret == "" {
		delete(doc, models.FieldPassword)
		return nil
	}

	hash, err := utils.HashPassword(secret)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	doc[models.FieldPassword] = hash
	return nil
}

// Login succeeds when a user with the email exists and the credential
// matches. A token is included when a JWT secret is configured.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, http.StatusBadRequest, models.KindBadRequest, "Invalid request.")
		return
	}

	var user store.Document
	err := h.Store.With(ctx, func(ctx context.Context, db store.Database) error {
		var err error
		user, err = db.Collection(models.UsersCollection).FindOne(ctx, store.Document{models.FieldEmail: req.Email})
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		h.reject(c, http.StatusUnauthorized, models.KindUnauthorized, "Invalid email or password.")
		return
	}
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	stored, _ := user[models.FieldPassword].(string)
	ok, needsRehash := utils.CheckPassword(req.Secret(), stored)
	if !ok {
		h.reject(c, http.StatusUnauthorized, models.KindUnauthorized, "Invalid email or password.")
		return
	}
	if needsRehash {
		h.upgradeCredential(ctx, req.Email, stored)
	}

	var data gin.H
	if len(h.JWTSecret) > 0 {
		token, err := utils.GenerateJWT(h.JWTSecret, req.Email)
		if err != nil {
			h.fail(c, "login", err)
			return
		}
		data = gin.H{"token": token}
	}

	h.ok(c, "Login successful.", data)
}

// upgradeCredential replaces a clear stored credential with its hash,
// unless it changed meanwhile. A failure is logged only: the login already
// succeeded.
func (h *Handler) upgradeCredential(ctx context.Context, email, clear string) {
	hash, err := utils.HashPassword(clear)
	if err == nil {
		err = h.Store.With(ctx, func(ctx context.Context, db store.Database) error {
			_, err := db.Collection(models.UsersCollection).UpdateOne(ctx,
				store.Document{models.FieldEmail: email, models.FieldPassword: clear},
				store.Document{models.FieldPassword: hash},
			)
			return err
		})
	}
	if err != nil {
		h.Log.Warn(ctx, "failed to rehash legacy credential", "email", email, "error", err)
		return
	}
	h.Log.Info(ctx, "legacy credential rehashed", "email", email)
}

// ChangePassword sets a new credential on the user with the given email.
// It reports success even when no user matched.
func (h *Handler) ChangePassword(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.PasswordChange
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, http.StatusBadRequest, models.KindBadRequest, "Invalid request.")
		return
	}
	email, secret := req.Identifier(), req.Secret()
	if email == "" || secret == "" {
		h.reject(c, http.StatusBadRequest, models.KindBadRequest, "emailid and pwd are required.")
		return
	}

	hash, err := utils.HashPassword(secret)
	if err != nil {
		h.fail(c, "change password", err)
		return
	}

	var res store.UpdateResult
	err = h.Store.With(ctx, func(ctx context.Context, db store.Database) error {
		var err error
		res, err = db.Collection(models.UsersCollection).UpdateOne(ctx,
			store.Document{models.FieldEmail: email},
			store.Document{models.FieldPassword: hash},
		)
		return err
	})
	if err != nil {
		h.fail(c, "change password", err)
		return
	}

	h.Log.Debug(ctx, "password update", "email", email, "matched", res.Matched)
	h.ok(c, "Password has been updated.", nil)
}
