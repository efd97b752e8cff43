package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/harentsoaR/auc-api/internal/blob"
	"github.com/harentsoaR/auc-api/internal/config"
	"github.com/harentsoaR/auc-api/internal/handlers"
	"github.com/harentsoaR/auc-api/internal/logging"
	"github.com/harentsoaR/auc-api/internal/services"
	"github.com/harentsoaR/auc-api/internal/store"
	"github.com/harentsoaR/auc-api/internal/store/memstore"
)

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sink, err := blob.NewDiskSink(t.TempDir())
	require.NoError(t, err)
	mgr := store.NewManager(memstore.New(), store.Options{Database: "auc_test", MaxLeases: 4, AcquireTimeout: time.Second})
	h := handlers.NewHandler(mgr, services.NewAvatarService(sink), services.NewKeyedMutex(), nil, nil)
	return NewRouter(cfg, h, logging.Discard())
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	r := newTestRouter(t, config.Defaults())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_CORSAllowAll(t *testing.T) {
	r := newTestRouter(t, config.Defaults())

	req := httptest.NewRequest(http.MethodOptions, "/login/signin", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CORSRestricted(t *testing.T) {
	cfg := config.Defaults()
	cfg.CORSAllowOrigins = []string{"https://app.example"}
	r := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNewBlobSink(t *testing.T) {
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "photos")
	sink, err := NewBlobSink(ctx, config.BlobConfig{Backend: "disk", Dir: dir})
	require.NoError(t, err)
	disk, ok := sink.(*blob.DiskSink)
	require.True(t, ok)
	assert.DirExists(t, disk.Dir())

	sink, err = NewBlobSink(ctx, config.BlobConfig{Backend: "s3", S3Bucket: "avatars", S3Region: "us-east-1", S3AccessKey: "k", S3SecretKey: "s"})
	require.NoError(t, err)
	assert.IsType(t, &blob.S3Sink{}, sink)

	_, err = NewBlobSink(ctx, config.BlobConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestWire_ToleratesExistingUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mem := memstore.New()
	mem.Seed("auc_test", "users",
		bson.M{"emailid": "old1@x.com", "pwd": "p"},
		bson.M{"emailid": "old2@x.com", "pwd": "q"},
		bson.M{"email": "dup@x.com", "password": "a"},
		bson.M{"email": "dup@x.com", "password": "b"},
	)

	cfg := config.Defaults()
	cfg.Blob.Dir = t.TempDir()
	s := &Server{
		cfg:   cfg,
		log:   logging.Discard(),
		store: store.NewManager(mem, store.Options{Database: "auc_test", MaxLeases: 2, AcquireTimeout: time.Second}),
	}
	require.NoError(t, s.wire(context.Background()))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/registration/signup", strings.NewReader(`{"email":"dup@x.com","password":"c"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, mem.Docs("auc_test", "users"), 4)
}

func TestWire_IndexIgnoresUsersWithoutEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mem := memstore.New()
	mem.Seed("auc_test", "users",
		bson.M{"emailid": "old1@x.com", "pwd": "p"},
		bson.M{"emailid": "old2@x.com", "pwd": "q"},
	)

	cfg := config.Defaults()
	cfg.Blob.Dir = t.TempDir()
	mgr := store.NewManager(mem, store.Options{Database: "auc_test", MaxLeases: 2, AcquireTimeout: time.Second})
	s := &Server{cfg: cfg, log: logging.Discard(), store: mgr}
	require.NoError(t, s.wire(context.Background()))

	// The index is in place: a direct duplicate insert is refused.
	err := mgr.With(context.Background(), func(ctx context.Context, db store.Database) error {
		users := db.Collection("users")
		if _, err := users.InsertOne(ctx, bson.M{"email": "n@x.com"}); err != nil {
			return err
		}
		_, err := users.InsertOne(ctx, bson.M{"email": "n@x.com"})
		return err
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}
