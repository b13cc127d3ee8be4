package integrity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"media-reconciler/core/database"
	"media-reconciler/core/storage"
	"media-reconciler/core/storage/mocks"
	"media-reconciler/feature/media"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }
func (p stubPinger) Endpoint() string { return "http://commons.test/w/api.php" }

var testStorage = storage.Config{Bucket: "test-bucket", Prefix: "archives/"}

func setupDB(t *testing.T) *gorm.DB {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, media.NewRepository(db).Migrate())
	return db
}

func setupTestApp(svc *Service) *fiber.App {
	app := fiber.New()
	NewHandler(svc).RegisterRoutes(app)
	return app
}

func decode(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleIntegrityCheck(t *testing.T) {
	mockClient := new(mocks.Client)
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(true, nil)
	mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.Anything).
		Return(mocks.Objects(minio.ObjectInfo{Key: "archives/q84.json"}))

	svc := NewService(mockClient, testStorage, setupDB(t), stubPinger{}, zap.NewNop())
	status, body := decode(t, setupTestApp(svc), "/integrity")

	assert.Equal(t, 200, status)
	for _, name := range []string{"storage", "database", "upstream"} {
		section := body[name].(map[string]any)
		assert.Equal(t, "ok", section["status"], name)
	}
	storageReport := body["storage"].(map[string]any)["report"].(map[string]any)
	assert.Equal(t, float64(1), storageReport["archives"])
}

func TestHandleIntegrityCheck_Disabled(t *testing.T) {
	svc := NewService(nil, testStorage, nil, nil, zap.NewNop())
	status, body := decode(t, setupTestApp(svc), "/integrity")

	assert.Equal(t, 200, status)
	for _, name := range []string{"storage", "database", "upstream"} {
		assert.Equal(t, "disabled", body[name].(map[string]any)["status"], name)
	}
}

func TestHandleIntegrityCheck_Failures(t *testing.T) {
	mockClient := new(mocks.Client)
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, errors.New("connection refused"))

	svc := NewService(mockClient, testStorage, nil, stubPinger{err: errors.New("HTTP 503")}, zap.NewNop())
	_, body := decode(t, setupTestApp(svc), "/integrity")

	storageSection := body["storage"].(map[string]any)
	assert.Equal(t, "error", storageSection["status"])
	assert.Contains(t, storageSection["error"], "connection refused")
	assert.Equal(t, "error", body["upstream"].(map[string]any)["status"])
}

func TestHandleStorageCheck(t *testing.T) {
	t.Run("missing bucket", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, nil)

		svc := NewService(mockClient, testStorage, nil, nil, zap.NewNop())
		status, body := decode(t, setupTestApp(svc), "/integrity/storage")

		assert.Equal(t, 200, status)
		assert.Equal(t, false, body["exists"])
		mockClient.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fix", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, nil)
		mockClient.On("MakeBucket", mock.Anything, "test-bucket", minio.MakeBucketOptions{}).Return(nil)

		svc := NewService(mockClient, testStorage, nil, nil, zap.NewNop())
		status, body := decode(t, setupTestApp(svc), "/integrity/storage?fix=true")

		assert.Equal(t, 200, status)
		assert.Equal(t, true, body["exists"])
		mockClient.AssertExpectations(t)
	})

	t.Run("disabled", func(t *testing.T) {
		svc := NewService(nil, testStorage, nil, nil, zap.NewNop())
		status, body := decode(t, setupTestApp(svc), "/integrity/storage")

		assert.Equal(t, fiber.StatusServiceUnavailable, status)
		assert.Equal(t, ErrDisabled.Error(), body["error"])
	})
}

func TestHandleDatabaseCheck(t *testing.T) {
	svc := NewService(nil, testStorage, setupDB(t), nil, zap.NewNop())
	status, body := decode(t, setupTestApp(svc), "/integrity/database")

	assert.Equal(t, 200, status)
	assert.Equal(t, "page_media", body["table"])
	assert.Equal(t, true, body["matches"])
}

func TestHandleUpstreamCheck(t *testing.T) {
	svc := NewService(nil, testStorage, nil, stubPinger{}, zap.NewNop())
	status, body := decode(t, setupTestApp(svc), "/integrity/upstream")
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["reachable"])

	svc = NewService(nil, testStorage, nil, stubPinger{err: errors.New("HTTP 503")}, zap.NewNop())
	status, body = decode(t, setupTestApp(svc), "/integrity/upstream")
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "HTTP 503", body["error"])
}
