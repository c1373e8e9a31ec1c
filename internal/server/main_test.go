package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"seniority/internal/config"
	"seniority/internal/database"
	"seniority/internal/middleware"
	"seniority/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "server-test-secret"

// testEnv is a full app over a private in-memory SQLite database and no Redis.
type testEnv struct {
	t   *testing.T
	db  *gorm.DB
	app *fiber.App
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:  testSecret,
		JWTIssuer:  "seniority-auth",
		Port:       "0",
		FeedWindow: 50,
	}
	middleware.InitMiddleware(cfg)

	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	return &testEnv{t: t, db: db, app: s.App()}
}

func (e *testEnv) user(username string) *models.User {
	e.t.Helper()
	u := &models.User{Username: username, DisplayName: username}
	require.NoError(e.t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) post(author uint, content string, createdAt time.Time) *models.Post {
	e.t.Helper()
	p := &models.Post{UserID: author, Content: content, CreatedAt: createdAt}
	require.NoError(e.t, e.db.Omit("User").Create(p).Error)
	return p
}

func (e *testEnv) befriend(a, b uint) {
	e.t.Helper()
	require.NoError(e.t, e.db.Omit("Requester", "Addressee").Create(&models.Friendship{
		RequesterID: a,
		AddresseeID: b,
		Status:      models.FriendshipStatusAccepted,
	}).Error)
}

func token(t *testing.T, userID uint) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": "seniority-auth",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do sends a request as userID (0 for anonymous) and returns status and body.
func (e *testEnv) do(method, path string, userID uint, body interface{}) (int, []byte) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+token(e.t, userID))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}
