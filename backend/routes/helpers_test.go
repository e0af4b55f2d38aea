package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"potatolearn/backend/certificates"
	"potatolearn/backend/config"
	"potatolearn/backend/models"
	"potatolearn/backend/routes"
	"potatolearn/backend/services"
	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testApp struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{
		DBDriver:        "sqlite",
		DBPath:          filepath.Join(t.TempDir(), "test.db"),
		JWTSecret:       "test-secret",
		JWTExpire:       time.Hour,
		JWTCookieExpire: 1,
		UploadDir:       t.TempDir(),
	}
	logger := utils.DiscardLogger()

	db, err := utils.InitDB(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = utils.CloseDB(db) })

	store, err := certificates.NewDiskStore(cfg.UploadDir)
	require.NoError(t, err)
	issuer := certificates.NewIssuer(db, store, certificates.DefaultChain(), logger)
	svc := routes.NewServices(db,
		services.NewQuizService(db, issuer),
		services.NewCertificateService(db, store, logger))

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler(logger)})
	app.Use(recover.New())
	routes.SetupRoutes(app, db, cfg, svc)

	return &testApp{app: app, db: db, cfg: cfg}
}

type response struct {
	*http.Response
	body []byte
	JSON map[string]interface{}
}

func (ta *testApp) do(t *testing.T, method, path, token string, payload interface{}) *response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := &response{Response: resp}
	out.body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(out.body) > 0 && out.body[0] == '{' {
		require.NoError(t, json.Unmarshal(out.body, &out.JSON))
	}
	return out
}

func (r *response) data() map[string]interface{} {
	data, _ := r.JSON["data"].(map[string]interface{})
	return data
}

func (r *response) list() []interface{} {
	items, _ := r.JSON["data"].([]interface{})
	return items
}

// register создает пользователя через API и возвращает токен и id
func (ta *testApp) register(t *testing.T, name, email, role string) (string, uint) {
	t.Helper()
	resp := ta.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "password123",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.body))
	user := resp.JSON["user"].(map[string]interface{})
	return resp.JSON["token"].(string), uint(user["id"].(float64))
}

// admin регистрация админом невозможна, поэтому роль выставляется напрямую в базе
func (ta *testApp) admin(t *testing.T) (string, uint) {
	t.Helper()
	_, id := ta.register(t, "Admin", "admin@test.com", "")
	require.NoError(t, ta.db.Model(&models.User{}).Where("id = ?", id).Update("role", models.RoleAdmin).Error)
	token, err := utils.GenerateJWTToken(id, models.RoleAdmin, ta.cfg)
	require.NoError(t, err)
	return token, id
}

// createCourse курс через API от имени преподавателя, возвращает id
func (ta *testApp) createCourse(t *testing.T, token, title string, published bool) string {
	t.Helper()
	resp := ta.do(t, http.MethodPost, "/api/courses", token, map[string]interface{}{
		"title":       title,
		"description": title + " description",
		"category":    "Programming",
		"isPublished": published,
		"content": []map[string]interface{}{
			{"title": "Intro", "type": "video", "url": "https://example.com/intro", "duration": 10},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.body))
	return idString(resp.data()["id"])
}

func idString(v interface{}) string {
	return strconv.FormatUint(uint64(v.(float64)), 10)
}

var sampleQuestions = []map[string]interface{}{
	{"questionText": "2 + 2?", "options": []string{"4", "3", "5", "22"}, "correctAnswer": 0},
	{"questionText": "Go keyword for goroutines?", "options": []string{"async", "go", "spawn", "thread"}, "correctAnswer": 1, "points": 1},
}
