package api

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/ledger"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app, _ := newTestServer()
	return app
}

func newTestServer() (*fiber.App, *Server) {
	directory := services.NewStaticDirectory(
		[]models.Account{
			{BaseModel: models.BaseModel{ID: 1}, Name: "alice"},
			{BaseModel: models.BaseModel{ID: 2}, Name: "bob"},
			{BaseModel: models.BaseModel{ID: 3}, Name: "carol"},
		},
		[]models.Group{{BaseModel: models.BaseModel{ID: 10}, Name: "movie night", MemberIDs: []uint{1, 2, 3}}},
	)
	notifier := services.NewLocalNotifier()
	store := mailbox.NewStore(mailbox.NewMemoryBackend())
	store.OnChange(services.StoreHook(notifier, "server"))
	router := services.NewRouter(store, ledger.NewMemoryLedger(), services.NewMembershipResolver(directory))
	handlers := NewServer(router, services.NewClipAdapter(router, directory), directory, notifier)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
	})
	handlers.MapAPIs(app, "/api")
	return app, handlers
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := make(map[string]any)
	_ = jsoniter.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestDirectMessageAndClear(t *testing.T) {
	app := newTestApp()

	status, body := call(t, app, fiber.MethodPost, "/api/direct/2/messages", `{"from":1,"kind":"text","content":"hi"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "hi", body["content"])

	status, body = call(t, app, fiber.MethodGet, "/api/mailboxes/2/friend/1", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "chat:2:friend:1", body["key"])
	assert.EqualValues(t, 1, body["count"])

	status, _ = call(t, app, fiber.MethodDelete, "/api/mailboxes/1/friend/2", "")
	require.Equal(t, fiber.StatusOK, status)

	_, body = call(t, app, fiber.MethodGet, "/api/mailboxes/1/friend/2", "")
	assert.EqualValues(t, 0, body["count"])
	_, body = call(t, app, fiber.MethodGet, "/api/mailboxes/2/friend/1", "")
	assert.EqualValues(t, 1, body["count"])
}

func TestRejectsBadRequests(t *testing.T) {
	app := newTestApp()

	status, _ := call(t, app, fiber.MethodPost, "/api/direct/2/messages", `{"from":1,"kind":"clip"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, fiber.MethodPost, "/api/direct/2/messages", `{"from":1,"kind":"text","content":"   "}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, fiber.MethodPost, "/api/direct/404/messages", `{"from":1,"kind":"text","content":"hi"}`)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, app, fiber.MethodGet, "/api/mailboxes/1/room/2", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGroupMessage(t *testing.T) {
	app := newTestApp()

	status, body := call(t, app, fiber.MethodPost, "/api/groups/10/messages", `{"from":2,"kind":"text","content":"popcorn"}`)
	require.Equal(t, fiber.StatusOK, status)
	result := body["result"].(map[string]any)
	assert.Len(t, result["delivered"], 3)

	status, body = call(t, app, fiber.MethodPost, "/api/groups/9999/messages", `{"from":2,"kind":"text","content":"hello?"}`)
	require.Equal(t, fiber.StatusOK, status)
	result = body["result"].(map[string]any)
	assert.Empty(t, result["recipients"])

	status, body = call(t, app, fiber.MethodGet, "/api/mailboxes/3", "")
	require.Equal(t, fiber.StatusOK, status)
}

func TestShareClip(t *testing.T) {
	app := newTestApp()

	status, body := call(t, app, fiber.MethodPost, "/api/clips/share", `{
		"from": 1,
		"platform": "netflix",
		"clip": {"contentId": "1", "startTime": 39, "endTime": 54, "clipId": "c-1", "title": "The Heist"},
		"reaction": {"kind": "text", "content": "lol"},
		"targets": {"friends": [2]}
	}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "/netflix/watch/1?t=39", body["link"])

	_, body = call(t, app, fiber.MethodGet, "/api/mailboxes/2/friend/1", "")
	require.EqualValues(t, 1, body["count"])
	message := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "clip", message["kind"])
	assert.Equal(t, "lol", message["reaction"].(map[string]any)["content"])

	status, body = call(t, app, fiber.MethodGet, "/api/routes/direct/2/1", "")
	require.Equal(t, fiber.StatusOK, status)

	status, _ = call(t, app, fiber.MethodPost, "/api/clips/share", `{"from":1,"platform":"hulu","clip":{},"targets":{"friends":[2]}}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPreviewIncompleteClip(t *testing.T) {
	app := newTestApp()

	status, body := call(t, app, fiber.MethodPost, "/api/clips/preview", `{"from":1,"platform":"prime","clip":{"videoId":"B0X","start":12.5}}`)
	require.Equal(t, fiber.StatusOK, status)
	result := body["result"].(map[string]any)
	assert.Equal(t, false, result["valid"])
	assert.Len(t, result["warnings"], 2)
	assert.Equal(t, "/prime/watch/B0X?t=12", body["link"])
}
