package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/turkalkol/turkalkol-backend/internal/gallery"
	"github.com/turkalkol/turkalkol-backend/internal/leaderboard"
	"github.com/turkalkol/turkalkol-backend/internal/likes"
	"github.com/turkalkol/turkalkol-backend/internal/metrics"
	"github.com/turkalkol/turkalkol-backend/internal/storage"
)

const (
	testAdminUser = "turkalkol"
	testAdminPass = "sekret"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	leaderboardService, err := leaderboard.NewService(leaderboard.ServiceConfig{
		Store: storage.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("failed to build leaderboard service: %v", err)
	}

	likesService, err := likes.NewService(likes.ServiceConfig{
		Store: storage.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("failed to build likes service: %v", err)
	}

	galleryService, err := gallery.NewService(gallery.ServiceConfig{
		OriginalDir:    t.TempDir(),
		WatermarkedDir: t.TempDir(),
		Watermarker:    gallery.NewWatermarker("turkalkol.com", 44, nil),
		Likes:          likesService,
	})
	if err != nil {
		t.Fatalf("failed to build gallery service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Leaderboard:   leaderboardService,
		Likes:         likesService,
		Gallery:       galleryService,
		Metrics:       metrics.New(),
		AdminUsername: testAdminUser,
		AdminPassword: testAdminPass,
		PublicDir:     t.TempDir(),
		MaxBodyBytes:  8 << 20,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func performJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, target, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	decoded := map[string]any{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func TestNewHTTPHandlerValidatesDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if _, err := NewHTTPHandler(Dependencies{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}

func TestLeaderboardSubmitAndListFlow(t *testing.T) {
	handler := newTestHandler(t)

	submit := performJSON(t, handler, http.MethodPost, "/api/leaderboard", map[string]any{
		"username": "ada",
		"score":    120,
		"game":     "2048",
		"stats":    map[string]any{"totalFlips": 5},
	})
	if submit.Code != http.StatusOK {
		t.Fatalf("submit failed with %d: %s", submit.Code, submit.Body.String())
	}
	response := decodeBody(t, submit)
	if response["success"] != true || response["score"] != float64(120) {
		t.Fatalf("unexpected submit response: %v", response)
	}
	if response["total_flips"] != float64(5) {
		t.Fatalf("response must carry merged stats, got %v", response)
	}

	lower := performJSON(t, handler, http.MethodPost, "/api/leaderboard", map[string]any{
		"username": "Ada",
		"score":    80,
		"game":     "2048",
		"stats":    map[string]any{"totalFlips": 10},
	})
	merged := decodeBody(t, lower)
	if merged["score"] != float64(120) || merged["total_flips"] != float64(10) {
		t.Fatalf("expected monotonic merge in response, got %v", merged)
	}

	list := performJSON(t, handler, http.MethodGet, "/api/leaderboard?game=2048", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list failed with %d", list.Code)
	}
	var entries []map[string]any
	if err := json.Unmarshal(list.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(entries) != 1 || entries[0]["username"] != "ada" {
		t.Fatalf("expected single merged entry, got %v", entries)
	}
}

func TestLeaderboardSubmitValidation(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"short username", map[string]any{"username": "a", "score": 10}},
		{"negative score", map[string]any{"username": "ada", "score": -1}},
		{"over cap", map[string]any{"username": "ada", "score": 2_000_000}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := performJSON(t, handler, http.MethodPost, "/api/leaderboard", tc.body)
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestLikeToggleEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	first := performJSON(t, handler, http.MethodPost, "/like/cat.jpg", map[string]any{"userId": "u1"})
	if first.Code != http.StatusOK {
		t.Fatalf("toggle failed with %d: %s", first.Code, first.Body.String())
	}
	response := decodeBody(t, first)
	if response["action"] != "liked" || response["count"] != float64(1) || response["hasLiked"] != true {
		t.Fatalf("unexpected toggle response: %v", response)
	}

	second := performJSON(t, handler, http.MethodPost, "/like/cat.jpg", map[string]any{"userId": "u1"})
	response = decodeBody(t, second)
	if response["action"] != "unliked" || response["count"] != float64(0) || response["hasLiked"] != false {
		t.Fatalf("double toggle must return to the original state, got %v", response)
	}

	likesState := performJSON(t, handler, http.MethodGet, "/likes/cat.jpg", nil)
	state := decodeBody(t, likesState)
	if state["count"] != float64(0) {
		t.Fatalf("expected zero likes, got %v", state)
	}
	if _, ok := state["users"].([]any); !ok {
		t.Fatalf("users must serialize as an array, got %v", state["users"])
	}
}

func TestLikeToggleRequiresUserID(t *testing.T) {
	handler := newTestHandler(t)

	recorder := performJSON(t, handler, http.MethodPost, "/like/cat.jpg", map[string]any{})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing userId, got %d", recorder.Code)
	}
}

func TestAdminEndpointsRequireBasicAuth(t *testing.T) {
	handler := newTestHandler(t)

	targets := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/api/admin/leaderboard/reset"},
		{http.MethodDelete, "/api/admin/leaderboard/ada"},
		{http.MethodPut, "/api/admin/leaderboard/ada"},
		{http.MethodPost, "/upload"},
		{http.MethodDelete, "/delete/cat.jpg"},
	}
	for _, tc := range targets {
		request := httptest.NewRequest(tc.method, tc.target, http.NoBody)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.target, recorder.Code)
		}
		if got := recorder.Header().Get("WWW-Authenticate"); !strings.Contains(got, "turkalkol admin") {
			t.Fatalf("%s %s: expected challenge header, got %q", tc.method, tc.target, got)
		}
	}
}

func TestAdminBasicAuthWrongPasswordRejected(t *testing.T) {
	handler := newTestHandler(t)

	request := httptest.NewRequest(http.MethodPost, "/api/admin/leaderboard/reset", http.NoBody)
	request.SetBasicAuth(testAdminUser, "wrong")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestAdminPreflightBypassesAuth(t *testing.T) {
	handler := newTestHandler(t)

	request := httptest.NewRequest(http.MethodOptions, "/api/admin/leaderboard/reset", http.NoBody)
	request.Header.Set("Origin", "https://turkalkol.com")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code == http.StatusUnauthorized {
		t.Fatalf("preflight must not require credentials")
	}
}

func TestAdminResetClearsLeaderboard(t *testing.T) {
	handler := newTestHandler(t)

	submit := performJSON(t, handler, http.MethodPost, "/api/leaderboard", map[string]any{
		"username": "ada", "score": 10,
	})
	if submit.Code != http.StatusOK {
		t.Fatalf("submit failed with %d", submit.Code)
	}

	request := httptest.NewRequest(http.MethodPost, "/api/admin/leaderboard/reset", http.NoBody)
	request.SetBasicAuth(testAdminUser, testAdminPass)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("reset failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	list := performJSON(t, handler, http.MethodGet, "/api/leaderboard", nil)
	var entries []map[string]any
	if err := json.Unmarshal(list.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty leaderboard after reset, got %v", entries)
	}
}

func TestAdminDeleteUnknownPlayerReturns404(t *testing.T) {
	handler := newTestHandler(t)

	request := httptest.NewRequest(http.MethodDelete, "/api/admin/leaderboard/nobody", http.NoBody)
	request.SetBasicAuth(testAdminUser, testAdminPass)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestAdminSetScoreOverwrites(t *testing.T) {
	handler := newTestHandler(t)

	if code := performJSON(t, handler, http.MethodPost, "/api/leaderboard", map[string]any{
		"username": "ada", "score": 500,
	}).Code; code != http.StatusOK {
		t.Fatalf("submit failed with %d", code)
	}

	payload, _ := json.Marshal(map[string]any{"score": 7})
	request := httptest.NewRequest(http.MethodPut, "/api/admin/leaderboard/ada", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	request.SetBasicAuth(testAdminUser, testAdminPass)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("edit failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	list := performJSON(t, handler, http.MethodGet, "/api/leaderboard", nil)
	var entries []map[string]any
	if err := json.Unmarshal(list.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(entries) != 1 || entries[0]["score"] != float64(7) {
		t.Fatalf("expected absolute overwrite to 7, got %v", entries)
	}
}

func TestUploadEndpointStoresPhoto(t *testing.T) {
	handler := newTestHandler(t)

	img := image.NewRGBA(image.Rect(0, 0, 80, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 80; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 80, B: 120, A: 255})
		}
	}
	var imgBuf bytes.Buffer
	if err := jpeg.Encode(&imgBuf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "tatil.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(imgBuf.Bytes()); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	request := httptest.NewRequest(http.MethodPost, "/upload", &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.SetBasicAuth(testAdminUser, testAdminPass)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("upload failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	response := decodeBody(t, recorder)
	if response["file"] != "tatil.jpg" {
		t.Fatalf("unexpected stored filename: %v", response)
	}

	list := performJSON(t, handler, http.MethodGet, "/list", nil)
	if !strings.Contains(list.Body.String(), "tatil.jpg") {
		t.Fatalf("uploaded photo must appear in /list, got %s", list.Body.String())
	}

	count := decodeBody(t, performJSON(t, handler, http.MethodGet, "/count", nil))
	if count["count"] != float64(1) {
		t.Fatalf("expected count 1, got %v", count)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	handler := newTestHandler(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte("plain text")); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	request := httptest.NewRequest(http.MethodPost, "/upload", &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.SetBasicAuth(testAdminUser, testAdminPass)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported type, got %d", recorder.Code)
	}
}

func TestCORSEchoesOrigin(t *testing.T) {
	handler := newTestHandler(t)

	request := httptest.NewRequest(http.MethodGet, "/api/leaderboard", http.NoBody)
	request.Header.Set("Origin", "https://turkalkol.com")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://turkalkol.com" {
		t.Fatalf("expected origin echo, got %q", got)
	}
	if recorder.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected credentials to be enabled")
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	handler := newTestHandler(t)

	recorder := performJSON(t, handler, http.MethodGet, "/metrics", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("metrics endpoint failed with %d", recorder.Code)
	}
}

func TestTestEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	recorder := performJSON(t, handler, http.MethodGet, "/test", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if decodeBody(t, recorder)["status"] != "ok" {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}
}
