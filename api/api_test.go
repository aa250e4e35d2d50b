package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func testApp() *fiber.App {
	app := fiber.New()
	NewHandler(nil, nil, nil, nil, nil, nil).Register(app)
	return app
}

func TestRegisterMountsRoutes(t *testing.T) {
	app := testApp()

	want := []struct{ method, path string }{
		{"GET", "/healthz"},
		{"POST", "/videos"},
		{"GET", "/videos/:id"},
		{"POST", "/videos/:id/transcribe"},
		{"POST", "/videos/:id/highlights"},
		{"GET", "/videos/:id/highlights"},
		{"POST", "/highlights/:id/export"},
		{"GET", "/clips/:id"},
		{"GET", "/jobs/:id"},
		{"POST", "/jobs/:id/cancel"},
		{"GET", "/users/:id/usage"},
		{"GET", "/admin/queue"},
	}
	routes := app.GetRoutes()
	for _, w := range want {
		found := false
		for _, r := range routes {
			if r.Method == w.method && r.Path == w.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("route %s %s not registered", w.method, w.path)
		}
	}
}

func TestCancelJobRequiresIdentity(t *testing.T) {
	app := testApp()

	req := httptest.NewRequest("POST", "/jobs/5f0c7a4e-0000-0000-0000-000000000000/cancel", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestCancelJobRejectsBadID(t *testing.T) {
	app := testApp()

	req := httptest.NewRequest("POST", "/jobs/not-a-uuid/cancel", nil)
	req.Header.Set("X-User-ID", "user-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusBadRequest)
	}
}
