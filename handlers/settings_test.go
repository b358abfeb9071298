package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sagastream/config"
)

type fakeMetadataReloader struct {
	token    string
	language string
}

func (f *fakeMetadataReloader) UpdateAPIKey(token, language string) {
	f.token = token
	f.language = language
}

type fakeCuratorReloader struct {
	key string
}

func (f *fakeCuratorReloader) SetAPIKey(key string) {
	f.key = key
}

func newTestSettingsHandler(t *testing.T) (*SettingsHandler, *fakeMetadataReloader, *fakeCuratorReloader, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	manager, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	md := &fakeMetadataReloader{}
	cur := &fakeCuratorReloader{}
	handler := NewSettingsHandler(manager)
	handler.SetMetadataService(md)
	handler.SetCurator(cur)
	return handler, md, cur, path
}

func TestGetSettingsHidesCredentials(t *testing.T) {
	handler, _, _, _ := newTestSettingsHandler(t)
	handler.Manager.Update(func(c *config.Config) {
		c.TMDBAccessToken = "secret-token"
	})

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	handler.GetSettings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-token") {
		t.Fatalf("credential leaked: %s", rec.Body.String())
	}

	var resp SettingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.TMDBConfigured || resp.GeminiConfigured {
		t.Fatalf("unexpected configured flags: %+v", resp)
	}
}

func TestPutSettingsReloadsServices(t *testing.T) {
	handler, md, cur, path := newTestSettingsHandler(t)

	body := `{"tmdbAccessToken":"new-token","geminiApiKey":"new-key","language":"pt-BR"}`
	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.PutSettings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if md.token != "new-token" || md.language != "pt-BR" {
		t.Fatalf("metadata service not reloaded: %+v", md)
	}
	if cur.key != "new-key" {
		t.Fatalf("curator not reloaded: %q", cur.key)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not persisted: %v", err)
	}
	if !strings.Contains(string(data), "new-token") {
		t.Fatal("expected config file to contain the new token")
	}
}

func TestPutSettingsEmptyFieldsKeepCurrentValues(t *testing.T) {
	handler, md, _, _ := newTestSettingsHandler(t)
	handler.Manager.Update(func(c *config.Config) {
		c.TMDBAccessToken = "existing-token"
	})

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"language":"en-US"}`))
	rec := httptest.NewRecorder()
	handler.PutSettings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if md.token != "existing-token" {
		t.Fatalf("expected existing token to survive, got %q", md.token)
	}
}

func TestPutSettingsInvalidBody(t *testing.T) {
	handler, _, _, _ := newTestSettingsHandler(t)

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	handler.PutSettings(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
