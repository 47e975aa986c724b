package internal

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/studycards/internal/apperr"
	"github.com/starford/studycards/internal/sse"
	"github.com/starford/studycards/internal/testutil"
)

func testConfig(t *testing.T, driver string) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Store.Driver = driver
	cfg.Store.Watch = false
	cfg.Store.Path = filepath.Join(t.TempDir(), "store")
	if driver == "sqlite" {
		cfg.Store.Path = filepath.Join(t.TempDir(), "cards.db")
	}
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCommands_ImportListExportDelete(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			cfg := testConfig(t, driver)
			ctx := context.Background()
			var out bytes.Buffer
			opts := []Option{WithConfig(cfg), WithOutput(&out)}

			src := writeFile(t, "cards.json", `{"Math":[{"question":"1+1","answer":"2"}],"Art":[{"question":"q","answer":"a"}]}`)
			if err := ImportFile(ctx, src, opts...); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), "imported 2 set(s)") {
				t.Errorf("import output = %q", out.String())
			}

			out.Reset()
			if err := ListSets(ctx, opts...); err != nil {
				t.Fatal(err)
			}
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			if len(lines) != 3 || !strings.HasPrefix(lines[1], "Math") || !strings.HasSuffix(lines[1], "1") {
				t.Errorf("list output = %q", out.String())
			}

			if err := DeleteSet(ctx, "Math", opts...); err != nil {
				t.Fatal(err)
			}

			exportPath := filepath.Join(t.TempDir(), "export.json")
			if err := Export(ctx, exportPath, opts...); err != nil {
				t.Fatal(err)
			}
			data, err := os.ReadFile(exportPath)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(string(data), "{\n  \"Art\": [") || strings.Contains(string(data), "Math") {
				t.Errorf("export = %s", data)
			}
		})
	}
}

func TestCommands_ImportCSVNamesSetAfterFile(t *testing.T) {
	cfg := testConfig(t, "file")
	var out bytes.Buffer
	opts := []Option{WithConfig(cfg), WithOutput(&out)}

	src := writeFile(t, "Verbs.csv", "go,went\nsee,saw\n")
	if err := ImportFile(context.Background(), src, opts...); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := Export(context.Background(), "", opts...); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"Verbs": [`) {
		t.Errorf("export = %s", out.String())
	}
}

func TestCommands_Errors(t *testing.T) {
	cfg := testConfig(t, "file")
	opts := []Option{WithConfig(cfg), WithOutput(&bytes.Buffer{})}
	ctx := context.Background()

	if err := Export(ctx, "", opts...); !errors.Is(err, apperr.ErrNothingToExport) {
		t.Errorf("empty export err = %v", err)
	}
	bad := writeFile(t, "bad.json", `{"Bad":"not an array"}`)
	if err := ImportFile(ctx, bad, opts...); !errors.Is(err, apperr.ErrNoValidSets) {
		t.Errorf("bad import err = %v", err)
	}
	if err := ImportFile(ctx, filepath.Join(t.TempDir(), "missing.json"), opts...); err == nil {
		t.Error("expected error for missing file")
	}
	if err := ListSets(ctx); err == nil {
		t.Error("expected error without config")
	}
}

func TestHTTPHandler_HealthAndAPI(t *testing.T) {
	cfg := testConfig(t, "file")
	lib, err := openLibrary(cfg, testutil.TestLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()
	broker := sse.NewBroker(100 * time.Millisecond)
	defer broker.Close()

	h := newHTTPHandler(cfg, lib.ctrl, broker)
	for _, path := range []string{"/health/live", "/health/ready", "/api/sets", "/api/session"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, w.Code)
		}
	}
}

func TestHTTPHandler_TokenAuthSparesHealth(t *testing.T) {
	cfg := testConfig(t, "file")
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "secret"}
	lib, err := openLibrary(cfg, testutil.TestLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()
	broker := sse.NewBroker(100 * time.Millisecond)
	defer broker.Close()

	h := newHTTPHandler(cfg, lib.ctrl, broker)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health = %d", w.Code)
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sets", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("api without token = %d", w.Code)
	}
}

func TestReloadAfterExternalChange(t *testing.T) {
	cfg := testConfig(t, "file")
	lib, err := openLibrary(cfg, testutil.TestLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()
	broker := sse.NewBroker(10 * time.Millisecond)
	defer broker.Close()
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	testutil.PutDocument(t, lib.store, "studyCardSets", `{"Math":[{"question":"1+1","answer":"2","id":"a"}]}`)
	reloadAfterExternalChange(lib.ctrl, broker, testutil.TestLogger(), "studyCardSets")

	if s := lib.ctrl.Session(); s.SetName != "Math" || len(s.Cards) != 1 {
		t.Errorf("session = %+v", s)
	}

	var events []string
	deadline := time.After(time.Second)
	for len(events) < 2 {
		select {
		case msg := <-ch:
			events = append(events, string(msg))
		case <-deadline:
			t.Fatalf("events = %q", events)
		}
	}
	joined := strings.Join(events, "")
	if !strings.Contains(joined, "event: sets.updated") || !strings.Contains(joined, "event: session.updated") {
		t.Errorf("events = %q", events)
	}
}
