package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"

	"daily-app/internal/api"
	"daily-app/internal/storage"
	"daily-app/internal/tasklist"
	"daily-app/internal/testutil"
)

type harness struct {
	server    *httptest.Server
	token     string
	prefsPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(dir, "daily.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	secret := []byte("cli-secret")
	logger, _ := test.NewNullLogger()
	e := echo.New()
	api.Register(e, db, api.NewTestAuth(secret), nil, logger)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	token, err := testutil.TestToken(secret, "cli-user")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return &harness{server: srv, token: token, prefsPath: filepath.Join(dir, "prefs.toml")}
}

func (h *harness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd(&App{Fade: time.Millisecond})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--server", h.server.URL, "--token", h.token, "--prefs", h.prefsPath}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestAddListDone(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run(t, "list")
	if err != nil || !strings.Contains(out, "Nothing left for today.") {
		t.Fatalf("expected empty list, got %q, %v", out, err)
	}

	out, _, err = h.run(t, "add", "Buy", "milk")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "Task added: Buy milk") {
		t.Fatalf("unexpected add output %q", out)
	}

	out, _, err = h.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one task, got %q", out)
	}
	id, title, found := strings.Cut(lines[0], "\t")
	if !found || id == "" || title != "Buy milk" {
		t.Fatalf("unexpected list line %q", lines[0])
	}

	out, _, err = h.run(t, "done", id)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if !strings.Contains(out, "Task completed: Buy milk") {
		t.Fatalf("unexpected done output %q", out)
	}

	out, _, _ = h.run(t, "list")
	if !strings.Contains(out, "Nothing left for today.") {
		t.Fatalf("expected completed task gone, got %q", out)
	}

	if _, _, err := h.run(t, "done", id); err == nil {
		t.Fatalf("expected completing a missing task to fail")
	}
}

func TestAddBlankTitleFails(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.run(t, "add", "   "); err == nil || !strings.Contains(err.Error(), "blank") {
		t.Fatalf("expected blank title error, got %v", err)
	}
}

func TestUnauthenticatedLoadFails(t *testing.T) {
	h := newHarness(t)
	h.token = ""
	_, _, err := h.run(t, "list")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestPreferenceCommands(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run(t, "pref", "set", "theme", "paper")
	if err != nil || !strings.Contains(out, "theme set to paper") {
		t.Fatalf("set: %q, %v", out, err)
	}
	out, _, err = h.run(t, "pref", "get", "theme")
	if err != nil || strings.TrimSpace(out) != "paper" {
		t.Fatalf("expected paper, got %q, %v", out, err)
	}

	out, _, err = h.run(t, "panel")
	if err != nil {
		t.Fatalf("panel: %v", err)
	}
	if !strings.Contains(out, "(•) Paper") || !strings.Contains(out, "(•) Auto") {
		t.Fatalf("expected stored selections on the panel, got %q", out)
	}

	if _, _, err := h.run(t, "pref", "clear", "theme"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out, _, _ = h.run(t, "pref", "get", "theme")
	if !strings.Contains(out, "(default)") {
		t.Fatalf("expected default after clear, got %q", out)
	}

	if _, _, err := h.run(t, "pref", "set", "theme", "neon"); err == nil {
		t.Fatalf("expected unknown value to fail")
	}
	if _, _, err := h.run(t, "pref", "set", "font", "serif"); err == nil {
		t.Fatalf("expected unknown preference to fail")
	}
}

func TestAlertPresenter(t *testing.T) {
	var buf bytes.Buffer
	p := newAlertPresenter(&buf)

	p.Present(context.Background(), tasklist.Result{Op: tasklist.OpSave, Outcome: tasklist.Succeeded, Status: 200})
	if buf.Len() != 0 || p.Err() != nil {
		t.Fatalf("success must not alert")
	}

	p.Present(context.Background(), tasklist.Result{Op: tasklist.OpSave, Outcome: tasklist.Rejected, Status: 500})
	if !strings.Contains(buf.String(), "500") {
		t.Fatalf("expected alert mentioning 500, got %q", buf.String())
	}
	if p.Err() == nil || !strings.Contains(p.Err().Error(), "500") {
		t.Fatalf("expected error mentioning 500, got %v", p.Err())
	}
}
