package configuration

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "FORMSYNC_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "modules", "catalog")
	requireMkdirAll(t, sub)
	chdir(t, sub)

	_ = os.Unsetenv("FORMSYNC_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("FORMSYNC_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("FORMSYNC_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded from repo root, got %q", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	c, err := Load([]string{".env"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(c.Unload)

	if c.Import.DocumentExt != ".pdf" {
		t.Fatalf("unexpected document ext: %q", c.Import.DocumentExt)
	}
	if c.Import.HeaderScanRows != 20 {
		t.Fatalf("unexpected header scan rows: %d", c.Import.HeaderScanRows)
	}
	if c.Import.SampleLimit != 30 {
		t.Fatalf("unexpected sample limit: %d", c.Import.SampleLimit)
	}
	if c.Database.Driver != "pgx" {
		t.Fatalf("unexpected driver: %q", c.Database.Driver)
	}
	if c.Logger() == nil {
		t.Fatalf("expected logger")
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("FORMSYNC_DOCUMENT_EXT", "pdf")
	if _, err := Load([]string{".env"}); err == nil {
		t.Fatalf("expected error for extension without leading dot")
	}

	t.Setenv("FORMSYNC_DOCUMENT_EXT", ".PDF")
	t.Setenv("DB_DRIVER", "mysql")
	if _, err := Load([]string{".env"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestLoad_NormalizesDocumentExt(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FORMSYNC_DOCUMENT_EXT", " .PDF ")

	c, err := Load([]string{".env"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(c.Unload)
	if c.Import.DocumentExt != ".pdf" {
		t.Fatalf("unexpected document ext: %q", c.Import.DocumentExt)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func requireMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
