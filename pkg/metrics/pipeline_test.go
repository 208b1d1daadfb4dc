package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	ObserveDocuments("created", false, 2)
	ObserveRun("ok", false, 150*time.Millisecond)
	ObserveRename("PLANNED")

	path := filepath.Join(t.TempDir(), "formsync.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	require.True(t, strings.Contains(out, `formsync_documents_total{category="created",mode="apply"}`), out)
	require.True(t, strings.Contains(out, "formsync_run_duration_seconds"), out)
	require.True(t, strings.Contains(out, `formsync_renames_total{status="PLANNED"}`), out)
}

func TestWriteTextfile_EmptyPath(t *testing.T) {
	require.NoError(t, WriteTextfile(""))
}
