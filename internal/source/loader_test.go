package source

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))
	return log
}

func TestLoadDirLexicographicOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "modules", "net"), 0o755))
	for _, name := range []string{"z.tf", "a.tf", "modules/net/vpc.tf", "notes.txt", "vars.tf.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("# x"), 0o644))
	}

	files, skipped, err := LoadDir(dir, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, skipped)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	// notes.txt is filtered out; the rest come back sorted.
	assert.Equal(t, []string{"a.tf", "modules/net/vpc.tf", "vars.tf.json", "z.tf"}, paths)

	// Re-walking is deterministic.
	again, _, err := LoadDir(dir, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, files, again)
}

func TestLoadDirSkipsTerraformCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".terraform", "modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".terraform", "modules", "cached.tf"), []byte("# x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"), []byte("# x"), 0o644))

	files, _, err := LoadDir(dir, discardLogger())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.tf", files[0].Path)
}

func TestLoadDirMissingRoot(t *testing.T) {
	_, _, err := LoadDir("/no/such/root", discardLogger())
	require.Error(t, err)

	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestLoadDirRootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.tf")
	require.NoError(t, os.WriteFile(path, []byte("# x"), 0o644))

	_, _, err := LoadDir(path, discardLogger())
	require.Error(t, err)

	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestLoadDirUnreadableFileIsSkipped(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"), []byte("# x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.tf"), []byte("# x"), 0o000))

	files, skipped, err := LoadDir(dir, discardLogger())
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Path, "secret.tf")
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestLoadArchive(t *testing.T) {
	data := buildZip(t, map[string]string{
		"infra/z.tf":  "# z",
		"infra/a.tf":  "# a",
		"README.md":   "ignored",
		"vars.tf.json": "{}",
	})

	files, skipped, err := LoadArchive(data, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, skipped)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"infra/a.tf", "infra/z.tf", "vars.tf.json"}, paths)
}

func TestLoadArchiveCorrupt(t *testing.T) {
	_, _, err := LoadArchive([]byte("definitely not a zip"), discardLogger())
	require.Error(t, err)

	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestLoadArchiveRejectsTraversal(t *testing.T) {
	data := buildZip(t, map[string]string{"../escape.tf": "# x"})

	_, _, err := LoadArchive(data, discardLogger())
	require.Error(t, err)

	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}
