package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveBytes(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	url, err := store.SaveBytes("invoice_INV-20250101-001.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/invoice_INV-20250101-001.pdf", url)

	content, err := os.ReadFile(filepath.Join(dir, "invoice_INV-20250101-001.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), content)
}

func TestSaveBytesDoesNotClobber(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "http://localhost:8080/uploads")
	require.NoError(t, err)

	first, err := store.SaveBytes("report.pdf", []byte("one"))
	require.NoError(t, err)
	second, err := store.SaveBytes("report.pdf", []byte("two"))
	require.NoError(t, err)
	third, err := store.SaveBytes("report.pdf", []byte("three"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/uploads/report.pdf", first)
	assert.Equal(t, "http://localhost:8080/uploads/report_1.pdf", second)
	assert.Equal(t, "http://localhost:8080/uploads/report_2.pdf", third)

	content, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), content)
}

func TestSaveBytesStripsPath(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "http://localhost:8080/uploads")
	require.NoError(t, err)

	url, err := store.SaveBytes("../../etc/passwd", []byte("nope"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/passwd", url)

	_, err = os.Stat(filepath.Join(dir, "passwd"))
	require.NoError(t, err)
}
