package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renewal-bot/internal/browser"
	"renewal-bot/internal/browser/browsertest"
	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/models"
)

func writeList(t *testing.T, lines string) (listPath, processedPath string) {
	t.Helper()
	dir := t.TempDir()
	listPath = filepath.Join(dir, "ListsCompiled.txt")
	processedPath = filepath.Join(dir, "processed.txt")
	require.NoError(t, os.WriteFile(listPath, []byte(lines), 0o644))
	return listPath, processedPath
}

func TestFileSourceReadsRows(t *testing.T) {
	listPath, processedPath := writeList(t, "Maria Lopez\n\nJohn Q Public\nCher\n")

	src, err := NewFileSource(listPath, processedPath, 0, logger.NewTestLogger(t))
	require.NoError(t, err)

	rows, err := src.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Maria", rows[0].FirstName)
	assert.Equal(t, "Lopez", rows[0].LastName)
	assert.Equal(t, "John Q Public", rows[1].FullName)
	assert.Equal(t, "Q Public", rows[1].LastName)
	assert.Equal(t, "Cher", rows[2].FirstName)
	assert.Empty(t, rows[2].LastName)
	assert.Equal(t, models.StatusPending, rows[0].Status)
}

func TestFileSourceRetireSkipsOnNextRead(t *testing.T) {
	listPath, processedPath := writeList(t, "Maria Lopez\nJohn Public\n")

	src, err := NewFileSource(listPath, processedPath, 0, logger.NewTestLogger(t))
	require.NoError(t, err)

	rows, err := src.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, src.Retire(context.Background(), &rows[0]))

	// Same run: in-memory set skips the row.
	rows, err = src.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "John Public", rows[0].FullName)

	// Fresh instance: sidecar persists retirement.
	src2, err := NewFileSource(listPath, processedPath, 0, logger.NewTestLogger(t))
	require.NoError(t, err)
	rows, err = src2.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "John Public", rows[0].FullName)
}

func TestFileSourceMaxRows(t *testing.T) {
	listPath, processedPath := writeList(t, "A One\nB Two\nC Three\n")

	src, err := NewFileSource(listPath, processedPath, 2, logger.NewTestLogger(t))
	require.NoError(t, err)

	rows, err := src.Rows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestTableSourceReadsUntilEmptyRow(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	for i, name := range []string{"Maria Lopez", "John Public"} {
		driver.Add(&browsertest.FakeElement{
			Loc:       browser.Locator{Value: fmt.Sprintf(`//tbody/tr[%d]/td[2]`, i+1)},
			TextValue: name,
		})
	}

	src := NewTableSource(driver, logger.NewTestLogger(t), 10)
	rows, err := src.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].RowIndex)
	assert.Equal(t, "John Public", rows[1].FullName)
}

func TestTableSourceRetireHidesRow(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	src := NewTableSource(driver, logger.NewTestLogger(t), 10)

	client := &models.ClientRecord{RowIndex: 3, FullName: "Maria Lopez"}
	require.NoError(t, src.Retire(context.Background(), client))
	require.Len(t, driver.Scripts, 1)
	assert.Contains(t, driver.Scripts[0], "tbody tr:nth-child(3)")
	assert.Contains(t, driver.Scripts[0], "display = 'none'")
}
