package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/voglhofer/icebox/internal/stats"
)

func TestCompletionSummary(t *testing.T) {
	snap := stats.Snapshot{
		EntriesScanned: 120033,
		FilesMoved:     48917,
		FilesSkipped:   71104,
		BytesMoved:     2 * 1024 * 1024 * 1024,
		Elapsed:        3*time.Minute + 17*time.Second,
	}

	s := completionSummary(snap)
	assert.Contains(t, s, "done ✓")
	assert.Contains(t, s, "moved 48,917")
	assert.Contains(t, s, "size 2.0 GiB")
	assert.Contains(t, s, "scanned 120,033")
	assert.Contains(t, s, "skipped 71,104")
	assert.Contains(t, s, "time 3m 17s")
	assert.Contains(t, s, "errors 0")
	assert.NotContains(t, s, "scan errors")
}

func TestCompletionSummaryFailures(t *testing.T) {
	snap := stats.Snapshot{FilesMoved: 1, FilesFailed: 2, ScanErrors: 3}

	s := completionSummary(snap)
	assert.Contains(t, s, "done ✗")
	assert.Contains(t, s, "errors 2")
	assert.Contains(t, s, "scan errors 3")
}

func TestOwnerTable(t *testing.T) {
	var buf bytes.Buffer
	OwnerTable(&buf, stats.Snapshot{
		Owners: []stats.OwnerTally{
			{UID: 0, Moved: 2, Bytes: 4096},
			{UID: 1000, Moved: 48917, Bytes: 2 * 1024 * 1024, Failed: 1},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "UID")
	assert.Contains(t, out, "1000")
	assert.Contains(t, out, "48,917")
	assert.Contains(t, out, "2.0 MiB")
}

func TestOwnerTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	OwnerTable(&buf, stats.Snapshot{})
	assert.Empty(t, buf.String())
}
