package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/voglhofer/icebox/internal/stats"
)

// completionSummary builds a final summary line from a snapshot.
// Format: done ✓  moved 48,917  size 2.1 GiB  scanned 120,033  skipped 71,104  time 3m 17s  errors 0
func completionSummary(snap stats.Snapshot) string {
	icon := "✓"
	if snap.FilesFailed > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  moved %s  size %s  scanned %s  skipped %s  time %s  errors %d",
		icon,
		FormatCount(snap.FilesMoved),
		FormatBytes(snap.BytesMoved),
		FormatCount(snap.EntriesScanned),
		FormatCount(snap.FilesSkipped),
		FormatDuration(snap.Elapsed),
		snap.FilesFailed,
	)

	if snap.ScanErrors > 0 {
		base += fmt.Sprintf("  scan errors %d", snap.ScanErrors)
	}

	return base
}

// OwnerTable writes a per-owner breakdown of the run. Owners come out of
// the snapshot sorted by UID. Nothing is written when no owner was touched.
func OwnerTable(w io.Writer, snap stats.Snapshot) {
	if len(snap.Owners) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"UID", "Files", "Size", "Failed"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeaderAlignment(tablewriter.ALIGN_RIGHT)

	for _, o := range snap.Owners {
		table.Append([]string{
			strconv.FormatUint(uint64(o.UID), 10),
			FormatCount(o.Moved),
			FormatBytes(o.Bytes),
			strconv.FormatInt(o.Failed, 10),
		})
	}
	table.Render()
}
