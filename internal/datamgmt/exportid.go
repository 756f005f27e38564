package datamgmt

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// ExportDateLayout is the metadata.exportDate format: ISO-8601 UTC with
// milliseconds.
const ExportDateLayout = "2006-01-02T15:04:05.000Z07:00"

// IDGenerator produces export ids.
type IDGenerator func(now time.Time) string

// DefaultExportID returns "<unix millis base 36>-<6 random base-36 chars>".
// Ids sort by creation time; they are not UUIDs.
func DefaultExportID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + randomBase36(6)
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("datamgmt: crypto/rand failed: " + err.Error())
	}
	var sb strings.Builder
	sb.Grow(n)
	for _, b := range buf {
		sb.WriteByte(base36[int(b)%len(base36)])
	}
	return sb.String()
}

// ExportFilename returns the download name of a snapshot exported at t.
func ExportFilename(t time.Time) string {
	stamp := t.UTC().Format(ExportDateLayout)
	return "character-data-" + strings.ReplaceAll(stamp, ":", "-") + ".json"
}

// SnapshotFilename names a download after its metadata.exportDate, falling
// back to fallback when the date cannot be parsed.
func SnapshotFilename(exportDate string, fallback time.Time) string {
	t, err := time.Parse(ExportDateLayout, exportDate)
	if err != nil {
		t = fallback
	}
	return ExportFilename(t)
}
