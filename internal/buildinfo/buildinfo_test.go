package buildinfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBuildData(t *testing.T) {
	Version, Date, Commit = "v1.0.0", "2026-10-01", "abc123"
	t.Cleanup(func() { Version, Date, Commit = "N/A", "N/A", "N/A" })

	var buf bytes.Buffer
	PrintBuildData(&buf)

	assert.Equal(t, "Build version: v1.0.0\nBuild date: 2026-10-01\nBuild commit: abc123\n", buf.String())
}
