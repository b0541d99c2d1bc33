package imogen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLog_DisabledWithEmptyDir(t *testing.T) {
	var l, err = NewEventLog("", "")
	require.NoError(t, err)

	require.NoError(t, l.Write("in", TimedEvent{Kind: EventNoteOn, Note: 60, Velocity: 100}))
	require.NoError(t, l.Close())
}

func TestEventLog_CreatesDirectoryAndWritesHeader(t *testing.T) {
	var dir = filepath.Join(t.TempDir(), "logs")

	var l, err = NewEventLog(dir, "events-%Y%m%d.csv")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	require.NoError(t, l.Write("in", TimedEvent{Kind: EventNoteOn, Note: 60, Velocity: 100}))

	var entries, readErr = os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Len(t, entries, 1)

	var content, fileErr = os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, fileErr)

	assert.Contains(t, string(content), "utime,isotime,direction,kind,note,velocity,value,controller,ccvalue")
	assert.Contains(t, string(content), "in,")
}

func TestEventLog_RejectsNonDirectory(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	var _, err = NewEventLog(path, "events-%Y%m%d.csv")
	require.Error(t, err)
}
