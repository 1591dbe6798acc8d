package bulkimport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagingRoundTrip(t *testing.T) {
	staging := NewStaging(time.Minute)
	rows := makeRows(2)

	handle := staging.Stage(rows)
	require.NotEmpty(t, handle)

	got, found := staging.Fetch(handle)
	require.True(t, found)
	assert.Equal(t, rows, got)
}

func TestStagingUnknownHandle(t *testing.T) {
	staging := NewStaging(time.Minute)

	_, found := staging.Fetch("no-such-handle")

	assert.False(t, found)
}

func TestStagingDiscard(t *testing.T) {
	staging := NewStaging(time.Minute)
	handle := staging.Stage(makeRows(1))

	staging.Discard(handle)

	_, found := staging.Fetch(handle)
	assert.False(t, found)
}
