package lock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefCount(t *testing.T) {
	var r RefCount
	require.Equal(t, int32(0), r.Get())

	require.Equal(t, int32(1), r.Inc())
	require.Equal(t, int32(2), r.Inc())
	require.False(t, r.Dec())
	require.True(t, r.Dec())
	require.Equal(t, "RefCount: 0", r.String())

	require.Panics(t, func() { r.Dec() })
}
