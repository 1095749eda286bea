package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityOrderingConvention(t *testing.T) {
	require.Less(t, int32(PriorityRealtime), int32(PriorityHigh))
	require.Less(t, int32(PriorityHigh), int32(PriorityNormal))
	require.Less(t, int32(PriorityNormal), int32(PriorityLow))
	require.Less(t, int32(PriorityLow), int32(PriorityIdle))
}

func TestPriorityString(t *testing.T) {
	require.Equal(t, "Idle", PriorityIdle.String())
	require.Equal(t, "Low", PriorityLow.String())
	require.Equal(t, "Normal", PriorityNormal.String())
	require.Equal(t, "High", PriorityHigh.String())
	require.Equal(t, "Realtime", PriorityRealtime.String())
	require.Equal(t, "Priority(42)", Priority(42).String())
}

func TestTimeoutSentinels(t *testing.T) {
	require.Equal(t, Timeout(0), Immediate)
	require.Equal(t, ^Timeout(0), Infinite)
}
