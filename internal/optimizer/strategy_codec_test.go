package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omr-go/jitcore/internal/optimizer"
)

func TestCustomStrategyRoundTrip(t *testing.T) {
	raw := []int32{
		optimizer.EncodeCustomStrategyEntry(3, optimizer.IfLoops, false),
		optimizer.EncodeCustomStrategyEntry(7, optimizer.Always, true),
	}

	strategy, err := optimizer.DecodeCustomStrategy(raw)
	require.NoError(t, err)
	require.Len(t, strategy, 2)
	require.Equal(t, optimizer.OptID(3), strategy[0].OptID)
	require.Equal(t, optimizer.IfLoops, strategy[0].Guard)
	require.Equal(t, optimizer.PostFlagNone, strategy[0].PostFlag)
	require.Equal(t, optimizer.OptID(7), strategy[1].OptID)
	require.Equal(t, optimizer.PostFlagMustBeDone, strategy[1].PostFlag)
}

func TestDecodeCustomStrategyRefusesEmptyInput(t *testing.T) {
	_, err := optimizer.DecodeCustomStrategy(nil)
	require.ErrorIs(t, err, optimizer.ErrInvalidStrategy)
}

func TestCustomStrategyMsgpackRoundTrip(t *testing.T) {
	raw := []int32{optimizer.EncodeCustomStrategyEntry(1, optimizer.IfEnabled, true)}

	data, err := optimizer.EncodeCustomStrategyMsgpack(raw)
	require.NoError(t, err)

	strategy, err := optimizer.DecodeCustomStrategyMsgpack(data)
	require.NoError(t, err)
	require.Len(t, strategy, 1)
	require.Equal(t, optimizer.OptID(1), strategy[0].OptID)
	require.Equal(t, optimizer.IfEnabled, strategy[0].Guard)
}

func TestDecodeCustomStrategyMsgpackRejectsGarbage(t *testing.T) {
	_, err := optimizer.DecodeCustomStrategyMsgpack([]byte{0xff, 0x00, 0x01})
	require.Error(t, err)
}
