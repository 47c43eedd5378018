package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store/memory"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func TestHeartbeat(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedRegistry(t, st, "D1")
	clk := newClock()
	hb := service.NewHeartbeatService(service.NewDeviceRegistry(st, clk.Now), nil)

	t.Run("known device refreshes snapshot", func(t *testing.T) {
		clk.Advance(time.Minute)
		resp, err := hb.Record(ctx, types.HeartbeatRequest{DeviceID: " D1 ", FirmwareVersion: "1.4.2"})
		require.NoError(t, err)
		assert.True(t, resp.OK)
		assert.True(t, resp.Known)
		assert.Equal(t, "D1", resp.DeviceID)
		assert.False(t, resp.RegistrationMode)
		assert.Equal(t, clk.Now().Format(time.RFC3339Nano), resp.ServerTime)

		d, err := st.GetDevice(ctx, "D1")
		require.NoError(t, err)
		assert.Equal(t, "1.4.2", d.FirmwareVersion)
		require.NotNil(t, d.LastSeenAt)
		assert.True(t, d.LastSeenAt.Equal(clk.Now()))
	})

	t.Run("mode is echoed", func(t *testing.T) {
		_, err := st.SetRegistrationMode(ctx, "D1", true, clk.Now())
		require.NoError(t, err)
		resp, err := hb.Record(ctx, types.HeartbeatRequest{DeviceID: "D1"})
		require.NoError(t, err)
		assert.True(t, resp.RegistrationMode)

		d, err := st.GetDevice(ctx, "D1")
		require.NoError(t, err)
		assert.Equal(t, "1.4.2", d.FirmwareVersion, "empty firmware keeps the stored value")
	})

	t.Run("unknown device", func(t *testing.T) {
		resp, err := hb.Record(ctx, types.HeartbeatRequest{DeviceID: "stranger"})
		require.NoError(t, err)
		assert.True(t, resp.OK)
		assert.False(t, resp.Known)
		assert.False(t, resp.RegistrationMode)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := hb.Record(ctx, types.HeartbeatRequest{})
		assert.ErrorIs(t, err, service.ErrInvalidDeviceID)
	})
}
