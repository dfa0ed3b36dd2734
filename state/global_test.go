package state

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/topsail/log2"
	"github.com/temoto/topsail/protocol"
	"github.com/temoto/topsail/protocol/prototest"
)

func testGlobal(t testing.TB, conf string) (context.Context, *Global) {
	log := log2.NewTest(t, log2.LDebug)
	fs := NewMockFullReader(map[string]string{"test-inline": conf})
	ctx, g := NewContext(log, nil)
	g.MustInit(ctx, MustReadConfig(log, fs, "test-inline"))
	return ctx, g
}

func TestGlobalRun(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	conf := fmt.Sprintf(`
device { listen = ["tcp://127.0.0.1:0"] }
persist { root = "%s" }
monitor { listen = "127.0.0.1:0" }
debug = true`, root)
	ctx, g := testGlobal(t, conf)
	require.NoError(t, g.Run(ctx))
	assert.Equal(t, g, GetGlobal(ctx))

	addrs := g.Server.Addrs()
	require.Len(t, addrs, 1)
	conn, err := net.DialTimeout("tcp", addrs[0], 5*time.Second)
	require.NoError(t, err)
	_, err = conn.Write(append(append([]byte{}, prototest.SimReporting...), '\n'))
	require.NoError(t, err)
	ack := make([]byte, protocol.AckSize)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = io.ReadFull(conn, ack)
	require.NoError(t, err)
	assert.Equal(t, protocol.AckMagic(), ack[:len(protocol.AckMagic())])
	_ = conn.Close()

	// tele disabled
	require.Eventually(t, func() bool { return g.Server.Stat().ForwardDropped.Value() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(0), g.Server.Stat().Forwarded.Value())
	assert.Equal(t, int64(1), g.Tele.Stat().Dropped.Value())

	resp, err := http.Get("http://" + g.Monitor.Addr() + "/debug/vars")
	require.NoError(t, err)
	b, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"devicenet": {`)
	assert.Contains(t, string(b), `"tele": {`)

	g.Stop()

	// counters survive restart
	_, g2 := testGlobal(t, conf)
	defer g2.Stop()
	assert.Equal(t, int64(1), g2.Server.Stat().Reporting.Value())
	assert.Equal(t, int64(1), g2.Server.Stat().ForwardDropped.Value())
}

func TestGlobalStatPersistDisabled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, g := testGlobal(t, fmt.Sprintf(`persist { root = "%s" }
stat { persist_sec = -1 }`, root))
	defer g.Stop()
	assert.False(t, g.StatPersist.Enabled())
	assert.Nil(t, g.Monitor)
}

func TestGetGlobalPanic(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { GetGlobal(context.Background()) })
}
