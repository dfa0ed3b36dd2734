package state

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/topsail/devicenet"
	"github.com/temoto/topsail/log2"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, *Config)
		expectErr string
	}
	cases := []Case{
		{"empty", "", func(t testing.TB, c *Config) {
			opts, err := c.Device.ListenOptions()
			require.NoError(t, err)
			require.Len(t, opts, 1)
			assert.Equal(t, "", opts[0].URL)
			assert.Equal(t, devicenet.FramingLine, opts[0].Framing)
			assert.Equal(t, devicenet.DefaultNetworkTimeout, opts[0].NetworkTimeout)
			assert.Equal(t, time.Duration(0), opts[0].IdleTimeout)
			d, err := c.Device.Decoder()
			require.NoError(t, err)
			assert.Equal(t, time.UTC, d.Location())
			assert.False(t, c.Tele.Enabled)
		}, ""},

		{"device", `
device {
	listen = ["tcp://127.0.0.1:5555", "tcp://[::1]:5555"]
	framing = "header"
	max_frame = 512
	ack_policy = "suppress"
	timezone = "Asia/Shanghai"
	idle_timeout_sec = 600
	network_timeout_sec = 5
}
debug = true`,
			func(t testing.TB, c *Config) {
				assert.True(t, c.Debug)
				opts, err := c.Device.ListenOptions()
				require.NoError(t, err)
				require.Len(t, opts, 2)
				assert.Equal(t, "tcp://[::1]:5555", opts[1].URL)
				assert.Equal(t, devicenet.FramingHeader, opts[0].Framing)
				assert.Equal(t, 512, opts[0].MaxFrame)
				assert.Equal(t, 10*time.Minute, opts[0].IdleTimeout)
				assert.Equal(t, 5*time.Second, opts[0].NetworkTimeout)
				d, err := c.Device.Decoder()
				require.NoError(t, err)
				assert.Equal(t, "Asia/Shanghai", d.Location().String())
			}, ""},

		{"tele", `
tele {
	enable = true
	transport = "paho"
	mqtt_broker = "tls://thingsboard.local:8883"
	mqtt_username = "token"
	format = "record"
	topic = "site/{device_id}"
	keepalive_sec = 30
}
persist { root = "/var/lib/topsail" }
stat { persist_sec = 15 }
monitor { listen = "127.0.0.1:8080" }`,
			func(t testing.TB, c *Config) {
				assert.True(t, c.Tele.Enabled)
				assert.Equal(t, "paho", c.Tele.Transport)
				assert.Equal(t, "tls://thingsboard.local:8883", c.Tele.MqttBroker)
				assert.Equal(t, "token", c.Tele.MqttUsername)
				assert.Equal(t, "record", c.Tele.Format)
				assert.Equal(t, 30, c.Tele.KeepaliveSec)
				assert.Equal(t, "/var/lib/topsail", c.Persist.Root)
				assert.Equal(t, 15, c.Stat.PersistSec)
				assert.Equal(t, "127.0.0.1:8080", c.Monitor.Listen)
			}, ""},

		{"include-normalize", `
debug = true
include "./empty" {}`,
			nil, ""},

		{"include-optional", `
include "framing-header" {}
include "non-exist" { optional = true }`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "header", c.Device.Framing)
			}, ""},

		{"include-overwrites", `
device { framing = "line" }
include "framing-header" {}`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "header", c.Device.Framing)
			}, ""},

		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
		{"error-include-required", `include "non-exist" {}`, nil, "config required name=non-exist"},
		{"error-framing", `device { framing = "xml" }`, nil, "config device.framing"},
		{"error-ack-policy", `device { ack_policy = "never" }`, nil, "config device.ack_policy"},
		{"error-timezone", `device { timezone = "Mars/Olympus" }`, nil, "config device.timezone=Mars/Olympus"},
		{"error-max-frame", `device { max_frame = -1 }`, nil, "max_frame=-1"},
		{"error-tele-broker", `tele { enable = true }`, nil, "empty mqtt_broker"},
		{"error-tls", `device { tls_cert_file = "/non-exist.pem" }`, nil, "config device.tls_cert_file"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			t.Parallel()
			log := log2.NewTest(t, log2.LDebug)
			fs := NewMockFullReader(map[string]string{
				"test-inline":    c.input,
				"empty":          "",
				"framing-header": `device { framing = "header" }`,
				"include-loop":   `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, cfg)
				}
			} else {
				require.Error(t, err)
				if !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		t.Run(c.name, mkCheck(c))
	}
}
