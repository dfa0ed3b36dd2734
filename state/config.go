package state

import (
	"crypto/tls"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/topsail/devicenet"
	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/log2"
	"github.com/temoto/topsail/protocol"
	tele_config "github.com/temoto/topsail/tele/config"
)

const (
	DefaultConfigName     = "topsail.hcl"
	DefaultPersistRoot    = "./tmp-topsail-db"
	DefaultStatPersistSec = 60
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Device  DeviceConfig `hcl:"device"`
	Debug   bool         `hcl:"debug"` // log every decoded message and forwarding outcome
	Persist struct {
		Root string `hcl:"root"`
	}
	Stat struct {
		PersistSec int `hcl:"persist_sec"` // negative disables
	}
	Monitor struct {
		Listen string `hcl:"listen"` // empty disables
	}
	Tele tele_config.Config

	_copy_guard sync.Mutex //nolint:unused
}

type DeviceConfig struct { //nolint:maligned
	Listen            []string `hcl:"listen"`
	Framing           string   `hcl:"framing"` // line (default) or header
	MaxFrame          int      `hcl:"max_frame"`
	AckPolicy         string   `hcl:"ack_policy"` // always (default) or suppress
	Timezone          string   `hcl:"timezone"`   // device clock zone, default UTC
	IdleTimeoutSec    int      `hcl:"idle_timeout_sec"`
	NetworkTimeoutSec int      `hcl:"network_timeout_sec"`
	TlsCertFile       string   `hcl:"tls_cert_file"`
	TlsKeyFile        string   `hcl:"tls_key_file"`
	LogDebug          bool     `hcl:"log_debug"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// Decoder interprets device timestamps in configured zone.
func (dc *DeviceConfig) Decoder() (protocol.Decoder, error) {
	if dc.Timezone == "" {
		return protocol.NewDecoder(time.UTC), nil
	}
	loc, err := time.LoadLocation(dc.Timezone)
	if err != nil {
		return protocol.Decoder{}, errors.Annotatef(err, "config device.timezone=%s", dc.Timezone)
	}
	return protocol.NewDecoder(loc), nil
}

func (dc *DeviceConfig) ListenOptions() ([]devicenet.ListenOptions, error) {
	framing, err := devicenet.ParseFraming(dc.Framing)
	if err != nil {
		return nil, errors.Annotate(err, "config device.framing")
	}
	if dc.MaxFrame < 0 {
		return nil, errors.NotValidf("config device.max_frame=%d", dc.MaxFrame)
	}
	var tlsconf *tls.Config
	if dc.TlsCertFile != "" || dc.TlsKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(dc.TlsCertFile, dc.TlsKeyFile)
		if err != nil {
			return nil, errors.Annotate(err, "config device.tls_cert_file")
		}
		tlsconf = &tls.Config{Certificates: []tls.Certificate{cert}}
	}
	urls := dc.Listen
	if len(urls) == 0 {
		// server warns about default
		urls = []string{""}
	}
	opts := make([]devicenet.ListenOptions, len(urls))
	for i, u := range urls {
		opts[i] = devicenet.ListenOptions{
			URL:            u,
			TLS:            tlsconf,
			Framing:        framing,
			MaxFrame:       dc.MaxFrame,
			NetworkTimeout: helpers.IntSecondDefault(dc.NetworkTimeoutSec, devicenet.DefaultNetworkTimeout),
			IdleTimeout:    helpers.IntSecondDefault(dc.IdleTimeoutSec, 0),
		}
	}
	return opts, nil
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// validate checks values that would otherwise fail late, inside running services.
func (c *Config) validate() error {
	errs := make([]error, 0, 4)
	if _, err := c.Device.ListenOptions(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Device.Decoder(); err != nil {
		errs = append(errs, err)
	}
	if _, err := devicenet.ParseAckPolicy(c.Device.AckPolicy); err != nil {
		errs = append(errs, errors.Annotate(err, "config device.ack_policy"))
	}
	if c.Tele.Enabled && c.Tele.MqttBroker == "" {
		errs = append(errs, errors.NotValidf("config tele.enable=true with empty mqtt_broker"))
	}
	return helpers.FoldErrors(errs)
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	if len(errs) == 0 {
		if err := c.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
