package state

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/topsail/devicenet"
	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/log2"
	"github.com/temoto/topsail/monitor"
	"github.com/temoto/topsail/state/persist"
	"github.com/temoto/topsail/tele"
)

// Global binds configured services of one gateway process.
type Global struct {
	Alive       *alive.Alive
	Config      *Config
	Log         *log2.Log
	Monitor     *monitor.Monitor // nil when monitor.listen is empty
	Server      *devicenet.Server
	Tele        *tele.Tele
	StatPersist persist.Persist
}

const ContextKey = "run/state-global"

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

func NewContext(log *log2.Log, teler *tele.Tele) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}
	g := &Global{
		Alive: alive.NewAlive(),
		Log:   log,
		Tele:  teler,
	}
	ctx := context.WithValue(context.Background(), ContextKey, g)
	return ctx, g
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg

	if g.Config.Persist.Root == "" {
		g.Config.Persist.Root = DefaultPersistRoot
		g.Log.Errorf("config: persist.root=empty changed=%s", g.Config.Persist.Root)
	}
	g.Log.Debugf("config: persist.root=%s", g.Config.Persist.Root)

	// forwarding must be ready before first device connects
	if g.Tele == nil {
		g.Tele = tele.New()
	}
	if g.Config.Tele.PersistPath == "" {
		g.Config.Tele.PersistPath = filepath.Join(g.Config.Persist.Root, "tele")
	}
	if err := g.Tele.Init(ctx, g.Log, g.Config.Tele); err != nil {
		return errors.Annotate(err, "tele init")
	}

	decoder, err := g.Config.Device.Decoder()
	if err != nil {
		return err
	}
	ackPolicy, err := devicenet.ParseAckPolicy(g.Config.Device.AckPolicy)
	if err != nil {
		return errors.Annotate(err, "config device.ack_policy")
	}
	deviceLog := g.Log.Clone(log2.LInfo)
	deviceLog.SetPrefix("device: ")
	if g.Config.Device.LogDebug || g.Config.Debug {
		deviceLog.SetLevel(log2.LDebug)
	}

	if g.Config.Monitor.Listen != "" {
		g.Monitor = monitor.New(g.Log)
	}
	g.Server = devicenet.NewServer(devicenet.ServerOptions{
		Log:       deviceLog,
		Decoder:   decoder,
		AckPolicy: ackPolicy,
		Debug:     g.Config.Debug,
		Forward:   g.Tele.Forward,
		OnEvent:   g.onEvent,
	})
	if g.Monitor != nil {
		g.Monitor.Publish("devicenet", g.Server.Stat())
		g.Monitor.Publish("tele", g.Tele.Stat())
	}

	{
		enabled := g.Config.Stat.PersistSec >= 0
		err := g.StatPersist.Init("stat", g.Server.Stat(), g.Config.Persist.Root, enabled, g.Log)
		if err == nil {
			err = g.StatPersist.Load()
		}
		if err != nil {
			// counters restart from zero, not fatal
			g.Error(err)
		}
	}
	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

// Run starts listeners and background stat persist.
func (g *Global) Run(ctx context.Context) error {
	opts, err := g.Config.Device.ListenOptions()
	if err != nil {
		return err
	}
	if err = g.Server.Listen(ctx, opts); err != nil {
		return errors.Annotate(err, "device listen")
	}
	// device server dying takes whole process down
	go helpers.AliveSub(g.Server.Alive(), g.Alive)
	if g.Monitor != nil {
		if err = g.Monitor.Listen(ctx, g.Config.Monitor.Listen); err != nil {
			return err
		}
	}
	if g.StatPersist.Enabled() {
		if !g.Alive.Add(1) {
			return errors.Errorf("Run after Stop")
		}
		go g.statPersistLoop()
	}
	g.Log.Infof("running listen=%v", g.Server.Addrs())
	return nil
}

// Stop closes services in reverse order of data flow and stores counters.
func (g *Global) Stop() {
	g.Alive.Stop()
	if g.Server != nil {
		g.Server.Close()
	}
	if g.Monitor != nil {
		g.Monitor.Close()
	}
	if g.Tele != nil {
		g.Tele.Close()
	}
	g.Alive.Wait()
	if g.Server != nil && g.StatPersist.Enabled() {
		if err := g.StatPersist.Store(); err != nil {
			g.Error(err)
		}
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Errorf(errors.ErrorStack(err))
	}
}

func (g *Global) onEvent(e *devicenet.Event) {
	if g.Monitor != nil {
		g.Monitor.OnEvent(e)
	}
}

func (g *Global) statPersistLoop() {
	defer g.Alive.Done()
	interval := helpers.IntSecondDefault(g.Config.Stat.PersistSec, DefaultStatPersistSec*time.Second)
	tmr := time.NewTicker(interval)
	defer tmr.Stop()
	stopch := g.Alive.StopChan()
	for {
		select {
		case <-tmr.C:
			if err := g.StatPersist.Store(); err != nil {
				g.Error(err)
			}
		case <-stopch:
			return
		}
	}
}
