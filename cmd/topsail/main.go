package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/topsail/cmd/topsail/subcmd"
	"github.com/temoto/topsail/log2"
	"github.com/temoto/topsail/state"
)

var log = log2.NewStderr(log2.LDebug)

var modules = []subcmd.Mod{
	{Name: "run", Usage: "accept device connections and forward telemetry", Main: runMain},
	{Name: "check", Usage: "validate config and exit", Main: checkMain},
}

func main() {
	flagset := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := flagset.String("config", state.DefaultConfigName, "")
	flagset.Usage = func() {
		fmt.Fprintf(flagset.Output(), "Usage: %s [option...] [command]\n\nOptions:\n", os.Args[0])
		flagset.PrintDefaults()
		fmt.Fprintf(flagset.Output(), "\nCommands:\n")
		for _, m := range modules {
			fmt.Fprintf(flagset.Output(), "  %-8s %s\n", m.Name, m.Usage)
		}
	}
	_ = flagset.Parse(os.Args[1:])

	if subcmd.SdNotify("STATUS=start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	command := flagset.Arg(0)
	if command == "" {
		command = "run"
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		flagset.Usage()
		log.Fatal(err)
	}

	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	log.Debugf("config=%+v", config)

	ctx := context.Background()
	if err := mod.Main(ctx, config); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}

func checkMain(ctx context.Context, config *state.Config) error {
	opts, err := config.Device.ListenOptions()
	if err != nil {
		return err
	}
	for _, o := range opts {
		log.Infof("device listen=%s framing=%s max_frame=%d", o.URL, o.Framing, o.MaxFrame)
	}
	log.Infof("tele enable=%t transport=%s format=%s", config.Tele.Enabled, config.Tele.Transport, config.Tele.Format)
	log.Infof("config ok")
	return nil
}

func runMain(ctx context.Context, config *state.Config) error {
	ctx, g := state.NewContext(log, nil)
	if err := g.Init(ctx, config); err != nil {
		return errors.Annotate(err, "init")
	}
	if err := g.Run(ctx); err != nil {
		g.Stop()
		return errors.Annotate(err, "run")
	}
	subcmd.SdNotify(daemon.SdNotifyReady)

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	select {
	case sig := <-sigch:
		log.Infof("received signal=%v, stopping", sig)
	case <-g.Alive.StopChan():
		log.Errorf("device server stopped unexpectedly")
	}
	subcmd.SdNotify("STOPPING=1")
	g.Stop()
	st := g.Server.Stat()
	log.Infof("stopped processed=%d forwarded=%d", st.Processed(), st.Forwarded.Value())
	return nil
}
