// Interactive frame decoder and manual device.
package main

import (
	"flag"
	"os"

	clihelp "github.com/temoto/topsail/helpers/cli"
)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	connect := cmdline.String("connect", "", "dial gateway host:port on start")
	_ = cmdline.Parse(os.Args[1:])

	c := newCli(os.Stdout)
	if *connect != "" {
		c.exec("connect " + *connect)
	}
	if clihelp.IsInteractive() {
		c.exec("help")
	}
	clihelp.MainLoop("topsail-cli", c.exec, c.completer, c.close)
}
