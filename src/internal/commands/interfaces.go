package commands

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"text/tabwriter"

	"golang.org/x/sys/unix"

	"github.com/maksimkurb/keen-connectivity/src/internal/connectivity"
	"github.com/maksimkurb/keen-connectivity/src/internal/log"
)

func CreateInterfacesCommand() *InterfacesCommand {
	gc := &InterfacesCommand{
		fs:       flag.NewFlagSet("interfaces", flag.ExitOnError),
		provider: connectivity.NetlinkInterfaceProvider{},
		out:      os.Stdout,
	}
	gc.fs.IntVar(&gc.Family, "family", 4, "Address family to list (4 or 6)")
	gc.fs.BoolVar(&gc.All, "all", false, "Include interfaces that are down and loopback interfaces")
	return gc
}

type InterfacesCommand struct {
	fs       *flag.FlagSet
	ctx      *AppContext
	provider connectivity.InterfaceProvider
	out      io.Writer

	Family int
	All    bool
}

func (g *InterfacesCommand) Name() string {
	return g.fs.Name()
}

func (g *InterfacesCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}
	if g.Family != 4 && g.Family != 6 {
		return fmt.Errorf("unsupported address family: %d (expected 4 or 6)", g.Family)
	}

	// stdout carries the table
	log.SetForceStdErr(true)
	return nil
}

func (g *InterfacesCommand) Run() error {
	family := unix.AF_INET
	if g.Family == 6 {
		family = unix.AF_INET6
	}

	required, excluded := net.FlagUp, net.FlagLoopback
	if g.All {
		required, excluded = 0, 0
	}

	addrs := connectivity.EnumerateInterfaces(g.provider, family, required, excluded)
	return formatInterfaces(g.out, addrs)
}

func formatInterfaces(w io.Writer, addrs []connectivity.InterfaceAddress) error {
	if len(addrs) == 0 {
		_, err := fmt.Fprintln(w, "No matching interfaces found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tINTERFACE\tADDRESS")
	for _, a := range addrs {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", a.Index, a.Name, a.Address)
	}
	return tw.Flush()
}
