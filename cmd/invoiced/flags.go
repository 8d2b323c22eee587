package main

import (
	"fmt"

	flag "github.com/spf13/pflag"
)

// serverFlags holds the command-line overrides for invoiced.
type serverFlags struct {
	config  string
	host    string
	port    int
	verbose bool
	version bool
}

// parseFlags parses the command line. CLI values override the config file,
// which in turn overrides the built-in defaults.
func parseFlags(args []string) (serverFlags, error) {
	var flags serverFlags

	fs := flag.NewFlagSet("invoiced", flag.ContinueOnError)
	fs.StringVarP(&flags.config, "config", "c", "", "config file name or path (default: invoiced.yaml)")
	fs.StringVar(&flags.host, "host", "", "bind address (overrides config)")
	fs.IntVarP(&flags.port, "port", "p", 0, "listen port (overrides config)")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	fs.BoolVar(&flags.version, "version", false, "print version and exit")

	if err := fs.Parse(args[1:]); err != nil {
		return serverFlags{}, fmt.Errorf("parsing flags: %w", err)
	}
	return flags, nil
}
