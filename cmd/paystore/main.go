package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	cmd := newRootCommand()
	// glog flags are parsed by cobra through pflag
	_ = flag.CommandLine.Parse([]string{})
	defer glog.Flush()

	if err := cmd.Execute(); err != nil {
		glog.Fatalln(err)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "paystore",
		Short: "In-app purchase lifecycle daemon",
		Long: `paystore initiates in-app purchases against the platform payment queue,
keeps a durable record of every order and reconciles transaction events
until each receipt has been handed over for server-side verification.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(
		newServeCommand(&configPath),
		newOrdersCommand(&configPath),
		newRestoreCommand(&configPath),
		newHistoryCommand(&configPath),
	)
	return cmd
}
