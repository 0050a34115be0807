package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var flags struct {
	configPath string
	mock       bool
	env        string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:           "dpd",
	Short:         "DPD Poland courier client - packages, labels, pickups, tracking and parcel shops",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML configuration file overriding DPD_* environment variables")
	pf.BoolVar(&flags.mock, "mock", false, "answer from canned in-memory responses instead of DPD")
	pf.StringVar(&flags.env, "env", "", "DPD environment: demo or production")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
}
