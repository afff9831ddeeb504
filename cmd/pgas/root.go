package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-pgas/internal/util/logger"
)

var log = logger.Logger("cmd")

// rootOptions 全局参数
type rootOptions struct {
	logLevel string
}

// newRootCommand 创建根命令
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pgas",
		Short: "PGAS runtime tools",
		Long:  "Rendezvous service and in-process job runner for the pgas runtime.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logLevel == "" {
				return nil
			}
			level, ok := logger.ParseLevel(opts.logLevel)
			if !ok {
				return fmt.Errorf("invalid log level %q", opts.logLevel)
			}
			logger.SetGlobalLevel(level)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newRunCommand())
	return cmd
}
