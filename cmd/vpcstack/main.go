package main

import (
	"context"
	"os"
	"os/signal"

	clicommon "github.com/klothoplatform/vpcstack/pkg/cli_common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var common clicommon.CommonConfig
	root := newRootCmd(&common)
	err := root.ExecuteContext(ctx)
	if err != nil {
		zap.S().Errorf("%+v", err)
	}
	if err != nil || common.Tracker.HadErrors.Load() {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(common *clicommon.CommonConfig) *cobra.Command {
	root := &cobra.Command{
		Use:           "vpcstack",
		Short:         "Declare a VPC with its subnets and security groups, and synthesize it for deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	clicommon.SetupRoot(root, common)

	cfgFlags := &configFlags{}
	addConfigFlags(root.PersistentFlags(), cfgFlags)

	root.AddCommand(
		synthCmd(cfgFlags),
		validateCmd(cfgFlags),
		graphCmd(cfgFlags),
		describeCmd(cfgFlags),
		diffCmd(cfgFlags),
	)
	return root
}
