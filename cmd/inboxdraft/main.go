package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quailyquaily/inboxdraft/cmd/inboxdraft/runcmd"
	"github.com/quailyquaily/inboxdraft/cmd/inboxdraft/triagecmd"
	"github.com/quailyquaily/inboxdraft/internal/config"
)

var version = "dev"

func main() {
	if err := newRootCmd(config.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var configPath, envFile string
	root := &cobra.Command{
		Use:           "inboxdraft",
		Short:         "Draft replies to email notifications posted in Slack",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			return config.ReadFile(v, configPath)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text, json, auto")
	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("logging.format", flags.Lookup("log-format"))

	root.AddCommand(runcmd.NewCommand(v, version))
	root.AddCommand(triagecmd.NewCommand())
	return root
}
