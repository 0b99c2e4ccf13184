package main

import (
	"os"

	"luminaria-extractor/config"
	"luminaria-extractor/internal/logger"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "/config/config.yaml"

func main() {
	var configPath string
	var cfg *config.Config
	closeLog := func() {}

	rootCmd := &cobra.Command{
		Use:           "luminaria-extractor",
		Short:         "Extracts street light codes from labelled photos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env ist optional
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				log.Warnf("Failed to load .env file: %v", err)
			}

			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded

			closeLog, err = logger.Init(cfg.Log)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLog()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to the configuration file")

	rootCmd.AddCommand(
		serveCommand(func() *config.Config { return cfg }),
		extractCommand(func() *config.Config { return cfg }),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		closeLog()
		os.Exit(1)
	}
}
