package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chatgw/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "chatgw",
	Short: "Conversational-AI reverse proxy",
	Long:  `chatgw forwards client calls to an upstream conversational-AI API, acquiring the session, sentinel, and challenge credentials the upstream demands so clients never have to.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
}

func initConfig() {
	config.Init(cfgFile)
}
