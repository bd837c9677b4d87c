package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chatgw/internal/arkose"
	"chatgw/internal/localapi"
	"chatgw/internal/pkg/logger"
	"chatgw/internal/proxy"
	"chatgw/internal/puid"
	"chatgw/internal/sentinel"
	"chatgw/internal/server"
	"chatgw/internal/upstream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chatgw server",
	Long:  `Start the chatgw HTTP server and begin accepting requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		globalLogger, err := logger.New(viper.GetString("log.level"))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer globalLogger.Sync()

		origin := viper.GetString("upstream.origin")
		sentinelOrigin := viper.GetString("sentinel.origin")
		if sentinelOrigin == "" {
			sentinelOrigin = origin
		}

		cache := puid.NewHTTPCache(origin, nil, viper.GetDuration("puid.ttl"), globalLogger.Named("puid"))
		fetcher := sentinel.NewFetcher(sentinelOrigin, nil, globalLogger.Named("sentinel"))
		broker := arkose.NewSolverBroker(viper.GetString("arkose.solver_url"), nil, globalLogger.Named("arkose"))

		var localCfg localapi.Config
		if err := viper.UnmarshalKey("localapi", &localCfg); err != nil {
			return fmt.Errorf("failed to parse localapi config: %w", err)
		}
		var local proxy.LocalHandler
		if len(localCfg.Rules) > 0 {
			api, err := localapi.New(&localCfg, globalLogger.Named("localapi"))
			if err != nil {
				return err
			}
			local = api
		}

		dispatcher := proxy.NewDispatcher(
			upstream.NewClient(0),
			local,
			proxy.NewRequestLogger(),
			proxy.NewConversationRewriter(cache, fetcher, broker, viper.GetBool("arkose.gpt3_experiment")),
			proxy.NewDashboardRewriter(broker),
		)

		addr := fmt.Sprintf("%s:%d", viper.GetString("server.host"), viper.GetInt("server.port"))
		srv := server.NewHTTPServer(addr, origin, dispatcher, globalLogger)
		return srv.Start()
	},
}

func SetupServeCmd() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Server port")
	serveCmd.Flags().StringP("host", "H", "0.0.0.0", "Server host")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}
