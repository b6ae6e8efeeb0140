package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pingjob/matcher/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume match requests from the message broker and publish scores",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger, config := setup()

		scorer, err := newScorer(ctx, config, 1, logger)
		if err != nil {
			logger.Fatal("preparing the scorer", zap.Error(err))
		}

		logger.Info("starting the worker", zap.String("version", version))

		if err := worker.New(config.Worker, scorer, logger).Run(ctx); err != nil {
			logger.Fatal("worker stopped", zap.Error(err))
		}

		logger.Info("worker stopped")
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().String("amqp-url", "", "amqp broker url")
	workerCmd.Flags().Int("concurrency", worker.DefaultConcurrency, "number of concurrent consumers")

	viper.BindPFlag("worker.amqp-url", workerCmd.Flags().Lookup("amqp-url"))
	viper.BindPFlag("worker.concurrency", workerCmd.Flags().Lookup("concurrency"))
}
