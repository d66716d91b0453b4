// Package main provides the command-line backtest runner.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/greedi-fi/internal/backtest"
	"github.com/yourusername/greedi-fi/internal/models"
	"github.com/yourusername/greedi-fi/internal/store"
	"github.com/yourusername/greedi-fi/internal/strategy"
)

var (
	flagName       string
	flagTemplate   string
	flagParams     []string
	flagStart      string
	flagEnd        string
	flagCapital    float64
	flagInstrument string
	flagOutput     string
)

func init() {
	rootCmd.Flags().StringVar(&flagName, "name", "cli-strategy", "Strategy name")
	rootCmd.Flags().StringVar(&flagTemplate, "template", "moving_average_crossover", "Strategy template")
	rootCmd.Flags().StringSliceVar(&flagParams, "param", nil, "Strategy parameter as key=value (repeatable)")
	rootCmd.Flags().StringVar(&flagStart, "start-date", "", "Start date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&flagEnd, "end-date", "", "End date (YYYY-MM-DD)")
	rootCmd.Flags().Float64Var(&flagCapital, "capital", 100000, "Initial capital")
	rootCmd.Flags().StringVar(&flagInstrument, "instrument", "BTC-PERPETUAL", "Instrument to simulate")
	rootCmd.Flags().StringVar(&flagOutput, "output", "", "Write the full result JSON to this path")
	rootCmd.MarkFlagRequired("start-date")
	rootCmd.MarkFlagRequired("end-date")
}

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a one-off strategy backtest",
	Long:  `Registers an ad-hoc strategy, runs a backtest over the given date range and prints the performance metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBacktest(cmd.Context())
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runBacktest(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	strategyStore := store.NewMemoryStrategyStore()
	resultStore := store.NewMemoryResultStore()

	strategies, err := strategy.NewService(strategyStore, logger)
	if err != nil {
		return err
	}
	engine, err := backtest.NewEngine(strategyStore, resultStore, logger)
	if err != nil {
		return err
	}

	params, err := parseParams(flagParams)
	if err != nil {
		return err
	}

	created, err := strategies.Create(ctx, &models.Strategy{
		Name:       flagName,
		Template:   flagTemplate,
		Parameters: params,
	})
	if err != nil {
		return fmt.Errorf("failed to register strategy: %w", err)
	}

	result, err := engine.Run(ctx, models.BacktestRequest{
		StrategyID:     created.ID,
		StartDate:      flagStart,
		EndDate:        flagEnd,
		InitialCapital: flagCapital,
		Instrument:     flagInstrument,
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	fmt.Printf("Backtest %s (%s, %s to %s)\n", result.ID, flagInstrument, flagStart, flagEnd)
	fmt.Printf("  days:          %d\n", len(result.PnLHistory))
	fmt.Printf("  trades:        %d\n", len(result.TradeHistory))
	for _, key := range []string{
		backtest.MetricFinalPnL,
		backtest.MetricMaxDrawdown,
		backtest.MetricSharpeRatio,
		backtest.MetricWinRate,
		backtest.MetricProfitFactor,
	} {
		fmt.Printf("  %-14s %.4f\n", key+":", result.PerformanceMetrics[key])
	}

	if flagOutput != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if err := os.WriteFile(flagOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		fmt.Printf("Result written to %s\n", flagOutput)
	}
	return nil
}

func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}
