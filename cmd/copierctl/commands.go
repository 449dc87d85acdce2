package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"trade-copier-go/internal/client"
	"trade-copier-go/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSubmitCmd(rc *rootConfig) *cobra.Command {
	var (
		trade      models.Trade
		ticket     int64
		openTime   string
		takeProfit float64
		stopLoss   float64
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a master trade, or update the one with the same ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("ticket") {
				trade.Ticket = &ticket
			}
			if cmd.Flags().Changed("tp") {
				trade.TakeProfit = &takeProfit
			}
			if cmd.Flags().Changed("sl") {
				trade.StopLoss = &stopLoss
			}
			ts, err := wireTimeOrNow(openTime)
			if err != nil {
				return err
			}
			trade.OpenTime = ts
			trade.Status = models.StatusOpen

			res, err := rc.client.SubmitTrade(cmd.Context(), trade)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().Int64VarP(&trade.MasterAccountID, "master", "m", 0, "master account id (required)")
	cmd.Flags().Int64VarP(&ticket, "ticket", "t", 0, "terminal ticket number")
	cmd.Flags().StringVarP(&trade.Symbol, "symbol", "s", "", "instrument symbol (required)")
	cmd.Flags().StringVar(&trade.TradeType, "type", "buy", "trade direction")
	cmd.Flags().Float64VarP(&trade.Volume, "volume", "v", 0, "lot size (required)")
	cmd.Flags().Float64Var(&trade.OpenPrice, "open-price", 0, "fill price")
	cmd.Flags().StringVar(&openTime, "open-time", "", "open time as YYYY.MM.DD HH:MM:SS, default now")
	cmd.Flags().Float64Var(&takeProfit, "tp", 0, "take-profit level")
	cmd.Flags().Float64Var(&stopLoss, "sl", 0, "stop-loss level")

	_ = cmd.MarkFlagRequired("master")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("volume")
	return cmd
}

func newCloseCmd(rc *rootConfig) *cobra.Command {
	var (
		closure   client.Closure
		ticket    int64
		closeTime string
	)

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Report the closure of a master trade by relay id or ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("ticket") {
				closure.Ticket = &ticket
			}
			if closure.ServerID == 0 && closure.Ticket == nil {
				return fmt.Errorf("one of --id or --ticket is required")
			}
			ts, err := wireTimeOrNow(closeTime)
			if err != nil {
				return err
			}
			closure.CloseTime = ts

			ack, err := rc.client.CloseTrade(cmd.Context(), closure)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ack)
		},
	}

	cmd.Flags().Int64VarP(&closure.MasterAccountID, "master", "m", 0, "master account id (required)")
	cmd.Flags().Int64Var(&closure.ServerID, "id", 0, "relay trade id")
	cmd.Flags().Int64VarP(&ticket, "ticket", "t", 0, "terminal ticket number")
	cmd.Flags().StringVarP(&closure.Symbol, "symbol", "s", "", "symbol, checked against the stored trade")
	cmd.Flags().Float64Var(&closure.ClosePrice, "price", 0, "close price (required)")
	cmd.Flags().StringVar(&closeTime, "time", "", "close time as YYYY.MM.DD HH:MM:SS, default now")
	cmd.Flags().Float64Var(&closure.Profit, "profit", 0, "realized profit")

	_ = cmd.MarkFlagRequired("master")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newTPSLCmd(rc *rootConfig) *cobra.Command {
	var (
		update     client.TPSLUpdate
		takeProfit float64
		stopLoss   float64
	)

	cmd := &cobra.Command{
		Use:   "tpsl",
		Short: "Set take-profit and stop-loss on a relay trade; omitted levels are cleared",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("tp") {
				update.TakeProfit = &takeProfit
			}
			if cmd.Flags().Changed("sl") {
				update.StopLoss = &stopLoss
			}
			ack, err := rc.client.UpdateTPSL(cmd.Context(), update)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ack)
		},
	}

	cmd.Flags().Int64VarP(&update.MasterAccountID, "master", "m", 0, "master account id (required)")
	cmd.Flags().Int64Var(&update.ServerID, "id", 0, "relay trade id (required)")
	cmd.Flags().Float64Var(&takeProfit, "tp", 0, "take-profit level")
	cmd.Flags().Float64Var(&stopLoss, "sl", 0, "stop-loss level")

	_ = cmd.MarkFlagRequired("master")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newPollCmd(rc *rootConfig) *cobra.Command {
	var slaveID, masterID int64

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Fetch the trades due for a slave once",
		RunE: func(cmd *cobra.Command, args []string) error {
			trades, err := rc.client.PollNewTrades(cmd.Context(), slaveID, masterID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), trades)
		},
	}

	addSlaveFlags(cmd, &slaveID, &masterID)
	return cmd
}

func newWatchCmd(rc *rootConfig) *cobra.Command {
	var (
		slaveID, masterID int64
		interval          time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the relay for a slave until interrupted, printing each delivered trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				interval = rc.cfg.Client.PollInterval
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watch(ctx, rc, cmd, slaveID, masterID, interval)
		},
	}

	addSlaveFlags(cmd, &slaveID, &masterID)
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval, default client.poll_interval")
	return cmd
}

func watch(ctx context.Context, rc *rootConfig, cmd *cobra.Command, slaveID, masterID int64, interval time.Duration) error {
	log := rc.log.With(zap.Int64("slave_account_id", slaveID), zap.Int64("master_account_id", masterID))
	log.Info("Watching relay", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		trades, err := rc.client.PollNewTrades(ctx, slaveID, masterID)
		switch {
		case ctx.Err() != nil:
			log.Info("Watch stopped")
			return nil
		case err != nil:
			log.Warn("Poll failed", zap.Error(err))
		default:
			for _, t := range trades {
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s %s %s %.2f rev=%d\n",
					t.ID, t.Status, t.Symbol, t.TradeType, t.Volume, t.Revision)
			}
		}

		select {
		case <-ctx.Done():
			log.Info("Watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func addSlaveFlags(cmd *cobra.Command, slaveID, masterID *int64) {
	cmd.Flags().Int64Var(slaveID, "slave", 0, "slave account id (required)")
	cmd.Flags().Int64VarP(masterID, "master", "m", 0, "master account id (required)")
	_ = cmd.MarkFlagRequired("slave")
	_ = cmd.MarkFlagRequired("master")
}

func wireTimeOrNow(s string) (models.Timestamp, error) {
	if s == "" {
		return models.NewTimestamp(time.Now()), nil
	}
	ts, err := models.ParseWire(s)
	if err != nil {
		return models.Timestamp{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return ts, nil
}
