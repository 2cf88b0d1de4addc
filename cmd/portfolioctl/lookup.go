package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/bimakw/chain-portfolio/internal/app"
	"github.com/bimakw/chain-portfolio/internal/apperrors"
	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

var (
	lookupTTL time.Duration
	txLimit   int
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <chain> <address>",
	Short: "Resolve a wallet portfolio through the cache",
	Long: `Resolve the portfolio of an address exactly as the API does: a fresh
cached snapshot is returned as-is, otherwise the chain is queried and the
result is written to the cache.`,
	Args: cobra.ExactArgs(2),
	RunE: runLookup,
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions <chain> <address>",
	Short: "List recent transactions of an address",
	Args:  cobra.ExactArgs(2),
	RunE:  runTransactions,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(transactionsCmd)

	lookupCmd.Flags().DurationVar(&lookupTTL, "ttl", 0, "cache ttl for a fetched snapshot (default CACHE_TTL)")
	transactionsCmd.Flags().IntVar(&txLimit, "limit", entities.DefaultTransactionLimit, "maximum number of transactions")
}

func parseChainArg(op, raw string) (entities.Chain, error) {
	chain, err := entities.ParseChain(raw)
	if err != nil {
		return "", apperrors.NewValidationError(op, "", raw, err.Error())
	}
	return chain, nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	chain, err := parseChainArg("lookup", args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	application, err := app.New(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer application.Close()

	ttl := lookupTTL
	if !cmd.Flags().Changed("ttl") {
		ttl = application.Portfolio.TTL()
	}

	snapshot, err := application.Portfolio.GetPortfolioWithTTL(ctx, chain, args[1], ttl)
	if err != nil {
		return err
	}

	return printJSON(cmd, newLookupOutput(snapshot))
}

// lookupOutput is the JSON printed by lookup
type lookupOutput struct {
	Data          *entities.PortfolioSnapshot `json:"data"`
	TotalValueUSD float64                     `json:"total_value_usd"`
}

func newLookupOutput(snapshot *entities.PortfolioSnapshot) lookupOutput {
	return lookupOutput{
		Data:          snapshot,
		TotalValueUSD: snapshot.TotalValueUSD(),
	}
}

func runTransactions(cmd *cobra.Command, args []string) error {
	chain, err := parseChainArg("transactions", args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	application, err := app.New(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer application.Close()

	txs, err := application.Transactions.GetTransactions(ctx, chain, args[1], txLimit)
	if err != nil {
		return err
	}

	return printJSON(cmd, map[string]interface{}{
		"data":  txs,
		"count": len(txs),
	})
}
