// Command evmstage runs one sweep of every configured task from its
// stored checkpoint up to the current chain head (minus a confirmation
// lag), sealing partition files as it goes, then exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/clouds56/evmstage/internal/appconfig"
	"github.com/clouds56/evmstage/internal/blockmetrics"
	"github.com/clouds56/evmstage/internal/decode"
	"github.com/clouds56/evmstage/internal/errs"
	"github.com/clouds56/evmstage/internal/job"
	"github.com/clouds56/evmstage/internal/metrics"
	"github.com/clouds56/evmstage/internal/obslog"
	"github.com/clouds56/evmstage/internal/partition"
	"github.com/clouds56/evmstage/internal/progress"
	"github.com/clouds56/evmstage/internal/protocol/pendle"
	"github.com/clouds56/evmstage/internal/protocol/uniswapv2"
	"github.com/clouds56/evmstage/internal/protocol/uniswapv3"
	"github.com/clouds56/evmstage/internal/rpcfetch"
	"github.com/clouds56/evmstage/internal/stage"
)

func main() {
	logger := obslog.Logger()
	logger.Info().Msg("starting evmstage sweep")

	cfg, err := appconfig.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to create data dir")
	}

	client, err := rpcfetch.Dial(cfg.Endpoint)
	if err != nil {
		logger.Fatal().Err(err).Str("endpoint", cfg.Endpoint).Msg("failed to dial rpc endpoint")
	}
	defer client.Close()
	logger.Info().Str("endpoint", cfg.Endpoint).Msg("connected to rpc endpoint")

	loaded, err := stage.Load(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load stage file")
	}
	st := loaded.Stage
	if st.Cut == 0 {
		st.Cut = cfg.Cut
	}

	if loaded.LegacyFactory {
		if loaded.LegacyFactoryCk > st.UniswapFactoryEvents.Load() {
			logger.Info().Msg("legacy uniswap_factory field ahead of current checkpoint, migrating partition files")
			if _, err := partition.MigrateLegacyTask(cfg.DataDir, "uniswap_factory", "uniswap_factory_events"); err != nil {
				logger.Fatal().Err(err).Msg("legacy factory migration failed")
			}
		}
		st.UniswapFactoryEvents.Store(loaded.LegacyFactoryCk)
	}

	var publisher *progress.Publisher
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		publisher, err = progress.NewPublisher(natsURL, 7*24*time.Hour, "EVMSTAGE", logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer publisher.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	metricsServer := startMetricsServer(cfg, st, logger)
	defer shutdownServer(metricsServer, logger)

	head, err := client.ChainHead(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to fetch chain head")
	}
	metrics.ChainHead.Set(float64(head))

	end := uint64(0)
	if head > cfg.Confirmations {
		end = head - cfg.Confirmations
	}
	logger.Info().Uint64("head", head).Uint64("confirmations", cfg.Confirmations).Uint64("end", end).Msg("resolved sweep end")

	listen := makeListener(publisher, logger)

	if err := runSweep(ctx, cfg, st, client, end, listen, logger); err != nil {
		logger.Fatal().Err(err).Msg("sweep failed")
	}

	if err := stage.Save(cfg.DataDir, st); err != nil {
		logger.Fatal().Err(err).Msg("failed to save stage file")
	}
	logger.Info().Msg("sweep complete")
}

// makeListener adapts the optional NATS publisher into a progress.Listener.
// A publish failure is logged but never vetoes the advance: the dashboard
// feed is best-effort, unlike the partitioned writer itself.
func makeListener(publisher *progress.Publisher, logger *zerolog.Logger) progress.Listener {
	return func(ev progress.Event) bool {
		if publisher == nil {
			return true
		}
		if err := publisher.Publish(context.Background(), ev); err != nil {
			logger.Warn().Err(err).Str("task", ev.Task).Msg("failed to publish progress event")
		}
		return true
	}
}

// runSweep drives every task to end, in a fixed deterministic order
// fixes: block-metrics, V2 factory, V3 factory, per-V2-pair, per-V3-pool,
// Pendle factory, per-Pendle-market. Each task persists the stage file
// once it reaches end, so a crash mid-sweep only loses the in-flight
// task's granularity, not completed ones.
func runSweep(ctx context.Context, cfg appconfig.Config, st *stage.Stage, client *rpcfetch.Client, end uint64, listen progress.Listener, logger *zerolog.Logger) error {
	if err := runBlockMetrics(ctx, cfg, st, client, end, listen, logger); err != nil {
		return err
	}
	if err := runUniswapV2Factory(ctx, cfg, st, client, end, listen, logger); err != nil {
		return err
	}
	if err := runUniswapV3Factory(ctx, cfg, st, client, end, listen, logger); err != nil {
		return err
	}
	if err := runUniswapV2Pairs(ctx, cfg, st, client, end, listen, logger); err != nil {
		return err
	}
	if err := runUniswapV3Pools(ctx, cfg, st, client, end, listen, logger); err != nil {
		return err
	}
	if err := runPendleFactory(ctx, cfg, st, client, end, listen, logger); err != nil {
		return err
	}
	if err := runPendleMarkets(ctx, cfg, st, client, end, listen, logger); err != nil {
		return err
	}
	return nil
}

func runBlockMetrics(ctx context.Context, cfg appconfig.Config, st *stage.Stage, client *rpcfetch.Client, end uint64, listen progress.Listener, logger *zerolog.Logger) error {
	r := &job.Runner[blockmetrics.Row]{
		Task:       "block_metrics",
		Cut:        st.Cut,
		DataDir:    cfg.DataDir,
		Checkpoint: st.BlockMetrics,
		Produce: func(ctx context.Context, s, e uint64) ([]blockmetrics.Row, error) {
			return blockmetrics.Build(ctx, client, s, e, cfg.BlockFanout)
		},
	}
	logger.Info().Uint64("checkpoint", st.BlockMetrics.Load()).Msg("running block_metrics")
	return r.Run(ctx, end, listen)
}

func runUniswapV2Factory(ctx context.Context, cfg appconfig.Config, st *stage.Stage, client *rpcfetch.Client, end uint64, listen progress.Listener, logger *zerolog.Logger) error {
	topic := uniswapv2.TopicPairCreated
	r := &job.Runner[uniswapv2.FactoryRow]{
		Task:       "uniswap_factory_events",
		Cut:        st.Cut,
		DataDir:    cfg.DataDir,
		Checkpoint: st.UniswapFactoryEvents,
		Produce: func(ctx context.Context, s, e uint64) ([]uniswapv2.FactoryRow, error) {
			logs, err := client.EnumerateLogs(ctx, s, e, cfg.FactoryWindow, &topic, nil)
			if err != nil {
				return nil, err
			}
			rows := make([]uniswapv2.FactoryRow, 0, len(logs))
			for _, l := range logs {
				view, err := decode.NewLogView(l)
				if err != nil {
					metrics.DecodeErrorsTotal.WithLabelValues("uniswapv2_factory", "log_view").Inc()
					continue
				}
				row, err := uniswapv2.DecodeFactory(view)
				if err != nil {
					metrics.DecodeErrorsTotal.WithLabelValues("uniswapv2_factory", classify(err)).Inc()
					continue
				}
				rows = append(rows, row)
				st.UniswapPairEvents = append(st.UniswapPairEvents, stage.NewContractTask(row.Pair, l.BlockNumber, 0, st.Cut))
			}
			return rows, nil
		},
	}
	logger.Info().Uint64("checkpoint", st.UniswapFactoryEvents.Load()).Msg("running uniswap_factory_events")
	return r.Run(ctx, end, listen)
}

func runUniswapV3Factory(ctx context.Context, cfg appconfig.Config, st *stage.Stage, client *rpcfetch.Client, end uint64, listen progress.Listener, logger *zerolog.Logger) error {
	topic := uniswapv3.TopicPoolCreated
	r := &job.Runner[uniswapv3.FactoryRow]{
		Task:       "uniswap3_factory_events",
		Cut:        st.Cut,
		DataDir:    cfg.DataDir,
		Checkpoint: st.Uniswap3FactoryEvents,
		Produce: func(ctx context.Context, s, e uint64) ([]uniswapv3.FactoryRow, error) {
			logs, err := client.EnumerateLogs(ctx, s, e, cfg.FactoryWindow, &topic, nil)
			if err != nil {
				return nil, err
			}
			rows := make([]uniswapv3.FactoryRow, 0, len(logs))
			for _, l := range logs {
				view, err := decode.NewLogView(l)
				if err != nil {
					metrics.DecodeErrorsTotal.WithLabelValues("uniswapv3_factory", "log_view").Inc()
					continue
				}
				row, err := uniswapv3.DecodeFactory(view)
				if err != nil {
					metrics.DecodeErrorsTotal.WithLabelValues("uniswapv3_factory", classify(err)).Inc()
					continue
				}
				rows = append(rows, row)
				st.Uniswap3PairEvents = append(st.Uniswap3PairEvents, stage.NewContractTask(row.Pool, l.BlockNumber, 0, st.Cut))
			}
			return rows, nil
		},
	}
	logger.Info().Uint64("checkpoint", st.Uniswap3FactoryEvents.Load()).Msg("running uniswap3_factory_events")
	return r.Run(ctx, end, listen)
}

func runUniswapV2Pairs(ctx context.Context, cfg appconfig.Config, st *stage.Stage, client *rpcfetch.Client, end uint64, listen progress.Listener, logger *zerolog.Logger) error {
	for _, task := range st.UniswapPairEvents {
		contract := common.HexToAddress(task.Contract)
		r := &job.Runner[uniswapv2.PairRow]{
			Task:       "uniswap_pair_events_" + task.Contract,
			Cut:        st.Cut,
			DataDir:    cfg.DataDir,
			Checkpoint: task.Checkpoint,
			Produce: func(ctx context.Context, s, e uint64) ([]uniswapv2.PairRow, error) {
				return decodePairLogs(ctx, client, s, e, cfg.PairWindow, contract)
			},
		}
		logger.Info().Str("contract", task.Contract).Uint64("checkpoint", task.Checkpoint.Load()).Msg("running uniswap v2 pair")
		if err := r.Run(ctx, end, listen); err != nil {
			return err
		}
	}
	return nil
}

func decodePairLogs(ctx context.Context, client *rpcfetch.Client, s, e, window uint64, contract common.Address) ([]uniswapv2.PairRow, error) {
	logs, err := client.EnumerateLogs(ctx, s, e, window, nil, &contract)
	if err != nil {
		return nil, err
	}
	rows := make([]uniswapv2.PairRow, 0, len(logs))
	for _, l := range logs {
		view, err := decode.NewLogView(l)
		if err != nil {
			metrics.DecodeErrorsTotal.WithLabelValues("uniswapv2_pair", "log_view").Inc()
			continue
		}
		row, err := uniswapv2.DecodePair(view)
		if err != nil {
			metrics.DecodeErrorsTotal.WithLabelValues("uniswapv2_pair", classify(err)).Inc()
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func runUniswapV3Pools(ctx context.Context, cfg appconfig.Config, st *stage.Stage, client *rpcfetch.Client, end uint64, listen progress.Listener, logger *zerolog.Logger) error {
	for _, task := range st.Uniswap3PairEvents {
		contract := common.HexToAddress(task.Contract)
		r := &job.Runner[uniswapv3.PoolRow]{
			Task:       "uniswap3_pair_events_" + task.Contract,
			Cut:        st.Cut,
			DataDir:    cfg.DataDir,
			Checkpoint: task.Checkpoint,
			Produce: func(ctx context.Context, s, e uint64) ([]uniswapv3.PoolRow, error) {
				return decodePoolLogs(ctx, client, s, e, cfg.PairWindow, contract)
			},
		}
		logger.Info().Str("contract", task.Contract).Uint64("checkpoint", task.Checkpoint.Load()).Msg("running uniswap v3 pool")
		if err := r.Run(ctx, end, listen); err != nil {
			return err
		}
	}
	return nil
}

func decodePoolLogs(ctx context.Context, client *rpcfetch.Client, s, e, window uint64, contract common.Address) ([]uniswapv3.PoolRow, error) {
	logs, err := client.EnumerateLogs(ctx, s, e, window, nil, &contract)
	if err != nil {
		return nil, err
	}
	rows := make([]uniswapv3.PoolRow, 0, len(logs))
	for _, l := range logs {
		view, err := decode.NewLogView(l)
		if err != nil {
			metrics.DecodeErrorsTotal.WithLabelValues("uniswapv3_pool", "log_view").Inc()
			continue
		}
		row, err := uniswapv3.DecodePool(view)
		if err != nil {
			metrics.DecodeErrorsTotal.WithLabelValues("uniswapv3_pool", classify(err)).Inc()
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func runPendleFactory(ctx context.Context, cfg appconfig.Config, st *stage.Stage, client *rpcfetch.Client, end uint64, listen progress.Listener, logger *zerolog.Logger) error {
	topic := pendle.TopicCreateNewMarket
	enricher := pendle.NoopEnricher{}
	r := &job.Runner[pendle.FactoryRow]{
		Task:       "pendle2_market_factory_events",
		Cut:        st.Cut,
		DataDir:    cfg.DataDir,
		Checkpoint: st.PendleMarketFactoryEvents,
		Produce: func(ctx context.Context, s, e uint64) ([]pendle.FactoryRow, error) {
			logs, err := client.EnumerateLogs(ctx, s, e, cfg.FactoryWindow, &topic, nil)
			if err != nil {
				return nil, err
			}
			rows := make([]pendle.FactoryRow, 0, len(logs))
			for _, l := range logs {
				view, err := decode.NewLogView(l)
				if err != nil {
					metrics.DecodeErrorsTotal.WithLabelValues("pendle_factory", "log_view").Inc()
					continue
				}
				row, err := pendle.DecodeFactory(ctx, view, enricher)
				if err != nil {
					metrics.DecodeErrorsTotal.WithLabelValues("pendle_factory", classify(err)).Inc()
					continue
				}
				rows = append(rows, row)
				st.PendleMarketEvents = append(st.PendleMarketEvents, stage.NewContractTask(row.MarketAddress, l.BlockNumber, 0, st.Cut))
			}
			return rows, nil
		},
	}
	logger.Info().Uint64("checkpoint", st.PendleMarketFactoryEvents.Load()).Msg("running pendle2_market_factory_events")
	return r.Run(ctx, end, listen)
}

func runPendleMarkets(ctx context.Context, cfg appconfig.Config, st *stage.Stage, client *rpcfetch.Client, end uint64, listen progress.Listener, logger *zerolog.Logger) error {
	for _, task := range st.PendleMarketEvents {
		contract := common.HexToAddress(task.Contract)
		r := &job.Runner[pendle.MarketRow]{
			Task:       "pendle2_market_events_" + task.Contract,
			Cut:        st.Cut,
			DataDir:    cfg.DataDir,
			Checkpoint: task.Checkpoint,
			Produce: func(ctx context.Context, s, e uint64) ([]pendle.MarketRow, error) {
				return decodeMarketLogs(ctx, client, s, e, cfg.PairWindow, contract)
			},
		}
		logger.Info().Str("contract", task.Contract).Uint64("checkpoint", task.Checkpoint.Load()).Msg("running pendle market")
		if err := r.Run(ctx, end, listen); err != nil {
			return err
		}
	}
	return nil
}

func decodeMarketLogs(ctx context.Context, client *rpcfetch.Client, s, e, window uint64, contract common.Address) ([]pendle.MarketRow, error) {
	logs, err := client.EnumerateLogs(ctx, s, e, window, nil, &contract)
	if err != nil {
		return nil, err
	}
	rows := make([]pendle.MarketRow, 0, len(logs))
	for _, l := range logs {
		view, err := decode.NewLogView(l)
		if err != nil {
			metrics.DecodeErrorsTotal.WithLabelValues("pendle_market", "log_view").Inc()
			continue
		}
		row, err := pendle.DecodeMarket(view)
		if err != nil {
			metrics.DecodeErrorsTotal.WithLabelValues("pendle_market", classify(err)).Inc()
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// classify reduces a decode error down to a low-cardinality metric label.
func classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, errs.ErrUnknownTopic):
		return "unknown_topic"
	case errors.Is(err, errs.ErrDecodeMismatch):
		return "decode_mismatch"
	default:
		return "other"
	}
}

func startMetricsServer(cfg appconfig.Config, st *stage.Stage, logger *zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthHandler(st))

	srv := &http.Server{Addr: "127.0.0.1:9090", Handler: mux}
	go func() {
		logger.Info().Str("address", srv.Addr).Msg("starting metrics/health server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	return srv
}

func healthHandler(st *stage.Stage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "block_metrics: %d\n", loadOr(st.BlockMetrics))
		fmt.Fprintf(w, "uniswap_factory_events: %d\n", loadOr(st.UniswapFactoryEvents))
		fmt.Fprintf(w, "uniswap3_factory_events: %d\n", loadOr(st.Uniswap3FactoryEvents))
		fmt.Fprintf(w, "pendle2_market_factory_events: %d\n", loadOr(st.PendleMarketFactoryEvents))
	}
}

func loadOr(v *atomic.Uint64) uint64 {
	if v == nil {
		return 0
	}
	return v.Load()
}

func shutdownServer(srv *http.Server, logger *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown error")
	}
}
