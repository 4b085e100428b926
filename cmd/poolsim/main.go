package main

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/config"
	"github.com/curveforge/poolsim/internal/cryptoswap"
	"github.com/curveforge/poolsim/internal/logger"
	"github.com/curveforge/poolsim/internal/metapool"
	"github.com/curveforge/poolsim/internal/pool"
	"github.com/curveforge/poolsim/internal/stableswap"
	"github.com/curveforge/poolsim/internal/state"
	"github.com/curveforge/poolsim/internal/types"
	"github.com/curveforge/poolsim/internal/utils"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const stepInterval = 600 * time.Second

// tradeStep is one swap in a deterministic scenario.
type tradeStep struct {
	in, out int
	amount  sdkmath.Int
}

// scenario is a named trade sequence run against its own pool clone.
type scenario struct {
	name  string
	pool  pool.Pool
	steps []tradeStep
}

// runResult collects what a finished scenario reports back.
type runResult struct {
	name        string
	trades      int
	totalVolume sdkmath.Int
	pool        pool.Pool
}

// runScenario executes the trade sequence on the scenario's pool clone,
// advancing the simulated clock one interval per step.
func runScenario(sc scenario, start time.Time) (runResult, error) {
	res := runResult{name: sc.name, totalVolume: sdkmath.ZeroInt(), pool: sc.pool}

	ts := start
	for i, step := range sc.steps {
		sc.pool.PrepareForTrades(ts)
		tr, err := sc.pool.Trade(step.in, step.out, step.amount)
		if err != nil {
			log.Error().Err(err).Str("scenario", sc.name).Int("step", i).Msg("Trade failed")
			return res, err
		}
		res.trades++
		res.totalVolume = res.totalVolume.Add(tr.Volume)
		ts = ts.Add(stepInterval)
	}
	return res, nil
}

// main is the entry point for the pool simulator.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(config.LogLevel)
	log.Info().Msg("Pool simulator starting...")

	if config.PersistenceEnabled {
		dbCfg := state.DBConfig{
			Host: config.DBHost, Port: config.DBPort,
			User: config.DBUser, Password: config.DBPassword,
			DBName: config.DBName, SSLMode: config.DBSSLMode,
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
	}

	// --- 2. Build the source pools ---
	crypto, err := cryptoswap.New(config.DefaultCryptoParams())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build crypto pool")
	}
	stable, err := stableswap.New(config.DefaultStableParams())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build stable pool")
	}
	meta, err := metapool.New(config.DefaultMetaParams())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build metapool")
	}

	// --- 3. Run scenarios concurrently, one pool clone each ---
	scenarios := []scenario{
		{
			name:  "crypto-churn",
			pool:  crypto.Clone(),
			steps: alternating(0, 1, sdkmath.NewIntWithDecimal(2, 21), 60),
		},
		{
			name:  "crypto-trend",
			pool:  crypto.Clone(),
			steps: oneDirectional(0, 1, sdkmath.NewIntWithDecimal(5, 21), 40),
		},
		{
			name:  "stable-churn",
			pool:  stable.Clone(),
			steps: alternating(0, 2, sdkmath.NewIntWithDecimal(1, 21), 50),
		},
		{
			name:  "meta-routing",
			pool:  meta.Clone(),
			steps: alternating(0, 2, sdkmath.NewIntWithDecimal(1, 21), 50),
		},
	}

	start := time.Now().Truncate(time.Hour)
	results := make([]runResult, len(scenarios))

	g, _ := errgroup.WithContext(context.Background())
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			res, err := runScenario(sc, start)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Scenario run failed")
	}

	// --- 4. Report and persist ---
	for _, res := range results {
		volume, err := utils.E18ToFloat64(res.totalVolume)
		if err != nil {
			log.Fatal().Err(err).Str("scenario", res.name).Msg("Failed to convert volume")
		}

		ev := log.Info().
			Str("scenario", res.name).
			Int("trades", res.trades).
			Float64("total_volume", volume)

		if cp, ok := res.pool.(*cryptoswap.Pool); ok {
			vp, err := utils.E18ToFloat64(cp.VirtualPrice())
			if err != nil {
				log.Fatal().Err(err).Str("scenario", res.name).Msg("Failed to convert virtual price")
			}
			scale, err := utils.E18ToFloat64(cp.PriceScale())
			if err != nil {
				log.Fatal().Err(err).Str("scenario", res.name).Msg("Failed to convert price scale")
			}
			ev = ev.Float64("virtual_price", vp).Float64("price_scale", scale)

			if config.PersistenceEnabled {
				snapshot := types.RunSnapshot{
					RunName:        res.name,
					Timestamp:      time.Now(),
					TradesExecuted: res.trades,
					Balances:       cp.Balances(),
					D:              cp.D(),
					PriceScale:     cp.PriceScale(),
					PriceOracle:    cp.PriceOracle(),
					VirtualPrice:   cp.VirtualPrice(),
					XcpProfit:      cp.XcpProfit(),
					XcpProfitA:     cp.XcpProfitA(),
					TotalVolume:    res.totalVolume,
				}
				if _, err := state.SaveRunSnapshot(snapshot); err != nil {
					log.Fatal().Err(err).Str("scenario", res.name).Msg("Failed to save run snapshot")
				}
			}
		}

		ev.Msg("Scenario finished")
	}

	log.Info().Msg("All scenarios complete.")
}

// alternating builds a sequence that swaps back and forth between two coins.
func alternating(a, b int, amount sdkmath.Int, n int) []tradeStep {
	steps := make([]tradeStep, n)
	for i := range steps {
		if i%2 == 0 {
			steps[i] = tradeStep{in: a, out: b, amount: amount}
		} else {
			steps[i] = tradeStep{in: b, out: a, amount: amount}
		}
	}
	return steps
}

// oneDirectional builds a sequence that keeps pushing the same way, the case
// that forces the crypto pool's price scale to follow the oracle.
func oneDirectional(a, b int, amount sdkmath.Int, n int) []tradeStep {
	steps := make([]tradeStep, n)
	for i := range steps {
		steps[i] = tradeStep{in: a, out: b, amount: amount}
	}
	return steps
}
