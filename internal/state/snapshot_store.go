package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/types"
	"github.com/rs/zerolog/log"
)

// SaveRunSnapshot saves the end-of-run state of a pool to the database.
func SaveRunSnapshot(snapshot types.RunSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO run_snapshots (
			run_name, snapshot_timestamp, trades_executed,
			balance_0, balance_1, invariant_d,
			price_scale, price_oracle, virtual_price,
			xcp_profit, xcp_profit_a, total_volume
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err := DB.QueryRow(
		query,
		snapshot.RunName, snapshot.Timestamp, snapshot.TradesExecuted,
		snapshot.Balances[0].String(), snapshot.Balances[1].String(), snapshot.D.String(),
		snapshot.PriceScale.String(), snapshot.PriceOracle.String(), snapshot.VirtualPrice.String(),
		snapshot.XcpProfit.String(), snapshot.XcpProfitA.String(), snapshot.TotalVolume.String(),
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save run snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Str("run_name", snapshot.RunName).
		Int("trades_executed", snapshot.TradesExecuted).
		Msg("Run snapshot saved to database")

	return snapshotID, nil
}

// LoadRunSnapshots returns the most recent snapshots for a run, newest first.
func LoadRunSnapshots(runName string, limit int) ([]types.RunSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT run_name, snapshot_timestamp, trades_executed,
			balance_0, balance_1, invariant_d,
			price_scale, price_oracle, virtual_price,
			xcp_profit, xcp_profit_a, total_volume
		FROM run_snapshots
		WHERE run_name = $1
		ORDER BY snapshot_timestamp DESC
		LIMIT $2;
	`

	rows, err := DB.Query(query, runName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.RunSnapshot
	for rows.Next() {
		var s types.RunSnapshot
		var b0, b1, d, scale, oracle, vp, profit, profitA, volume string
		if err := rows.Scan(
			&s.RunName, &s.Timestamp, &s.TradesExecuted,
			&b0, &b1, &d, &scale, &oracle, &vp, &profit, &profitA, &volume,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run snapshot: %w", err)
		}

		fields := []struct {
			raw string
			dst *sdkmath.Int
		}{
			{b0, &s.Balances[0]}, {b1, &s.Balances[1]}, {d, &s.D},
			{scale, &s.PriceScale}, {oracle, &s.PriceOracle}, {vp, &s.VirtualPrice},
			{profit, &s.XcpProfit}, {profitA, &s.XcpProfitA}, {volume, &s.TotalVolume},
		}
		for _, f := range fields {
			v, ok := sdkmath.NewIntFromString(f.raw)
			if !ok {
				return nil, fmt.Errorf("invalid numeric value %q in run snapshot", f.raw)
			}
			*f.dst = v
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run snapshots: %w", err)
	}

	return snapshots, nil
}
