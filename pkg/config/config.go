// Package config loads the Pool's policy parameters, mirroring
// params/config.go's godotenv + environment-variable override pattern but
// with the AMM's fee/leverage/policy scalars in place of consensus timing.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// PoolParams holds every policy constant spec.md §6 requires a Pool to
// expose at construction.
type PoolParams struct {
	Fee                   float64 // swap retention rate
	LoanFee               float64 // short/long-open retention rate
	LoanDayFee            float64 // daily-accrual retention rate
	ForcedCloseFee        float64 // liquidation retention rate
	ForcedCloseBaseAmount float64 // flat per-liquidation fee, token1 units
	LeverageLimit         float64
	LendingSecondLimit    int64   // seconds before third-party liquidation by time
	ForceMoveRate         float64 // cap on single-trade price move
	ForceMoveSlack        float64 // minimum partial-close price move
	OrderMaxLength        int     // max open orders per address
}

// Default returns the constants spec.md §6 names.
func Default() PoolParams {
	return PoolParams{
		Fee:                   0.997,
		LoanFee:               0.99,
		LoanDayFee:            0.9995,
		ForcedCloseFee:        0.995,
		ForcedCloseBaseAmount: 5,
		LeverageLimit:         5,
		LendingSecondLimit:    900,
		ForceMoveRate:         0.10,
		ForceMoveSlack:        0.05,
		OrderMaxLength:        50,
	}
}

// LoadFromEnv loads params.Default() overridden by a .env file (if present)
// and then by process environment variables. Priority: ENV > .env file >
// defaults, matching params/config.go's LoadFromEnv.
func LoadFromEnv(envPath string) PoolParams {
	p := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	overrideFloat(&p.Fee, "POOL_FEE")
	overrideFloat(&p.LoanFee, "POOL_LOAN_FEE")
	overrideFloat(&p.LoanDayFee, "POOL_LOAN_DAY_FEE")
	overrideFloat(&p.ForcedCloseFee, "POOL_FORCED_CLOSE_FEE")
	overrideFloat(&p.ForcedCloseBaseAmount, "POOL_FORCED_CLOSE_BASE_AMOUNT")
	overrideFloat(&p.LeverageLimit, "POOL_LEVERAGE_LIMIT")
	overrideFloat(&p.ForceMoveRate, "POOL_FORCE_MOVE_RATE")
	overrideFloat(&p.ForceMoveSlack, "POOL_FORCE_MOVE_SLACK")

	if v := os.Getenv("POOL_LENDING_SECOND_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.LendingSecondLimit = n
		}
	}
	if v := os.Getenv("POOL_ORDER_MAX_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.OrderMaxLength = n
		}
	}

	return p
}

func overrideFloat(field *float64, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*field = f
		}
	}
}
