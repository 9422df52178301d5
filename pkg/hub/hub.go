// Package hub implements the single-mutex façade around a Pool: every
// mutating call is serialized through one lock (spec.md §5), a bounded
// price-history FIFO is maintained after each call, and the fast-open
// solvers search for a forcedClosePrice that is both solvent and
// non-overlapping with the existing liquidation book. Grounded bit-for-bit
// on _examples/original_source/src/swaphub.py.
package hub

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/shortswap/pkg/config"
	"github.com/uhyunpark/shortswap/pkg/orderbook"
	"github.com/uhyunpark/shortswap/pkg/pool"
	"github.com/uhyunpark/shortswap/pkg/swapmath"
)

const priceHistoryLimit = 100

// Hub wraps a single Pool, serializing every state-changing call behind
// one mutex. This is the equivalent of "frontend code" in the Python
// original (swaphub.py's own docstring): it adds no trading logic of its
// own beyond price-history bookkeeping and the fast-open solvers.
type Hub struct {
	mu   sync.Mutex
	pool *pool.Pool
	log  *zap.Logger

	priceHistory []float64
	currentPrice float64
	havePrice    bool
}

// New returns a Hub guarding p.
func New(p *pool.Pool, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{pool: p, log: log}
}

func (h *Hub) updatePriceHistoryLocked() {
	newPrice := h.pool.GetPrice()
	if h.havePrice && newPrice == h.currentPrice {
		return
	}
	h.currentPrice = newPrice
	h.havePrice = true
	h.priceHistory = append(h.priceHistory, newPrice)
	if len(h.priceHistory) > priceHistoryLimit {
		h.priceHistory = h.priceHistory[1:]
	}
}

// GetInfo returns a snapshot of the pool's fields.
func (h *Hub) GetInfo() pool.Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.GetInfo()
}

// GetReserves returns the live pool reserves.
func (h *Hub) GetReserves() (reserve0, reserve1 float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.GetReserves()
}

// GetPrice returns the current spot price.
func (h *Hub) GetPrice() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.GetPrice()
}

// GetPriceHistory returns the bounded (<=100 entries) history of distinct
// prices observed after each mutating call.
func (h *Hub) GetPriceHistory() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.priceHistory))
	copy(out, h.priceHistory)
	return out
}

// Buy executes a buy and updates price history.
func (h *Hub) Buy(caller common.Address, amount1 float64) (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ok, msg := h.pool.Buy(caller, amount1)
	h.updatePriceHistoryLocked()
	return ok, msg
}

// Sell executes a sell and updates price history.
func (h *Hub) Sell(caller common.Address, amount0 float64) (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ok, msg := h.pool.Sell(caller, amount0)
	h.updatePriceHistoryLocked()
	return ok, msg
}

// OpenShort opens a leveraged short and updates price history.
func (h *Hub) OpenShort(caller common.Address, baseAmount1, lendAmount0, forcedClosePrice float64, insertAfterID string) (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ok, msg := h.pool.OpenShort(caller, baseAmount1, lendAmount0, forcedClosePrice, insertAfterID)
	h.updatePriceHistoryLocked()
	return ok, msg
}

// CloseShort closes (fully or partially) a short order and updates price history.
func (h *Hub) CloseShort(caller common.Address, orderID string, closeAmount0 float64, isThirdParty bool) (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ok, msg := h.pool.CloseShort(caller, orderID, closeAmount0, isThirdParty)
	h.updatePriceHistoryLocked()
	return ok, msg
}

// OpenLong opens a leveraged long and updates price history.
func (h *Hub) OpenLong(caller common.Address, baseAmount1, lendAmount1, forcedClosePrice float64, insertAfterID string) (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ok, msg := h.pool.OpenLong(caller, baseAmount1, lendAmount1, forcedClosePrice, insertAfterID)
	h.updatePriceHistoryLocked()
	return ok, msg
}

// CloseLong closes (fully or partially) a long order and updates price history.
func (h *Hub) CloseLong(caller common.Address, orderID string, closeAmount0 float64, isThirdParty bool) (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ok, msg := h.pool.CloseLong(caller, orderID, closeAmount0, isThirdParty)
	h.updatePriceHistoryLocked()
	return ok, msg
}

// GetAddressHistoryOrders returns addr's closed-order history.
func (h *Hub) GetAddressHistoryOrders(addr common.Address) []orderbook.Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.GetAddressHistoryOrders(addr)
}

// GetShortOrder returns up to num short orders starting at the nearest node.
func (h *Hub) GetShortOrder(num int) []*orderbook.Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.GetShortOrder("", num)
}

// GetLongOrder returns up to num long orders starting at the nearest node.
func (h *Hub) GetLongOrder(num int) []*orderbook.Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.GetLongOrder("", num)
}

// GetOrdersByAddress returns every open order owned by addr.
func (h *Hub) GetOrdersByAddress(addr common.Address) []*orderbook.Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.GetOrdersByAddress(addr)
}

// ---- calculate_short_open / calculate_long_open (pure, non-mutating) ----

type shortOpenCalc struct {
	sellAmount1Out         float64
	totalFees              float64
	forcedAmountIn         float64
	forcedInitialLowPrice  float64
	forcedFinalHeightPrice float64
}

// calculateShortOpen mirrors swaphub.py's calculate_short_open: it never
// touches reserve0/reserve1, only simulates against the values passed in.
func calculateShortOpen(params config.PoolParams, reserve0, reserve1, baseAmount, lendAmount, forcedClosePrice float64) (bool, shortOpenCalc) {
	sell, err := swapmath.SwapForward0to1(lendAmount, reserve0, reserve1, params.Fee)
	if err != nil {
		return false, shortOpenCalc{}
	}

	loanFee := sell.AmountOut * (1 - params.LoanFee)
	loanDayFee := sell.AmountOut * (1 - params.LoanDayFee)
	forcedCloseFee := sell.AmountOut * (1 - params.ForcedCloseFee)
	totalFees := loanFee + loanDayFee + forcedCloseFee + params.ForcedCloseBaseAmount

	forcedReserve0, forcedReserve1 := swapmath.ReservesAtPrice(forcedClosePrice, reserve0, reserve1)
	forced, err := swapmath.InverseSwap1InFor0Out(lendAmount, forcedReserve0, forcedReserve1, params.Fee)
	if err != nil {
		return false, shortOpenCalc{}
	}

	if forced.AmountIn+totalFees >= sell.AmountOut+baseAmount {
		return false, shortOpenCalc{}
	}

	return true, shortOpenCalc{
		sellAmount1Out:         sell.AmountOut,
		totalFees:              totalFees,
		forcedAmountIn:         forced.AmountIn,
		forcedInitialLowPrice:  swapmath.Price(forcedReserve0, forcedReserve1),
		forcedFinalHeightPrice: swapmath.Price(forced.Reserve0, forced.Reserve1),
	}
}

type longOpenCalc struct {
	amount0Out             float64
	forcedInitialHighPrice float64
	forcedFinalLowPrice    float64
}

// calculateLongOpen mirrors swaphub.py's calculate_long_open, with the
// corrected (non-doubled) solvency check — see DESIGN.md / SPEC_FULL.md §4.1.
func calculateLongOpen(params config.PoolParams, reserve0, reserve1, baseAmount, lendAmount1, forcedClosePrice, currentPrice float64) (bool, longOpenCalc) {
	if forcedClosePrice >= currentPrice || forcedClosePrice <= 0 {
		return false, longOpenCalc{}
	}

	totalBaseAmount := baseAmount + lendAmount1
	loanFee := lendAmount1 * (1 - params.LoanFee)
	loanDayFee := lendAmount1 * (1 - params.LoanDayFee)
	forcedCloseFee := lendAmount1 * (1 - params.ForcedCloseFee)
	totalFees := loanFee + loanDayFee + forcedCloseFee + params.ForcedCloseBaseAmount

	buy, err := swapmath.SwapForward1to0(totalBaseAmount, reserve0, reserve1, params.Fee)
	if err != nil {
		return false, longOpenCalc{}
	}

	forcedReserve0, forcedReserve1 := swapmath.ReservesAtPrice(forcedClosePrice, reserve0, reserve1)
	forcedSell, err := swapmath.SwapForward0to1(buy.AmountOut, forcedReserve0, forcedReserve1, params.Fee)
	if err != nil {
		return false, longOpenCalc{}
	}

	if forcedSell.AmountOut < lendAmount1+totalFees {
		return false, longOpenCalc{}
	}

	return true, longOpenCalc{
		amount0Out:             buy.AmountOut,
		forcedInitialHighPrice: forcedSell.PriceBefore,
		forcedFinalLowPrice:    forcedSell.PriceAfter,
	}
}

// ---- fast-open solvers ----

// ShortFastOpenResult is the accepted plan a caller should then submit via
// OpenShort.
type ShortFastOpenResult struct {
	BaseAmount                float64
	LendAmount                float64
	ForcedClosePrice          float64
	InsertAfterID             string
	ForcedClosePriceMoved     float64
	PriceDifferencePercentage float64
}

// ShortFastOpen searches for a forcedClosePrice that is solvent and
// disjoint from the short book, starting at current_price*(1+1/levMult)
// and stepping down by a factor of 0.998 per iteration. Grounded on
// swaphub.py's short_fast_open.
func (h *Hub) ShortFastOpen(baseAmount, levMult float64) (bool, ShortFastOpenResult, string) {
	params := h.pool.Params()
	totalAmount := baseAmount * levMult

	currentPrice := h.GetPrice()
	forcedClosePrice := currentPrice * (1 + 1/levMult)
	reserve0, reserve1 := h.GetReserves()
	lendAmount := totalAmount / currentPrice

	var calc shortOpenCalc
	valid := false
	const maxOpenIterations = 10000
	for i := 0; i < maxOpenIterations; i++ {
		valid, calc = calculateShortOpen(params, reserve0, reserve1, baseAmount, lendAmount, forcedClosePrice)
		if valid {
			break
		}
		forcedClosePrice *= 0.998
		if forcedClosePrice <= currentPrice {
			return false, ShortFastOpenResult{}, "unable to find a suitable forced close price"
		}
	}
	if !valid {
		return false, ShortFastOpenResult{}, "reached maximum iterations searching for a forced close price"
	}

	shortOrders := h.GetShortOrder(10000)

	lowPrice := calc.forcedInitialLowPrice
	highPrice := calc.forcedFinalHeightPrice

	const maxOverlapIterations = 10000
	iteration := 0
	for ; iteration < maxOverlapIterations; iteration++ {
		hasIntersection := false
		for _, order := range shortOrders {
			if !(lowPrice > order.HighPrice || highPrice < order.LowPrice) {
				forcedClosePrice *= 0.998
				valid, calc = calculateShortOpen(params, reserve0, reserve1, baseAmount, lendAmount, forcedClosePrice)
				if !valid {
					return false, ShortFastOpenResult{}, "adjusted forced close price is no longer solvent"
				}
				lowPrice = calc.forcedInitialLowPrice
				highPrice = calc.forcedFinalHeightPrice
				hasIntersection = true
				break
			}
		}
		if !hasIntersection {
			break
		}
	}
	if iteration == maxOverlapIterations {
		return false, ShortFastOpenResult{}, "unable to find a non-overlapping forced close price"
	}

	insertAfterID := ""
	for i, order := range shortOrders {
		if forcedClosePrice < order.LowPrice {
			if i > 0 {
				insertAfterID = shortOrders[i-1].OrderID
			}
			break
		}
	}

	currentPrice = h.GetPrice()
	forcedClosePriceMoved := forcedClosePrice * (1 - params.ForceMoveRate)
	priceDifferencePercentage := (forcedClosePriceMoved - currentPrice) / currentPrice * 100

	return true, ShortFastOpenResult{
		BaseAmount:                baseAmount,
		LendAmount:                lendAmount,
		ForcedClosePrice:          forcedClosePrice,
		InsertAfterID:             insertAfterID,
		ForcedClosePriceMoved:     forcedClosePriceMoved,
		PriceDifferencePercentage: priceDifferencePercentage,
	}, "ok"
}

// LongFastOpenResult is the accepted plan a caller should then submit via
// OpenLong.
type LongFastOpenResult struct {
	BaseAmount                float64
	LendAmount1               float64
	Amount0Out                float64
	ForcedClosePrice          float64
	InsertAfterID             string
	ForcedClosePriceMoved     float64
	PriceDifferencePercentage float64
}

// LongFastOpen searches for a forcedClosePrice that is solvent and
// disjoint from the long book, starting at
// max(current_price*(1-1/levMult), current_price*0.1) and stepping up by a
// factor of 1.02 per iteration. Grounded on swaphub.py's long_fast_open.
func (h *Hub) LongFastOpen(baseAmount, levMult float64) (bool, LongFastOpenResult, string) {
	params := h.pool.Params()
	totalAmount := baseAmount * levMult

	currentPrice := h.GetPrice()
	forcedClosePrice := currentPrice * (1 - 1/levMult)
	if floor := currentPrice * 0.1; forcedClosePrice < floor {
		forcedClosePrice = floor
	}
	reserve0, reserve1 := h.GetReserves()
	lendAmount1 := totalAmount - baseAmount

	var calc longOpenCalc
	valid := false
	const maxOpenIterations = 1000
	for i := 0; i < maxOpenIterations; i++ {
		valid, calc = calculateLongOpen(params, reserve0, reserve1, baseAmount, lendAmount1, forcedClosePrice, currentPrice)
		if valid {
			break
		}
		forcedClosePrice *= 1.02
		if forcedClosePrice >= currentPrice {
			return false, LongFastOpenResult{}, "unable to find a suitable forced close price"
		}
	}
	if !valid {
		return false, LongFastOpenResult{}, "reached maximum iterations searching for a forced close price"
	}

	longOrders := h.GetLongOrder(10000)

	highPrice := calc.forcedInitialHighPrice
	lowPrice := calc.forcedFinalLowPrice

	const maxOverlapIterations = 10000
	iteration := 0
	for ; iteration < maxOverlapIterations; iteration++ {
		hasIntersection := false
		for _, order := range longOrders {
			if (lowPrice <= order.HighPrice && highPrice >= order.LowPrice) ||
				(lowPrice >= order.LowPrice && lowPrice <= order.HighPrice) ||
				(highPrice >= order.LowPrice && highPrice <= order.HighPrice) ||
				(lowPrice <= order.LowPrice && highPrice >= order.HighPrice) {
				forcedClosePrice *= 1.02
				valid, calc = calculateLongOpen(params, reserve0, reserve1, baseAmount, lendAmount1, forcedClosePrice, currentPrice)
				if !valid {
					return false, LongFastOpenResult{}, "adjusted forced close price is no longer solvent"
				}
				highPrice = calc.forcedInitialHighPrice
				lowPrice = calc.forcedFinalLowPrice
				hasIntersection = true
				break
			}
		}
		if !hasIntersection {
			break
		}
	}
	if iteration == maxOverlapIterations {
		return false, LongFastOpenResult{}, "unable to find a non-overlapping forced close price"
	}

	insertAfterID := ""
	for i, order := range longOrders {
		if forcedClosePrice > order.HighPrice {
			if i > 0 {
				insertAfterID = longOrders[i-1].OrderID
			}
			break
		}
	}

	currentPrice = h.GetPrice()
	forcedClosePriceMoved := forcedClosePrice * (1 + params.ForceMoveRate)
	priceDifferencePercentage := (currentPrice - forcedClosePriceMoved) / currentPrice * 100

	return true, LongFastOpenResult{
		BaseAmount:                baseAmount,
		LendAmount1:               lendAmount1,
		Amount0Out:                calc.amount0Out,
		ForcedClosePrice:          forcedClosePrice,
		InsertAfterID:             insertAfterID,
		ForcedClosePriceMoved:     forcedClosePriceMoved,
		PriceDifferencePercentage: priceDifferencePercentage,
	}, "ok"
}

// ---- supplemented: calculate_profit_loss ----

// UnrealizedPnLPercent returns the unrealized profit/loss percentage of an
// open position relative to its posted collateral, without touching pool
// state. tokenAmount0 is the order's outstanding LendAmount0 for a short,
// or its BuyAmount0 for a long. Ported from swaphub.py's
// calculate_profit_loss.
func (h *Hub) UnrealizedPnLPercent(side orderbook.Side, baseAmount1, lendAmount1, tokenAmount0 float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	reserve0, reserve1 := h.pool.GetReserves()
	fee := h.pool.Params().Fee

	var profitLoss float64
	switch side {
	case orderbook.Short:
		in, err := swapmath.InverseSwap1InFor0Out(tokenAmount0, reserve0, reserve1, fee)
		if err != nil {
			return 0
		}
		profitLoss = lendAmount1 - in.AmountIn
	case orderbook.Long:
		sell, err := swapmath.SwapForward0to1(tokenAmount0, reserve0, reserve1, fee)
		if err != nil {
			return 0
		}
		profitLoss = sell.AmountOut - (baseAmount1 + lendAmount1)
	}

	return profitLoss / baseAmount1 * 100
}
