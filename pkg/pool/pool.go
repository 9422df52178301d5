// Package pool implements the constant-product AMM pool with its paired
// lending reserves and liquidation order books: the six state-changing
// operations (Buy, Sell, OpenShort, OpenLong, CloseShort, CloseLong) and
// their getters. Every pre-check, fee bucket, and settlement formula here
// is grounded bit-for-bit on
// _examples/original_source/src/shortswapv1pool.py.
package pool

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/shortswap/pkg/config"
	"github.com/uhyunpark/shortswap/pkg/ledger"
	"github.com/uhyunpark/shortswap/pkg/orderbook"
	"github.com/uhyunpark/shortswap/pkg/swapmath"
)

// FeeAddress is where every swap/loan fee is transferred. In the Python
// source this is a hardcoded string ("0xFeeAddress"); here it is supplied
// at construction so a Factory can derive it deterministically per pool.
type Pool struct {
	Token0 common.Address
	Token1 common.Address
	Addr   common.Address

	FeeAddress common.Address

	ledger *ledger.Ledger
	book   *orderbook.Book
	params config.PoolParams
	log    *zap.Logger

	reserve0 float64
	reserve1 float64

	loanReserve0 float64
	loanReserve1 float64

	collateralShortAmount1 float64
	collateralLongAmount1  float64
}

// New constructs a Pool. token0InitialAmount seeds reserve0 (the remainder
// of token0's total supply after token0ShortSupply is set aside as
// loanReserve0); token1Amount seeds reserve1; loanReserve1 is the token1
// lending pool (hardcoded to 100000 in the Python source; exposed here as
// a parameter so a Factory can size it per deployment).
func New(
	token0, token1, addr, feeAddress common.Address,
	token0InitialAmount, token0ShortSupply, token1Amount, loanReserve1 float64,
	lg *ledger.Ledger,
	params config.PoolParams,
	log *zap.Logger,
) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		Token0:       token0,
		Token1:       token1,
		Addr:         addr,
		FeeAddress:   feeAddress,
		ledger:       lg,
		book:         orderbook.NewBook(params.OrderMaxLength),
		params:       params,
		log:          log,
		reserve0:     token0InitialAmount,
		reserve1:     token1Amount,
		loanReserve0: token0ShortSupply,
		loanReserve1: loanReserve1,
	}
}

// GetReserves returns the live pool reserves.
func (p *Pool) GetReserves() (reserve0, reserve1 float64) {
	return p.reserve0, p.reserve1
}

// GetPrice returns the current spot price of token0 in terms of token1.
func (p *Pool) GetPrice() float64 {
	return swapmath.Price(p.reserve0, p.reserve1)
}

// Params returns the pool's policy parameters, used by Hub's fast-open
// solvers to simulate opens without mutating pool state.
func (p *Pool) Params() config.PoolParams {
	return p.params
}

// Info is the read-only snapshot returned by GetInfo, mirroring
// shortswapv1pool.py's getInfo (every field except the factory backref).
type Info struct {
	Token0                 common.Address
	Token1                 common.Address
	Addr                   common.Address
	Reserve0               float64
	Reserve1               float64
	LoanReserve0           float64
	LoanReserve1           float64
	CollateralShortAmount1 float64
	CollateralLongAmount1  float64
	Fee                    float64
	LoanFee                float64
	LoanDayFee             float64
	ForcedCloseFee         float64
	ForcedCloseBaseAmount  float64
	LeverageLimit          float64
	LendingSecondLimit     int64
	ForceMoveRate          float64
	ForceMoveSlack         float64
}

// GetInfo returns a snapshot of every pool field.
func (p *Pool) GetInfo() Info {
	return Info{
		Token0:                 p.Token0,
		Token1:                 p.Token1,
		Addr:                   p.Addr,
		Reserve0:               p.reserve0,
		Reserve1:               p.reserve1,
		LoanReserve0:           p.loanReserve0,
		LoanReserve1:           p.loanReserve1,
		CollateralShortAmount1: p.collateralShortAmount1,
		CollateralLongAmount1:  p.collateralLongAmount1,
		Fee:                    p.params.Fee,
		LoanFee:                p.params.LoanFee,
		LoanDayFee:             p.params.LoanDayFee,
		ForcedCloseFee:         p.params.ForcedCloseFee,
		ForcedCloseBaseAmount:  p.params.ForcedCloseBaseAmount,
		LeverageLimit:          p.params.LeverageLimit,
		LendingSecondLimit:     p.params.LendingSecondLimit,
		ForceMoveRate:          p.params.ForceMoveRate,
		ForceMoveSlack:         p.params.ForceMoveSlack,
	}
}

// GetShortOrder walks the short book from startID (nearest node if "")
// returning up to num orders.
func (p *Pool) GetShortOrder(startID string, num int) []*orderbook.Order {
	return p.book.GetShortOrder(startID, num)
}

// GetLongOrder walks the long book from startID (nearest node if "")
// returning up to num orders.
func (p *Pool) GetLongOrder(startID string, num int) []*orderbook.Order {
	return p.book.GetLongOrder(startID, num)
}

// GetOrderByID looks up an open order in either book.
func (p *Pool) GetOrderByID(orderID string) (*orderbook.Order, bool) {
	return p.book.GetOrderByID(orderID)
}

// GetOrdersByAddress returns every open order owned by addr.
func (p *Pool) GetOrdersByAddress(addr common.Address) []*orderbook.Order {
	return p.book.GetOrdersByAddress(addr)
}

// GetAddressHistoryOrders returns addr's closed-order history.
func (p *Pool) GetAddressHistoryOrders(addr common.Address) []orderbook.Order {
	return p.book.GetAddressHistoryOrders(addr)
}

// ---- Buy / Sell ----

// Buy spends amount1 of token1 to buy token0 out of the pool. Mirrors
// shortswapv1pool.py's buy: rejects a trade that would move price beyond
// ForceMoveRate or that would overlap a short order's liquidation footprint.
func (p *Pool) Buy(caller common.Address, amount1 float64) (bool, string) {
	if err := p.buy(caller, amount1); err != nil {
		p.log.Warn("buy rejected", zap.String("caller", caller.Hex()), zap.Float64("amount1", amount1), zap.Error(err))
		return false, err.Error()
	}
	p.log.Info("buy", zap.String("caller", caller.Hex()), zap.Float64("amount1", amount1), zap.Float64("price", p.GetPrice()))
	return true, "ok"
}

func (p *Pool) buy(caller common.Address, amount1 float64) error {
	if p.ledger.BalanceOf(p.Token1, caller) < amount1 {
		return ErrInsufficientBalance
	}

	res, err := swapmath.SwapForward1to0(amount1, p.reserve0, p.reserve1, p.params.Fee)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientLoanPool, err)
	}

	priceChangeRate := (res.PriceAfter - res.PriceBefore) / res.PriceBefore
	if priceChangeRate > p.params.ForceMoveRate {
		return ErrPriceMoveTooLarge
	}
	if err := p.book.CheckShortOrderRange(res.PriceAfter, res.PriceBefore, ""); err != nil {
		return err
	}

	p.reserve0 = res.Reserve0
	p.reserve1 = res.Reserve1

	if err := p.ledger.Transfer(p.Token0, p.Addr, caller, res.AmountOut); err != nil {
		return err
	}
	if err := p.ledger.Transfer(p.Token1, caller, p.Addr, amount1); err != nil {
		return err
	}
	return p.ledger.Transfer(p.Token1, p.Addr, p.FeeAddress, res.FeeAmountIn)
}

// Sell spends amount0 of token0 to buy token1 out of the pool. Mirrors
// shortswapv1pool.py's sell: checks against the long book instead of the
// short book, since selling token0 pushes price down into long-liquidation
// territory.
func (p *Pool) Sell(caller common.Address, amount0 float64) (bool, string) {
	if err := p.sell(caller, amount0); err != nil {
		p.log.Warn("sell rejected", zap.String("caller", caller.Hex()), zap.Float64("amount0", amount0), zap.Error(err))
		return false, err.Error()
	}
	p.log.Info("sell", zap.String("caller", caller.Hex()), zap.Float64("amount0", amount0), zap.Float64("price", p.GetPrice()))
	return true, "ok"
}

func (p *Pool) sell(caller common.Address, amount0 float64) error {
	if p.ledger.BalanceOf(p.Token0, caller) < amount0 {
		return ErrInsufficientBalance
	}

	res, err := swapmath.SwapForward0to1(amount0, p.reserve0, p.reserve1, p.params.Fee)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientLoanPool, err)
	}

	priceChangeRate := (res.PriceBefore - res.PriceAfter) / res.PriceBefore
	if priceChangeRate > p.params.ForceMoveRate {
		return ErrPriceMoveTooLarge
	}
	if err := p.book.CheckLongOrderRange(res.PriceBefore, res.PriceAfter, ""); err != nil {
		return err
	}

	p.reserve0 = res.Reserve0
	p.reserve1 = res.Reserve1

	if err := p.ledger.Transfer(p.Token0, caller, p.Addr, amount0); err != nil {
		return err
	}
	if err := p.ledger.Transfer(p.Token1, p.Addr, caller, res.AmountOut); err != nil {
		return err
	}
	return p.ledger.Transfer(p.Token0, p.Addr, p.FeeAddress, res.FeeAmountIn)
}

// ---- OpenShort ----

// shortOpenFees computes the loan/day/third fee buckets for a simulated
// sale of sellAmount1 (the proceeds of selling lendAmount0). Grounded on
// shortswapv1pool.py's shortOpen and swaphub.py's calculate_short_open.
func (p *Pool) shortOpenFees(sellAmount1 float64) (loanFee, loanDayFee, thirdFee, totalFees float64) {
	loanFee = sellAmount1 * (1 - p.params.LoanFee)
	loanDayFee = sellAmount1 * (1 - p.params.LoanDayFee)
	forcedCloseFee := sellAmount1 * (1 - p.params.ForcedCloseFee)
	thirdFee = forcedCloseFee + p.params.ForcedCloseBaseAmount
	totalFees = loanFee + loanDayFee + thirdFee
	return
}

// OpenShort opens a leveraged short: baseAmount1 of token1 is posted as
// collateral, lendAmount0 of token0 is borrowed from loanReserve0 and
// immediately sold, and the resulting position is inserted into the short
// book keyed by the liquidation interval the forced buy-back at
// forcedClosePrice would traverse. Mirrors shortswapv1pool.py's shortOpen.
func (p *Pool) OpenShort(caller common.Address, baseAmount1, lendAmount0, forcedClosePrice float64, insertAfterID string) (bool, string) {
	orderID, err := p.openShort(caller, baseAmount1, lendAmount0, forcedClosePrice, insertAfterID)
	if err != nil {
		p.log.Warn("openShort rejected", zap.String("caller", caller.Hex()), zap.Error(err))
		return false, err.Error()
	}
	p.log.Info("openShort", zap.String("caller", caller.Hex()), zap.String("orderID", orderID),
		zap.Float64("baseAmount1", baseAmount1), zap.Float64("lendAmount0", lendAmount0),
		zap.Float64("forcedClosePrice", forcedClosePrice))
	return true, orderID
}

func (p *Pool) openShort(caller common.Address, baseAmount1, lendAmount0, forcedClosePrice float64, insertAfterID string) (string, error) {
	if forcedClosePrice <= p.GetPrice() {
		return "", ErrBadForcedClosePrice
	}
	if p.ledger.BalanceOf(p.Token1, caller) < baseAmount1 {
		return "", ErrInsufficientBalance
	}
	if p.loanReserve0 < lendAmount0 {
		return "", ErrInsufficientLoanPool
	}

	sell, err := swapmath.SwapForward0to1(lendAmount0, p.reserve0, p.reserve1, p.params.Fee)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInsufficientLoanPool, err)
	}
	priceChangeRate := (sell.PriceBefore - sell.PriceAfter) / sell.PriceBefore
	if priceChangeRate > p.params.ForceMoveRate {
		return "", ErrPriceMoveTooLarge
	}
	if err := p.book.CheckLongOrderRange(sell.PriceBefore, sell.PriceAfter, ""); err != nil {
		return "", err
	}

	loanFee, loanDayFee, thirdFee, totalFees := p.shortOpenFees(sell.AmountOut)

	forcedReserve0, forcedReserve1 := swapmath.ReservesAtPrice(forcedClosePrice, p.reserve0, p.reserve1)
	forced, err := swapmath.InverseSwap1InFor0Out(lendAmount0, forcedReserve0, forcedReserve1, p.params.Fee)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInsufficientLoanPool, err)
	}

	if forced.AmountIn+totalFees >= sell.AmountOut+baseAmount1 {
		return "", ErrWouldLoseMoney
	}

	lowPrice, highPrice := forcedPriceRange(forcedReserve0, forcedReserve1, forced)
	orderID := p.book.GenerateOrderID("short")
	node := &orderbook.Order{
		OrderID:                orderID,
		Type:                   orderbook.Short,
		Address:                caller,
		OpenPrice:              p.GetPrice(),
		ForcedClosePrice:       forcedClosePrice,
		LowPrice:               lowPrice,
		HighPrice:              highPrice,
		BaseAmount1:            baseAmount1,
		LendAmount0:            lendAmount0,
		SellAmount1:            sell.AmountOut,
		LoanFee:                loanFee,
		LoanDayFee:             loanDayFee,
		ThirdFee:               thirdFee,
		LoanTimeUnixSeconds:    time.Now().Unix(),
		RequestedInsertAfterID: insertAfterID,
	}

	if err := p.book.InsertShortOrder(node, insertAfterID); err != nil {
		return "", err
	}

	p.loanReserve0 -= lendAmount0
	p.reserve0 = sell.Reserve0
	p.reserve1 = sell.Reserve1

	if err := p.ledger.Transfer(p.Token1, caller, p.Addr, baseAmount1); err != nil {
		return orderID, err
	}
	if err := p.ledger.Transfer(p.Token0, p.Addr, p.FeeAddress, sell.FeeAmountIn); err != nil {
		return orderID, err
	}
	p.collateralShortAmount1 += baseAmount1 + sell.AmountOut
	return orderID, nil
}

// forcedPriceRange derives [lowPrice, highPrice] of a short order's
// liquidation footprint from the forced buy-back simulation: the pool's
// price before the buy-back (low) and after (high), i.e. the interval a
// forced sweep would traverse.
func forcedPriceRange(forcedReserve0, forcedReserve1 float64, forced swapmath.InverseResult) (lowPrice, highPrice float64) {
	lowPrice = swapmath.Price(forcedReserve0, forcedReserve1)
	highPrice = swapmath.Price(forced.Reserve0, forced.Reserve1)
	return
}

// ---- OpenLong ----

// OpenLong opens a leveraged long: baseAmount1 of token1 is posted as
// collateral, lendAmount1 of token1 is borrowed from loanReserve1, and
// baseAmount1+lendAmount1 is spent buying token0 immediately. Mirrors
// shortswapv1pool.py's longOpen, with the corrected (non-doubled) solvency
// check — see DESIGN.md / SPEC_FULL.md §4.1.
func (p *Pool) OpenLong(caller common.Address, baseAmount1, lendAmount1, forcedClosePrice float64, insertAfterID string) (bool, string) {
	orderID, err := p.openLong(caller, baseAmount1, lendAmount1, forcedClosePrice, insertAfterID)
	if err != nil {
		p.log.Warn("openLong rejected", zap.String("caller", caller.Hex()), zap.Error(err))
		return false, err.Error()
	}
	p.log.Info("openLong", zap.String("caller", caller.Hex()), zap.String("orderID", orderID),
		zap.Float64("baseAmount1", baseAmount1), zap.Float64("lendAmount1", lendAmount1),
		zap.Float64("forcedClosePrice", forcedClosePrice))
	return true, orderID
}

func (p *Pool) openLong(caller common.Address, baseAmount1, lendAmount1, forcedClosePrice float64, insertAfterID string) (string, error) {
	if forcedClosePrice >= p.GetPrice() || forcedClosePrice <= 0 {
		return "", ErrBadForcedClosePrice
	}
	if p.ledger.BalanceOf(p.Token1, caller) < baseAmount1 {
		return "", ErrInsufficientBalance
	}
	if p.loanReserve1 < lendAmount1 {
		return "", ErrInsufficientLoanPool
	}

	totalBaseAmount := baseAmount1 + lendAmount1
	loanFee := lendAmount1 * (1 - p.params.LoanFee)
	loanDayFee := lendAmount1 * (1 - p.params.LoanDayFee)
	forcedCloseFee := lendAmount1 * (1 - p.params.ForcedCloseFee)
	thirdFee := forcedCloseFee + p.params.ForcedCloseBaseAmount
	totalFees := loanFee + loanDayFee + thirdFee

	buy, err := swapmath.SwapForward1to0(totalBaseAmount, p.reserve0, p.reserve1, p.params.Fee)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInsufficientLoanPool, err)
	}
	priceChangeRate := (buy.PriceAfter - buy.PriceBefore) / buy.PriceBefore
	if priceChangeRate > p.params.ForceMoveRate {
		return "", ErrPriceMoveTooLarge
	}
	if err := p.book.CheckShortOrderRange(buy.PriceAfter, buy.PriceBefore, ""); err != nil {
		return "", err
	}

	forcedReserve0, forcedReserve1 := swapmath.ReservesAtPrice(forcedClosePrice, p.reserve0, p.reserve1)
	forcedSell, err := swapmath.SwapForward0to1(buy.AmountOut, forcedReserve0, forcedReserve1, p.params.Fee)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInsufficientLoanPool, err)
	}

	// Corrected solvency check (single term, not the Python source's
	// doubled forced_amount1_out + forced_amount1_out).
	if forcedSell.AmountOut < lendAmount1+totalFees {
		return "", ErrWouldLoseMoney
	}

	orderID := p.book.GenerateOrderID("long")
	node := &orderbook.Order{
		OrderID:                orderID,
		Type:                   orderbook.Long,
		Address:                caller,
		OpenPrice:              p.GetPrice(),
		ForcedClosePrice:       forcedClosePrice,
		LowPrice:               forcedSell.PriceAfter,
		HighPrice:              forcedSell.PriceBefore,
		BaseAmount1:            baseAmount1,
		LendAmount1:            lendAmount1,
		BuyAmount0:             buy.AmountOut,
		LoanFee:                loanFee,
		LoanDayFee:             loanDayFee,
		ThirdFee:               thirdFee,
		LoanTimeUnixSeconds:    time.Now().Unix(),
		RequestedInsertAfterID: insertAfterID,
	}

	if err := p.book.InsertLongOrder(node, insertAfterID); err != nil {
		return "", err
	}

	p.loanReserve1 -= lendAmount1
	p.reserve0 = buy.Reserve0
	p.reserve1 = buy.Reserve1

	if err := p.ledger.Transfer(p.Token1, caller, p.Addr, baseAmount1); err != nil {
		return orderID, err
	}
	if err := p.ledger.Transfer(p.Token1, p.Addr, p.FeeAddress, buy.FeeAmountIn); err != nil {
		return orderID, err
	}
	p.collateralLongAmount1 += baseAmount1
	return orderID, nil
}

// ---- CloseShort ----

// CloseShort buys back closeAmount0 of the order's outstanding lendAmount0
// and refunds the owner their share of collateral net of fees. A
// third-party caller may force-close only once the order has crossed its
// forceMoveRate threshold or exceeded LendingSecondLimit in age. Mirrors
// shortswapv1pool.py's shortClose.
func (p *Pool) CloseShort(caller common.Address, orderID string, closeAmount0 float64, isThirdParty bool) (bool, string) {
	if err := p.closeShort(caller, orderID, closeAmount0, isThirdParty); err != nil {
		p.log.Warn("closeShort rejected", zap.String("caller", caller.Hex()), zap.String("orderID", orderID), zap.Error(err))
		return false, err.Error()
	}
	p.log.Info("closeShort", zap.String("caller", caller.Hex()), zap.String("orderID", orderID), zap.Float64("closeAmount0", closeAmount0))
	return true, "ok"
}

func (p *Pool) closeShort(caller common.Address, orderID string, closeAmount0 float64, isThirdParty bool) error {
	if closeAmount0 <= 0 {
		return ErrZeroCloseAmount
	}
	order, ok := p.book.GetOrderByID(orderID)
	if !ok || order.Type != orderbook.Short {
		return ErrOrderNotFound
	}

	if isThirdParty {
		thresholdPrice := order.ForcedClosePrice * (1 - p.params.ForceMoveRate)
		timeExceeded := time.Now().Unix()-order.LoanTimeUnixSeconds > p.params.LendingSecondLimit
		if p.GetPrice() < thresholdPrice && !timeExceeded {
			return ErrThirdPartyNotDue
		}
	} else if order.Address != caller {
		return ErrNotOrderOwner
	}

	if order.LendAmount0 < closeAmount0 {
		return ErrCloseExceedsLoan
	}

	if closeAmount0 != order.LendAmount0 {
		full, err := swapmath.InverseSwap1InFor0Out(order.LendAmount0, p.reserve0, p.reserve1, p.params.Fee)
		if err != nil {
			return err
		}
		fullChangeRate := (full.Reserve1/full.Reserve0 - p.reserve1/p.reserve0) / (p.reserve1 / p.reserve0)
		if fullChangeRate <= p.params.ForceMoveRate {
			return ErrFullCloseRequired
		}

		partial, err := swapmath.InverseSwap1InFor0Out(closeAmount0, p.reserve0, p.reserve1, p.params.Fee)
		if err != nil {
			return err
		}
		partialChangeRate := (partial.Reserve1/partial.Reserve0 - p.reserve1/p.reserve0) / (p.reserve1 / p.reserve0)
		if partialChangeRate < p.params.ForceMoveSlack {
			return ErrPartialCloseTooSmall
		}
	}

	closeRate := closeAmount0 / order.LendAmount0
	closeBaseAmount := order.BaseAmount1 * closeRate
	closeSellAmount1 := order.SellAmount1 * closeRate
	closeLoanFee := order.LoanFee * closeRate
	closeLoanDayFee := order.LoanDayFee * closeRate
	closeThirdFee := 0.0
	if isThirdParty {
		closeThirdFee = order.ThirdFee * closeRate
	}

	buyback, err := swapmath.InverseSwap1InFor0Out(closeAmount0, p.reserve0, p.reserve1, p.params.Fee)
	if err != nil {
		return err
	}

	newPriceBefore := p.reserve1 / p.reserve0
	newPriceAfter := buyback.Reserve1 / buyback.Reserve0
	if closeAmount0 != order.LendAmount0 {
		changeRate := (newPriceAfter - newPriceBefore) / newPriceBefore
		if changeRate < p.params.ForceMoveSlack {
			return ErrPartialCloseTooSmall
		}
	}
	if err := p.book.CheckShortOrderRange(newPriceAfter, newPriceBefore, orderID); err != nil {
		return err
	}

	p.reserve0 = buyback.Reserve0
	p.reserve1 = buyback.Reserve1

	closeAmount1 := (closeBaseAmount + closeSellAmount1) - buyback.AmountIn
	loanFeeAmount := closeLoanFee + closeLoanDayFee
	refundAmount := closeAmount1 - loanFeeAmount - closeThirdFee

	allFeeAmount1 := buyback.FeeAmountIn + loanFeeAmount
	if err := p.ledger.Transfer(p.Token1, p.Addr, p.FeeAddress, allFeeAmount1); err != nil {
		return err
	}
	p.loanReserve0 += closeAmount0
	if err := p.ledger.Transfer(p.Token1, p.Addr, order.Address, refundAmount); err != nil {
		return err
	}
	if isThirdParty {
		if err := p.ledger.Transfer(p.Token1, p.Addr, caller, closeThirdFee); err != nil {
			return err
		}
	}

	if closeAmount0 == order.LendAmount0 {
		order.ClosePrice = p.GetPrice()
		order.CloseTimeUnixSeconds = time.Now().Unix()
		if isThirdParty {
			order.CloseType = orderbook.ClosedByThirdParty
		} else {
			order.CloseType = orderbook.ClosedByOwner
		}
		order.ProfitLoss = refundAmount - order.BaseAmount1
		order.ProfitLossPercent = order.ProfitLoss / order.BaseAmount1
		return p.book.DeleteShortOrder(orderID, *order)
	}

	order.BaseAmount1 -= closeBaseAmount
	order.SellAmount1 -= closeSellAmount1
	order.ThirdFee -= closeThirdFee
	order.LoanFee -= closeLoanFee
	order.LoanDayFee -= closeLoanDayFee
	order.LendAmount0 -= closeAmount0

	forcedReserve0, forcedReserve1 := swapmath.ReservesAtPrice(order.ForcedClosePrice, p.reserve0, p.reserve1)
	forced, err := swapmath.InverseSwap1InFor0Out(order.LendAmount0, forcedReserve0, forcedReserve1, p.params.Fee)
	if err != nil {
		return err
	}
	order.LowPrice = forcedReserve1 / forcedReserve0
	order.HighPrice = forced.Reserve1 / forced.Reserve0
	return nil
}

// ---- CloseLong ----

// CloseLong sells back closeAmount0 of the order's outstanding buyAmount0
// and refunds the owner their share of proceeds net of fees. Mirrors
// shortswapv1pool.py's longClose.
func (p *Pool) CloseLong(caller common.Address, orderID string, closeAmount0 float64, isThirdParty bool) (bool, string) {
	if err := p.closeLong(caller, orderID, closeAmount0, isThirdParty); err != nil {
		p.log.Warn("closeLong rejected", zap.String("caller", caller.Hex()), zap.String("orderID", orderID), zap.Error(err))
		return false, err.Error()
	}
	p.log.Info("closeLong", zap.String("caller", caller.Hex()), zap.String("orderID", orderID), zap.Float64("closeAmount0", closeAmount0))
	return true, "ok"
}

func (p *Pool) closeLong(caller common.Address, orderID string, closeAmount0 float64, isThirdParty bool) error {
	if closeAmount0 <= 0 {
		return ErrZeroCloseAmount
	}
	order, ok := p.book.GetOrderByID(orderID)
	if !ok || order.Type != orderbook.Long {
		return ErrOrderNotFound
	}

	if isThirdParty {
		thresholdPrice := order.ForcedClosePrice * (1 + p.params.ForceMoveRate)
		timeExceeded := time.Now().Unix()-order.LoanTimeUnixSeconds > p.params.LendingSecondLimit
		if p.GetPrice() > thresholdPrice && !timeExceeded {
			return ErrThirdPartyNotDue
		}
	} else if order.Address != caller {
		return ErrNotOrderOwner
	}

	if order.BuyAmount0 < closeAmount0 {
		return ErrCloseExceedsLoan
	}

	if closeAmount0 != order.BuyAmount0 {
		full, err := swapmath.SwapForward0to1(order.BuyAmount0, p.reserve0, p.reserve1, p.params.Fee)
		if err != nil {
			return err
		}
		fullChangeRate := (full.PriceBefore - full.PriceAfter) / full.PriceBefore
		if fullChangeRate <= p.params.ForceMoveRate {
			return ErrFullCloseRequired
		}
	}

	closeRate := closeAmount0 / order.BuyAmount0
	closeLoanFee := order.LoanFee * closeRate
	closeLoanDayFee := order.LoanDayFee * closeRate
	closeLendAmount1 := order.LendAmount1 * closeRate
	closeThirdFee := 0.0
	if isThirdParty {
		closeThirdFee = order.ThirdFee * closeRate
	}

	sell, err := swapmath.SwapForward0to1(closeAmount0, p.reserve0, p.reserve1, p.params.Fee)
	if err != nil {
		return err
	}

	if closeAmount0 != order.BuyAmount0 {
		changeRate := (sell.PriceBefore - sell.PriceAfter) / sell.PriceBefore
		if changeRate < p.params.ForceMoveSlack {
			return ErrPartialCloseTooSmall
		}
	}
	if err := p.book.CheckLongOrderRange(sell.PriceBefore, sell.PriceAfter, orderID); err != nil {
		return err
	}

	p.reserve0 = sell.Reserve0
	p.reserve1 = sell.Reserve1

	// fee_amount1 here is denominated in token0 (the asset sold), matching
	// the Python source's longClose, which pays this particular fee out in
	// the sold token rather than in token1.
	if err := p.ledger.Transfer(p.Token0, p.Addr, p.FeeAddress, sell.FeeAmountIn); err != nil {
		return err
	}

	loanFeeAmount := closeLoanFee + closeLoanDayFee
	refundAmount := sell.AmountOut - loanFeeAmount - closeLendAmount1 - closeThirdFee

	if err := p.ledger.Transfer(p.Token1, p.Addr, p.FeeAddress, loanFeeAmount); err != nil {
		return err
	}
	p.loanReserve1 += closeLendAmount1
	if err := p.ledger.Transfer(p.Token1, p.Addr, order.Address, refundAmount); err != nil {
		return err
	}
	if isThirdParty {
		if err := p.ledger.Transfer(p.Token1, p.Addr, caller, closeThirdFee); err != nil {
			return err
		}
	}

	if closeAmount0 == order.BuyAmount0 {
		order.ClosePrice = p.GetPrice()
		order.CloseTimeUnixSeconds = time.Now().Unix()
		if isThirdParty {
			order.CloseType = orderbook.ClosedByThirdParty
		} else {
			order.CloseType = orderbook.ClosedByOwner
		}
		order.ProfitLoss = refundAmount - order.BaseAmount1
		order.ProfitLossPercent = order.ProfitLoss / order.BaseAmount1
		return p.book.DeleteLongOrder(orderID, *order)
	}

	order.BuyAmount0 -= closeAmount0
	order.LendAmount1 -= closeLendAmount1
	order.ThirdFee -= closeThirdFee
	order.LoanFee -= closeLoanFee
	order.LoanDayFee -= closeLoanDayFee

	forcedReserve0, forcedReserve1 := swapmath.ReservesAtPrice(order.ForcedClosePrice, p.reserve0, p.reserve1)
	forcedSell, err := swapmath.SwapForward0to1(order.BuyAmount0, forcedReserve0, forcedReserve1, p.params.Fee)
	if err != nil {
		return err
	}
	order.HighPrice = forcedSell.PriceBefore
	order.LowPrice = forcedSell.PriceAfter
	return nil
}
