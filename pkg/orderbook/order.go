package orderbook

import "github.com/ethereum/go-ethereum/common"

// Side distinguishes a leveraged short order (forced-close price above
// spot) from a leveraged long order (forced-close price below spot).
type Side int

const (
	Short Side = iota
	Long
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

// CloseType records how a closed order left the book.
type CloseType int

const (
	ClosedByOwner CloseType = iota
	ClosedByThirdParty
)

func (c CloseType) String() string {
	if c == ClosedByOwner {
		return "user"
	}
	return "third-party"
}

// Order is a single open (or, once closed, archived) leveraged position.
// The liquidation footprint [LowPrice, HighPrice] is the interval of spot
// prices a forced-liquidation sweep of this order would traverse; it must
// stay disjoint from every other order in the same book for as long as the
// order remains open.
type Order struct {
	OrderID  string
	Type     Side
	Address  common.Address

	OpenPrice        float64
	ForcedClosePrice float64
	LowPrice         float64
	HighPrice        float64

	// BaseAmount1 is the collateral the owner posted, in token1.
	BaseAmount1 float64

	// Short-only: LendAmount0 is the token0 borrowed from loanReserve0;
	// SellAmount1 is the token1 obtained by immediately selling it.
	LendAmount0 float64
	SellAmount1 float64

	// Long-only: LendAmount1 is the token1 borrowed from loanReserve1;
	// BuyAmount0 is the token0 bought with BaseAmount1+LendAmount1.
	LendAmount1 float64
	BuyAmount0  float64

	LoanFee    float64
	LoanDayFee float64
	ThirdFee   float64

	LoanTimeUnixSeconds int64

	HighNode string
	LowNode  string

	// RequestedInsertAfterID is the caller-supplied insertion hint at open
	// time, kept purely for diagnosing solver/book disagreements (it plays
	// no role in validation).
	RequestedInsertAfterID string

	// Populated only once the order is archived into history.
	ClosePrice          float64
	CloseTimeUnixSeconds int64
	CloseType           CloseType
	ProfitLoss          float64
	ProfitLossPercent   float64
}
