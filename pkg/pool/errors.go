package pool

import "errors"

var (
	ErrInsufficientBalance  = errors.New("pool: caller balance insufficient")
	ErrInsufficientLoanPool = errors.New("pool: loan reserve insufficient")
	ErrPriceMoveTooLarge    = errors.New("pool: trade would move price beyond forceMoveRate")
	ErrWouldLoseMoney       = errors.New("pool: forced liquidation would not cover borrowed funds plus fees")
	ErrBadForcedClosePrice  = errors.New("pool: forcedClosePrice is not on the correct side of spot")
	ErrZeroCloseAmount      = errors.New("pool: closeAmount0 must be greater than zero")
	ErrOrderNotFound        = errors.New("pool: order not found")
	ErrNotOrderOwner        = errors.New("pool: caller does not own this order")
	ErrWrongOrderSide       = errors.New("pool: order is not on the expected side")
	ErrCloseExceedsLoan     = errors.New("pool: closeAmount0 exceeds the order's outstanding loan")
	ErrThirdPartyNotDue     = errors.New("pool: order is not yet eligible for third-party liquidation")
	ErrPartialCloseTooSmall = errors.New("pool: partial close does not clear the forceMoveSlack threshold")
	ErrFullCloseRequired    = errors.New("pool: closing this amount would not move price beyond forceMoveRate; close the full position instead")
)
