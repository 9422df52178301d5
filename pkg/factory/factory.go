// Package factory deploys new pools: it mints a fresh token0, derives a
// deterministic pool address, and wires a Pool against a shared Ledger.
// Grounded on _examples/original_source/src/shortswapv1factory.py (plus
// erc20factory.py's createErc20 for the minting half).
package factory

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/shortswap/internal/addrgen"
	"github.com/uhyunpark/shortswap/pkg/config"
	"github.com/uhyunpark/shortswap/pkg/ledger"
	"github.com/uhyunpark/shortswap/pkg/pool"
	"github.com/uhyunpark/shortswap/pkg/util"
)

// ErrPoolNotFound is returned by GetPool for an unknown address.
var ErrPoolNotFound = errors.New("factory: pool not found")

// Factory deploys pools against a shared Ledger. Unlike the Python
// original's random.choices(string.hexdigits) pool-address generator, pool
// and fee addresses are derived deterministically from a monotonic nonce
// (internal/addrgen), so two factories seeded identically produce identical
// addresses — useful for reproducible tests and for the Hub's price-history
// assertions to reference a stable pool address.
type Factory struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	log    *zap.Logger
	pools  map[common.Address]*pool.Pool
	nonce  uint64
}

// New returns a Factory backed by lg. Every pool it creates shares lg, so
// tokens minted by one pool are visible to swaps against any other. A nil
// log falls back to a real structured logger (pkg/util) rather than a
// no-op one, since an engine with no caller-supplied logger still wants
// its pool-creation and trading activity on record.
func New(lg *ledger.Ledger, log *zap.Logger) *Factory {
	if log == nil {
		if built, err := util.NewLogger(); err == nil {
			log = built
		} else {
			log = zap.NewNop()
		}
	}
	return &Factory{
		ledger: lg,
		log:    log,
		pools:  make(map[common.Address]*pool.Pool),
	}
}

// CreatePoolParams names every argument shortswapv1factory.py's createPool
// takes to configure the new token0 and the pool it is paired into.
type CreatePoolParams struct {
	Name     string
	Symbol   string
	Decimals uint8

	TotalSupply      float64
	ShortSupply      float64
	TokenBase        common.Address // token1
	TokenBaseAmount  float64        // reserve1
	LoanReserve1     float64

	PoolParams config.PoolParams
}

// CreatePool mints TotalSupply of a new token0 entirely to the derived
// pool address, constructs a Pool seeded with
// (TotalSupply-ShortSupply) as reserve0 and ShortSupply as loanReserve0,
// and registers it. Mirrors shortswapv1factory.py's createPool, minus the
// "mint to caller then transfer to pool" round trip: CreateToken already
// mints directly to the pool address, since nothing here models gas or an
// intermediate owner.
func (f *Factory) CreatePool(p CreatePoolParams) (common.Address, *pool.Pool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nonce++
	poolAddr := addrgen.Derive("pool:"+p.Symbol, f.nonce)
	token0Addr := addrgen.Derive("token0:"+p.Symbol, f.nonce)
	feeAddr := addrgen.Derive("fee:"+p.Symbol, f.nonce)

	f.ledger.CreateToken(token0Addr, poolAddr, p.Name, p.Symbol, p.Decimals, p.TotalSupply)

	token0InitialAmount := p.TotalSupply - p.ShortSupply
	pl := pool.New(
		token0Addr, p.TokenBase, poolAddr, feeAddr,
		token0InitialAmount, p.ShortSupply, p.TokenBaseAmount, p.LoanReserve1,
		f.ledger, p.PoolParams, f.log,
	)

	f.pools[poolAddr] = pl
	f.log.Info("pool created",
		zap.String("pool", poolAddr.Hex()),
		zap.String("token0", token0Addr.Hex()),
		zap.String("token1", p.TokenBase.Hex()),
		zap.Float64("totalSupply", p.TotalSupply),
		zap.Float64("shortSupply", p.ShortSupply),
	)
	return poolAddr, pl
}

// GetPool looks up a previously created pool by its address.
func (f *Factory) GetPool(poolAddr common.Address) (*pool.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pl, ok := f.pools[poolAddr]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return pl, nil
}

// Ledger returns the shared ledger backing every pool this factory deploys.
func (f *Factory) Ledger() *ledger.Ledger {
	return f.ledger
}
