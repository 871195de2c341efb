// Package engine implements the long-lived exchange engine: it owns the
// current state, executes operations atomically, persists snapshots and
// publishes events.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"nativeswap/core/state"
	"nativeswap/core/token"
	"nativeswap/core/tx"
	"nativeswap/core/types"
	"nativeswap/node/config"
)

const snapshotFile = "state.gob"

// Engine executes operations against the world state, one at a time.
// Writers serialize on the mutex; committed states are never mutated
// again, so readers only need the pointer.
type Engine struct {
	cfg     *config.Config
	log     *zap.Logger
	exec    *tx.Executor
	metrics *Metrics

	mu    sync.RWMutex
	state *state.State

	feed event.Feed

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an engine, restoring the last snapshot from the data dir if
// one exists and building the genesis state from config otherwise.
func New(cfg *config.Config, log *zap.Logger) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		log:     log,
		exec:    tx.NewExecutor(),
		metrics: NewMetrics(),
	}

	st, err := e.restore()
	if err != nil {
		return nil, err
	}
	if st != nil {
		e.log.Info("restored state snapshot",
			zap.String("root", st.StateHash().Hex()))
	} else {
		st, err = genesisState(cfg)
		if err != nil {
			return nil, err
		}
		e.log.Info("built genesis state",
			zap.Int("tokens", len(st.Tokens)),
			zap.Uint64("fee_rate", cfg.FeeRate))
	}
	e.state = st
	return e, nil
}

func genesisState(cfg *config.Config) (*state.State, error) {
	st := state.NewState(cfg.FeeRate)
	for _, tc := range cfg.Tokens {
		id, err := types.HexToAssetID(tc.ID)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", tc.Symbol, err)
		}
		if id == types.ZeroAsset {
			return nil, fmt.Errorf("token %s: %w", tc.Symbol, types.ErrInvalidAsset)
		}
		st.AddToken(token.New(id, tc.Name, tc.Symbol, tc.Decimals))
	}
	for _, bc := range cfg.Genesis {
		addr, err := types.HexToAddress(bc.Address)
		if err != nil {
			return nil, fmt.Errorf("genesis balance: %w", err)
		}
		amount, ok := new(big.Int).SetString(bc.Amount, 10)
		if !ok || amount.Sign() < 0 {
			return nil, fmt.Errorf("genesis balance for %s: bad amount %q", bc.Address, bc.Amount)
		}
		if bc.Asset == "" {
			st.CreditNative(addr, amount)
			continue
		}
		asset, err := types.HexToAssetID(bc.Asset)
		if err != nil {
			return nil, fmt.Errorf("genesis balance: %w", err)
		}
		t := st.Token(asset)
		if t == nil {
			return nil, fmt.Errorf("genesis balance for %s: %w", bc.Asset, types.ErrNoSuchToken)
		}
		t.Mint(addr, amount)
	}
	return st, nil
}

// Start launches the snapshot loop.
func (e *Engine) Start(ctx context.Context) error {
	ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.snapshotLoop(ctx)
	return nil
}

// Stop stops the engine and writes a final snapshot.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	if err := e.snapshot(); err != nil {
		e.log.Error("final snapshot failed", zap.Error(err))
	}
}

// Submit executes one operation. On success the result's state becomes
// the engine's current state and its events are published.
func (e *Engine) Submit(op *tx.Operation) *tx.ExecuteResult {
	res := e.execute(op)

	e.metrics.observe(op.Type.String(), res.Success)
	if res.Success {
		e.log.Info("operation executed",
			zap.String("op", op.Type.String()),
			zap.String("caller", op.Caller.Hex()),
			zap.String("root", res.StateRoot.Hex()))
		if len(res.Events) > 0 {
			e.feed.Send(res.Events)
		}
	} else {
		e.log.Info("operation rejected",
			zap.String("op", op.Type.String()),
			zap.String("caller", op.Caller.Hex()),
			zap.Error(res.Error))
	}
	return res
}

// execute runs one operation and commits the resulting state. The deferred
// unlock keeps the engine usable even if execution panics.
func (e *Engine) execute(op *tx.Operation) *tx.ExecuteResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	res := e.exec.Execute(e.state, op)
	if res.Success {
		e.state = res.State
	}
	return res
}

// State returns the current committed state. The returned state must be
// treated as read-only.
func (e *Engine) State() *state.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// SubscribeEvents subscribes ch to the per-operation event batches.
func (e *Engine) SubscribeEvents(ch chan<- []tx.Event) event.Subscription {
	return e.feed.Subscribe(ch)
}

func (e *Engine) snapshotLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.SnapshotInterval.Std())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.snapshot(); err != nil {
				e.log.Error("snapshot failed", zap.Error(err))
			}
		}
	}
}

func (e *Engine) snapshot() error {
	st := e.State()
	data, err := st.Serialize()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(e.cfg.DataDir, snapshotFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (e *Engine) restore() (*state.State, error) {
	path := filepath.Join(e.cfg.DataDir, snapshotFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st, err := state.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot %s: %w", path, err)
	}
	return st, nil
}
