// Package portfolio aggregates a user's holdings across chains into one
// dashboard: reconciled value breakdown, recent activity, yield and
// alerts. Aggregation fans out in parallel and follows a partial-result
// policy: a failing section is logged and excluded, never fatal.
package portfolio

import (
	"context"
	"log/slog"
	"math/big"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/cubecore/chainops/internal/cache"
	"github.com/cubecore/chainops/internal/chain"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/market"
	"github.com/cubecore/chainops/internal/metrics"
	"github.com/cubecore/chainops/internal/store"
)

const (
	dashboardTTL    = 2 * time.Minute
	recentTxLimit   = 10
	ledgerLookback  = 30 * 24 * time.Hour
	stalePendingAge = 10 * time.Minute
)

// CollectionHolding groups a user's NFTs under one collection.
type CollectionHolding struct {
	CollectionID uuid.UUID       `json:"collectionId"`
	Count        int             `json:"count"`
	Value        decimal.Decimal `json:"value"`
}

// Alert is a user-facing warning derived from the ledger.
type Alert struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // info | warning
}

// Performance summarizes ledger activity over the lookback window.
type Performance struct {
	WindowDays  int             `json:"windowDays"`
	TxTotal     int             `json:"txTotal"`
	TxConfirmed int             `json:"txConfirmed"`
	TxFailed    int             `json:"txFailed"`
	SuccessRate decimal.Decimal `json:"successRate"` // percent, 2dp
}

// Dashboard is the aggregated view returned to the client.
type Dashboard struct {
	UserID             string                   `json:"userId"`
	Breakdown          model.PortfolioBreakdown `json:"breakdown"`
	BlendedYieldAPY    decimal.Decimal          `json:"blendedYieldApy"`
	RecentTransactions []model.Transaction      `json:"recentTransactions"`
	ActiveStaking      []model.StakingPosition  `json:"activeStaking"`
	NftHoldings        []CollectionHolding      `json:"nftHoldings"`
	DefiPositions      []model.DefiPosition     `json:"defiPositions"`
	Market             map[string]market.Quote  `json:"market"`
	Alerts             []Alert                  `json:"alerts"`
	Performance        Performance              `json:"performance"`
	GeneratedAt        time.Time                `json:"generatedAt"`
}

// Engine builds dashboards over the repositories and chain clients.
type Engine struct {
	networks  *chain.Registry
	wallets   store.WalletRepository
	txRepo    store.TransactionRepository
	tokens    store.TokenRepository
	nfts      store.NftRepository
	staking   store.StakingRepository
	defi      store.DefiRepository
	snapshots store.SnapshotRepository
	market    market.Source

	cache  *cache.TTL[string, *Dashboard]
	logger *slog.Logger
	nowFn  func() time.Time
}

type EngineConfig struct {
	Networks  *chain.Registry
	Wallets   store.WalletRepository
	Transacts store.TransactionRepository
	Tokens    store.TokenRepository
	Nfts      store.NftRepository
	Staking   store.StakingRepository
	Defi      store.DefiRepository
	Snapshots store.SnapshotRepository
	Market    market.Source
	Logger    *slog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		networks:  cfg.Networks,
		wallets:   cfg.Wallets,
		txRepo:    cfg.Transacts,
		tokens:    cfg.Tokens,
		nfts:      cfg.Nfts,
		staking:   cfg.Staking,
		defi:      cfg.Defi,
		snapshots: cfg.Snapshots,
		market:    cfg.Market,
		cache:     cache.NewTTL[string, *Dashboard](dashboardTTL),
		logger:    cfg.Logger.With("component", "portfolio"),
		nowFn:     time.Now,
	}
}

// Dashboard returns the aggregated portfolio view, served from cache
// within the snapshot TTL. A fresh build is persisted as an immutable
// snapshot record.
func (e *Engine) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	if cached, ok := e.cache.Get(userID); ok {
		metrics.DashboardBuilds.WithLabelValues("cache").Inc()
		return cached, nil
	}

	started := e.nowFn()
	d, err := e.build(ctx, userID)
	if err != nil {
		return nil, err
	}
	metrics.DashboardBuilds.WithLabelValues("fresh").Inc()
	metrics.DashboardBuildLatency.Observe(time.Since(started).Seconds())

	e.cache.Put(userID, d)
	e.persistSnapshot(ctx, d)
	return d, nil
}

// sections holds the raw fan-out results before reconciliation.
type sections struct {
	walletValue  decimal.Decimal
	tokenValue   decimal.Decimal
	nftValue     decimal.Decimal
	stakingValue decimal.Decimal
	defiValue    decimal.Decimal

	recentTx []model.Transaction
	ledgerTx []model.Transaction
	staking  []model.StakingPosition
	holdings []CollectionHolding
	defi     []model.DefiPosition
	quotes   map[string]market.Quote
}

func (e *Engine) build(ctx context.Context, userID string) (*Dashboard, error) {
	var s sections

	quotes := e.fetchQuotes(ctx, userID)
	s.quotes = quotes

	// Each section swallows its own error: a broken sub-query degrades
	// the dashboard instead of failing it.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		value, err := e.walletValue(gctx, userID, quotes)
		if err != nil {
			e.sectionFailed("wallets", userID, err)
			return nil
		}
		s.walletValue = value
		return nil
	})

	g.Go(func() error {
		value, err := e.tokenValue(gctx, userID, quotes)
		if err != nil {
			e.sectionFailed("tokens", userID, err)
			return nil
		}
		s.tokenValue = value
		return nil
	})

	g.Go(func() error {
		holdings, value, err := e.nftHoldings(gctx, userID)
		if err != nil {
			e.sectionFailed("nfts", userID, err)
			return nil
		}
		s.holdings, s.nftValue = holdings, value
		return nil
	})

	g.Go(func() error {
		positions, err := e.staking.ListActivePositions(gctx, userID)
		if err != nil {
			e.sectionFailed("staking", userID, err)
			return nil
		}
		s.staking = positions
		for _, p := range positions {
			s.stakingValue = s.stakingValue.Add(p.ValueFiat).Add(e.rewardValue(gctx, &p, quotes))
		}
		return nil
	})

	g.Go(func() error {
		positions, err := e.defi.ListActiveByUser(gctx, userID)
		if err != nil {
			e.sectionFailed("defi", userID, err)
			return nil
		}
		s.defi = positions
		for _, p := range positions {
			s.defiValue = s.defiValue.Add(p.ValueFiat)
		}
		return nil
	})

	g.Go(func() error {
		history, err := e.txRepo.History(gctx, userID, store.HistoryFilter{Limit: 200})
		if err != nil {
			e.sectionFailed("ledger", userID, err)
			return nil
		}
		s.ledgerTx = history
		if len(history) > recentTxLimit {
			s.recentTx = history[:recentTxLimit]
		} else {
			s.recentTx = history
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := e.nowFn().UTC()
	breakdown := reconcile(s.walletValue.Add(s.tokenValue), s.nftValue, s.stakingValue, s.defiValue)

	d := &Dashboard{
		UserID:             userID,
		Breakdown:          breakdown,
		BlendedYieldAPY:    e.blendedYield(ctx, s.staking, s.defi),
		RecentTransactions: s.recentTx,
		ActiveStaking:      s.staking,
		NftHoldings:        s.holdings,
		DefiPositions:      s.defi,
		Market:             s.quotes,
		Performance:        performanceOf(s.ledgerTx, now),
		Alerts:             alertsOf(s.ledgerTx, now),
		GeneratedAt:        now,
	}
	return d, nil
}

func (e *Engine) sectionFailed(section, userID string, err error) {
	metrics.DashboardPartialFailures.WithLabelValues(section).Inc()
	e.logger.Warn("dashboard section failed", "section", section, "user_id", userID, "error", err)
}

// reconcile forces the invariant Total == Tokens+Nfts+Staking+Defi at
// two decimal places. When the wallet-derived figure exceeds the typed
// sub-ledgers the token bucket absorbs the residual.
func reconcile(tokenSide, nfts, staking, defi decimal.Decimal) model.PortfolioBreakdown {
	nfts = nfts.Round(2)
	staking = staking.Round(2)
	defi = defi.Round(2)
	tokens := tokenSide.Round(2)
	if tokens.Sign() < 0 {
		tokens = decimal.Zero
	}
	total := tokens.Add(nfts).Add(staking).Add(defi)
	return model.PortfolioBreakdown{
		Total:   total,
		Tokens:  tokens,
		Nfts:    nfts,
		Staking: staking,
		Defi:    defi,
	}
}

// fetchQuotes pulls market data for the symbols the user's holdings can
// reference: every registered network's native symbol plus the user's
// token symbols. Quote failure degrades valuations to zero.
func (e *Engine) fetchQuotes(ctx context.Context, userID string) map[string]market.Quote {
	symbols := make([]string, 0, 8)
	seen := make(map[string]bool)
	for _, desc := range e.networks.List() {
		if desc.Symbol != "" && !seen[desc.Symbol] {
			symbols = append(symbols, desc.Symbol)
			seen[desc.Symbol] = true
		}
	}
	if tokens, err := e.tokens.ListByUser(ctx, userID); err == nil {
		for _, tk := range tokens {
			if !seen[tk.Symbol] {
				symbols = append(symbols, tk.Symbol)
				seen[tk.Symbol] = true
			}
		}
	}

	quotes, err := e.market.Quotes(ctx, symbols)
	if err != nil {
		e.sectionFailed("market", userID, err)
		return map[string]market.Quote{}
	}
	return quotes
}

// walletValue prices each wallet's native balance. A single wallet's
// RPC failure is excluded, not fatal.
func (e *Engine) walletValue(ctx context.Context, userID string, quotes map[string]market.Quote) (decimal.Decimal, error) {
	wallets, err := e.wallets.ListByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, w := range wallets {
		desc, err := e.networks.Get(w.Network)
		if err != nil {
			e.sectionFailed("wallets", userID, err)
			continue
		}
		client, err := e.networks.Client(w.Network)
		if err != nil {
			e.sectionFailed("wallets", userID, err)
			continue
		}
		balance, err := client.NativeBalance(ctx, w.Address)
		if err != nil {
			e.sectionFailed("wallets", userID, err)
			continue
		}
		quote, ok := quotes[desc.Symbol]
		if !ok {
			continue
		}
		total = total.Add(scaleBaseUnits(balance, desc.Decimals).Mul(quote.Price))
	}
	return total, nil
}

// tokenValue prices the user's deployed tokens at their quoted price.
func (e *Engine) tokenValue(ctx context.Context, userID string, quotes map[string]market.Quote) (decimal.Decimal, error) {
	tokens, err := e.tokens.ListByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, tk := range tokens {
		if tk.Status != model.TokenStatusDeployed && tk.Status != model.TokenStatusActive {
			continue
		}
		quote, ok := quotes[tk.Symbol]
		if !ok {
			continue
		}
		supply, err := tk.SupplyBig()
		if err != nil {
			continue
		}
		total = total.Add(scaleBaseUnits(supply, tk.Decimals).Mul(quote.Price))
	}
	return total, nil
}

// rewardValue prices a position's accrued rewards, denominated in the
// pool's reward token, at the current quote. Rewards without a quote
// are excluded rather than counted at face value.
func (e *Engine) rewardValue(ctx context.Context, p *model.StakingPosition, quotes map[string]market.Quote) decimal.Decimal {
	if p.AccruedRewards.IsZero() {
		return decimal.Zero
	}
	pool, err := e.staking.GetPool(ctx, p.PoolID)
	if err != nil {
		return decimal.Zero
	}
	quote, ok := quotes[pool.RewardSymbol]
	if !ok {
		return decimal.Zero
	}
	return p.AccruedRewards.Mul(quote.Price)
}

func (e *Engine) nftHoldings(ctx context.Context, userID string) ([]CollectionHolding, decimal.Decimal, error) {
	nfts, err := e.nfts.ListByOwner(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	byCollection := make(map[uuid.UUID]*CollectionHolding)
	total := decimal.Zero
	for _, n := range nfts {
		if n.Status != model.NftStatusMinted {
			continue
		}
		h, ok := byCollection[n.CollectionID]
		if !ok {
			h = &CollectionHolding{CollectionID: n.CollectionID}
			byCollection[n.CollectionID] = h
		}
		h.Count++
		h.Value = h.Value.Add(n.EstimatedValue)
		total = total.Add(n.EstimatedValue)
	}

	out := make([]CollectionHolding, 0, len(byCollection))
	for _, h := range byCollection {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})
	return out, total, nil
}

// blendedYield is the value-weighted average APY over staking and DeFi
// positions. Positions without a numeric APY are excluded from the
// weighting entirely.
func (e *Engine) blendedYield(ctx context.Context, staking []model.StakingPosition, defi []model.DefiPosition) decimal.Decimal {
	weighted := decimal.Zero
	weight := decimal.Zero

	for _, p := range staking {
		if p.ValueFiat.Sign() <= 0 {
			continue
		}
		pool, err := e.staking.GetPool(ctx, p.PoolID)
		if err != nil {
			continue
		}
		weighted = weighted.Add(p.ValueFiat.Mul(pool.APY))
		weight = weight.Add(p.ValueFiat)
	}
	for _, p := range defi {
		if p.APY == nil || p.ValueFiat.Sign() <= 0 {
			continue
		}
		weighted = weighted.Add(p.ValueFiat.Mul(*p.APY))
		weight = weight.Add(p.ValueFiat)
	}

	if weight.Sign() == 0 {
		return decimal.Zero
	}
	return weighted.Div(weight).Round(4)
}

func performanceOf(ledger []model.Transaction, now time.Time) Performance {
	cutoff := now.Add(-ledgerLookback)
	p := Performance{WindowDays: int(ledgerLookback.Hours() / 24)}
	for _, t := range ledger {
		if t.CreatedAt.Before(cutoff) {
			continue
		}
		p.TxTotal++
		switch t.Status {
		case model.TxStatusConfirmed:
			p.TxConfirmed++
		case model.TxStatusFailed:
			p.TxFailed++
		}
	}
	finished := p.TxConfirmed + p.TxFailed
	if finished > 0 {
		p.SuccessRate = decimal.NewFromInt(int64(p.TxConfirmed)).
			Div(decimal.NewFromInt(int64(finished))).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return p
}

// alertsOf derives warnings from the ledger itself: recent failures and
// operations stuck in flight past the expected window.
func alertsOf(ledger []model.Transaction, now time.Time) []Alert {
	var alerts []Alert

	dayCutoff := now.Add(-24 * time.Hour)
	failed := 0
	stale := 0
	for _, t := range ledger {
		if t.Status == model.TxStatusFailed && t.CreatedAt.After(dayCutoff) {
			failed++
		}
		inFlight := t.Status == model.TxStatusPending || t.Status == model.TxStatusProcessing
		if inFlight && now.Sub(t.CreatedAt) > stalePendingAge {
			stale++
		}
	}

	if failed > 0 {
		alerts = append(alerts, Alert{
			Kind:     "failed_operations",
			Message:  "operations failed in the last 24 hours",
			Severity: "warning",
		})
	}
	if stale > 0 {
		alerts = append(alerts, Alert{
			Kind:     "stalled_operations",
			Message:  "operations pending longer than expected",
			Severity: "info",
		})
	}
	return alerts
}

func (e *Engine) persistSnapshot(ctx context.Context, d *Dashboard) {
	snapshot := &model.PortfolioSnapshot{
		ID:         uuid.New(),
		UserID:     d.UserID,
		Breakdown:  d.Breakdown,
		YieldAPY:   d.BlendedYieldAPY,
		AlertCount: len(d.Alerts),
		TakenAt:    d.GeneratedAt,
	}
	if err := e.snapshots.Insert(ctx, snapshot); err != nil {
		// The dashboard was already served; a missing snapshot row only
		// loses one audit point.
		e.logger.Warn("persist portfolio snapshot", "error", err, "user_id", d.UserID)
	}
}

// History returns the persisted snapshots since a point in time.
func (e *Engine) History(ctx context.Context, userID string, since time.Time) ([]model.PortfolioSnapshot, error) {
	return e.snapshots.ListSince(ctx, userID, since)
}

// scaleBaseUnits converts an integer base-unit amount to a decimal in
// whole units: amount / 10^decimals.
func scaleBaseUnits(amount *big.Int, decimals int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, int32(-decimals))
}
