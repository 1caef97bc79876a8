package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"folio/internal/application/port"
	"folio/internal/domain/model"
	domain "folio/internal/domain/service"
)

// Report is the result of a performance query over a lookback window.
type Report struct {
	Portfolio model.Portfolio
	From, To  model.Date
	Series    domain.Series
}

// PerformanceService answers portfolio performance queries. The cache is
// consulted first; only the missing dates trigger transaction, price and FX
// round trips, and freshly computed snapshots are written back best-effort.
type PerformanceService struct {
	cache        *CacheService
	portfolios   port.PortfolioSource
	transactions port.TransactionSource
	prices       port.PriceSource
	fx           port.FxSource
	events       port.EventSource
	adjuster     *domain.Adjuster

	// now is injectable so tests can pin "today" for forward-dated events.
	now func() model.Date
}

func NewPerformanceService(
	cache *CacheService,
	portfolios port.PortfolioSource,
	transactions port.TransactionSource,
	prices port.PriceSource,
	fx port.FxSource,
	events port.EventSource,
	adjuster *domain.Adjuster,
) *PerformanceService {
	return &PerformanceService{
		cache:        cache,
		portfolios:   portfolios,
		transactions: transactions,
		prices:       prices,
		fx:           fx,
		events:       events,
		adjuster:     adjuster,
		now:          model.Today,
	}
}

// Query computes the TWR series for one portfolio between from and to
// inclusive. Beyond the portfolio identity lookup, a full cache hit costs no
// collaborator I/O: no transaction, price or FX round trips.
func (s *PerformanceService) Query(ctx context.Context, portfolioID string, from, to model.Date) (*Report, error) {
	if to.Before(from) {
		return nil, model.NewDomainError("invalid-window", "window end %s precedes start %s", to, from)
	}

	pf, err := s.portfolios.Portfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("portfolio lookup: %w", err)
	}

	dates := model.DatesBetween(from, to)
	cached := s.cache.FindSnapshots(ctx, portfolioID, dates)

	missing := make([]model.Date, 0, len(dates))
	for _, d := range dates {
		if _, ok := cached[d]; !ok {
			missing = append(missing, d)
		}
	}

	if len(missing) > 0 {
		computed, err := s.computeSnapshots(ctx, pf, missing, to)
		if err != nil {
			return nil, err
		}
		s.cache.StoreSnapshots(ctx, portfolioID, computed)
		for _, snap := range computed {
			cached[snap.Date] = snap
		}
	}

	obs := make([]domain.Observation, 0, len(dates))
	var prevDividends decimal.Decimal
	havePrev := false
	for _, d := range dates {
		snap, ok := cached[d]
		if !ok {
			continue
		}
		dividendFlow := decimal.Zero
		if havePrev {
			dividendFlow = snap.CumulativeDividends.Sub(prevDividends)
		}
		prevDividends = snap.CumulativeDividends
		havePrev = true
		obs = append(obs, domain.Observation{
			Date:             d,
			MarketValue:      snap.MarketValue,
			ExternalCashFlow: snap.ExternalCashFlow,
			DividendFlow:     dividendFlow,
		})
	}

	return &Report{Portfolio: pf, From: from, To: to, Series: domain.ComputeTWR(obs)}, nil
}

// computeSnapshots walks the portfolio's full transaction history once and
// values it on each missing date. Snapshot running sums (net contributions,
// cumulative dividends) are since inception so cached rows stay
// query-independent.
func (s *PerformanceService) computeSnapshots(ctx context.Context, pf model.Portfolio, missing []model.Date, to model.Date) ([]model.Snapshot, error) {
	trns, err := s.transactions.Transactions(ctx, pf.ID, to)
	if err != nil {
		return nil, fmt.Errorf("transaction lookup: %w", err)
	}

	byAsset := groupByAsset(trns)
	assetIDs := sortedAssetIDs(byAsset)
	currencyOf := assetCurrencies(byAsset, pf.BaseCurrency)

	if len(assetIDs) > 0 {
		synthetics, err := s.applyEvents(ctx, pf, byAsset, assetIDs, currencyOf, trns, to)
		if err != nil {
			return nil, err
		}
		if len(synthetics) > 0 {
			synthetics, err = s.stampDividendRates(ctx, pf, synthetics)
			if err != nil {
				return nil, err
			}
			trns = append(trns, synthetics...)
			sortTrns(trns)
		}
	}

	pairs := valuationPairs(currencyOf, pf.Currency())

	prices, rates, err := s.fetchMarketData(ctx, assetIDs, missing, pairCurrencies(pairs))
	if err != nil {
		return nil, err
	}

	cashDays := cashAggregates(trns)

	walkers := make(map[string]*assetWalker, len(assetIDs))
	for _, id := range assetIDs {
		walkers[id] = &assetWalker{acc: domain.NewAccumulator(pf.ID, id), trns: byAsset[id]}
	}

	snaps := make([]model.Snapshot, 0, len(missing))
	cashIdx := 0
	cashBalance := decimal.Zero
	contributions := decimal.Zero
	dividends := decimal.Zero

	for _, d := range missing {
		externalFlow := decimal.Zero
		for cashIdx < len(cashDays) && !cashDays[cashIdx].date.After(d) {
			day := cashDays[cashIdx]
			cashBalance = cashBalance.Add(day.cashDelta)
			contributions = contributions.Add(day.externalFlow)
			dividends = dividends.Add(day.dividendFlow)
			if day.date == d {
				externalFlow = day.externalFlow
			}
			cashIdx++
		}

		resolved := domain.ResolveRates(d, pairs, rates[d])
		value := cashBalance
		unpriced := false
		for _, assetID := range assetIDs {
			w := walkers[assetID]
			if err := w.advance(d); err != nil {
				return nil, err
			}
			qty := w.acc.Position(d).Quantity
			if qty.IsZero() {
				continue
			}
			price, ok := prices[d][assetID]
			if !ok {
				log.Warn().
					Str("asset", assetID).
					Str("date", d.String()).
					Msg("price unavailable, valuation date excluded")
				unpriced = true
				continue
			}
			pair := model.NewCurrencyPair(currencyOf[assetID], pf.Currency())
			rate, ok := resolved[pair]
			if !ok {
				log.Warn().
					Str("asset", assetID).
					Str("pair", pair.String()).
					Str("date", d.String()).
					Msg("fx rate unavailable, valuation date excluded")
				unpriced = true
				continue
			}
			value = value.Add(qty.Mul(price).Mul(rate.Rate))
		}
		if unpriced {
			// An understated market value would poison the return linking;
			// the date stays uncached and is recomputed once data arrives.
			continue
		}

		snaps = append(snaps, model.Snapshot{
			PortfolioID:         pf.ID,
			Date:                d,
			MarketValue:         value.Round(2),
			ExternalCashFlow:    externalFlow.Round(2),
			NetContributions:    contributions.Round(2),
			CumulativeDividends: dividends.Round(2),
		})
	}
	return snaps, nil
}

// fetchMarketData issues the bulk price and FX lookups concurrently and
// merges the results once both return.
func (s *PerformanceService) fetchMarketData(ctx context.Context, assetIDs []string, missing []model.Date, currencies []string) (map[model.Date]map[string]decimal.Decimal, map[model.Date]map[string]decimal.Decimal, error) {
	if len(assetIDs) == 0 || len(missing) == 0 {
		return nil, nil, nil
	}

	var (
		wg       sync.WaitGroup
		prices   map[model.Date]map[string]decimal.Decimal
		rates    map[model.Date]map[string]decimal.Decimal
		priceErr error
		fxErr    error
	)
	first, last := missing[0], missing[len(missing)-1]

	wg.Add(2)
	go func() {
		defer wg.Done()
		prices, priceErr = s.prices.Prices(ctx, missing, assetIDs)
	}()
	go func() {
		defer wg.Done()
		rates, fxErr = s.fx.Rates(ctx, first, last, currencies)
	}()
	wg.Wait()

	if priceErr != nil {
		return nil, nil, fmt.Errorf("price lookup: %w", priceErr)
	}
	if fxErr != nil {
		return nil, nil, fmt.Errorf("fx lookup: %w", fxErr)
	}
	return prices, rates, nil
}

// applyEvents turns the portfolio's corporate events into synthetic
// transactions, merging each into its asset's history so later events see
// the effects of earlier ones (a split scales subsequent dividends).
func (s *PerformanceService) applyEvents(ctx context.Context, pf model.Portfolio, byAsset map[string][]model.Trn, assetIDs []string, currencyOf map[string]string, trns []model.Trn, to model.Date) ([]model.Trn, error) {
	events, err := s.events.Events(ctx, assetIDs, earliestTradeDate(trns), to)
	if err != nil {
		return nil, fmt.Errorf("event lookup: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].RecordDate.Before(events[j].RecordDate)
	})

	applied := domain.NewAppliedIndex(trns)
	today := s.now()
	var synthetics []model.Trn

	for _, ev := range events {
		assetTrns := byAsset[ev.AssetID]
		if len(assetTrns) == 0 {
			continue
		}
		pos, err := domain.Accumulate(pf.ID, ev.AssetID, assetTrns, ev.RecordDate)
		if err != nil {
			return nil, fmt.Errorf("accumulating %s as of %s: %w", ev.AssetID, ev.RecordDate, err)
		}
		trn, ok := s.adjuster.Apply(pos, ev, applied, today)
		if !ok {
			continue
		}
		if trn.Type == model.TrnDividend {
			// Dividend cash arrives in the asset's trading currency.
			trn.CashCurrency = currencyOf[ev.AssetID]
		}
		synthetics = append(synthetics, trn)
		merged := append(assetTrns, trn)
		sortTrns(merged)
		byAsset[ev.AssetID] = merged
	}
	return synthetics, nil
}

// stampDividendRates converts synthetic dividends on foreign-currency assets
// into portfolio currency by stamping each with the pay date's resolved
// cross rate, the same field captured on real trades. A dividend whose rate
// cannot be resolved is dropped with a warning; an unconverted amount must
// not enter the cash balance.
func (s *PerformanceService) stampDividendRates(ctx context.Context, pf model.Portfolio, synthetics []model.Trn) ([]model.Trn, error) {
	target := pf.Currency()
	var first, last model.Date
	foreign := map[string]struct{}{}

	for _, t := range synthetics {
		if t.Type != model.TrnDividend || t.CashCurrency == "" || t.CashCurrency == target {
			continue
		}
		if len(foreign) == 0 || t.TradeDate.Before(first) {
			first = t.TradeDate
		}
		if len(foreign) == 0 || last.Before(t.TradeDate) {
			last = t.TradeDate
		}
		foreign[t.CashCurrency] = struct{}{}
	}
	if len(foreign) == 0 {
		return synthetics, nil
	}

	foreign[target] = struct{}{}
	currencies := make([]string, 0, len(foreign))
	for cur := range foreign {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)

	rates, err := s.fx.Rates(ctx, first, last, currencies)
	if err != nil {
		return nil, fmt.Errorf("fx lookup: %w", err)
	}

	kept := synthetics[:0]
	for _, t := range synthetics {
		if t.Type == model.TrnDividend && t.CashCurrency != "" && t.CashCurrency != target {
			pair := model.NewCurrencyPair(t.CashCurrency, target)
			resolved := domain.ResolveRates(t.TradeDate, []model.CurrencyPair{pair}, rates[t.TradeDate])
			rate, ok := resolved[pair]
			if !ok {
				log.Warn().
					Str("asset", t.AssetID).
					Str("pair", pair.String()).
					Str("date", t.TradeDate.String()).
					Msg("fx rate unavailable, synthetic dividend dropped")
				continue
			}
			t.TradePortfolioRate = rate.Rate
		}
		kept = append(kept, t)
	}
	return kept, nil
}

// assetWalker advances one asset's fold up to successive valuation dates.
type assetWalker struct {
	acc  *domain.Accumulator
	trns []model.Trn
	idx  int
}

func (w *assetWalker) advance(d model.Date) error {
	for w.idx < len(w.trns) && !w.trns[w.idx].TradeDate.After(d) {
		if err := w.acc.Push(w.trns[w.idx]); err != nil {
			return err
		}
		w.idx++
	}
	return nil
}

type cashDay struct {
	date         model.Date
	cashDelta    decimal.Decimal
	externalFlow decimal.Decimal
	dividendFlow decimal.Decimal
}

// cashAggregates collapses the full history into per-date cash movements in
// portfolio currency, using each transaction's captured trade-to-portfolio
// rate when present.
func cashAggregates(trns []model.Trn) []cashDay {
	byDate := map[model.Date]*cashDay{}
	for _, t := range trns {
		cash := domain.CashImpact(t)
		if !t.TradePortfolioRate.IsZero() {
			cash = cash.Mul(t.TradePortfolioRate)
		}
		day, ok := byDate[t.TradeDate]
		if !ok {
			day = &cashDay{date: t.TradeDate}
			byDate[t.TradeDate] = day
		}
		day.cashDelta = day.cashDelta.Add(cash)
		if t.Type.IsExternalFlow() {
			day.externalFlow = day.externalFlow.Add(cash)
		}
		if t.Type == model.TrnDividend {
			day.dividendFlow = day.dividendFlow.Add(cash)
		}
	}
	days := make([]cashDay, 0, len(byDate))
	for _, day := range byDate {
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })
	return days
}

func groupByAsset(trns []model.Trn) map[string][]model.Trn {
	byAsset := map[string][]model.Trn{}
	for _, t := range trns {
		if t.AssetID == "" || t.Type.IsCashOnly() {
			continue
		}
		byAsset[t.AssetID] = append(byAsset[t.AssetID], t)
	}
	return byAsset
}

func sortedAssetIDs(byAsset map[string][]model.Trn) []string {
	ids := make([]string, 0, len(byAsset))
	for id := range byAsset {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// assetCurrencies picks each asset's trading currency from its most recent
// transaction that names one, defaulting to the portfolio base currency.
func assetCurrencies(byAsset map[string][]model.Trn, base string) map[string]string {
	out := make(map[string]string, len(byAsset))
	for id, trns := range byAsset {
		cur := base
		for _, t := range trns {
			if t.CashCurrency != "" {
				cur = t.CashCurrency
			}
		}
		out[id] = cur
	}
	return out
}

func pairCurrencies(pairs []model.CurrencyPair) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, p := range pairs {
		for _, cur := range []string{p.From, p.To} {
			if _, ok := seen[cur]; ok {
				continue
			}
			seen[cur] = struct{}{}
			out = append(out, cur)
		}
	}
	sort.Strings(out)
	return out
}

func valuationPairs(currencyOf map[string]string, target string) []model.CurrencyPair {
	seen := map[model.CurrencyPair]struct{}{}
	var pairs []model.CurrencyPair
	for _, cur := range currencyOf {
		pair := model.NewCurrencyPair(cur, target)
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].From < pairs[j].From })
	return pairs
}

func earliestTradeDate(trns []model.Trn) model.Date {
	if len(trns) == 0 {
		return model.Date{}
	}
	earliest := trns[0].TradeDate
	for _, t := range trns[1:] {
		if t.TradeDate.Before(earliest) {
			earliest = t.TradeDate
		}
	}
	return earliest
}

func sortTrns(trns []model.Trn) {
	sort.SliceStable(trns, func(i, j int) bool {
		if trns[i].TradeDate != trns[j].TradeDate {
			return trns[i].TradeDate.Before(trns[j].TradeDate)
		}
		return trns[i].Seq < trns[j].Seq
	})
}
