package plan

import (
	"context"
	"fmt"

	"renewal-bot/internal/common/logger"
)

// Candidate is one plan card in the filtered marketplace results. Struck
// marks a struck-through promotional price, which is not the price the
// client would actually pay.
type Candidate struct {
	Index       int
	Name        string
	PremiumText string
	Struck      bool
}

// Page is the slice of the plan-search UI the scan needs. The workflow
// provides an implementation backed by the step executor.
type Page interface {
	ApplyCarrierFilter(ctx context.Context, carrier string) error
	WaitForRefresh(ctx context.Context) error
	Candidates(ctx context.Context) ([]Candidate, error)
	Enroll(ctx context.Context, index int) error
}

// ScanResult records what the scan saw, for the audit trail.
type ScanResult struct {
	Selected *Candidate
	Observed []string // premium text per candidate, struck ones annotated
}

// SelectZeroPremium filters the marketplace to the client's carrier, waits
// for the list to settle, and enrolls in the first plan whose real premium is
// $0.00. Struck-through prices are skipped outright. When no candidate
// qualifies it returns ErrNoZeroPremium together with everything it observed.
func SelectZeroPremium(ctx context.Context, page Page, carrier string, log logger.Logger) (*ScanResult, error) {
	if err := page.ApplyCarrierFilter(ctx, carrier); err != nil {
		return nil, fmt.Errorf("apply carrier filter %q: %w", carrier, err)
	}
	if err := page.WaitForRefresh(ctx); err != nil {
		return nil, fmt.Errorf("wait for filtered results: %w", err)
	}

	cands, err := page.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("read plan candidates: %w", err)
	}

	res := &ScanResult{Observed: make([]string, 0, len(cands))}
	for i := range cands {
		c := cands[i]
		obs := c.PremiumText
		if c.Struck {
			obs += " (struck)"
		}
		res.Observed = append(res.Observed, obs)

		if res.Selected != nil || c.Struck {
			continue
		}
		cents, perr := ParsePremium(c.PremiumText)
		if perr != nil {
			log.Warn("unparseable premium on plan card", map[string]interface{}{
				"index":   c.Index,
				"premium": c.PremiumText,
			})
			continue
		}
		if cents == 0 {
			res.Selected = &cands[i]
		}
	}

	if res.Selected == nil {
		return res, fmt.Errorf("%w: carrier %q, observed %v", ErrNoZeroPremium, carrier, res.Observed)
	}

	log.Info("zero-premium plan selected", map[string]interface{}{
		"carrier": carrier,
		"index":   res.Selected.Index,
		"plan":    res.Selected.Name,
	})
	if err := page.Enroll(ctx, res.Selected.Index); err != nil {
		return res, fmt.Errorf("enroll in plan %d: %w", res.Selected.Index, err)
	}
	return res, nil
}
