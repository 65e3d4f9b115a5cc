package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"renewal-bot/internal/browser"
	"renewal-bot/internal/models"
	"renewal-bot/internal/plan"
	"renewal-bot/internal/step"
)

// handlePlanConfirmation reads the renewal plan's carrier and active premium
// and hands the branch decision to the plan engine.
func (m *Machine) handlePlanConfirmation(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	carrier := ""
	if res := m.exec.Execute(ctx, step.Spec{
		Name:     "read_carrier",
		Target:   carrierName(),
		Action:   step.ReadText,
		Optional: true,
	}); res.Outcome == step.Success {
		carrier = normalizeCarrier(res.Text)
	}
	client.Carrier = carrier

	res := m.exec.Execute(ctx, step.Spec{
		Name:   "read_premium",
		Target: premiumAmount(),
		Action: step.ReadText,
	})
	if res.Outcome != step.Success {
		return wc.State, hardFailErr("read_premium", res)
	}
	cents, err := plan.ParsePremium(res.Text)
	if err != nil {
		return wc.State, fmt.Errorf("read_premium: %w", err)
	}
	client.PremiumCents = cents

	decision := plan.Decide(cents, carrier, m.params.ApprovedCarriers)
	m.logger.Info("plan decision", map[string]interface{}{
		"client":        client.FullName,
		"carrier":       carrier,
		"premium_cents": cents,
		"decision":      decision,
	})

	if decision == plan.EnrollDirect {
		if res := m.exec.Execute(ctx, step.Spec{
			Name:   "enroll_direct",
			Target: enrollButton(),
			Action: step.Click,
		}); res.Outcome == step.HardFail {
			return wc.State, hardFailErr("enroll_direct", res)
		}
		return StateSignature, nil
	}
	return StatePlanChange, nil
}

// handlePlanChange runs the carrier-filtered zero-premium scan over the
// marketplace results.
func (m *Machine) handlePlanChange(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	page := &searchPage{machine: m, wc: wc}

	result, err := plan.SelectZeroPremium(ctx, page, client.Carrier, m.logger)
	if err != nil {
		if errors.Is(err, plan.ErrNoZeroPremium) {
			observed := ""
			if result != nil {
				observed = strings.Join(result.Observed, ", ")
			}
			m.logger.Warn("no zero-premium plan, skipping client", map[string]interface{}{
				"client":   client.FullName,
				"carrier":  client.Carrier,
				"observed": observed,
			})
			client.Finalize(models.StatusSkippedNoZeroPremiumPlan, "observed premiums: "+observed)
			return StateDone, nil
		}
		return wc.State, err
	}

	if result.Selected != nil {
		client.PlanName = result.Selected.Name
	}
	return StateSignature, nil
}

// normalizeCarrier reduces a displayed carrier cell or logo alt text to the
// token the approved list is written in. Blue Cross brands all collapse to
// "blue".
func normalizeCarrier(text string) string {
	c := strings.ToLower(strings.TrimSpace(text))
	if c == "" {
		return ""
	}
	if strings.Contains(c, "blue") || strings.Contains(c, "bcbs") {
		return "blue"
	}
	return strings.Fields(c)[0]
}

// searchPage adapts the live plan-search page to the plan engine's Page
// contract. Struckness is established per candidate by probing for a
// strike-styled ancestor of that candidate's premium node.
type searchPage struct {
	machine *Machine
	wc      *Context
}

func premiumNodesXPath() browser.Locator {
	return browser.Locator{
		Strategy: browser.ByXPath,
		Value:    `//var[@data-var='dollars']`,
		Label:    "plan card premiums",
	}
}

func struckPremiumXPath(position int) browser.Locator {
	// XPath positions are 1-based.
	return browser.Locator{
		Strategy: browser.ByXPath,
		Value: fmt.Sprintf(`(//var[@data-var='dollars'])[%d]/ancestor::*[contains(@class, 'strikethrough') or contains(@class, 'strike')]`,
			position+1),
		Label: fmt.Sprintf("struck ancestor of premium %d", position),
	}
}

func enrollCardXPath(position int) browser.Locator {
	return browser.Locator{
		Strategy: browser.ByXPath,
		Value: fmt.Sprintf(`(//var[@data-var='dollars'])[%d]/ancestor::div[contains(@class, 'plan')]//button[contains(text(), 'Enroll') or contains(text(), 'Add to cart')]`,
			position+1),
		Label: fmt.Sprintf("enroll button of plan %d", position),
	}
}

func (p *searchPage) ApplyCarrierFilter(ctx context.Context, carrier string) error {
	token := normalizeCarrier(carrier)
	if token == "" {
		// Unknown carrier cannot be filtered; scan the unfiltered list.
		return nil
	}
	res := p.machine.exec.Execute(ctx, step.Spec{
		Name:     "carrier_filter",
		Target:   carrierFilterCheckbox(token),
		Action:   step.Check,
		Optional: true,
	})
	if res.Outcome == step.HardFail {
		return hardFailErr("carrier_filter", res)
	}
	p.wc.CarrierFilterApplied = res.Outcome == step.Success
	return nil
}

func (p *searchPage) WaitForRefresh(ctx context.Context) error {
	// Results count as loaded once either the per-plan enroll buttons or the
	// plan cards themselves have rendered; cards appear first on slow loads.
	markers := []browser.Locator{planResultsMarker(), planCards()}
	ok, err := p.machine.driver.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		for _, marker := range markers {
			_, ferr := p.machine.driver.FindElement(ctx, marker, browser.CondPresent, 300*time.Millisecond)
			if ferr == nil {
				return true, nil
			}
			if !isNotFound(ferr) {
				return false, ferr
			}
		}
		return false, nil
	}, 10*time.Second)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("filtered plan results did not load")
	}
	return nil
}

func (p *searchPage) Candidates(ctx context.Context) ([]plan.Candidate, error) {
	els, err := p.machine.driver.FindElements(ctx, premiumNodesXPath(), 5*time.Second)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	cands := make([]plan.Candidate, 0, len(els))
	for i, el := range els {
		text, terr := el.Text(ctx)
		if terr != nil {
			// A card re-rendered mid-scan; skip it rather than
			// aborting the client.
			continue
		}
		struck := false
		if _, serr := p.machine.driver.FindElements(ctx, struckPremiumXPath(i), 300*time.Millisecond); serr == nil {
			struck = true
		} else if !isNotFound(serr) {
			return nil, serr
		}
		cands = append(cands, plan.Candidate{Index: i, PremiumText: text, Struck: struck})
	}
	return cands, nil
}

func (p *searchPage) Enroll(ctx context.Context, index int) error {
	res := p.machine.exec.Execute(ctx, step.Spec{
		Name:   "enroll_selected_plan",
		Target: []browser.Locator{enrollCardXPath(index)},
		Action: step.Click,
	})
	if res.Outcome != step.Success {
		return hardFailErr("enroll_selected_plan", res)
	}
	return nil
}
