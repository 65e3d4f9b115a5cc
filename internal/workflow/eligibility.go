package workflow

import (
	"context"
	"strings"
	"time"

	"renewal-bot/internal/browser"
	"renewal-bot/internal/models"
	"renewal-bot/internal/step"
)

// followupKeywords flag an application that needs human document
// verification. Any of these in the followups cell means the client must not
// be auto-enrolled.
var followupKeywords = []string{"dmi", "verif", "document", "request", "required", "pending", "needed"}

// handleVerification advances past identity verification. When the page
// still demands an SSN after continuing, the client has no identifier on
// file and is skipped rather than guessed at.
func (m *Machine) handleVerification(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	if res := m.exec.Execute(ctx, step.Spec{
		Name:     "verification_continue",
		Target:   continueButton(),
		Action:   step.Click,
		Optional: true,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("verification_continue", res)
	}

	if _, err := m.driver.FindElement(ctx, ssnInput()[0], browser.CondPresent, 3*time.Second); err == nil {
		m.logger.Warn("ssn still demanded, no identifier on file", map[string]interface{}{
			"client": client.FullName,
		})
		client.Finalize(models.StatusSkippedNoIdentifier, "ssn input still present after verification continue")
		return StateDone, nil
	} else if !isNotFound(err) {
		return wc.State, err
	}

	return StateEligibility, nil
}

// handleEligibility waits for the results page and applies the followups
// gate. An unreadable followups cell proceeds: the cell is absent for clean
// applications.
func (m *Machine) handleEligibility(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	if res := m.exec.Execute(ctx, step.Spec{
		Name:   "eligibility_results",
		Target: eligibilityMarker(),
		Action: step.ReadText,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("eligibility_results", res)
	}

	res := m.exec.Execute(ctx, step.Spec{
		Name:     "read_followups_cell",
		Target:   followupsCell(),
		Action:   step.ReadText,
		Optional: true,
	})
	if res.Outcome == step.HardFail {
		return wc.State, hardFailErr("read_followups_cell", res)
	}
	if res.Outcome == step.Success {
		cell := strings.ToLower(res.Text)
		for _, kw := range followupKeywords {
			if strings.Contains(cell, kw) {
				m.logger.Warn("followups required, skipping client", map[string]interface{}{
					"client": client.FullName,
					"cell":   res.Text,
				})
				client.Finalize(models.StatusSkippedFollowups, "followups cell: "+res.Text)
				return StateDone, nil
			}
		}
	}

	if res := m.exec.Execute(ctx, step.Spec{
		Name:   "eligibility_continue",
		Target: continueButton(),
		Action: step.Click,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("eligibility_continue", res)
	}

	return StatePlanConfirmation, nil
}
