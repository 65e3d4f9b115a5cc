package workflow

import (
	"context"
	"fmt"
	"time"

	"renewal-bot/internal/browser"
	"renewal-bot/internal/models"
	"renewal-bot/internal/step"
)

// handleSignature types the client's full name as the signature, confirms,
// and waits for the congratulations marker. The wait is bounded: a missing
// marker is an Error, never an infinite hang.
func (m *Machine) handleSignature(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	if res := m.exec.Execute(ctx, step.Spec{
		Name:     "signature_section",
		Target:   signatureSection(),
		Action:   step.ReadText,
		Optional: true,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("signature_section", res)
	}

	if res := m.exec.Execute(ctx, step.Spec{
		Name:   "signature_input",
		Target: signatureInput(),
		Action: step.Type,
		Value:  client.FullName,
	}); res.Outcome != step.Success {
		return wc.State, hardFailErr("signature_input", res)
	}

	if res := m.exec.Execute(ctx, step.Spec{
		Name:   "signature_continue",
		Target: continueButton(),
		Action: step.Click,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("signature_continue", res)
	}

	if m.exec.DryRun() {
		// Nothing was submitted, so the marker will never appear.
		return StateEnrolled, nil
	}

	marker := congratulationsMarker()
	ok, err := m.driver.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		_, ferr := m.driver.FindElement(ctx, marker, browser.CondPresent, 300*time.Millisecond)
		if ferr == nil {
			return true, nil
		}
		if isNotFound(ferr) {
			return false, nil
		}
		return false, ferr
	}, m.params.SignatureTimeout)
	if err != nil {
		return wc.State, err
	}
	if !ok {
		return wc.State, fmt.Errorf("signature_confirmation: congratulations marker not seen within %s", m.params.SignatureTimeout)
	}

	return StateEnrolled, nil
}

func (m *Machine) handleEnrolled(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	m.logger.Info("client enrolled", map[string]interface{}{
		"client": client.FullName,
		"plan":   client.PlanName,
	})
	client.Finalize(models.StatusCompleted, "")
	return StateDone, nil
}
