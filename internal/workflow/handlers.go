package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"renewal-bot/internal/browser"
	commonerrors "renewal-bot/internal/common/errors"
	"renewal-bot/internal/models"
	"renewal-bot/internal/step"
)

// handleConsent accepts the data-use consents and moves into the summary
// pages. The "Continue with plan" interstitial only appears for some renewal
// entry points, so it is optional.
func (m *Machine) handleConsent(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	if res := m.exec.Execute(ctx, step.Spec{
		Name:     "continue_with_plan",
		Target:   continueWithPlan(),
		Action:   step.Click,
		Optional: true,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("continue_with_plan", res)
	}

	if res := m.exec.Execute(ctx, step.Spec{
		Name:   "consent_data_checkbox",
		Target: consentDataCheckbox(),
		Action: step.Check,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("consent_data_checkbox", res)
	}

	if res := m.exec.Execute(ctx, step.Spec{
		Name:     "consent_sep_checkbox",
		Target:   consentSepCheckbox(),
		Action:   step.Check,
		Optional: true,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("consent_sep_checkbox", res)
	}

	if res := m.exec.Execute(ctx, step.Spec{
		Name:     "store_consent",
		Target:   storeConsentButton(),
		Action:   step.Click,
		Optional: true,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("store_consent", res)
	}

	if res := m.exec.Execute(ctx, step.Spec{
		Name:   "consent_continue",
		Target: continueButton(),
		Action: step.Click,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("consent_continue", res)
	}

	return StateContactSummary, nil
}

// handleContactSummary detects the client's sex from the primary-contact
// table, falling back to the Female radio's aria-checked state. Unknown
// defaults to not-female, which keeps the pregnancy question unanswered for
// clients we cannot classify.
func (m *Machine) handleContactSummary(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	female := false
	if res := m.exec.Execute(ctx, step.Spec{
		Name:     "read_sex_cell",
		Target:   sexCell(),
		Action:   step.ReadText,
		Optional: true,
	}); res.Outcome == step.Success {
		female = strings.Contains(strings.ToLower(res.Text), "female")
	} else {
		el, err := m.resolver.Resolve(ctx, femaleRadio(), browser.CondPresent, 3*time.Second)
		if err == nil {
			checked, selErr := el.Selected(ctx)
			if selErr == nil {
				female = checked
			}
		}
	}
	client.IsFemale = &female

	m.logger.Info("sex detected", map[string]interface{}{
		"client": client.FullName,
		"female": female,
	})

	if res := m.exec.Execute(ctx, step.Spec{
		Name:   "contact_summary_continue",
		Target: continueButton(),
		Action: step.Click,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("contact_summary_continue", res)
	}

	return StateHouseholdSummary, nil
}

// handleHouseholdSummary applies the family-policy gate: more than one
// eligible member means a family policy, which this automation must not
// touch.
func (m *Machine) handleHouseholdSummary(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	members := 1
	els, err := m.driver.FindElements(ctx, eligibleMemberCells(), 3*time.Second)
	if err == nil {
		members = len(els)
	} else if !isNotFound(err) {
		return wc.State, commonerrors.Classify(err)
	}
	client.HouseholdSize = members

	if members > 1 {
		detail := fmt.Sprintf("household has %d eligible members", members)
		m.logger.Warn("family policy, skipping client", map[string]interface{}{
			"client":  client.FullName,
			"members": members,
		})
		client.Finalize(models.StatusSkippedFamilyPolicy, detail)
		return StateDone, nil
	}

	if res := m.exec.Execute(ctx, step.Spec{
		Name:   "household_summary_continue",
		Target: continueButton(),
		Action: step.Click,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("household_summary_continue", res)
	}

	return StatePathChoice, nil
}

// handlePathChoice takes the short path when the marketplace offers a "Skip
// to the end" control, otherwise runs the long questionnaire path.
func (m *Machine) handlePathChoice(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	res := m.exec.Execute(ctx, step.Spec{
		Name:     "skip_to_end",
		Target:   skipToEndButton(),
		Action:   step.Click,
		Optional: true,
	})
	switch res.Outcome {
	case step.Success:
		wc.LongPath = false
		return StateIncomeEdit, nil
	case step.SoftFail:
		wc.LongPath = true
		return StateLongPath, nil
	default:
		return wc.State, hardFailErr("skip_to_end", res)
	}
}

// handleLongPath walks the questionnaire pages the short path skips. The
// pregnancy question is deterministic: answered "No", and only when the
// detected sex is female.
func (m *Machine) handleLongPath(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	// Citizenship and similar yes/no pages reuse the continue control;
	// each page is optional since the questionnaire varies per client.
	if res := m.exec.Execute(ctx, step.Spec{
		Name:     "citizenship_continue",
		Target:   continueButton(),
		Action:   step.Click,
		Optional: true,
	}); res.Outcome == step.HardFail {
		return wc.State, hardFailErr("citizenship_continue", res)
	}

	if client.IsFemale != nil && *client.IsFemale {
		if res := m.exec.Execute(ctx, step.Spec{
			Name:     "pregnancy_no",
			Target:   pregnancyNoRadio(),
			Action:   step.Click,
			Optional: true,
		}); res.Outcome == step.HardFail {
			return wc.State, hardFailErr("pregnancy_no", res)
		}
		if res := m.exec.Execute(ctx, step.Spec{
			Name:     "pregnancy_continue",
			Target:   continueButton(),
			Action:   step.Click,
			Optional: true,
		}); res.Outcome == step.HardFail {
			return wc.State, hardFailErr("pregnancy_continue", res)
		}
	}

	return StateIncomeEdit, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, browser.ErrNotFound)
}
