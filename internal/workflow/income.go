package workflow

import (
	"context"
	"fmt"
	"strconv"

	"renewal-bot/internal/models"
	"renewal-bot/internal/step"
)

// handleIncomeEdit commits a uniformly random income within the configured
// inclusive bounds. Failing to locate the field is recoverable: the page is
// refreshed and the edit retried up to the configured ceiling before the
// client is finalized as Error.
func (m *Machine) handleIncomeEdit(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error) {
	income := m.params.IncomeMin
	if spread := m.params.IncomeMax - m.params.IncomeMin; spread > 0 {
		income += m.params.Rand.Intn(spread + 1)
	}

	var lastReason string
	for wc.IncomeAttempts = 1; wc.IncomeAttempts <= m.params.IncomeRetries; wc.IncomeAttempts++ {
		if err := ctx.Err(); err != nil {
			return wc.State, err
		}
		if wc.IncomeAttempts > 1 {
			m.logger.Warn("income edit retry, refreshing page", map[string]interface{}{
				"client":  client.FullName,
				"attempt": wc.IncomeAttempts,
			})
			if err := m.driver.Refresh(ctx); err != nil {
				return wc.State, err
			}
		}

		res := m.exec.Execute(ctx, step.Spec{
			Name:   "income_edit",
			Target: incomeInput(),
			Action: step.Type,
			Value:  strconv.Itoa(income),
		})
		if res.Outcome != step.Success {
			lastReason = res.Reason
			continue
		}

		client.ModifiedIncome = income
		m.logger.Info("income committed", map[string]interface{}{
			"client": client.FullName,
			"income": income,
		})

		if cres := m.exec.Execute(ctx, step.Spec{
			Name:   "income_continue",
			Target: continueButton(),
			Action: step.Click,
		}); cres.Outcome == step.HardFail {
			return wc.State, hardFailErr("income_continue", cres)
		}
		return StateVerification, nil
	}

	return wc.State, fmt.Errorf("income_edit failed after %d attempts: %s", m.params.IncomeRetries, lastReason)
}
