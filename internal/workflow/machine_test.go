package workflow

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renewal-bot/internal/browser"
	"renewal-bot/internal/browser/browsertest"
	commonerrors "renewal-bot/internal/common/errors"
	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/models"
	"renewal-bot/internal/resolver"
	"renewal-bot/internal/step"
)

var testCarriers = []string{"oscar", "molina", "aetna", "cigna", "healthfirst", "avmed", "blue"}

func newTestMachine(t *testing.T, driver *browsertest.FakeDriver) *Machine {
	t.Helper()
	log := logger.NewTestLogger(t)
	res := resolver.New(driver, log, 20*time.Millisecond)
	exec := step.NewExecutor(driver, res, log, step.Options{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		Timeout:     40 * time.Millisecond,
		PostTimeout: 40 * time.Millisecond,
	})
	return NewMachine(driver, exec, res, log, Params{
		ApprovedCarriers: testCarriers,
		IncomeMin:        23985,
		IncomeMax:        24445,
		IncomeRetries:    3,
		SignatureTimeout: 100 * time.Millisecond,
		Rand:             rand.New(rand.NewSource(1)),
	})
}

func newClient() *models.ClientRecord {
	return &models.ClientRecord{
		RowIndex:  1,
		FirstName: "Maria",
		LastName:  "Lopez",
		FullName:  "Maria Lopez",
		Status:    models.StatusPending,
	}
}

func checkbox(value string) *browsertest.FakeElement {
	el := &browsertest.FakeElement{Loc: browser.Locator{Value: value}}
	el.OnClick = func(*browsertest.FakeDriver) { el.Checked = true }
	return el
}

// scriptToIncome stages every page from consent up to the income edit:
// consent checkbox, continue button, female sex cell, a single eligible
// member, no skip-to-end control (long path).
func scriptToIncome(driver *browsertest.FakeDriver, eligibleMembers int, sexText string) {
	driver.Add(checkbox(`input[name='consentData']`))
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: "page-nav-on-next-btn"}})
	driver.Add(&browsertest.FakeElement{
		Loc:       browser.Locator{Value: `//table[@title='primary person info']//tbody//tr//td[3]`},
		TextValue: sexText,
	})
	for i := 0; i < eligibleMembers; i++ {
		driver.Add(&browsertest.FakeElement{
			Loc:       browser.Locator{Value: `//td[contains(text(),'Eligible to enroll')]`},
			TextValue: "Eligible to enroll",
		})
	}
}

func scriptIncomeToSignature(driver *browsertest.FakeDriver, premiumText, carrierText string) {
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: `//input[@type='text' and contains(@name, 'income')]`}})
	driver.Add(&browsertest.FakeElement{
		Loc:       browser.Locator{Value: `//*[contains(text(), 'Eligibility Results') or contains(text(), 'eligibility results')]`},
		TextValue: "Eligibility Results",
	})
	driver.Add(&browsertest.FakeElement{
		Loc:       browser.Locator{Value: `//h2[contains(@class, 'carrier')]`},
		TextValue: carrierText,
	})
	driver.Add(&browsertest.FakeElement{
		Loc:       browser.Locator{Value: `//div[contains(@class, '_mt6_wndsr')]//var[@data-var='dollars']`},
		TextValue: premiumText,
	})
}

func scriptSignature(driver *browsertest.FakeDriver) {
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: `//input[@type='text' and contains(@id, 'signature')]`}})
	driver.Add(&browsertest.FakeElement{
		Loc:       browser.Locator{Value: `//*[contains(text(), 'Congratulations') or contains(text(), 'Success') or contains(text(), 'enrolled')]`},
		TextValue: "Congratulations!",
	})
}

func TestRunFemaleLongPathZeroPremiumApprovedCompletes(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 1, "Female")
	scriptIncomeToSignature(driver, "$0.00", "Molina Healthcare of Florida")
	enrollBtn := &browsertest.FakeElement{Loc: browser.Locator{Value: `//button[normalize-space()='Enroll in this plan']`}}
	driver.Add(enrollBtn)
	scriptSignature(driver)

	client := newClient()
	wc := &Context{}
	stdErr := newTestMachine(t, driver).Run(context.Background(), wc, client)

	require.Nil(t, stdErr)
	assert.Equal(t, models.StatusCompleted, client.Status)
	assert.True(t, wc.LongPath)
	require.NotNil(t, client.IsFemale)
	assert.True(t, *client.IsFemale)
	assert.Equal(t, "molina", client.Carrier)
	assert.Equal(t, int64(0), client.PremiumCents)
	assert.Equal(t, 1, enrollBtn.Clicks, "direct enroll path must be taken")
	assert.GreaterOrEqual(t, client.ModifiedIncome, 23985)
	assert.LessOrEqual(t, client.ModifiedIncome, 24445)
	require.NotNil(t, client.FinishedAt)
}

func TestRunFamilyPolicySkipsBeforeIncomeEdit(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 3, "Male")

	client := newClient()
	stdErr := newTestMachine(t, driver).Run(context.Background(), &Context{}, client)

	require.Nil(t, stdErr)
	assert.Equal(t, models.StatusSkippedFamilyPolicy, client.Status)
	assert.Equal(t, 3, client.HouseholdSize)
	assert.Zero(t, client.ModifiedIncome, "income edit must never run for family policies")
	assert.Contains(t, client.ErrorDetail, "3 eligible members")
}

func TestRunIncomeFieldMissingExhaustsRetriesWithError(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 1, "Male")
	// No income input anywhere on the page.

	client := newClient()
	wc := &Context{}
	stdErr := newTestMachine(t, driver).Run(context.Background(), wc, client)

	require.NotNil(t, stdErr)
	assert.Equal(t, models.StatusError, client.Status)
	assert.Contains(t, client.ErrorDetail, "income_edit")
	assert.Equal(t, 2, driver.Refreshes, "page refreshes between the 3 attempts")
}

func TestRunShortPathTakenWhenSkipControlPresent(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 1, "Female")
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: `//button[normalize-space()='Skip to the end']`}})
	scriptIncomeToSignature(driver, "$0.00", "Oscar Health")
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: `//button[normalize-space()='Enroll in this plan']`}})
	scriptSignature(driver)

	client := newClient()
	wc := &Context{}
	stdErr := newTestMachine(t, driver).Run(context.Background(), wc, client)

	require.Nil(t, stdErr)
	assert.Equal(t, models.StatusCompleted, client.Status)
	assert.False(t, wc.LongPath)
}

func TestRunFollowupsRequiredSkips(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 1, "Male")
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: `//input[@type='text' and contains(@name, 'income')]`}})
	driver.Add(&browsertest.FakeElement{
		Loc:       browser.Locator{Value: `//*[contains(text(), 'Eligibility Results') or contains(text(), 'eligibility results')]`},
		TextValue: "Eligibility Results",
	})
	driver.Add(&browsertest.FakeElement{
		Loc:       browser.Locator{Value: `//th[contains(text(), 'Followups')]/ancestor::table//tbody/tr[1]/td[3]`},
		TextValue: "DMI verification needed",
	})

	client := newClient()
	stdErr := newTestMachine(t, driver).Run(context.Background(), &Context{}, client)

	require.Nil(t, stdErr)
	assert.Equal(t, models.StatusSkippedFollowups, client.Status)
	assert.Contains(t, client.ErrorDetail, "DMI verification needed")
}

func TestRunMissingIdentifierSkips(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 1, "Male")
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: `//input[@type='text' and contains(@name, 'income')]`}})
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: `input[name='ssn']`}})

	client := newClient()
	stdErr := newTestMachine(t, driver).Run(context.Background(), &Context{}, client)

	require.Nil(t, stdErr)
	assert.Equal(t, models.StatusSkippedNoIdentifier, client.Status)
}

func TestRunPlanChangeSelectsGenuineZeroPremium(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 1, "Male")
	scriptIncomeToSignature(driver, "$12.50", "Oscar Health")

	// Marketplace results: struck $0.00 at position 1, genuine at 3.
	premiums := []string{"$43.20", "$0.00", "$12.00", "$0.00"}
	for _, p := range premiums {
		driver.Add(&browsertest.FakeElement{
			Loc:       browser.Locator{Value: `//var[@data-var='dollars']`},
			TextValue: p,
		})
	}
	driver.Add(&browsertest.FakeElement{
		Loc: browser.Locator{Value: `(//var[@data-var='dollars'])[2]/ancestor::*[contains(@class, 'strikethrough') or contains(@class, 'strike')]`},
	})
	driver.Add(&browsertest.FakeElement{
		Loc: browser.Locator{Value: `//button[contains(text(), 'Enroll') or contains(text(), 'Add to cart')]`},
	})
	enrollCard := &browsertest.FakeElement{
		Loc: browser.Locator{Value: `(//var[@data-var='dollars'])[4]/ancestor::div[contains(@class, 'plan')]//button[contains(text(), 'Enroll') or contains(text(), 'Add to cart')]`},
	}
	driver.Add(enrollCard)
	scriptSignature(driver)

	client := newClient()
	stdErr := newTestMachine(t, driver).Run(context.Background(), &Context{}, client)

	require.Nil(t, stdErr)
	assert.Equal(t, models.StatusCompleted, client.Status)
	assert.Equal(t, int64(1250), client.PremiumCents)
	assert.Equal(t, 1, enrollCard.Clicks, "fourth plan holds the genuine zero premium")
}

func TestRunNoZeroPremiumPlanSkipsWithObservedPremiums(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 1, "Male")
	scriptIncomeToSignature(driver, "$12.50", "Aetna CVS Health")

	for _, p := range []string{"$43.20", "$18.00"} {
		driver.Add(&browsertest.FakeElement{
			Loc:       browser.Locator{Value: `//var[@data-var='dollars']`},
			TextValue: p,
		})
	}
	driver.Add(&browsertest.FakeElement{
		Loc: browser.Locator{Value: `//button[contains(text(), 'Enroll') or contains(text(), 'Add to cart')]`},
	})

	client := newClient()
	stdErr := newTestMachine(t, driver).Run(context.Background(), &Context{}, client)

	require.Nil(t, stdErr)
	assert.Equal(t, models.StatusSkippedNoZeroPremiumPlan, client.Status)
	assert.Contains(t, client.ErrorDetail, "$43.20")
	assert.Contains(t, client.ErrorDetail, "$18.00")
}

func TestRunPlanChangeProceedsWhenOnlyPlanCardsRendered(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 1, "Male")
	scriptIncomeToSignature(driver, "$12.50", "Cigna Healthcare")

	// Cards have rendered but the enroll buttons have not; the refresh wait
	// must accept the cards as the results marker.
	driver.Add(&browsertest.FakeElement{
		Loc: browser.Locator{Value: `div[class*='plan-card'], div[data-test*='plan']`},
	})
	for _, p := range []string{"$43.20", "$18.00"} {
		driver.Add(&browsertest.FakeElement{
			Loc:       browser.Locator{Value: `//var[@data-var='dollars']`},
			TextValue: p,
		})
	}

	client := newClient()
	stdErr := newTestMachine(t, driver).Run(context.Background(), &Context{}, client)

	require.Nil(t, stdErr)
	assert.Equal(t, models.StatusSkippedNoZeroPremiumPlan, client.Status,
		"scan must run, not time out waiting for enroll buttons")
	assert.Contains(t, client.ErrorDetail, "$43.20")
}

func TestRunCancellationFinalizesAsError(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 1, "Male")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newClient()
	stdErr := newTestMachine(t, driver).Run(ctx, &Context{}, client)

	require.NotNil(t, stdErr)
	assert.Equal(t, commonerrors.ErrCodeInterrupted, stdErr.Code)
	assert.Equal(t, models.StatusError, client.Status)
	require.NotNil(t, client.FinishedAt)
}

func TestRunMissingCongratulationsMarkerIsError(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	scriptToIncome(driver, 1, "Male")
	scriptIncomeToSignature(driver, "$0.00", "Molina Healthcare")
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: `//button[normalize-space()='Enroll in this plan']`}})
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: `//input[@type='text' and contains(@id, 'signature')]`}})
	// No congratulations marker ever appears.

	client := newClient()
	stdErr := newTestMachine(t, driver).Run(context.Background(), &Context{}, client)

	require.NotNil(t, stdErr)
	assert.Equal(t, models.StatusError, client.Status)
	assert.Contains(t, client.ErrorDetail, "signature")
}
