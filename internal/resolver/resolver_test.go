package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renewal-bot/internal/browser"
	"renewal-bot/internal/browser/browsertest"
	"renewal-bot/internal/common/logger"
)

func testLocators() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByID, Value: "continue-btn", Label: "continue by id"},
		{Strategy: browser.ByCSS, Value: "button.continue", Label: "continue by class"},
		{Strategy: browser.ByXPath, Value: `//button[text()='Continue']`, Label: "continue by text"},
	}
}

func TestResolveFirstDescriptorWins(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: "continue-btn", Label: "continue by id"}})
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: "button.continue", Label: "continue by class"}})

	r := New(driver, logger.NewTestLogger(t), time.Second)
	el, err := r.Resolve(context.Background(), testLocators(), browser.CondPresent, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "continue by id", el.Locator().Label)
}

func TestResolveFallsThroughToLaterDescriptor(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	// Only the third descriptor matches anything.
	driver.Add(&browsertest.FakeElement{Loc: browser.Locator{Value: `//button[text()='Continue']`, Label: "continue by text"}})

	r := New(driver, logger.NewTestLogger(t), time.Second)
	el, err := r.Resolve(context.Background(), testLocators(), browser.CondPresent, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "continue by text", el.Locator().Label)
}

func TestResolveExhaustedReportsEveryTriedLabel(t *testing.T) {
	driver := browsertest.NewFakeDriver()

	r := New(driver, logger.NewTestLogger(t), 50*time.Millisecond)
	_, err := r.Resolve(context.Background(), testLocators(), browser.CondPresent, 150*time.Millisecond)
	require.Error(t, err)
	require.True(t, IsFailure(err))

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, []string{"continue by id", "continue by class", "continue by text"}, f.Tried)
}

func TestResolveDriverFaultAbortsImmediately(t *testing.T) {
	driver := browsertest.NewFakeDriver()
	driver.Err = errors.New("websocket: close 1006")

	r := New(driver, logger.NewTestLogger(t), 50*time.Millisecond)
	_, err := r.Resolve(context.Background(), testLocators(), browser.CondPresent, 150*time.Millisecond)
	require.Error(t, err)
	assert.False(t, IsFailure(err), "transport fault must not look like markup drift")
}

func TestResolveEmptyListFails(t *testing.T) {
	r := New(browsertest.NewFakeDriver(), logger.NewTestLogger(t), time.Second)
	_, err := r.Resolve(context.Background(), nil, browser.CondPresent, time.Second)
	require.True(t, IsFailure(err))
}
