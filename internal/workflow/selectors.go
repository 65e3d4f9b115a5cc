package workflow

import "renewal-bot/internal/browser"

// Descriptor catalog for the renewal flow. Each element the flow touches is
// named by an ordered fallback list; order matters, the most specific and
// most stable locator goes first. The marketplace re-skins regularly, so
// structural XPaths back up every id/name hook.

func continueButton() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByID, Value: "page-nav-on-next-btn", Label: "continue by id"},
		{Strategy: browser.ByXPath, Value: `//button[@type='submit' and contains(text(), 'Continue')]`, Label: "continue submit button"},
	}
}

func continueWithPlan() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//button[normalize-space()='Continue with plan']`, Label: "continue with plan exact"},
		{Strategy: browser.ByXPath, Value: `//button[contains(., 'Continue with plan')]`, Label: "continue with plan contains"},
		{Strategy: browser.ByXPath, Value: `//button[@type='submit' and contains(., 'Continue')]`, Label: "continue submit"},
	}
}

func consentDataCheckbox() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByCSS, Value: `input[name='consentData']`, Label: "consentData by name"},
		{Strategy: browser.ByCSS, Value: `#consentData`, Label: "consentData by id"},
		{Strategy: browser.ByXPath, Value: `//label[contains(., 'I agree to have my information used')]//input[@type='checkbox']`, Label: "consentData by label text"},
	}
}

func consentSepCheckbox() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByCSS, Value: `input[name='consentSep']`, Label: "consentSep by name"},
		{Strategy: browser.ByXPath, Value: `//label[contains(., 'I understand that I')]//input[@type='checkbox']`, Label: "consentSep by label text"},
	}
}

func storeConsentButton() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByCSS, Value: `button[aria-label='Store consent outside of HealthSherpa']`, Label: "store consent by aria-label"},
		{Strategy: browser.ByXPath, Value: `//button[contains(., 'Store consent outside')]`, Label: "store consent by text"},
	}
}

func sexCell() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//table[@title='primary person info']//tbody//tr//td[3]`, Label: "sex cell in contact table"},
	}
}

func femaleRadio() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//button[@role='radio' and contains(text(), 'Female')]`, Label: "female radio"},
	}
}

// eligibleMemberCells matches one cell per household member who can enroll.
// The count drives the family-policy gate.
func eligibleMemberCells() browser.Locator {
	return browser.Locator{Strategy: browser.ByXPath, Value: `//td[contains(text(),'Eligible to enroll')]`, Label: "eligible member cells"}
}

func skipToEndButton() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//button[normalize-space()='Skip to the end']`, Label: "skip to the end"},
	}
}

func pregnancyNoRadio() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//*[contains(text(), 'pregnant') or contains(text(), 'Pregnant')]/ancestor::fieldset//button[@role='radio' and normalize-space()='No']`, Label: "pregnancy no in fieldset"},
		{Strategy: browser.ByXPath, Value: `//button[@role='radio' and normalize-space()='No']`, Label: "pregnancy no radio"},
	}
}

func incomeInput() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//input[@type='text' and contains(@name, 'income')]`, Label: "income text input by name"},
		{Strategy: browser.ByXPath, Value: `//input[@type='number' and contains(@name, 'income')]`, Label: "income number input by name"},
		{Strategy: browser.ByXPath, Value: `//input[contains(@placeholder, 'income')]`, Label: "income input by placeholder"},
		{Strategy: browser.ByXPath, Value: `//input[contains(@id, 'income')]`, Label: "income input by id"},
		{Strategy: browser.ByCSS, Value: `input[name*='income']`, Label: "income input by css name"},
		{Strategy: browser.ByXPath, Value: `//label[contains(text(), 'income')]/following-sibling::input[1]`, Label: "income input after label"},
	}
}

func ssnInput() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByCSS, Value: `input[name='ssn']`, Label: "ssn input"},
	}
}

func eligibilityMarker() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//*[contains(text(), 'Eligibility Results') or contains(text(), 'eligibility results')]`, Label: "eligibility results heading"},
	}
}

func followupsCell() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//th[contains(text(), 'Followups')]/ancestor::table//tbody/tr[1]/td[3]`, Label: "followups column"},
		{Strategy: browser.ByXPath, Value: `//table//td[3]`, Label: "third table column"},
		{Strategy: browser.ByCSS, Value: `table tbody tr td:nth-child(3)`, Label: "css third column"},
	}
}

func carrierName() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//h2[contains(@class, 'carrier')]`, Label: "carrier heading"},
		{Strategy: browser.ByXPath, Value: `//div[contains(@class, 'carrier-name')]`, Label: "carrier name div"},
		{Strategy: browser.ByXPath, Value: `//img[@class='issuer-logo']`, Label: "issuer logo"},
	}
}

// premiumAmount deliberately scopes to the active-price container so a
// struck-through "was" price never matches.
func premiumAmount() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//div[contains(@class, '_mt6_wndsr')]//var[@data-var='dollars']`, Label: "premium var in summary"},
		{Strategy: browser.ByXPath, Value: `//var[@data-var='dollars'][not(ancestor::div[contains(@class, 'strikethrough') or contains(@class, 'strike')])]`, Label: "premium var not struck"},
	}
}

func enrollButton() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//button[normalize-space()='Enroll in this plan']`, Label: "enroll exact"},
		{Strategy: browser.ByXPath, Value: `//button[contains(text(), 'Enroll in this plan')]`, Label: "enroll contains"},
		{Strategy: browser.ByXPath, Value: `//button[normalize-space()='Proceed to checkout']`, Label: "proceed to checkout"},
		{Strategy: browser.ByXPath, Value: `//button[normalize-space()='Review plan']`, Label: "review plan"},
		{Strategy: browser.ByID, Value: "page-nav-on-next-btn", Label: "continue by id"},
	}
}

func signatureSection() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//h2[contains(text(), 'Signature')]`, Label: "signature heading"},
		{Strategy: browser.ByXPath, Value: `//label[contains(text(), 'signature')]`, Label: "signature label"},
	}
}

func signatureInput() []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//input[@type='text' and contains(@id, 'signature')]`, Label: "signature input by id"},
		{Strategy: browser.ByCSS, Value: `input[name*='signature']`, Label: "signature input by name"},
	}
}

func congratulationsMarker() browser.Locator {
	return browser.Locator{Strategy: browser.ByXPath, Value: `//*[contains(text(), 'Congratulations') or contains(text(), 'Success') or contains(text(), 'enrolled')]`, Label: "congratulations marker"}
}

// Plan-search page.

func carrierFilterCheckbox(carrier string) []browser.Locator {
	return []browser.Locator{
		{Strategy: browser.ByXPath, Value: `//label[contains(translate(., 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), '` + carrier + `')]//input[@type='checkbox']`, Label: "carrier filter " + carrier},
		{Strategy: browser.ByXPath, Value: `//label[contains(., 'Carrier')]/ancestor::fieldset//label[contains(translate(., 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), '` + carrier + `')]`, Label: "carrier filter label " + carrier},
	}
}

func planCards() browser.Locator {
	return browser.Locator{Strategy: browser.ByCSS, Value: `div[class*='plan-card'], div[data-test*='plan']`, Label: "plan result cards"}
}

func planResultsMarker() browser.Locator {
	return browser.Locator{Strategy: browser.ByXPath, Value: `//button[contains(text(), 'Enroll') or contains(text(), 'Add to cart')]`, Label: "plan results loaded"}
}
