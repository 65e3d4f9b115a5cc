// Package workflow sequences the renewal flow for one client as an explicit
// state machine: one handler per page, typed outcomes, no fault escapes Run.
package workflow

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"renewal-bot/internal/browser"
	commonerrors "renewal-bot/internal/common/errors"
	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/models"
	"renewal-bot/internal/resolver"
	"renewal-bot/internal/step"
)

type State string

const (
	StateConsent          State = "consent"
	StateContactSummary   State = "contact_summary"
	StateHouseholdSummary State = "household_summary"
	StatePathChoice       State = "path_choice"
	StateLongPath         State = "long_path"
	StateIncomeEdit       State = "income_edit"
	StateVerification     State = "verification"
	StateEligibility      State = "eligibility"
	StatePlanConfirmation State = "plan_confirmation"
	StatePlanChange       State = "plan_change"
	StateSignature        State = "signature"
	StateEnrolled         State = "enrolled"
	StateDone             State = "done"
)

// maxTransitions bounds the run loop. The flow is one-directional, so any run
// that takes more transitions than states has a handler bug.
const maxTransitions = 24

// Context is the per-client flow context. One instance per in-flight client,
// owned by the machine run, discarded at terminal status.
type Context struct {
	State                State
	LongPath             bool
	CarrierFilterApplied bool
	IncomeAttempts       int
	Transitions          int
}

// Params are the policy inputs of the flow. Income bounds are opaque
// configuration, not a computed value.
type Params struct {
	ApprovedCarriers []string
	IncomeMin        int
	IncomeMax        int
	IncomeRetries    int
	SignatureTimeout time.Duration
	Rand             *rand.Rand
}

type handlerFunc func(ctx context.Context, wc *Context, client *models.ClientRecord) (State, error)

// Machine runs the renewal flow. Construct one per batch; Run is invoked once
// per client with a fresh Context.
type Machine struct {
	driver   browser.Driver
	exec     *step.Executor
	resolver *resolver.Resolver
	logger   logger.Logger
	params   Params
	handlers map[State]handlerFunc
}

func NewMachine(driver browser.Driver, exec *step.Executor, res *resolver.Resolver, log logger.Logger, params Params) *Machine {
	if params.IncomeRetries <= 0 {
		params.IncomeRetries = 3
	}
	if params.SignatureTimeout <= 0 {
		params.SignatureTimeout = 15 * time.Second
	}
	if params.Rand == nil {
		params.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m := &Machine{
		driver:   driver,
		exec:     exec,
		resolver: res,
		logger:   log,
		params:   params,
	}
	m.handlers = map[State]handlerFunc{
		StateConsent:          m.handleConsent,
		StateContactSummary:   m.handleContactSummary,
		StateHouseholdSummary: m.handleHouseholdSummary,
		StatePathChoice:       m.handlePathChoice,
		StateLongPath:         m.handleLongPath,
		StateIncomeEdit:       m.handleIncomeEdit,
		StateVerification:     m.handleVerification,
		StateEligibility:      m.handleEligibility,
		StatePlanConfirmation: m.handlePlanConfirmation,
		StatePlanChange:       m.handlePlanChange,
		StateSignature:        m.handleSignature,
		StateEnrolled:         m.handleEnrolled,
	}
	return m
}

// Run drives one client to a terminal status. It never returns an unhandled
// fault: every error is classified and folded into the record, and the
// returned StandardError exists for the audit detail, not for control flow.
func (m *Machine) Run(ctx context.Context, wc *Context, client *models.ClientRecord) *commonerrors.StandardError {
	if wc.State == "" {
		wc.State = StateConsent
	}
	now := time.Now().UTC()
	client.StartedAt = &now
	client.Status = models.StatusInProgress

	for wc.State != StateDone {
		if err := ctx.Err(); err != nil {
			stdErr := commonerrors.NewInterrupted(string(wc.State))
			client.Finalize(models.StatusError, stdErr.Message)
			return stdErr
		}
		if wc.Transitions++; wc.Transitions > maxTransitions {
			stdErr := commonerrors.NewStepFailed(string(wc.State), fmt.Sprintf("transition limit %d exceeded", maxTransitions))
			client.Finalize(models.StatusError, stdErr.Message)
			return stdErr
		}

		handler, ok := m.handlers[wc.State]
		if !ok {
			stdErr := commonerrors.NewStepFailed(string(wc.State), "no handler for state")
			client.Finalize(models.StatusError, stdErr.Message)
			return stdErr
		}

		m.logger.Debug("entering state", map[string]interface{}{
			"client": client.FullName,
			"state":  wc.State,
		})

		next, err := handler(ctx, wc, client)
		if err != nil {
			stdErr := commonerrors.Classify(err)
			m.logger.Error("state handler failed", map[string]interface{}{
				"client": client.FullName,
				"state":  wc.State,
				"code":   stdErr.Code,
				"error":  stdErr.Message,
			})
			detail := stdErr.Message
			if stdErr.Details != "" {
				detail = stdErr.Details
			}
			client.Finalize(models.StatusError, fmt.Sprintf("%s: %s", wc.State, detail))
			return stdErr
		}
		wc.State = next
	}

	// Handlers that skip finalize on their own; a run that fell through
	// without any terminal status is a bug surfaced as Error.
	if !client.Status.Terminal() {
		client.Finalize(models.StatusError, "flow ended without terminal status")
		return commonerrors.NewStepFailed("done", "flow ended without terminal status")
	}
	return nil
}

// hardFailErr converts a HardFail step result into the error the run loop
// classifies. SoftFail and Success never come through here.
func hardFailErr(stepName string, res step.Result) error {
	return commonerrors.NewStepFailed(stepName, res.Reason)
}
