// Package resetflow implements the client-side password-reset flow: a
// four-step state machine that walks a user from phone entry through code
// verification to a new password. It is transport-agnostic; callers supply
// a Client for the server round trips.
package resetflow

import (
	"context"
	"strings"
	"time"
)

// Step identifies the current position in the reset flow
type Step string

const (
	StepPhone    Step = "phone"
	StepCode     Step = "code"
	StepPassword Step = "password"
	StepSuccess  Step = "success"
)

// ResendCooldown is how long the resend action stays disabled after a code
// was dispatched. Client-side only; the server enforces its own hourly
// budget per phone.
const ResendCooldown = 60 * time.Second

// User-facing messages for locally detected problems
const (
	MsgConnectionError  = "Connection error. Please try again."
	MsgInvalidPhone     = "Invalid phone number. Use the format: (11) 98765-4321"
	MsgCodeLength       = "Code must be 6 digits."
	MsgPasswordTooShort = "New password must be at least 6 characters."
	MsgPasswordMismatch = "Passwords do not match."
	MsgBusy             = "Please wait..."
)

const minPasswordLen = 6

// Flow holds the state of one password-reset attempt. It is meant to be
// driven from a single goroutine (a UI event loop); it is not safe for
// concurrent use.
type Flow struct {
	client Client

	step    Step
	busy    bool
	errMsg  string
	infoMsg string

	phone    string
	code     string
	password string
	confirm  string

	devCode   string
	rateLimit *RateLimitSnapshot

	cooldownUntil time.Time
	countdown     int

	now func() time.Time
}

// New creates a Flow positioned at the phone step
func New(client Client) *Flow {
	return &Flow{
		client: client,
		step:   StepPhone,
		now:    time.Now,
	}
}

// SetClock overrides the time source for countdown tests
func (f *Flow) SetClock(now func() time.Time) {
	f.now = now
}

// Accessors

func (f *Flow) Step() Step                      { return f.step }
func (f *Flow) Busy() bool                      { return f.busy }
func (f *Flow) Error() string                   { return f.errMsg }
func (f *Flow) Info() string                    { return f.infoMsg }
func (f *Flow) Phone() string                   { return f.phone }
func (f *Flow) Code() string                    { return f.code }
func (f *Flow) DevCodeHint() string             { return f.devCode }
func (f *Flow) RateLimit() *RateLimitSnapshot   { return f.rateLimit }
func (f *Flow) ResendCountdown() int            { return f.countdown }
func (f *Flow) CanResend() bool                 { return f.countdown == 0 && !f.busy }

// Input setters. Editing an input clears any displayed error.

// SetPhone stores the phone input with display grouping applied
func (f *Flow) SetPhone(input string) {
	f.phone = formatDisplay(input)
	f.errMsg = ""
}

// SetCode keeps digits only and truncates to 6 characters
func (f *Flow) SetCode(input string) {
	digits := digitsOnly(input)
	if len(digits) > 6 {
		digits = digits[:6]
	}
	f.code = digits
	f.errMsg = ""
}

func (f *Flow) SetPassword(input string) {
	f.password = input
	f.errMsg = ""
}

func (f *Flow) SetConfirm(input string) {
	f.confirm = input
	f.errMsg = ""
}

// Back moves one step backwards. Success is terminal.
func (f *Flow) Back() {
	switch f.step {
	case StepCode:
		f.step = StepPhone
		f.infoMsg = ""
	case StepPassword:
		f.step = StepCode
		f.infoMsg = ""
	}
	f.errMsg = ""
}

// Tick advances the resend countdown. Call it once per second while the
// code step is visible.
func (f *Flow) Tick() {
	if f.cooldownUntil.IsZero() {
		f.countdown = 0
		return
	}
	remaining := f.cooldownUntil.Sub(f.now())
	if remaining <= 0 {
		f.countdown = 0
		f.cooldownUntil = time.Time{}
		return
	}
	f.countdown = int(remaining.Seconds())
	if remaining%time.Second > 0 {
		f.countdown++
	}
}

// SubmitPhone validates the phone locally, requests a code and advances to
// the code step on success
func (f *Flow) SubmitPhone(ctx context.Context) {
	if f.busy {
		return
	}
	if !looksLikePhone(f.phone) {
		f.errMsg = MsgInvalidPhone
		return
	}

	f.busy = true
	defer func() { f.busy = false }()

	if snapshot, err := f.client.RateLimitStatus(ctx, f.phone); err == nil {
		f.rateLimit = &snapshot
	}

	outcome, err := f.client.RequestCode(ctx, f.phone)
	if err != nil {
		f.errMsg = MsgConnectionError
		return
	}
	if !outcome.Success {
		f.errMsg = outcome.Message
		return
	}

	f.errMsg = ""
	f.infoMsg = outcome.Message
	f.devCode = outcome.DevCode
	f.startCooldown()
	f.step = StepCode
}

// SubmitCode verifies the entered code and advances to the password step
func (f *Flow) SubmitCode(ctx context.Context) {
	if f.busy {
		return
	}
	if len(f.code) != 6 {
		f.errMsg = MsgCodeLength
		return
	}

	f.busy = true
	defer func() { f.busy = false }()

	outcome, err := f.client.VerifyCode(ctx, f.phone, f.code)
	if err != nil {
		f.errMsg = MsgConnectionError
		return
	}
	if !outcome.Success {
		f.errMsg = outcome.Message
		return
	}

	f.errMsg = ""
	f.infoMsg = outcome.Message
	f.step = StepPassword
}

// SubmitPassword validates the new password locally and completes the reset
func (f *Flow) SubmitPassword(ctx context.Context) {
	if f.busy {
		return
	}
	if len(f.password) < minPasswordLen {
		f.errMsg = MsgPasswordTooShort
		return
	}
	if f.password != f.confirm {
		f.errMsg = MsgPasswordMismatch
		return
	}

	f.busy = true
	defer func() { f.busy = false }()

	outcome, err := f.client.ResetPassword(ctx, f.phone, f.code, f.password)
	if err != nil {
		f.errMsg = MsgConnectionError
		return
	}
	if !outcome.Success {
		f.errMsg = outcome.Message
		return
	}

	f.errMsg = ""
	f.infoMsg = outcome.Message
	f.step = StepSuccess
}

// Resend re-runs the phone submission while staying on the code step.
// Refused while the cooldown is running.
func (f *Flow) Resend(ctx context.Context) {
	if !f.CanResend() {
		return
	}

	f.busy = true

	if snapshot, err := f.client.RateLimitStatus(ctx, f.phone); err == nil {
		f.rateLimit = &snapshot
	}

	outcome, err := f.client.RequestCode(ctx, f.phone)
	f.busy = false
	if err != nil {
		f.errMsg = MsgConnectionError
		return
	}
	if !outcome.Success {
		f.errMsg = outcome.Message
		return
	}

	f.errMsg = ""
	f.infoMsg = outcome.Message
	f.devCode = outcome.DevCode
	f.startCooldown()
}

func (f *Flow) startCooldown() {
	f.cooldownUntil = f.now().Add(ResendCooldown)
	f.countdown = int(ResendCooldown.Seconds())
}

// looksLikePhone is a light local check; the server performs full
// normalization and area-code validation
func looksLikePhone(input string) bool {
	digits := digitsOnly(input)
	return len(digits) >= 10 && len(digits) <= 13
}

func digitsOnly(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// formatDisplay renders digits with visual grouping as the user types,
// "(11) 98765-4321" for a full mobile number
func formatDisplay(input string) string {
	digits := digitsOnly(input)
	if len(digits) > 11 {
		digits = digits[:11]
	}

	switch {
	case len(digits) == 0:
		return ""
	case len(digits) <= 2:
		return "(" + digits
	case len(digits) <= 7:
		return "(" + digits[:2] + ") " + digits[2:]
	default:
		return "(" + digits[:2] + ") " + digits[2:7] + "-" + digits[7:]
	}
}
