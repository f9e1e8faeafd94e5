package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"github.com/taskhub/taskhub-cli/internal/output"
)

// Validator is implemented by DTOs checked at the gateway boundary.
type Validator interface {
	Validate() error
}

// Record is anything with a stable string identity.
type Record interface {
	RecordID() string
}

var errMissingID = errors.New("missing id")

func (u User) RecordID() string          { return u.ID }
func (w Workspace) RecordID() string     { return w.ID }
func (m Member) RecordID() string        { return m.UserID }
func (p Project) RecordID() string       { return p.ID }
func (t Task) RecordID() string          { return t.ID }
func (c Comment) RecordID() string       { return c.ID }
func (a Activity) RecordID() string      { return a.ID }
func (s Subscription) RecordID() string  { return s.ID }
func (d Documentation) RecordID() string { return d.EntityType + ":" + d.EntityID }

func (u User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user: %w", errMissingID)
	}
	return nil
}

func (w Workspace) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("workspace: %w", errMissingID)
	}
	if w.AccessLevel != "" && !w.AccessLevel.Valid() {
		return fmt.Errorf("workspace %s: unknown access level %q", w.ID, w.AccessLevel)
	}
	return nil
}

func (m Member) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("member: missing userId")
	}
	if !m.AccessLevel.Valid() {
		return fmt.Errorf("member %s: unknown access level %q", m.UserID, m.AccessLevel)
	}
	return nil
}

func (p Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("project: %w", errMissingID)
	}
	return nil
}

func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task: %w", errMissingID)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("task %s: unknown status %q", t.ID, t.Status)
	}
	if t.Priority != "" && !t.Priority.Valid() {
		return fmt.Errorf("task %s: unknown priority %q", t.ID, t.Priority)
	}
	if t.Position < 0 {
		return fmt.Errorf("task %s: negative position %d", t.ID, t.Position)
	}
	return nil
}

func (c Comment) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("comment: %w", errMissingID)
	}
	return nil
}

func (a Activity) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("activity: %w", errMissingID)
	}
	return nil
}

func (l InviteLink) Validate() error {
	if l.Token == "" {
		return fmt.Errorf("invite link: missing token")
	}
	return nil
}

func (d Documentation) Validate() error {
	if len(d.Content) > 0 && !jsonLike(d.Content) {
		return fmt.Errorf("documentation %s:%s: content is not JSON", d.EntityType, d.EntityID)
	}
	return nil
}

func (s Subscription) Validate() error {
	if !s.Plan.Valid() {
		return fmt.Errorf("subscription: unknown plan %q", s.Plan)
	}
	if s.Frequency != "" && !s.Frequency.Valid() {
		return fmt.Errorf("subscription: unknown frequency %q", s.Frequency)
	}
	return nil
}

func (o Order) Validate() error {
	switch {
	case o.OrderID == "":
		return fmt.Errorf("order: missing orderId")
	case o.Amount <= 0:
		return fmt.Errorf("order %s: non-positive amount", o.OrderID)
	case o.Currency == "":
		return fmt.Errorf("order %s: missing currency", o.OrderID)
	}
	return nil
}

func (p Page[T]) Validate() error {
	if err := p.Pagination.Validate(); err != nil {
		return err
	}
	for i := range p.Data {
		if v, ok := any(p.Data[i]).(Validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}

func jsonLike(b []byte) bool {
	s := strings.TrimSpace(string(b))
	return s != "" && (s[0] == '{' || s[0] == '[' || s == "null")
}

// Input validation. Failures are *output.Error with the validation code and
// are raised before any request is dispatched.

const (
	maxNameLength     = 100
	minPasswordLength = 8
)

// ValidateName requires a non-blank name within the length limit.
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return output.ErrValidation(field, "must not be empty")
	}
	if len([]rune(name)) > maxNameLength {
		return output.ErrValidation(field, fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return nil
}

// ValidateEmail requires a single well-formed address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return output.ErrValidation("email", "must be a valid email address")
	}
	return nil
}

// ValidatePassword enforces length plus upper, lower and digit classes.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return output.ErrValidation("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return output.ErrValidation("password", "must contain an uppercase letter, a lowercase letter and a digit")
	}
	return nil
}

// ValidateConfirmation requires got to equal want exactly, e.g. a typed
// workspace name or "DELETE" before a destructive action.
func ValidateConfirmation(want, got string) error {
	if got != want {
		return output.ErrValidation("confirmation", fmt.Sprintf("type %q to confirm", want))
	}
	return nil
}

// ValidateMatch requires two entries (password and its repeat) to match.
func ValidateMatch(field, a, b string) error {
	if a != b {
		return output.ErrValidation(field, "entries do not match")
	}
	return nil
}

// ParseStatus parses a kanban status, accepting lower case and dashes.
func ParseStatus(s string) (TaskStatus, error) {
	st := TaskStatus(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !st.Valid() {
		return "", output.ErrValidation("status", fmt.Sprintf("must be one of TODO, IN_PROGRESS, IN_REVIEW, DONE (got %q)", s))
	}
	return st, nil
}

// ParsePriority parses a task priority, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", output.ErrValidation("priority", fmt.Sprintf("must be one of LOW, MEDIUM, HIGH, URGENT (got %q)", s))
	}
	return p, nil
}

// ParseAccessLevel parses a member role, case-insensitively.
func ParseAccessLevel(s string) (AccessLevel, error) {
	a := AccessLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", output.ErrValidation("access level", fmt.Sprintf("must be one of OWNER, MEMBER, VIEWER (got %q)", s))
	}
	return a, nil
}

// ParsePlan parses a subscription plan, case-insensitively.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", output.ErrValidation("plan", fmt.Sprintf("must be one of FREE, PRO, ENTERPRISE (got %q)", s))
	}
	return p, nil
}

// ParseFrequency parses a billing frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", output.ErrValidation("frequency", fmt.Sprintf("must be monthly or yearly (got %q)", s))
	}
	return f, nil
}
