package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// Confirm shows a yes/no prompt.
func Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&result).
		Run()
	if err != nil {
		return defaultValue, err
	}
	return result, nil
}

// ConfirmDangerous asks before an irreversible action. description
// explains what will be lost.
func ConfirmDangerous(message, description string) (bool, error) {
	var result bool
	err := huh.NewConfirm().
		Title(message).
		Description(description).
		Affirmative("Yes, I'm sure").
		Negative("Cancel").
		Value(&result).
		Run()
	if err != nil {
		return false, err
	}
	return result, nil
}

// TypeToConfirm makes the user type want exactly and returns what was typed.
func TypeToConfirm(title, want string) (string, error) {
	var typed string
	err := huh.NewInput().
		Title(title).
		Description(fmt.Sprintf("Type %q to continue.", want)).
		Value(&typed).
		Validate(equals(want, fmt.Sprintf("type %q to confirm", want))).
		Run()
	return typed, err
}

// Credentials holds a login form's answers.
type Credentials struct {
	Email    string
	Password string
}

// credentialsForm prefills email when known.
func credentialsForm(c *Credentials, validEmail func(string) error) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Value(&c.Email).
			Validate(all(required("email"), validEmail)),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&c.Password).
			Validate(required("password")),
	).Title("Sign in to TaskHub"))
}

// PromptCredentials asks for an email and password.
func PromptCredentials(email string, validEmail func(string) error) (Credentials, error) {
	c := Credentials{Email: email}
	if err := credentialsForm(&c, validEmail).Run(); err != nil {
		return Credentials{}, err
	}
	c.Email = strings.TrimSpace(c.Email)
	return c, nil
}

// PasswordChange holds a change-password form's answers.
type PasswordChange struct {
	Current string
	New     string
	Confirm string
}

func passwordChangeForm(p *PasswordChange, validPassword func(string) error) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Current password").
			EchoMode(huh.EchoModePassword).
			Value(&p.Current).
			Validate(required("current password")),
		huh.NewInput().
			Title("New password").
			EchoMode(huh.EchoModePassword).
			Value(&p.New).
			Validate(validPassword),
		huh.NewInput().
			Title("Repeat new password").
			EchoMode(huh.EchoModePassword).
			Value(&p.Confirm).
			Validate(func(s string) error {
				if s != p.New {
					return errors.New("entries do not match")
				}
				return nil
			}),
	).Title("Change password"))
}

// PromptPasswordChange asks for the current password and a new one twice.
func PromptPasswordChange(validPassword func(string) error) (PasswordChange, error) {
	var p PasswordChange
	err := passwordChangeForm(&p, validPassword).Run()
	return p, err
}

// NewWorkspace holds the onboarding form's answers.
type NewWorkspace struct {
	Name        string
	Description string
}

func onboardingForm(w *NewWorkspace, validName func(string) error) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to TaskHub").
				Description("You are not a member of any workspace yet.\nCreate one to get started, or join with an invite link."),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Workspace name").
				Placeholder("Acme").
				Value(&w.Name).
				Validate(validName),
			huh.NewText().
				Title("Description").
				Placeholder("Optional").
				Value(&w.Description),
		),
	)
}

// PromptNewWorkspace runs the first-workspace onboarding.
func PromptNewWorkspace(validName func(string) error) (NewWorkspace, error) {
	var w NewWorkspace
	if err := onboardingForm(&w, validName).Run(); err != nil {
		return NewWorkspace{}, err
	}
	w.Name = strings.TrimSpace(w.Name)
	w.Description = strings.TrimSpace(w.Description)
	return w, nil
}

// SelectOption is one option of a select prompt.
type SelectOption struct {
	Value string
	Label string
}

// Select shows a single-select prompt with current preselected.
func Select(title, current string, options []SelectOption) (string, error) {
	huhOptions := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt.Label, opt.Value).Selected(opt.Value == current)
	}

	result := current
	err := huh.NewSelect[string]().
		Title(title).
		Options(huhOptions...).
		Value(&result).
		Run()
	return result, err
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func equals(want, msg string) func(string) error {
	return func(s string) error {
		if s != want {
			return errors.New(msg)
		}
		return nil
	}
}

// all chains validators, skipping nil ones.
func all(fns ...func(string) error) func(string) error {
	return func(s string) error {
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(s); err != nil {
				return err
			}
		}
		return nil
	}
}
