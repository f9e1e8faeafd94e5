package commands_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskhub/taskhub-cli/internal/cli"
	"github.com/taskhub/taskhub-cli/internal/commands"
)

func TestCatalogMatchesRegisteredCommands(t *testing.T) {
	root := cli.NewRootCmd()
	cli.AddCommands(root)

	// Trigger Cobra's auto-addition of help subcommand
	root.InitDefaultHelpCmd()

	registered := make(map[string]bool)
	for _, cmd := range root.Commands() {
		registered[cmd.Name()] = true
	}

	catalog := make(map[string]bool)
	for _, name := range commands.CatalogCommandNames() {
		catalog[name] = true
	}

	var missingFromRegistered, missingFromCatalog []string
	for name := range catalog {
		if !registered[name] {
			missingFromRegistered = append(missingFromRegistered, name)
		}
	}
	for name := range registered {
		if !catalog[name] {
			missingFromCatalog = append(missingFromCatalog, name)
		}
	}
	sort.Strings(missingFromRegistered)
	sort.Strings(missingFromCatalog)

	assert.Empty(t, missingFromRegistered, "Commands in catalog but not registered: %v", missingFromRegistered)
	assert.Empty(t, missingFromCatalog, "Commands registered but not in catalog: %v", missingFromCatalog)
}

func TestCatalogActionsMatchSubcommands(t *testing.T) {
	root := cli.NewRootCmd()
	cli.AddCommands(root)

	byName := make(map[string]map[string]bool)
	for _, cmd := range root.Commands() {
		subs := make(map[string]bool)
		for _, sub := range cmd.Commands() {
			subs[sub.Name()] = true
		}
		byName[cmd.Name()] = subs
	}

	for _, name := range []string{"workspaces", "projects", "tasks", "members", "invite", "comments", "docs", "billing", "auth", "account", "config"} {
		subs := byName[name]
		assert.NotEmpty(t, subs, name)
		for _, action := range commands.CatalogActions(name) {
			assert.True(t, subs[action], "%s %s is in the catalog but not registered", name, action)
		}
	}
}
