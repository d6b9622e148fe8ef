package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyFlags_CompanyID(t *testing.T) {
	f := &companyFlags{company: "Acme Labs", domain: "acme.example"}
	id, err := f.companyID()
	require.NoError(t, err)
	assert.Equal(t, "Acme Labs", id.Name)
	assert.Equal(t, "acme.example", id.Domain)

	f = &companyFlags{}
	_, err = f.companyID()
	require.Error(t, err)
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	want := []string{"scan", "discover", "analyze", "aggregate", "cache-clear"}
	got := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "command %s not registered", name)
	}
}
