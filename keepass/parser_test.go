package keepass

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Classify(t *testing.T) {
	var p outputParser

	tests := []struct {
		name string
		res  execResult
		want error
	}{
		{"success", execResult{exitCode: 0}, nil},
		{"wrong password", execResult{exitCode: 1, stderr: "Error while reading the database: Invalid password or key file"}, ErrAuthenticationFailed},
		{"failed open", execResult{exitCode: 1, stderr: "Failed to open database file"}, ErrAuthenticationFailed},
		{"database missing", execResult{exitCode: 1, stderr: "Database file /tmp/x.kdbx does not exist"}, ErrDatabaseNotFound},
		{"entry missing", execResult{exitCode: 1, stderr: "Entry Work/GitHub not found"}, ErrEntryNotFound},
		{"locked", execResult{exitCode: 1, stderr: "The database is locked by another instance"}, ErrDatabaseLocked},
		{"timeout", execResult{exitCode: 1, stderr: "operation timed out"}, ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.classify(tt.res)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParser_ClassifyTruncatesGenericOutput(t *testing.T) {
	var p outputParser

	err := p.classify(execResult{exitCode: 2, stderr: strings.Repeat("x", 5000)})
	require.ErrorIs(t, err, ErrCommand)
	assert.Less(t, len(err.Error()), 300)
}

func TestParser_Version(t *testing.T) {
	var p outputParser

	v, err := p.version("KeePassXC-cli 2.7.9")
	require.NoError(t, err)
	assert.Equal(t, "2.7.9", v)

	v, err = p.version("2.7.9\n")
	require.NoError(t, err)
	assert.Equal(t, "2.7.9", v)

	_, err = p.version("unexpected")
	assert.ErrorIs(t, err, ErrParse)
}

func TestParser_DatabaseInfo(t *testing.T) {
	var p outputParser

	output := `UUID: {0000}
Name: Work Vault
Description: Team credentials
Cipher: AES 256-bit
Number of entries: 42
`
	info := p.databaseInfo(output, "/vault/work.kdbx")
	assert.Equal(t, "/vault/work.kdbx", info.Path)
	assert.Equal(t, "Work Vault", info.Name)
	assert.Equal(t, "Team credentials", info.Description)
	assert.Equal(t, 42, info.EntryCount)
}

func TestParser_EntryList(t *testing.T) {
	var p outputParser

	output := `Work/
Work/GitHub
Work/AWS
Personal/
Personal/Email

Recycle Bin/
`
	entries := p.entryList(output)
	assert.Equal(t, []string{"Work/GitHub", "Work/AWS", "Personal/Email"}, entries)
}

func TestParser_EntryDetails(t *testing.T) {
	var p outputParser

	output := `Title: GitHub
UserName: octocat
Password: s3cret!
URL: https://github.com
Notes: deploy account
only
UUID: {9F4559AE-71FA-4DC5-9EFC-12AB34CD56EF}
Tags: work, ci
Created: 2025-06-01 09:30:00
Modified: 2025-07-15T10:00:00
`
	e := p.entryDetails(output, "Work/GitHub")
	assert.Equal(t, "Work/GitHub", e.Name)
	assert.Equal(t, "GitHub", e.Title)
	assert.Equal(t, "octocat", e.Username)
	assert.Equal(t, "s3cret!", e.Password)
	assert.Equal(t, "https://github.com", e.URL)
	assert.Equal(t, "deploy account\nonly", e.Notes)
	assert.Equal(t, "9f4559ae-71fa-4dc5-9efc-12ab34cd56ef", e.UUID)
	assert.Equal(t, []string{"work", "ci"}, e.Tags)
	assert.Equal(t, "Work", e.Group)
	require.NotNil(t, e.CreatedAt)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC), *e.CreatedAt)
	require.NotNil(t, e.ModifiedAt)
}

func TestParser_EntryDetailsDefaultsToName(t *testing.T) {
	var p outputParser

	e := p.entryDetails("", "Personal/Email")
	assert.Equal(t, "Personal/Email", e.Name)
	assert.Equal(t, "Personal/Email", e.Title)
	assert.Empty(t, e.Password)
}

func TestParser_Groups(t *testing.T) {
	var p outputParser

	output := `Work/
Work/Infra/
Work/GitHub
Personal/
`
	groups := p.groups(output)
	require.Len(t, groups, 3)
	assert.Equal(t, Group{Name: "Work", Path: "Work"}, groups[0])
	assert.Equal(t, Group{Name: "Infra", Path: "Work/Infra", Parent: "Work"}, groups[1])
	assert.Equal(t, Group{Name: "Personal", Path: "Personal"}, groups[2])
}

func TestParser_GeneratedPassword(t *testing.T) {
	var p outputParser

	pw, err := p.generatedPassword("Xk9#mQ2$vL8@nR4w\n")
	require.NoError(t, err)
	assert.Equal(t, "Xk9#mQ2$vL8@nR4w", pw)

	_, err = p.generatedPassword("   \n")
	assert.ErrorIs(t, err, ErrParse)
}
