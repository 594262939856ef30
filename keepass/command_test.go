package keepass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The master password must never appear in argv; it travels via stdin only.
func TestCommandBuilder_PasswordNeverInArgs(t *testing.T) {
	b := newCommandBuilder()
	pw := "the-master-password"

	cmds := []command{
		b.databaseInfo("/db.kdbx", ""),
		b.listEntries("/db.kdbx", "", true),
		b.showEntry("/db.kdbx", "Work/GitHub", "", true),
		b.addEntry("/db.kdbx", "", NewEntry{Path: "Work/New", Username: "u", Password: "entry-pw"}),
		b.editEntry("/db.kdbx", "Work/GitHub", "", EntryUpdate{Password: strptr("new-pw")}),
		b.removeEntry("/db.kdbx", "Work/GitHub", ""),
		b.search("/db.kdbx", "github", ""),
	}
	for _, cmd := range cmds {
		assert.NotContains(t, cmd.args, pw)
	}
}

func TestCommandBuilder_DatabaseInfo(t *testing.T) {
	b := newCommandBuilder()

	cmd := b.databaseInfo("/db.kdbx", "")
	assert.Equal(t, []string{"db-info", "/db.kdbx"}, cmd.args)
	assert.Empty(t, cmd.stdin)

	cmd = b.databaseInfo("/db.kdbx", "/key.keyx")
	assert.Equal(t, []string{"db-info", "--key-file", "/key.keyx", "/db.kdbx"}, cmd.args)
}

func TestCommandBuilder_ListEntries(t *testing.T) {
	b := newCommandBuilder()

	cmd := b.listEntries("/db.kdbx", "", true)
	assert.Equal(t, []string{"ls", "--recursive", "/db.kdbx", "/"}, cmd.args)
}

func TestCommandBuilder_ShowEntry(t *testing.T) {
	b := newCommandBuilder()

	cmd := b.showEntry("/db.kdbx", "Work/GitHub", "", false)
	assert.Equal(t, []string{"show", "/db.kdbx", "Work/GitHub"}, cmd.args)

	cmd = b.showEntry("/db.kdbx", "Work/GitHub", "", true)
	assert.Equal(t, []string{"show", "--show-protected", "/db.kdbx", "Work/GitHub"}, cmd.args)
}

func TestCommandBuilder_AddEntry(t *testing.T) {
	b := newCommandBuilder()

	cmd := b.addEntry("/db.kdbx", "", NewEntry{
		Path:     "Work/New",
		Username: "octocat",
		Password: "entry-pw",
		URL:      "https://example.com",
	})
	assert.Equal(t, []string{
		"add", "--username", "octocat", "--password-prompt",
		"--url", "https://example.com", "/db.kdbx", "Work/New",
	}, cmd.args)
	// The entry password is the second prompt, after the database password.
	require.Equal(t, []string{"entry-pw"}, cmd.stdin)
}

func TestCommandBuilder_EditEntry(t *testing.T) {
	b := newCommandBuilder()

	cmd := b.editEntry("/db.kdbx", "Work/GitHub", "", EntryUpdate{
		Username: strptr("newuser"),
	})
	assert.Equal(t, []string{"edit", "--username", "newuser", "/db.kdbx", "Work/GitHub"}, cmd.args)
	assert.Empty(t, cmd.stdin)

	cmd = b.editEntry("/db.kdbx", "Work/GitHub", "", EntryUpdate{
		Password: strptr("rotated"),
	})
	assert.Equal(t, []string{"edit", "--password-prompt", "/db.kdbx", "Work/GitHub"}, cmd.args)
	assert.Equal(t, []string{"rotated"}, cmd.stdin)
}

func TestCommandBuilder_Generate(t *testing.T) {
	b := newCommandBuilder()

	cmd := b.generate(GenerateOptions{
		Length:       32,
		Lowercase:    true,
		Uppercase:    true,
		Numbers:      true,
		Special:      true,
		ExcludeAlike: true,
	})
	assert.Equal(t, []string{
		"generate", "--length", "32",
		"--lower", "--upper", "--numeric", "--special", "--exclude-similar",
	}, cmd.args)
}

func strptr(s string) *string { return &s }
