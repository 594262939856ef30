package keepass

import "strconv"

// command is one keepassxc-cli invocation: the argv and the lines written
// to stdin. The master password is always the first stdin line and never an
// argument, so it cannot leak through process listings.
type command struct {
	args  []string
	stdin []string // lines after the master password, if any
}

// commandBuilder constructs keepassxc-cli invocations. The executable path
// belongs to the runner; the builder only shapes argv and stdin.
type commandBuilder struct{}

func newCommandBuilder() *commandBuilder {
	return &commandBuilder{}
}

func (b *commandBuilder) withKeyfile(args []string, keyfile string) []string {
	if keyfile != "" {
		args = append(args, "--key-file", keyfile)
	}
	return args
}

func (b *commandBuilder) version() command {
	return command{args: []string{"--version"}}
}

// databaseInfo doubles as the connection test: db-info fails on a wrong
// password and succeeds otherwise.
func (b *commandBuilder) databaseInfo(databasePath, keyfile string) command {
	args := b.withKeyfile([]string{"db-info"}, keyfile)
	return command{args: append(args, databasePath)}
}

func (b *commandBuilder) listEntries(databasePath, keyfile string, recursive bool) command {
	args := b.withKeyfile([]string{"ls"}, keyfile)
	if recursive {
		args = append(args, "--recursive")
	}
	return command{args: append(args, databasePath, "/")}
}

func (b *commandBuilder) showEntry(databasePath, entryName, keyfile string, showProtected bool) command {
	args := b.withKeyfile([]string{"show"}, keyfile)
	if showProtected {
		args = append(args, "--show-protected")
	}
	return command{args: append(args, databasePath, entryName)}
}

func (b *commandBuilder) addEntry(databasePath, keyfile string, e NewEntry) command {
	args := b.withKeyfile([]string{"add"}, keyfile)
	args = append(args, "--username", e.Username, "--password-prompt")
	if e.URL != "" {
		args = append(args, "--url", e.URL)
	}
	if e.Notes != "" {
		args = append(args, "--notes", e.Notes)
	}
	args = append(args, databasePath, e.Path)
	// Entry password is prompted after the database password.
	return command{args: args, stdin: []string{e.Password}}
}

func (b *commandBuilder) editEntry(databasePath, entryName, keyfile string, u EntryUpdate) command {
	args := b.withKeyfile([]string{"edit"}, keyfile)
	var stdin []string
	if u.Username != nil {
		args = append(args, "--username", *u.Username)
	}
	if u.URL != nil {
		args = append(args, "--url", *u.URL)
	}
	if u.Notes != nil {
		args = append(args, "--notes", *u.Notes)
	}
	if u.Password != nil {
		args = append(args, "--password-prompt")
		stdin = append(stdin, *u.Password)
	}
	args = append(args, databasePath, entryName)
	return command{args: args, stdin: stdin}
}

func (b *commandBuilder) removeEntry(databasePath, entryName, keyfile string) command {
	args := b.withKeyfile([]string{"rm"}, keyfile)
	return command{args: append(args, databasePath, entryName)}
}

func (b *commandBuilder) search(databasePath, term, keyfile string) command {
	args := b.withKeyfile([]string{"search"}, keyfile)
	return command{args: append(args, databasePath, term)}
}

func (b *commandBuilder) generate(opts GenerateOptions) command {
	args := []string{"generate", "--length", strconv.Itoa(opts.Length)}
	if opts.Lowercase {
		args = append(args, "--lower")
	}
	if opts.Uppercase {
		args = append(args, "--upper")
	}
	if opts.Numbers {
		args = append(args, "--numeric")
	}
	if opts.Special {
		args = append(args, "--special")
	}
	if opts.ExcludeAlike {
		args = append(args, "--exclude-similar")
	}
	return command{args: args}
}
