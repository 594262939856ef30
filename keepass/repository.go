// Package keepass wraps keepassxc-cli behind a Repository interface. The
// session core never constructs or parses these calls; it only manages the
// lifecycle of the master password the calls need.
package keepass

import (
	"context"
	"log/slog"
	"time"
)

// Credentials identify one database open: the file, its master password,
// and an optional keyfile. The password travels via stdin only.
type Credentials struct {
	DatabasePath string
	Password     string
	Keyfile      string
}

// Repository is the capability contract the HTTP layer depends on. A fake
// implementation stands in for keepassxc-cli in tests.
type Repository interface {
	Version(ctx context.Context) (string, error)
	TestConnection(ctx context.Context, creds Credentials) error
	DatabaseInfo(ctx context.Context, creds Credentials) (DatabaseInfo, error)
	ListEntries(ctx context.Context, creds Credentials) ([]string, error)
	GetEntry(ctx context.Context, creds Credentials, name string, includePassword bool) (Entry, error)
	CreateEntry(ctx context.Context, creds Credentials, entry NewEntry) error
	UpdateEntry(ctx context.Context, creds Credentials, name string, update EntryUpdate) error
	DeleteEntry(ctx context.Context, creds Credentials, name string) error
	SearchEntries(ctx context.Context, creds Credentials, term string) ([]string, error)
	ListGroups(ctx context.Context, creds Credentials) ([]Group, error)
	GeneratePassword(ctx context.Context, opts GenerateOptions) (string, error)
}

// CLIRepository implements Repository by shelling out to keepassxc-cli.
type CLIRepository struct {
	builder *commandBuilder
	runner  *runner
	parser  outputParser
	logger  *slog.Logger
}

var _ Repository = (*CLIRepository)(nil)

// NewCLIRepository creates a repository using the given executable path and
// default per-command timeout.
func NewCLIRepository(cliPath string, timeout time.Duration, logger *slog.Logger) *CLIRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIRepository{
		builder: newCommandBuilder(),
		runner:  newRunner(cliPath, timeout),
		logger:  logger.With("component", "keepass"),
	}
}

// execute runs a command and classifies the outcome. Only the subcommand
// name is logged; arguments may embed entry names, never passwords.
func (r *CLIRepository) execute(ctx context.Context, cmd command, password string, timeout time.Duration) (execResult, error) {
	res, err := r.runner.run(ctx, cmd, password, timeout)
	if err != nil {
		r.logger.Warn("command execution failed", "subcommand", subcommand(cmd), "err", err)
		return execResult{}, err
	}
	if err := r.parser.classify(res); err != nil {
		r.logger.Warn("command rejected", "subcommand", subcommand(cmd), "exit_code", res.exitCode)
		return execResult{}, err
	}
	return res, nil
}

func subcommand(cmd command) string {
	if len(cmd.args) == 0 {
		return ""
	}
	return cmd.args[0]
}

func (r *CLIRepository) Version(ctx context.Context) (string, error) {
	res, err := r.execute(ctx, r.builder.version(), "", 5*time.Second)
	if err != nil {
		return "", err
	}
	return r.parser.version(res.stdout)
}

// TestConnection opens the database once; success proves the credentials.
func (r *CLIRepository) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := r.execute(ctx, r.builder.databaseInfo(creds.DatabasePath, creds.Keyfile), creds.Password, 0)
	return err
}

func (r *CLIRepository) DatabaseInfo(ctx context.Context, creds Credentials) (DatabaseInfo, error) {
	res, err := r.execute(ctx, r.builder.databaseInfo(creds.DatabasePath, creds.Keyfile), creds.Password, 0)
	if err != nil {
		return DatabaseInfo{}, err
	}
	return r.parser.databaseInfo(res.stdout, creds.DatabasePath), nil
}

func (r *CLIRepository) ListEntries(ctx context.Context, creds Credentials) ([]string, error) {
	res, err := r.execute(ctx, r.builder.listEntries(creds.DatabasePath, creds.Keyfile, true), creds.Password, 0)
	if err != nil {
		return nil, err
	}
	return r.parser.entryList(res.stdout), nil
}

func (r *CLIRepository) GetEntry(ctx context.Context, creds Credentials, name string, includePassword bool) (Entry, error) {
	res, err := r.execute(ctx, r.builder.showEntry(creds.DatabasePath, name, creds.Keyfile, includePassword), creds.Password, 0)
	if err != nil {
		return Entry{}, err
	}
	entry := r.parser.entryDetails(res.stdout, name)
	if !includePassword {
		entry.Password = ""
	}
	return entry, nil
}

func (r *CLIRepository) CreateEntry(ctx context.Context, creds Credentials, entry NewEntry) error {
	_, err := r.execute(ctx, r.builder.addEntry(creds.DatabasePath, creds.Keyfile, entry), creds.Password, 0)
	return err
}

func (r *CLIRepository) UpdateEntry(ctx context.Context, creds Credentials, name string, update EntryUpdate) error {
	_, err := r.execute(ctx, r.builder.editEntry(creds.DatabasePath, name, creds.Keyfile, update), creds.Password, 0)
	return err
}

func (r *CLIRepository) DeleteEntry(ctx context.Context, creds Credentials, name string) error {
	_, err := r.execute(ctx, r.builder.removeEntry(creds.DatabasePath, name, creds.Keyfile), creds.Password, 0)
	return err
}

func (r *CLIRepository) SearchEntries(ctx context.Context, creds Credentials, term string) ([]string, error) {
	res, err := r.execute(ctx, r.builder.search(creds.DatabasePath, term, creds.Keyfile), creds.Password, 0)
	if err != nil {
		return nil, err
	}
	return r.parser.entryList(res.stdout), nil
}

func (r *CLIRepository) ListGroups(ctx context.Context, creds Credentials) ([]Group, error) {
	res, err := r.execute(ctx, r.builder.listEntries(creds.DatabasePath, creds.Keyfile, true), creds.Password, 0)
	if err != nil {
		return nil, err
	}
	return r.parser.groups(res.stdout), nil
}

func (r *CLIRepository) GeneratePassword(ctx context.Context, opts GenerateOptions) (string, error) {
	if opts.Length <= 0 {
		opts = DefaultGenerateOptions()
	}
	res, err := r.execute(ctx, r.builder.generate(opts), "", 0)
	if err != nil {
		return "", err
	}
	return r.parser.generatedPassword(res.stdout)
}

// Available reports whether keepassxc-cli can be executed. Used by the
// readiness probe.
func (r *CLIRepository) Available(ctx context.Context) bool {
	_, err := r.Version(ctx)
	return err == nil
}
