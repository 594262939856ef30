package keepass

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// outputParser turns keepassxc-cli stdout/stderr into structured data and
// classifies failures into the package error taxonomy.
type outputParser struct{}

var (
	reAuthError     = regexp.MustCompile(`(?i)(invalid password|wrong password|incorrect password|failed to open database)`)
	reNotFoundError = regexp.MustCompile(`(?i)(not found|does not exist|no such|could not find)`)
	reLockedError   = regexp.MustCompile(`(?i)(database is locked|lock file)`)
	reTimeoutError  = regexp.MustCompile(`(?i)(timeout|timed out)`)

	reVersion    = regexp.MustCompile(`(?i)keepassxc-cli\s+([\d.]+)`)
	reBareVer    = regexp.MustCompile(`^[\d.]+$`)
	reDBName     = regexp.MustCompile(`Name:\s*(.+)`)
	reDBDesc     = regexp.MustCompile(`Description:\s*(.+)`)
	reEntryCount = regexp.MustCompile(`Number of entries:\s*(\d+)`)

	reTitle    = regexp.MustCompile(`Title:\s*(.+)`)
	reUsername = regexp.MustCompile(`UserName:\s*(.+)`)
	rePassword = regexp.MustCompile(`Password:\s*(.+)`)
	reURL      = regexp.MustCompile(`URL:\s*(.+)`)
	reNotes    = regexp.MustCompile(`(?s)Notes:\s*(.+?)(?:\n[A-Z]|$)`)
	reUUID     = regexp.MustCompile(`(?i)UUID:\s*\{?([0-9a-f-]+)\}?`)
	reTags     = regexp.MustCompile(`Tags:\s*(.+)`)
	reCreated  = regexp.MustCompile(`Created:\s*(.+)`)
	reModified = regexp.MustCompile(`Modified:\s*(.+)`)
)

// classify inspects a finished command and returns nil on success or the
// matching sentinel error. The raw output is truncated in the generic case
// so stray secrets cannot flood logs.
func (outputParser) classify(res execResult) error {
	if res.exitCode == 0 {
		return nil
	}
	text := res.stderr + res.stdout

	switch {
	case reAuthError.MatchString(text):
		return ErrAuthenticationFailed
	case reNotFoundError.MatchString(text):
		if strings.Contains(strings.ToLower(text), "database") {
			return ErrDatabaseNotFound
		}
		return ErrEntryNotFound
	case reLockedError.MatchString(text):
		return ErrDatabaseLocked
	case reTimeoutError.MatchString(text):
		return ErrTimeout
	}

	if len(text) > 200 {
		text = text[:200]
	}
	return fmt.Errorf("%w: exit code %d: %s", ErrCommand, res.exitCode, strings.TrimSpace(text))
}

func (outputParser) version(output string) (string, error) {
	if m := reVersion.FindStringSubmatch(output); m != nil {
		return m[1], nil
	}
	// Newer releases print the bare version.
	if v := strings.TrimSpace(output); reBareVer.MatchString(v) {
		return v, nil
	}
	return "", fmt.Errorf("%w: no version in output", ErrParse)
}

func (outputParser) databaseInfo(output, databasePath string) DatabaseInfo {
	info := DatabaseInfo{Path: databasePath}
	if m := reDBName.FindStringSubmatch(output); m != nil {
		info.Name = strings.TrimSpace(m[1])
	}
	if m := reDBDesc.FindStringSubmatch(output); m != nil {
		info.Description = strings.TrimSpace(m[1])
	}
	if m := reEntryCount.FindStringSubmatch(output); m != nil {
		info.EntryCount, _ = strconv.Atoi(m[1])
	}
	return info
}

// entryList parses ls output: one path per line, group markers end with "/".
func (outputParser) entryList(output string) []string {
	var entries []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasSuffix(line, "/") {
			entries = append(entries, line)
		}
	}
	return entries
}

func (outputParser) entryDetails(output, entryName string) Entry {
	e := Entry{Name: entryName, Title: entryName}

	if m := reTitle.FindStringSubmatch(output); m != nil {
		e.Title = strings.TrimSpace(m[1])
	}
	if m := reUsername.FindStringSubmatch(output); m != nil {
		e.Username = strings.TrimSpace(m[1])
	}
	if m := rePassword.FindStringSubmatch(output); m != nil {
		e.Password = strings.TrimSpace(m[1])
	}
	if m := reURL.FindStringSubmatch(output); m != nil {
		e.URL = strings.TrimSpace(m[1])
	}
	if m := reNotes.FindStringSubmatch(output); m != nil {
		e.Notes = strings.TrimSpace(m[1])
	}
	if m := reUUID.FindStringSubmatch(output); m != nil {
		e.UUID = strings.ToLower(m[1])
	}
	if m := reTags.FindStringSubmatch(output); m != nil {
		for _, tag := range strings.Split(m[1], ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				e.Tags = append(e.Tags, tag)
			}
		}
	}
	if m := reCreated.FindStringSubmatch(output); m != nil {
		if t, err := parseCLITime(m[1]); err == nil {
			e.CreatedAt = &t
		}
	}
	if m := reModified.FindStringSubmatch(output); m != nil {
		if t, err := parseCLITime(m[1]); err == nil {
			e.ModifiedAt = &t
		}
	}
	if i := strings.LastIndex(entryName, "/"); i > 0 {
		e.Group = entryName[:i]
	}
	return e
}

func parseCLITime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized time %q", ErrParse, s)
}

// groups parses ls output for group markers (lines ending with "/").
func (outputParser) groups(output string) []Group {
	var groups []Group
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasSuffix(line, "/") {
			continue
		}
		path := strings.TrimSuffix(line, "/")
		g := Group{Path: path, Name: path}
		if i := strings.LastIndex(path, "/"); i >= 0 {
			g.Name = path[i+1:]
			g.Parent = path[:i]
		}
		groups = append(groups, g)
	}
	return groups
}

func (outputParser) generatedPassword(output string) (string, error) {
	password := strings.TrimSpace(output)
	if password == "" {
		return "", fmt.Errorf("%w: empty password generated", ErrParse)
	}
	return password, nil
}
