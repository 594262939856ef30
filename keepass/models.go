package keepass

import "time"

// Entry is one credential record in a KeePassXC database. Name is the full
// slash-separated path ("Work/GitHub").
type Entry struct {
	Name       string     `json:"name"`
	Title      string     `json:"title"`
	Username   string     `json:"username"`
	Password   string     `json:"password,omitempty"`
	URL        string     `json:"url,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	UUID       string     `json:"uuid,omitempty"`
	Group      string     `json:"group,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// Group is a folder in the database tree.
type Group struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Parent string `json:"parent,omitempty"`
}

// DatabaseInfo is the non-sensitive summary from db-info.
type DatabaseInfo struct {
	Path        string `json:"path"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	EntryCount  int    `json:"entry_count"`
}

// GenerateOptions controls password generation.
type GenerateOptions struct {
	Length       int
	Lowercase    bool
	Uppercase    bool
	Numbers      bool
	Special      bool
	ExcludeAlike bool
}

// DefaultGenerateOptions mirrors a sensible keepassxc-cli generate call.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Length:    24,
		Lowercase: true,
		Uppercase: true,
		Numbers:   true,
		Special:   true,
	}
}

// NewEntry is the input for creating an entry.
type NewEntry struct {
	Path     string
	Username string
	Password string
	URL      string
	Notes    string
}

// EntryUpdate carries optional field changes; nil means leave unchanged.
type EntryUpdate struct {
	Username *string
	Password *string
	URL      *string
	Notes    *string
}
