// Package catalog loads the tool and prompt catalog served to clients.
package catalog

// Catalog is the root catalog document.
type Catalog struct {
	Name           string              `yaml:"name"`
	Version        string              `yaml:"version"`
	Description    string              `yaml:"description,omitempty"`
	GatewaySubject string              `yaml:"gatewaySubject,omitempty"`
	ChangeEvents   ChangeEventSubjects `yaml:"changeEventSubjects"`
	Tools          []ToolEntry         `yaml:"tools"`
	Prompts        []PromptEntry       `yaml:"prompts"`
}

// ChangeEventSubjects defines event subject patterns.
type ChangeEventSubjects struct {
	Global  string `yaml:"global"`
	Pattern string `yaml:"pattern"`
}

// ToolEntry describes one tool.
type ToolEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Paths maps each accepted path to a short description.
	Paths map[string]string `yaml:"paths,omitempty"`
}

// PromptEntry describes one prompt and its message template.
type PromptEntry struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Arguments   []PromptArgument `yaml:"arguments,omitempty"`
	Template    string           `yaml:"template"`
}

// PromptArgument is a prompt parameter. Schema optionally names a contract the
// value must satisfy.
type PromptArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	Schema      string `yaml:"schema,omitempty"`
}

// ResolvedCatalog provides lookup by name.
type ResolvedCatalog struct {
	catalog *Catalog
	tools   map[string]*ToolEntry
	prompts map[string]*PromptEntry
}

// Catalog returns the underlying document.
func (r *ResolvedCatalog) Catalog() *Catalog {
	return r.catalog
}

// Tool returns the named tool entry, or nil.
func (r *ResolvedCatalog) Tool(name string) *ToolEntry {
	return r.tools[name]
}

// Prompt returns the named prompt entry, or nil.
func (r *ResolvedCatalog) Prompt(name string) *PromptEntry {
	return r.prompts[name]
}

// Prompts returns every prompt in catalog order.
func (r *ResolvedCatalog) Prompts() []PromptEntry {
	out := make([]PromptEntry, len(r.catalog.Prompts))
	copy(out, r.catalog.Prompts)
	return out
}
