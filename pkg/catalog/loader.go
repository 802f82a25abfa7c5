package catalog

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const logPrefix = "catalog:loader"

// EnvCatalogFile names the environment variable holding a catalog path.
const EnvCatalogFile = "GATEWAY_CATALOG_FILE"

//go:embed catalog.yaml
var defaultCatalog []byte

// LoadCatalog loads the catalog from the first readable path: any paths passed
// in, then GATEWAY_CATALOG_FILE, then config/catalog.yaml and catalog.yaml. The
// embedded default is used when none can be read. Entries of a loaded file
// override the default by name.
func LoadCatalog(paths ...string) (*Catalog, error) {
	base, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}

	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv(EnvCatalogFile); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/catalog.yaml", "catalog.yaml")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		override, err := Parse(data)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse catalog file %s: %v", logPrefix, p, err))
			continue
		}
		slog.Info(fmt.Sprintf("%s - Loaded catalog from %s", logPrefix, p))
		return MergeCatalogs(base, override), nil
	}

	slog.Info(fmt.Sprintf("%s - Using default catalog", logPrefix))
	return base, nil
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	cat, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("%s - embedded catalog is invalid: %w", logPrefix, err)
	}
	return cat, nil
}

// Parse decodes a YAML catalog and checks that every prompt template parses.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, err
	}
	for _, p := range cat.Prompts {
		if p.Name == "" {
			return nil, fmt.Errorf("%s - prompt without name", logPrefix)
		}
		if _, err := p.parseTemplate(); err != nil {
			return nil, err
		}
	}
	for _, t := range cat.Tools {
		if t.Name == "" {
			return nil, fmt.Errorf("%s - tool without name", logPrefix)
		}
	}
	return &cat, nil
}

// MergeCatalogs overlays override onto base. Tools and prompts are replaced by
// name; new ones are appended.
func MergeCatalogs(base, override *Catalog) *Catalog {
	merged := *base
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	if override.GatewaySubject != "" {
		merged.GatewaySubject = override.GatewaySubject
	}
	if override.ChangeEvents.Global != "" {
		merged.ChangeEvents.Global = override.ChangeEvents.Global
	}
	if override.ChangeEvents.Pattern != "" {
		merged.ChangeEvents.Pattern = override.ChangeEvents.Pattern
	}

	merged.Tools = append([]ToolEntry(nil), base.Tools...)
	for _, t := range override.Tools {
		replaced := false
		for i := range merged.Tools {
			if merged.Tools[i].Name == t.Name {
				merged.Tools[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Tools = append(merged.Tools, t)
		}
	}

	merged.Prompts = append([]PromptEntry(nil), base.Prompts...)
	for _, p := range override.Prompts {
		replaced := false
		for i := range merged.Prompts {
			if merged.Prompts[i].Name == p.Name {
				merged.Prompts[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Prompts = append(merged.Prompts, p)
		}
	}
	return &merged
}

// Resolve builds a ResolvedCatalog for fast lookups.
func Resolve(cat *Catalog) *ResolvedCatalog {
	tools := make(map[string]*ToolEntry, len(cat.Tools))
	for i := range cat.Tools {
		tools[cat.Tools[i].Name] = &cat.Tools[i]
	}
	prompts := make(map[string]*PromptEntry, len(cat.Prompts))
	for i := range cat.Prompts {
		prompts[cat.Prompts[i].Name] = &cat.Prompts[i]
	}
	return &ResolvedCatalog{catalog: cat, tools: tools, prompts: prompts}
}

func (p PromptEntry) parseTemplate() (*template.Template, error) {
	tmpl, err := template.New(p.Name).Option("missingkey=error").Parse(p.Template)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid template for prompt %s: %w", logPrefix, p.Name, err)
	}
	return tmpl, nil
}

// Render fills the prompt template with args. Missing required arguments are an error.
func (p PromptEntry) Render(args map[string]string) (string, error) {
	for _, a := range p.Arguments {
		if _, ok := args[a.Name]; a.Required && !ok {
			return "", fmt.Errorf("%s - prompt %s requires argument %s", logPrefix, p.Name, a.Name)
		}
	}
	tmpl, err := p.parseTemplate()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, args); err != nil {
		return "", fmt.Errorf("%s - failed to render prompt %s: %w", logPrefix, p.Name, err)
	}
	return sb.String(), nil
}

// Subject expands the change event pattern for a family and resource.
func (c ChangeEventSubjects) Subject(family, resource string) string {
	r := strings.NewReplacer("{family}", family, "{resource}", resource)
	return r.Replace(c.Pattern)
}
