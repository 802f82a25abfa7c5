// Package schema holds the JSON Schema contracts for request bodies and
// validates tool input against them.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const logPrefix = "schema:schema"

// Contract names.
const (
	CreateServer            = "CreateServer"
	CreateSSHKeyPair        = "CreateSSHKeyPair"
	OperateServer           = "OperateServer"
	RemoteConsole           = "RemoteConsole"
	CreateSecurityGroup     = "CreateSecurityGroup"
	CreateSecurityGroupRule = "CreateSecurityGroupRule"
	UpdateSecurityGroup     = "UpdateSecurityGroup"
	UpdatePort              = "UpdatePort"
	CreateVolume            = "CreateVolume"
	UpdateVolume            = "UpdateVolume"
	AdminPassword           = "AdminPassword"
)

var files = map[string]string{
	CreateServer:            "schemas/create_server.json",
	CreateSSHKeyPair:        "schemas/create_ssh_keypair.json",
	OperateServer:           "schemas/operate_server.json",
	RemoteConsole:           "schemas/remote_console.json",
	CreateSecurityGroup:     "schemas/create_security_group.json",
	CreateSecurityGroupRule: "schemas/create_security_group_rule.json",
	UpdateSecurityGroup:     "schemas/update_security_group.json",
	UpdatePort:              "schemas/update_port.json",
	CreateVolume:            "schemas/create_volume.json",
	UpdateVolume:            "schemas/update_volume.json",
	AdminPassword:           "schemas/admin_password.json",
}

//go:embed schemas/*.json
var schemaFS embed.FS

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Schema     string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("request body does not match %s: %s", e.Schema, strings.Join(e.Violations, "; "))
}

// Validator validates documents against the embedded contracts. Compiled
// schemas are cached and safe for concurrent use.
type Validator struct {
	mu       sync.Mutex
	compiled map[string]*gojsonschema.Schema
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{compiled: make(map[string]*gojsonschema.Schema)}
}

// Names returns all contract names in sorted order.
func Names() []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Raw returns the JSON text of the named contract.
func Raw(name string) ([]byte, error) {
	path, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("%s - unknown schema %q", logPrefix, name)
	}
	data, err := schemaFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read %s: %w", logPrefix, path, err)
	}
	return data, nil
}

// Document returns the named contract as a generic JSON value, without the
// $schema and title keywords, for embedding in other schemas.
func Document(name string) (map[string]any, error) {
	data, err := Raw(name)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s - failed to parse %s: %w", logPrefix, name, err)
	}
	delete(doc, "$schema")
	delete(doc, "title")
	return doc, nil
}

func (v *Validator) schema(name string) (*gojsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.compiled[name]; ok {
		return s, nil
	}
	data, err := Raw(name)
	if err != nil {
		return nil, err
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%s - invalid schema %s: %w", logPrefix, name, err)
	}
	v.compiled[name] = s
	return s, nil
}

// Validate checks doc against the named contract. A failed check returns a
// *ValidationError.
func (v *Validator) Validate(name string, doc any) error {
	s, err := v.schema(name)
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%s - failed to validate against %s: %w", logPrefix, name, err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, re.String())
	}
	return &ValidationError{Schema: name, Violations: violations}
}

// Precompile compiles every contract, reporting the first broken one.
func (v *Validator) Precompile() error {
	for _, name := range Names() {
		if _, err := v.schema(name); err != nil {
			return err
		}
	}
	return nil
}
