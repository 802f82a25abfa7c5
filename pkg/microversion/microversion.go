// Package microversion parses OpenStack API microversions and renders the
// request headers that select them.
package microversion

import (
	"fmt"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "microversion:microversion"

// Latest asks the service for its newest microversion.
const Latest = "latest"

// Families with microversioned APIs.
const (
	FamilyCompute = "compute"
	FamilyVolume  = "volume"
)

// Header names.
const (
	HeaderOpenStackAPIVersion = "OpenStack-API-Version"
	HeaderNovaAPIVersion      = "X-OpenStack-Nova-API-Version"
)

var microversionRegex = regexp.MustCompile(`^\d+\.\d+$`)

// Supported ranges per family.
var supported = map[string]string{
	FamilyCompute: ">= 2.1",
	FamilyVolume:  ">= 3.0",
}

// Microversion is a parsed "major.minor" API microversion.
type Microversion struct {
	Raw     string
	Major   int
	Minor   int
	version *masterminds.Version
}

// IsLatest reports whether m is the "latest" alias.
func (m *Microversion) IsLatest() bool {
	return m.version == nil
}

func (m *Microversion) String() string {
	return m.Raw
}

// Parse parses "major.minor" or "latest".
func Parse(input string) (*Microversion, error) {
	raw := strings.TrimSpace(input)
	if strings.EqualFold(raw, Latest) {
		return &Microversion{Raw: Latest}, nil
	}
	if !microversionRegex.MatchString(raw) {
		return nil, fmt.Errorf("%s - invalid microversion %q, want major.minor", logPrefix, input)
	}
	v, err := masterminds.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid microversion %q: %w", logPrefix, input, err)
	}
	return &Microversion{
		Raw:     raw,
		Major:   int(v.Major()),
		Minor:   int(v.Minor()),
		version: v,
	}, nil
}

// Validate checks that input is a microversion the family accepts. Empty input is valid
// and means no microversion is requested.
func Validate(family, input string) error {
	if input == "" {
		return nil
	}
	rangeStr, ok := supported[family]
	if !ok {
		return fmt.Errorf("%s - family %q does not use microversions", logPrefix, family)
	}
	m, err := Parse(input)
	if err != nil {
		return err
	}
	if m.IsLatest() {
		return nil
	}
	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return fmt.Errorf("%s - invalid range %q: %w", logPrefix, rangeStr, err)
	}
	if !constraint.Check(m.version) {
		return fmt.Errorf("%s - %s microversion %s is outside %s", logPrefix, family, m.Raw, rangeStr)
	}
	return nil
}

// Headers returns the request headers selecting input for family, or nil when
// input is empty or the family is not microversioned.
func Headers(family, input string) map[string]string {
	if input == "" {
		return nil
	}
	m, err := Parse(input)
	if err != nil {
		return nil
	}
	switch family {
	case FamilyCompute:
		return map[string]string{
			HeaderNovaAPIVersion:      m.Raw,
			HeaderOpenStackAPIVersion: FamilyCompute + " " + m.Raw,
		}
	case FamilyVolume:
		return map[string]string{
			HeaderOpenStackAPIVersion: FamilyVolume + " " + m.Raw,
		}
	default:
		return nil
	}
}
