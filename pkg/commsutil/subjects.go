package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectGateway     = "cap.openstack.gateway.v1"
	SubjectChangeEvent = "openstack.changed"
)

// BuildChangeSubject builds the granular change event subject for a resource
// of an upstream family, e.g. openstack.changed.network.security_groups.
func BuildChangeSubject(family, resource string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectChangeEvent, family, Token(resource))
}

// Token makes s usable as a single subject token.
func Token(s string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_", "*", "_", ">", "_", "/", "_")
	return r.Replace(strings.Trim(s, "/"))
}
