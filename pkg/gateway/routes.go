// Package gateway maps tool operations onto upstream OpenStack calls.
package gateway

import (
	"github.com/morezero/openstack-gateway/pkg/openstack"
	"github.com/morezero/openstack-gateway/pkg/schema"
)

// Kind is a tool operation identifier.
type Kind string

const (
	KindGetNoID              Kind = "conoha_openstack_get_no_id"
	KindGetID                Kind = "conoha_openstack_get_id"
	KindPostRequestBody      Kind = "conoha_openstack_post_request_body"
	KindPostPutRequestBodyID Kind = "conoha_openstack_post_put_request_body_id"
	KindDeleteParam          Kind = "conoha_openstack_delete_param"
)

// Kinds returns every operation kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindGetNoID, KindGetID, KindPostRequestBody, KindPostPutRequestBodyID, KindDeleteParam}
}

// ParseKind converts a tool name to a Kind.
func ParseKind(name string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// NeedsID reports whether operations of this kind address one entity.
func (k Kind) NeedsID() bool {
	return k == KindGetID || k == KindPostPutRequestBodyID || k == KindDeleteParam
}

// NeedsBody reports whether operations of this kind carry a request body.
func (k Kind) NeedsBody() bool {
	return k == KindPostRequestBody || k == KindPostPutRequestBodyID
}

// Family is an upstream service.
type Family string

const (
	FamilyCompute Family = "compute"
	FamilyNetwork Family = "network"
	FamilyImage   Family = "image"
	FamilyVolume  Family = "volume"
)

// Families returns every family.
func Families() []Family {
	return []Family{FamilyCompute, FamilyNetwork, FamilyImage, FamilyVolume}
}

// PathStyle selects how the entity identifier is placed in the upstream path.
type PathStyle int

const (
	// PathOnly sends the path as given.
	PathOnly PathStyle = iota
	// ServerScoped sends /servers/{id}{path}.
	ServerScoped
	// Suffixed sends {path}/{id}.
	Suffixed
)

// Slimmer selects an optional reduced rendering of a listing.
type Slimmer int

const (
	SlimNone Slimmer = iota
	SlimFlavors
	SlimImages
	SlimSecurityGroups
)

// Formatter returns the response formatter for s.
func (s Slimmer) Formatter() openstack.Formatter {
	switch s {
	case SlimFlavors:
		return openstack.FormatFlavors
	case SlimImages:
		return openstack.FormatImages
	case SlimSecurityGroups:
		return openstack.FormatSecurityGroups
	default:
		return openstack.FormatResponse
	}
}

// Route is one entry of the routing table.
type Route struct {
	Kind   Kind
	Path   string
	Family Family
	Verb   openstack.Verb
	Style  PathStyle
	// Schema names the body contract, empty for kinds without a body.
	Schema string
	Slim   Slimmer
	// Resource names the upstream collection, used for change events.
	Resource string
}

// UpstreamPath composes the path sent upstream for the given identifier.
func (r Route) UpstreamPath(id string) string {
	switch r.Style {
	case ServerScoped:
		return openstack.ServerScoped(id, r.Path)
	case Suffixed:
		return openstack.JoinID(r.Path, id)
	default:
		return r.Path
	}
}

// Mutating reports whether the route changes upstream state.
func (r Route) Mutating() bool {
	return r.Verb != openstack.VerbGet
}

var routes = []Route{
	{Kind: KindGetNoID, Path: "/servers/detail", Family: FamilyCompute, Verb: openstack.VerbGet, Resource: "servers"},
	{Kind: KindGetNoID, Path: "/flavors/detail", Family: FamilyCompute, Verb: openstack.VerbGet, Slim: SlimFlavors, Resource: "flavors"},
	{Kind: KindGetNoID, Path: "/os-keypairs", Family: FamilyCompute, Verb: openstack.VerbGet, Resource: "os-keypairs"},
	{Kind: KindGetNoID, Path: "/types", Family: FamilyVolume, Verb: openstack.VerbGet, Resource: "types"},
	{Kind: KindGetNoID, Path: "/volumes/detail", Family: FamilyVolume, Verb: openstack.VerbGet, Resource: "volumes"},
	{Kind: KindGetNoID, Path: "/v2/images?limit=200", Family: FamilyImage, Verb: openstack.VerbGet, Slim: SlimImages, Resource: "images"},
	{Kind: KindGetNoID, Path: "/v2.0/security-groups", Family: FamilyNetwork, Verb: openstack.VerbGet, Slim: SlimSecurityGroups, Resource: "security-groups"},
	{Kind: KindGetNoID, Path: "/v2.0/security-group-rules", Family: FamilyNetwork, Verb: openstack.VerbGet, Resource: "security-group-rules"},
	{Kind: KindGetNoID, Path: "/v2.0/ports", Family: FamilyNetwork, Verb: openstack.VerbGet, Resource: "ports"},

	{Kind: KindGetID, Path: "/ips", Family: FamilyCompute, Verb: openstack.VerbGet, Style: ServerScoped, Resource: "servers"},
	{Kind: KindGetID, Path: "/os-security-groups", Family: FamilyCompute, Verb: openstack.VerbGet, Style: ServerScoped, Resource: "servers"},
	{Kind: KindGetID, Path: "/rrd/cpu", Family: FamilyCompute, Verb: openstack.VerbGet, Style: ServerScoped, Resource: "servers"},
	{Kind: KindGetID, Path: "/rrd/disk", Family: FamilyCompute, Verb: openstack.VerbGet, Style: ServerScoped, Resource: "servers"},
	{Kind: KindGetID, Path: "/v2.0/security-groups", Family: FamilyNetwork, Verb: openstack.VerbGet, Style: Suffixed, Resource: "security-groups"},
	{Kind: KindGetID, Path: "/v2.0/security-group-rules", Family: FamilyNetwork, Verb: openstack.VerbGet, Style: Suffixed, Resource: "security-group-rules"},

	{Kind: KindPostRequestBody, Path: "/servers", Family: FamilyCompute, Verb: openstack.VerbPost, Schema: schema.CreateServer, Resource: "servers"},
	{Kind: KindPostRequestBody, Path: "/os-keypairs", Family: FamilyCompute, Verb: openstack.VerbPost, Schema: schema.CreateSSHKeyPair, Resource: "os-keypairs"},
	{Kind: KindPostRequestBody, Path: "/volumes", Family: FamilyVolume, Verb: openstack.VerbPost, Schema: schema.CreateVolume, Resource: "volumes"},
	{Kind: KindPostRequestBody, Path: "/v2.0/security-groups", Family: FamilyNetwork, Verb: openstack.VerbPost, Schema: schema.CreateSecurityGroup, Resource: "security-groups"},
	{Kind: KindPostRequestBody, Path: "/v2.0/security-group-rules", Family: FamilyNetwork, Verb: openstack.VerbPost, Schema: schema.CreateSecurityGroupRule, Resource: "security-group-rules"},

	{Kind: KindPostPutRequestBodyID, Path: "/action", Family: FamilyCompute, Verb: openstack.VerbPost, Style: ServerScoped, Schema: schema.OperateServer, Resource: "servers"},
	{Kind: KindPostPutRequestBodyID, Path: "/remote-consoles", Family: FamilyCompute, Verb: openstack.VerbPost, Style: ServerScoped, Schema: schema.RemoteConsole, Resource: "servers"},
	{Kind: KindPostPutRequestBodyID, Path: "/v2.0/security-groups", Family: FamilyNetwork, Verb: openstack.VerbPut, Style: Suffixed, Schema: schema.UpdateSecurityGroup, Resource: "security-groups"},
	{Kind: KindPostPutRequestBodyID, Path: "/v2.0/ports", Family: FamilyNetwork, Verb: openstack.VerbPut, Style: Suffixed, Schema: schema.UpdatePort, Resource: "ports"},
	{Kind: KindPostPutRequestBodyID, Path: "/volumes", Family: FamilyVolume, Verb: openstack.VerbPut, Style: Suffixed, Schema: schema.UpdateVolume, Resource: "volumes"},

	{Kind: KindDeleteParam, Path: "/servers", Family: FamilyCompute, Verb: openstack.VerbDelete, Style: Suffixed, Resource: "servers"},
	{Kind: KindDeleteParam, Path: "/os-keypairs", Family: FamilyCompute, Verb: openstack.VerbDelete, Style: Suffixed, Resource: "os-keypairs"},
	{Kind: KindDeleteParam, Path: "/v2.0/security-groups", Family: FamilyNetwork, Verb: openstack.VerbDelete, Style: Suffixed, Resource: "security-groups"},
	{Kind: KindDeleteParam, Path: "/v2.0/security-group-rules", Family: FamilyNetwork, Verb: openstack.VerbDelete, Style: Suffixed, Resource: "security-group-rules"},
	{Kind: KindDeleteParam, Path: "/volumes", Family: FamilyVolume, Verb: openstack.VerbDelete, Style: Suffixed, Resource: "volumes"},
}

type routeKey struct {
	kind Kind
	path string
}

var routeIndex = func() map[routeKey]Route {
	idx := make(map[routeKey]Route, len(routes))
	for _, r := range routes {
		idx[routeKey{kind: r.Kind, path: r.Path}] = r
	}
	return idx
}()

// Lookup finds the route for (kind, path).
func Lookup(kind Kind, path string) (Route, bool) {
	r, ok := routeIndex[routeKey{kind: kind, path: path}]
	return r, ok
}

// Routes returns a copy of the routing table in declaration order.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Paths returns the paths accepted for kind, in table order.
func Paths(kind Kind) []string {
	var paths []string
	for _, r := range routes {
		if r.Kind == kind {
			paths = append(paths, r.Path)
		}
	}
	return paths
}
