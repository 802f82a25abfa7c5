package openstack

import "strings"

// NormalizeLeadingSlash prepends "/" to path when it has none.
func NormalizeLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

// ComposeURL joins a service base URL and a relative path. A base ending in "/"
// joined with a path starting with "/" keeps the doubled slash; upstreams have
// been seen to accept it and rewriting it changes the request line.
func ComposeURL(baseURL, path string) string {
	return baseURL + NormalizeLeadingSlash(path)
}

// JoinID appends an entity identifier to path. The identifier is not escaped.
func JoinID(path, id string) string {
	return path + "/" + id
}

// ServerScoped builds a per-server sub-resource path: /servers/{id}{subpath}.
func ServerScoped(id, subpath string) string {
	return "/servers/" + id + subpath
}
