package openstack

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
)

// MalformedBody replaces the body of a slimmed response whose payload could not be projected.
const MalformedBody = "<error>"

const slimLogPrefix = "openstack:slim"

var errMalformedRules = errors.New("security_group_rules is not an array")

type slimFlavor struct {
	ID    json.RawMessage `json:"id,omitempty"`
	Name  json.RawMessage `json:"name,omitempty"`
	RAM   json.RawMessage `json:"ram,omitempty"`
	VCPUs json.RawMessage `json:"vcpus,omitempty"`
	Disk  json.RawMessage `json:"disk,omitempty"`
}

type slimImage struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Name    json.RawMessage `json:"name,omitempty"`
	OSType  json.RawMessage `json:"osType,omitempty"`
	Arch    json.RawMessage `json:"arch,omitempty"`
	Tags    json.RawMessage `json:"tags,omitempty"`
	MinDisk json.RawMessage `json:"minDisk,omitempty"`
	MinRAM  json.RawMessage `json:"minRam,omitempty"`
}

type slimSecurityGroup struct {
	ID          json.RawMessage          `json:"id,omitempty"`
	Name        json.RawMessage          `json:"name,omitempty"`
	Description json.RawMessage          `json:"description,omitempty"`
	Rules       *[]slimSecurityGroupRule `json:"security_group_rules,omitempty"`
}

// Absent ethertype and direction are omitted; the remaining rule fields are null when absent.
type slimSecurityGroupRule struct {
	Ethertype      json.RawMessage `json:"ethertype,omitempty"`
	Direction      json.RawMessage `json:"direction,omitempty"`
	Protocol       json.RawMessage `json:"protocol"`
	PortRangeMin   json.RawMessage `json:"port_range_min"`
	PortRangeMax   json.RawMessage `json:"port_range_max"`
	RemoteIPPrefix json.RawMessage `json:"remote_ip_prefix"`
	RemoteGroupID  json.RawMessage `json:"remote_group_id"`
}

// FormatFlavors keeps id, name, ram, vcpus and disk of each flavor.
func FormatFlavors(raw *RawResponse) (string, error) {
	return formatSlim(raw, "flavors", func(item gjson.Result) (any, error) {
		return slimFlavor{
			ID:    rawField(item, "id"),
			Name:  rawField(item, "name"),
			RAM:   rawField(item, "ram"),
			VCPUs: rawField(item, "vcpus"),
			Disk:  rawField(item, "disk"),
		}, nil
	})
}

// FormatImages maps each image to id, name, osType, arch, tags, minDisk and minRam.
// Already-slimmed images are accepted as input.
func FormatImages(raw *RawResponse) (string, error) {
	return formatSlim(raw, "images", func(item gjson.Result) (any, error) {
		return slimImage{
			ID:      rawField(item, "id"),
			Name:    rawField(item, "name"),
			OSType:  rawField(item, "os_type", "osType"),
			Arch:    rawField(item, "architecture", "arch"),
			Tags:    rawField(item, "tags"),
			MinDisk: rawField(item, "min_disk", "minDisk"),
			MinRAM:  rawField(item, "min_ram", "minRam"),
		}, nil
	})
}

// FormatSecurityGroups keeps id, name, description and the rules of each security group.
func FormatSecurityGroups(raw *RawResponse) (string, error) {
	return formatSlim(raw, "security_groups", func(item gjson.Result) (any, error) {
		sg := slimSecurityGroup{
			ID:          rawField(item, "id"),
			Name:        rawField(item, "name"),
			Description: rawField(item, "description"),
		}
		rules := field(item, "security_group_rules")
		switch {
		case !rules.Exists() || rules.Type == gjson.Null:
		case rules.IsArray():
			slimmed := make([]slimSecurityGroupRule, 0)
			rules.ForEach(func(_, rule gjson.Result) bool {
				slimmed = append(slimmed, slimSecurityGroupRule{
					Ethertype:      rawField(rule, "ethertype"),
					Direction:      rawField(rule, "direction"),
					Protocol:       nullableField(rule, "protocol"),
					PortRangeMin:   nullableField(rule, "port_range_min"),
					PortRangeMax:   nullableField(rule, "port_range_max"),
					RemoteIPPrefix: nullableField(rule, "remote_ip_prefix"),
					RemoteGroupID:  nullableField(rule, "remote_group_id"),
				})
				return true
			})
			sg.Rules = &slimmed
		default:
			return nil, errMalformedRules
		}
		return sg, nil
	})
}

// formatSlim projects each element of the top-level array field. A body that is
// not JSON, or an element that cannot be projected, yields MalformedBody. A
// missing or non-array field leaves the body unchanged.
func formatSlim(raw *RawResponse, listField string, project func(gjson.Result) (any, error)) (string, error) {
	text := decodeText(raw.Body)
	if !gjson.ValidBytes(text) {
		slog.Warn(fmt.Sprintf("%s - %s response body is not valid JSON", slimLogPrefix, listField))
		return encodeEnvelope(raw, MalformedBody)
	}

	list := field(gjson.ParseBytes(text), listField)
	if !list.IsArray() {
		return encodeEnvelope(raw, json.RawMessage(text))
	}

	items := make([]any, 0)
	var projectErr error
	list.ForEach(func(_, item gjson.Result) bool {
		slim, err := project(item)
		if err != nil {
			projectErr = err
			return false
		}
		items = append(items, slim)
		return true
	})
	if projectErr != nil {
		slog.Warn(fmt.Sprintf("%s - failed to slim %s: %v", slimLogPrefix, listField, projectErr))
		return encodeEnvelope(raw, MalformedBody)
	}
	return encodeEnvelope(raw, map[string]any{listField: items})
}

// field looks up a plain key on an object. Non-objects have no fields.
func field(obj gjson.Result, key string) gjson.Result {
	if !obj.IsObject() {
		return gjson.Result{}
	}
	return obj.Get(key)
}

// rawField returns the first present key's raw value, or nil when none is present.
func rawField(obj gjson.Result, keys ...string) json.RawMessage {
	for _, key := range keys {
		if v := field(obj, key); v.Exists() {
			return json.RawMessage(v.Raw)
		}
	}
	return nil
}

// nullableField is rawField with null substituted for absent and null values.
func nullableField(obj gjson.Result, key string) json.RawMessage {
	v := field(obj, key)
	if !v.Exists() || v.Type == gjson.Null {
		return json.RawMessage("null")
	}
	return json.RawMessage(v.Raw)
}
