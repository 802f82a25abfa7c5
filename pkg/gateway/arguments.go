package gateway

import (
	"fmt"

	"github.com/morezero/openstack-gateway/pkg/openstack"
)

// Argument names used by the tool input schemas.
const (
	ArgInput       = "input"
	ArgPath        = "path"
	ArgID          = "id"
	ArgParam       = "param"
	ArgRequestBody = "requestBody"
)

// DecodeArguments converts tool arguments into an Operation.
//
//   - get_no_id:                {path}
//   - get_id:                   {path, id}
//   - post_request_body:        {input: {path, requestBody}}
//   - post_put_request_body_id: {input: {path, id, requestBody}}
//   - delete_param:             {path, param}
//
// Body kinds also accept the input fields at the top level.
func DecodeArguments(kind Kind, args map[string]any) (Operation, error) {
	op := Operation{Kind: kind}
	if _, ok := ParseKind(string(kind)); !ok {
		return op, openstack.NewInvalidArgumentError(fmt.Sprintf("unknown tool: %s", kind))
	}

	fields := args
	if kind.NeedsBody() {
		if input, present := args[ArgInput]; present {
			obj, ok := input.(map[string]any)
			if !ok {
				return op, openstack.NewInvalidArgumentError("input must be an object")
			}
			fields = obj
		}
	}

	path, err := stringArg(fields, ArgPath)
	if err != nil {
		return op, err
	}
	op.Path = path

	switch kind {
	case KindGetID, KindPostPutRequestBodyID:
		if op.ID, err = stringArg(fields, ArgID); err != nil {
			return op, err
		}
	case KindDeleteParam:
		if op.ID, err = stringArg(fields, ArgParam); err != nil {
			return op, err
		}
	}

	if kind.NeedsBody() {
		raw, present := fields[ArgRequestBody]
		if !present || raw == nil {
			return op, openstack.NewInvalidArgumentError("requestBody is required")
		}
		body, ok := raw.(map[string]any)
		if !ok {
			return op, openstack.NewInvalidArgumentError("requestBody must be an object")
		}
		op.Body = body
	}
	return op, nil
}

func stringArg(args map[string]any, name string) (string, error) {
	raw, present := args[name]
	if !present {
		return "", openstack.NewInvalidArgumentError(fmt.Sprintf("%s is required", name))
	}
	s, ok := raw.(string)
	if !ok {
		return "", openstack.NewInvalidArgumentError(fmt.Sprintf("%s must be a string", name))
	}
	return s, nil
}
