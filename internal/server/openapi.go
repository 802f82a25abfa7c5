package server

// openAPI3 types for generating specs from tool input schemas.
type openAPI3Spec struct {
	OpenAPI string                      `json:"openapi"`
	Info    openAPI3Info                `json:"info"`
	Paths   map[string]openAPI3PathItem `json:"paths"`
}

type openAPI3Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

type openAPI3PathItem struct {
	Post *openAPI3Operation `json:"post,omitempty"`
}

type openAPI3Operation struct {
	Summary     string                      `json:"summary"`
	Description string                      `json:"description,omitempty"`
	OperationID string                      `json:"operationId"`
	RequestBody *openAPI3RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]openAPI3Response `json:"responses"`
}

type openAPI3RequestBody struct {
	Content map[string]openAPI3MediaType `json:"content"`
}

type openAPI3Response struct {
	Description string                       `json:"description"`
	Content     map[string]openAPI3MediaType `json:"content,omitempty"`
}

type openAPI3MediaType struct {
	Schema map[string]interface{} `json:"schema,omitempty"`
}

// envelopeSchema describes the text a tool returns on success.
var envelopeSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"status":     map[string]interface{}{"type": "integer"},
		"statusText": map[string]interface{}{"type": "string"},
		"body":       map[string]interface{}{},
	},
	"required": []string{"status", "statusText", "body"},
}

// buildOpenAPISpec builds an OpenAPI 3.0 spec for one tool. The tool is a single
// POST operation taking the tool arguments and returning the response envelope.
func buildOpenAPISpec(d *toolDetailData, version string) *openAPI3Spec {
	inputSchema := d.InputSchema
	if inputSchema == nil {
		inputSchema = map[string]interface{}{"type": "object"}
	}
	desc := d.Description
	if desc == "" {
		desc = "Tool " + string(d.Kind)
	}
	path := "/" + string(d.Kind)
	return &openAPI3Spec{
		OpenAPI: "3.0.0",
		Info: openAPI3Info{
			Title:       string(d.Kind),
			Description: desc,
			Version:     version,
		},
		Paths: map[string]openAPI3PathItem{
			path: {
				Post: &openAPI3Operation{
					Summary:     string(d.Kind),
					Description: desc,
					OperationID: string(d.Kind),
					RequestBody: &openAPI3RequestBody{
						Content: map[string]openAPI3MediaType{
							"application/json": {Schema: inputSchema},
						},
					},
					Responses: map[string]openAPI3Response{
						"200": {
							Description: "Upstream response envelope",
							Content: map[string]openAPI3MediaType{
								"application/json": {Schema: envelopeSchema},
							},
						},
					},
				},
			},
		},
	}
}
