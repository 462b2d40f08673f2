package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dafibh/kredo/kredo-backend/docs"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

// OpenAPI3Spec is the subset of an OpenAPI 3.0 document built from the swagger doc
type OpenAPI3Spec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       map[string]interface{} `json:"info"`
	Servers    []Server               `json:"servers"`
	Paths      map[string]interface{} `json:"paths"`
	Components map[string]interface{} `json:"components,omitempty"`
}

// Server is one OpenAPI 3.0 server entry
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SwaggerHandler serves the registered API description as OpenAPI 3.0
type SwaggerHandler struct {
	servers []Server
}

// NewSwaggerHandler creates a new SwaggerHandler advertising servers
func NewSwaggerHandler(servers ...Server) *SwaggerHandler {
	return &SwaggerHandler{servers: servers}
}

// ServeOpenAPI3 converts the swagger 2.0 doc to OpenAPI 3.0
func (h *SwaggerHandler) ServeOpenAPI3(c echo.Context) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return respondError(c, err, "Failed to read API description")
	}

	var swagger2 map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &swagger2); err != nil {
		return respondError(c, err, "Failed to parse API description")
	}

	info, _ := swagger2["info"].(map[string]interface{})
	paths, _ := swagger2["paths"].(map[string]interface{})

	components := make(map[string]interface{})
	if secDefs, ok := swagger2["securityDefinitions"].(map[string]interface{}); ok {
		components["securitySchemes"] = secDefs
	}
	if definitions, ok := swagger2["definitions"].(map[string]interface{}); ok {
		components["schemas"] = rewriteRefs(definitions)
	}

	servers := h.servers
	if servers == nil {
		servers = []Server{}
	}

	return c.JSON(http.StatusOK, OpenAPI3Spec{
		OpenAPI:    "3.0.3",
		Info:       info,
		Servers:    servers,
		Paths:      rewriteRefs(paths).(map[string]interface{}),
		Components: components,
	})
}

// rewriteRefs points $refs at components/schemas and moves non-body
// parameter types under schema
func rewriteRefs(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		if in, ok := v["in"]; ok && in != "body" {
			if _, named := v["name"]; named {
				return rewriteParameter(v)
			}
		}
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if ref, ok := value.(string); ok && key == "$ref" {
				out[key] = strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
				continue
			}
			out[key] = rewriteRefs(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = rewriteRefs(item)
		}
		return out
	default:
		return data
	}
}

func rewriteParameter(param map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	schema := make(map[string]interface{})
	for key, value := range param {
		switch key {
		case "name", "in", "description", "required":
			out[key] = value
		case "type", "format", "enum", "default", "minimum", "maximum":
			schema[key] = value
		case "items":
			schema[key] = rewriteRefs(value)
		}
	}
	if len(schema) > 0 {
		out["schema"] = schema
	}
	return out
}
