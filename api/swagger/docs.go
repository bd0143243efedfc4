// Package swagger holds the OpenAPI description served at /swagger/ in dev mode.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/health": {
            "get": {
                "description": "Returns service health status with version information.",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/server.HealthResponse"}
                    }
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Reports whether the configuration server answers.",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "ready"},
                    "503": {"description": "configuration server unreachable"}
                }
            }
        },
        "/invalidateStatus/{id}": {
            "get": {
                "description": "Relays the configuration server's progress report for an invalidation request.",
                "produces": ["text/plain"],
                "tags": ["dashboard"],
                "summary": "Invalidation status",
                "parameters": [
                    {"type": "string", "description": "Request id from the invalidation response", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "status text"},
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {"$ref": "#/definitions/server.Problem"}
                    }
                }
            }
        }
    },
    "definitions": {
        "server.HealthResponse": {
            "type": "object",
            "properties": {
                "service": {"type": "string", "example": "cdndash"},
                "status": {"type": "string", "example": "ok"},
                "version": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "server.Problem": {
            "type": "object",
            "properties": {
                "detail": {"type": "string", "example": "backend GET ds returned 500"},
                "instance": {"type": "string", "example": "/invalidateStatus/1700-42"},
                "status": {"type": "integer", "example": 502},
                "title": {"type": "string", "example": "Bad Gateway"},
                "type": {"type": "string", "example": "https://cdndash.dev/problems/bad-gateway"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "cdndash API",
	Description:      "Operational endpoints of the CDN configuration dashboard.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
