// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g internal/api/router.go
package docs

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
        "/api/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sessionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/logout": {
            "post": {"tags": ["session"], "summary": "Logout", "responses": {"204": {"description": "No Content"}}}
        },
        "/api/auth/refresh": {
            "post": {
                "tags": ["session"],
                "summary": "Refresh the session",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Session bootstrap",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sessionResponse"}}}
            }
        },
        "/api/registration": {
            "get": {
                "produces": ["application/json"],
                "tags": ["registration"],
                "summary": "Registration progress",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.stepResponse"}}}
            }
        },
        "/api/registration/steps/{step}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["registration"],
                "summary": "Submit a step",
                "parameters": [{"type": "string", "description": "Step slug", "name": "step", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.stepResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/registration/steps/{step}/draft": {
            "get": {
                "produces": ["application/json"],
                "tags": ["registration"],
                "summary": "Load a step draft",
                "parameters": [{"type": "string", "description": "Step slug", "name": "step", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.draftResponse"}}}
            },
            "put": {
                "consumes": ["application/json"],
                "tags": ["registration"],
                "summary": "Save a step draft",
                "parameters": [
                    {"type": "string", "description": "Step slug", "name": "step", "in": "path", "required": true},
                    {"description": "Draft fields", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.draftRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/toasts": {
            "get": {"produces": ["application/json"], "tags": ["ui"], "summary": "Drain toasts", "responses": {"200": {"description": "OK"}}}
        },
        "/api/modals/{id}": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["ui"],
                "summary": "Answer a confirmation",
                "parameters": [
                    {"type": "string", "description": "Confirmation ID", "name": "id", "in": "path", "required": true},
                    {"description": "Decision", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.decisionRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/locale": {
            "get": {"produces": ["application/json"], "tags": ["locale"], "summary": "Current locale", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.localeResponse"}}}},
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["locale"],
                "summary": "Change locale",
                "parameters": [{"description": "Locale", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.localeRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.localeResponse"}}}
            }
        },
        "/healthz": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}
        },
        "/readyz": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Readiness probe", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        }
    },
    "definitions": {
        "domain.FieldError": {
            "type": "object",
            "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
        },
        "handler.errorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "error": {"type": "string"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/domain.FieldError"}}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}, "next": {"type": "string"}}
        },
        "handler.sessionResponse": {
            "type": "object",
            "properties": {
                "authenticated": {"type": "boolean"},
                "user": {"type": "object"},
                "registration": {"type": "object"},
                "menu": {"type": "array", "items": {"type": "object"}},
                "locale": {"type": "string"},
                "pending_toasts": {"type": "integer"},
                "next": {"type": "string"}
            }
        },
        "handler.stepResponse": {
            "type": "object",
            "properties": {"registration": {"type": "object"}, "next": {"type": "string"}}
        },
        "handler.draftRequest": {
            "type": "object",
            "properties": {"fields": {"type": "object", "additionalProperties": {"type": "string"}}}
        },
        "handler.draftResponse": {
            "type": "object",
            "properties": {
                "step": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "updated_at": {"type": "string"}
            }
        },
        "handler.decisionRequest": {
            "type": "object",
            "required": ["decision"],
            "properties": {"decision": {"type": "string", "enum": ["confirm", "cancel"]}}
        },
        "handler.localeRequest": {
            "type": "object",
            "required": ["locale"],
            "properties": {"locale": {"type": "string"}}
        },
        "handler.localeResponse": {
            "type": "object",
            "properties": {"locale": {"type": "string"}, "supported": {"type": "array", "items": {"type": "string"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Marketplace web API",
	Description:      "Backend-for-frontend of the B2B marketplace: sessions, registration wizard, UI state and backend proxy.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
