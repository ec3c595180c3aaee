// Package docs holds the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

// @title           The Grid API
// @version         1.0
// @description     Context-column task board with Google Calendar sync
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a token from `grid token`

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/board": {
            "get": {"tags": ["Board"], "summary": "Current board", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/board.View"}}}}
        },
        "/board/stream": {
            "get": {"tags": ["Board"], "summary": "Live board", "produces": ["text/event-stream"],
                "responses": {"200": {"description": "board events"}}}
        },
        "/board/draft": {
            "post": {"tags": ["Draft"], "summary": "Open create form", "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "schema": {"$ref": "#/definitions/handler.OpenFormRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/board.View"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}}},
            "patch": {"tags": ["Draft"], "summary": "Edit draft field", "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.DraftFieldRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/board.View"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}}},
            "delete": {"tags": ["Draft"], "summary": "Cancel draft",
                "responses": {"204": {"description": "No Content"}}}
        },
        "/board/draft/save": {
            "post": {"tags": ["Draft"], "summary": "Save draft", "produces": ["application/json"],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.SaveResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}}}
        },
        "/board/selection": {
            "delete": {"tags": ["Tasks"], "summary": "Close detail", "responses": {"204": {"description": "No Content"}}}
        },
        "/tasks": {
            "get": {"tags": ["Tasks"], "summary": "All tasks", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.TaskListResponse"}}}}
        },
        "/tasks/{id}": {
            "get": {"tags": ["Tasks"], "summary": "Task detail", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Task"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}}}
        },
        "/tasks/{id}/toggle": {
            "post": {"tags": ["Tasks"], "summary": "Toggle completed",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}}}
        },
        "/calendar/signin": {
            "post": {"tags": ["Calendar"], "summary": "Start calendar sign-in", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.SignInResponse"}}}}
        },
        "/calendar/callback": {
            "get": {"tags": ["Calendar"], "summary": "OAuth redirect target", "security": [],
                "parameters": [{"type": "string", "name": "state", "in": "query", "required": true},
                    {"type": "string", "name": "code", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.StatusResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}}}
        },
        "/calendar/status": {
            "get": {"tags": ["Calendar"], "summary": "Calendar sign-in state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.StatusResponse"}}}}
        },
        "/calendar/signout": {
            "post": {"tags": ["Calendar"], "summary": "Calendar sign-out",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.StatusResponse"}}}}
        }
    },
    "definitions": {
        "model.Task": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "context": {"type": "string"},
                "description": {"type": "string"},
                "notes": {"type": "string"},
                "deadline": {"type": "string", "example": "2024-06-01"},
                "eventDate": {"type": "string", "example": "2024-06-01"},
                "time": {"type": "string", "example": "14:00"},
                "duration": {"type": "integer", "example": 60},
                "location": {"type": "string"},
                "attachment": {"type": "string"},
                "completed": {"type": "boolean"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "board.Column": {
            "type": "object",
            "properties": {
                "context": {"type": "string"},
                "tasks": {"type": "array", "items": {"$ref": "#/definitions/model.Task"}}
            }
        },
        "board.View": {
            "type": "object",
            "properties": {
                "columns": {"type": "array", "items": {"$ref": "#/definitions/board.Column"}},
                "unsorted": {"type": "array", "items": {"$ref": "#/definitions/model.Task"}},
                "draft": {"$ref": "#/definitions/model.Task"},
                "selected": {"$ref": "#/definitions/model.Task"},
                "signedIn": {"type": "boolean"},
                "calendarState": {"type": "string"},
                "saving": {"type": "boolean"},
                "degraded": {"type": "boolean"},
                "lastError": {"type": "string"}
            }
        },
        "handler.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "handler.OpenFormRequest": {"type": "object", "properties": {"context": {"type": "string"}}},
        "handler.DraftFieldRequest": {
            "type": "object",
            "required": ["field"],
            "properties": {"field": {"type": "string"}, "value": {"type": "string"}}
        },
        "handler.SaveResponse": {
            "type": "object",
            "properties": {
                "task": {"$ref": "#/definitions/model.Task"},
                "event_id": {"type": "string"},
                "warning": {"type": "string"}
            }
        },
        "handler.TaskListResponse": {
            "type": "object",
            "properties": {"tasks": {"type": "array", "items": {"$ref": "#/definitions/model.Task"}}}
        },
        "handler.SignInResponse": {"type": "object", "properties": {"auth_url": {"type": "string"}}},
        "handler.StatusResponse": {
            "type": "object",
            "properties": {"state": {"type": "string"}, "signed_in": {"type": "boolean"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "The Grid API",
	Description:      "Context-column task board with Google Calendar sync",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
