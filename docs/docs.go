package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "Calendar to-do store",
        "title": "Calendo API",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health Check",
                "responses": {
                    "200": {"description": "Server is healthy"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness Check",
                "description": "Pings the todo store",
                "responses": {
                    "200": {"description": "Store reachable"},
                    "503": {"description": "Store not reachable"}
                }
            }
        },
        "/api/todo": {
            "get": {
                "tags": ["Todo"],
                "summary": "List todos",
                "description": "All todos, newest date first",
                "produces": ["application/json"],
                "responses": {
                    "200": {
                        "description": "Todos",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/Todo"}}
                    },
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "post": {
                "tags": ["Todo"],
                "summary": "Create or update a todo",
                "description": "A todo with the same text and category is updated in place",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "todo",
                        "required": true,
                        "schema": {"$ref": "#/definitions/UpsertTodoRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Upserted todo", "schema": {"$ref": "#/definitions/Todo"}},
                    "500": {"description": "Invalid todo or server error", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/todo/{id}": {
            "patch": {
                "tags": ["Todo"],
                "summary": "Toggle done",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {
                        "in": "body",
                        "name": "state",
                        "required": true,
                        "schema": {"$ref": "#/definitions/ToggleTodoRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Updated todo", "schema": {"$ref": "#/definitions/Todo"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Todo"],
                "summary": "Delete a todo",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Deleted todo", "schema": {"$ref": "#/definitions/Todo"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "Todo": {
            "type": "object",
            "properties": {
                "_id": {"type": "string"},
                "text": {"type": "string", "example": "Pay rent"},
                "priority": {"type": "string", "enum": ["Low", "Medium", "High"]},
                "category": {"type": "string", "example": "personal"},
                "date": {"type": "string", "format": "date-time"},
                "isDone": {"type": "boolean"}
            }
        },
        "UpsertTodoRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {
                "text": {"type": "string"},
                "priority": {"type": "string", "enum": ["Low", "Medium", "High"]},
                "category": {"type": "string"},
                "date": {"type": "string", "example": "2024-03-05"}
            }
        },
        "ToggleTodoRequest": {
            "type": "object",
            "properties": {
                "isDone": {"type": "boolean"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Calendo API",
	Description:      "Calendar to-do store",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
