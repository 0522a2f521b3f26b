//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

func init() {
	swag.Register(swaggerInfo.InstanceName(), swaggerInfo)
}

// MountSwagger serves the swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

var swaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "chatbot API",
	Description:      "Streaming chat replies from a local language model.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "paths": {
        "/chat": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/x-ndjson"],
                "summary": "Stream a reply",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.ChatRequest"}}
                ],
                "responses": {
                    "200": {"description": "NDJSON snapshot lines", "schema": {"$ref": "#/definitions/types.ChatChunk"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/info": {
            "get": {
                "produces": ["application/json"],
                "summary": "Loaded model and generation parameters",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InfoResponse"}}}
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "summary": "Models available in the models directory",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.Turn": {
            "type": "object",
            "properties": {"role": {"type": "string"}, "content": {"type": "string"}}
        },
        "types.ChatRequest": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "history": {"type": "array", "items": {"$ref": "#/definitions/types.Turn"}}
            }
        },
        "types.ChatChunk": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "text": {"type": "string"},
                "snapshots": {"type": "integer"},
                "done": {"type": "boolean"}
            }
        },
        "types.Model": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "path": {"type": "string"},
                "quant": {"type": "string"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}}
        },
        "types.InfoResponse": {
            "type": "object",
            "properties": {
                "model": {"type": "string"},
                "runtime": {"type": "string"},
                "template": {"type": "string"},
                "max_seq_len": {"type": "integer"},
                "quantized": {"type": "boolean"},
                "uptime_seconds": {"type": "integer"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}
        }
    }
}`
