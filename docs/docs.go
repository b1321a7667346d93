// Package docs registers the OpenAPI description served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/cv/upload": {
            "post": {
                "description": "Upload a CV file, extract contact details and predict the origin of the extracted name",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["cv"],
                "summary": "Upload and parse CV",
                "parameters": [
                    {
                        "type": "file",
                        "description": "CV file (PDF, DOCX, DOC, RTF, ODT or TXT)",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "boolean",
                        "description": "Check GitHub and LinkedIn URLs with a HEAD request",
                        "name": "validate_links",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/api.CVUploadResponse"}
                    },
                    "400": {"description": "invalid upload", "schema": {"type": "string"}},
                    "500": {"description": "failed to parse CV", "schema": {"type": "string"}}
                }
            }
        },
        "/origin/batch": {
            "post": {
                "description": "Each name is classified independently; invalid names carry an inline error",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["origin"],
                "summary": "Predict origins for a list of names",
                "parameters": [
                    {
                        "description": "Names to classify",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.BatchRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/api.BatchResponse"}
                    },
                    "400": {"description": "invalid request", "schema": {"type": "string"}},
                    "503": {"description": "no model loaded", "schema": {"type": "string"}}
                }
            }
        },
        "/origin/model": {
            "get": {
                "description": "Manifest of the artifact bundle serving predictions",
                "produces": ["application/json"],
                "tags": ["origin"],
                "summary": "Loaded model",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/pipeline.Manifest"}
                    },
                    "503": {"description": "no model loaded", "schema": {"type": "string"}}
                }
            }
        },
        "/origin/predict": {
            "post": {
                "description": "Clean, encode and classify one personal name",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["origin"],
                "summary": "Predict name origin",
                "parameters": [
                    {
                        "description": "Name to classify",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.PredictRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/pipeline.Prediction"}
                    },
                    "400": {"description": "invalid JSON body", "schema": {"type": "string"}},
                    "422": {"description": "name has no usable characters", "schema": {"type": "string"}},
                    "503": {"description": "no model loaded", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "api.BatchItem": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "input": {"type": "string"},
                "prediction": {"$ref": "#/definitions/pipeline.Prediction"}
            }
        },
        "api.BatchRequest": {
            "type": "object",
            "properties": {
                "names": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.BatchResponse": {
            "type": "object",
            "properties": {
                "model_id": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/api.BatchItem"}}
            }
        },
        "api.CVUploadResponse": {
            "type": "object",
            "properties": {
                "candidate_id": {"type": "integer"},
                "cv_id": {"type": "integer"},
                "duration_ms": {"type": "integer"},
                "file": {"$ref": "#/definitions/cv.ParsedCV"},
                "links": {"$ref": "#/definitions/cv.Links"},
                "origin": {"$ref": "#/definitions/pipeline.Prediction"},
                "origin_error": {"type": "string"}
            }
        },
        "api.PredictRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}
            }
        },
        "cv.Contact": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "email": {"type": "string"},
                "github": {"type": "string"},
                "github_links": {"type": "array", "items": {"type": "string"}},
                "linkedin": {"type": "string"},
                "linkedin_links": {"type": "array", "items": {"type": "string"}},
                "name": {"type": "string"},
                "primary_phone": {"type": "string"},
                "secondary_phone": {"type": "string"}
            }
        },
        "cv.Links": {
            "type": "object",
            "properties": {
                "github": {"type": "string"},
                "linkedin": {"type": "string"}
            }
        },
        "cv.ParsedCV": {
            "type": "object",
            "properties": {
                "contact": {"$ref": "#/definitions/cv.Contact"},
                "file_size": {"type": "integer"},
                "file_type": {"type": "string"},
                "filename": {"type": "string"}
            }
        },
        "pipeline.Manifest": {
            "type": "object",
            "properties": {
                "accuracy": {"type": "number"},
                "classes": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"},
                "format_version": {"type": "integer"},
                "id": {"type": "string"},
                "input_width": {"type": "integer"},
                "seq_len": {"type": "integer"},
                "test_size": {"type": "integer"},
                "train_size": {"type": "integer"},
                "variant": {"type": "string"}
            }
        },
        "pipeline.Prediction": {
            "type": "object",
            "properties": {
                "cleaned": {"type": "string"},
                "code": {"type": "integer"},
                "confidence": {"type": "number"},
                "input": {"type": "string"},
                "origin": {"type": "string"},
                "probabilities": {"type": "object", "additionalProperties": {"type": "number"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Name Origin API",
	Description:      "Predicts the likely origin of personal names and extracts contact details from resumes",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
