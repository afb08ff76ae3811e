// Package swagger registers the OpenAPI document served at /swagger/index.html.
// Keep it in step with the handler annotations (swag init -g cmd/api/main.go -o docs/swagger).
package swagger

import "github.com/swaggo/swag"

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
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/health.Status"}}
                }
            }
        },
        "/validate-efaktur": {
            "post": {
                "description": "Reads the invoice and its QR code, looks it up at DJP and compares every field.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Validation"],
                "summary": "Validate an e-Faktur upload",
                "parameters": [
                    {"type": "file", "description": "e-Faktur PDF or JPEG", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/validation.ValidationResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/validate-efaktur/from-s3": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Validation"],
                "summary": "Validate an e-Faktur stored in object storage",
                "parameters": [
                    {"description": "Object key", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/validation.objectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/validation.ValidationResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "health.Status": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "ok"}}
        },
        "respond.ErrorBody": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {}
            }
        },
        "respond.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/respond.ErrorBody"}}
        },
        "efaktur.Fields": {
            "type": "object",
            "properties": {
                "npwpPenjual": {"type": "string"},
                "namaPenjual": {"type": "string"},
                "npwpPembeli": {"type": "string"},
                "namaPembeli": {"type": "string"},
                "nomorFaktur": {"type": "string"},
                "tanggalFaktur": {"type": "string"},
                "jumlahDpp": {"type": "string"},
                "jumlahPpn": {"type": "string"},
                "jumlahPpnBm": {"type": "string"}
            }
        },
        "efaktur.Deviation": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "pdf_value": {"type": "string"},
                "djp_api_value": {"type": "string"},
                "deviation_type": {"type": "string", "enum": ["mismatch", "missing_in_pdf", "missing_in_api"]}
            }
        },
        "validation.ValidatedData": {
            "allOf": [
                {"$ref": "#/definitions/efaktur.Fields"},
                {"type": "object", "properties": {"statusApproval": {"type": "string"}, "statusFaktur": {"type": "string"}}}
            ]
        },
        "validation.Details": {
            "type": "object",
            "properties": {
                "deviations": {"type": "array", "items": {"$ref": "#/definitions/efaktur.Deviation"}},
                "validated_data": {"$ref": "#/definitions/validation.ValidatedData"},
                "extracted_data": {"$ref": "#/definitions/efaktur.Fields"}
            }
        },
        "validation.ValidationResult": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "reason": {"type": "string"},
                "status": {"type": "string", "enum": ["validated_successfully", "validated_with_deviations", "rejected_by_djp"]},
                "message": {"type": "string"},
                "validation_results": {"$ref": "#/definitions/validation.Details"}
            }
        },
        "validation.objectRequest": {
            "type": "object",
            "required": ["s3Key"],
            "properties": {"s3Key": {"type": "string"}, "fileName": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "e-Faktur Validation API",
	Description:      "Validates Indonesian e-Faktur tax invoices against the DJP validation service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
