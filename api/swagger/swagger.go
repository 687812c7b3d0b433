package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Lumen LMS API",
        "description": "Multi-tenant learning content platform built around a connection graph",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh, password management"},
        {"name": "Connections", "description": "Invites, requests, shares, and other relationship edges"},
        {"name": "Teams", "description": "Tenant team management"},
        {"name": "Courses", "description": "Course management, access resolution, roster exports"},
        {"name": "Collections", "description": "Course collections and membership"},
        {"name": "Users", "description": "User account management"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/connections": {
            "get": {
                "tags": ["Connections"],
                "summary": "List connections",
                "parameters": [
                    {"name": "subjectKind", "in": "query", "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "objectKind", "in": "query", "type": "string"},
                    {"name": "objectId", "in": "query", "type": "string"},
                    {"name": "scopeId", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/connections/invite": {
            "post": {
                "tags": ["Connections"],
                "summary": "Invite users into a team, course, or collection",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InviteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/connections/request": {
            "post": {
                "tags": ["Connections"],
                "summary": "Request access to a team, course, or collection",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RequestAccessRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/connections/share": {
            "post": {
                "tags": ["Connections"],
                "summary": "Share a course with another team",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ShareCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/connections/{id}/respond": {
            "put": {
                "tags": ["Connections"],
                "summary": "Accept or reject a pending connection",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RespondRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/connections/{id}": {
            "delete": {
                "tags": ["Connections"],
                "summary": "Remove a connection",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Removed"}
                }
            }
        },
        "/courses/{id}/access": {
            "get": {
                "tags": ["Courses"],
                "summary": "Resolve the caller's access to a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AccessDecision"}}
                }
            }
        },
        "/courses/{id}/roster/export": {
            "get": {
                "tags": ["Courses"],
                "summary": "Export the accepted learner roster as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "InviteRequest": {
            "type": "object",
            "properties": {
                "object_kind": {"type": "string", "enum": ["TEAM", "COURSE", "COLLECTION"]},
                "object_id": {"type": "string"},
                "emails": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["object_kind", "object_id", "emails"]
        },
        "RequestAccessRequest": {
            "type": "object",
            "properties": {
                "object_kind": {"type": "string", "enum": ["TEAM", "COURSE", "COLLECTION"]},
                "object_id": {"type": "string"},
                "team_id": {"type": "string"}
            },
            "required": ["object_kind", "object_id"]
        },
        "ShareCourseRequest": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "recipient_team_id": {"type": "string"}
            },
            "required": ["course_id", "recipient_team_id"]
        },
        "RespondRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ACCEPTED", "REJECTED"]}
            },
            "required": ["status"]
        },
        "AccessDecision": {
            "type": "object",
            "properties": {
                "level": {"type": "string", "enum": ["ROOT", "SHARED", "NONE"]},
                "via_collection_id": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
