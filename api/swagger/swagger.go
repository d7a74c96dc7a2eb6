package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TESDA LMS API",
        "description": "Learning management API for TESDA vocational training centers",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and sessions"},
        {"name": "Users", "description": "Account management"},
        {"name": "Courses", "description": "Course catalog and statistics"},
        {"name": "Lessons", "description": "Course content, materials and assignments"},
        {"name": "Enrollments", "description": "Enrollment ledger"},
        {"name": "Submissions", "description": "Assignment submissions and grading"},
        {"name": "Certificates", "description": "NC and COC certificate review"},
        {"name": "Reminders", "description": "Broadcast reminders"},
        {"name": "Reports", "description": "Asynchronous exports"}
    ],
    "paths": {
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
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/summary": {
            "get": {
                "tags": ["Courses"],
                "summary": "Derived course statistics",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/lessons": {
            "get": {
                "tags": ["Lessons"],
                "summary": "Merged lesson set of a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Lessons"],
                "summary": "Author a local lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLessonRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Self-enroll in a course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Course full or already enrolled"}
                }
            }
        },
        "/enrollments/{id}/drop": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Drop an enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Submit assignment work",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificates": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Submit a certificate claim",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitCertificateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue an export job",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
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
        "CreateCourseRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "code": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "level": {"type": "string"},
                "duration_hours": {"type": "integer"},
                "instructor": {"type": "string"},
                "max_students": {"type": "integer"},
                "course_password": {"type": "string"},
                "allow_self_enrollment": {"type": "boolean"}
            },
            "required": ["title", "code", "category", "level", "max_students"]
        },
        "CreateLessonRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "content": {"type": "string"},
                "duration_min": {"type": "integer"},
                "position": {"type": "integer"},
                "is_published": {"type": "boolean"}
            },
            "required": ["title"]
        },
        "EnrollRequest": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["course_id"]
        },
        "SubmitRequest": {
            "type": "object",
            "properties": {
                "assignment_id": {"type": "string"},
                "course_id": {"type": "string"},
                "content": {"type": "string"},
                "file_ref": {"type": "string"}
            },
            "required": ["assignment_id", "course_id"]
        },
        "SubmitCertificateRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["NC", "COC"]},
                "certificate_number": {"type": "string"},
                "file_ref": {"type": "string"},
                "course_name": {"type": "string"},
                "date_accredited": {"type": "string", "format": "date-time"},
                "date_expiration": {"type": "string", "format": "date-time"},
                "training_course": {"type": "string"},
                "training_hours": {"type": "integer"},
                "training_from": {"type": "string", "format": "date-time"},
                "training_to": {"type": "string", "format": "date-time"},
                "date_given": {"type": "string", "format": "date-time"}
            },
            "required": ["type", "certificate_number", "file_ref"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["enrollments", "certificates", "progress"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "course_id": {"type": "string"}
            },
            "required": ["type", "format"]
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
