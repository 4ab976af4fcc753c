package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Lesson Scheduler API",
        "description": "Recurring lesson scheduling on top of an external record store",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Scheduling", "description": "Recurring lesson booking and run journal"},
        {"name": "Lessons", "description": "Lesson reads and status changes"},
        {"name": "Observability", "description": "Process counters"}
    ],
    "paths": {
        "/lessons/schedule": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Schedule a first lesson and its weekly follow-ups",
                "description": "Creates every lesson until term end in batches of ten. A failed notification rolls the created lessons back.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleLessonsRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Record store or notification failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons": {
            "get": {
                "tags": ["Lessons"],
                "summary": "List lessons",
                "parameters": [
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/{id}": {
            "get": {
                "tags": ["Lessons"],
                "summary": "Get lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/{id}/status": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Change lesson status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionLessonRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/runs": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "List scheduling runs",
                "parameters": [
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["SUCCEEDED", "FAILED", "ROLLED_BACK", "ROLLBACK_INCOMPLETE"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Journal disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Process counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ScheduleLessonsRequest": {
            "type": "object",
            "required": ["studentId", "firstLessonDate", "firstLessonTime", "recurringWeekday", "recurringTime"],
            "properties": {
                "studentId": {"type": "string"},
                "teacherId": {"type": "string"},
                "firstLessonDate": {"type": "string", "format": "date"},
                "firstLessonTime": {"type": "string", "example": "14:00"},
                "recurringWeekday": {"type": "string", "example": "Monday"},
                "recurringTime": {"type": "string", "example": "14:00"},
                "backupTime": {"type": "string"},
                "arrangement": {"type": "string", "example": "45 min"},
                "termGoal": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "TransitionLessonRequest": {
            "type": "object",
            "required": ["transition"],
            "properties": {
                "transition": {"type": "string", "enum": ["completed", "rescheduled", "cancelled"]},
                "notes": {"type": "string"},
                "homework": {"type": "string"},
                "newDate": {"type": "string", "format": "date"},
                "newTime": {"type": "string"},
                "reason": {"type": "string"},
                "cancelledBy": {"type": "string"}
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
