package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "USIS Routine API",
        "description": "Conflict-free class routine planner over the university section catalog",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Catalog", "description": "Courses, sections, faculty and exam slots"},
        {"name": "Routine", "description": "Routine planning, conflict checks, feedback and export"},
        {"name": "Metrics", "description": "Health and observability"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is down"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/metrics/system": {
            "get": {
                "tags": ["Metrics"],
                "summary": "System metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/courses": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List courses with seat totals",
                "parameters": [
                    {"name": "show_all", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Catalog unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/courses/{code}/sections": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List sections of a course",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "show_all", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/faculty": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List faculty initials",
                "parameters": [
                    {"name": "courses", "in": "query", "type": "string", "description": "Comma separated course codes"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exam-schedule": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Exam slots of one section",
                "parameters": [
                    {"name": "courseCode", "in": "query", "required": true, "type": "string"},
                    {"name": "sectionName", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Section not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/catalog/refresh": {
            "post": {
                "tags": ["Catalog"],
                "summary": "Schedule a catalog refresh",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Refresh queue unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/routine": {
            "post": {
                "tags": ["Routine"],
                "summary": "Plan a conflict-free routine",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PlanRoutineRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Exam or schedule conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No routine satisfies the request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/routine/exam-conflicts": {
            "post": {
                "tags": ["Routine"],
                "summary": "Exam conflicts within a chosen routine",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoutineSectionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/routine/time-conflicts": {
            "post": {
                "tags": ["Routine"],
                "summary": "Class and lab clashes within a chosen routine",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoutineSectionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/routine/feedback": {
            "post": {
                "tags": ["Routine"],
                "summary": "Generated feedback for a chosen routine",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoutineSectionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/routine/export": {
            "post": {
                "tags": ["Routine"],
                "summary": "Export a chosen routine",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoutineSectionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CourseSelection": {
            "type": "object",
            "required": ["courseCode", "faculty"],
            "properties": {
                "courseCode": {"type": "string"},
                "faculty": {"type": "array", "items": {"type": "string"}},
                "sectionOverride": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "PlanRoutineRequest": {
            "type": "object",
            "required": ["courses", "days"],
            "properties": {
                "courses": {"type": "array", "items": {"$ref": "#/definitions/CourseSelection"}},
                "days": {"type": "array", "items": {"type": "string"}},
                "times": {"type": "array", "items": {"type": "string"}},
                "commutePreference": {"type": "string", "enum": ["none", "near", "far", "early", "late"]},
                "useRanking": {"type": "boolean"},
                "includeFeedback": {"type": "boolean"}
            }
        },
        "SectionRef": {
            "type": "object",
            "properties": {
                "courseCode": {"type": "string"},
                "sectionName": {"type": "string"}
            }
        },
        "RoutineSectionsRequest": {
            "type": "object",
            "required": ["sections"],
            "properties": {
                "sections": {"type": "array", "items": {"$ref": "#/definitions/SectionRef"}},
                "commutePreference": {"type": "string"}
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
