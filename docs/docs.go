// Package docs holds the Swagger 2.0 description of the HTTP API, registered with swag.
// Keep it in step with internal/handler/routes.go.
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
        "/admin/users/{userId}/loans": {
            "get": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "admin" ],
                "summary": "List a user's loans, newest first",
                "parameters": [
                    { "type": "string", "format": "uuid", "name": "userId", "in": "path", "required": true }
                ],
                "responses": {
                    "200": { "description": "OK", "schema": { "type": "array", "items": { "$ref": "#/definitions/Loan" } } },
                    "404": { "description": "User not found", "schema": { "$ref": "#/definitions/ProblemDetails" } }
                }
            },
            "post": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "admin" ],
                "summary": "Create a loan for a user",
                "parameters": [
                    { "type": "string", "format": "uuid", "name": "userId", "in": "path", "required": true },
                    { "name": "request", "in": "body", "required": true, "schema": { "$ref": "#/definitions/CreateLoanRequest" } }
                ],
                "responses": {
                    "201": { "description": "Created", "schema": { "$ref": "#/definitions/Loan" } },
                    "400": { "description": "Invalid terms", "schema": { "$ref": "#/definitions/ProblemDetails" } },
                    "404": { "description": "User not found", "schema": { "$ref": "#/definitions/ProblemDetails" } }
                }
            }
        },
        "/admin/loans/{loanId}/accrue": {
            "post": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "admin" ],
                "summary": "Accrue interest on one loan up to now or upTo",
                "parameters": [
                    { "type": "string", "format": "uuid", "name": "loanId", "in": "path", "required": true },
                    { "name": "request", "in": "body", "schema": { "$ref": "#/definitions/AccrueLoanRequest" } }
                ],
                "responses": {
                    "200": { "description": "OK", "schema": { "$ref": "#/definitions/Loan" } },
                    "404": { "description": "Loan not found", "schema": { "$ref": "#/definitions/ProblemDetails" } }
                }
            }
        },
        "/admin/loans/accrue-all": {
            "post": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "admin" ],
                "summary": "Run batch accrual over every active loan now",
                "responses": {
                    "200": { "description": "OK", "schema": { "$ref": "#/definitions/AccrueAllResponse" } },
                    "409": { "description": "A run is already in progress", "schema": { "$ref": "#/definitions/ProblemDetails" } }
                }
            }
        },
        "/admin/loans": {
            "get": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "admin" ],
                "summary": "List loans across users",
                "parameters": [
                    { "type": "string", "enum": [ "ACTIVE", "OVERDUE", "CLOSED" ], "name": "status", "in": "query" },
                    { "type": "string", "name": "frequency", "in": "query" },
                    { "type": "boolean", "name": "overdue", "in": "query" },
                    { "type": "string", "name": "minOutstanding", "in": "query" },
                    { "type": "string", "name": "maxOutstanding", "in": "query" },
                    { "type": "string", "format": "date-time", "name": "createdFrom", "in": "query" },
                    { "type": "string", "format": "date-time", "name": "createdTo", "in": "query" },
                    { "type": "string", "name": "sort", "in": "query" },
                    { "type": "integer", "name": "page", "in": "query" },
                    { "type": "integer", "name": "limit", "in": "query" }
                ],
                "responses": {
                    "200": { "description": "OK", "schema": { "$ref": "#/definitions/LoanPage" } },
                    "400": { "description": "Invalid filter", "schema": { "$ref": "#/definitions/ProblemDetails" } }
                }
            }
        },
        "/admin/summary": {
            "get": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "admin" ],
                "summary": "Portfolio totals",
                "responses": {
                    "200": { "description": "OK", "schema": { "$ref": "#/definitions/AdminSummary" } }
                }
            }
        },
        "/admin/accrual-runs/latest": {
            "get": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "admin" ],
                "summary": "Most recent recorded accrual run",
                "responses": {
                    "200": { "description": "OK", "schema": { "$ref": "#/definitions/AccrualRun" } },
                    "404": { "description": "No run recorded yet", "schema": { "$ref": "#/definitions/ProblemDetails" } }
                }
            }
        },
        "/loans/{loanId}/payments": {
            "get": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "loans" ],
                "summary": "Payment ledger of a loan, oldest first",
                "parameters": [
                    { "type": "string", "format": "uuid", "name": "loanId", "in": "path", "required": true }
                ],
                "responses": {
                    "200": { "description": "OK", "schema": { "type": "array", "items": { "$ref": "#/definitions/Payment" } } },
                    "403": { "description": "Loan belongs to another user", "schema": { "$ref": "#/definitions/ProblemDetails" } },
                    "404": { "description": "Loan not found", "schema": { "$ref": "#/definitions/ProblemDetails" } }
                }
            },
            "post": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "loans" ],
                "summary": "Pay against a loan",
                "parameters": [
                    { "type": "string", "format": "uuid", "name": "loanId", "in": "path", "required": true },
                    { "name": "request", "in": "body", "required": true, "schema": { "$ref": "#/definitions/PayLoanRequest" } }
                ],
                "responses": {
                    "201": { "description": "Created", "schema": { "$ref": "#/definitions/PaymentResult" } },
                    "400": { "description": "Invalid amount or type", "schema": { "$ref": "#/definitions/ProblemDetails" } },
                    "403": { "description": "Loan belongs to another user", "schema": { "$ref": "#/definitions/ProblemDetails" } },
                    "404": { "description": "Loan not found", "schema": { "$ref": "#/definitions/ProblemDetails" } },
                    "409": { "description": "Loan is closed", "schema": { "$ref": "#/definitions/ProblemDetails" } }
                }
            }
        },
        "/users/{userId}/dashboard": {
            "get": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "users" ],
                "summary": "Loan totals and next payment date for a user",
                "parameters": [
                    { "type": "string", "format": "uuid", "name": "userId", "in": "path", "required": true }
                ],
                "responses": {
                    "200": { "description": "OK", "schema": { "$ref": "#/definitions/Dashboard" } },
                    "403": { "description": "Not the caller's dashboard", "schema": { "$ref": "#/definitions/ProblemDetails" } }
                }
            }
        },
        "/users/{userId}/loans": {
            "get": {
                "security": [ { "BearerAuth": [] } ],
                "tags": [ "users" ],
                "summary": "Filtered, paginated loans of a user",
                "parameters": [
                    { "type": "string", "format": "uuid", "name": "userId", "in": "path", "required": true },
                    { "type": "string", "enum": [ "ACTIVE", "OVERDUE", "CLOSED" ], "name": "status", "in": "query" },
                    { "type": "string", "name": "sort", "in": "query" },
                    { "type": "integer", "name": "page", "in": "query" },
                    { "type": "integer", "name": "limit", "in": "query" }
                ],
                "responses": {
                    "200": { "description": "OK", "schema": { "$ref": "#/definitions/LoanPage" } },
                    "403": { "description": "Not the caller's loans", "schema": { "$ref": "#/definitions/ProblemDetails" } }
                }
            }
        }
    },
    "definitions": {
        "CreateLoanRequest": {
            "type": "object",
            "required": [ "principal", "annualRate", "termDays" ],
            "properties": {
                "principal": { "type": "string", "example": "10000.00" },
                "annualRate": { "type": "string", "example": "12" },
                "termDays": { "type": "integer", "example": 30 },
                "startDate": { "type": "string", "example": "2025-03-01" },
                "paymentFrequency": { "type": "string", "enum": [ "DAILY", "WEEKLY", "MONTHLY", "QUARTERLY", "HALF_YEARLY", "YEARLY", "FLEXIBLE" ] }
            }
        },
        "AccrueLoanRequest": {
            "type": "object",
            "properties": {
                "upTo": { "type": "string", "format": "date-time" }
            }
        },
        "PayLoanRequest": {
            "type": "object",
            "required": [ "amount" ],
            "properties": {
                "amount": { "type": "string", "example": "10032.88" },
                "type": { "type": "string", "enum": [ "EMI", "PARTIAL", "PREPAYMENT" ] }
            }
        },
        "Loan": {
            "type": "object",
            "properties": {
                "id": { "type": "string", "format": "uuid" },
                "userId": { "type": "string", "format": "uuid" },
                "principal": { "type": "string" },
                "annualRate": { "type": "string" },
                "termDays": { "type": "integer" },
                "paymentFrequency": { "type": "string" },
                "startDate": { "type": "string", "format": "date-time" },
                "dueDate": { "type": "string", "format": "date-time" },
                "nextPaymentDate": { "type": "string", "format": "date-time" },
                "outstanding": { "type": "string" },
                "interestAccrued": { "type": "string" },
                "lastAccruedAt": { "type": "string", "format": "date-time" },
                "status": { "type": "string", "enum": [ "ACTIVE", "OVERDUE", "CLOSED" ] },
                "createdAt": { "type": "string", "format": "date-time" },
                "updatedAt": { "type": "string", "format": "date-time" }
            }
        },
        "LoanPage": {
            "type": "object",
            "properties": {
                "data": { "type": "array", "items": { "$ref": "#/definitions/Loan" } },
                "page": { "type": "integer" },
                "limit": { "type": "integer" },
                "totalItems": { "type": "integer" },
                "totalPages": { "type": "integer" }
            }
        },
        "Payment": {
            "type": "object",
            "properties": {
                "id": { "type": "string", "format": "uuid" },
                "loanId": { "type": "string", "format": "uuid" },
                "amount": { "type": "string" },
                "type": { "type": "string", "enum": [ "EMI", "PARTIAL", "PREPAYMENT" ] },
                "createdAt": { "type": "string", "format": "date-time" }
            }
        },
        "PaymentResult": {
            "type": "object",
            "properties": {
                "paymentApplied": { "type": "string" },
                "payment": { "$ref": "#/definitions/Payment" },
                "interestAccrued": { "type": "string" },
                "updatedLoan": { "$ref": "#/definitions/Loan" }
            }
        },
        "Dashboard": {
            "type": "object",
            "properties": {
                "activeLoanCount": { "type": "integer" },
                "totalOutstanding": { "type": "string" },
                "totalInterestAccrued": { "type": "string" },
                "nextPaymentDate": { "type": "string", "format": "date-time" },
                "loans": { "type": "array", "items": { "$ref": "#/definitions/Loan" } }
            }
        },
        "AdminSummary": {
            "type": "object",
            "properties": {
                "totalUsers": { "type": "integer" },
                "pendingUsers": { "type": "integer" },
                "activeUsers": { "type": "integer" },
                "totalLoans": { "type": "integer" },
                "activeLoans": { "type": "integer" },
                "overdueLoans": { "type": "integer" },
                "totalOutstanding": { "type": "string" }
            }
        },
        "AccrualRun": {
            "type": "object",
            "properties": {
                "id": { "type": "integer" },
                "runDate": { "type": "string", "format": "date-time" },
                "trigger": { "type": "string", "enum": [ "scheduled", "manual" ] },
                "startedAt": { "type": "string", "format": "date-time" },
                "finishedAt": { "type": "string", "format": "date-time" },
                "loansProcessed": { "type": "integer" },
                "loansFailed": { "type": "integer" },
                "totalInterest": { "type": "string" },
                "summary": { "type": "object" }
            }
        },
        "AccrualResult": {
            "type": "object",
            "properties": {
                "loanId": { "type": "string", "format": "uuid" },
                "interest": { "type": "string" },
                "status": { "type": "string" },
                "error": { "type": "string" }
            }
        },
        "AccrueAllResponse": {
            "type": "object",
            "properties": {
                "results": { "type": "array", "items": { "$ref": "#/definitions/AccrualResult" } },
                "run": { "$ref": "#/definitions/AccrualRun" }
            }
        },
        "ProblemDetails": {
            "type": "object",
            "properties": {
                "type": { "type": "string" },
                "title": { "type": "string" },
                "status": { "type": "integer" },
                "detail": { "type": "string" },
                "instance": { "type": "string" },
                "errors": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "field": { "type": "string" },
                            "message": { "type": "string" }
                        }
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Auth0 access token, as: Bearer <token>",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Kredo API",
	Description:      "Loan ledger: interest accrual, payments and dashboards.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
