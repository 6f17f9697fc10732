// Package api provides OpenAPI/Swagger documentation for the ContentCycle API.
//
// # API Overview
//
// ContentCycle provides a RESTful API for:
//   - Content creation and iteration lifecycle management
//   - Focus-group evaluation by simulated reviewer personas
//   - Moderator synthesis and editor revision passes
//   - Human review decisions and autonomous orchestration
//   - Persona management
//   - Health monitoring and Prometheus metrics
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// # Generating Documentation
//
// To regenerate Swagger documentation using swag:
//
//	swag init -g cmd/contentcycle/main.go -o api --parseDependency --parseInternal
package api
