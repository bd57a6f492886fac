// Package api contains tests that run against a real backend server.
//
// These tests require the backend server to be running before execution.
// They exercise the mailbox, email, webhook, and auth HTTP surface the same
// way an external client would reach it.
//
// Usage:
//
//	# Start the backend server first
//	go run ./cmd/server
//
//	# Then run the API tests
//	go test -tags=api ./tests/api/... -v
//
// Environment Variables:
//
//	API_BASE_URL    - Base URL of the API server (default: http://localhost:3000)
//	API_TEST_DOMAIN - Mail domain the server is configured with (default: mail.test)
package api
