// Package integration_test provides end-to-end tests for the offlineq library.
//
// These tests wire real components together: durable stores on disk, the
// fasthttp transport against a local HTTP backend, the TCP probe, and an
// embedded NATS JetStream server for the NATS store, connectivity watcher
// and event publisher.
//
// # Running Integration Tests
//
// Integration tests are skipped when using -short flag:
//
//	go test -short ./...           # Skips integration tests
//	go test ./test/integration/... # Runs integration tests
//
// No external services or Docker are needed.
package integration_test
