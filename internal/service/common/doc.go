// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the alarm clock with call
// timeouts and a helper that identifies the calling user and host.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
