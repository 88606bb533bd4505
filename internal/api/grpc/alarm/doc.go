// Package alarm implements the gRPC transport for the alarm clock.
//
// Messages are protobuf well-known types: requests are Empty or StringValue
// and every response is a Struct carrying the alarm snapshot. The service
// descriptor is declared by hand in desc.go, so no generated code is needed.
package alarm
