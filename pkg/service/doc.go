// Package service is the single entry point for knowledge-base operations.
//
// Every transport (HTTP, gRPC) calls a Service. The Service serializes
// mutations so that each Save or Delete runs mutate, snapshot and broadcast
// as one unit, and reports the outcome as a types.Status.
package service
