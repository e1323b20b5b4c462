// Package rpc exposes the knowledge base over gRPC.
//
// The service kbase.KBase has four unary methods, Save, Delete, Dump and
// GetState. Messages are the JSON encodings of the same types the HTTP API
// uses, carried with the "json" content subtype, so no generated protobuf
// code is involved. The standard gRPC health service is registered as well.
package rpc
