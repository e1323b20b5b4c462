// Package cli implements the kbase command line.
//
//	kbase serve [-f FILE | --resume]   run the knowledge-base server
//	kbase save [FILE] [record flags]   upsert records
//	kbase delete [FILE] [name flags]   delete records by name
//	kbase dump PATH                    write the server state to PATH
//	kbase state                        print the server state
//	kbase watch                        follow state broadcasts
//	kbase version                      print version information
//
// Client commands talk to the HTTP API at --admin-url, or to the gRPC API
// with --via grpc.
package cli
