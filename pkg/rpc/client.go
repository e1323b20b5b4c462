package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/entity"
)

// Client calls a remote kbase.KBase service.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient connects to target (host:port). Extra options are appended to
// the defaults, which are plaintext transport and the JSON codec.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

// Conn returns the underlying connection.
func (c *Client) Conn() *grpc.ClientConn { return c.conn }

// Save upserts batch.
func (c *Client) Save(ctx context.Context, batch entity.Batch) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.conn.Invoke(ctx, MethodSave, &batch, &out)
	return out, err
}

// Delete deletes batch.
func (c *Client) Delete(ctx context.Context, batch entity.Batch) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.conn.Invoke(ctx, MethodDelete, &batch, &out)
	return out, err
}

// Dump asks the server to write its state to path.
func (c *Client) Dump(ctx context.Context, path string) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.conn.Invoke(ctx, MethodDump, &types.DumpRequest{Path: path}, &out)
	return out, err
}

// GetState fetches the current state.
func (c *Client) GetState(ctx context.Context) (entity.State, error) {
	var out entity.State
	err := c.conn.Invoke(ctx, MethodGetState, &GetStateRequest{}, &out)
	return out, err
}
