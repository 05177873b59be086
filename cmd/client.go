// Package cmd implements the nakd CLI using cobra.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/msgctl/netaidkit-nakd/internal/jsonrpc"
)

// client is a JSON-RPC client over the daemon's Unix domain socket, adapted
// from the teacher's internal/command/uds_client.go onto internal/jsonrpc's
// wire types and rpcconn's one-request-per-connection framing.
type client struct {
	socketPath string
	timeout    time.Duration
}

func newClient(socketPath string, timeout time.Duration) *client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &client{socketPath: socketPath, timeout: timeout}
}

// call dials, sends one request, reads one response, and closes the
// connection. rpcconn.Server would serve further requests on the same
// connection, but the client keeps no persistent session.
func (c *client) call(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	var raw json.RawMessage
	if params != nil {
		raw, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
	}

	req := jsonrpc.Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  raw,
		ID:      uuid.NewString(),
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp jsonrpc.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &resp, nil
}

// callOK calls method and returns an error combining a transport failure and
// an RPC-level error object into a single error for callers that only care
// whether the call succeeded.
func (c *client) callOK(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	resp, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return resp, fmt.Errorf("%s: %s", method, resp.Error.Message)
	}
	return resp, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
