package rpcconn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/msgctl/netaidkit-nakd/internal/auditlog"
	"github.com/msgctl/netaidkit-nakd/internal/jsonrpc"
	"github.com/msgctl/netaidkit-nakd/internal/metrics"
)

// serveConn reads a stream of JSON-RPC requests off conn using an
// incremental decoder — not line framing — so a client that writes a
// request across several Write() calls, or pipelines several requests in
// one Write(), is handled correctly either way.
func serveConn(ctx context.Context, conn net.Conn, router *jsonrpc.Router, connID string, access jsonrpc.AccessLevel) {
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		if dl, ok := ctx.Deadline(); ok {
			conn.SetReadDeadline(dl)
		}

		var raw json.RawMessage
		start := time.Now()
		err := dec.Decode(&raw)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			writeParseError(enc, connID)
			return
		}

		out := router.DispatchMessage(ctx, access, raw, func(req jsonrpc.Request, resp *jsonrpc.Response) {
			code := 0
			if resp != nil && resp.Error != nil {
				code = resp.Error.Code
			}
			auditlog.Get().Call(connID, req.Method, auditlog.AccessLevel(access), code, time.Since(start).Milliseconds())
			metrics.RPCRequestsTotal.WithLabelValues(req.Method, statusLabel(code)).Inc()
		})

		if out == nil {
			continue
		}
		if err := enc.Encode(json.RawMessage(out)); err != nil {
			slog.Warn("failed to write rpc response", "conn", connID, "error", err)
			return
		}
	}
}

func writeParseError(enc *json.Encoder, connID string) {
	resp := jsonrpc.Response{
		JSONRPC: "2.0",
		Error:   jsonrpc.NewError(jsonrpc.CodeParseError, "parse error"),
		ID:      nil,
	}
	_ = enc.Encode(resp)
	auditlog.Get().Reject(connID, "parse error")
}

func statusLabel(code int) string {
	if code == 0 {
		return "ok"
	}
	return "error"
}
