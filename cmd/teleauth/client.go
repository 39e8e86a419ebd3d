package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/nilopro/teleauth/internal/output"
	"github.com/nilopro/teleauth/internal/types"
)

const dialTimeout = 5 * time.Second

// rpcResponse mirrors types.RPCResponse with a deferred result.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *types.RPCError `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

// rpcCall connects to the daemon via Unix socket, executes an RPC call and
// decodes the result into result. RPC failures are returned as *types.RPCError.
func rpcCall(method string, params interface{}, result interface{}) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("unix", cfg.SocketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrConnectionFailed, cfg.SocketPath, err)
	}
	defer conn.Close()

	req := types.RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      uuid.NewString(),
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("%w: failed to send request: %v", types.ErrConnectionFailed, err)
	}

	var resp rpcResponse
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&resp); err != nil {
		return fmt.Errorf("%w: failed to read response: %v", types.ErrConnectionFailed, err)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("failed to parse result: %w", err)
		}
	}
	return nil
}

// printCallError renders an rpcCall failure, turning an unreachable daemon
// into a UserError with next steps.
func printCallError(what string, err error) error {
	if errors.Is(err, types.ErrConnectionFailed) {
		userErr := types.NewUserError(
			"Failed to connect to daemon",
			"The daemon doesn't appear to be running. It owns the access store, so nothing can be checked or changed without it.",
			"To start it:\n  teleauth serve &",
			"teleauth serve --help",
		).WithContext("Cause", err.Error())
		output.Print(output.Error(userErr, output.ActionsWhenNotRunning()...))
		return fmt.Errorf("%w: %v", types.ErrDaemonNotRunning, err)
	}

	err = fmt.Errorf("%s: %w", what, err)
	output.Print(output.Error(err))
	return err
}
