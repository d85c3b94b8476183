package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

const defaultDialTimeout = 5 * time.Second

// Client is a worker-side connection to an index daemon's RPC endpoint,
// following the teacher's internal/rpc/client.go request/response
// round-trip shape, narrowed to one call at a time per connection.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	timeout time.Duration
}

// DialUnix connects to the daemon's Unix domain socket.
func DialUnix(socketPath string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	if !endpointExists(socketPath) {
		return nil, ErrDaemonUnavailable
	}
	conn, err := dialRPC(socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", socketPath, err)
	}
	return newClient(conn, timeout), nil
}

// DialTCP connects to the daemon's optional TCP endpoint.
func DialTCP(addr string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	conn, err := dialTCP(addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", addr, err)
	}
	return newClient(conn, timeout), nil
}

func newClient(conn net.Conn, timeout time.Duration) *Client {
	return &Client{conn: conn, reader: bufio.NewReader(conn), writer: bufio.NewWriter(conn), timeout: timeout}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call marshals args to JSON, sends operation with them and returns the
// raw response envelope.
func (c *Client) Call(operation string, args interface{}) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	argsData, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal args: %w", err)
	}
	req := Request{Operation: operation, Args: argsData}
	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal request: %w", err)
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	if _, err := c.writer.Write(reqData); err != nil {
		return nil, fmt.Errorf("rpc: write request: %w", err)
	}
	if _, err := c.writer.Write([]byte{'\n'}); err != nil {
		return nil, fmt.Errorf("rpc: write request: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		return nil, fmt.Errorf("rpc: flush request: %w", err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("rpc: read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("rpc: unmarshal response: %w", err)
	}
	return &resp, nil
}

// NewEntity calls INDEX_NEW_ENTITY.
func (c *Client) NewEntity(args NewEntityArgs) (int64, error) {
	resp, err := c.Call(OpNewEntity, args)
	if err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("rpc: %s: %s", OpNewEntity, resp.Error)
	}
	var result NewEntityResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return 0, fmt.Errorf("rpc: unmarshal %s result: %w", OpNewEntity, err)
	}
	return result.EntityID, nil
}

// UpdateEntity calls INDEX_UPDATE_ENTITY.
func (c *Client) UpdateEntity(args UpdateEntityArgs) error {
	return c.callOK(OpUpdateEntity, args)
}

// UnlockEntity calls INDEX_ENTITY_UNLOCK.
func (c *Client) UnlockEntity(entityID int64) error {
	return c.callOK(OpEntityUnlock, EntityIDArgs{EntityID: entityID})
}

// UpdateEntityInfos calls INDEX_ENTITY_UPDATE_INFOS.
func (c *Client) UpdateEntityInfos(entityID int64) error {
	return c.callOK(OpEntityUpdateInfos, EntityIDArgs{EntityID: entityID})
}

// DeleteEntity calls INDEX_ENTITY_DELETE.
func (c *Client) DeleteEntity(entityID int64) error {
	return c.callOK(OpEntityDelete, EntityIDArgs{EntityID: entityID})
}

// PruneEntity calls INDEX_ENTITY_PRUNE.
func (c *Client) PruneEntity(entityID int64) error {
	return c.callOK(OpEntityPrune, EntityIDArgs{EntityID: entityID})
}

func (c *Client) callOK(operation string, args interface{}) error {
	resp, err := c.Call(operation, args)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("rpc: %s: %s", operation, resp.Error)
	}
	return nil
}
