package control

import (
	"fmt"
	"net"
	"time"
)

// Client is a thin synchronous caller over the Registration RPC, used by
// cmd/xbasectl's register/unregister debug subcommands.
type Client struct {
	conn net.Conn
}

// Dial connects to a running daemon's control socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("control: dialing %s: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Register calls the daemon's register(root) operation and returns the
// project's broadcast address.
func (c *Client) Register(root string) (string, error) {
	resp, err := c.call(Request{Op: OpRegister, Root: root})
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("control: register %s: %s", root, resp.Error)
	}
	return resp.Address, nil
}

// Unregister calls the daemon's unregister(root) operation.
func (c *Client) Unregister(root string) error {
	resp, err := c.call(Request{Op: OpUnregister, Root: root})
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("control: unregister %s: %s", root, resp.Error)
	}
	return nil
}

func (c *Client) call(req Request) (Response, error) {
	if err := writeRequest(c.conn, req); err != nil {
		return Response{}, err
	}
	return readResponse(c.conn)
}
