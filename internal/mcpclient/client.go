// Package mcpclient drives the external platform MCP servers (GitHub,
// Salesforce, ServiceNow) over stdio JSON-RPC. Messages are
// newline-delimited JSON objects.
package mcpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Global request ID counter for unique MCP request IDs
var requestIDCounter int64

const protocolVersion = "2024-11-05"

// Tool represents an MCP tool advertised by a downstream server
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ServerSpec describes how to launch a downstream MCP server.
type ServerSpec struct {
	// Name identifies the platform in logs
	Name string
	// Command and Args spawn the server process
	Command string
	Args    []string
	// Env entries appended to the inherited environment
	Env []string
	// ToolFilter restricts which advertised tools the bridge forwards;
	// empty means all
	ToolFilter []string
}

// Client handles communication with one downstream MCP server process.
type Client struct {
	spec        ServerSpec
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	stdout      io.ReadCloser
	initialized bool
	mu          sync.Mutex // protects all MCP operations
}

// NewClient creates a client for the given server spec.
func NewClient(spec ServerSpec) *Client {
	return &Client{spec: spec}
}

// AllowsTool reports whether the spec's tool filter admits the tool.
func (c *Client) AllowsTool(name string) bool {
	if len(c.spec.ToolFilter) == 0 {
		return true
	}
	for _, t := range c.spec.ToolFilter {
		if t == name {
			return true
		}
	}
	return false
}

// EnsureConnection ensures a persistent initialized connection.
func (c *Client) EnsureConnection() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureConnectionUnsafe()
}

func (c *Client) ensureConnectionUnsafe() error {
	if c.cmd != nil && c.cmd.Process != nil {
		return nil
	}

	log.WithFields(log.Fields{"server": c.spec.Name, "command": c.spec.Command}).
		Info("starting downstream MCP server")

	c.cmd = exec.Command(c.spec.Command, c.spec.Args...)
	c.cmd.Env = append(os.Environ(), c.spec.Env...)

	stdin, err := c.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	c.stdin = stdin

	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	c.stdout = stdout

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}

	// Initialize the session once
	initRequest := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]interface{}{},
			"clientInfo": map[string]interface{}{
				"name":    "agentbridge",
				"version": "1.0.0",
			},
		},
	}

	if err := c.sendMessage(initRequest); err != nil {
		return fmt.Errorf("failed to send initialize: %w", err)
	}
	if _, err := c.readMessage(); err != nil {
		return fmt.Errorf("failed to read initialize response: %w", err)
	}

	initialized := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "notifications/initialized",
	}
	if err := c.sendMessage(initialized); err != nil {
		return fmt.Errorf("failed to send initialized: %w", err)
	}

	c.initialized = true
	log.WithField("server", c.spec.Name).Info("downstream MCP server initialized")
	return nil
}

// CallTool calls a downstream tool and returns its first text content.
func (c *Client) CallTool(toolName string, args map[string]interface{}) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.AllowsTool(toolName) {
		return "", fmt.Errorf("tool %q is not allowed for server %s", toolName, c.spec.Name)
	}

	if err := c.ensureConnectionUnsafe(); err != nil {
		return "", fmt.Errorf("failed to establish MCP connection: %w", err)
	}

	requestID := atomic.AddInt64(&requestIDCounter, 1)
	toolRequest := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      requestID,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      toolName,
			"arguments": args,
		},
	}

	if err := c.sendMessage(toolRequest); err != nil {
		// Connection might be broken, try reconnecting once
		log.WithError(err).WithField("server", c.spec.Name).Warn("tool request failed, reconnecting")
		c.cleanupUnsafe()
		if err := c.ensureConnectionUnsafe(); err != nil {
			return "", fmt.Errorf("failed to reconnect MCP: %w", err)
		}
		if err := c.sendMessage(toolRequest); err != nil {
			return "", fmt.Errorf("failed to send tool call: %w", err)
		}
	}

	responseCh := make(chan map[string]interface{}, 1)
	errCh := make(chan error, 1)
	go func() {
		response, err := c.readMessage()
		if err != nil {
			errCh <- err
			return
		}
		responseCh <- response
	}()

	var response map[string]interface{}
	select {
	case response = <-responseCh:
	case err := <-errCh:
		return "", fmt.Errorf("failed to read tool response: %w", err)
	case <-time.After(15 * time.Second):
		return "", fmt.Errorf("tool call timed out after 15 seconds")
	}

	if result, ok := response["result"].(map[string]interface{}); ok {
		if content, ok := result["content"].([]interface{}); ok && len(content) > 0 {
			if textContent, ok := content[0].(map[string]interface{}); ok {
				if text, ok := textContent["text"].(string); ok {
					return text, nil
				}
			}
		}
	}

	if errorObj, ok := response["error"].(map[string]interface{}); ok {
		if message, ok := errorObj["message"].(string); ok {
			return "", fmt.Errorf("MCP error: %s", message)
		}
	}

	return "", fmt.Errorf("no valid response from %s MCP server", c.spec.Name)
}

// ListTools queries the downstream server for its advertised tools,
// restricted by the spec's filter.
func (c *Client) ListTools() ([]Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnectionUnsafe(); err != nil {
		return nil, fmt.Errorf("failed to establish MCP connection: %w", err)
	}

	requestID := atomic.AddInt64(&requestIDCounter, 1)
	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      requestID,
		"method":  "tools/list",
	}
	if err := c.sendMessage(request); err != nil {
		return nil, fmt.Errorf("failed to send tools/list: %w", err)
	}

	response, err := c.readMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read tools/list response: %w", err)
	}

	result, ok := response["result"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("malformed tools/list response from %s", c.spec.Name)
	}

	raw, err := json.Marshal(result["tools"])
	if err != nil {
		return nil, err
	}
	var tools []Tool
	if err := json.Unmarshal(raw, &tools); err != nil {
		return nil, fmt.Errorf("failed to parse tool list: %w", err)
	}

	if len(c.spec.ToolFilter) == 0 {
		return tools, nil
	}
	filtered := tools[:0]
	for _, t := range tools {
		if c.AllowsTool(t.Name) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// Cleanup tears down the server process and connection state.
func (c *Client) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupUnsafe()
}

func (c *Client) cleanupUnsafe() {
	if c.cmd != nil && c.cmd.Process != nil {
		log.WithFields(log.Fields{"server": c.spec.Name, "pid": c.cmd.Process.Pid}).
			Debug("killing downstream MCP server")
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
	c.cmd = nil
	c.stdin = nil
	c.stdout = nil
	c.initialized = false
}

func (c *Client) sendMessage(message map[string]interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	if _, err := c.stdin.Write(data); err != nil {
		return err
	}
	_, err = c.stdin.Write([]byte("\n"))
	return err
}

func (c *Client) readMessage() (map[string]interface{}, error) {
	decoder := json.NewDecoder(c.stdout)
	var response map[string]interface{}
	if err := decoder.Decode(&response); err != nil {
		return nil, err
	}
	return response, nil
}
