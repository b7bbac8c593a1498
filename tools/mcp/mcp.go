// Package mcp connects the agent to external tool servers speaking the
// Model Context Protocol. Each configured server runs as a subprocess; its
// tools are discovered at startup and exposed through the tools.Tool
// interface of the parent package.
package mcp

import (
	"context"
	"os"
	"os/exec"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/m4xw311/termagent/errors"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	Name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools map[string]*Tool
}

// NewClient starts the server subprocess, connects over stdio and discovers
// the tools it provides.
func NewClient(name, command string, args []string) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	ctx := context.Background()
	mc := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "termagent", Version: "v1.0.0"}, nil)
	conn, err := mc.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", name)
	}

	c := &Client{
		Name:  name,
		cmd:   cmd,
		conn:  conn,
		tools: make(map[string]*Tool),
	}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			cmd.Process.Kill()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name)
		}
		for _, t := range list.Tools {
			c.tools[t.Name] = &Tool{
				serverName:  name,
				toolName:    t.Name,
				description: t.Description,
				client:      c,
			}
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	return c, nil
}

// GetTool returns a tool provided by this server by its short name.
func (c *Client) GetTool(name string) (*Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// AllTools returns every tool the server offers, for "<server>.*" toolset entries.
func (c *Client) AllTools() []*Tool {
	all := make([]*Tool, 0, len(c.tools))
	for _, t := range c.tools {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].toolName < all[j].toolName })
	return all
}

// Stop terminates the server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// Tool is a single tool exposed by an MCP server. It satisfies the
// tools.Tool interface of the parent package.
type Tool struct {
	serverName  string
	toolName    string
	description string
	client      *Client
}

func (t *Tool) Name() string        { return t.toolName }
func (t *Tool) Description() string { return t.description }

// Execute forwards the call to the server and concatenates the text content
// of the result.
func (t *Tool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.toolName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool '%s' on MCP server '%s'", t.toolName, t.serverName)
	}

	var out string
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			out += text.Text
		}
	}
	return out, nil
}
