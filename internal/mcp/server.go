// Package mcp exposes the authorization session and platform checks as MCP
// tools over stdio, for consumption by an LLM agent runtime.
package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentbridge/agentbridge-cli/internal/auth"
	"github.com/agentbridge/agentbridge-cli/internal/config"
	"github.com/agentbridge/agentbridge-cli/internal/mcpclient"
	"github.com/agentbridge/agentbridge-cli/internal/platforms"
)

// NoParams is the empty argument struct shared by all bridge tools: each
// takes no structured input and returns a single text block.
type NoParams struct{}

// Server wires the authorization session and platform checkers into an MCP
// server. The session is shared across tool calls so that a start followed
// by a complete operates on the same device code.
type Server struct {
	server   *mcp.Server
	session  *auth.Session
	settings *config.Settings

	// listTools launches a downstream server and lists its forwarded
	// tools. Replaceable in tests to avoid spawning processes.
	listTools func(spec mcpclient.ServerSpec) ([]mcpclient.Tool, error)
}

// NewServer creates the bridge MCP server around an authorization session.
func NewServer(session *auth.Session, settings *config.Settings, version string) *Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "agentbridge",
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: "Bridge to GitHub, Salesforce and ServiceNow. Use the " +
			"github_auth_* tools to authorize GitHub access before using GitHub tools.",
	})

	s := &Server{
		server:   server,
		session:  session,
		settings: settings,
		listTools: func(spec mcpclient.ServerSpec) ([]mcpclient.Tool, error) {
			client := mcpclient.NewClient(spec)
			defer client.Cleanup()
			return client.ListTools()
		},
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "github_auth_start",
		Description: "Start GitHub device flow authorization and display the one-time code",
	}, s.handleAuthStart)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "github_auth_complete",
		Description: "Complete a pending GitHub authorization after the code was approved",
	}, s.handleAuthComplete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "github_auth_status",
		Description: "Check GitHub authorization status, granted scopes and rate limits",
	}, s.handleAuthStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "salesforce_status",
		Description: "Check the Salesforce connection status",
	}, s.handleSalesforceStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "servicenow_status",
		Description: "Check the ServiceNow connection status",
	}, s.handleServiceNowStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "salesforce_connection_test",
		Description: "Launch the Salesforce tool server and verify the MCP connection",
	}, s.handleSalesforceConnectionTest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "integration_summary",
		Description: "Show the status of all platform integrations",
	}, s.handleSummary)
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func textResult(text string) *mcp.CallToolResultFor[struct{}] {
	return &mcp.CallToolResultFor[struct{}]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func (s *Server) handleAuthStart(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[struct{}], error) {
	return textResult(s.session.Start(ctx)), nil
}

func (s *Server) handleAuthComplete(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[struct{}], error) {
	return textResult(s.session.Complete(ctx)), nil
}

func (s *Server) handleAuthStatus(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[struct{}], error) {
	return textResult(s.session.Status(ctx)), nil
}

func (s *Server) handleSalesforceStatus(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[struct{}], error) {
	return textResult(platforms.NewSalesforce(s.settings.Salesforce).Status(ctx)), nil
}

func (s *Server) handleServiceNowStatus(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[struct{}], error) {
	return textResult(platforms.NewServiceNow(s.settings.ServiceNow).Status(ctx)), nil
}

// handleSalesforceConnectionTest spawns the actual Salesforce tool server
// and asks it for its tool list. Unlike salesforce_status, which pings the
// instance over HTTP, this exercises the same stdio path the agent's tool
// calls will take.
func (s *Server) handleSalesforceConnectionTest(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[struct{}], error) {
	if !s.settings.Salesforce.Configured() {
		return textResult("Salesforce configuration incomplete; " +
			"set the SALESFORCE_* variables in your .env file first."), nil
	}

	tools, err := s.listTools(mcpclient.SalesforceServer(s.settings.Salesforce))
	if err != nil {
		return textResult(fmt.Sprintf("Salesforce MCP connection failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Salesforce MCP connection: active\n\n")
	fmt.Fprintf(&b, "Forwarded tools (%d):\n", len(tools))
	for _, t := range tools {
		fmt.Fprintf(&b, "  %s\n", t.Name)
	}
	fmt.Fprintf(&b, "\nUse salesforce_dml_records to create or update records, ")
	fmt.Fprintf(&b, "salesforce_query_records for SOQL queries.")
	return textResult(b.String()), nil
}

func (s *Server) handleSummary(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[struct{}], error) {
	authorized := os.Getenv(auth.EnvTokenKey) != ""
	return textResult(platforms.Summary(s.settings, authorized)), nil
}
