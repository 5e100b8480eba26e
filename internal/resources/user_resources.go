package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/taskpulse/internal/analytics"
	"github.com/teemow/taskpulse/internal/server"
)

// Resource URIs
const (
	ProfileURI   = "user://profile"
	DashboardURI = "tasks://dashboard"
)

// RegisterUserResources registers the profile and dashboard resources.
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	profileResource := mcp.NewResource(
		ProfileURI,
		"Current User Profile",
		mcp.WithResourceDescription("The signed-in user and the state of the stored session"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleUserProfile(ctx, request, sc)
	})

	dashboardResource := mcp.NewResource(
		DashboardURI,
		"Task Dashboard",
		mcp.WithResourceDescription("Completed tasks per day, growth score, today's progress and upcoming tasks"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(dashboardResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleDashboard(ctx, request, sc)
	})

	return nil
}

type profile struct {
	Username string `json:"username,omitempty"`
	Session  string `json:"session"`
}

// handleUserProfile reports who the server acts as.
func handleUserProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	state, err := sc.Sessions().State(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	out := profile{Session: state.String()}
	if sc.Auth() != nil {
		user, err := sc.Auth().CurrentUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read current user: %w", err)
		}
		if user != nil {
			out.Username = user.Username
		}
	}

	return jsonContents(request.Params.URI, out)
}

// handleDashboard computes the dashboard summary over all tasks.
func handleDashboard(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	list, err := sc.Tasks().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return jsonContents(request.Params.URI, sc.Engine().Summary(list, analytics.DefaultWindowDays))
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
