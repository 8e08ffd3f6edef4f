package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quiltdata/quilt-mcp-server/internal/awssession"
	"github.com/quiltdata/quilt-mcp-server/internal/config"
	"github.com/quiltdata/quilt-mcp-server/internal/dispatch"
	"github.com/quiltdata/quilt-mcp-server/internal/jwtauth"
	"github.com/quiltdata/quilt-mcp-server/internal/logging"
)

const serverVersion = "1.0.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `serve starts the Quilt MCP server, registers every tool (search, package
read/write, permission discovery, governance, tabulator, workflow), and
speaks the MCP JSON-RPC protocol over stdio, per §4.8 and §6.1.`,
	RunE: runServe,
}

func buildRegistry() (*config.Config, *dispatch.Registry) {
	cfg := config.Load(viper.GetViper())
	log := logging.New(cfg.Debug)

	resolver := jwtauth.NewSecretResolver(cfg.JWTSecret, cfg.JWTSecretSSMParam, cfg.AWSRegion, config.RunningInContainerRuntime(), log)
	authService := jwtauth.NewService(resolver, cfg.ToolPermissions, cfg.JWTKeyID, log)
	sessions := awssession.NewBuilder(cfg.AWSRegion)

	return cfg, dispatch.New(cfg, authService, sessions, log)
}

func runServe(cmd *cobra.Command, args []string) error {
	_, registry := buildRegistry()

	mcpServer := server.NewMCPServer("quilt-mcp-server", serverVersion, server.WithToolCapabilities(true))

	for _, desc := range registry.Tools() {
		tool := mcp.NewTool(desc.Name, mcp.WithDescription(desc.Description))
		mcpServer.AddTool(tool, stdioToolHandler(registry, desc.Name))
	}

	fmt.Fprintf(os.Stderr, "quilt-mcp-server: %d tools registered, serving stdio\n", len(registry.Tools()))
	return server.ServeStdio(mcpServer)
}

// stdioToolHandler adapts one dispatch.Descriptor into an MCP tool handler.
// The stdio transport has no per-call HTTP Authorization header, so per
// spec.md §6.1 "for stdio, the transport provides a token via environment",
// the bearer token is read from MCP_AUTHORIZATION once per call.
func stdioToolHandler(registry *dispatch.Registry, toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		header := os.Getenv("MCP_AUTHORIZATION")
		if header == "" {
			if token := os.Getenv("MCP_BEARER_TOKEN"); token != "" {
				header = "Bearer " + token
			}
		}

		envelope := registry.Dispatch(ctx, toolName, header, args)
		payload, err := json.Marshal(envelope)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode tool result: %v", err)), nil
		}
		if envelope["success"] == false {
			return mcp.NewToolResultError(string(payload)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}
