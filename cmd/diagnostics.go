package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"

	"github.com/quiltdata/quilt-mcp-server/internal/permissions"
	"github.com/quiltdata/quilt-mcp-server/internal/s3ops"
)

// toolsCmd, authCmd, and permissionsCmd are local diagnostics that exercise
// the same packages serve wires into the MCP server, without requiring a
// running MCP client — useful for verifying a deployment's JWT secret and
// AWS identity before pointing a real client at it.

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools this server would register",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every registered tool name and description",
	RunE:  runToolsList,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "JWT authentication diagnostics",
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Decode and validate a bearer token against the configured JWT secret",
	RunE:  runAuthWhoami,
}

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Bucket permission discovery diagnostics",
}

var permissionsDiscoverCmd = &cobra.Command{
	Use:   "discover [buckets...]",
	Short: "Probe the given buckets using the process's default AWS credentials",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPermissionsDiscover,
}

var authToken string

func init() {
	toolsCmd.AddCommand(toolsListCmd)
	authWhoamiCmd.Flags().StringVar(&authToken, "token", "", "bearer token to validate (without the 'Bearer ' prefix)")
	authCmd.AddCommand(authWhoamiCmd)
	permissionsCmd.AddCommand(permissionsDiscoverCmd)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	_, registry := buildRegistry()
	tools := registry.Tools()
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	for _, t := range tools {
		fmt.Printf("%-32s %s\n", t.Name, t.Description)
	}
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	if authToken == "" {
		return fmt.Errorf("--token is required")
	}
	_, registry := buildRegistry()
	envelope := registry.Dispatch(context.Background(), "", "Bearer "+authToken, map[string]any{})
	// An unknown tool name still runs authentication first, so a
	// not_found failure here (rather than authentication_error) means the
	// token itself is valid.
	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runPermissionsDiscover(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load default AWS config: %w", err)
	}

	identityARN, err := permissions.Identity(ctx, sts.NewFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("STS GetCallerIdentity failed: %w", err)
	}

	discoverer := permissions.NewDiscoverer(s3ops.New(cfg), false)
	infos := discoverer.Discover(ctx, identityARN, args)

	fmt.Printf("identity: %s\n", identityARN)
	for _, bucket := range args {
		info := infos[bucket]
		fmt.Printf("  %-40s level=%-12s list=%-5t read=%-5t write=%-5t %s\n",
			bucket, info.Level, info.CanList, info.CanRead, info.CanWrite, info.Error)
	}
	return nil
}
