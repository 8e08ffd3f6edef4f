// Package dispatch binds every other component into the tool dispatch
// sequence of spec.md §4.8: authenticate, bind request context, lookup
// tool, authorize, invoke, normalize. It is grounded on clanker's
// cmd/root.go command-registration idiom (a flat table of named
// operations, each wired up once at startup), re-targeted from cobra
// subcommands at mark3labs/mcp-go's server.MCPServer/AddTool API.
package dispatch

import (
	"context"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/awssession"
	"github.com/quiltdata/quilt-mcp-server/internal/catalogclient"
	"github.com/quiltdata/quilt-mcp-server/internal/config"
	"github.com/quiltdata/quilt-mcp-server/internal/jwtauth"
	"github.com/quiltdata/quilt-mcp-server/internal/logging"
	"github.com/quiltdata/quilt-mcp-server/internal/reqctx"
	"github.com/quiltdata/quilt-mcp-server/internal/s3ops"
	"github.com/quiltdata/quilt-mcp-server/internal/workflow"
)

// Handler is the shape every tool implementation satisfies. It receives a
// context already carrying reqctx.State and the raw argument map decoded
// from the MCP tools/call request, and returns the payload to merge into
// the success envelope.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Descriptor is one registered tool, minus the transport-specific bits
// (mcp.Tool's JSON schema) that cmd/serve.go attaches when it hands these
// to the MCP server.
type Descriptor struct {
	Name        string
	Description string
	Handler     Handler
}

// Registry is the process-wide tool table plus the shared dependencies
// every handler needs to build its per-request collaborators. It is
// immutable after New, matching spec.md §5's "tool registry... initialized
// at startup, immutable thereafter".
type Registry struct {
	cfg      *config.Config
	auth     *jwtauth.Service
	sessions *awssession.Builder
	log      *logging.Logger
	workflows *workflow.Registry

	tools map[string]*Descriptor
}

// New builds the registry and registers every tool this server exposes.
func New(cfg *config.Config, auth *jwtauth.Service, sessions *awssession.Builder, log *logging.Logger) *Registry {
	r := &Registry{
		cfg:       cfg,
		auth:      auth,
		sessions:  sessions,
		log:       log,
		workflows: workflow.NewRegistry(),
		tools:     make(map[string]*Descriptor),
	}
	r.registerBucketTools()
	r.registerPackageTools()
	r.registerSearchTools()
	r.registerPermissionTools()
	r.registerGovernanceTools()
	r.registerWorkflowTools()
	return r
}

func (r *Registry) register(d *Descriptor) {
	r.tools[d.Name] = d
}

// Tools returns every registered descriptor, for tools/list and for
// cmd/serve.go to hand to the MCP server at startup.
func (r *Registry) Tools() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	return out
}

// Dispatch runs the full sequence of spec.md §4.8 for one tools/call
// request and returns the wire envelope — it never returns a Go error,
// since every failure mode is already folded into {success:false,...}.
func (r *Registry) Dispatch(ctx context.Context, toolName, authHeader string, args map[string]any) map[string]any {
	// Step 1: authenticate.
	authResult, err := r.auth.AuthenticateHeader(ctx, authHeader)
	if err != nil {
		return apperr.ToEnvelope(err)
	}

	// Step 3 (tool lookup) happens before the AWS session build so an
	// unknown tool name never pays for a session round trip.
	desc, ok := r.tools[toolName]
	if !ok {
		return apperr.ToEnvelope(apperr.New(apperr.NotFound, "unknown tool: "+toolName).With("tool", toolName))
	}

	// Step 4: authorize via D's per-tool rules.
	decision := r.auth.AuthorizeTool(authResult, toolName, args)
	if !decision.Allowed {
		authzErr := apperr.New(apperr.Authorization, decision.Reason)
		if len(decision.MissingPermissions) > 0 {
			authzErr = authzErr.With("missing_permissions", decision.MissingPermissions)
		}
		if len(decision.MissingBuckets) > 0 {
			authzErr = authzErr.With("missing_buckets", decision.MissingBuckets)
		}
		return apperr.ToEnvelope(authzErr)
	}

	// Step 2: bind the request context (AWS session build is lazy, cached
	// per token — spec.md §3.2).
	session, err := r.sessions.ForAuthResult(ctx, authResult)
	if err != nil {
		return apperr.ToEnvelope(err)
	}
	state := &reqctx.State{Auth: authResult, Session: session, Metadata: map[string]any{}}
	boundCtx := reqctx.WithState(ctx, state)

	// Step 5: invoke.
	payload, err := desc.Handler(boundCtx, args)
	if err != nil {
		return apperr.ToEnvelope(err)
	}

	// Step 6: normalize into the success envelope.
	envelope := map[string]any{"success": true}
	for k, v := range payload {
		envelope[k] = v
	}
	return envelope
}

// catalogFor builds the catalog client for the authenticated caller's
// token, per spec.md §4.2 — one client per request, never shared across
// callers since the bearer token differs.
func (r *Registry) catalogFor(state *reqctx.State) *catalogclient.Client {
	return catalogclient.New(r.cfg.CatalogURL, state.Auth.Token)
}

func (r *Registry) s3For(state *reqctx.State) *s3ops.Client {
	return s3ops.New(state.Session.Config)
}
