package jwtauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/crypto/hkdf"

	"github.com/quiltdata/quilt-mcp-server/internal/logging"
)

const devFallbackSecret = "development-enhanced-jwt-secret"
const defaultSSMParameter = "/quilt/mcp-server/jwt-secret"

// secretCache caches resolved SSM secrets per (parameter, region), matching
// bearer_auth_service.py's process-wide _SECRET_CACHE.
var secretCache sync.Map // map[[2]string]string

// SecretResolver resolves the JWT HS256 signing secret following the
// ordered fallback of spec.md §4.1.
type SecretResolver struct {
	EnvSecret        string
	SSMParameterName string
	Region           string
	InContainerRuntime bool
	log              *logging.Logger
}

func NewSecretResolver(envSecret, ssmParam, region string, inContainer bool, log *logging.Logger) *SecretResolver {
	return &SecretResolver{
		EnvSecret:          envSecret,
		SSMParameterName:   ssmParam,
		Region:             region,
		InContainerRuntime: inContainer,
		log:                log,
	}
}

// Resolve returns the secret and a human-readable source tag for logging.
func (r *SecretResolver) Resolve(ctx context.Context) (string, string) {
	if r.EnvSecret != "" {
		return r.EnvSecret, "env:MCP_ENHANCED_JWT_SECRET"
	}

	if r.SSMParameterName != "" && r.Region == "" {
		r.log.Errorf("MCP_ENHANCED_JWT_SECRET_SSM_PARAMETER is set but AWS region is missing; unable to retrieve JWT secret from SSM")
	}

	if r.SSMParameterName != "" && r.Region != "" {
		if secret, err := r.getFromSSM(ctx, r.SSMParameterName, r.Region); err == nil {
			return secret, fmt.Sprintf("ssm:%s:%s", r.SSMParameterName, r.Region)
		}
	}

	if r.SSMParameterName == "" && r.Region != "" && r.InContainerRuntime {
		if secret, err := r.getFromSSM(ctx, defaultSSMParameter, r.Region); err == nil {
			return secret, fmt.Sprintf("ssm:%s:%s", defaultSSMParameter, r.Region)
		}
	}

	r.log.Warnf("falling back to development JWT secret; configure MCP_ENHANCED_JWT_SECRET or MCP_ENHANCED_JWT_SECRET_SSM_PARAMETER to avoid signature mismatches")
	return devFallbackSecret, "fallback:development"
}

type cacheKey struct{ param, region string }

func (r *SecretResolver) getFromSSM(ctx context.Context, parameterName, region string) (string, error) {
	key := cacheKey{parameterName, region}
	if v, ok := secretCache.Load(key); ok {
		r.log.Debugf("using cached JWT secret for SSM parameter %s", parameterName)
		return v.(string), nil
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("load AWS config for SSM lookup: %w", err)
	}

	client := ssm.NewFromConfig(cfg)
	withDecryption := true
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		r.log.Errorf("error retrieving JWT secret from SSM parameter %s: %v", parameterName, err)
		return "", err
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		r.log.Errorf("SSM parameter %s did not return a value", parameterName)
		return "", fmt.Errorf("empty SSM parameter value")
	}

	value := *out.Parameter.Value
	secretCache.Store(key, value)
	return value, nil
}

// Fingerprint derives a short, non-reversible identifier for secret scoped
// to kid via HKDF-SHA256, so rotation/log lines (MCP_ENHANCED_JWT_KID) can
// confirm which secret is active without ever printing it, per spec.md
// §6.4's MCP_ENHANCED_JWT_KID "optional key id for rotation/log lines".
func Fingerprint(secret, kid string) string {
	if secret == "" {
		return ""
	}
	reader := hkdf.New(sha256.New, []byte(secret), []byte(kid), []byte("quilt-mcp-jwt-secret-fingerprint"))
	out := make([]byte, 8)
	if _, err := io.ReadFull(reader, out); err != nil {
		return ""
	}
	return hex.EncodeToString(out)
}
