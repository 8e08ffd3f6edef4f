package jwtauth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/logging"
)

// Service authenticates bearer JWTs and authorizes tool calls, grounded on
// original_source's BearerAuthService.
type Service struct {
	secretResolver *SecretResolver
	toolPermissions map[string][]string
	keyID          string
	log            *logging.Logger

	secretOnce sync.Once
	secret     string
	secretSrc  string
}

func NewService(resolver *SecretResolver, toolPermissions map[string][]string, keyID string, log *logging.Logger) *Service {
	return &Service{secretResolver: resolver, toolPermissions: toolPermissions, keyID: keyID, log: log}
}

func (s *Service) secretValue(ctx context.Context) string {
	s.secretOnce.Do(func() {
		s.secret, s.secretSrc = s.secretResolver.Resolve(ctx)
		s.log.Infof("jwt service initialized (secret_source=%s, kid=%s, fingerprint=%s)",
			s.secretSrc, s.keyID, Fingerprint(s.secret, s.keyID))
	})
	return s.secret
}

// AuthenticateHeader validates the Authorization header value per spec.md
// §4.1 and returns the normalized AuthResult.
func (s *Service) AuthenticateHeader(ctx context.Context, headerValue string) (*AuthResult, error) {
	if !strings.HasPrefix(headerValue, "Bearer ") {
		return nil, apperr.New(apperr.Authentication, "Bearer token required on tool endpoints").With("code", "missing_authorization")
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, "Bearer "))
	if token == "" {
		return nil, apperr.New(apperr.Authentication, "Bearer token required on tool endpoints").With("code", "missing_authorization")
	}

	secret := s.secretValue(ctx)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.New(apperr.Authentication, "JWT token expired").With("code", "token_expired")
		}
		return nil, apperr.Wrap(apperr.Authentication, "JWT token could not be verified", err).With("code", "invalid_token")
	}
	if !parsed.Valid {
		return nil, apperr.New(apperr.Authentication, "JWT token could not be verified").With("code", "invalid_token")
	}

	payload := map[string]any(claims)
	normalized := expandClaims(payload)

	result := &AuthResult{
		Token:          token,
		Claims:         normalized,
		AWSCredentials: extractOptionalCredentials(payload),
		AWSRoleARN:     extractOptionalRole(payload),
		UserID:         stringValue(payload, "sub", "id"),
		Username:       stringValue(payload, "username"),
		RawPayload:     payload,
	}

	s.log.Infof("JWT authentication successful for user=%s buckets=%d permissions=%d",
		firstNonEmptyStr(result.Username, result.UserID), len(result.Claims.Buckets), len(result.Claims.Permissions))

	return result, nil
}

// AuthorizeTool evaluates the per-tool permission+bucket policy of spec.md §4.1.
func (s *Service) AuthorizeTool(result *AuthResult, toolName string, args map[string]any) AuthorizationDecision {
	required, ok := s.toolPermissions[toolName]
	if !ok {
		return AuthorizationDecision{Allowed: true}
	}

	var missing []string
	have := make(map[string]bool, len(result.Claims.Permissions))
	for _, p := range result.Claims.Permissions {
		have[p] = true
	}
	for _, req := range required {
		if !have[req] {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return AuthorizationDecision{
			Allowed:            false,
			Reason:             "missing required permission(s)",
			MissingPermissions: missing,
		}
	}

	bucket := bucketArg(args)
	if bucket != "" && !bucketAuthorized(bucket, result.Claims.Buckets) {
		return AuthorizationDecision{
			Allowed:        false,
			Reason:         "access denied to bucket " + bucket,
			MissingBuckets: []string{bucket},
		}
	}

	return AuthorizationDecision{Allowed: true}
}

func bucketArg(args map[string]any) string {
	if v, ok := args["bucket"].(string); ok && v != "" {
		return v
	}
	if v, ok := args["bucket_name"].(string); ok && v != "" {
		return v
	}
	return ""
}

func bucketAuthorized(bucket string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	for _, pattern := range allowed {
		if pattern == bucket {
			return true
		}
		if strings.HasSuffix(pattern, "*") && strings.HasPrefix(bucket, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}

func extractOptionalCredentials(payload map[string]any) *StaticCredentials {
	candidate, ok := payload["aws_credentials"].(map[string]any)
	if !ok {
		candidate, ok = payload["awsCredentials"].(map[string]any)
	}
	if !ok {
		return nil
	}

	creds := &StaticCredentials{
		AccessKeyID:     stringValue(candidate, "access_key_id", "accessKeyId"),
		SecretAccessKey: stringValue(candidate, "secret_access_key", "secretAccessKey"),
		SessionToken:    stringValue(candidate, "session_token", "sessionToken"),
		Region:          stringValue(candidate, "region"),
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil
	}
	return creds
}

func extractOptionalRole(payload map[string]any) string {
	role := stringValue(payload, "aws_role_arn", "awsRoleArn")
	return strings.TrimSpace(role)
}

func stringValue(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptyStr(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
