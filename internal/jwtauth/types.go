// Package jwtauth authenticates bearer JWTs against the catalog's claim
// scheme and authorizes tool calls against the per-tool permission table,
// grounded on the retrieved original_source's bearer_auth_service.py.
package jwtauth

import (
	"github.com/aws/aws-sdk-go-v2/aws"
)

// Claims is the decoded, decompressed JWT payload (spec.md §3.1).
type Claims struct {
	Permissions []string
	Buckets     []string
	Roles       []string
}

// AuthResult is the per-request authentication outcome (spec.md §3.1).
type AuthResult struct {
	Token          string
	Claims         Claims
	AWSCredentials *StaticCredentials
	AWSRoleARN     string
	UserID         string
	Username       string
	RawPayload     map[string]any
}

// StaticCredentials is an explicit AWS credential bundle carried in the
// token (either snake_case or camelCase on the wire).
type StaticCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
}

// AuthorizationDecision is the outcome of a per-tool authorization check.
type AuthorizationDecision struct {
	Allowed           bool
	Reason            string
	MissingPermissions []string
	MissingBuckets     []string
}

// awsCredentialsValue adapts StaticCredentials into an aws.Credentials for
// session construction.
func (c *StaticCredentials) awsCredentialsValue() aws.Credentials {
	return aws.Credentials{
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
	}
}
