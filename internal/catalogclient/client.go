// Package catalogclient talks to the Quilt catalog's GraphQL and REST
// surface, grounded on clanker's internal/backend.Client for the
// authenticated-JSON-over-HTTP doRequest shape (spec.md §4.2/§6.2).
package catalogclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
)

const defaultTimeout = 30 * time.Second
const userAgent = "quilt-mcp-server/1.0"

// Client issues authenticated GraphQL and REST calls against one registry.
type Client struct {
	registryURL string
	graphqlURL  string
	httpClient  *http.Client
	token       string
}

// New builds a Client for registryURL, applying the X.quiltdata.com →
// X-registry.quiltdata.com substitution of spec.md §6.2 when the URL's
// host matches that shape.
func New(registryURL, bearerToken string) *Client {
	normalized := strings.TrimSuffix(registryURL, "/")
	return &Client{
		registryURL: normalized,
		graphqlURL:  deriveGraphQLHost(normalized) + "/graphql",
		httpClient:  &http.Client{Timeout: defaultTimeout},
		token:       bearerToken,
	}
}

func deriveGraphQLHost(registryURL string) string {
	scheme, host, rest := splitURL(registryURL)
	parts := strings.SplitN(host, ".", 2)
	if len(parts) == 2 && parts[1] == "quiltdata.com" && !strings.HasSuffix(parts[0], "-registry") {
		host = parts[0] + "-registry." + parts[1]
	}
	return scheme + "://" + host + rest
}

func splitURL(u string) (scheme, host, rest string) {
	idx := strings.Index(u, "://")
	if idx < 0 {
		return "https", u, ""
	}
	scheme = u[:idx]
	remainder := u[idx+3:]
	slash := strings.Index(remainder, "/")
	if slash < 0 {
		return scheme, remainder, ""
	}
	return scheme, remainder[:slash], remainder[slash:]
}

type graphqlRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// Query performs a GraphQL request and unmarshals the `data` field into out.
func (c *Client) Query(ctx context.Context, query string, variables any, out any) error {
	body, err := c.doRequest(ctx, http.MethodPost, c.graphqlURL, graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return err
	}

	var resp graphqlResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return apperr.Wrap(apperr.Catalog, "malformed GraphQL response", err)
	}
	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			messages = append(messages, e.Message)
		}
		return apperr.New(apperr.Catalog, "GraphQL request returned errors").With("gql_errors", messages)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return apperr.Wrap(apperr.Catalog, "failed to decode GraphQL data payload", err)
	}
	return nil
}

// REST performs a REST call against the registry's path, parsing the JSON
// response into out.
func (c *Client) REST(ctx context.Context, method, path string, body any, out any) error {
	url := c.registryURL + path
	respBody, err := c.doRequest(ctx, method, url, body)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.Wrap(apperr.Catalog, "failed to decode REST response", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, url string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to marshal catalog request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to build catalog request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Catalog, "catalog request failed: "+method+" "+url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.Catalog, "failed to read catalog response body", err)
	}

	if resp.StatusCode >= 400 {
		snippet := string(respBody)
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		return nil, apperr.New(apperr.Catalog, fmt.Sprintf("catalog request failed with status %d", resp.StatusCode)).
			With("status", resp.StatusCode).With("body", snippet)
	}

	return respBody, nil
}

// unionResult mirrors the __typename discriminator of spec.md §4.2's
// "X | InvalidInput | OperationError | Ok" GraphQL mutation shape.
type unionResult struct {
	Typename string          `json:"__typename"`
	Errors   json.RawMessage `json:"errors"`
	Message  string          `json:"message"`
}

// decodeUnion inspects a raw union payload's __typename and either
// unmarshals it into out (success case) or returns the corresponding
// apperr.Error (spec.md §4.2 union-result decoding).
func decodeUnion(raw json.RawMessage, out any) error {
	var disc unionResult
	if err := json.Unmarshal(raw, &disc); err != nil {
		return apperr.Wrap(apperr.Catalog, "malformed union result", err)
	}

	switch disc.Typename {
	case "InvalidInput":
		return apperr.New(apperr.Validation, "catalog rejected the request").With("errors", disc.Errors)
	case "OperationError":
		return apperr.New(apperr.Catalog, disc.Message)
	default:
		if out == nil {
			return nil
		}
		return json.Unmarshal(raw, out)
	}
}
