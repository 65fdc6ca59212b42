package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/graph"
)

// tagsQuery lists tags with their annotation and the commit they peel to.
// Annotated tags nested one level deep are followed.
const tagsQuery = `
query($owner: String!, $name: String!, $cursor: String) {
  repository(owner: $owner, name: $name) {
    refs(refPrefix: "refs/tags/", first: 100, after: $cursor) {
      nodes {
        name
        target {
          __typename
          oid
          ... on Tag {
            message
            tagger { name email date }
            target {
              __typename
              oid
              ... on Tag {
                target { __typename oid }
              }
            }
          }
        }
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}
`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLIssue  `json:"errors"`
}

type graphQLIssue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// graphQLError is a failed GraphQL request, either at the HTTP level or
// reported in the response's errors array.
type graphQLError struct {
	Status      int
	Type        string
	Message     string
	RateLimited bool
	RetryAfter  time.Duration
}

func (e *graphQLError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("GraphQL error %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("GraphQL request failed with status %d: %s", e.Status, e.Message)
}

func (e *graphQLError) kind() error {
	switch e.Type {
	case "NOT_FOUND":
		return graph.ErrNotFound
	case "FORBIDDEN":
		return graph.ErrForbidden
	case "RATE_LIMITED":
		return graph.ErrRateLimited
	}
	if e.RateLimited {
		return graph.ErrRateLimited
	}
	return kindForStatus(e.Status)
}

type refsResponse struct {
	Repository *struct {
		Refs refConnection `json:"refs"`
	} `json:"repository"`
}

type refConnection struct {
	Nodes    []refNode `json:"nodes"`
	PageInfo pageInfo  `json:"pageInfo"`
}

type refNode struct {
	Name   string    `json:"name"`
	Target refTarget `json:"target"`
}

type refTarget struct {
	TypeName string     `json:"__typename"`
	OID      string     `json:"oid"`
	Message  string     `json:"message"`
	Tagger   *tagger    `json:"tagger"`
	Target   *refTarget `json:"target"`
}

type tagger struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// executeGraphQL sends a GraphQL query using the client's HTTP transport.
func (r *GitHubRepository) executeGraphQL(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	bodyBytes, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshaling GraphQL request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.graphQLURL(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating GraphQL request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := r.client.Client().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing GraphQL request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading GraphQL response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		retryAfter := retryAfterHeader(httpResp.Header)
		return nil, &graphQLError{
			Status:  httpResp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
			RateLimited: httpResp.StatusCode == http.StatusTooManyRequests ||
				httpResp.Header.Get("X-RateLimit-Remaining") == "0" ||
				(httpResp.StatusCode == http.StatusForbidden && retryAfter > 0),
			RetryAfter: retryAfter,
		}
	}

	var resp graphQLResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parsing GraphQL response: %w", err)
	}

	if len(resp.Errors) > 0 {
		return nil, &graphQLError{
			Status:  httpResp.StatusCode,
			Type:    resp.Errors[0].Type,
			Message: resp.Errors[0].Message,
		}
	}

	return resp.Data, nil
}

// graphQLURL derives the GraphQL endpoint from the REST client's base URL.
func (r *GitHubRepository) graphQLURL() string {
	if r.client.BaseURL == nil {
		return "https://api.github.com/graphql"
	}
	return deriveGraphQLURL(r.client.BaseURL.String())
}

// fetchTagsGraphQL lists every tag with its annotation and peeled commit.
func (r *GitHubRepository) fetchTagsGraphQL(ctx context.Context) ([]remoteTag, error) {
	var tags []remoteTag
	var cursor *string

	for {
		vars := map[string]any{
			"owner": r.owner,
			"name":  r.repo,
		}
		if cursor != nil {
			vars["cursor"] = *cursor
		}

		var data json.RawMessage
		err := r.call(ctx, "list tags", r.FullName(), func() error {
			var err error
			data, err = r.executeGraphQL(ctx, tagsQuery, vars)
			return err
		})
		if err != nil {
			return nil, err
		}

		var resp refsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("parsing tags response: %w", err)
		}
		if resp.Repository == nil {
			return nil, graph.NewOpError("list tags", r.FullName(), graph.ErrNotFound, nil)
		}

		for _, node := range resp.Repository.Refs.Nodes {
			tag, ok := tagFromRefNode(node)
			if !ok {
				r.log.Debug().Str("tag", node.Name).Msg("skipping tag that does not point to a commit")
				continue
			}
			tags = append(tags, tag)
		}

		if !resp.Repository.Refs.PageInfo.HasNextPage {
			break
		}
		cursor = &resp.Repository.Refs.PageInfo.EndCursor
	}

	return tags, nil
}

// tagFromRefNode peels a tag ref to its commit. It reports false for tags
// of trees or blobs and for nesting deeper than the query follows.
func tagFromRefNode(node refNode) (remoteTag, bool) {
	tag := remoteTag{name: node.Name, targetSha: node.Target.OID}

	t := &node.Target
	if t.TypeName == "Tag" {
		tag.message = t.Message
		if t.Tagger != nil {
			when, _ := time.Parse(time.RFC3339, t.Tagger.Date)
			tag.author = &graph.Committer{Date: when, Name: t.Tagger.Name, Email: t.Tagger.Email}
		}
	}
	for t != nil && t.TypeName == "Tag" {
		t = t.Target
	}
	if t == nil || t.TypeName != "Commit" || t.OID == "" {
		return remoteTag{}, false
	}
	tag.commitSha = t.OID
	return tag, true
}

// deriveGraphQLURL converts a GitHub REST API base URL to the corresponding
// GraphQL endpoint. For GitHub Enterprise, the REST base URL is typically
// "https://ghe.example.com/api/v3" and the GraphQL endpoint is
// "https://ghe.example.com/api/graphql" (not "/api/v3/graphql").
func deriveGraphQLURL(baseURL string) string {
	trimmed := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(trimmed, "/api/v3") {
		return strings.TrimSuffix(trimmed, "/v3") + "/graphql"
	}
	return trimmed + "/graphql"
}

// retryAfterHeader parses a Retry-After header given in seconds.
func retryAfterHeader(h http.Header) time.Duration {
	s := h.Get("Retry-After")
	if s == "" {
		return 0
	}
	secs, err := strconv.Atoi(s)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
