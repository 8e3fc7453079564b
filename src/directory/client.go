package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"campus-community/src/models"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxResponseBytes      = 1 << 20
)

// Client calls the directory's GraphQL endpoint over HTTP.
type Client struct {
	endpoint   string
	uploadURL  string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUploadURL overrides where images are posted. By default it is the
// endpoint with its trailing /graphql replaced by /uploads/images.
func WithUploadURL(url string) ClientOption {
	return func(c *Client) {
		if url = strings.TrimSpace(url); url != "" {
			c.uploadURL = url
		}
	}
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	endpoint = strings.TrimSpace(endpoint)
	c := &Client{
		endpoint:   endpoint,
		uploadURL:  strings.TrimSuffix(strings.TrimRight(endpoint, "/"), "/graphql") + "/uploads/images",
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Directory = (*Client)(nil)

func (c *Client) GroupByInviteToken(ctx context.Context, token, credential string) (*models.Group, error) {
	var group *models.Group
	if err := c.do(ctx, OpGroupByInviteToken, TokenVars{Token: token}, credential, &group); err != nil {
		return nil, err
	}
	return group, nil
}

func (c *Client) GroupBySlug(ctx context.Context, slug, credential string) (*models.Group, error) {
	var group *models.Group
	if err := c.do(ctx, OpGetGroup, SlugVars{Slug: slug}, credential, &group); err != nil {
		return nil, err
	}
	return group, nil
}

func (c *Client) RequestJoin(ctx context.Context, groupID, token, credential string) error {
	return c.do(ctx, OpRequestJoinGroup, RequestJoinVars{GroupID: groupID, Token: token}, credential, nil)
}

func (c *Client) AcceptJoinRequest(ctx context.Context, groupID, userID, credential string) error {
	return c.do(ctx, OpAcceptJoinRequest, MembershipVars{GroupID: groupID, UserID: userID}, credential, nil)
}

func (c *Client) RejectJoinRequest(ctx context.Context, groupID, userID, credential string) error {
	return c.do(ctx, OpRejectJoinRequest, MembershipVars{GroupID: groupID, UserID: userID}, credential, nil)
}

func (c *Client) RemoveMember(ctx context.Context, groupID, userID, credential string) error {
	return c.do(ctx, OpRemoveMember, MembershipVars{GroupID: groupID, UserID: userID}, credential, nil)
}

func (c *Client) GenerateInvite(ctx context.Context, groupID, credential string) (string, error) {
	var token string
	if err := c.do(ctx, OpGenerateInvite, GroupVars{GroupID: groupID}, credential, &token); err != nil {
		return "", err
	}
	if token == "" {
		return "", &Error{Code: CodeInternal, Message: "directory returned an empty invite token"}
	}
	return token, nil
}

func (c *Client) UpdateGroup(ctx context.Context, input UpdateGroupInput, credential string) (*models.Group, error) {
	var group *models.Group
	if err := c.do(ctx, OpUpdateGroup, input, credential, &group); err != nil {
		return nil, err
	}
	if group == nil {
		return nil, &Error{Code: CodeNotFound, Message: "group not found"}
	}
	return group, nil
}

func (c *Client) do(ctx context.Context, opName string, vars any, credential string, out any) error {
	op, ok := Operations[opName]
	if !ok {
		return fmt.Errorf("unknown directory operation %q", opName)
	}

	rawVars, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("marshal %s variables: %w", opName, err)
	}
	body, err := json.Marshal(Request{OperationName: op.Name, Query: op.Query, Variables: rawVars})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", opName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", opName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, opName, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %w", ErrUnavailable, opName, err)
	}

	var envelope Response
	if err := json.Unmarshal(payload, &envelope); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %s returned status %d", ErrUnavailable, opName, resp.StatusCode)
		}
		return fmt.Errorf("decode %s response (status %d): %w", opName, resp.StatusCode, err)
	}
	if len(envelope.Errors) > 0 {
		return responseError(envelope.Errors[0])
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s returned status %d", ErrUnavailable, opName, resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	var fields map[string]json.RawMessage
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &fields); err != nil {
			return fmt.Errorf("decode %s data: %w", opName, err)
		}
	}
	raw, ok := fields[op.Field]
	if !ok {
		return fmt.Errorf("%s response missing field %q", opName, op.Field)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s field %q: %w", opName, op.Field, err)
	}
	return nil
}

func responseError(re ResponseError) *Error {
	code := CodeInternal
	if re.Extensions != nil && re.Extensions.Code != "" {
		code = re.Extensions.Code
	}
	msg := re.Message
	if strings.TrimSpace(msg) == "" {
		msg = "request failed"
	}
	return &Error{Code: code, Message: msg}
}
