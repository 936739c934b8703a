// Package dataverse is a read-only client for the Microsoft Dataverse Web API.
package dataverse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	APIPath = "/api/data/v9.2"

	// FormattedValueSuffix is appended to a field name for its display-value annotation.
	FormattedValueSuffix = "@OData.Community.Display.V1.FormattedValue"

	defaultTimeout    = 30 * time.Second
	defaultRetryCount = 2
)

var (
	ErrMissingResource    = errors.New("dataverse resource URL is required")
	ErrMissingCredentials = errors.New("dataverse credentials are required: a token or tenant, client id and secret")
)

type Options struct {
	// ResourceURL is the environment root, e.g. https://org.crm.dynamics.com
	ResourceURL  string
	TenantID     string
	ClientID     string
	ClientSecret string
	// Token skips the client credentials flow
	Token string
	// AuthorityURL overrides https://login.microsoftonline.com
	AuthorityURL string
	Timeout      time.Duration
	RetryCount   *int
	Logger       *slog.Logger
}

type Client struct {
	httpc    *resty.Client
	resource string
}

// New builds a client. Without a static token it authenticates with Azure AD
// client credentials scoped to <resource>/.default and refreshes tokens as needed.
func New(ctx context.Context, opts Options) (*Client, error) {
	resource := strings.TrimSuffix(strings.TrimSpace(opts.ResourceURL), "/")
	resource = strings.TrimSuffix(resource, APIPath)
	if resource == "" {
		return nil, ErrMissingResource
	}

	var httpc *resty.Client
	switch {
	case opts.Token != "":
		httpc = resty.New().SetAuthToken(opts.Token)
	case opts.TenantID != "" && opts.ClientID != "" && opts.ClientSecret != "":
		authority := opts.AuthorityURL
		if authority == "" {
			authority = "https://login.microsoftonline.com"
		}
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimSuffix(authority, "/"), opts.TenantID),
			Scopes:       []string{resource + "/.default"},
		}
		httpc = resty.NewWithClient(cc.Client(ctx))
	default:
		return nil, ErrMissingCredentials
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := defaultRetryCount
	if opts.RetryCount != nil {
		retries = *opts.RetryCount
	}

	httpc.
		SetLogger(newSlogAdapter(logger.With("component", "dataverse"))).
		SetBaseURL(resource+APIPath).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json").
		SetHeader("OData-MaxVersion", "4.0").
		SetHeader("OData-Version", "4.0").
		SetHeader("Prefer", `odata.include-annotations="OData.Community.Display.V1.FormattedValue"`)

	return &Client{httpc: httpc, resource: resource}, nil
}

func (c *Client) ResourceURL() string { return c.resource }
