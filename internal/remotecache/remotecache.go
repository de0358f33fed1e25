// Adapted from https://github.com/thought-machine/please
// Copyright Thought Machine, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package remotecache is the HTTP transport for storing and retrieving
// cache archives from a remote artifact store.
package remotecache

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/vercel/turborepo-cache/internal/cacheitem"
	"github.com/vercel/turborepo-cache/internal/signature"
	"github.com/vercel/turborepo-cache/internal/turbopath"
)

// Header names that make up the wire contract with the remote artifact store.
const (
	HeaderArtifactDuration     = "x-artifact-duration"
	HeaderArtifactTag          = "x-artifact-tag"
	HeaderLocation             = "Location"
	HeaderAccessControlHeaders = "Access-Control-Allow-Headers"
)

// Config describes how to reach the remote cache and authenticate to it.
type Config struct {
	APIURL   string
	Token    string
	TeamID   string
	TeamSlug string
	Logger   hclog.Logger

	// UsePreflight issues a CORS preflight OPTIONS request before each
	// fetch, honoring the Location and Access-Control-Allow-Headers
	// response headers the way a browser-driven client would.
	UsePreflight bool

	// Signature, when non-nil, signs uploads and verifies downloads.
	Signature *signature.Authenticator
}

// Client talks to a remote cache server over HTTP with retries.
type Client struct {
	http   *retryablehttp.Client
	config Config
}

// New constructs a Client from Config.
func New(config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	httpClient := retryablehttp.NewClient()
	httpClient.Logger = logger
	httpClient.RetryMax = 2
	httpClient.Backoff = retryablehttp.DefaultBackoff

	return &Client{http: httpClient, config: config}
}

func (c *Client) artifactURL(hash string) (string, error) {
	base, err := url.Parse(c.config.APIURL)
	if err != nil {
		return "", errors.Wrap(err, "invalid remote cache API URL")
	}
	base.Path = fmt.Sprintf("/v8/artifacts/%s", hash)
	if c.config.TeamID != "" {
		base.RawQuery = url.Values{"teamId": []string{c.config.TeamID}}.Encode()
	} else if c.config.TeamSlug != "" {
		base.RawQuery = url.Values{"slug": []string{c.config.TeamSlug}}.Encode()
	}
	return base.String(), nil
}

func (c *Client) authenticate(req *retryablehttp.Request) {
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
}

// preflightResult carries what a CORS preflight told us about the real request.
type preflightResult struct {
	location  string
	allowAuth bool
}

// doPreflight issues an OPTIONS request the way a browser-driven fetch would,
// and reports where the real request should land and whether it may carry
// an Authorization header.
func (c *Client) doPreflight(endpoint, method string) (preflightResult, error) {
	req, err := retryablehttp.NewRequest(http.MethodOptions, endpoint, nil)
	if err != nil {
		return preflightResult{}, errors.Wrap(err, "failed to construct preflight request")
	}
	req.Header.Set("Access-Control-Request-Method", method)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, User-Agent")

	resp, err := c.http.Do(req)
	if err != nil {
		return preflightResult{}, errors.Wrap(err, "preflight request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	location := endpoint
	if loc := resp.Header.Get(HeaderLocation); loc != "" {
		location = loc
	}

	allowHeaders := resp.Header.Get(HeaderAccessControlHeaders)
	allowAuth := strings.Contains(strings.ToLower(allowHeaders), "authorization")

	return preflightResult{location: location, allowAuth: allowAuth}, nil
}

// Put uploads the archive at path as hash, tagged with duration (in
// milliseconds) and, if signing is enabled, an HMAC tag over the body.
func (c *Client) Put(hash string, path turbopath.AbsoluteSystemPath, durationMs int) error {
	body, err := path.ReadFile()
	if err != nil {
		return errors.Wrap(err, "failed to read archive for upload")
	}

	endpoint, err := c.artifactURL(hash)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequest(http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to construct upload request")
	}
	c.authenticate(req)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(HeaderArtifactDuration, strconv.Itoa(durationMs))

	if c.config.Signature != nil {
		tag, err := c.config.Signature.GenerateTag(hash, body)
		if err != nil {
			return errors.Wrap(err, "failed to sign artifact")
		}
		req.Header.Set(HeaderArtifactTag, tag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to upload artifact")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := ioutil.ReadAll(resp.Body)
		return fmt.Errorf("remote cache rejected upload (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Exists checks, without downloading, whether hash is present remotely.
func (c *Client) Exists(hash string) (bool, error) {
	endpoint, err := c.artifactURL(hash)
	if err != nil {
		return false, err
	}

	req, err := retryablehttp.NewRequest(http.MethodHead, endpoint, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to construct exists request")
	}
	c.authenticate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "failed to check artifact existence")
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status checking artifact existence: %d", resp.StatusCode)
	}
}

// FetchResult reports the outcome of a successful Fetch.
type FetchResult struct {
	Hit        bool
	DurationMs int
	Restored   []turbopath.AnchoredSystemPath
}

// Fetch downloads hash, verifies its signature if enabled, and restores its
// contents beneath anchor.
func (c *Client) Fetch(hash string, anchor turbopath.AbsoluteSystemPath) (FetchResult, error) {
	endpoint, err := c.artifactURL(hash)
	if err != nil {
		return FetchResult{}, err
	}

	allowAuth := true
	if c.config.UsePreflight {
		preflight, err := c.doPreflight(endpoint, http.MethodGet)
		if err != nil {
			return FetchResult{}, err
		}
		endpoint = preflight.location
		allowAuth = preflight.allowAuth
	}

	req, err := retryablehttp.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return FetchResult{}, errors.Wrap(err, "failed to construct fetch request")
	}
	if allowAuth {
		c.authenticate(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return FetchResult{}, errors.Wrap(err, "failed to fetch artifact")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return FetchResult{Hit: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := ioutil.ReadAll(resp.Body)
		return FetchResult{}, fmt.Errorf("remote cache rejected fetch (%d): %s", resp.StatusCode, string(respBody))
	}

	durationMs := 0
	if raw := resp.Header.Get(HeaderArtifactDuration); raw != "" {
		durationMs, err = strconv.Atoi(raw)
		if err == nil && durationMs < 0 {
			err = fmt.Errorf("negative value %d", durationMs)
		}
		if err != nil {
			return FetchResult{}, fmt.Errorf("invalid %s header: %w", HeaderArtifactDuration, err)
		}
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, errors.Wrap(err, "failed to read artifact body")
	}

	if c.config.Signature != nil {
		expectedTag := resp.Header.Get(HeaderArtifactTag)
		if expectedTag == "" {
			return FetchResult{}, fmt.Errorf("artifact verification failed: downloaded artifact is missing required %s header", HeaderArtifactTag)
		}
		valid, err := c.config.Signature.Validate(hash, body, expectedTag)
		if err != nil {
			return FetchResult{}, errors.Wrap(err, "artifact verification failed")
		}
		if !valid {
			return FetchResult{}, fmt.Errorf("artifact verification failed: tag does not match expected tag %s", expectedTag)
		}
	}

	scratch := anchor.UntypedJoin(".tmp-" + hash + ".tar.zst")
	if err := scratch.WriteFile(body, 0644); err != nil {
		return FetchResult{}, errors.Wrap(err, "failed to stage downloaded artifact")
	}
	defer func() { _ = scratch.Remove() }()

	item, err := cacheitem.Open(scratch)
	if err != nil {
		return FetchResult{}, errors.Wrap(err, "failed to open downloaded artifact")
	}
	defer func() { _ = item.Close() }()

	restored, err := item.Restore(anchor)
	if err != nil {
		return FetchResult{}, errors.Wrap(err, "failed to restore downloaded artifact")
	}

	return FetchResult{Hit: true, DurationMs: durationMs, Restored: restored}, nil
}
