// Package apiclient is a caching client for the snapshare HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrNotAuthenticated is returned, without any request being sent, by
// operations that need a signed-in account.
var ErrNotAuthenticated = errors.New("you need to be logged in to do that")

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	ListTimeout     time.Duration
	RetryMaxElapsed time.Duration
}

type Client struct {
	base  string
	http  *http.Client
	conf  Config
	cache *Cache
	log   *zap.Logger

	mu    sync.RWMutex
	token string
	me    *User
}

func New(conf Config, logger *zap.Logger) *Client {
	if conf.Timeout <= 0 {
		conf.Timeout = 30 * time.Second
	}
	if conf.ListTimeout <= 0 {
		conf.ListTimeout = 10 * time.Second
	}
	if conf.RetryMaxElapsed <= 0 {
		conf.RetryMaxElapsed = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Client{
		base:  strings.TrimRight(conf.BaseURL, "/") + "/api/v1",
		http:  &http.Client{Transport: tr, Timeout: conf.Timeout},
		conf:  conf,
		cache: NewCache(),
		log:   logger,
	}
}

func (c *Client) Cache() *Cache { return c.cache }

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// CurrentUser is the signed-in account as last loaded, or nil.
func (c *Client) CurrentUser() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.me == nil {
		return nil
	}
	return c.me.clone()
}

func (c *Client) setSession(token string, u *User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.me = u
}

func (c *Client) requireAuth() error {
	if c.Token() == "" {
		return ErrNotAuthenticated
	}
	return nil
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	auth        bool
}

func (c *Client) newHTTPRequest(ctx context.Context, r request) (*http.Request, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.base+r.path, body)
	if err != nil {
		return nil, err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// do sends r and decodes a 2xx body into out. Reads are retried with
// exponential backoff on transport errors and 5xx replies; writes are sent
// once.
func (c *Client) do(ctx context.Context, r request, out any) error {
	if r.auth {
		if err := c.requireAuth(); err != nil {
			return err
		}
	}

	var raw []byte
	operation := func() error {
		req, err := c.newHTTPRequest(ctx, r)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			_ = json.Unmarshal(raw, apiErr)
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
			if resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		return nil
	}

	var err error
	if r.method == http.MethodGet {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 100 * time.Millisecond
		b.MaxElapsedTime = c.conf.RetryMaxElapsed
		err = backoff.Retry(operation, backoff.WithContext(b, ctx))
	} else {
		err = operation()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
	}
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func jsonRequest(method, path string, payload any, auth bool) (request, error) {
	r := request{method: method, path: path, auth: auth}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return r, err
		}
		r.body = b
		r.contentType = "application/json"
	}
	return r, nil
}

// FilePart is a file to send in a multipart form.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

func multipartRequest(path string, fields map[string]string, file *FilePart) (request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return request{}, err
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
		ct := file.ContentType
		if ct == "" {
			ct = http.DetectContentType(file.Data)
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return request{}, err
		}
		if _, err := part.Write(file.Data); err != nil {
			return request{}, err
		}
	}
	if err := w.Close(); err != nil {
		return request{}, err
	}
	return request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
		auth:        true,
	}, nil
}
