package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"artillery/protocol"
)

// ErrStatus is the cause of every non-2xx response.
var ErrStatus = errors.New("unexpected status")

// StatusError carries the host's error body.
type StatusError struct {
	Code  int
	Field string
	Msg   string
}

func (e *StatusError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("host returned %d: %s (field %s)", e.Code, e.Msg, e.Field)
	}
	return fmt.Sprintf("host returned %d: %s", e.Code, e.Msg)
}

// Rejected is true when the host refused the request itself; retrying cannot help.
func (e *StatusError) Rejected() bool { return e.Code >= 400 && e.Code < 500 }

func (e *StatusError) Cause() error  { return ErrStatus }
func (e *StatusError) Unwrap() error { return ErrStatus }

// Client talks to a host over plain HTTP requests.
type Client struct {
	base  string
	http  *http.Client
	codec protocol.Codec
}

// NewClient targets addr ("host:port" or a full http URL).
func NewClient(addr string, timeout time.Duration, codec protocol.Codec) *Client {
	if codec == nil {
		codec = protocol.JSON
	}
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		http:  &http.Client{Timeout: timeout},
		codec: codec,
	}
}

func (c *Client) Status(ctx context.Context) (protocol.Status, error) {
	var out protocol.Status
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, &out)
	return out, err
}

func (c *Client) UpsertPlayer(ctx context.Context, rec protocol.PlayerRecord) error {
	p := "/v1/players/" + url.PathEscape(rec.Name) + "/" + joinSegments(rec.Segments())
	return c.do(ctx, http.MethodPost, p, nil, nil)
}

func (c *Client) Players(ctx context.Context) (protocol.Players, error) {
	var out protocol.Players
	err := c.do(ctx, http.MethodGet, "/v1/players", nil, &out)
	return out, err
}

func (c *Client) AppendProjectile(ctx context.Context, rec protocol.ProjectileRecord) (uint64, error) {
	q := url.Values{}
	if rec.Owner != "" {
		q.Set("owner", rec.Owner)
	}
	var out protocol.Appended
	if err := c.do(ctx, http.MethodPost, "/v1/projectiles/"+joinSegments(rec.Segments()), q, &out); err != nil {
		return 0, err
	}
	return out.Seq, nil
}

func (c *Client) ProjectilesAfter(ctx context.Context, after uint64) (protocol.Projectiles, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatUint(after, 10))
	var out protocol.Projectiles
	err := c.do(ctx, http.MethodGet, "/v1/projectiles", q, &out)
	return out, err
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, http.NoBody)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	req.Header.Set("Accept", c.codec.ContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, readLimit))
	if err != nil {
		return errors.Wrapf(err, "%s %s: read body", method, path)
	}

	codec := protocol.Negotiate(resp.Header.Get("Content-Type"))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Msg: http.StatusText(resp.StatusCode)}
		var e protocol.Error
		if len(bytes.TrimSpace(body)) > 0 && codec.Unmarshal(body, &e) == nil && e.Message != "" {
			se.Field, se.Msg = e.Field, e.Message
		}
		return errors.WithStack(se)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := codec.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "%s %s: decode", method, path)
	}
	return nil
}

func joinSegments(segs []string) string {
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
