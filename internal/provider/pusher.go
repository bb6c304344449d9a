package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// PusherProvider delivers events through a Pusher-compatible REST endpoint.
// Every request is signed: the query string carries the app key, a
// timestamp, an MD5 of the body, and an HMAC-SHA256 signature over
// method, path and sorted query parameters.
//
// A process-wide outbound limiter caps the request rate to the provider.
// This is transport protection only; per-key admission control happens
// upstream in the dispatcher.
type PusherProvider struct {
	host   string
	appID  string
	key    string
	secret string

	httpClient *http.Client
	outbound   *rate.Limiter
}

func NewPusherProvider(host, appID, key, secret string, timeout time.Duration, outboundPerSec int) *PusherProvider {
	return &PusherProvider{
		host:   host,
		appID:  appID,
		key:    key,
		secret: secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		outbound: rate.NewLimiter(rate.Limit(outboundPerSec), outboundPerSec),
	}
}

// triggerRequest is the JSON body posted to the events endpoint.
// Data is a string per the Pusher wire format: JSON serialized once by the
// template, carried opaquely here.
type triggerRequest struct {
	Name    string `json:"name"`
	Channel string `json:"channel"`
	Data    string `json:"data"`
}

// Trigger posts the event and expects a 200 response.
// Returns a non-nil error only if ctx is cancelled while throttled, the
// request fails, or the provider responds with a non-200 status.
func (p *PusherProvider) Trigger(ctx context.Context, channel, event string, data json.RawMessage) error {
	if err := p.outbound.Wait(ctx); err != nil {
		return fmt.Errorf("outbound throttle: %w", err)
	}

	body, err := json.Marshal(triggerRequest{
		Name:    event,
		Channel: channel,
		Data:    string(data),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	path := "/apps/" + p.appID + "/events"
	query := p.signedQuery(http.MethodPost, path, body, time.Now())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path+"?"+query, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected provider status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

// signedQuery builds the authenticated query string. The signature covers
// "METHOD\nPATH\nsorted-query" with the signature parameter itself excluded,
// which is why it is appended only after signing.
func (p *PusherProvider) signedQuery(method, path string, body []byte, now time.Time) string {
	bodyMD5 := md5.Sum(body)

	params := url.Values{}
	params.Set("auth_key", p.key)
	params.Set("auth_timestamp", strconv.FormatInt(now.Unix(), 10))
	params.Set("auth_version", "1.0")
	params.Set("body_md5", hex.EncodeToString(bodyMD5[:]))

	// url.Values.Encode sorts keys, which is exactly the canonical form
	// the provider verifies against.
	toSign := method + "\n" + path + "\n" + params.Encode()

	mac := hmac.New(sha256.New, []byte(p.secret))
	mac.Write([]byte(toSign))
	params.Set("auth_signature", hex.EncodeToString(mac.Sum(nil)))

	return params.Encode()
}

// compile-time check that PusherProvider implements Provider
var _ Provider = (*PusherProvider)(nil)
