package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"race-timing/core/apperr"
	"race-timing/core/store"

	"github.com/tidwall/gjson"
)

// Kind selects a provider listing.
type Kind string

const (
	KindInfo       Kind = "info"
	KindBio        Kind = "bio"
	KindScore      Kind = "score"
	KindSplit      Kind = "split"
	KindPassedTime Kind = "passedTime"
)

var paths = map[Kind]string{
	KindInfo:       "/Dif/info",
	KindBio:        "/Dif/bio",
	KindScore:      "/Dif/score",
	KindSplit:      "/Dif/splitScore",
	KindPassedTime: "/Dif/split",
}

// Previewable reports whether k may be requested through the preview endpoint.
func (k Kind) Previewable() bool {
	switch k {
	case KindInfo, KindBio, KindScore, KindSplit:
		return true
	}
	return false
}

// Path returns the listing path of k.
func (k Kind) Path() string {
	if p, ok := paths[k]; ok {
		return p
	}
	return paths[KindSplit]
}

// Config holds the client defaults.
type Config struct {
	BaseURL     string
	PartnerCode string
	Timeout     time.Duration
	// HTTPClient is optional. Tests inject the httptest server client.
	HTTPClient *http.Client
}

// Credentials identify one race at the provider.
type Credentials struct {
	RaceID      string
	Token       string
	PartnerCode string
	BaseURL     string
}

// CredentialsFor extracts the provider credentials of a campaign.
func CredentialsFor(c *store.Campaign) Credentials {
	return Credentials{
		RaceID:      strings.TrimSpace(c.RaceID),
		Token:       strings.TrimSpace(c.ProviderToken),
		PartnerCode: strings.TrimSpace(c.PartnerCode),
	}
}

// Request is one listing call. Page is ignored for info. EventID is sent as eid when set.
type Request struct {
	Kind    Kind
	Page    int
	EventID *int64
}

func (r Request) label() string {
	eid := "all"
	if r.EventID != nil {
		eid = strconv.FormatInt(*r.EventID, 10)
	}
	name := strings.ToUpper(string(r.Kind))
	if r.Kind == KindInfo {
		return name
	}
	return fmt.Sprintf("%s eid=%s page %d", name, eid, r.Page)
}

// Response is a provider reply. Parsed is nil when the body is not a JSON object or array.
type Response struct {
	Endpoint    string
	Params      map[string]string
	Status      int
	ContentType string
	Body        []byte
	Parsed      any
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Rows returns the object rows of the payload.
func (r *Response) Rows() []map[string]any {
	return ObjectRows(ExtractRows(r.Parsed))
}

// Total returns the declared row total of a paged listing.
func (r *Response) Total() (int64, bool) {
	v := gjson.GetBytes(r.Body, "total")
	if !v.Exists() {
		return 0, false
	}
	n := v.Int()
	return n, n > 0
}

// RaceTime returns the race date the info listing reports, or "".
func (r *Response) RaceTime() string {
	for _, path := range []string{"data.RaceTime", "data.raceTime"} {
		if v := gjson.GetBytes(r.Body, path); v.Exists() {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}

// Client calls the provider API.
type Client struct {
	baseURL     string
	partnerCode string
	timeout     time.Duration
	http        *http.Client
}

// NewClient creates a provider client.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		partnerCode: cfg.PartnerCode,
		timeout:     timeout,
		http:        hc,
	}
}

// Do performs req and returns the response whatever its status. Only transport
// failures and timeouts are errors.
func (c *Client) Do(ctx context.Context, creds Credentials, req Request) (*Response, error) {
	base := c.baseURL
	if creds.BaseURL != "" {
		base = strings.TrimRight(creds.BaseURL, "/")
	}
	pc := creds.PartnerCode
	if pc == "" {
		pc = c.partnerCode
	}
	endpoint := base + req.Kind.Path()

	form := url.Values{}
	form.Set("pc", pc)
	form.Set("rid", creds.RaceID)
	form.Set("token", creds.Token)
	params := map[string]string{"pc": pc, "rid": creds.RaceID, "token": MaskToken(creds.Token)}
	if req.Kind != KindInfo {
		page := req.Page
		if page < 1 {
			page = 1
		}
		form.Set("page", strconv.Itoa(page))
		params["page"] = strconv.Itoa(page)
	}
	if req.EventID != nil {
		eid := strconv.FormatInt(*req.EventID, 10)
		form.Set("eid", eid)
		params["eid"] = eid
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, transportError(err)
	}

	return &Response{
		Endpoint:    endpoint,
		Params:      params,
		Status:      res.StatusCode,
		ContentType: res.Header.Get("Content-Type"),
		Body:        body,
		Parsed:      decode(body),
	}, nil
}

// Fetch performs req and fails on a non-2xx status or a body that is not JSON.
func (c *Client) Fetch(ctx context.Context, creds Credentials, req Request) (*Response, error) {
	res, err := c.Do(ctx, creds, req)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return res, apperr.Gateway(fmt.Sprintf("RaceTiger %s returned status %d", req.label(), res.Status), nil)
	}
	if res.Parsed == nil {
		return res, apperr.Gateway(fmt.Sprintf("RaceTiger %s returned invalid JSON", req.label()), nil)
	}
	return res, nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.Gateway("RaceTiger request timeout", err)
	}
	return apperr.Gateway("RaceTiger request failed", err)
}

func decode(body []byte) any {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	switch v.(type) {
	case map[string]any, []any:
		return v
	}
	return nil
}

// MaskToken keeps the first and last four characters of long tokens.
func MaskToken(token string) string {
	switch {
	case token == "":
		return ""
	case len(token) <= 8:
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
