// Package ebay implements the marketplace client against the eBay Trading
// API: SKU-based listing lookup (GetSellerList) and price/quantity
// revision (ReviseItem). XML over POST with call-name headers.
package ebay

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bookbridge/shelfsync/pkg/errors"
	"github.com/bookbridge/shelfsync/pkg/marketplace"
)

const (
	// DefaultEndpoint is the production Trading API endpoint.
	DefaultEndpoint = "https://api.ebay.com/ws/api.dll"

	xmlns              = "urn:ebay:apis:eBLBaseComponents"
	compatibilityLevel = "1193"
	siteID             = "0"
)

// Credentials holds the Trading API key set and auth token.
type Credentials struct {
	DevID  string
	AppID  string
	CertID string
	Token  string
}

// Client is an eBay Trading API client. It satisfies marketplace.Client.
type Client struct {
	endpoint   string
	creds      Credentials
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint (sandbox, test server).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Trading API client.
func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		creds:      creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request/response envelopes

type requesterCredentials struct {
	EBayAuthToken string `xml:"eBayAuthToken"`
}

type getSellerListRequest struct {
	XMLName     xml.Name             `xml:"GetSellerListRequest"`
	Xmlns       string               `xml:"xmlns,attr"`
	Credentials requesterCredentials `xml:"RequesterCredentials"`
	DetailLevel string               `xml:"DetailLevel"`
	SKUArray    struct {
		SKU []string `xml:"SKU"`
	} `xml:"SKUArray"`
}

type reviseItemRequest struct {
	XMLName     xml.Name             `xml:"ReviseItemRequest"`
	Xmlns       string               `xml:"xmlns,attr"`
	Credentials requesterCredentials `xml:"RequesterCredentials"`
	Item        struct {
		ItemID     string `xml:"ItemID"`
		StartPrice string `xml:"StartPrice"`
		Quantity   int    `xml:"Quantity"`
	} `xml:"Item"`
}

type apiError struct {
	ShortMessage string `xml:"ShortMessage"`
	LongMessage  string `xml:"LongMessage"`
}

type item struct {
	ItemID string `xml:"ItemID"`
	SKU    string `xml:"SKU"`
}

type apiResponse struct {
	Ack    string     `xml:"Ack"`
	Errors []apiError `xml:"Errors"`
	Items  []item     `xml:"ItemArray>Item"`
}

// FindListing resolves a SKU to an item ID via GetSellerList. A SKU with
// no listing returns found=false and no error.
func (c *Client) FindListing(ctx context.Context, sku string) (string, bool, error) {
	req := getSellerListRequest{
		Xmlns:       xmlns,
		Credentials: requesterCredentials{EBayAuthToken: c.creds.Token},
		DetailLevel: "ReturnAll",
	}
	req.SKUArray.SKU = []string{sku}

	resp, err := c.call(ctx, "GetSellerList", req)
	if err != nil {
		return "", false, err
	}
	for _, it := range resp.Items {
		if it.SKU == sku {
			return it.ItemID, true, nil
		}
	}
	return "", false, nil
}

// ReviseListing pushes new price and quantity via ReviseItem. Ack Success
// and Warning both mean the revision was applied; any warning or error
// text is returned as the detail.
func (c *Client) ReviseListing(ctx context.Context, rev marketplace.Revision) (marketplace.Status, string, error) {
	req := reviseItemRequest{
		Xmlns:       xmlns,
		Credentials: requesterCredentials{EBayAuthToken: c.creds.Token},
	}
	req.Item.ItemID = rev.ItemID
	req.Item.StartPrice = rev.Price.String()
	req.Item.Quantity = rev.Quantity

	resp, err := c.call(ctx, "ReviseItem", req)
	if err != nil {
		return marketplace.StatusFailure, "", err
	}

	detail := joinErrors(resp.Errors)
	switch resp.Ack {
	case "Success":
		return marketplace.StatusSuccess, detail, nil
	case "Warning":
		return marketplace.StatusWarning, detail, nil
	default:
		if detail == "" {
			detail = fmt.Sprintf("Ack=%s", resp.Ack)
		}
		return marketplace.StatusFailure, detail, nil
	}
}

// call POSTs one Trading API request and decodes the response envelope.
func (c *Client) call(ctx context.Context, callName string, payload any) (*apiResponse, error) {
	body, err := xml.Marshal(payload)
	if err != nil {
		return nil, &errors.APIError{Operation: callName, Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		bytes.NewReader(append([]byte(xml.Header), body...)))
	if err != nil {
		return nil, &errors.APIError{Operation: callName, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("X-EBAY-API-CALL-NAME", callName)
	req.Header.Set("X-EBAY-API-COMPATIBILITY-LEVEL", compatibilityLevel)
	req.Header.Set("X-EBAY-API-SITEID", siteID)
	req.Header.Set("X-EBAY-API-DEV-NAME", c.creds.DevID)
	req.Header.Set("X-EBAY-API-APP-NAME", c.creds.AppID)
	req.Header.Set("X-EBAY-API-CERT-NAME", c.creds.CertID)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errors.APIError{Operation: callName, Message: err.Error(), Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &errors.APIError{Operation: callName, Message: err.Error(), Err: err}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &errors.APIError{
			Operation:  callName,
			StatusCode: httpResp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	var resp apiResponse
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return nil, &errors.APIError{Operation: callName, Message: err.Error(), Err: err}
	}
	return &resp, nil
}

// joinErrors flattens API error/warning messages into one detail string.
func joinErrors(errs []apiError) string {
	var parts []string
	for _, e := range errs {
		msg := e.LongMessage
		if msg == "" {
			msg = e.ShortMessage
		}
		if msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}
