// Package terminology fetches the medication name catalog from the upstream
// terminology service and normalizes it into the canonical in-memory
// dataset searched by the rest of the service.
package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openrx/medsearch-api/httpclient"
	"github.com/openrx/medsearch-api/logging"
	"github.com/openrx/medsearch-api/terminology/entities"
)

// DefaultBaseURL is the public RxNorm terminology endpoint.
const DefaultBaseURL = "https://rxnav.nlm.nih.gov/REST"

// displayNamesPath serves the full display-name list in one response.
const displayNamesPath = "/displaynames.json"

// Adapter downloads and parses the medication catalog.
type Adapter struct {
	client  *httpclient.Client
	baseURL string
	timeout time.Duration
}

// New creates an adapter talking to baseURL through client. timeout bounds
// the full-catalog fetch, which is much larger than a regular request.
func New(client *httpclient.Client, baseURL string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: timeout,
	}
}

// displayNamesResponse mirrors the upstream payload: a single list of
// display-name strings.
type displayNamesResponse struct {
	DisplayTermsList struct {
		Term []string `json:"term"`
	} `json:"displayTermsList"`
}

// FetchCatalog downloads the display-name list and builds the catalog.
// The retry budget and breaker protection come from the shared client.
func (a *Adapter) FetchCatalog(ctx context.Context) ([]entities.Medication, error) {
	start := time.Now()

	body, err := a.client.Request(ctx, httpclient.RequestConfig{
		URL:     a.baseURL + displayNamesPath,
		Headers: map[string]string{"Accept": "application/json"},
		Timeout: a.timeout,
		Retries: -1, // client default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch display names: %w", err)
	}

	var resp displayNamesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode display names: %w", err)
	}

	catalog := BuildCatalog(resp.DisplayTermsList.Term)
	if len(catalog) == 0 {
		return nil, fmt.Errorf("upstream returned no usable display names")
	}

	logging.Info("Catalog fetched",
		"terms", len(resp.DisplayTermsList.Term),
		"medications", len(catalog),
		"duration", time.Since(start).String())

	return catalog, nil
}
