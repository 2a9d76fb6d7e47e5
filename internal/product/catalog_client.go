package product

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"paystore/internal/constants"
	"paystore/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/golang/glog"
)

// catalogResponse is the envelope returned by the catalog service
type catalogResponse struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Data    []models.Product `json:"data"`
}

// CatalogClient queries products from an HTTP catalog service.
type CatalogClient struct {
	baseURL    string
	HttpClient *resty.Client
}

var _ QueryService = (*CatalogClient)(nil)

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	c := resty.New()

	return &CatalogClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		HttpClient: c.SetTimeout(timeout),
	}
}

func (c *CatalogClient) Query(ctx context.Context, productIDs []string) ([]models.Product, error) {
	ids := make([]string, len(productIDs))
	for i, id := range productIDs {
		ids[i] = url.QueryEscape(id)
	}
	endpoint := fmt.Sprintf(constants.CatalogProductsURLTempl, c.baseURL, strings.Join(ids, ","))

	resp, err := c.HttpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call catalog: %w", err)
	}

	glog.V(2).Infof("catalog %s -> %d in %v", endpoint, resp.StatusCode(), resp.Time())

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("catalog returned non-2xx status: %d, body: %s", resp.StatusCode(), string(resp.Body()))
	}

	var body catalogResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}
	if body.Code != 0 {
		return nil, fmt.Errorf("catalog error code=%d message=%s", body.Code, body.Message)
	}

	return body.Data, nil
}
