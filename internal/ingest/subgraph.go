package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/curatewatch/engine/internal/store"
)

var (
	// ErrSubgraph wraps errors reported inside a GraphQL response.
	ErrSubgraph = errors.New("subgraph error")

	// ErrItemNotFound is returned when the subgraph has no such item.
	ErrItemNotFound = errors.New("item not found")
)

// DefaultPageSize is the number of items requested per page.
const DefaultPageSize = 100

const itemFields = `
    itemID
    status
    disputed
    data
    requests(orderBy: submissionTime, orderDirection: desc) {
      disputed
      resolved
      submissionTime
      disputeID
      requester
      challenger
      rounds(orderBy: creationTime, orderDirection: desc) {
        hasPaidRequester
        hasPaidChallenger
        amountPaidRequester
        amountPaidChallenger
        ruling
        appealPeriodStart
        appealPeriodEnd
      }
    }`

const itemsQuery = `query Items($registry: String!, $first: Int!, $skip: Int!) {
  items(where: {registry: $registry}, first: $first, skip: $skip, orderBy: latestRequestSubmissionTime, orderDirection: desc) {` + itemFields + `
  }
}`

const itemQuery = `query Item($id: ID!) {
  item(id: $id) {` + itemFields + `
  }
}`

// SubgraphClient queries a Curate subgraph over GraphQL.
type SubgraphClient struct {
	url    string
	client *http.Client
}

// NewSubgraphClient creates a client for the subgraph at url.
func NewSubgraphClient(url string) *SubgraphClient {
	return &SubgraphClient{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// FetchItems returns one page of the registry's items, latest first. Items
// that fail to convert are logged and skipped.
func (c *SubgraphClient) FetchItems(ctx context.Context, registry common.Address, first, skip int) ([]store.Item, error) {
	items, _, err := c.fetchPage(ctx, registry, first, skip)
	return items, err
}

// fetchPage returns the converted items of a page and the number of items the
// subgraph returned, skipped ones included.
func (c *SubgraphClient) fetchPage(ctx context.Context, registry common.Address, first, skip int) ([]store.Item, int, error) {
	if first <= 0 {
		first = DefaultPageSize
	}

	var data struct {
		Items []rawItem `json:"items"`
	}
	vars := map[string]interface{}{
		"registry": registryKey(registry),
		"first":    first,
		"skip":     skip,
	}
	if err := c.query(ctx, itemsQuery, vars, &data); err != nil {
		return nil, 0, err
	}

	items := make([]store.Item, 0, len(data.Items))
	for _, raw := range data.Items {
		item, err := convertItem(raw)
		if err != nil {
			slog.Warn("item_parse_failed", "item", raw.ItemID, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, len(data.Items), nil
}

// FetchAllItems pages through the registry until a short page is returned.
func (c *SubgraphClient) FetchAllItems(ctx context.Context, registry common.Address, pageSize int) ([]store.Item, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var all []store.Item
	for skip := 0; ; skip += pageSize {
		page, n, err := c.fetchPage(ctx, registry, pageSize, skip)
		if err != nil {
			return nil, fmt.Errorf("page at %d: %w", skip, err)
		}
		all = append(all, page...)
		if n < pageSize {
			return all, nil
		}
	}
}

// FetchItem returns a single item by its item ID.
func (c *SubgraphClient) FetchItem(ctx context.Context, registry common.Address, itemID string) (store.Item, error) {
	var data struct {
		Item *rawItem `json:"item"`
	}
	vars := map[string]interface{}{
		"id": strings.ToLower(itemID) + "@" + registryKey(registry),
	}
	if err := c.query(ctx, itemQuery, vars, &data); err != nil {
		return store.Item{}, err
	}
	if data.Item == nil {
		return store.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return convertItem(*data.Item)
}

// query posts a GraphQL request and decodes its data into out.
func (c *SubgraphClient) query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var gr graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, len(gr.Errors))
		for i, e := range gr.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("%w: %s", ErrSubgraph, strings.Join(msgs, "; "))
	}
	if len(gr.Data) == 0 {
		return fmt.Errorf("%w: empty data", ErrSubgraph)
	}

	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("decode data failed: %w", err)
	}
	return nil
}

// registryKey is the lower-case hex form the subgraph indexes registries by.
func registryKey(registry common.Address) string {
	return strings.ToLower(registry.Hex())
}
