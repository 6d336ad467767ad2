package reactivity

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/llm"

	"github.com/tidwall/gjson"
)

// HTTPFetcher queries a remote reactivity service:
// POST {base}/reactivity {"substances": [...]}.
type HTTPFetcher struct {
	client  *llm.Client
	baseURL string
	timeout time.Duration
}

func NewHTTPFetcher(client *llm.Client, baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: client, baseURL: baseURL, timeout: timeout}
}

type wireRecord struct {
	Chemical1 string   `json:"chemical_1"`
	Chemical2 string   `json:"chemical_2"`
	Status    string   `json:"status"`
	Hazards   []string `json:"hazards"`
	Reference string   `json:"reference"`
	URL       string   `json:"url"`
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ids []string) ([]chem.Record, error) {
	body, err := f.client.Do(ctx, llm.Call{
		Op:      "reactivity.fetch",
		Method:  http.MethodPost,
		URL:     f.baseURL + "/reactivity",
		Payload: map[string][]string{"substances": ids},
		Timeout: f.timeout,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords(body)
}

// decodeRecords accepts a bare array or an object wrapping it under
// results, records or cameo_results.
func decodeRecords(body []byte) ([]chem.Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, chem.E("reactivity.fetch", chem.KindUpstreamMalformed, "response is not JSON", nil)
	}

	list := gjson.ParseBytes(body)
	if !list.IsArray() {
		list = gjson.GetBytes(body, "results")
		if !list.Exists() {
			list = gjson.GetBytes(body, "records")
		}
		if !list.Exists() {
			list = gjson.GetBytes(body, "cameo_results")
		}
	}
	if !list.Exists() || list.Type == gjson.Null {
		return nil, nil
	}
	if !list.IsArray() {
		return nil, chem.E("reactivity.fetch", chem.KindUpstreamMalformed, "records field is not a list", nil)
	}

	var wire []wireRecord
	if err := json.Unmarshal([]byte(list.Raw), &wire); err != nil {
		return nil, chem.E("reactivity.fetch", chem.KindUpstreamMalformed, "decode records", err)
	}

	records := make([]chem.Record, 0, len(wire))
	for _, w := range wire {
		if w.Chemical1 == "" || w.Chemical2 == "" {
			continue
		}
		ref := w.Reference
		if ref == "" {
			ref = w.URL
		}
		records = append(records, chem.Record{
			Chemical1: w.Chemical1,
			Chemical2: w.Chemical2,
			Status:    chem.ParseCompatibility(w.Status),
			Hazards:   w.Hazards,
			Reference: ref,
		})
	}
	return records, nil
}
