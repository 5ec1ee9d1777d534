package provider

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	retryWait          = 200 * time.Millisecond
	retryMaxWait       = 2 * time.Second
)

// newHTTPClient builds a resty client with a bounded timeout. retries > 0
// enables backoff retries on transport errors, 429 and 5xx.
func newHTTPClient(timeout time.Duration, retries int) *resty.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := resty.New().SetTimeout(timeout)
	if retries > 0 {
		client.
			SetRetryCount(retries).
			SetRetryWaitTime(retryWait).
			SetRetryMaxWaitTime(retryMaxWait).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
			})
	}
	return client
}

func truncateBody(body []byte) string {
	const max = 2048
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}

func decodeObject(raw []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func objectField(obj map[string]any, key string) map[string]any {
	nested, _ := obj[key].(map[string]any)
	return nested
}

func hasField(obj map[string]any, key string) bool {
	_, ok := obj[key]
	return ok
}

func decimalField(obj map[string]any, key string) *decimal.Decimal {
	return parseDecimal(stringField(obj, key))
}

func parseDecimal(raw string) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	major := d.Shift(-2)
	return &major
}

// flexString accepts both JSON strings and numbers; providers are not consistent about ids.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	*f = flexString(string(data))
	return nil
}
