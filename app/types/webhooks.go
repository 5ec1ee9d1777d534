package types

import (
	"encoding/json"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	HeaderProvider = "X-Provider"

	maxWebhookBody = 1 << 20
)

// ReadWebhookBody returns the notification as JSON. Form-encoded bodies, which
// the wallet API sends, are flattened to a JSON object of their first values.
func ReadWebhookBody(ctx echo.Context) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBody))
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(ctx.Request().Header.Get(echo.HeaderContentType))
	if mediaType != echo.MIMEApplicationForm {
		return raw, nil
	}

	return FormToJSON(string(raw))
}

func FormToJSON(body string) ([]byte, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, err
	}

	flat := make(map[string]string, len(values))
	for key, items := range values {
		if len(items) > 0 {
			flat[key] = items[0]
		}
	}
	return json.Marshal(flat)
}

func ProviderHintFromContext(ctx echo.Context) string {
	return strings.TrimSpace(ctx.Request().Header.Get(HeaderProvider))
}
