package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

// google talks to the keyless gtx endpoint of Google Translate.
type google struct {
	client   *resty.Client
	endpoint string
}

func newGoogle(cfg Config) *google {
	return &google{
		client:   newClient(cfg),
		endpoint: googleEndpoint,
	}
}

func (g *google) Name() string { return ServiceGoogle }

func (g *google) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "gtx",
			"sl":     sourceLang,
			"tl":     targetLang,
			"dt":     "t",
			"q":      text,
		}).
		Get(g.endpoint)
	if err != nil {
		return "", &Error{Service: ServiceGoogle, Err: err}
	}
	if resp.IsError() {
		return "", &Error{Service: ServiceGoogle, Err: fmt.Errorf("HTTP %d", resp.StatusCode())}
	}

	translated, err := parseGoogleResponse(resp.Body())
	if err != nil {
		return "", &Error{Service: ServiceGoogle, Err: err}
	}
	return translated, nil
}

// parseGoogleResponse joins the translated segments of the gtx
// response. The payload is a nested array; element [0] holds sentence
// arrays whose first element is the translated segment.
func parseGoogleResponse(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty response")
	}

	var sentences [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &sentences); err != nil {
		return "", fmt.Errorf("decoding sentences: %w", err)
	}

	var b strings.Builder
	for _, sentence := range sentences {
		if len(sentence) == 0 {
			continue
		}
		var segment string
		if err := json.Unmarshal(sentence[0], &segment); err != nil {
			continue
		}
		b.WriteString(segment)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no translated segments in response")
	}
	return b.String(), nil
}
