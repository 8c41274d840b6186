package backend

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const libreTranslateEndpoint = "https://libretranslate.com/translate"

type libreTranslate struct {
	client   *resty.Client
	endpoint string
}

func newLibreTranslate(cfg Config) *libreTranslate {
	endpoint := cfg.LibreTranslateURL
	if endpoint == "" {
		endpoint = libreTranslateEndpoint
	}
	return &libreTranslate{
		client:   newClient(cfg),
		endpoint: endpoint,
	}
}

func (l *libreTranslate) Name() string { return ServiceLibreTranslate }

func (l *libreTranslate) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var out struct {
		TranslatedText string `json:"translatedText"`
		Err            string `json:"error"`
	}

	resp, err := l.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"q":      text,
			"source": sourceLang,
			"target": targetLang,
			"format": "text",
		}).
		SetResult(&out).
		Post(l.endpoint)
	if err != nil {
		return "", &Error{Service: ServiceLibreTranslate, Err: err}
	}
	if resp.IsError() {
		return "", &Error{Service: ServiceLibreTranslate, Err: fmt.Errorf("HTTP %d", resp.StatusCode())}
	}
	if out.TranslatedText == "" {
		if out.Err != "" {
			return "", &Error{Service: ServiceLibreTranslate, Err: fmt.Errorf("%s", out.Err)}
		}
		return "", &Error{Service: ServiceLibreTranslate, Err: fmt.Errorf("empty translation in response")}
	}
	return out.TranslatedText, nil
}
