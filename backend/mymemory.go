package backend

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const myMemoryEndpoint = "https://api.mymemory.translated.net/get"

type myMemory struct {
	client   *resty.Client
	endpoint string
	email    string
}

func newMyMemory(cfg Config) *myMemory {
	return &myMemory{
		client:   newClient(cfg),
		endpoint: myMemoryEndpoint,
		email:    cfg.MyMemoryEmail,
	}
}

func (m *myMemory) Name() string { return ServiceMyMemory }

func (m *myMemory) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	// MyMemory has no detection mode; assume English when unknown.
	if sourceLang == "auto" || sourceLang == "" {
		sourceLang = "en"
	}

	var out struct {
		ResponseStatus  int    `json:"responseStatus"`
		ResponseDetails string `json:"responseDetails"`
		ResponseData    struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
	}

	req := m.client.R().
		SetContext(ctx).
		SetQueryParam("q", text).
		SetQueryParam("langpair", sourceLang+"|"+targetLang).
		SetResult(&out)
	if m.email != "" {
		req.SetQueryParam("de", m.email)
	}

	resp, err := req.Get(m.endpoint)
	if err != nil {
		return "", &Error{Service: ServiceMyMemory, Err: err}
	}
	if resp.IsError() {
		return "", &Error{Service: ServiceMyMemory, Err: fmt.Errorf("HTTP %d", resp.StatusCode())}
	}
	if out.ResponseStatus != 200 {
		detail := out.ResponseDetails
		if detail == "" {
			detail = "unknown error"
		}
		return "", &Error{Service: ServiceMyMemory, Err: fmt.Errorf("status %d: %s", out.ResponseStatus, detail)}
	}
	return out.ResponseData.TranslatedText, nil
}
