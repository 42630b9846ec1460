package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"kidgate/pkg/domain"
	"kidgate/pkg/platform/sentinel"
)

// HTTPDirectory talks to the external family/person service. The service owns
// adult and child records; this client only reads.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type adultPayload struct {
	ID           string   `json:"id"`
	FullName     string   `json:"fullName"`
	PhoneNumbers []string `json:"phoneNumbers"`
	NationalID   string   `json:"nationalId"`
}

func (d *HTTPDirectory) Candidates(ctx context.Context, digits string) ([]ResponsibleAdult, error) {
	u := d.baseURL + "/adults?digits=" + url.QueryEscape(digits)
	var payload []adultPayload
	if err := d.getJSON(ctx, u, &payload); err != nil {
		return nil, err
	}
	adults := make([]ResponsibleAdult, 0, len(payload))
	for _, p := range payload {
		adult, err := p.toModel()
		if err != nil {
			// Skip malformed directory rows rather than failing the lookup.
			continue
		}
		adults = append(adults, adult)
	}
	return adults, nil
}

func (d *HTTPDirectory) FindByID(ctx context.Context, id domain.AdultID) (ResponsibleAdult, error) {
	var payload adultPayload
	if err := d.getJSON(ctx, d.baseURL+"/adults/"+id.String(), &payload); err != nil {
		return ResponsibleAdult{}, err
	}
	return payload.toModel()
}

// DisplayName implements ChildDirectory against the same service.
func (d *HTTPDirectory) DisplayName(ctx context.Context, id domain.ChildID) (string, error) {
	var payload struct {
		DisplayName string `json:"displayName"`
	}
	if err := d.getJSON(ctx, d.baseURL+"/children/"+id.String(), &payload); err != nil {
		return "", err
	}
	return payload.DisplayName, nil
}

func (d *HTTPDirectory) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return sentinel.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("directory returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p adultPayload) toModel() (ResponsibleAdult, error) {
	id, err := domain.ParseAdultID(p.ID)
	if err != nil {
		return ResponsibleAdult{}, err
	}
	return ResponsibleAdult{
		ID:           id,
		FullName:     p.FullName,
		PhoneNumbers: p.PhoneNumbers,
		NationalID:   p.NationalID,
	}, nil
}
