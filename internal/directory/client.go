// Package directory is the read-only client for the external
// company/project/employee registry and the role-authority service.
// The core never mutates directory state.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type projectInfoPayload struct {
	ProjectID string `json:"project_id"`
	CompanyID string `json:"company_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
}

func (c *Client) ProjectInfo(ctx context.Context, projectID uuid.UUID) (*domain.ProjectInfo, error) {
	var payload projectInfoPayload
	err := c.getJSON(ctx, "/projects/"+projectID.String(), nil, &payload)
	if err != nil {
		return nil, fmt.Errorf("ProjectInfo: %w", err)
	}

	companyID, err := uuid.Parse(payload.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("ProjectInfo: parse company_id: %w", err)
	}
	start, err := time.Parse(time.RFC3339, payload.StartDate)
	if err != nil {
		return nil, fmt.Errorf("ProjectInfo: parse start_date: %w", err)
	}
	end, err := time.Parse(time.RFC3339, payload.EndDate)
	if err != nil {
		return nil, fmt.Errorf("ProjectInfo: parse end_date: %w", err)
	}

	return &domain.ProjectInfo{
		ProjectID: projectID,
		CompanyID: companyID,
		StartDate: start,
		EndDate:   end,
		IsActive:  payload.IsActive,
	}, nil
}

func (c *Client) CompanyOwner(ctx context.Context, companyID uuid.UUID) (domain.Wallet, error) {
	var payload struct {
		Owner string `json:"owner"`
	}
	err := c.getJSON(ctx, "/companies/"+companyID.String()+"/owner", nil, &payload)
	if err != nil {
		return "", fmt.Errorf("CompanyOwner: %w", err)
	}
	return domain.Wallet(payload.Owner), nil
}

func (c *Client) IsEmployeeActive(ctx context.Context, projectID uuid.UUID, wallet domain.Wallet) (bool, error) {
	var payload struct {
		Active bool `json:"active"`
	}
	query := url.Values{"wallet": {string(wallet)}}
	err := c.getJSON(ctx, "/projects/"+projectID.String()+"/employees/active", query, &payload)
	if err != nil {
		return false, fmt.Errorf("IsEmployeeActive: %w", err)
	}
	return payload.Active, nil
}

func (c *Client) HasGlobalRole(ctx context.Context, role domain.Role, wallet domain.Wallet) (bool, error) {
	var payload struct {
		Granted bool `json:"granted"`
	}
	query := url.Values{"role": {string(role)}, "wallet": {string(wallet)}}
	err := c.getJSON(ctx, "/roles/global", query, &payload)
	if err != nil {
		return false, fmt.Errorf("HasGlobalRole: %w", err)
	}
	return payload.Granted, nil
}

func (c *Client) IsLocalProjectAdmin(ctx context.Context, companyID uuid.UUID, wallet domain.Wallet) (bool, error) {
	var payload struct {
		Granted bool `json:"granted"`
	}
	query := url.Values{"wallet": {string(wallet)}}
	err := c.getJSON(ctx, "/companies/"+companyID.String()+"/local-admins", query, &payload)
	if err != nil {
		return false, fmt.Errorf("IsLocalProjectAdmin: %w", err)
	}
	return payload.Granted, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("getJSON: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("getJSON: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("getJSON: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("getJSON: decode: %w", err)
	}
	return nil
}
