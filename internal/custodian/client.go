// Package custodian wraps the external asset-transfer capability: the
// treasury pulls deposits from funder wallets into custody and pushes
// withdrawals out to recipients through this client. A failed transfer
// must abort the ledger mutation it pairs with, so every error from
// this package wraps domain.ErrTransferFailed.
package custodian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/logging"
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

type transferPayload struct {
	Asset  string `json:"asset"`
	Wallet string `json:"wallet"`
	Amount int64  `json:"amount"`
}

// Pull moves amount of asset from the holder's wallet into custody.
func (c *Client) Pull(ctx context.Context, asset domain.Asset, from domain.Wallet, amount int64) error {
	if err := c.transfer(ctx, "/transfers/pull", asset, from, amount); err != nil {
		return fmt.Errorf("Pull: %w", err)
	}
	return nil
}

// Push moves amount of asset from custody out to the recipient wallet.
func (c *Client) Push(ctx context.Context, asset domain.Asset, to domain.Wallet, amount int64) error {
	if err := c.transfer(ctx, "/transfers/push", asset, to, amount); err != nil {
		return fmt.Errorf("Push: %w", err)
	}
	return nil
}

func (c *Client) transfer(ctx context.Context, path string, asset domain.Asset, wallet domain.Wallet, amount int64) error {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(transferPayload{
		Asset:  string(asset),
		Wallet: string(wallet),
		Amount: amount,
	})
	if err != nil {
		return fmt.Errorf("transfer: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transfer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transfer: send: %w", domain.ErrTransferFailed)
	}
	defer resp.Body.Close()

	log.Info("custodian transfer",
		"path", path,
		"asset", asset,
		"amount", amount,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("transfer: status %d: %s: %w", resp.StatusCode, string(respBody), domain.ErrTransferFailed)
	}
	return nil
}
