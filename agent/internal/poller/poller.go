// Package poller is the gateway-side half of the dispatch queue: claim one
// command per tick over outbound HTTP, execute it, report the result. The
// gateway never accepts inbound connections, so this loop is the only link.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"flowgate/agent/internal/executor"
	"flowgate/agent/internal/logger"
	"flowgate/backend/app/dto"
	"flowgate/backend/app/models"
)

type Poller struct {
	BaseURL  string
	APIKey   string
	DeviceID string
	Interval time.Duration
	Client   *http.Client
}

func New(baseURL, apiKey, deviceID string, interval time.Duration) *Poller {
	return &Poller{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		DeviceID: deviceID,
		Interval: interval,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Run polls until ctx is cancelled. One command per tick; the backend's FIFO
// claim order means a busy queue just drains one entry per interval.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	cmd, err := p.claim(ctx)
	if err != nil {
		logger.Errorf("claim failed: %v", err)
		return
	}
	if cmd == nil {
		return
	}
	logger.Infof("claimed command %s: %s (timeout %ds)", cmd.ID, cmd.Command, cmd.TimeoutSecs)

	res := executor.Run(ctx, cmd.Command, time.Duration(cmd.TimeoutSecs)*time.Second)
	if err := p.report(ctx, cmd.ID, res); err != nil {
		logger.Errorf("report result for %s failed: %v", cmd.ID, err)
		return
	}
	logger.Infof("command %s finished with exit code %d", cmd.ID, res.ExitCode)
}

func (p *Poller) claim(ctx context.Context) (*models.RemoteCommand, error) {
	u := fmt.Sprintf("%s/api/remote/pending?device_id=%s", p.BaseURL, url.QueryEscape(p.DeviceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned %s", resp.Status)
	}
	var out dto.ClaimResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Command, nil
}

func (p *Poller) report(ctx context.Context, commandID string, res executor.Result) error {
	exitCode := res.ExitCode
	body, err := json.Marshal(dto.ReportResultRequest{
		CommandID:    commandID,
		ExitCode:     &exitCode,
		Output:       res.Output,
		ErrorMessage: res.ErrorMessage,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/remote/result", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	return nil
}
