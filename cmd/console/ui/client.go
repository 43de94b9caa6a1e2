package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"flowgate/backend/app/dto"
)

// Session holds the console's HTTP connection to the backend: base URL plus
// the bearer token obtained at login.
type Session struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewSession() *Session {
	return &Session{Client: &http.Client{Timeout: 15 * time.Second}}
}

func (s *Session) do(method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr dto.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *Session) Login(username, password string) error {
	var tok dto.TokenResponse
	if err := s.do(http.MethodPost, "/login", dto.LoginRequest{Username: username, Password: password}, &tok); err != nil {
		return err
	}
	s.Token = tok.AccessToken
	return nil
}

func (s *Session) Submit(deviceID, command string) (*dto.SubmitCommandResponse, error) {
	var out dto.SubmitCommandResponse
	err := s.do(http.MethodPost, "/api/remote/command", dto.SubmitCommandRequest{DeviceID: deviceID, Command: command}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) History(deviceID string, limit int) (*dto.HistoryResponse, error) {
	var out dto.HistoryResponse
	path := fmt.Sprintf("/api/remote/history?device_id=%s&limit=%d", url.QueryEscape(deviceID), limit)
	if err := s.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) Online(deviceID string) (bool, error) {
	var out dto.OnlineResponse
	path := "/api/remote/online?device_id=" + url.QueryEscape(deviceID)
	if err := s.do(http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Online, nil
}
