//go:build e2e

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func TestRemoteAPI_DuelRoundTrip(t *testing.T) {
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("DUEL_E2E_BASE_URL")), "/")
	if baseURL == "" {
		t.Skip("DUEL_E2E_BASE_URL is required for e2e test")
	}
	client := &http.Client{Timeout: 20 * time.Second}

	status, body := mustJSON(t, client, http.MethodGet, baseURL+"/healthz", "", nil)
	if status != http.StatusOK {
		t.Fatalf("healthz status=%d body=%v", status, body)
	}

	status, created := mustJSON(t, client, http.MethodPost, baseURL+"/api/rooms", "", nil)
	if status != http.StatusCreated {
		t.Fatalf("create room status=%d body=%v", status, created)
	}
	code, _ := created["code"].(string)
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	_, p1 := mustJSON(t, client, http.MethodPost, baseURL+"/api/rooms/"+code+"/join", "", nil)
	_, p2 := mustJSON(t, client, http.MethodPost, baseURL+"/api/rooms/"+code+"/join", "", nil)
	t1, _ := p1["token"].(string)
	t2, _ := p2["token"].(string)
	if t1 == "" || t2 == "" {
		t.Fatalf("expected tokens, got %v / %v", p1, p2)
	}

	status, body = mustJSON(t, client, http.MethodPost, baseURL+"/api/rooms/"+code+"/action", "", map[string]any{"action": "attack"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d body=%v", status, body)
	}

	mustJSON(t, client, http.MethodPost, baseURL+"/api/rooms/"+code+"/action", t1, map[string]any{"action": "charge", "turn": 1})
	status, body = mustJSON(t, client, http.MethodPost, baseURL+"/api/rooms/"+code+"/action", t2, map[string]any{"action": "attack", "turn": 1})
	if status != http.StatusOK || body["resolved"] != true {
		t.Fatalf("expected resolution, got %d body=%v", status, body)
	}

	status, view := mustJSON(t, client, http.MethodGet, baseURL+"/api/rooms/"+code+"/state", t1, nil)
	if status != http.StatusOK {
		t.Fatalf("state status=%d body=%v", status, view)
	}
	you := asMap(view["you"])
	if view["turn"] != float64(2) || you["hp"] != float64(34) || you["tokens"] != float64(1) {
		t.Fatalf("unexpected state after turn 1: %v", view)
	}

	status, kpi := mustJSON(t, client, http.MethodGet, baseURL+"/ops/kpi", "", nil)
	if status != http.StatusOK {
		t.Fatalf("kpi status=%d body=%v", status, kpi)
	}
}

func mustJSON(t *testing.T, client *http.Client, method, url, token string, body any) (int, map[string]any) {
	t.Helper()
	status, raw, err := doRequest(client, method, url, token, body)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	out := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, url, raw, err)
		}
	}
	return status, out
}

func doRequest(client *http.Client, method, url, token string, body any) (int, []byte, error) {
	var payloadBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		payloadBytes = b
	}

	var lastStatus int
	var lastBody []byte
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		var payload io.Reader
		if len(payloadBytes) > 0 {
			payload = bytes.NewReader(payloadBytes)
		}
		req, err := http.NewRequest(method, url, payload)
		if err != nil {
			return 0, nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("X-Participant-Token", token)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		lastStatus, lastBody, lastErr = resp.StatusCode, respBody, nil
		if resp.StatusCode >= 500 {
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		return resp.StatusCode, respBody, nil
	}
	if lastErr != nil {
		return 0, nil, lastErr
	}
	return lastStatus, lastBody, nil
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
