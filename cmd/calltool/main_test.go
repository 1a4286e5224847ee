package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/retell"
)

type fakeAPI struct {
	agents    []retell.Agent
	webCall   retell.CreateWebCallRequest
	phoneCall retell.CreatePhoneCallRequest
}

func (f *fakeAPI) ListAgents(context.Context) ([]retell.Agent, error) { return f.agents, nil }

func (f *fakeAPI) GetAgent(_ context.Context, id string) (*retell.Agent, error) {
	return &retell.Agent{AgentID: id}, nil
}

func (f *fakeAPI) CreateWebCall(_ context.Context, req retell.CreateWebCallRequest) (*retell.Call, error) {
	f.webCall = req
	return &retell.Call{CallID: "web_1", AccessToken: "tok"}, nil
}

func (f *fakeAPI) CreatePhoneCall(_ context.Context, req retell.CreatePhoneCallRequest) (*retell.Call, error) {
	f.phoneCall = req
	return &retell.Call{CallID: "phone_1"}, nil
}

func (f *fakeAPI) GetCall(_ context.Context, id string) (*retell.Call, error) {
	return &retell.Call{CallID: id, Transcript: "Agent: hello"}, nil
}

func TestRunWebCallDefaultsToFirstAgent(t *testing.T) {
	api := &fakeAPI{agents: []retell.Agent{{AgentID: "agent_a"}, {AgentID: "agent_b"}}}
	var out bytes.Buffer
	if err := run(context.Background(), api, []string{"web-call"}, "", &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if api.webCall.AgentID != "agent_a" {
		t.Fatalf("expected first agent, got %q", api.webCall.AgentID)
	}
	if !strings.Contains(out.String(), `"call_id": "web_1"`) {
		t.Fatalf("unexpected output %s", out.String())
	}
}

func TestRunWebCallWithoutAgents(t *testing.T) {
	if err := run(context.Background(), &fakeAPI{}, []string{"web-call"}, "", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error when no agents exist")
	}
}

func TestRunPhoneCallUsesFromNumber(t *testing.T) {
	api := &fakeAPI{}
	if err := run(context.Background(), api, []string{"phone-call", "agent_a", "+15552223333"}, "+15550001111", &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if api.phoneCall.FromNumber != "+15550001111" || api.phoneCall.ToNumber != "+15552223333" || api.phoneCall.OverrideAgentID != "agent_a" {
		t.Fatalf("unexpected request %+v", api.phoneCall)
	}
}

func TestRunArgumentErrors(t *testing.T) {
	cases := [][]string{
		nil,
		{"agent"},
		{"phone-call", "agent_a"},
		{"get-call"},
		{"bogus"},
	}
	for _, args := range cases {
		if err := run(context.Background(), &fakeAPI{}, args, "", &bytes.Buffer{}); err == nil {
			t.Fatalf("expected error for args %v", args)
		}
	}
}

func TestSignProducesVerifiableHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	payload := []byte(`{"event":"call_analyzed"}`)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	now := time.Now()
	var out bytes.Buffer
	if err := sign([]string{path}, "whsec", now, &out); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.Contains(out.String(), retell.Sign("whsec", strconv.FormatInt(now.UnixMilli(), 10), payload)) {
		t.Fatalf("unexpected output %s", out.String())
	}

	if err := sign([]string{path}, "", now, &out); err == nil {
		t.Fatal("expected error without secret")
	}
}
