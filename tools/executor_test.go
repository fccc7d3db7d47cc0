package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/richinex/relay/mcp"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryPolicy(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	result, err := policy.Do(context.Background(), "flaky", func(context.Context) (json.RawMessage, error) {
		calls++
		if calls < 3 {
			return nil, timeoutErr{}
		}
		return json.RawMessage(`"ok"`), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || string(result) != `"ok"` {
		t.Errorf("calls=%d result=%s", calls, result)
	}
}

func TestRetryPolicyStopsOnServerError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	calls := 0
	_, err := policy.Do(context.Background(), "bad", func(context.Context) (json.RawMessage, error) {
		calls++
		return nil, &mcp.RPCError{Code: -32602, Message: "invalid params"}
	})
	var rpcErr *mcp.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	calls := 0
	_, err := policy.Do(context.Background(), "down", func(context.Context) (json.RawMessage, error) {
		calls++
		return nil, timeoutErr{}
	})
	if err == nil || calls != 2 {
		t.Fatalf("expected failure after 2 attempts, calls=%d err=%v", calls, err)
	}
	if !errors.Is(err, timeoutErr{}) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestRetryPolicyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	_, err := policy.Do(ctx, "slow", func(context.Context) (json.RawMessage, error) {
		calls++
		cancel()
		return nil, timeoutErr{}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no retry after cancel, got %d calls", calls)
	}
}

func TestRemoteRetriesFromServerConfig(t *testing.T) {
	remote := &fakeRemote{callErr: timeoutErr{}}
	exec, err := NewExecutor(
		Dispatch{Type: TypeMCP, Config: DispatchConfig{Server: &mcp.ServerConfig{URL: "http://a", Retries: 1}}},
		Deps{Remote: remoteFactory(map[string]*fakeRemote{"http://a": remote})},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := exec.Execute(context.Background(), "x", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error")
	}
	if remote.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", remote.calls)
	}
}
