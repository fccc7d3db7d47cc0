// Remote tool execution.
//
// Information Hiding:
// - Client construction per server config hidden behind RemoteClientFactory
// - Retry policy applied around tools/call

package tools

import (
	"context"
	"encoding/json"
)

type remoteExecutor struct {
	client RemoteClient
	retry  RetryPolicy
}

// Execute calls the remote tool and returns its result verbatim.
func (e *remoteExecutor) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	result, err := e.retry.Do(ctx, name, func(ctx context.Context) (json.RawMessage, error) {
		return e.client.CallTool(ctx, name, args)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
