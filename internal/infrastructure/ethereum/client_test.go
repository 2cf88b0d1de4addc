package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/chain-portfolio/internal/config"
)

// fakeNode answers single JSON-RPC requests. reply returns the HTTP status
// and, for 200, the result or error member of the response object.
type fakeNode struct {
	mu    sync.Mutex
	calls map[string]int
	reply func(method string, call int) (int, string)
}

func newFakeNode(reply func(method string, call int) (int, string)) *fakeNode {
	return &fakeNode{calls: make(map[string]int), reply: reply}
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	call := n.calls[req.Method]
	n.mu.Unlock()

	status, member := n.reply(req.Method, call)
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,%s}`, req.ID, member)
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func newTestClient(t *testing.T, node *fakeNode, retryDelay time.Duration) *Client {
	t.Helper()

	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	ec, err := ethclient.Dial(server.URL)
	require.NoError(t, err)
	t.Cleanup(ec.Close)

	return &Client{
		client: ec,
		config: config.EthereumConfig{
			RequestTimeout: 5 * time.Second,
			MaxRetries:     3,
			RetryDelay:     retryDelay,
		},
		logger: zap.NewNop(),
	}
}

func TestClient_RevertedCallIsNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		member string
	}{
		{
			name:   "execution error code",
			member: `"error":{"code":3,"message":"execution reverted","data":"0x"}`,
		},
		{
			name:   "generic server error with revert message",
			member: `"error":{"code":-32000,"message":"execution reverted: token paused"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := newFakeNode(func(method string, call int) (int, string) {
				return http.StatusOK, tt.member
			})
			client := newTestClient(t, node, time.Second)

			start := time.Now()
			_, err := NewERC20Reader(client).BalanceOf(context.Background(),
				common.HexToAddress(usdcID), common.HexToAddress(testOwner))
			elapsed := time.Since(start)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "execution reverted")
			assert.Equal(t, 1, node.count("eth_call"), "reverted call must be sent once")
			assert.Less(t, elapsed, 500*time.Millisecond, "no retry delay expected")
		})
	}
}

func TestClient_ExecutionErrorKeepsRPCCode(t *testing.T) {
	node := newFakeNode(func(method string, call int) (int, string) {
		return http.StatusOK, `"error":{"code":3,"message":"execution reverted"}`
	})
	client := newTestClient(t, node, time.Second)

	_, err := client.CallContract(context.Background(), common.HexToAddress(usdcID), []byte{0x31, 0x3c, 0xe5, 0x67})
	require.Error(t, err)

	var rpcErr rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpcCodeExecutionError, rpcErr.ErrorCode())
}

func TestClient_TransientFailureIsRetried(t *testing.T) {
	node := newFakeNode(func(method string, call int) (int, string) {
		if call < 3 {
			return http.StatusServiceUnavailable, ""
		}
		return http.StatusOK, `"result":"0x10"`
	})
	client := newTestClient(t, node, 10*time.Millisecond)

	block, err := client.LatestBlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), block)
	assert.Equal(t, 3, node.count("eth_blockNumber"))
}

func TestClient_RetriesExhausted(t *testing.T) {
	node := newFakeNode(func(method string, call int) (int, string) {
		return http.StatusBadGateway, ""
	})
	client := newTestClient(t, node, time.Millisecond)

	_, err := client.LatestBlockNumber(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 retries")
	assert.Equal(t, 4, node.count("eth_blockNumber"))
}

func TestIsPermanent(t *testing.T) {
	assert.False(t, isPermanent(errors.New("dial tcp 127.0.0.1:8545: connection refused")))
	assert.False(t, isPermanent(context.DeadlineExceeded))
	assert.True(t, isPermanent(fmt.Errorf("call: %w", errors.New("execution reverted"))))
}
