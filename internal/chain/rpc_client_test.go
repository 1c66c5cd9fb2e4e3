package chain

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_SubmitTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "sendTransaction" {
			t.Errorf("expected method sendTransaction, got %s", req.Method)
		}

		encoded, ok := req.Params[0].(string)
		if !ok {
			t.Fatalf("expected base64 string param, got %T", req.Params[0])
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			t.Fatalf("decode transaction param: %v", err)
		}
		if string(raw) != "signed-bytes" {
			t.Errorf("unexpected transaction payload: %s", raw)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "sig-abc",
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	sig, err := client.SubmitTransaction(ctx, []byte("signed-bytes"))
	if err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}

	if sig != "sig-abc" {
		t.Errorf("expected signature sig-abc, got %s", sig)
	}
}

func TestHTTPClient_EstimateFee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "getFees" {
			t.Errorf("expected method getFees, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"feeCalculator": map[string]interface{}{
						"lamportsPerSignature": 5000,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	fee, err := client.EstimateFee(context.Background())
	if err != nil {
		t.Fatalf("EstimateFee: %v", err)
	}
	if fee != 5000 {
		t.Errorf("expected fee 5000, got %d", fee)
	}
}

func TestHTTPClient_SubmitTransaction_NoTransportRetry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	_, err := client.SubmitTransaction(ctx, []byte("tx"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T", err)
	}

	if attempts.Load() != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", attempts.Load())
	}
}

func TestHTTPClient_GetSignatureStatus(t *testing.T) {
	tests := []struct {
		name      string
		value     interface{}
		wantState ConfirmationState
		wantSlot  int64
	}{
		{
			name:      "confirmed",
			value:     map[string]interface{}{"slot": int64(500), "err": nil, "confirmationStatus": "confirmed"},
			wantState: StateConfirmed,
			wantSlot:  500,
		},
		{
			name:      "finalized",
			value:     map[string]interface{}{"slot": int64(501), "err": nil, "confirmationStatus": "finalized"},
			wantState: StateConfirmed,
			wantSlot:  501,
		},
		{
			name:      "processed is still pending",
			value:     map[string]interface{}{"slot": int64(502), "err": nil, "confirmationStatus": "processed"},
			wantState: StatePending,
			wantSlot:  502,
		},
		{
			name:      "rejected",
			value:     map[string]interface{}{"slot": int64(503), "err": map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}, "confirmationStatus": "confirmed"},
			wantState: StateRejected,
			wantSlot:  503,
		},
		{
			name:      "unknown",
			value:     nil,
			wantState: StateUnknown,
			wantSlot:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req rpcRequest
				json.NewDecoder(r.Body).Decode(&req)

				if req.Method != "getSignatureStatuses" {
					t.Errorf("expected method getSignatureStatuses, got %s", req.Method)
				}

				resp := map[string]interface{}{
					"jsonrpc": "2.0",
					"id":      req.ID,
					"result": map[string]interface{}{
						"value": []interface{}{tt.value},
					},
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(resp)
			}))
			defer server.Close()

			client := NewHTTPClient(server.URL)

			status, err := client.GetSignatureStatus(context.Background(), "sig")
			if err != nil {
				t.Fatalf("GetSignatureStatus: %v", err)
			}

			if status.State != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, status.State)
			}
			if status.Slot != tt.wantSlot {
				t.Errorf("expected slot %d, got %d", tt.wantSlot, status.Slot)
			}
			if tt.wantState == StateRejected && status.Err == "" {
				t.Error("expected error detail for rejected status")
			}
		})
	}
}

func TestHTTPClient_GetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getBalance" {
			t.Errorf("expected method getBalance, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": uint64(2_000_000_000),
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	balance, err := client.GetBalance(context.Background(), "wallet")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}

	if balance != 2_000_000_000 {
		t.Errorf("expected balance 2000000000, got %d", balance)
	}
}

func TestHTTPClient_GetTokenBalance(t *testing.T) {
	account1 := make([]byte, 165)
	binary.LittleEndian.PutUint64(account1[64:72], 750)
	account2 := make([]byte, 165)
	binary.LittleEndian.PutUint64(account2[64:72], 250)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getTokenAccountsByOwner" {
			t.Errorf("expected method getTokenAccountsByOwner, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": []map[string]interface{}{
					{
						"pubkey": "tokacc1",
						"account": map[string]interface{}{
							"data": []string{base64.StdEncoding.EncodeToString(account1), "base64"},
						},
					},
					{
						"pubkey": "tokacc2",
						"account": map[string]interface{}{
							"data": []string{base64.StdEncoding.EncodeToString(account2), "base64"},
						},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	total, err := client.GetTokenBalance(context.Background(), "owner", "mint")
	if err != nil {
		t.Fatalf("GetTokenBalance: %v", err)
	}

	if total != 1000 {
		t.Errorf("expected total 1000, got %d", total)
	}
}

func TestHTTPClient_GetCurveState(t *testing.T) {
	data := make([]byte, curveAccountSize)
	binary.LittleEndian.PutUint64(data[8:16], 30_000_000)
	binary.LittleEndian.PutUint64(data[16:24], 1_000_000_000)
	binary.LittleEndian.PutUint64(data[24:32], 25_000_000)
	binary.LittleEndian.PutUint64(data[32:40], 900_000_000)
	binary.LittleEndian.PutUint64(data[40:48], 1_000_000_000)
	data[48] = 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getAccountInfo" {
			t.Errorf("expected method getAccountInfo, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"lamports": uint64(1_000_000),
					"owner":    "prog",
					"data":     []string{base64.StdEncoding.EncodeToString(data), "base64"},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	state, err := client.GetCurveState(context.Background(), "curveaddr")
	if err != nil {
		t.Fatalf("GetCurveState: %v", err)
	}

	if state == nil {
		t.Fatal("expected curve state, got nil")
	}
	if state.VirtualBase != 30_000_000 {
		t.Errorf("expected virtual base 30000000, got %d", state.VirtualBase)
	}
	if state.VirtualQuote != 1_000_000_000 {
		t.Errorf("expected virtual quote 1000000000, got %d", state.VirtualQuote)
	}
	if state.Complete {
		t.Error("expected incomplete curve")
	}
}

func TestHTTPClient_GetCurveState_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": nil,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	state, err := client.GetCurveState(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetCurveState: %v", err)
	}

	if state != nil {
		t.Errorf("expected nil for missing account, got %+v", state)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	slot, err := client.GetSlot(ctx)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}

	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError_NotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T", err)
	}

	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}

	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt for RPC error, got %d", attempts.Load())
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&NetworkError{Err: errors.New("connection reset")}) {
		t.Error("expected network error to be retryable")
	}
	if IsRetryable(&RPCError{Code: -32002, Message: "Transaction simulation failed"}) {
		t.Error("expected rpc error to be terminal")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Error("expected plain error to be terminal")
	}
}
