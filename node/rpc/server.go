package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nativeswap/core/tx"
	"nativeswap/core/types"
)

// RPCRequest represents a JSON-RPC request.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

// RPCResponse represents a JSON-RPC response.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error codes
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
	ErrCodeExecution      = -32000
)

// Server implements the JSON-RPC server.
type Server struct {
	backend Backend
	log     *zap.Logger
	server  *http.Server
}

// NewServer creates a new RPC server.
func NewServer(backend Backend, log *zap.Logger) *Server {
	return &Server{
		backend: backend,
		log:     log,
	}
}

// Start starts the RPC server.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRPC)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.HandlerFor(s.backend.MetricsRegistry(), promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	s.log.Info("starting RPC server", zap.String("addr", addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("RPC server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the RPC server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleRPC handles incoming RPC requests.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, nil, ErrCodeParseError, "Failed to read request body")
		return
	}

	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, nil, ErrCodeParseError, "Invalid JSON")
		return
	}

	if req.JSONRPC != "2.0" {
		s.writeError(w, req.ID, ErrCodeInvalidRequest, "Invalid JSON-RPC version")
		return
	}

	result, rpcErr := s.handleMethod(req.Method, req.Params)
	if rpcErr != nil {
		s.writeResponse(w, &RPCResponse{JSONRPC: "2.0", Error: rpcErr, ID: req.ID})
		return
	}
	s.writeResponse(w, &RPCResponse{JSONRPC: "2.0", Result: result, ID: req.ID})
}

// handleMethod routes the method to the appropriate handler.
func (s *Server) handleMethod(method string, params json.RawMessage) (interface{}, *RPCError) {
	switch method {
	// Query methods
	case "amm_getBalance":
		return s.getBalance(params)
	case "amm_getShareBalance":
		return s.getShareBalance(params)
	case "amm_pairOf":
		return s.pairOf(params)
	case "amm_getPair":
		return s.getPair(params)
	case "amm_quote":
		return s.quote(params)
	case "amm_priceRatio":
		return s.priceRatio(params)
	case "amm_stateRoot":
		return s.stateRoot()

	// Operation methods
	case "amm_transfer":
		return s.transfer(params)
	case "amm_approve":
		return s.approve(params)
	case "amm_createPair":
		return s.createPair(params)
	case "amm_deposit":
		return s.deposit(params)
	case "amm_withdraw":
		return s.withdraw(params)
	case "amm_swapAssetForNative":
		return s.swapAssetForNative(params)
	case "amm_swapNativeForAsset":
		return s.swapNativeForAsset(params)
	case "amm_swapAssetForAsset":
		return s.swapAssetForAsset(params)

	default:
		return nil, &RPCError{Code: ErrCodeMethodNotFound, Message: "Method not found"}
	}
}

func invalidParams(msg string) *RPCError {
	return &RPCError{Code: ErrCodeInvalidParams, Message: msg}
}

func executionError(err error) *RPCError {
	return &RPCError{Code: ErrCodeExecution, Message: err.Error()}
}

func decodeParams(params json.RawMessage, v interface{}) *RPCError {
	if len(params) == 0 {
		return invalidParams("missing params")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return invalidParams("invalid params: " + err.Error())
	}
	return nil
}

func parseAmount(s string) (*big.Int, *RPCError) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, invalidParams("bad amount " + s)
	}
	return n, nil
}

// parseOptAmount treats an empty string as "absent" (nil amount).
func parseOptAmount(s string) (*big.Int, *RPCError) {
	if s == "" {
		return nil, nil
	}
	return parseAmount(s)
}

func parseAddress(s string) (types.Address, *RPCError) {
	addr, err := types.HexToAddress(s)
	if err != nil {
		return types.Address{}, invalidParams(err.Error())
	}
	return addr, nil
}

func parseAsset(s string) (types.AssetID, *RPCError) {
	asset, err := types.HexToAssetID(s)
	if err != nil {
		return types.AssetID{}, invalidParams(err.Error())
	}
	return asset, nil
}

// Query methods

func (s *Server) getBalance(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Address string `json:"address"`
		Asset   string `json:"asset,omitempty"` // empty = native
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress(args.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if args.Asset == "" {
		return s.backend.NativeBalance(addr).String(), nil
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	bal, err := s.backend.TokenBalance(asset, addr)
	if err != nil {
		return nil, executionError(err)
	}
	return bal.String(), nil
}

func (s *Server) getShareBalance(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Asset string `json:"asset"`
		Owner string `json:"owner"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	owner, rpcErr := parseAddress(args.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	shares, err := s.backend.ShareBalance(asset, owner)
	if err != nil {
		return nil, executionError(err)
	}
	return shares.String(), nil
}

func (s *Server) pairOf(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Asset string `json:"asset"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	addr := s.backend.PairOf(asset)
	if addr == types.ZeroAddress {
		return nil, nil
	}
	return addr.Hex(), nil
}

func (s *Server) getPair(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Asset string `json:"asset"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	info := s.backend.GetPair(asset)
	if info == nil {
		return nil, executionError(types.ErrNoSuchPair)
	}
	return info, nil
}

func (s *Server) quote(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Asset         string `json:"asset"`
		AssetToNative bool   `json:"assetToNative"`
		AmountIn      string `json:"amountIn"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amountIn, rpcErr := parseAmount(args.AmountIn)
	if rpcErr != nil {
		return nil, rpcErr
	}
	out, err := s.backend.Quote(asset, args.AssetToNative, amountIn)
	if err != nil {
		return nil, executionError(err)
	}
	return out.String(), nil
}

func (s *Server) priceRatio(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Asset string `json:"asset"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	nativePerAsset, assetPerNative, err := s.backend.PriceRatios(asset)
	if err != nil {
		return nil, executionError(err)
	}
	return map[string]string{
		"nativePerAsset": nativePerAsset.String(),
		"assetPerNative": assetPerNative.String(),
	}, nil
}

func (s *Server) stateRoot() (interface{}, *RPCError) {
	return s.backend.StateRoot().Hex(), nil
}

// Operation methods

func (s *Server) submit(op *tx.Operation) (*tx.ExecuteResult, *RPCError) {
	res := s.backend.Submit(op)
	if !res.Success {
		err := res.Error
		if err == nil {
			err = errors.New("operation failed")
		}
		return nil, executionError(err)
	}
	return res, nil
}

func (s *Server) transfer(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Caller string `json:"caller"`
		To     string `json:"to"`
		Asset  string `json:"asset,omitempty"` // empty = native
		Amount string `json:"amount"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(args.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddress(args.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(args.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset := types.ZeroAsset
	if args.Asset != "" {
		if asset, rpcErr = parseAsset(args.Asset); rpcErr != nil {
			return nil, rpcErr
		}
	}
	payload, err := (&tx.TransferPayload{To: to, Asset: asset, Amount: amount}).Encode()
	if err != nil {
		return nil, executionError(err)
	}
	if _, rpcErr := s.submit(&tx.Operation{Type: tx.OpTransfer, Caller: caller, Payload: payload}); rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) approve(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Caller  string `json:"caller"`
		Asset   string `json:"asset"`
		Spender string `json:"spender,omitempty"` // empty = the asset's pair
		Amount  string `json:"amount"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(args.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(args.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	spender := types.ZeroAddress
	if args.Spender != "" {
		if spender, rpcErr = parseAddress(args.Spender); rpcErr != nil {
			return nil, rpcErr
		}
	}
	payload, err := (&tx.ApprovePayload{Asset: asset, Spender: spender, Amount: amount}).Encode()
	if err != nil {
		return nil, executionError(err)
	}
	res, rpcErr := s.submit(&tx.Operation{Type: tx.OpApprove, Caller: caller, Payload: payload})
	if rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]string{"spender": res.Events[0].Account.Hex()}, nil
}

func (s *Server) createPair(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Caller string `json:"caller"`
		Asset  string `json:"asset"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(args.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	payload, err := (&tx.CreatePairPayload{Asset: asset}).Encode()
	if err != nil {
		return nil, executionError(err)
	}
	res, rpcErr := s.submit(&tx.Operation{Type: tx.OpCreatePair, Caller: caller, Payload: payload})
	if rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]string{"pair": res.Events[0].Pair.Hex()}, nil
}

func (s *Server) deposit(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Caller   string `json:"caller"`
		Asset    string `json:"asset"`
		Value    string `json:"value"` // attached native amount
		AssetMax string `json:"assetMax"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(args.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	value, rpcErr := parseAmount(args.Value)
	if rpcErr != nil {
		return nil, rpcErr
	}
	assetMax, rpcErr := parseAmount(args.AssetMax)
	if rpcErr != nil {
		return nil, rpcErr
	}
	payload, err := (&tx.DepositPayload{Asset: asset, AssetMax: assetMax}).Encode()
	if err != nil {
		return nil, executionError(err)
	}
	res, rpcErr := s.submit(&tx.Operation{Type: tx.OpDeposit, Caller: caller, Value: value, Payload: payload})
	if rpcErr != nil {
		return nil, rpcErr
	}
	ev := res.Events[0]
	return map[string]string{
		"shares":  ev.Shares.String(),
		"assetIn": ev.AssetAmount.String(),
	}, nil
}

func (s *Server) withdraw(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Caller string `json:"caller"`
		Asset  string `json:"asset"`
		Shares string `json:"shares"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(args.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	shares, rpcErr := parseAmount(args.Shares)
	if rpcErr != nil {
		return nil, rpcErr
	}
	payload, err := (&tx.WithdrawPayload{Asset: asset, Shares: shares}).Encode()
	if err != nil {
		return nil, executionError(err)
	}
	res, rpcErr := s.submit(&tx.Operation{Type: tx.OpWithdraw, Caller: caller, Payload: payload})
	if rpcErr != nil {
		return nil, rpcErr
	}
	ev := res.Events[0]
	return map[string]string{
		"nativeOut": ev.NativeAmount.String(),
		"assetOut":  ev.AssetAmount.String(),
	}, nil
}

func (s *Server) swapAssetForNative(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Caller    string `json:"caller"`
		Asset     string `json:"asset"`
		AmountIn  string `json:"amountIn"`
		MinOut    string `json:"minOut,omitempty"`
		Recipient string `json:"recipient,omitempty"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(args.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amountIn, rpcErr := parseAmount(args.AmountIn)
	if rpcErr != nil {
		return nil, rpcErr
	}
	minOut, rpcErr := parseOptAmount(args.MinOut)
	if rpcErr != nil {
		return nil, rpcErr
	}
	recipient := types.ZeroAddress
	if args.Recipient != "" {
		if recipient, rpcErr = parseAddress(args.Recipient); rpcErr != nil {
			return nil, rpcErr
		}
	}
	payload, err := (&tx.SwapAssetForNativePayload{
		Asset: asset, AmountIn: amountIn, MinOut: minOut, Recipient: recipient,
	}).Encode()
	if err != nil {
		return nil, executionError(err)
	}
	res, rpcErr := s.submit(&tx.Operation{Type: tx.OpSwapAssetForNative, Caller: caller, Payload: payload})
	if rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]string{"amountOut": res.Events[0].NativeAmount.String()}, nil
}

func (s *Server) swapNativeForAsset(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Caller    string `json:"caller"`
		Asset     string `json:"asset"`
		Value     string `json:"value"` // attached native amount
		MinOut    string `json:"minOut,omitempty"`
		Recipient string `json:"recipient,omitempty"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(args.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	value, rpcErr := parseAmount(args.Value)
	if rpcErr != nil {
		return nil, rpcErr
	}
	minOut, rpcErr := parseOptAmount(args.MinOut)
	if rpcErr != nil {
		return nil, rpcErr
	}
	recipient := types.ZeroAddress
	if args.Recipient != "" {
		if recipient, rpcErr = parseAddress(args.Recipient); rpcErr != nil {
			return nil, rpcErr
		}
	}
	payload, err := (&tx.SwapNativeForAssetPayload{
		Asset: asset, MinOut: minOut, Recipient: recipient,
	}).Encode()
	if err != nil {
		return nil, executionError(err)
	}
	res, rpcErr := s.submit(&tx.Operation{Type: tx.OpSwapNativeForAsset, Caller: caller, Value: value, Payload: payload})
	if rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]string{"amountOut": res.Events[0].AssetAmount.String()}, nil
}

func (s *Server) swapAssetForAsset(params json.RawMessage) (interface{}, *RPCError) {
	var args struct {
		Caller      string `json:"caller"`
		Asset       string `json:"asset"`
		TargetAsset string `json:"targetAsset"`
		AmountIn    string `json:"amountIn"`
		MinOut      string `json:"minOut,omitempty"`
	}
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(args.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, rpcErr := parseAsset(args.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	targetAsset, rpcErr := parseAsset(args.TargetAsset)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amountIn, rpcErr := parseAmount(args.AmountIn)
	if rpcErr != nil {
		return nil, rpcErr
	}
	minOut, rpcErr := parseOptAmount(args.MinOut)
	if rpcErr != nil {
		return nil, rpcErr
	}
	payload, err := (&tx.SwapAssetForAssetPayload{
		Asset: asset, TargetAsset: targetAsset, AmountIn: amountIn, MinOut: minOut,
	}).Encode()
	if err != nil {
		return nil, executionError(err)
	}
	res, rpcErr := s.submit(&tx.Operation{Type: tx.OpSwapAssetForAsset, Caller: caller, Payload: payload})
	if rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]string{
		"nativeBought": res.Events[0].NativeAmount.String(),
		"amountOut":    res.Events[1].AssetAmount.String(),
	}, nil
}

func (s *Server) writeResponse(w http.ResponseWriter, resp *RPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, id interface{}, code int, msg string) {
	s.writeResponse(w, &RPCResponse{
		JSONRPC: "2.0",
		Error:   &RPCError{Code: code, Message: msg},
		ID:      id,
	})
}
