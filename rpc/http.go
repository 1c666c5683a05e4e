package rpc

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"seedfarm/native/farm"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20

	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeUnauthorized   = -32001
)

// Server exposes the farming engine over a JSON-RPC style HTTP API. Mutating
// methods require the bearer token from FARMD_RPC_TOKEN when one is set.
type Server struct {
	engine    *farm.Engine
	log       *slog.Logger
	authToken string
}

func NewServer(engine *farm.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:    engine,
		log:       log,
		authToken: strings.TrimSpace(os.Getenv("FARMD_RPC_TOKEN")),
	}
}

// Router builds the HTTP handler serving the RPC endpoint and health check.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "Bearer "+s.authToken {
		return nil
	}
	return &RPCError{Code: codeUnauthorized, Message: "unauthorized"}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request too large", err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if strings.TrimSpace(req.Method) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch req.Method {
	case "farm_create":
		s.withAuth(w, r, req, s.handleFarmCreate)
	case "farm_depositReward":
		s.withAuth(w, r, req, s.handleDepositReward)
	case "farm_registerFarmer":
		s.withAuth(w, r, req, s.handleRegisterFarmer)
	case "farm_depositStake":
		s.withAuth(w, r, req, s.handleDepositStake)
	case "farm_withdrawStake":
		s.withAuth(w, r, req, s.handleWithdrawStake)
	case "farm_depositToken":
		s.withAuth(w, r, req, s.handleDepositToken)
	case "farm_withdrawToken":
		s.withAuth(w, r, req, s.handleWithdrawToken)
	case "farm_claimByFarm":
		s.withAuth(w, r, req, s.handleClaimByFarm)
	case "farm_claimBySeed":
		s.withAuth(w, r, req, s.handleClaimBySeed)
	case "farm_withdrawReward":
		s.withAuth(w, r, req, s.handleWithdrawReward)
	case "farm_resolveTransfer":
		s.withAuth(w, r, req, s.handleResolveTransfer)
	case "farm_removeSnapshot":
		s.withAuth(w, r, req, s.handleRemoveSnapshot)
	case "farm_sweep":
		s.withAuth(w, r, req, s.handleSweep)
	case "farm_viewUnclaimed":
		s.handleViewUnclaimed(w, req)
	case "farm_getFarm":
		s.handleGetFarm(w, req)
	case "farm_listFarms":
		s.handleListFarms(w, req)
	case "farm_getSeed":
		s.handleGetSeed(w, req)
	case "farm_farmerSeeds":
		s.handleFarmerSeeds(w, req)
	case "farm_farmerRewards":
		s.handleFarmerRewards(w, req)
	case "farm_farmerHoldings":
		s.handleFarmerHoldings(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

func (s *Server) withAuth(w http.ResponseWriter, r *http.Request, req *RPCRequest, handler func(http.ResponseWriter, *RPCRequest)) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	handler(w, req)
}
