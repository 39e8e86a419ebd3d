package daemon

import (
	"encoding/json"
	"fmt"

	"github.com/nilopro/teleauth/internal/access"
	"github.com/nilopro/teleauth/internal/audit"
	"github.com/nilopro/teleauth/internal/config"
	"github.com/nilopro/teleauth/internal/types"
)

// defaultAuditTail bounds access.audit responses when no tail is given.
const defaultAuditTail = 100

// Handler dispatches RPC requests to the access service.
type Handler struct {
	svc         *access.Service
	auditLogger *audit.Logger
	cfg         *config.Config
}

// NewHandler creates a new RPC handler with all required dependencies.
func NewHandler(svc *access.Service, al *audit.Logger, cfg *config.Config) *Handler {
	return &Handler{
		svc:         svc,
		auditLogger: al,
		cfg:         cfg,
	}
}

// HandleRequest dispatches an RPC request to the appropriate handler method.
func (h *Handler) HandleRequest(req *types.RPCRequest) *types.RPCResponse {
	resp := &types.RPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	var (
		result interface{}
		err    error
	)

	switch req.Method {
	case MethodIsAdmin:
		result, err = h.handleIsAdmin(req.Params)
	case MethodCheck:
		result, err = h.handleCheck(req.Params)
	case MethodAuthorize:
		result, err = h.handleAuthorize(req.Params)
	case MethodRevoke:
		result, err = h.handleRevoke(req.Params)
	case MethodRemaining:
		result, err = h.handleRemaining(req.Params)
	case MethodList:
		result, err = h.handleList()
	case MethodAudit:
		result, err = h.handleAudit(req.Params)
	case MethodStatus:
		result, err = h.handleStatus()
	default:
		resp.Error = &types.RPCError{
			Code:    types.RPCMethodNotFound,
			Message: fmt.Sprintf("method %q not found", req.Method),
		}
		return resp
	}

	if err != nil {
		resp.Error = types.RPCErrorFromError(err)
	} else {
		resp.Result = result
	}
	return resp
}

func (h *Handler) handleIsAdmin(params interface{}) (*IsAdminResult, error) {
	var p UserParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	return &IsAdminResult{UserID: p.UserID, Admin: h.svc.IsAdmin(p.UserID)}, nil
}

func (h *Handler) handleCheck(params interface{}) (*CheckResult, error) {
	var p UserParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	ok, err := h.svc.IsAuthenticated(p.UserID)
	if err != nil {
		return nil, err
	}

	return &CheckResult{
		UserID:        p.UserID,
		Admin:         h.svc.IsAdmin(p.UserID),
		Authenticated: ok,
	}, nil
}

func (h *Handler) handleAuthorize(params interface{}) (*AuthorizeResult, error) {
	var p AuthorizeParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	rec, err := h.svc.AuthorizeUser(p.UserID, p.Days, p.Hours)
	if err != nil {
		return nil, err
	}

	return &AuthorizeResult{UserID: rec.UserID, ExpiresAt: rec.ExpiresAt}, nil
}

func (h *Handler) handleRevoke(params interface{}) (*RevokeResult, error) {
	var p UserParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if err := h.svc.RevokeAccess(p.UserID); err != nil {
		return nil, err
	}

	return &RevokeResult{
		Success: true,
		Message: fmt.Sprintf("access revoked for user %d", p.UserID),
	}, nil
}

func (h *Handler) handleRemaining(params interface{}) (*RemainingResult, error) {
	var p UserParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	rem, err := h.svc.RemainingTime(p.UserID)
	if err != nil {
		return nil, err
	}

	return &RemainingResult{UserID: p.UserID, Remaining: rem}, nil
}

func (h *Handler) handleList() (*ListResult, error) {
	users, err := h.svc.ListAuthorized()
	if err != nil {
		return nil, err
	}

	return &ListResult{Users: users}, nil
}

// handleAudit returns recent audit log entries, optionally for one user.
func (h *Handler) handleAudit(params interface{}) (*AuditResult, error) {
	var p AuditParams
	if params != nil {
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
	}
	if p.Tail <= 0 {
		p.Tail = defaultAuditTail
	}

	var (
		entries []*types.AuditEntry
		err     error
	)
	if p.UserID != nil {
		entries, err = h.auditLogger.Query(audit.QueryFilter{UserID: p.UserID})
		if len(entries) > p.Tail {
			entries = entries[len(entries)-p.Tail:]
		}
	} else {
		entries, err = h.auditLogger.Tail(p.Tail)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	if entries == nil {
		entries = []*types.AuditEntry{}
	}
	return &AuditResult{Entries: entries}, nil
}

// handleStatus returns the current daemon status.
func (h *Handler) handleStatus() (*types.DaemonStatus, error) {
	users, err := h.svc.ListAuthorized()
	if err != nil {
		return nil, err
	}

	active := 0
	for _, u := range users {
		if !u.Expired {
			active++
		}
	}

	// StartedAt and Running are populated by the daemon itself.
	return &types.DaemonStatus{
		Running:     true,
		StoreKind:   string(h.cfg.Store),
		StorePath:   h.cfg.StorePath(),
		Admins:      len(h.svc.Admins()),
		Records:     len(users),
		ActiveUsers: active,
	}, nil
}

// unmarshalParams is a helper to unmarshal interface{} params to a specific type.
func unmarshalParams(params interface{}, target interface{}) error {
	if params == nil {
		return fmt.Errorf("%w: parameters are required", types.ErrInvalidParams)
	}

	// Convert to JSON and back (handles map[string]interface{} from JSON decoder)
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidParams, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidParams, err)
	}

	return nil
}
