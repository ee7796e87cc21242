package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	greenauth "github.com/verdantio/greenauth"
	"github.com/verdantio/greenauth/permission"
)

// RoleWriter persists role-permission assignments. Both the Postgres and
// in-memory directories implement it; writes are all-or-nothing.
type RoleWriter interface {
	CreateRole(ctx context.Context, name string, active bool, keys []string) (int64, error)
	UpdateRolePermissions(ctx context.Context, roleID int64, keys []string) error
}

type roleCreateRequest struct {
	Name        string   `json:"name"`
	IsActive    *bool    `json:"is_active"`
	Permissions []string `json:"permissions"`
}

type roleUpdateRequest struct {
	Permissions []string `json:"permissions"`
}

func (s *Server) handleRoleCreate(w http.ResponseWriter, r *http.Request) {
	var req roleCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, greenauth.ValidationError("Malformed request body"))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, greenauth.ValidationError("Role name is required"))
		return
	}
	if len(req.Permissions) == 0 {
		writeError(w, greenauth.ValidationError("Permissions must be a non-empty array"))
		return
	}
	// Every key is checked against the catalog before anything is written.
	if err := permission.ValidateKeys(req.Permissions); err != nil {
		writeError(w, greenauth.ValidationError(err.Error()))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	id, err := s.roles.CreateRole(r.Context(), name, active, req.Permissions)
	if err != nil {
		s.logFailure(r, "role_create", err)
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleRoleUpdate(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, greenauth.ValidationError("Role id must be numeric"))
		return
	}

	var req roleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, greenauth.ValidationError("Malformed request body"))
		return
	}
	if len(req.Permissions) == 0 {
		writeError(w, greenauth.ValidationError("Permissions must be a non-empty array"))
		return
	}
	if err := permission.ValidateKeys(req.Permissions); err != nil {
		writeError(w, greenauth.ValidationError(err.Error()))
		return
	}

	if err := s.roles.UpdateRolePermissions(r.Context(), roleID, req.Permissions); err != nil {
		s.logFailure(r, "role_update", err)
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, struct{}{})
}
