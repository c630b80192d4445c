package agent

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/roost-io/roost/pkg/security"
	"github.com/roost-io/roost/pkg/types"
)

// handleTokenUpdate accepts a new credential from the controller. The
// request authenticates with the credential the agent currently holds.
//
// The swap is verified before it is trusted: the new credential goes
// into memory, a probe heartbeat is sent with it, and only then is the
// config rewritten. Any failure along the way restores the old
// credential, leaving the agent exactly where it started.
func (a *Agent) handleTokenUpdate(w http.ResponseWriter, r *http.Request) {
	current := a.creds.Get()
	presented, ok := bearerToken(r)
	if !ok || !security.TokensEqual(presented, current) {
		a.logger.Warn().Msg("Token update rejected: bad credential")
		writeAgentError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req types.TokenUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeAgentError(w, http.StatusBadRequest, "invalid token payload")
		return
	}

	a.creds.Set(req.Token)

	// Prove the controller accepts the new credential before making it
	// durable
	if err := a.probe(r.Context(), req.Token); err != nil {
		a.creds.Set(current)
		a.logger.Warn().Err(err).Msg("Token update failed verification, reverted")
		writeAgentError(w, http.StatusBadGateway, "verification heartbeat failed")
		return
	}

	a.cfg.Token = req.Token
	if err := a.cfg.Save(a.cfgPath); err != nil {
		a.creds.Set(current)
		a.cfg.Token = current
		a.logger.Error().Err(err).Msg("Token update failed to persist, reverted")
		writeAgentError(w, http.StatusInternalServerError, "failed to persist token")
		return
	}

	a.logger.Info().Str("token_prefix", security.TokenPrefix(req.Token)).Msg("Credential rotated")
	w.WriteHeader(http.StatusNoContent)
}

func (a *Agent) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "node_id": a.cfg.NodeID})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	return token, token != ""
}

func writeAgentError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(types.ErrorResponse{Error: message})
}
