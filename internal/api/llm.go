package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nzvengeance/gsf-buildbot/internal/analysis"
	"github.com/nzvengeance/gsf-buildbot/internal/crypto"
	"github.com/nzvengeance/gsf-buildbot/internal/llm"
	"github.com/nzvengeance/gsf-buildbot/internal/models"
	"github.com/rs/zerolog/log"
)

// --- LLM Settings ---

func (s *Server) getLLMConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.db.GetLLMConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load LLM config")
		return
	}
	if cfg == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"configured": false})
		return
	}

	masked := ""
	if key, err := s.sealer.Decrypt(cfg.EncryptedAPIKey); err == nil {
		masked = crypto.MaskAPIKey(key)
	} else {
		log.Warn().Err(err).Msg("stored LLM API key cannot be decrypted")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"configured":     true,
		"provider":       cfg.Provider,
		"model":          cfg.Model,
		"api_key_masked": masked,
	})
}

func (s *Server) setLLMConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		APIKey   string `json:"api_key"`
		Model    string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ctx := r.Context()

	// All empty clears the configuration
	if req.Provider == "" && req.APIKey == "" && req.Model == "" {
		if err := s.db.ClearLLMConfig(ctx); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to clear LLM config")
			return
		}
		log.Info().Msg("LLM configuration cleared")
		writeJSON(w, http.StatusOK, map[string]string{"message": "LLM configuration cleared"})
		return
	}

	if !llm.ValidProvider(req.Provider) {
		writeError(w, http.StatusBadRequest, "Invalid provider")
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "API key required")
		return
	}

	encryptedKey, err := s.sealer.Encrypt(req.APIKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encrypt API key")
		return
	}
	if err := s.db.SetLLMConfig(ctx, models.LLMConfig{
		Provider:        req.Provider,
		EncryptedAPIKey: encryptedKey,
		Model:           req.Model,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save LLM config")
		return
	}

	log.Info().Str("provider", req.Provider).Str("model", req.Model).Msg("LLM configuration updated")
	writeJSON(w, http.StatusOK, map[string]string{"message": "LLM configuration saved"})
}

func (s *Server) testLLMConnection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		APIKey   string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	client, err := s.newLLMClient(req.Provider, req.APIKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := client.TestConnection(r.Context()); err != nil {
		log.Warn().Err(err).Str("provider", req.Provider).Msg("LLM connection test failed")
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// storedClient builds a client from the saved configuration.
func (s *Server) storedClient(r *http.Request) (llm.Client, *models.LLMConfig, int, string) {
	cfg, err := s.db.GetLLMConfig(r.Context())
	if err != nil || cfg == nil || cfg.EncryptedAPIKey == "" {
		return nil, nil, http.StatusBadRequest, "LLM not configured"
	}
	apiKey, err := s.sealer.Decrypt(cfg.EncryptedAPIKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to decrypt API key")
		return nil, nil, http.StatusInternalServerError, "Failed to decrypt API key"
	}
	client, err := s.newLLMClient(cfg.Provider, apiKey)
	if err != nil {
		return nil, nil, http.StatusInternalServerError, err.Error()
	}
	return client, cfg, 0, ""
}

func (s *Server) listLLMModels(w http.ResponseWriter, r *http.Request) {
	client, _, status, msg := s.storedClient(r)
	if client == nil {
		writeError(w, status, msg)
		return
	}
	list, err := client.ListModels(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to list models: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- AI Analysis ---

// generateAIAnalysis runs the matchup analysis of the user's builds and asks
// the configured model to review it.
func (s *Server) generateAIAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := userFrom(ctx)

	client, cfg, status, msg := s.storedClient(r)
	if client == nil {
		log.Warn().Str("reason", msg).Msg("AI analysis unavailable")
		writeError(w, status, msg)
		return
	}

	distance, ok := s.distanceParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Distance argument should be a number [hundreds of metres].")
		return
	}
	builds, err := s.db.ListBuildsByOwner(ctx, owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(builds) == 0 {
		writeError(w, http.StatusBadRequest, "You have not created any builds.")
		return
	}
	matrix, err := analysis.AnalyzeBuilds(ctx, s.calc, builds, distance, s.accuracyParam(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	log.Info().
		Int("build_count", len(builds)).
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("generating AI build analysis")

	result, err := client.GenerateBuildAnalysis(ctx, cfg.Model, matrix)
	if err != nil {
		log.Error().Err(err).Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("AI analysis failed")
		writeError(w, http.StatusBadGateway, "AI analysis failed: "+err.Error())
		return
	}

	id, err := s.db.SaveAIAnalysis(ctx, owner, cfg.Provider, cfg.Model, len(builds), result)
	if err != nil {
		log.Error().Err(err).Msg("failed to save AI analysis")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analysis": result,
		"id":       id,
	})
}

func (s *Server) getLatestAIAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := s.db.GetLatestAIAnalysis(ctx, userFrom(ctx))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch analysis")
		return
	}
	if a == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"analysis": nil})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) getAIAnalysisHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := s.db.GetAIAnalysisHistory(ctx, userFrom(ctx), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch analysis history")
		return
	}
	if history == nil {
		history = []models.AIAnalysis{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) deleteAIAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid analysis ID")
		return
	}
	ctx := r.Context()
	if err := s.db.DeleteAIAnalysis(ctx, id, userFrom(ctx)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete analysis")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Analysis deleted"})
}
