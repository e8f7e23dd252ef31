package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/beacon-health/counseling-api/config"
)

const companionPrompt = "You are a supportive wellbeing companion for a counseling portal. " +
	"Listen, respond with empathy, and suggest healthy coping strategies. " +
	"You are not a therapist: if the user appears to be in crisis, encourage them " +
	"to request a live session with a counselor or contact local emergency services."

// AI exported for testing purposes. Model is lazily constructed from the
// OPENAI_API_KEY env var when left nil.
type AI struct {
	Model llms.Model
}

type aiChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type aiChatRequest struct {
	Message string       `json:"message"`
	History []aiChatTurn `json:"history"`
}

type aiChatResponse struct {
	Response string `json:"response"`
}

// ChatHandler relays a chat turn to the language model and returns its reply.
// History travels with the request, so nothing is stored server-side.
func (a AI) ChatHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		config.ErrorStatus("failed to read request body", http.StatusBadRequest, w, err)
		return
	}
	var req aiChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		config.ErrorStatus("failed to unmarshal request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Message == "" {
		config.ErrorStatus("message is required", http.StatusBadRequest, w, errors.New("missing message"))
		return
	}

	model := a.Model
	if model == nil {
		llm, newErr := openai.New()
		if newErr != nil {
			config.ErrorStatus("ai service is not configured", http.StatusServiceUnavailable, w, newErr)
			return
		}
		model = llm
	}

	content := make([]llms.MessageContent, 0, len(req.History)+2)
	content = append(content, llms.TextParts(schema.ChatMessageTypeSystem, companionPrompt))
	for _, turn := range req.History {
		switch turn.Role {
		case "user", "human":
			content = append(content, llms.TextParts(schema.ChatMessageTypeHuman, turn.Content))
		case "assistant", "ai":
			content = append(content, llms.TextParts(schema.ChatMessageTypeAI, turn.Content))
		}
	}
	content = append(content, llms.TextParts(schema.ChatMessageTypeHuman, req.Message))

	output, err := model.GenerateContent(r.Context(), content,
		llms.WithMaxTokens(1024),
		llms.WithTemperature(0.7),
	)
	if err != nil {
		zap.S().Errorw("ai chat completion failed", "error", err)
		config.ErrorStatus("failed to generate response", http.StatusBadGateway, w, err)
		return
	}
	if len(output.Choices) == 0 {
		config.ErrorStatus("failed to generate response", http.StatusBadGateway, w, errors.New("model returned no choices"))
		return
	}

	b, err := json.Marshal(aiChatResponse{Response: output.Choices[0].Content})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
