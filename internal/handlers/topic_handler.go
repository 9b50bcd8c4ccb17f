package handlers

import (
	"net/http"

	"mathwizard/internal/service"
)

// TopicHandler serves curriculum topics
type TopicHandler struct {
	topicService *service.TopicService
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(topicService *service.TopicService) *TopicHandler {
	return &TopicHandler{topicService: topicService}
}

// GetTopics returns a year's topics grouped by section, then level
func (h *TopicHandler) GetTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topicService.GetTopics(r.Context(), pathParam(r, "year"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"topics": topics})
}
