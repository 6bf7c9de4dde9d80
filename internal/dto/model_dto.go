package dto

import "deonai-be/pkg/llm"

type ListModelsRequest struct {
	ApiKey string `json:"api_key" validate:"required"`
}

type ListModelsResponse struct {
	Models []llm.ModelInfo `json:"models"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
