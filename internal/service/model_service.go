package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"deonai-be/pkg/llm"

	"github.com/patrickmn/go-cache"
)

// IModelService owns the model allow-list and the upstream model catalog.
type IModelService interface {
	// ValidateModel rejects ids outside the allow-list. An empty allow-list
	// lets every non-empty id through.
	ValidateModel(modelId string) error
	ListModels(ctx context.Context, apiKey string) ([]llm.ModelInfo, error)
}

type modelService struct {
	provider llm.LLMProvider
	allowed  map[string]struct{}
	catalog  *cache.Cache
}

func NewModelService(provider llm.LLMProvider, allowedModelIds []string, catalogTTL time.Duration) IModelService {
	allowed := make(map[string]struct{}, len(allowedModelIds))
	for _, id := range allowedModelIds {
		if id = strings.TrimSpace(id); id != "" {
			allowed[id] = struct{}{}
		}
	}

	return &modelService{
		provider: provider,
		allowed:  allowed,
		catalog:  cache.New(catalogTTL, 2*catalogTTL),
	}
}

func (s *modelService) ValidateModel(modelId string) error {
	if strings.TrimSpace(modelId) == "" {
		return invalid("model_id", "is required")
	}
	if len(s.allowed) == 0 {
		return nil
	}
	if _, ok := s.allowed[modelId]; !ok {
		return invalid("model_id", fmt.Sprintf("model %q is not supported", modelId))
	}
	return nil
}

// ListModels returns the upstream catalog visible to apiKey, filtered by the
// allow-list. Results are cached per credential; the key itself is never
// stored, only its digest.
func (s *modelService) ListModels(ctx context.Context, apiKey string) ([]llm.ModelInfo, error) {
	cacheKey := credentialDigest(apiKey)
	if cached, found := s.catalog.Get(cacheKey); found {
		return cached.([]llm.ModelInfo), nil
	}

	models, err := s.provider.ListModels(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	filtered := make([]llm.ModelInfo, 0, len(models))
	for _, m := range models {
		if len(s.allowed) > 0 {
			if _, ok := s.allowed[m.Id]; !ok {
				continue
			}
		}
		filtered = append(filtered, m)
	}

	s.catalog.Set(cacheKey, filtered, cache.DefaultExpiration)
	return filtered, nil
}

func credentialDigest(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
