package bootstrap

import (
	"log"

	"deonai-be/internal/config"
	"deonai-be/internal/controller"
	"deonai-be/internal/pkg/logger"
	"deonai-be/internal/repository/unitofwork"
	"deonai-be/internal/service"
	"deonai-be/pkg/auth"
	"deonai-be/pkg/llm/openrouter"
	pktNats "deonai-be/pkg/nats"
	"deonai-be/pkg/ratelimit"

	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController         controller.IChatController
	ConversationController controller.IConversationController
	ModelController        controller.IModelController
	HealthController       controller.IHealthController

	// Shared infrastructure used by the HTTP middleware chain
	Verifier *auth.Verifier
	Limiter  *ratelimit.Limiter
	Logger   logger.ILogger

	natsPub *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db, cfg.Database.RLSRole)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. Upstream
	provider := openrouter.NewOpenRouterProvider(
		cfg.Upstream.CompletionURL,
		cfg.Upstream.ModelsURL,
		cfg.Upstream.APIKey,
		cfg.Upstream.Timeout,
	)

	// 3. Event bus (optional)
	var publisher service.EventPublisher
	var natsPub *pktNats.Publisher
	if cfg.Nats.URL != "" {
		var err error
		natsPub, err = pktNats.NewPublisher(cfg.Nats.URL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publisher = natsPub
		}
	}

	// 4. Services
	conversationService := service.NewConversationService(uowFactory)
	modelService := service.NewModelService(provider, cfg.Models.AllowedIds, cfg.Models.CatalogTTL)
	chatService := service.NewChatService(conversationService, modelService, provider, publisher, sysLogger)

	return &Container{
		ChatController:         controller.NewChatController(chatService),
		ConversationController: controller.NewConversationController(conversationService, modelService),
		ModelController:        controller.NewModelController(modelService),
		HealthController:       controller.NewHealthController(cfg.App.Version),

		Verifier: auth.NewVerifier(cfg.Auth.JWTSecret),
		Limiter:  ratelimit.NewLimiter(),
		Logger:   sysLogger,

		natsPub: natsPub,
	}
}

// Close releases connections opened by NewContainer.
func (c *Container) Close() {
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	_ = c.Logger.Sync()
}
