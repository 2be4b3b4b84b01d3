package clients

import (
	"context"

	"github.com/juju/loggo/v2"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

var logger = loggo.GetLogger("lingua.clients")

// Provider is implemented by every LLM vendor adapter.
// Adapters never retry; fallback is the orchestrator's job.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req models.AIRequest) (*models.AIResponse, error)
	// HealthCheck probes the vendor without calling the generation endpoint.
	HealthCheck(ctx context.Context) error
}
