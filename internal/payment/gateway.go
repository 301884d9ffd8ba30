package payment

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Gateway statuses reported by a payment provider.
const (
	GatewayRequiresConfirmation = "requires_confirmation"
	GatewaySucceeded            = "succeeded"
	GatewayFailed               = "failed"
)

var ErrIntentUnknown = errors.New("payment intent unknown to gateway")

type GatewayCreateRequest struct {
	Amount         int64
	Currency       string
	BookingID      string
	IdempotencyKey string
}

type GatewayIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

type Gateway interface {
	CreateIntent(ctx context.Context, req GatewayCreateRequest) (GatewayIntent, error)
	ConfirmIntent(ctx context.Context, intentID string) (GatewayIntent, error)
}

// SandboxGateway is an in-memory provider for local runs and tests.
// Intents with a zero amount fail on confirmation.
type SandboxGateway struct {
	mu      sync.Mutex
	intents map[string]*sandboxIntent
	byKey   map[string]string
}

type sandboxIntent struct {
	intent GatewayIntent
	amount int64
}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{
		intents: make(map[string]*sandboxIntent),
		byKey:   make(map[string]string),
	}
}

func (g *SandboxGateway) CreateIntent(ctx context.Context, req GatewayCreateRequest) (GatewayIntent, error) {
	if err := ctx.Err(); err != nil {
		return GatewayIntent{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if req.IdempotencyKey != "" {
		if id, ok := g.byKey[req.IdempotencyKey]; ok {
			return g.intents[id].intent, nil
		}
	}
	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	intent := GatewayIntent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Status:       GatewayRequiresConfirmation,
	}
	g.intents[id] = &sandboxIntent{intent: intent, amount: req.Amount}
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = id
	}
	return intent, nil
}

func (g *SandboxGateway) ConfirmIntent(ctx context.Context, intentID string) (GatewayIntent, error) {
	if err := ctx.Err(); err != nil {
		return GatewayIntent{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.intents[intentID]
	if !ok {
		return GatewayIntent{}, ErrIntentUnknown
	}
	if entry.intent.Status == GatewayRequiresConfirmation {
		if entry.amount > 0 {
			entry.intent.Status = GatewaySucceeded
		} else {
			entry.intent.Status = GatewayFailed
		}
	}
	return entry.intent, nil
}
