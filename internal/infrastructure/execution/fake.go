package execution

import (
	"context"
	"fmt"
	"sync"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"
)

var _ application.ExecutionProvider = (*Fake)(nil)

// Fake is an in-process execution provider for local runs where no
// downstream API is configured. Every submission succeeds and reports
// completed on the first status poll.
type Fake struct {
	mu   sync.Mutex
	seq  int
	refs map[string]string // external ref -> payment id
}

func NewFake() *Fake {
	return &Fake{refs: make(map[string]string)}
}

func (f *Fake) Submit(_ context.Context, p domain.Payment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ref := fmt.Sprintf("SIM-%06d", f.seq)
	f.refs[ref] = p.ID
	return ref, nil
}

func (f *Fake) Status(_ context.Context, externalRef string) (application.ExecutionOutcome, *string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.refs[externalRef]; !ok {
		return "", nil, fmt.Errorf("%w: unknown reference %s", ErrProviderUnavailable, externalRef)
	}
	return application.OutcomeCompleted, nil, nil
}
