package approval

import (
	"context"
	"sync"
	"time"

	"github.com/craftd/anvil/pkg/types"
	"github.com/google/uuid"
)

// EventEmitter delivers confirmation events to the active front end.
type EventEmitter func(event *types.AgentEvent)

// Response resolves a pending confirmation.
type Response struct {
	ConfirmationID string
	Granted        bool
}

// AutoPolicy decides a confirmation without user input. Return handled=false
// to fall through to interactive confirmation. Headless runs install a
// policy that always handles; interactive runs leave it unset.
type AutoPolicy func(action *types.Action, reason string) (granted, handled bool)

// Manager carries gate-required confirmations to the front end and waits for
// the user's answer.
type Manager struct {
	timeout   time.Duration
	policy    AutoPolicy
	pending   map[string]*pendingConfirmation
	mu        sync.Mutex
	emitEvent EventEmitter
}

// pendingConfirmation tracks one confirmation awaiting a response.
type pendingConfirmation struct {
	confirmationID string
	response       chan *Response
	closeOnce      sync.Once
}

// NewManager creates a confirmation manager. emitEvent must be non-nil.
func NewManager(timeout time.Duration, emitEvent EventEmitter) *Manager {
	return &Manager{
		timeout:   timeout,
		pending:   make(map[string]*pendingConfirmation),
		emitEvent: emitEvent,
	}
}

// SetPolicy installs an automatic decision policy.
func (m *Manager) SetPolicy(policy AutoPolicy) {
	m.policy = policy
}

// RequestConfirmation asks the user to approve an action and blocks until a
// response, timeout, or context cancellation. It returns (granted, timedOut);
// cancellation and timeouts count as denials.
func (m *Manager) RequestConfirmation(ctx context.Context, reason string, action *types.Action) (bool, bool) {
	confirmationID := uuid.New().String()

	if m.policy != nil {
		if granted, handled := m.policy(action, reason); handled {
			m.emitEvent(types.NewConfirmationResultEvent(confirmationID, granted))
			return granted, false
		}
	}

	responseChannel := make(chan *Response, 1)
	m.addPending(confirmationID, responseChannel)
	defer m.removePending(confirmationID)

	m.emitEvent(types.NewConfirmationRequestEvent(confirmationID, reason, action))

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, false

	case <-timer.C:
		event := types.NewConfirmationResultEvent(confirmationID, false)
		event.Metadata["timed_out"] = true
		m.emitEvent(event)
		return false, true

	case response, ok := <-responseChannel:
		if !ok {
			m.emitEvent(types.NewConfirmationResultEvent(confirmationID, false))
			return false, false
		}
		m.emitEvent(types.NewConfirmationResultEvent(confirmationID, response.Granted))
		return response.Granted, false
	}
}

// HandleResponse delivers a user response to the waiting request. Responses
// for unknown or already-resolved confirmations are ignored.
func (m *Manager) HandleResponse(response *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pc, ok := m.pending[response.ConfirmationID]
	if !ok {
		return
	}

	// Non-blocking send: cleanup may already be racing this delivery.
	select {
	case pc.response <- response:
	default:
	}
}

// PendingCount reports how many confirmations are awaiting a response.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manager) addPending(confirmationID string, responseChannel chan *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending[confirmationID] = &pendingConfirmation{
		confirmationID: confirmationID,
		response:       responseChannel,
	}
}

func (m *Manager) removePending(confirmationID string) {
	m.mu.Lock()
	pc, ok := m.pending[confirmationID]
	if ok {
		delete(m.pending, confirmationID)
	}
	m.mu.Unlock()

	if ok {
		pc.closeOnce.Do(func() {
			close(pc.response)
		})
	}
}
