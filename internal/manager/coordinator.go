package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"inferd/pkg/types"
)

// Infer routes an inference request to a loaded handle and streams NDJSON
// token lines to the provided writer. The model is resolved from the request,
// the session binding, or the configured default, loading it on demand. Turns
// within one session are processed in submission order.
func (m *Manager) Infer(ctx context.Context, req types.InferRequest, w io.Writer, flush func()) error {
	sess := m.sessions.resolve(req.SessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	modelID := req.Model
	if modelID == "" {
		modelID = sess.boundModel
	}
	if modelID == "" {
		modelID = m.defaultModel
	}
	if modelID == "" {
		return unknownModelError{id: "(unspecified)"}
	}

	bound := sess.boundModel == modelID

	// Resolve a handle and take the in-flight reference. One retry covers the
	// window where the handle is evicted between load resolution and dispatch.
	var h *Handle
	var release func()
	for attempt := 0; ; attempt++ {
		var err error
		h, err = m.requestLoad(ctx, modelID, bound)
		if err != nil {
			return err
		}
		release, err = m.beginDispatch(ctx, h)
		if err == errHandleRevoked {
			if attempt == 0 {
				continue
			}
			// Revoked twice in a row means eviction churn; surface a
			// retryable rejection instead of the internal sentinel.
			return underPressureError{id: modelID, detail: "model evicted during dispatch"}
		}
		if err != nil {
			return err
		}
		break
	}
	defer release()

	// Hot-swap is rebinding only: a previously bound model's handle stays
	// resident until normal LRU eviction claims it, so a revert before
	// eviction reuses it for free.
	sess.boundModel = modelID

	params := GenParams{
		Temperature:   float32(req.Temperature),
		TopP:          float32(req.TopP),
		TopK:          req.TopK,
		MaxTokens:     req.MaxTokens,
		Stop:          req.Stop,
		Seed:          int(req.Seed),
		RepeatPenalty: float32(req.RepeatPenalty),
	}

	var b strings.Builder
	onTok := func(tok string) error {
		if _, e := w.Write(tokenLineJSON(tok)); e != nil {
			return e
		}
		b.WriteString(tok)
		if flush != nil {
			flush()
		}
		return nil
	}
	final, err := h.engine.Generate(ctx, req.Prompt, params, onTok)
	if err != nil {
		return err
	}
	content := final.Content
	if content == "" {
		content = b.String()
	}
	end := map[string]any{
		"done":          true,
		"content":       content,
		"finish_reason": final.FinishReason,
		"usage":         final.Usage,
		"model":         modelID,
		"session_id":    sess.id,
	}
	jb, _ := json.Marshal(end)
	if _, err := w.Write(append(jb, '\n')); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}

	sess.appendTurn(Turn{Prompt: req.Prompt, Completion: content, ModelID: modelID, At: time.Now()}, m.sessions.turnCap)
	return nil
}

// Completion is the future returned by Submit. Done is closed when the
// request finishes; Err and Output are valid afterwards.
type Completion struct {
	ID        string
	SessionID string
	Done      chan struct{}

	Output bytes.Buffer
	Err    error
}

// Submit is the non-blocking variant of Infer: it enqueues the request and
// returns a completion future. Cancellation of ctx before dispatch abandons
// the queued request; after dispatch it only suppresses response delivery.
func (m *Manager) Submit(ctx context.Context, req types.InferRequest) (*Completion, error) {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	c := &Completion{ID: uuid.NewString(), SessionID: req.SessionID, Done: make(chan struct{})}
	go func() {
		defer close(c.Done)
		c.Err = m.Infer(ctx, req, &c.Output, nil)
	}()
	return c, nil
}

// SwapSession hot-swaps a session to a different model: the new model is
// loaded (subject to admission) and the session rebound. The old model is not
// forcibly unloaded; it becomes eligible for normal LRU eviction. The load is
// not session-bound: the target has no binding yet, so under critical
// pressure a swap to a cold model is rejected like any other load.
func (m *Manager) SwapSession(ctx context.Context, sessionID, modelID string) error {
	s, ok := m.sessions.get(sessionID)
	if !ok {
		s = m.sessions.resolve(sessionID)
	}
	if _, err := m.requestLoad(ctx, modelID, false); err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.boundModel
	s.boundModel = modelID
	s.lastActive = time.Now()
	s.mu.Unlock()
	m.publisher.Publish(Event{Name: "session_swap", ModelID: modelID, Fields: map[string]any{"session": sessionID, "prev": prev}})
	return nil
}
