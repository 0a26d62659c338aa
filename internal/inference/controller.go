package inference

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/chatter/internal/logger"
)

// Outcome is what the controller publishes when a queued prompt finishes.
// Exactly one of Result and Err is set.
type Outcome struct {
	ID       string
	Prompt   string
	Result   *Result
	Err      error
	Finished time.Time
}

// Ticket identifies a queued prompt.
type Ticket struct {
	ID   string
	done chan Outcome
}

// Wait blocks until the prompt has been processed or ctx is done.
func (t *Ticket) Wait(ctx context.Context) (Outcome, error) {
	select {
	case out := <-t.done:
		return out, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

type job struct {
	ticket *Ticket
	prompt string
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	QueueSize int
	Logger    logger.Logger
}

// Status is a snapshot of the controller.
type Status struct {
	State     State
	Queued    int
	HasResult bool
	LastError string
}

// Controller serialises prompts onto a single Loop. Prompts run one at a
// time in arrival order. The latest successful reply is kept in a single
// slot; failures go to a separate last-error slot and leave it untouched.
type Controller struct {
	loop  *Loop
	log   logger.Logger
	queue chan job

	mu          sync.RWMutex
	closed      bool
	running     bool
	current     *string
	currentID   string
	lastErr     error
	subscribers []func(Outcome)
}

// NewController returns a controller for loop. Call Run to start processing.
func NewController(loop *Loop, cfg ControllerConfig) (*Controller, error) {
	if loop == nil {
		return nil, &PreconditionError{Collaborator: "generation loop"}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return &Controller{
		loop:  loop,
		log:   cfg.Logger,
		queue: make(chan job, cfg.QueueSize),
	}, nil
}

// OnPublish registers fn to be called with every outcome, in order, from the
// worker goroutine. Callers that need history should record it here.
func (c *Controller) OnPublish(fn func(Outcome)) {
	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.mu.Unlock()
}

// Submit queues a prompt. It never blocks: a full queue yields ErrQueueFull.
func (c *Controller) Submit(ev PromptSubmitted) (*Ticket, error) {
	t := &Ticket{
		ID:   uuid.NewString(),
		done: make(chan Outcome, 1),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	select {
	case c.queue <- job{ticket: t, prompt: ev.Text}:
	default:
		return nil, ErrQueueFull
	}
	c.log.Debug("prompt queued", logger.KeyRunID, t.ID, "queued", len(c.queue))
	return t, nil
}

// Generate submits a prompt and waits for its outcome.
func (c *Controller) Generate(ctx context.Context, prompt string) (Outcome, error) {
	t, err := c.Submit(PromptSubmitted{Text: prompt})
	if err != nil {
		return Outcome{}, err
	}
	return t.Wait(ctx)
}

// Run processes queued prompts until ctx is done. Prompts still queued at
// that point complete with ErrClosed.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running || c.closed {
		c.mu.Unlock()
		return errors.New("controller already started")
	}
	c.running = true
	c.mu.Unlock()

	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-c.queue:
			// select picks at random when both cases are ready.
			if err := ctx.Err(); err != nil {
				c.reject(j)
				return err
			}
			c.process(ctx, j)
		}
	}
}

func (c *Controller) process(ctx context.Context, j job) {
	log := logger.ForRun(c.log, j.ticket.ID)
	log.Info("run started")

	res, err := c.loop.Run(ctx, j.prompt)
	out := Outcome{
		ID:       j.ticket.ID,
		Prompt:   j.prompt,
		Result:   res,
		Err:      err,
		Finished: time.Now(),
	}

	c.mu.Lock()
	if err == nil {
		text := res.Text
		c.current = &text
		c.currentID = j.ticket.ID
	} else {
		c.lastErr = err
	}
	subs := slices.Clone(c.subscribers)
	c.mu.Unlock()

	if err != nil {
		log.Error("run failed", "error", err)
	} else {
		log.Info("run finished", logger.KeyTokens, res.Stats.TokensGenerated, logger.KeyStop, res.StopReason, "tps", res.Stats.TPS)
	}

	c.publish(subs, out)
	j.ticket.done <- out
}

func (c *Controller) publish(subs []func(Outcome), out Outcome) {
	for _, fn := range subs {
		fn(out)
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	for {
		select {
		case j := <-c.queue:
			c.reject(j)
		default:
			return
		}
	}
}

// reject completes a job that will never run with ErrClosed.
func (c *Controller) reject(j job) {
	c.mu.RLock()
	subs := slices.Clone(c.subscribers)
	c.mu.RUnlock()

	out := Outcome{
		ID:       j.ticket.ID,
		Prompt:   j.prompt,
		Err:      ErrClosed,
		Finished: time.Now(),
	}
	c.publish(subs, out)
	j.ticket.done <- out
}

// CurrentResult returns the most recently published reply.
func (c *Controller) CurrentResult() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return "", false
	}
	return *c.current, true
}

// Current returns the reply in the result slot together with the id of the
// run that produced it.
func (c *Controller) Current() (id, text string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return "", "", false
	}
	return c.currentID, *c.current, true
}

// CurrentResultID returns the ticket id of the reply in the result slot.
func (c *Controller) CurrentResultID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentID
}

// LastError returns the error of the most recent failed run, if any.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Status{
		State:     c.loop.State(),
		Queued:    len(c.queue),
		HasResult: c.current != nil,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}
