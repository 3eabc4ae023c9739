package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/config"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/email"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/services"
)

const (
	TypeEditLockSweep = "locks:sweep"
	TypeEmailDelivery = "email:deliver"
)

// EmailDeliveryPayload carries one outbound email through the queue.
type EmailDeliveryPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Client wraps the asynq client with typed enqueue helpers. It satisfies
// services.EmailEnqueuer so services never import this package's machinery.
type Client struct {
	inner *asynq.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{inner: asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})}
}

func (c *Client) Close() error {
	return c.inner.Close()
}

func (c *Client) EnqueueEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(EmailDeliveryPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	_, err = c.inner.EnqueueContext(ctx, asynq.NewTask(TypeEmailDelivery, payload),
		asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
	return err
}

// EnqueueEditLockSweep schedules one sweep run after the given delay. The
// handler re-enqueues itself, so a single seed task keeps the sweep periodic.
// Each run is a fresh task: pinning a fixed task ID would make the in-handler
// re-enqueue collide with the still-active run and kill the chain.
func (c *Client) EnqueueEditLockSweep(delay time.Duration) error {
	_, err := c.inner.Enqueue(asynq.NewTask(TypeEditLockSweep, nil),
		asynq.ProcessIn(delay),
		asynq.Timeout(1*time.Minute))
	return err
}

// sweepScheduler schedules the next sweep run. Satisfied by *Client.
type sweepScheduler interface {
	EnqueueEditLockSweep(delay time.Duration) error
}

// TaskProcessor holds the dependencies the background handlers need.
type TaskProcessor struct {
	locks      services.IEditLockService
	sender     email.Sender
	scheduler  sweepScheduler
	sweepEvery time.Duration
	from       string
}

func NewTaskProcessor(locks services.IEditLockService, sender email.Sender, client *Client, cfg *config.Config) *TaskProcessor {
	return &TaskProcessor{
		locks:      locks,
		sender:     sender,
		scheduler:  client,
		sweepEvery: cfg.EditLockSweep,
		from:       cfg.SmtpFromAddress,
	}
}

// HandleEditLockSweep releases stale edit locks, then schedules the next run.
func (p *TaskProcessor) HandleEditLockSweep(ctx context.Context, t *asynq.Task) error {
	released, err := p.locks.Sweep(ctx)
	if err != nil {
		// Log and fall through to reschedule; the next cycle retries. Returning
		// the sweep error here would make asynq retry this run on top of the
		// successor we are about to enqueue, doubling the chain.
		log.Printf("ERROR: edit lock sweep failed: %v", err)
	} else if released > 0 {
		log.Printf("Edit lock sweep released %d stale lock(s)", released)
	}
	// If the re-enqueue fails nothing is scheduled, so an asynq retry of this
	// run is the recovery path.
	return p.scheduler.EnqueueEditLockSweep(p.sweepEvery)
}

// HandleEmailDelivery sends one queued email.
func (p *TaskProcessor) HandleEmailDelivery(ctx context.Context, t *asynq.Task) error {
	var payload EmailDeliveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("email delivery payload: %w: %w", asynq.SkipRetry, err)
	}

	raw := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		p.from, payload.To, payload.Subject, payload.Body))
	if err := p.sender.Send(ctx, []string{payload.To}, payload.Subject, raw); err != nil {
		return fmt.Errorf("email delivery to %s: %w", payload.To, err)
	}
	return nil
}

// SetupServer builds the asynq server and its handler mux.
func SetupServer(cfg *config.Config, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEditLockSweep, processor.HandleEditLockSweep)
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDelivery)
	return srv, mux
}
