package queue

import (
	"context"

	"github.com/hibiken/asynq"
)

// Client binds an asynq client to the configured retry budget so callers can
// enqueue imports without carrying queue settings around.
type Client struct {
	client     *asynq.Client
	maxRetries int
}

// NewClient constructs a Client.
func NewClient(client *asynq.Client, maxRetries int) *Client {
	return &Client{client: client, maxRetries: maxRetries}
}

// EnqueueImport schedules the import job for a freshly created task.
func (c *Client) EnqueueImport(ctx context.Context, payload ImportPayload) error {
	return EnqueueImport(ctx, c.client, payload, c.maxRetries)
}
