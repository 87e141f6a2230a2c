package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectJobCompleted carries a JobEvent for every conversion run that
// produced a project, including runs with partial failures.
const SubjectJobCompleted = "vb6.convert.completed"

// SubjectJobFailed carries a JobEvent for runs that aborted before any
// output could be produced.
const SubjectJobFailed = "vb6.convert.failed"

// JobEvent is emitted when a conversion job finishes, so downstream
// consumers can track migration progress without polling the API.
type JobEvent struct {
	JobID       string    `json:"job_id"`
	ProjectName string    `json:"project_name"`
	Namespace   string    `json:"namespace"`
	Source      string    `json:"source"`
	Successful  int       `json:"successful_files"`
	Failed      int       `json:"failed_files"`
	Large       int       `json:"large_files_processed"`
	Warning     string    `json:"warning,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) PublishJobCompleted(ev JobEvent) error {
	return c.Publish(SubjectJobCompleted, ev)
}

func (c *Client) PublishJobFailed(ev JobEvent) error {
	return c.Publish(SubjectJobFailed, ev)
}

// Close drains buffered publishes before closing the connection.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
