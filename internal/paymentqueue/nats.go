package paymentqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paystore/internal/constants"
	"paystore/internal/models"

	"github.com/golang/glog"
	"github.com/nats-io/nats.go"
)

// Config holds NATS configuration
type Config struct {
	Host           string
	Port           string
	Username       string
	Password       string
	SubjectPrefix  string
	RequestTimeout time.Duration
}

// statusReply answers a request on the status subject
type statusReply struct {
	CanMakePayments bool `json:"can_make_payments"`
}

// transactionBatch is one delivery on the transactions subject
type transactionBatch struct {
	Transactions []models.TransactionEvent `json:"transactions"`
}

// NatsQueue bridges the platform payment queue over NATS subjects.
type NatsQueue struct {
	nc      *nats.Conn
	prefix  string
	timeout time.Duration
}

// Connect establishes the NATS connection.
func Connect(cfg Config) (*NatsQueue, error) {
	natsURL := fmt.Sprintf("nats://%s:%s", cfg.Host, cfg.Port)

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	opts = append(opts,
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			glog.Warningf("[NATS] Disconnected from %s: %v", nc.ConnectedUrl(), err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			glog.Infof("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			glog.Infof("[NATS] Connection closed: %v", nc.LastError())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			glog.Errorf("[NATS] Error: %v", err)
		}),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
	)

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
	}
	glog.Infof("Connected to NATS at %s", natsURL)

	return New(nc, cfg.SubjectPrefix, cfg.RequestTimeout), nil
}

// New wraps an established connection.
func New(nc *nats.Conn, prefix string, timeout time.Duration) *NatsQueue {
	if prefix == "" {
		prefix = constants.DefaultSubjectPrefix
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &NatsQueue{nc: nc, prefix: prefix, timeout: timeout}
}

func (q *NatsQueue) subject(name string) string {
	return constants.Subject(q.prefix, name)
}

// Conn exposes the connection for publishers sharing it.
func (q *NatsQueue) Conn() *nats.Conn {
	return q.nc
}

// CanMakePayments asks the platform bridge; no answer counts as not allowed.
func (q *NatsQueue) CanMakePayments(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	msg, err := q.nc.RequestWithContext(ctx, q.subject(constants.SubjectStatus), nil)
	if err != nil {
		glog.Warningf("payment status request failed: %v", err)
		return false
	}

	var reply statusReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		glog.Warningf("payment status reply unreadable: %v", err)
		return false
	}
	return reply.CanMakePayments
}

func (q *NatsQueue) Submit(ctx context.Context, product models.Product) error {
	return q.publish(constants.SubjectSubmit, product)
}

func (q *NatsQueue) Finalize(ctx context.Context, event models.TransactionEvent) error {
	return q.publish(constants.SubjectFinalize, event)
}

func (q *NatsQueue) publish(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", name, err)
	}

	subject := q.subject(name)
	glog.V(2).Infof("publish %s: %s", subject, string(data))
	if err := q.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish message to NATS: %w", err)
	}
	return nil
}

// Subscribe delivers every batch on the transactions subject to handler.
// NATS runs handlers of one subscription sequentially on its own goroutine.
func (q *NatsQueue) Subscribe(handler func([]models.TransactionEvent)) (func(), error) {
	subject := q.subject(constants.SubjectTransactions)
	sub, err := q.nc.Subscribe(subject, func(msg *nats.Msg) {
		events, err := decodeBatch(msg.Data)
		if err != nil {
			glog.Errorf("Error parsing transaction batch on %s: %v", msg.Subject, err)
			return
		}
		glog.V(2).Infof("received %d transactions from %s", len(events), msg.Subject)
		handler(events)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}
	glog.Infof("Subscribed to NATS subject: %s", subject)

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			glog.Warningf("unsubscribe %s: %v", subject, err)
		}
	}, nil
}

func (q *NatsQueue) Close() {
	if q.nc != nil {
		q.nc.Close()
	}
}

func decodeBatch(data []byte) ([]models.TransactionEvent, error) {
	var batch transactionBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, err
	}
	return batch.Transactions, nil
}
