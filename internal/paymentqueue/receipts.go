package paymentqueue

import (
	"encoding/json"
	"errors"

	"paystore/internal/constants"
	"paystore/internal/models"
	"paystore/internal/payment"

	"github.com/golang/glog"
	"github.com/nats-io/nats.go"
)

// ReceiptMessage is published for every outcome nobody was waiting on.
type ReceiptMessage struct {
	Type      string         `json:"type"`
	Receipt   models.Receipt `json:"receipt"`
	ErrorCode int            `json:"error_code,omitempty"`
	Error     string         `json:"error,omitempty"`
}

const (
	ReceiptRestored = "restored"
	ReceiptFailed   = "failed"
)

// ReceiptPublisher is a payment.Delegate that forwards outcomes to NATS.
type ReceiptPublisher struct {
	nc      *nats.Conn
	subject string
}

var _ payment.Delegate = (*ReceiptPublisher)(nil)

func NewReceiptPublisher(nc *nats.Conn, prefix string) *ReceiptPublisher {
	if prefix == "" {
		prefix = constants.DefaultSubjectPrefix
	}
	return &ReceiptPublisher{nc: nc, subject: constants.Subject(prefix, constants.SubjectReceipts)}
}

func (p *ReceiptPublisher) OnRestore(receipt models.Receipt) {
	p.publish(ReceiptMessage{Type: ReceiptRestored, Receipt: receipt})
}

func (p *ReceiptPublisher) OnFailure(receipt models.Receipt, err error) {
	msg := ReceiptMessage{Type: ReceiptFailed, Receipt: receipt}
	if err != nil {
		msg.Error = err.Error()
		var pe *payment.Error
		if errors.As(err, &pe) {
			msg.ErrorCode = pe.Code
		}
	}
	p.publish(msg)
}

func (p *ReceiptPublisher) publish(msg ReceiptMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		glog.Errorf("marshal receipt for order %s, err:%v", msg.Receipt.OrderID, err)
		return
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		glog.Errorf("publish receipt for order %s to %s, err:%v", msg.Receipt.OrderID, p.subject, err)
		return
	}
	glog.V(2).Infof("published %s receipt for order %s", msg.Type, msg.Receipt.OrderID)
}
