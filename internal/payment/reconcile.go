package payment

import (
	"context"
	"sort"

	"paystore/internal/models"

	"github.com/golang/glog"
)

// HandleTransactions reconciles one batch of payment queue events against the
// local orders, most recent transaction first. Every terminal event is
// finalized exactly once, after its store mutation, whatever the outcome.
// It is safe to call from any goroutine.
func (s *Service) HandleTransactions(ctx context.Context, events []models.TransactionEvent) {
	for _, ev := range sortByDateDesc(events) {
		switch ev.State {
		case models.TransactionPurchasing:
			// still in progress, the platform reports it again once terminal
			glog.V(2).Infof("transaction for product %s is purchasing", ev.ProductID)
			continue
		case models.TransactionDeferred, models.TransactionRestored:
			glog.V(2).Infof("transaction %s for product %s is %s", ev.TransactionID, ev.ProductID, ev.State)
			s.record(ctx, EntryIgnored, &models.OrderRecord{ProductID: ev.ProductID, TransactionID: ev.TransactionID}, string(ev.State))
		case models.TransactionFailed:
			s.handleFailed(ctx, ev)
		case models.TransactionPurchased:
			s.handlePurchased(ctx, ev)
		default:
			glog.Warningf("unknown transaction state %q for product %s, ignoring", ev.State, ev.ProductID)
			continue
		}
		s.finalize(ctx, ev)
	}
}

func (s *Service) handlePurchased(ctx context.Context, ev models.TransactionEvent) {
	if ev.TransactionID == "" {
		glog.Warningf("purchased event for product %s carries no transaction id, ignoring", ev.ProductID)
		return
	}

	s.mu.Lock()
	rec, err := s.orders.FindPending(ctx, ev.ProductID)
	if err != nil {
		s.mu.Unlock()
		glog.Errorf("find pending order for product %s, err:%v", ev.ProductID, err)
		return
	}
	if rec == nil {
		s.mu.Unlock()
		// duplicate delivery, already completed, or never initiated here
		glog.Infof("no pending order for product %s, transaction %s acknowledged only", ev.ProductID, ev.TransactionID)
		s.record(ctx, EntryIgnored, &models.OrderRecord{ProductID: ev.ProductID, TransactionID: ev.TransactionID}, "purchased without pending order")
		return
	}

	rec.TransactionID = ev.TransactionID
	if err := s.orders.PutRecord(ctx, rec); err != nil {
		glog.Errorf("persist completed order %s, err:%v", rec.OrderID, err)
	}
	ch := s.takeWaiterLocked(rec.OrderID)
	s.mu.Unlock()

	glog.Infof("order %s completed with transaction %s", rec.OrderID, rec.TransactionID)
	s.record(ctx, EntryCompleted, rec, "")
	s.deliverSuccess(ch, rec.Receipt())
}

func (s *Service) handleFailed(ctx context.Context, ev models.TransactionEvent) {
	s.mu.Lock()
	rec, err := s.orders.FindPending(ctx, ev.ProductID)
	if err != nil {
		s.mu.Unlock()
		glog.Errorf("find pending order for product %s, err:%v", ev.ProductID, err)
		return
	}
	if rec == nil {
		s.mu.Unlock()
		glog.Infof("failed transaction for product %s has no pending order", ev.ProductID)
		return
	}

	if err := s.orders.RemoveRecord(ctx, rec.OrderID); err != nil {
		glog.Errorf("remove failed order %s, err:%v", rec.OrderID, err)
	}
	ch := s.takeWaiterLocked(rec.OrderID)
	s.mu.Unlock()

	perr := translateEventError(ev)
	glog.Infof("order %s failed: %v", rec.OrderID, perr)
	s.record(ctx, EntryFailed, rec, perr.Error())
	s.deliverFailure(ch, rec.Receipt(), perr)
}

func (s *Service) finalize(ctx context.Context, ev models.TransactionEvent) {
	if err := s.queue.Finalize(ctx, ev); err != nil {
		glog.Errorf("finalize transaction %s for product %s, err:%v", ev.TransactionID, ev.ProductID, err)
		return
	}
	s.record(ctx, EntryFinalized, &models.OrderRecord{ProductID: ev.ProductID, TransactionID: ev.TransactionID}, string(ev.State))
}

func translateEventError(ev models.TransactionEvent) *Error {
	if ev.Error == nil {
		return TranslatePlatformError(PlatformCodeUnknown, "")
	}
	return TranslatePlatformError(ev.Error.Code, ev.Error.Message)
}

// sortByDateDesc orders events newest first. Undated events keep their
// relative order after all dated ones.
func sortByDateDesc(events []models.TransactionEvent) []models.TransactionEvent {
	sorted := make([]models.TransactionEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].TransactionDate, sorted[j].TransactionDate
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})
	return sorted
}
