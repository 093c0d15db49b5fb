package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/model"
	"github.com/dwarvesf/paywatch/internal/parser"
	"github.com/dwarvesf/paywatch/internal/publisher"
	"github.com/dwarvesf/paywatch/internal/store/paymentstatus"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
)

type eventOutcome int

const (
	outcomeProcessed eventOutcome = iota
	outcomeDuplicate
	outcomeIgnored
	outcomeFailed
)

func (c *Controller) ProcessNotification(ctx context.Context, eventKindHeader string, body []byte) (*IngestionReport, error) {
	kindLabel := strings.TrimSpace(eventKindHeader)

	report, err := c.processNotification(ctx, kindLabel, body)
	if err != nil {
		if !consts.EventKind(kindLabel).IsRecognized() {
			kindLabel = "unknown"
		}
		c.recordNotification(kindLabel, string(apperror.KindOf(err)))
		c.logger.Error("[ProcessNotification] notification rejected", map[string]string{
			"event_kind": kindLabel,
			"error":      err.Error(),
		})
		return nil, err
	}

	c.recordNotification(kindLabel, "accepted")
	c.logger.Info("[ProcessNotification] notification processed", map[string]string{
		"event_kind": report.EventKind,
		"hash":       report.TransactionHash,
		"processed":  strconv.Itoa(report.Processed),
		"duplicates": strconv.Itoa(report.Duplicates),
		"ignored":    strconv.Itoa(report.Ignored),
		"failed":     strconv.Itoa(report.Failed),
		"rejected":   strconv.Itoa(report.Rejected),
	})
	return report, nil
}

func (c *Controller) processNotification(ctx context.Context, header string, body []byte) (*IngestionReport, error) {
	if header == "" {
		return nil, apperror.InvalidInput("missing %s header", consts.EventTypeHeader)
	}
	kind := consts.EventKind(header)
	if !kind.IsRecognized() {
		return nil, apperror.InvalidInput("unsupported event kind %q", header)
	}

	var n model.Notification
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&n); err != nil {
		return nil, apperror.Wrap(err, apperror.KindParseFailure, "notification body is not valid JSON")
	}
	if err := c.validate.Struct(&n); err != nil {
		return nil, apperror.Wrap(err, apperror.KindParseFailure, "notification does not match the transaction schema")
	}

	res := parser.Parse(kind, &n, c.now())
	if res.Candidates == 0 {
		return nil, apperror.ParseFailure("notification has no destination address")
	}

	report := &IngestionReport{
		EventKind:       string(kind),
		TransactionHash: n.Hash,
		Rejected:        res.Rejected,
	}

	for _, ev := range res.Events {
		switch c.applyEvent(ctx, kind, ev) {
		case outcomeProcessed:
			report.Processed++
		case outcomeDuplicate:
			report.Processed++
			report.Duplicates++
		case outcomeIgnored:
			report.Ignored++
		case outcomeFailed:
			report.Failed++
		}
	}

	c.recordEvents(report)
	return report, nil
}

// applyEvent never returns an error: one address failing must not make the
// provider redeliver a notification that other addresses already applied.
func (c *Controller) applyEvent(ctx context.Context, kind consts.EventKind, ev model.ParsedEvent) eventOutcome {
	db := c.db.WithContext(ctx)

	monitored, err := c.store.PaymentStatus.IsMonitored(db, ev.Address)
	if err != nil {
		c.logApplyError("IsMonitored", ev, err)
		return outcomeFailed
	}
	if !monitored {
		c.logger.Debug("[applyEvent] address not monitored", map[string]string{
			"address": ev.Address,
			"hash":    ev.TransactionHash,
		})
		return outcomeIgnored
	}

	prev, err := c.store.PaymentStatus.Get(db, ev.Address)
	if err != nil {
		c.logApplyError("Get", ev, err)
		return outcomeFailed
	}

	confirmations := ev.Confirmations
	updated, err := c.store.PaymentStatus.ApplyTransition(db, ev.Address, paymentstatus.Transition{
		Status:         ev.Status,
		TransactionID:  &ev.TransactionHash,
		Confirmations:  &confirmations,
		AmountSatoshis: ev.TotalAmountSatoshis,
		Confidence:     ev.Confidence,
		IsDoubleSpend:  ev.IsDoubleSpend,
	})
	if err != nil {
		c.logApplyError("ApplyTransition", ev, err)
		return outcomeFailed
	}
	if !updated || prev == nil {
		// deleted or evicted between the two reads
		return outcomeIgnored
	}

	if isSameObservation(prev, ev) {
		return outcomeDuplicate
	}

	if prev.Status != ev.Status {
		c.logger.Info("[applyEvent] payment status changed", map[string]string{
			"address": ev.Address,
			"from":    string(prev.Status),
			"to":      string(ev.Status),
			"hash":    ev.TransactionHash,
		})
		if c.ingestionMetrics != nil {
			c.ingestionMetrics.RecordTransition(string(prev.Status), string(ev.Status))
		}
		c.publishStatusChanged(ctx, kind, prev.Status, ev)
	}

	return outcomeProcessed
}

// isSameObservation reports whether applying ev left the entry as it was,
// apart from last_updated.
func isSameObservation(prev *model.PaymentStatusEntry, ev model.ParsedEvent) bool {
	if prev.Status != ev.Status {
		return false
	}
	if prev.TransactionID == nil || *prev.TransactionID != ev.TransactionHash {
		return false
	}
	return prev.Confirmations != nil && *prev.Confirmations == ev.Confirmations
}

func (c *Controller) publishStatusChanged(ctx context.Context, kind consts.EventKind, from model.PaymentStatus, ev model.ParsedEvent) {
	event := publisher.PaymentStatusChanged{
		Address:        ev.Address,
		PreviousStatus: from,
		Status:         ev.Status,
		TransactionID:  ev.TransactionHash,
		Confirmations:  ev.Confirmations,
		EventKind:      string(kind),
		OccurredAt:     ev.ObservedAt.UnixMilli(),
	}
	switch {
	case ev.IsDoubleSpend:
		msg := consts.DoubleSpendErrorMessage
		event.ErrorMessage = &msg
	case ev.Status == model.PaymentStatusError:
		msg := consts.PaymentProcessingErrorMessage
		event.ErrorMessage = &msg
	}

	if err := c.publisher.PublishStatusChanged(ctx, event); err != nil {
		c.logger.Warn("[publishStatusChanged] failed to publish status change", map[string]string{
			"address": ev.Address,
			"status":  string(ev.Status),
			"error":   err.Error(),
		})
		return
	}
	if c.ingestionMetrics != nil {
		c.ingestionMetrics.RecordPublish(string(ev.Status))
	}
}

func (c *Controller) logApplyError(step string, ev model.ParsedEvent, err error) {
	c.logger.Error("[applyEvent]["+step+"]", map[string]string{
		"address": ev.Address,
		"hash":    ev.TransactionHash,
		"error":   err.Error(),
	})
}

func (c *Controller) recordNotification(kind, outcome string) {
	if c.ingestionMetrics == nil {
		return
	}
	c.ingestionMetrics.RecordNotification(kind, outcome)
}

func (c *Controller) recordEvents(r *IngestionReport) {
	if c.ingestionMetrics == nil {
		return
	}
	c.ingestionMetrics.RecordEvents("processed", r.Processed-r.Duplicates)
	c.ingestionMetrics.RecordEvents("duplicate", r.Duplicates)
	c.ingestionMetrics.RecordEvents("ignored", r.Ignored)
	c.ingestionMetrics.RecordEvents("failed", r.Failed)
	c.ingestionMetrics.RecordEvents("rejected", r.Rejected)
}
