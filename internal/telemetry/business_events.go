package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents opens spans for domain operations (messages, notifications, jobs),
// one level above HTTP and database spans.
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{tracer: otel.Tracer("business-events")}
}

// TraceSendMessage creates a span for a direct message send
func (be *BusinessEvents) TraceSendMessage(ctx context.Context, senderID, recipientID string, hasAttachment bool) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "messages.send",
		trace.WithAttributes(
			attribute.String("message.sender_id", senderID),
			attribute.String("message.recipient_id", recipientID),
			attribute.Bool("message.has_attachment", hasAttachment),
		),
	)
}

// TraceThread creates a span for loading or updating the thread between userID and partnerID.
// operation is "get", "mark_read" or "delete".
func (be *BusinessEvents) TraceThread(ctx context.Context, operation, userID, partnerID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "messages.thread."+operation,
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("thread.partner_id", partnerID),
		),
	)
}

// TraceInbox creates a span for inbox reads (conversations, unread count)
func (be *BusinessEvents) TraceInbox(ctx context.Context, operation, userID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "messages.inbox."+operation,
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
}

// TraceNotify creates a span for notification fan-out
func (be *BusinessEvents) TraceNotify(ctx context.Context, notificationType, recipientID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "notifications.notify",
		trace.WithAttributes(
			attribute.String("notification.type", notificationType),
			attribute.String("notification.recipient_id", recipientID),
		),
	)
}

// TraceJobApplication creates a span for job application changes.
// operation is "apply", "status" or "withdraw".
func (be *BusinessEvents) TraceJobApplication(ctx context.Context, operation, jobID, userID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "jobs.application."+operation,
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("user.id", userID),
		),
	)
}

// RecordError records err on span. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

// RecordSuccess marks span as successful, with an optional item count.
func RecordSuccess(span trace.Span, itemCount int) {
	if itemCount > 0 {
		span.SetAttributes(attribute.Int("result.item_count", itemCount))
	}
	span.SetStatus(codes.Ok, "")
}

// RecordDelivery annotates span with the realtime event pushed as a result of it.
func RecordDelivery(span trace.Span, eventType, userID string) {
	span.AddEvent("realtime.emit", trace.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("event.user_id", userID),
	))
}
