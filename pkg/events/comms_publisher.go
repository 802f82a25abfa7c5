package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/openstack-gateway/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// GlobalChangeSubject overrides the global change event subject (e.g. from GATEWAY_CHANGE_EVENT_SUBJECT).
	GlobalChangeSubject string
	// Subject builds the granular subject for a family and resource.
	Subject func(family, resource string) string
}

// CommsPublisher publishes resource change events to COMMS subjects.
type CommsPublisher struct {
	nc                  *comms.Conn
	globalChangeSubject string
	subject             func(family, resource string) string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	p := &CommsPublisher{
		nc:                  nc,
		globalChangeSubject: commsutil.SubjectChangeEvent,
		subject:             commsutil.BuildChangeSubject,
	}
	if opts != nil {
		if opts.GlobalChangeSubject != "" {
			p.globalChangeSubject = opts.GlobalChangeSubject
		}
		if opts.Subject != nil {
			p.subject = opts.Subject
		}
	}
	return p
}

// PublishChanged publishes a ResourceChangedEvent to both the granular
// and global change event subjects.
func (p *CommsPublisher) PublishChanged(_ context.Context, event *ResourceChangedEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	granularSubject := p.subject(event.Family, event.Resource)
	if err := p.nc.Publish(granularSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, granularSubject, err))
		return err
	}

	if err := p.nc.Publish(p.globalChangeSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.globalChangeSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published change event for %s.%s", commsPublisherLogPrefix, event.Family, event.Resource))
	return nil
}
