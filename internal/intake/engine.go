package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/cybersathi/internal/complaints"
	"github.com/wolfman30/cybersathi/internal/directory"
	"github.com/wolfman30/cybersathi/internal/observability/metrics"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

var engineTracer = otel.Tracer("cybersathi.internal.intake")

// ComplaintStore persists registered complaints and answers status checks.
type ComplaintStore interface {
	Create(ctx context.Context, c *complaints.Complaint) (*complaints.Complaint, error)
	FindByPhoneOrTicket(ctx context.Context, query string) (*complaints.Complaint, error)
}

// Messenger delivers a text message to a citizen.
type Messenger interface {
	Send(ctx context.Context, to, text string) error
}

// MediaDownloader resolves a media reference into a stored file path.
type MediaDownloader interface {
	Download(ctx context.Context, ref MediaRef) (string, error)
}

// StationResolver maps a free-text location to the nearest police station.
type StationResolver interface {
	Resolve(hint string) directory.Station
}

// GrievanceResolver maps free text to a platform grievance advisory.
type GrievanceResolver interface {
	Resolve(hint string) string
}

// ComplaintNotifier is told about every registered complaint (e.g. email).
type ComplaintNotifier interface {
	ComplaintRegistered(ctx context.Context, c *complaints.Complaint) error
}

// MessageRecorder keeps a log of inbound citizen text.
type MessageRecorder interface {
	Record(ctx context.Context, sender, text string) error
}

// EngineConfig wires the engine's collaborators. Sessions, Complaints and
// Messenger are required.
type EngineConfig struct {
	Sessions   SessionStore
	Complaints ComplaintStore
	Messenger  Messenger
	Media      MediaDownloader
	Stations   StationResolver
	Grievances GrievanceResolver
	Notifier   ComplaintNotifier
	Recorder   MessageRecorder
	Tickets    *TicketGenerator
	Metrics    *metrics.IntakeMetrics
	Logger     *logging.Logger

	OutboundTimeout time.Duration
	MediaTimeout    time.Duration
}

// Engine executes transitions produced by Step against the collaborators.
type Engine struct {
	sessions   SessionStore
	complaints ComplaintStore
	messenger  Messenger
	media      MediaDownloader
	stations   StationResolver
	grievances GrievanceResolver
	notifier   ComplaintNotifier
	recorder   MessageRecorder
	tickets    *TicketGenerator
	metrics    *metrics.IntakeMetrics
	logger     *logging.Logger

	outboundTimeout time.Duration
	mediaTimeout    time.Duration
}

const ticketAttempts = 3

// NewEngine builds an engine. It panics when a required collaborator is missing.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Sessions == nil {
		panic("intake: session store required")
	}
	if cfg.Complaints == nil {
		panic("intake: complaint store required")
	}
	if cfg.Messenger == nil {
		panic("intake: messenger required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Tickets == nil {
		cfg.Tickets = NewTicketGenerator()
	}
	if cfg.OutboundTimeout <= 0 {
		cfg.OutboundTimeout = 10 * time.Second
	}
	if cfg.MediaTimeout <= 0 {
		cfg.MediaTimeout = 20 * time.Second
	}
	return &Engine{
		sessions:        cfg.Sessions,
		complaints:      cfg.Complaints,
		messenger:       cfg.Messenger,
		media:           cfg.Media,
		stations:        cfg.Stations,
		grievances:      cfg.Grievances,
		notifier:        cfg.Notifier,
		recorder:        cfg.Recorder,
		tickets:         cfg.Tickets,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger.Component("intake"),
		outboundTimeout: cfg.OutboundTimeout,
		mediaTimeout:    cfg.MediaTimeout,
	}
}

// Handle processes one inbound event while holding the sender's lock. The
// returned error is non-nil only when a storage collaborator failed; the
// citizen has already been sent a fixed retry message in that case.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	if strings.TrimSpace(ev.Sender) == "" {
		e.logger.Warn("dropping event without sender", "message_id", ev.MessageID)
		return nil
	}
	if ev.Kind == EventMalformed {
		e.logger.Warn("dropping malformed event", "message_id", ev.MessageID, "sender", ev.Sender)
		e.metrics.ObserveEvent(ev.Kind.String(), "ignored")
		return nil
	}
	ctx, span := engineTracer.Start(ctx, "intake.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("cybersathi.event_kind", ev.Kind.String()),
		attribute.String("cybersathi.message_id", ev.MessageID),
	)

	unlock := e.sessions.Lock(ev.Sender)
	defer unlock()

	e.record(ctx, ev)

	current, created := e.sessions.GetOrCreate(ev.Sender)
	from := "none"
	var tr Transition
	if created {
		tr = Step(nil, ev)
	} else {
		from = current.Stage.String()
		tr = Step(&current, ev)
	}

	replies := tr.Replies
	var registered *complaints.Complaint
	switch tr.Command {
	case CommandRegister:
		saved, out, err := e.register(ctx, ev.Sender, tr)
		if err != nil {
			span.RecordError(err)
			e.metrics.ObserveEvent(ev.Kind.String(), "register_failed")
			e.send(ctx, ev.Sender, msgRegisterRetry)
			return err
		}
		registered, replies = saved, out
	case CommandLookup:
		out, err := e.lookup(ctx, tr.Query)
		if err != nil {
			span.RecordError(err)
			e.metrics.ObserveEvent(ev.Kind.String(), "lookup_failed")
			e.send(ctx, ev.Sender, msgLookupRetry)
			return err
		}
		replies = out
	}

	to := "removed"
	if tr.Remove {
		e.sessions.Remove(ev.Sender)
	} else {
		e.sessions.Save(ev.Sender, tr.Next)
		to = tr.Next.Stage.String()
	}
	e.metrics.ObserveTransition(from, to)
	e.metrics.ObserveEvent(ev.Kind.String(), "handled")
	e.logger.Debug("event handled", "sender", ev.Sender, "from", from, "to", to)

	for _, reply := range replies {
		e.send(ctx, ev.Sender, reply)
	}
	if registered != nil {
		e.notify(ctx, registered)
	}
	return nil
}

func (e *Engine) register(ctx context.Context, sender string, tr Transition) (*complaints.Complaint, []string, error) {
	fields := tr.Next.Fields
	c := &complaints.Complaint{
		SenderID:      sender,
		Name:          fields[FieldName],
		FatherName:    fields[FieldFatherName],
		DOB:           fields[FieldDOB],
		Phone:         fields[FieldPhone],
		Email:         fields[FieldEmail],
		Village:       fields[FieldVillage],
		PostOffice:    fields[FieldPostOffice],
		PoliceStation: fields[FieldPoliceStation],
		District:      fields[FieldDistrict],
		Pincode:       fields[FieldPincode],
		FraudCategory: fields[FieldFraudCategory],
		Description:   fields[FieldDescription],
		Status:        complaints.StatusRegistered,
	}
	if tr.Media != nil {
		c.MediaPath = e.download(ctx, *tr.Media)
	}

	var saved *complaints.Complaint
	var err error
	for attempt := 0; attempt < ticketAttempts; attempt++ {
		c.TicketNumber = e.tickets.Generate()
		saved, err = e.complaints.Create(ctx, c)
		if !errors.Is(err, complaints.ErrDuplicateTicket) {
			break
		}
	}
	if err != nil {
		e.logger.Error("failed to persist complaint", "error", err, "sender", sender)
		return nil, nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	e.metrics.ObserveComplaint(saved.FraudCategory)
	e.logger.Info("complaint registered", "ticket", saved.TicketNumber, "sender", sender, "category", saved.FraudCategory)

	replies := []string{confirmationText(saved.TicketNumber)}
	if e.stations != nil {
		st := e.stations.Resolve(strings.Join([]string{saved.PoliceStation, saved.District, saved.Village}, " "))
		replies = append(replies, stationText(st.Name, st.Phone))
	}
	if e.grievances != nil {
		replies = append(replies, e.grievances.Resolve(saved.FraudCategory+" "+saved.Description))
	}
	return saved, replies, nil
}

// notify runs after the citizen's replies so a slow email provider cannot
// delay the confirmation.
func (e *Engine) notify(ctx context.Context, c *complaints.Complaint) {
	if e.notifier == nil {
		return
	}
	err := e.bounded(ctx, e.outboundTimeout, "email", func(ctx context.Context) error {
		return e.notifier.ComplaintRegistered(ctx, c)
	})
	if err != nil {
		e.logger.Warn("complaint notification failed", "error", err, "ticket", c.TicketNumber)
	}
}

func (e *Engine) lookup(ctx context.Context, query string) ([]string, error) {
	found, err := e.complaints.FindByPhoneOrTicket(ctx, query)
	if errors.Is(err, complaints.ErrComplaintNotFound) {
		e.logger.Info("status lookup found nothing", "by_ticket", LooksLikeTicket(query))
		return []string{msgNotFound}, nil
	}
	if err != nil {
		e.logger.Error("status lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	return []string{statusSummary(found)}, nil
}

// download fetches an attachment. Failures are logged and yield an empty
// path so registration can proceed without the file.
func (e *Engine) download(ctx context.Context, ref MediaRef) string {
	if e.media == nil {
		return ""
	}
	var path string
	err := e.bounded(ctx, e.mediaTimeout, "media", func(ctx context.Context) error {
		var err error
		path, err = e.media.Download(ctx, ref)
		return err
	})
	if err != nil {
		e.logger.Warn("media download failed", "error", err, "media_id", ref.ID)
		return ""
	}
	return path
}

// send delivers one reply. Failures are logged and never retried.
func (e *Engine) send(ctx context.Context, to, text string) {
	err := e.bounded(ctx, e.outboundTimeout, "outbound", func(ctx context.Context) error {
		return e.messenger.Send(ctx, to, text)
	})
	if err != nil {
		e.metrics.ObserveOutbound("failed")
		e.logger.Warn("outbound send failed", "error", err, "to", to)
		return
	}
	e.metrics.ObserveOutbound("sent")
}

// bounded runs fn with a deadline and stops waiting once it passes, even if
// fn ignores its context.
func (e *Engine) bounded(ctx context.Context, d time.Duration, collaborator string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()
	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		e.metrics.ObserveTimeout(collaborator)
		return fmt.Errorf("%w: %s: %w", ErrCollaboratorTimeout, collaborator, err)
	}
	return err
}

func (e *Engine) record(ctx context.Context, ev Event) {
	if e.recorder == nil || ev.Kind != EventText || strings.TrimSpace(ev.Text) == "" {
		return
	}
	err := e.bounded(ctx, e.outboundTimeout, "messagelog", func(ctx context.Context) error {
		return e.recorder.Record(ctx, ev.Sender, ev.Text)
	})
	if err != nil {
		e.logger.Warn("failed to record message", "error", err, "sender", ev.Sender)
	}
}
