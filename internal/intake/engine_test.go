package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/cybersathi/internal/complaints"
	"github.com/wolfman30/cybersathi/internal/directory"
)

type sentMessage struct {
	to   string
	text string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
	// block makes Send wait for ctx cancellation.
	block bool
}

func (f *fakeMessenger) Send(ctx context.Context, to, text string) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{to: to, text: text})
	return nil
}

func (f *fakeMessenger) to(sender string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.to == sender {
			out = append(out, m.text)
		}
	}
	return out
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

type flakyStore struct {
	*complaints.InMemoryRepository
	mu        sync.Mutex
	createErr []error
	lookupErr error
	creates   int
}

func (s *flakyStore) Create(ctx context.Context, c *complaints.Complaint) (*complaints.Complaint, error) {
	s.mu.Lock()
	s.creates++
	var err error
	if len(s.createErr) > 0 {
		err, s.createErr = s.createErr[0], s.createErr[1:]
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.InMemoryRepository.Create(ctx, c)
}

func (s *flakyStore) FindByPhoneOrTicket(ctx context.Context, q string) (*complaints.Complaint, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.InMemoryRepository.FindByPhoneOrTicket(ctx, q)
}

type fakeMedia struct {
	mu   sync.Mutex
	path string
	err  error
	refs []MediaRef
}

func (f *fakeMedia) Download(ctx context.Context, ref MediaRef) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs = append(f.refs, ref)
	return f.path, f.err
}

type fakeNotifier struct {
	mu         sync.Mutex
	registered []string
	// hang ignores ctx and sleeps, like a stalled provider.
	hang   time.Duration
	before func()
}

func (f *fakeNotifier) ComplaintRegistered(ctx context.Context, c *complaints.Complaint) error {
	if f.before != nil {
		f.before()
	}
	time.Sleep(f.hang)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, c.TicketNumber)
	return errors.New("smtp down")
}

func (f *fakeNotifier) tickets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.registered...)
}

type fakeRecorder struct {
	mu    sync.Mutex
	texts []string
	hang  time.Duration
}

func (f *fakeRecorder) Record(ctx context.Context, sender, text string) error {
	time.Sleep(f.hang)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeRecorder) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type harness struct {
	engine    *Engine
	sessions  *MemorySessionStore
	store     *flakyStore
	messenger *fakeMessenger
	media     *fakeMedia
	notifier  *fakeNotifier
	recorder  *fakeRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sessions:  NewMemorySessionStore(),
		store:     &flakyStore{InMemoryRepository: complaints.NewInMemoryRepository()},
		messenger: &fakeMessenger{},
		media:     &fakeMedia{path: "downloads/m1.jpg"},
		notifier:  &fakeNotifier{},
		recorder:  &fakeRecorder{},
	}
	h.engine = NewEngine(EngineConfig{
		Sessions:        h.sessions,
		Complaints:      h.store,
		Messenger:       h.messenger,
		Media:           h.media,
		Stations:        directory.NewStationDirectory(nil),
		Grievances:      directory.NewGrievanceDirectory(nil),
		Notifier:        h.notifier,
		Recorder:        h.recorder,
		OutboundTimeout: time.Second,
		MediaTimeout:    time.Second,
	})
	return h
}

func (h *harness) send(t *testing.T, sender, text string) {
	t.Helper()
	require.NoError(t, h.engine.Handle(context.Background(), Event{Kind: EventText, Sender: sender, Text: text}))
}

func (h *harness) stage(t *testing.T, sender string) Stage {
	t.Helper()
	s, ok := h.sessions.Get(sender)
	require.True(t, ok, "expected a session for %s", sender)
	return s.Stage
}

func (h *harness) seed(sender string, stage Stage, fields map[string]string) {
	s := NewSession(time.Now())
	s.Stage = stage
	for k, v := range fields {
		s.Fields[k] = v
	}
	h.sessions.Save(sender, s)
}

// walkToDesc drives sender through the form up to the description prompt.
func (h *harness) walkToDesc(t *testing.T, sender string) {
	t.Helper()
	steps := []struct {
		text string
		want Stage
	}{
		{"hi", StageMenu},
		{"a", StageName},
		{"Rahul", StageFather},
		{"Suresh", StageDOB},
		{"01-01-1990", StagePhone},
		{"+919876543210", StageEmail},
		{"rahul@example.com", StageVillage},
		{"Patia", StagePostOffice},
		{"KIIT", StagePoliceStation},
		{"Infocity", StageDistrict},
		{"Bhubaneswar", StagePincode},
		{"751001", StageFraud},
		{"1", StageDesc},
	}
	for _, step := range steps {
		h.send(t, sender, step.text)
		require.Equal(t, step.want, h.stage(t, sender), "after %q", step.text)
	}
}

func TestEngine_Scenario1_FullComplaint(t *testing.T) {
	h := newHarness(t)

	h.send(t, "S1", "hi")
	assert.Equal(t, []string{msgMenu}, h.messenger.to("S1"))
	h.sessions.Remove("S1")

	h.walkToDesc(t, "S1")
	fields, _ := h.sessions.Get("S1")
	assert.Equal(t, CategoryUPIBanking, fields.Fields[FieldFraudCategory])

	h.messenger.reset()
	h.send(t, "S1", "Rs 20,000 debited through a fake UPI collect request")

	_, ok := h.sessions.Get("S1")
	assert.False(t, ok, "session must be removed after registration")

	list, err := h.store.List(context.Background(), complaints.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	c := list[0]
	assert.Regexp(t, TicketPattern, c.TicketNumber)
	assert.Equal(t, "Rahul", c.Name)
	assert.Equal(t, "Suresh", c.FatherName)
	assert.Equal(t, "+919876543210", c.Phone)
	assert.Equal(t, "751001", c.Pincode)
	assert.Equal(t, CategoryUPIBanking, c.FraudCategory)
	assert.Equal(t, complaints.StatusRegistered, c.Status)
	assert.Empty(t, c.MediaPath)

	replies := h.messenger.to("S1")
	require.Len(t, replies, 3)
	assert.Contains(t, replies[0], c.TicketNumber)
	assert.Contains(t, replies[1], "Bhubaneswar Police Station")
	assert.Contains(t, replies[1], "+916742537777")
	assert.Contains(t, replies[2], "cybercrime.gov.in")

	assert.Equal(t, []string{c.TicketNumber}, h.notifier.tickets(), "notifier failure must not block registration")
	assert.Contains(t, h.recorder.recorded(), "Rahul")
}

func TestEngine_Scenario2_StatusNotFound(t *testing.T) {
	h := newHarness(t)
	h.send(t, "S2", "hi")
	h.send(t, "S2", "b")
	assert.Equal(t, StageStatus, h.stage(t, "S2"))

	h.messenger.reset()
	h.send(t, "S2", "CYB-20990101-FFFFFF")

	assert.Equal(t, []string{msgNotFound}, h.messenger.to("S2"))
	_, ok := h.sessions.Get("S2")
	assert.False(t, ok)
}

func TestEngine_StatusFound(t *testing.T) {
	h := newHarness(t)
	h.walkToDesc(t, "S1")
	h.send(t, "S1", "lost money")
	list, _ := h.store.List(context.Background(), complaints.ListFilter{})
	require.Len(t, list, 1)

	h.send(t, "S1", "hi")
	h.send(t, "S1", "b")
	h.messenger.reset()
	h.send(t, "S1", "9876543210")

	replies := h.messenger.to("S1")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], list[0].TicketNumber)
	assert.Contains(t, replies[0], "Status: Registered")
}

func TestEngine_Scenario3_InvalidPhone(t *testing.T) {
	h := newHarness(t)
	h.seed("S3", StagePhone, map[string]string{FieldName: "Asha"})

	h.send(t, "S3", "12345")
	assert.Equal(t, StagePhone, h.stage(t, "S3"))
	assert.Equal(t, []string{msgInvalidPhone}, h.messenger.to("S3"))

	h.send(t, "S3", "+919876543210")
	assert.Equal(t, StageEmail, h.stage(t, "S3"))
	s, _ := h.sessions.Get("S3")
	assert.Equal(t, "+919876543210", s.Fields[FieldPhone])
}

func TestEngine_Scenario4_InvalidPincode(t *testing.T) {
	h := newHarness(t)
	h.seed("S4", StagePincode, nil)

	h.send(t, "S4", "ABCDE")
	assert.Equal(t, StagePincode, h.stage(t, "S4"))
	s, _ := h.sessions.Get("S4")
	assert.NotContains(t, s.Fields, FieldPincode)

	h.send(t, "S4", "751001")
	assert.Equal(t, StageFraud, h.stage(t, "S4"))
}

func TestEngine_ReplayedDescriptionDoesNotDuplicate(t *testing.T) {
	h := newHarness(t)
	h.walkToDesc(t, "S1")

	ev := Event{Kind: EventText, Sender: "S1", MessageID: "wamid.1", Text: "fake loan app threats"}
	require.NoError(t, h.engine.Handle(context.Background(), ev))
	h.messenger.reset()
	require.NoError(t, h.engine.Handle(context.Background(), ev))

	list, _ := h.store.List(context.Background(), complaints.ListFilter{})
	assert.Len(t, list, 1)
	assert.Equal(t, StageMenu, h.stage(t, "S1"))
	assert.Equal(t, []string{msgMenu}, h.messenger.to("S1"))
}

func TestEngine_MediaDescription(t *testing.T) {
	h := newHarness(t)
	h.walkToDesc(t, "S1")

	ev := Event{Kind: EventImage, Sender: "S1", Media: &MediaRef{ID: "m1", MimeType: "image/jpeg"}}
	require.NoError(t, h.engine.Handle(context.Background(), ev))

	list, _ := h.store.List(context.Background(), complaints.ListFilter{})
	require.Len(t, list, 1)
	assert.Equal(t, "downloads/m1.jpg", list[0].MediaPath)
	assert.Equal(t, placeholderImage, list[0].Description)
	require.Len(t, h.media.refs, 1)
	assert.Equal(t, "m1", h.media.refs[0].ID)
}

func TestEngine_MediaDownloadFailureStillRegisters(t *testing.T) {
	h := newHarness(t)
	h.media.err = errors.New("graph api 500")
	h.walkToDesc(t, "S1")

	ev := Event{Kind: EventDocument, Sender: "S1", Media: &MediaRef{ID: "m9", Caption: "bank statement"}}
	require.NoError(t, h.engine.Handle(context.Background(), ev))

	list, _ := h.store.List(context.Background(), complaints.ListFilter{})
	require.Len(t, list, 1)
	assert.Empty(t, list[0].MediaPath)
	assert.Equal(t, "bank statement", list[0].Description)
}

func TestEngine_PersistenceFailureKeepsDescStage(t *testing.T) {
	h := newHarness(t)
	h.walkToDesc(t, "S1")
	h.store.createErr = []error{errors.New("connection refused")}
	h.messenger.reset()

	err := h.engine.Handle(context.Background(), Event{Kind: EventText, Sender: "S1", Text: "money lost"})
	require.ErrorIs(t, err, ErrRegistrationFailed)

	assert.Equal(t, StageDesc, h.stage(t, "S1"))
	assert.Equal(t, []string{msgRegisterRetry}, h.messenger.to("S1"))

	h.messenger.reset()
	h.send(t, "S1", "money lost")
	list, _ := h.store.List(context.Background(), complaints.ListFilter{})
	assert.Len(t, list, 1)
	assert.Len(t, h.messenger.to("S1"), 3)
}

func TestEngine_RetriesDuplicateTicket(t *testing.T) {
	h := newHarness(t)
	h.store.createErr = []error{complaints.ErrDuplicateTicket, complaints.ErrDuplicateTicket}
	h.walkToDesc(t, "S1")

	h.send(t, "S1", "money lost")
	assert.Equal(t, 3, h.store.creates)
	list, _ := h.store.List(context.Background(), complaints.ListFilter{})
	assert.Len(t, list, 1)
}

func TestEngine_LookupFailureKeepsStatusStage(t *testing.T) {
	h := newHarness(t)
	h.store.lookupErr = errors.New("db down")
	h.seed("S2", StageStatus, nil)

	err := h.engine.Handle(context.Background(), Event{Kind: EventText, Sender: "S2", Text: "9876543210"})
	require.ErrorIs(t, err, ErrLookupFailed)
	assert.Equal(t, StageStatus, h.stage(t, "S2"))
	assert.Equal(t, []string{msgLookupRetry}, h.messenger.to("S2"))
}

func TestEngine_CancelRemovesSession(t *testing.T) {
	h := newHarness(t)
	h.seed("S1", StageEmail, map[string]string{FieldName: "Rahul"})
	h.send(t, "S1", "cancel")
	_, ok := h.sessions.Get("S1")
	assert.False(t, ok)
	assert.Equal(t, []string{msgCancelled}, h.messenger.to("S1"))
}

func TestEngine_SendFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.messenger.err = errors.New("graph api 401")
	h.send(t, "S1", "hi")
	assert.Equal(t, StageMenu, h.stage(t, "S1"))
}

func TestEngine_OutboundTimeout(t *testing.T) {
	h := newHarness(t)
	h.messenger.block = true
	h.engine.outboundTimeout = 20 * time.Millisecond

	start := time.Now()
	h.send(t, "S1", "hi")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StageMenu, h.stage(t, "S1"))

	err := h.engine.bounded(context.Background(), 10*time.Millisecond, "outbound", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, ErrCollaboratorTimeout)
	assert.True(t, strings.Contains(err.Error(), "outbound"))
}

func TestEngine_StalledNotifierIsBounded(t *testing.T) {
	h := newHarness(t)
	h.walkToDesc(t, "S1")
	h.messenger.reset()
	h.engine.outboundTimeout = 50 * time.Millisecond
	h.notifier.hang = 2 * time.Second

	replied := make(chan []string, 1)
	h.notifier.before = func() { replied <- h.messenger.to("S1") }

	start := time.Now()
	h.send(t, "S1", "fake courier call, OTP shared")
	assert.Less(t, time.Since(start), time.Second)

	repliedFirst := <-replied

	assert.Len(t, repliedFirst, 3, "confirmation must go out before the email")
	list, _ := h.store.List(context.Background(), complaints.ListFilter{})
	require.Len(t, list, 1)
	assert.Contains(t, repliedFirst[0], list[0].TicketNumber)

	// The sender's lock is free again.
	h.send(t, "S1", "hi")
	assert.Equal(t, StageMenu, h.stage(t, "S1"))
}

func TestEngine_StalledRecorderIsBounded(t *testing.T) {
	h := newHarness(t)
	h.engine.outboundTimeout = 50 * time.Millisecond
	h.recorder.hang = 2 * time.Second

	start := time.Now()
	h.send(t, "S1", "hi")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StageMenu, h.stage(t, "S1"))
	assert.Equal(t, []string{msgMenu}, h.messenger.to("S1"))
}

func TestEngine_MalformedEventIgnored(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Handle(context.Background(), Event{Kind: EventMalformed, Sender: "M1"}))
	assert.Equal(t, 0, h.sessions.Len())
	assert.Empty(t, h.messenger.to("M1"))

	h.seed("M2", StagePhone, map[string]string{FieldName: "Asha"})
	require.NoError(t, h.engine.Handle(context.Background(), Event{Kind: EventMalformed, Sender: "M2", MessageID: "wamid.x"}))
	assert.Equal(t, StagePhone, h.stage(t, "M2"))
	s, _ := h.sessions.Get("M2")
	assert.Equal(t, map[string]string{FieldName: "Asha"}, s.Fields)
	assert.Empty(t, h.messenger.to("M2"))
}

func TestEngine_EmptySenderIgnored(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Handle(context.Background(), Event{Kind: EventText, Text: "hi"}))
	assert.Equal(t, 0, h.sessions.Len())
}

func TestEngine_ConcurrentSenders(t *testing.T) {
	h := newHarness(t)
	senders := []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8"}

	var wg sync.WaitGroup
	for _, sender := range senders {
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			for _, text := range []string{"hi", "a", "Rahul", "Suresh", "01-01-1990", "9876543210",
				"r@example.com", "Patia", "KIIT", "Infocity", "Cuttack", "753001", "2", "instagram hacked"} {
				if err := h.engine.Handle(context.Background(), Event{Kind: EventText, Sender: sender, Text: text}); err != nil {
					t.Errorf("%s: %v", sender, err)
				}
			}
		}(sender)
	}
	wg.Wait()

	list, err := h.store.List(context.Background(), complaints.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, len(senders))
	assert.Equal(t, 0, h.sessions.Len())
}

func TestNewEngine_PanicsWithoutRequiredCollaborators(t *testing.T) {
	assert.Panics(t, func() { NewEngine(EngineConfig{}) })
	assert.Panics(t, func() {
		NewEngine(EngineConfig{Sessions: NewMemorySessionStore(), Complaints: complaints.NewInMemoryRepository()})
	})
}
