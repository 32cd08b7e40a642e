package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/izyuumi/koe/internal/events"
	"github.com/izyuumi/koe/internal/fsm"
	"github.com/izyuumi/koe/internal/ipc"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	mu         sync.Mutex
	bus        *events.Bus
	starts     []Request
	stops      int
	transcript string
	startErr   error
	// onStart runs inside Start, after recording the request.
	onStart func(req Request)
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{bus: events.NewBus()}
}

func (f *fakeRecognizer) Start(_ context.Context, req Request) error {
	f.mu.Lock()
	f.starts = append(f.starts, req)
	hook := f.onStart
	err := f.startErr
	f.mu.Unlock()
	if hook != nil {
		hook(req)
	}
	return err
}

func (f *fakeRecognizer) Stop() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	text := f.transcript
	f.transcript = ""
	return text
}

func (f *fakeRecognizer) Subscribe(h events.Handler) func() { return f.bus.Subscribe(h) }

func (f *fakeRecognizer) emit(ev events.Event) { f.bus.Publish(ev) }

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

type insertCall struct {
	paste  string
	retain string
}

type recordingInserter struct {
	mu    sync.Mutex
	calls []insertCall
	err   error
}

func (r *recordingInserter) Insert(_ context.Context, paste string, retain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, insertCall{paste: paste, retain: retain})
	return r.err
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(ev events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) listening() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []bool
	for _, ev := range l.events {
		if ev.Kind == events.KindListeningState {
			out = append(out, ev.Listening)
		}
	}
	return out
}

func (l *eventLog) ofKind(kind events.Kind) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func newTestController(t *testing.T) (*Controller, *fakeRecognizer, *recordingInserter, *eventLog) {
	t.Helper()

	rec := newFakeRecognizer()
	ins := &recordingInserter{}
	c := NewController(nil, NewState(Settings{Language: "en-US", OnDeviceOnly: true}), rec, ins, " ")
	next := 0
	c.newID = func() string {
		next++
		return fmt.Sprintf("session-%d", next)
	}
	log := &eventLog{}
	c.Subscribe(log.record)
	t.Cleanup(c.Shutdown)
	return c, rec, ins, log
}

func TestStartIsIdempotent(t *testing.T) {
	c, rec, _, log := newTestController(t)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))

	require.Equal(t, fsm.StateListening, c.State())
	require.Equal(t, 1, rec.startCount())
	require.Equal(t, []bool{true}, log.listening())
	require.Equal(t, Request{SessionID: "session-1", Language: "en-US", OnDeviceOnly: true}, rec.starts[0])
}

func TestStopWhileIdleHasNoSideEffects(t *testing.T) {
	c, rec, ins, log := newTestController(t)

	text, err := c.Stop(context.Background())
	require.NoError(t, err)
	require.Empty(t, text)
	require.Zero(t, rec.stops)
	require.Empty(t, ins.calls)
	require.Empty(t, log.listening())
}

func TestStopInsertsPaddedTranscriptAndReturnsUnpadded(t *testing.T) {
	c, rec, ins, log := newTestController(t)

	require.NoError(t, c.Start(context.Background()))
	rec.transcript = "  hello world \n"

	text, err := c.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
	require.Equal(t, []insertCall{{paste: "hello world ", retain: "hello world"}}, ins.calls)
	require.Equal(t, []bool{true, false}, log.listening())
	require.Equal(t, fsm.StateIdle, c.State())
}

func TestStopWithEmptyTranscriptSkipsInsertion(t *testing.T) {
	c, _, ins, _ := newTestController(t)

	require.NoError(t, c.Start(context.Background()))
	text, err := c.Stop(context.Background())
	require.NoError(t, err)
	require.Empty(t, text)
	require.Empty(t, ins.calls)
}

func TestStopInsertFailureKeepsTranscript(t *testing.T) {
	c, rec, ins, log := newTestController(t)
	ins.err = errors.New("write clipboard: no utility")

	require.NoError(t, c.Start(context.Background()))
	rec.transcript = "kept"

	text, err := c.Stop(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert transcript")
	require.Equal(t, "kept", text)
	require.Equal(t, fsm.StateIdle, c.State())

	errs := log.ofKind(events.KindSpeechError)
	require.Len(t, errs, 1)
	require.False(t, errs[0].Fatal)
	require.Equal(t, "Unable to insert transcript", errs[0].Message)
}

func TestToggleAlternates(t *testing.T) {
	c, rec, ins, _ := newTestController(t)

	text, err := c.Toggle(context.Background())
	require.NoError(t, err)
	require.Empty(t, text)
	require.Equal(t, fsm.StateListening, c.State())

	rec.transcript = "toggled"
	text, err = c.Toggle(context.Background())
	require.NoError(t, err)
	require.Equal(t, "toggled", text)
	require.Equal(t, fsm.StateIdle, c.State())
	require.Len(t, ins.calls, 1)
}

func TestFatalRecognizerErrorForcesIdleOnce(t *testing.T) {
	c, rec, _, log := newTestController(t)
	require.NoError(t, c.Start(context.Background()))

	rec.emit(events.Event{Kind: events.KindSpeechError, SessionID: "session-1", Message: "Speech helper exited unexpectedly (code 3)", Fatal: true})
	rec.emit(events.Event{Kind: events.KindSpeechError, SessionID: "session-1", Message: "again", Fatal: true})

	require.Equal(t, fsm.StateIdle, c.State())
	require.Equal(t, []bool{true, false}, log.listening())
	require.Len(t, log.ofKind(events.KindSpeechError), 2)

	text, err := c.Stop(context.Background())
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestNonFatalRecognizerErrorKeepsListening(t *testing.T) {
	c, rec, _, log := newTestController(t)
	require.NoError(t, c.Start(context.Background()))

	rec.emit(events.Event{Kind: events.KindSpeechError, SessionID: "session-1", Message: "no speech detected"})
	require.Equal(t, fsm.StateListening, c.State())
	require.Equal(t, []bool{true}, log.listening())
}

func TestFatalErrorForStaleSessionIsIgnored(t *testing.T) {
	c, rec, _, log := newTestController(t)
	require.NoError(t, c.Start(context.Background()))
	_, err := c.Stop(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))

	rec.emit(events.Event{Kind: events.KindSpeechError, SessionID: "session-1", Message: "late crash", Fatal: true})
	require.Equal(t, fsm.StateListening, c.State())
	require.Equal(t, "session-2", c.state.SessionID())
	require.Equal(t, []bool{true, false, true}, log.listening())
}

func TestStartFailureReturnsToIdle(t *testing.T) {
	c, rec, _, log := newTestController(t)
	rec.startErr = errors.New("helper missing")
	rec.onStart = func(req Request) {
		rec.emit(events.Event{Kind: events.KindSpeechError, SessionID: req.SessionID, Message: "Failed to start speech helper: helper missing", Fatal: true})
	}

	err := c.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "start recognizer")
	require.Equal(t, fsm.StateIdle, c.State())
	require.Equal(t, []bool{true, false}, log.listening())
}

func TestStartWithoutRecognizer(t *testing.T) {
	c := NewController(nil, nil, nil, nil, " ")
	require.ErrorIs(t, c.Start(context.Background()), ErrNoRecognizer)
	require.Equal(t, fsm.StateIdle, c.State())
}

func TestRecognizerEventsAreForwarded(t *testing.T) {
	c, rec, _, log := newTestController(t)
	require.NoError(t, c.Start(context.Background()))

	rec.emit(events.Event{Kind: events.KindTranscriptPartial, SessionID: "session-1", Text: "hel"})
	rec.emit(events.Event{Kind: events.KindMicLevel, SessionID: "session-1", Level: 0.25})

	require.Len(t, log.ofKind(events.KindTranscriptPartial), 1)
	require.Len(t, log.ofKind(events.KindMicLevel), 1)
}

func TestSetSettingsAppliesToNextStart(t *testing.T) {
	c, rec, _, _ := newTestController(t)

	settings, err := c.SetSettings("ja_jp", false)
	require.NoError(t, err)
	require.Equal(t, Settings{Language: "ja-JP", OnDeviceOnly: false}, settings)

	require.NoError(t, c.Start(context.Background()))
	require.Equal(t, "ja-JP", rec.starts[0].Language)
	require.False(t, rec.starts[0].OnDeviceOnly)

	_, err = c.SetSettings("!!", true)
	require.Error(t, err)
	require.Equal(t, settings, c.Settings())
}

func TestShutdownDiscardsActiveSession(t *testing.T) {
	c, rec, ins, log := newTestController(t)
	require.NoError(t, c.Start(context.Background()))
	rec.transcript = "unsent"

	c.Shutdown()
	require.Equal(t, fsm.StateIdle, c.State())
	require.Equal(t, 1, rec.stops)
	require.Empty(t, ins.calls)
	require.Equal(t, []bool{true, false}, log.listening())

	rec.emit(events.Event{Kind: events.KindTranscriptPartial, Text: "after"})
	require.Empty(t, log.ofKind(events.KindTranscriptPartial))
}

func TestConcurrentTogglesStaySerialized(t *testing.T) {
	c, rec, _, log := newTestController(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Toggle(context.Background())
		}()
	}
	wg.Wait()

	require.Equal(t, 10, rec.startCount())
	states := log.listening()
	require.Len(t, states, 20)
	for i, listening := range states {
		require.Equal(t, i%2 == 0, listening)
	}
	require.Equal(t, fsm.StateIdle, c.State())
}

func TestHandleCommands(t *testing.T) {
	c, rec, _, _ := newTestController(t)
	ctx := context.Background()

	resp := c.Handle(ctx, ipc.Request{Command: "status"})
	require.True(t, resp.OK)
	require.Equal(t, "idle", resp.State)
	require.Equal(t, "en-US", resp.Language)
	require.True(t, *resp.OnDevice)

	resp = c.Handle(ctx, ipc.Request{Command: "start"})
	require.True(t, resp.OK)
	require.Equal(t, "listening", resp.Message)
	require.Equal(t, "listening", resp.State)

	resp = c.Handle(ctx, ipc.Request{Command: "start"})
	require.True(t, resp.OK)
	require.Equal(t, "already listening", resp.Message)

	rec.transcript = "from ipc"
	resp = c.Handle(ctx, ipc.Request{Command: "stop"})
	require.True(t, resp.OK)
	require.Equal(t, "from ipc", resp.Transcript)
	require.Equal(t, "idle", resp.State)

	resp = c.Handle(ctx, ipc.Request{Command: "toggle"})
	require.True(t, resp.OK)
	require.Equal(t, "listening", resp.State)

	onDevice := false
	resp = c.Handle(ctx, ipc.Request{Command: "settings", Language: "fr-FR", OnDevice: &onDevice})
	require.True(t, resp.OK)
	require.Equal(t, "fr-FR", resp.Language)
	require.False(t, *resp.OnDevice)

	resp = c.Handle(ctx, ipc.Request{Command: "settings", Language: "not a tag"})
	require.False(t, resp.OK)
	require.NotEmpty(t, resp.Error)

	resp = c.Handle(ctx, ipc.Request{Command: "bogus"})
	require.False(t, resp.OK)
	require.Equal(t, "unknown command: bogus", resp.Error)
}
