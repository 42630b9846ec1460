package feeds

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidgate/internal/checkin"
	"kidgate/internal/events"
	"kidgate/internal/identity"
	"kidgate/internal/platform/middleware"
	"kidgate/pkg/domain"
	dErrors "kidgate/pkg/errors"
)

type stubSnapshots struct {
	live    []checkin.CheckIn
	family  []checkin.CheckIn
	alerts  []checkin.CheckIn
	gotWhom domain.AdultID
}

func (s *stubSnapshots) Live(context.Context) ([]checkin.CheckIn, error) {
	return s.live, nil
}

func (s *stubSnapshots) LiveByResponsible(_ context.Context, responsibleID domain.AdultID) ([]checkin.CheckIn, error) {
	s.gotWhom = responsibleID
	return s.family, nil
}

func (s *stubSnapshots) Alerts(context.Context) ([]checkin.CheckIn, error) {
	return s.alerts, nil
}

type stubValidator struct {
	token         string
	responsibleID domain.AdultID
}

func (v *stubValidator) ValidateToken(token string) (*middleware.PortalClaims, error) {
	if token != v.token {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid portal token")
	}
	return &middleware.PortalClaims{ResponsibleID: v.responsibleID}, nil
}

func sampleRecord(status checkin.Status) checkin.CheckIn {
	return checkin.CheckIn{
		ID:            domain.NewCheckInID(),
		ChildID:       domain.ChildID(domain.NewCheckInID()),
		ResponsibleID: domain.AdultID(domain.NewCheckInID()),
		SecurityCode:  "AB23",
		Status:        status,
		CheckinTime:   time.Now().UTC(),
	}
}

func newFeedServer(t *testing.T, snapshots Snapshots, broker *events.Broker,
	validator middleware.PortalValidator, syncInterval time.Duration) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(snapshots, broker, nil, validator, logger, syncInterval).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// openStream connects to the feed and returns a reader over the SSE body.
// The stream is torn down with the test.
func openStream(t *testing.T, url, bearer string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

// readEvent parses one SSE frame into its event name and data payload.
func readEvent(t *testing.T, reader *bufio.Reader) (string, []byte) {
	t.Helper()
	var name string
	var data []byte
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" || data != nil {
				return name, data
			}
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = []byte(strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestSubscribe_SnapshotFirstThenChanges(t *testing.T) {
	broker := events.NewBroker(8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer broker.Close()
	live := sampleRecord(checkin.StatusActive)
	snapshots := &stubSnapshots{live: []checkin.CheckIn{live}}
	srv := newFeedServer(t, snapshots, broker, &stubValidator{}, time.Minute)

	reader := openStream(t, srv.URL+"/subscribe?filter=all", "")

	name, data := readEvent(t, reader)
	require.Equal(t, "snapshot", name)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, live.ID.String(), entries[0]["id"])

	published := events.Event{
		CheckInID:     live.ID,
		ResponsibleID: live.ResponsibleID,
		SecurityCode:  live.SecurityCode,
		Status:        "alert",
		Timestamp:     time.Now().UTC(),
	}
	broker.Publish(published)

	name, data = readEvent(t, reader)
	require.Equal(t, "change", name)
	var change map[string]any
	require.NoError(t, json.Unmarshal(data, &change))
	assert.Equal(t, live.ID.String(), change["checkInId"])
	assert.Equal(t, "alert", change["status"])
}

func TestSubscribe_AlertFilterStripsIdentity(t *testing.T) {
	broker := events.NewBroker(8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer broker.Close()
	alerting := sampleRecord(checkin.StatusAlert)
	snapshots := &stubSnapshots{alerts: []checkin.CheckIn{alerting}}
	srv := newFeedServer(t, snapshots, broker, &stubValidator{}, time.Minute)

	reader := openStream(t, srv.URL+"/subscribe?filter=alerts", "")

	name, data := readEvent(t, reader)
	require.Equal(t, "snapshot", name)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "AB23", entries[0]["securityCode"])
	assert.Len(t, entries[0], 1)

	broker.Publish(events.Event{
		CheckInID:     alerting.ID,
		ResponsibleID: alerting.ResponsibleID,
		SecurityCode:  alerting.SecurityCode,
		Status:        "alert",
		Timestamp:     time.Now().UTC(),
	})

	name, data = readEvent(t, reader)
	require.Equal(t, "change", name)
	var change map[string]any
	require.NoError(t, json.Unmarshal(data, &change))
	assert.Equal(t, "AB23", change["securityCode"])
	assert.NotContains(t, change, "checkInId", "panel events must not carry identifiers")
	assert.NotContains(t, change, "responsibleId")
}

func TestSubscribe_AlertFilterSkipsQuietChanges(t *testing.T) {
	broker := events.NewBroker(8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer broker.Close()
	snapshots := &stubSnapshots{}
	srv := newFeedServer(t, snapshots, broker, &stubValidator{}, time.Minute)

	reader := openStream(t, srv.URL+"/subscribe?filter=alerts", "")
	name, _ := readEvent(t, reader)
	require.Equal(t, "snapshot", name)

	quiet := sampleRecord(checkin.StatusActive)
	broker.Publish(events.Event{
		CheckInID: quiet.ID, ResponsibleID: quiet.ResponsibleID,
		SecurityCode: quiet.SecurityCode, Status: "active", Timestamp: time.Now().UTC(),
	})
	loud := sampleRecord(checkin.StatusAlert)
	broker.Publish(events.Event{
		CheckInID: loud.ID, ResponsibleID: loud.ResponsibleID,
		SecurityCode: "CD45", Status: "alert", Timestamp: time.Now().UTC(),
	})

	name, data := readEvent(t, reader)
	require.Equal(t, "change", name)
	var change map[string]any
	require.NoError(t, json.Unmarshal(data, &change))
	assert.Equal(t, "CD45", change["securityCode"], "the active-status event must have been filtered out")
}

func TestSubscribe_BearerScopesToFamily(t *testing.T) {
	broker := events.NewBroker(8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer broker.Close()
	family := domain.AdultID(domain.NewCheckInID())
	mine := sampleRecord(checkin.StatusActive)
	mine.ResponsibleID = family
	snapshots := &stubSnapshots{family: []checkin.CheckIn{mine}}
	srv := newFeedServer(t, snapshots, broker, &stubValidator{token: "good", responsibleID: family}, time.Minute)

	reader := openStream(t, srv.URL+"/subscribe", "good")

	name, data := readEvent(t, reader)
	require.Equal(t, "snapshot", name)
	assert.Equal(t, family, snapshots.gotWhom)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, mine.ID.String(), entries[0]["id"])

	// An event for another family never reaches this stream.
	broker.Publish(events.Event{
		CheckInID:     domain.NewCheckInID(),
		ResponsibleID: domain.AdultID(domain.NewCheckInID()),
		SecurityCode:  "EF67",
		Status:        "alert",
		Timestamp:     time.Now().UTC(),
	})
	broker.Publish(events.Event{
		CheckInID:     mine.ID,
		ResponsibleID: family,
		SecurityCode:  mine.SecurityCode,
		Status:        "alert",
		Timestamp:     time.Now().UTC(),
	})

	name, data = readEvent(t, reader)
	require.Equal(t, "change", name)
	var change map[string]any
	require.NoError(t, json.Unmarshal(data, &change))
	assert.Equal(t, mine.ID.String(), change["checkInId"])
}

func TestSubscribe_BearerSchemeCaseInsensitive(t *testing.T) {
	broker := events.NewBroker(8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer broker.Close()
	family := domain.AdultID(domain.NewCheckInID())
	snapshots := &stubSnapshots{}
	srv := newFeedServer(t, snapshots, broker, &stubValidator{token: "good", responsibleID: family}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/subscribe", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "bearer good")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	name, _ := readEvent(t, bufio.NewReader(resp.Body))
	assert.Equal(t, "snapshot", name)
	assert.Equal(t, family, snapshots.gotWhom, "a lowercase scheme still scopes the stream to the token")
}

func TestSubscribe_RejectsBadToken(t *testing.T) {
	broker := events.NewBroker(8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer broker.Close()
	srv := newFeedServer(t, &stubSnapshots{}, broker, &stubValidator{token: "good"}, time.Minute)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/subscribe", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer forged")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubscribe_RejectsUnknownFilter(t *testing.T) {
	broker := events.NewBroker(8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer broker.Close()
	srv := newFeedServer(t, &stubSnapshots{}, broker, &stubValidator{}, time.Minute)

	resp, err := http.Get(srv.URL + "/subscribe?filter=everything")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubscribe_ConsoleSnapshotCarriesChildNames(t *testing.T) {
	broker := events.NewBroker(8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer broker.Close()
	live := sampleRecord(checkin.StatusActive)
	children := identity.NewInMemoryChildDirectory()
	children.Add(live.ChildID, "Ana Lima")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(&stubSnapshots{live: []checkin.CheckIn{live}}, broker, children, &stubValidator{}, logger, time.Minute).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	reader := openStream(t, srv.URL+"/subscribe?filter=all", "")

	name, data := readEvent(t, reader)
	require.Equal(t, "snapshot", name)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Ana Lima", entries[0]["childName"])
}

func TestSubscribe_SyncSnapshotRepeats(t *testing.T) {
	broker := events.NewBroker(8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer broker.Close()
	snapshots := &stubSnapshots{}
	srv := newFeedServer(t, snapshots, broker, &stubValidator{}, 30*time.Millisecond)

	reader := openStream(t, srv.URL+"/subscribe?filter=all", "")

	name, _ := readEvent(t, reader)
	require.Equal(t, "snapshot", name)
	name, _ = readEvent(t, reader)
	assert.Equal(t, "snapshot", name, "the cadence backstop must re-emit the full view")
}
