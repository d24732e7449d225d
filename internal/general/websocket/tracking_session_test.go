package websocket

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/general/contracts"
	"fleet-track/internal/general/logger"
)

// ----- fakes -----

type fakeUow struct{}

func (f *fakeUow) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeAssignmentRepo struct {
	byID         map[string]*hotspot.Assignment
	reached      map[string]bool
	reachedCalls int
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{
		byID:    map[string]*hotspot.Assignment{},
		reached: map[string]bool{},
	}
}

func (f *fakeAssignmentRepo) Create(ctx context.Context, a *hotspot.Assignment) error {
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAssignmentRepo) GetByID(ctx context.Context, id string) (*hotspot.Assignment, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, hotspot.ErrAssignmentNotFound
}

func (f *fakeAssignmentRepo) LatestForDriver(ctx context.Context, driverID string) (*hotspot.Assignment, error) {
	return nil, hotspot.ErrAssignmentNotFound
}

func (f *fakeAssignmentRepo) OccupiedOrderIDs(ctx context.Context, since time.Time) ([]string, error) {
	return nil, nil
}

func (f *fakeAssignmentRepo) MarkReached(ctx context.Context, id string, at time.Time) (bool, error) {
	f.reachedCalls++
	if f.reached[id] {
		return false, nil
	}
	f.reached[id] = true
	return true, nil
}

func (f *fakeAssignmentRepo) MarkTripTaken(ctx context.Context, id string, at time.Time) (bool, error) {
	return false, nil
}

type fakeDeviationRepo struct {
	events []*hotspot.DeviationEvent
}

func (f *fakeDeviationRepo) Append(ctx context.Context, e *hotspot.DeviationEvent) error {
	f.events = append(f.events, e)
	return nil
}

type fakeCooldown struct {
	started map[string]time.Duration
}

func (f *fakeCooldown) RemainingCooldown(ctx context.Context, driverID string) (time.Duration, error) {
	return 0, nil
}

func (f *fakeCooldown) StartCooldown(ctx context.Context, driverID string, window time.Duration) error {
	f.started[driverID] = window
	return nil
}

type fakeRoutePlanner struct {
	err   error
	calls int
}

func (f *fakeRoutePlanner) PlanRoute(ctx context.Context, originLat, originLng, destLat, destLng float64) (*hotspot.RoutePlan, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	origin := geo.Point{Lat: originLat, Lng: originLng}
	dest := geo.Point{Lat: destLat, Lng: destLng}
	meters := int(geo.DistanceMeters(originLat, originLng, destLat, destLng))
	return &hotspot.RoutePlan{
		Start:           origin,
		End:             dest,
		DistanceMeters:  meters,
		DurationSeconds: meters / 8,
		DurationText:    "a few mins",
		Overview:        []geo.Point{origin, dest},
	}, nil
}

// ----- geometry helpers -----

const (
	baseLat = 28.7041
	baseLng = 77.1025
)

// pointAt offsets the base coordinate by metres north and east.
func pointAt(northM, eastM float64) geo.Point {
	return geo.Point{
		Lat: baseLat + northM/111195.0,
		Lng: baseLng + eastM/(111195.0*math.Cos(baseLat*math.Pi/180)),
	}
}

func reportAt(p geo.Point) contracts.WSPositionReport {
	return contracts.WSPositionReport{
		Lat:          p.Lat,
		Lng:          p.Lng,
		AssignmentID: "assignment-1",
	}
}

type sessionFixture struct {
	assignments *fakeAssignmentRepo
	deviations  *fakeDeviationRepo
	planner     *fakeRoutePlanner
	cooldown    *fakeCooldown
	session     *TrackingSession
}

// newSessionFixture wires a session for driver-1 tracking a straight
// two-kilometre path north of the base coordinate.
func newSessionFixture(driverID string) *sessionFixture {
	f := &sessionFixture{
		assignments: newFakeAssignmentRepo(),
		deviations:  &fakeDeviationRepo{},
		planner:     &fakeRoutePlanner{},
		cooldown:    &fakeCooldown{started: map[string]time.Duration{}},
	}
	path := []geo.Point{pointAt(0, 0), pointAt(1000, 0), pointAt(2000, 0)}
	f.assignments.byID["assignment-1"] = &hotspot.Assignment{
		ID:       "assignment-1",
		DriverID: "driver-1",
		Start:    path[0],
		End:      path[len(path)-1],
		Overview: path,
	}
	f.session = NewTrackingSession(
		logger.New("tracking-test"),
		&fakeUow{},
		f.assignments,
		f.deviations,
		f.planner,
		nil,
		f.cooldown,
		20*time.Minute,
		driverID,
	)
	return f
}

// ----- tests -----

func TestHandleReport_OnRoute(t *testing.T) {
	f := newSessionFixture("driver-1")

	frames, done, err := f.session.HandleReport(context.Background(), reportAt(pointAt(0, 0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done {
		t.Fatal("session must not finish while en route")
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	if frames[0].Status != "ok" || frames[0].Message != "On route" {
		t.Errorf("unexpected frame: %+v", frames[0])
	}
	if frames[0].ETA == "" || frames[0].Distance == "" {
		t.Error("on-route frame must carry eta and distance")
	}
}

func TestHandleReport_RejectsOutOfRangeCoordinates(t *testing.T) {
	f := newSessionFixture("driver-1")

	report := contracts.WSPositionReport{Lat: 200, Lng: 500, AssignmentID: "assignment-1"}
	frames, done, err := f.session.HandleReport(context.Background(), report)
	if err == nil {
		t.Fatal("expected an error for coordinates outside the valid range")
	}
	if !errors.Is(err, geo.ErrInvalidLatitude) {
		t.Fatalf("expected ErrInvalidLatitude, got %v", err)
	}
	if done || len(frames) != 0 {
		t.Fatalf("a rejected report must produce no frames: done=%v frames=%+v", done, frames)
	}

	// nothing downstream may observe the garbage position
	if f.planner.calls != 0 {
		t.Errorf("planner must not be asked to reroute from an invalid origin, got %d calls", f.planner.calls)
	}
	if len(f.deviations.events) != 0 {
		t.Errorf("no deviation may be recorded for an invalid report, got %d", len(f.deviations.events))
	}

	// a valid report right after is classified normally
	frames, _, err = f.session.HandleReport(context.Background(), reportAt(pointAt(0, 0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frames[0].Status != "ok" {
		t.Errorf("expected on-route after the rejected report, got %+v", frames)
	}
}

func TestHandleReport_WrongDriverRejected(t *testing.T) {
	f := newSessionFixture("driver-2")

	_, _, err := f.session.HandleReport(context.Background(), reportAt(pointAt(0, 0)))
	if !errors.Is(err, hotspot.ErrAssignmentNotFound) {
		t.Fatalf("expected ErrAssignmentNotFound for a foreign assignment, got %v", err)
	}
}

func TestHandleReport_StallAlertAfterRepeats(t *testing.T) {
	f := newSessionFixture("driver-1")
	report := reportAt(pointAt(1000, 0))

	// the first report primes the previous position; the next 14 repeats
	// accumulate without reaching the threshold
	for i := 0; i < 15; i++ {
		frames, _, err := f.session.HandleReport(context.Background(), report)
		if err != nil {
			t.Fatalf("report %d: unexpected error: %v", i, err)
		}
		if len(frames) != 1 || frames[0].Status != "ok" {
			t.Fatalf("report %d: expected a single ok frame, got %+v", i, frames)
		}
	}

	// the 15th repeat trips the alert, followed by the normal classification
	frames, done, err := f.session.HandleReport(context.Background(), report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done {
		t.Fatal("a stall must not end the session")
	}
	if len(frames) != 2 {
		t.Fatalf("expected alert plus classification, got %d frames", len(frames))
	}
	if frames[0].Status != "alert" || frames[0].Message != "Vehicle Stopped" {
		t.Errorf("unexpected alert frame: %+v", frames[0])
	}
	if frames[1].Status != "ok" {
		t.Errorf("unexpected classification frame: %+v", frames[1])
	}

	// the counter resets after the alert
	frames, _, err = f.session.HandleReport(context.Background(), report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 || frames[0].Status != "ok" {
		t.Errorf("expected the counter to reset after an alert, got %+v", frames)
	}
}

func TestHandleReport_MovementResetsStallCounter(t *testing.T) {
	f := newSessionFixture("driver-1")

	for i := 0; i < 10; i++ {
		if _, _, err := f.session.HandleReport(context.Background(), reportAt(pointAt(1000, 0))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// a few metres of movement changes the rounded position
	if _, _, err := f.session.HandleReport(context.Background(), reportAt(pointAt(1020, 0))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// ten more repeats at the new spot stay below the threshold
	for i := 0; i < 10; i++ {
		frames, _, err := f.session.HandleReport(context.Background(), reportAt(pointAt(1020, 0)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if frames[0].Status != "ok" {
			t.Fatalf("expected no alert after movement, got %+v", frames)
		}
	}
}

func TestHandleReport_Arrival(t *testing.T) {
	f := newSessionFixture("driver-1")

	frames, done, err := f.session.HandleReport(context.Background(), reportAt(pointAt(1995, 0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Fatal("expected the session to finish on arrival")
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	if frames[0].Status != "success" || frames[0].Message != "You have reached your destination." {
		t.Errorf("unexpected arrival frame: %+v", frames[0])
	}
	if !f.assignments.reached["assignment-1"] {
		t.Error("arrival must persist the reached flag")
	}
	if got := f.cooldown.started["driver-1"]; got != 20*time.Minute {
		t.Errorf("arrival must start the driver's cool-down window, got %v", got)
	}
}

func TestHandleReport_ArrivalIsIdempotent(t *testing.T) {
	f := newSessionFixture("driver-1")

	if _, done, err := f.session.HandleReport(context.Background(), reportAt(pointAt(1995, 0))); err != nil || !done {
		t.Fatalf("first arrival failed: done=%v err=%v", done, err)
	}

	// a reconnecting driver reporting from the destination again finishes
	// cleanly without re-flipping the flag
	second := newSessionFixture("driver-1")
	second.assignments.reached = f.assignments.reached
	frames, done, err := second.session.HandleReport(context.Background(), reportAt(pointAt(1995, 0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Fatal("expected the replayed arrival to finish the session")
	}
	if frames[0].Status != "success" {
		t.Errorf("unexpected frame: %+v", frames[0])
	}
	if _, ok := second.cooldown.started["driver-1"]; ok {
		t.Error("a replayed arrival must not restart the cool-down")
	}
}

func TestHandleReport_DeviationTriggersReroute(t *testing.T) {
	f := newSessionFixture("driver-1")
	offRoute := pointAt(500, 300)

	frames, done, err := f.session.HandleReport(context.Background(), reportAt(offRoute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done {
		t.Fatal("a reroute must not end the session")
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	if frames[0].Status != "route changed" || frames[0].Message != "Rerouting..." {
		t.Errorf("unexpected frame: %+v", frames[0])
	}
	if len(frames[0].Polyline) < 2 {
		t.Error("reroute frame must carry the replacement polyline")
	}

	if f.planner.calls != 1 {
		t.Errorf("expected one planner call, got %d", f.planner.calls)
	}
	if len(f.deviations.events) != 1 {
		t.Fatalf("expected exactly one deviation event, got %d", len(f.deviations.events))
	}
	event := f.deviations.events[0]
	if event.DriverID != "driver-1" || event.AssignmentID != "assignment-1" {
		t.Errorf("deviation event misattributed: %+v", event)
	}
	// nearest route vertex is ~583m from the drifted position
	if event.DeviationMeters < 550 || event.DeviationMeters > 620 {
		t.Errorf("unexpected deviation distance: %f", event.DeviationMeters)
	}

	// the same position is on the replacement path, so no second deviation
	frames, _, err = f.session.HandleReport(context.Background(), reportAt(offRoute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frames[len(frames)-1].Status != "ok" {
		t.Errorf("expected on-route against the replacement path, got %+v", frames)
	}
	if len(f.deviations.events) != 1 {
		t.Errorf("expected no additional deviation events, got %d", len(f.deviations.events))
	}
}

func TestHandleReport_RerouteFailureKeepsOldPath(t *testing.T) {
	f := newSessionFixture("driver-1")
	f.planner.err = hotspot.ErrRouteUnavailable
	offRoute := pointAt(500, 300)

	frames, done, err := f.session.HandleReport(context.Background(), reportAt(offRoute))
	if err != nil {
		t.Fatalf("a failed reroute must degrade, not error: %v", err)
	}
	if done {
		t.Fatal("a failed reroute must not end the session")
	}
	if frames[0].Status != "warning" || frames[0].Message != "Off route! Please return to the navigation path." {
		t.Errorf("unexpected frame: %+v", frames[0])
	}
	if len(f.deviations.events) != 0 {
		t.Errorf("no deviation may be recorded when rerouting fails, got %d", len(f.deviations.events))
	}

	// the old path is still active: the same drift asks the planner again
	if _, _, err := f.session.HandleReport(context.Background(), reportAt(offRoute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.planner.calls != 2 {
		t.Errorf("expected the planner to be retried against the old path, got %d calls", f.planner.calls)
	}
}

func TestEtaAndDistanceText(t *testing.T) {
	if got := etaText(1000); got != "2.00 mins" {
		t.Errorf("etaText(1000) = %q", got)
	}
	if got := distanceText(2500); got != "2.50 km" {
		t.Errorf("distanceText(2500) = %q", got)
	}
}
