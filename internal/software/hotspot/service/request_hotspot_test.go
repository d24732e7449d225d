package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/general/config"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/rabbitmq"
	"fleet-track/internal/ports"
)

// ----- fakes -----

type fakeUow struct{}

func (f *fakeUow) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeAssignments struct {
	latest     *hotspot.Assignment
	latestErr  error
	occupied   []string
	created    []*hotspot.Assignment
	byID       map[string]*hotspot.Assignment
	reachedIDs map[string]bool
	tripIDs    map[string]bool
}

func newFakeAssignments() *fakeAssignments {
	return &fakeAssignments{
		byID:       map[string]*hotspot.Assignment{},
		reachedIDs: map[string]bool{},
		tripIDs:    map[string]bool{},
	}
}

func (f *fakeAssignments) Create(ctx context.Context, a *hotspot.Assignment) error {
	a.ID = "assignment-1"
	f.created = append(f.created, a)
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAssignments) GetByID(ctx context.Context, id string) (*hotspot.Assignment, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, hotspot.ErrAssignmentNotFound
}

func (f *fakeAssignments) LatestForDriver(ctx context.Context, driverID string) (*hotspot.Assignment, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	if f.latest == nil {
		return nil, hotspot.ErrAssignmentNotFound
	}
	return f.latest, nil
}

func (f *fakeAssignments) OccupiedOrderIDs(ctx context.Context, since time.Time) ([]string, error) {
	return f.occupied, nil
}

func (f *fakeAssignments) MarkReached(ctx context.Context, id string, at time.Time) (bool, error) {
	if f.reachedIDs[id] {
		return false, nil
	}
	f.reachedIDs[id] = true
	return true, nil
}

func (f *fakeAssignments) MarkTripTaken(ctx context.Context, id string, at time.Time) (bool, error) {
	if f.tripIDs[id] {
		return false, nil
	}
	f.tripIDs[id] = true
	return true, nil
}

type fakeCandidates struct {
	records []hotspot.CandidateRecord
}

func (f *fakeCandidates) Snapshot(ctx context.Context) ([]hotspot.CandidateRecord, error) {
	return f.records, nil
}

type fakeCooldown struct {
	remaining time.Duration
	lookupErr error
	started   map[string]time.Duration
}

func newFakeCooldown() *fakeCooldown {
	return &fakeCooldown{started: map[string]time.Duration{}}
}

func (f *fakeCooldown) RemainingCooldown(ctx context.Context, driverID string) (time.Duration, error) {
	if f.lookupErr != nil {
		return 0, f.lookupErr
	}
	return f.remaining, nil
}

func (f *fakeCooldown) StartCooldown(ctx context.Context, driverID string, window time.Duration) error {
	f.started[driverID] = window
	return nil
}

type fakePlanner struct {
	err   error
	calls int
	plan  *hotspot.RoutePlan
}

func (f *fakePlanner) PlanRoute(ctx context.Context, originLat, originLng, destLat, destLng float64) (*hotspot.RoutePlan, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.plan != nil {
		return f.plan, nil
	}
	return &hotspot.RoutePlan{
		Start:            geo.Point{Lat: originLat, Lng: originLng},
		End:              geo.Point{Lat: destLat, Lng: destLng},
		DistanceMeters:   4200,
		DistanceText:     "4.2 km",
		DurationSeconds:  600,
		DurationText:     "10 mins",
		OverviewPolyline: "abc123",
		Overview: []geo.Point{
			{Lat: originLat, Lng: originLng},
			{Lat: destLat, Lng: destLng},
		},
	}, nil
}

type serviceFixture struct {
	assignments *fakeAssignments
	candidates  *fakeCandidates
	cooldown    *fakeCooldown
	planner     *fakePlanner
	svc         ports.HotspotService
}

func newServiceFixture() *serviceFixture {
	cfg := config.HotspotConfig{
		RadiusKm:              5,
		OverloadKm:            5,
		CoolDownExclusionKm:   2,
		CoolDownMinutes:       20,
		AreaWeightCommercial:  1.0,
		AreaWeightResidential: 0.2,
		AreaWeightUnknown:     0.5,
		DropMatchWeight:       0.7,
		HourWeight:            1.0,
		DayWeight:             1.0,
		DistanceWeight:        0.5,
		SuccessWeight:         1.2,
		FailureWeight:         0.6,
	}

	f := &serviceFixture{
		assignments: newFakeAssignments(),
		candidates:  &fakeCandidates{},
		cooldown:    newFakeCooldown(),
		planner:     &fakePlanner{},
	}
	f.svc = NewHotspotService(
		logger.New("hotspot-service-test"),
		cfg,
		&fakeUow{},
		f.assignments,
		f.candidates,
		f.cooldown,
		f.planner,
		&rabbitmq.MQPublisher{Client: &rabbitmq.Client{}},
	)
	return f
}

func nowCandidate(orderID string, km float64) hotspot.CandidateRecord {
	now := time.Now().UTC()
	return hotspot.CandidateRecord{
		OrderID:   orderID,
		PickupLat: queryLat + km*kmLat,
		PickupLng: queryLng,
		Area:      hotspot.AreaCommercial,
		HourOfDay: now.Hour(),
		Weekday:   now.Weekday(),
	}
}

func terminalAssignment(driverID string, terminalAgo time.Duration) *hotspot.Assignment {
	at := time.Now().UTC().Add(-terminalAgo)
	return &hotspot.Assignment{
		ID:        "prev-1",
		DriverID:  driverID,
		CreatedAt: at,
		Reached:   true,
		ReachedAt: &at,
	}
}

// ----- tests -----

func TestRequestHotspot_AssignsBestCandidate(t *testing.T) {
	f := newServiceFixture()
	f.candidates.records = []hotspot.CandidateRecord{
		nowCandidate("order-far", 4),
		nowCandidate("order-near", 3),
	}

	res, err := f.svc.RequestHotspot(context.Background(), ports.RequestHotspotInput{
		DriverID:  "driver-1",
		Latitude:  queryLat,
		Longitude: queryLng,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Found {
		t.Fatal("expected a hotspot to be found")
	}
	if res.OrderID != "order-near" {
		t.Errorf("expected the nearer order, got %s", res.OrderID)
	}
	if res.AssignmentID != "assignment-1" {
		t.Errorf("expected persisted assignment id, got %q", res.AssignmentID)
	}
	if res.Route == nil || len(res.Route.Overview) < 2 {
		t.Fatal("expected a populated route plan")
	}
	if res.Hotspot == nil {
		t.Fatal("expected a hotspot point")
	}

	if len(f.assignments.created) != 1 {
		t.Fatalf("expected exactly one persisted assignment, got %d", len(f.assignments.created))
	}
	created := f.assignments.created[0]
	if created.OrderID == nil || *created.OrderID != "order-near" {
		t.Errorf("persisted assignment should reference the chosen order")
	}
	if created.Reached {
		t.Error("new assignment must start with reached=false")
	}
}

func TestRequestHotspot_CachedCooldownRejects(t *testing.T) {
	f := newServiceFixture()
	f.cooldown.remaining = 7 * time.Minute

	_, err := f.svc.RequestHotspot(context.Background(), ports.RequestHotspotInput{
		DriverID:  "driver-1",
		Latitude:  queryLat,
		Longitude: queryLng,
	})

	var cde *hotspot.CoolDownError
	if !errors.As(err, &cde) {
		t.Fatalf("expected CoolDownError, got %v", err)
	}
	if cde.RemainingMinutes() != 7 {
		t.Errorf("expected 7 remaining minutes, got %d", cde.RemainingMinutes())
	}
	if f.planner.calls != 0 {
		t.Error("planner must not be called while cooling down")
	}
}

func TestRequestHotspot_DatabaseCooldownRejects(t *testing.T) {
	f := newServiceFixture()
	f.assignments.latest = terminalAssignment("driver-1", 10*time.Minute)
	f.candidates.records = []hotspot.CandidateRecord{nowCandidate("order-1", 3)}

	_, err := f.svc.RequestHotspot(context.Background(), ports.RequestHotspotInput{
		DriverID:  "driver-1",
		Latitude:  queryLat,
		Longitude: queryLng,
	})

	var cde *hotspot.CoolDownError
	if !errors.As(err, &cde) {
		t.Fatalf("expected CoolDownError from database fallback, got %v", err)
	}
	if cde.Remaining <= 0 || cde.Remaining > 10*time.Minute {
		t.Errorf("unexpected remaining window: %v", cde.Remaining)
	}
}

func TestRequestHotspot_ExpiredCooldownAccepted(t *testing.T) {
	f := newServiceFixture()
	// terminal event exactly one window ago: the driver is allowed again
	f.assignments.latest = terminalAssignment("driver-1", 20*time.Minute)
	f.candidates.records = []hotspot.CandidateRecord{nowCandidate("order-1", 3)}

	res, err := f.svc.RequestHotspot(context.Background(), ports.RequestHotspotInput{
		DriverID:  "driver-1",
		Latitude:  queryLat,
		Longitude: queryLng,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Found {
		t.Fatal("expected a hotspot after the cool-down expired")
	}
}

func TestRequestHotspot_PriorAssignmentExcludesNearbySpots(t *testing.T) {
	f := newServiceFixture()
	f.assignments.latest = terminalAssignment("driver-1", time.Hour)
	f.candidates.records = []hotspot.CandidateRecord{
		nowCandidate("too-close", 1), // inside the 2 km exclusion ring
		nowCandidate("in-band", 3),
	}

	res, err := f.svc.RequestHotspot(context.Background(), ports.RequestHotspotInput{
		DriverID:  "driver-1",
		Latitude:  queryLat,
		Longitude: queryLng,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != "in-band" {
		t.Errorf("expected the candidate outside the exclusion ring, got %s", res.OrderID)
	}
}

func TestRequestHotspot_OccupiedOrdersSkipped(t *testing.T) {
	f := newServiceFixture()
	f.assignments.occupied = []string{"order-near"}
	f.candidates.records = []hotspot.CandidateRecord{
		nowCandidate("order-near", 2),
		nowCandidate("order-free", 3),
	}

	res, err := f.svc.RequestHotspot(context.Background(), ports.RequestHotspotInput{
		DriverID:  "driver-1",
		Latitude:  queryLat,
		Longitude: queryLng,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != "order-free" {
		t.Errorf("expected the unclaimed order, got %s", res.OrderID)
	}
}

func TestRequestHotspot_NoCandidates(t *testing.T) {
	f := newServiceFixture()

	res, err := f.svc.RequestHotspot(context.Background(), ports.RequestHotspotInput{
		DriverID:  "driver-1",
		Latitude:  queryLat,
		Longitude: queryLng,
	})
	if err != nil {
		t.Fatalf("expected no error for an empty ranking, got %v", err)
	}
	if res.Found {
		t.Error("expected Found=false")
	}
	if f.planner.calls != 0 {
		t.Error("planner must not be called without a candidate")
	}
	if len(f.assignments.created) != 0 {
		t.Error("no assignment may be created without a candidate")
	}
}

func TestRequestHotspot_RouteFailureAbortsRequest(t *testing.T) {
	f := newServiceFixture()
	f.planner.err = hotspot.ErrRouteUnavailable
	f.candidates.records = []hotspot.CandidateRecord{nowCandidate("order-1", 3)}

	_, err := f.svc.RequestHotspot(context.Background(), ports.RequestHotspotInput{
		DriverID:  "driver-1",
		Latitude:  queryLat,
		Longitude: queryLng,
	})
	if !errors.Is(err, hotspot.ErrRouteUnavailable) {
		t.Fatalf("expected ErrRouteUnavailable, got %v", err)
	}
	if len(f.assignments.created) != 0 {
		t.Error("no assignment may be created when route planning fails")
	}
}

func TestRequestHotspot_InvalidInput(t *testing.T) {
	f := newServiceFixture()

	if _, err := f.svc.RequestHotspot(context.Background(), ports.RequestHotspotInput{
		DriverID: "", Latitude: queryLat, Longitude: queryLng,
	}); !errors.Is(err, hotspot.ErrEmptyDriverID) {
		t.Errorf("expected ErrEmptyDriverID, got %v", err)
	}

	if _, err := f.svc.RequestHotspot(context.Background(), ports.RequestHotspotInput{
		DriverID: "driver-1", Latitude: 91, Longitude: queryLng,
	}); err == nil {
		t.Error("expected error for out-of-range latitude")
	}
}

func TestMarkTripTaken_FlipsOnceAndStartsCooldown(t *testing.T) {
	f := newServiceFixture()
	orderID := "order-1"
	f.assignments.byID["assignment-1"] = &hotspot.Assignment{
		ID:       "assignment-1",
		DriverID: "driver-1",
		OrderID:  &orderID,
	}

	res, err := f.svc.MarkTripTaken(context.Background(), ports.TripTakenInput{
		DriverID:     "driver-1",
		AssignmentID: "assignment-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Updated {
		t.Fatal("expected the first call to perform the flip")
	}
	if f.cooldown.started["driver-1"] != 20*time.Minute {
		t.Errorf("expected a 20 minute cool-down, got %v", f.cooldown.started["driver-1"])
	}

	// replay: the flag is already set
	res, err = f.svc.MarkTripTaken(context.Background(), ports.TripTakenInput{
		DriverID:     "driver-1",
		AssignmentID: "assignment-1",
	})
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if res.Updated {
		t.Error("replay must not flip the flag again")
	}
}

func TestMarkTripTaken_WrongDriver(t *testing.T) {
	f := newServiceFixture()
	f.assignments.byID["assignment-1"] = &hotspot.Assignment{
		ID:       "assignment-1",
		DriverID: "driver-1",
	}

	_, err := f.svc.MarkTripTaken(context.Background(), ports.TripTakenInput{
		DriverID:     "driver-2",
		AssignmentID: "assignment-1",
	})
	if !errors.Is(err, hotspot.ErrAssignmentNotFound) {
		t.Fatalf("expected ErrAssignmentNotFound for a foreign assignment, got %v", err)
	}
}
