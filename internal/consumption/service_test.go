package consumption

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/ecotrack/internal/model"
	"github.com/hitoshi/ecotrack/internal/repository"
)

// memLogRepo はインメモリのConsumptionLogRepository。
type memLogRepo struct {
	mu   sync.Mutex
	logs []*model.ConsumptionLog
}

func (r *memLogRepo) Create(_ context.Context, l *model.ConsumptionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *l
	r.logs = append(r.logs, &c)
	return nil
}

func (r *memLogRepo) ListByUserBetween(_ context.Context, userID string, from, to time.Time) ([]*model.ConsumptionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.ConsumptionLog, 0)
	for _, l := range r.logs {
		if l.UserID == userID && !l.Timestamp.Before(from) && !l.Timestamp.After(to) {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}

type mockLogRepo struct {
	createFn func(ctx context.Context, l *model.ConsumptionLog) error
	listFn   func(ctx context.Context, userID string, from, to time.Time) ([]*model.ConsumptionLog, error)
}

func (m *mockLogRepo) Create(ctx context.Context, l *model.ConsumptionLog) error {
	if m.createFn != nil {
		return m.createFn(ctx, l)
	}
	return nil
}

func (m *mockLogRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.ConsumptionLog, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, from, to)
	}
	return nil, nil
}

// fakeAppliances は所有者チェック付きのApplianceFinder。
type fakeAppliances struct {
	items map[string]*model.Appliance
}

func (f *fakeAppliances) Get(_ context.Context, ownerID, applianceID string) (*model.Appliance, error) {
	a, ok := f.items[applianceID]
	if !ok || a.UserID != ownerID {
		return nil, model.NewApplianceNotFoundError(applianceID)
	}
	c := *a
	return &c, nil
}

type mockRecorder struct {
	kwh []float64
}

func (m *mockRecorder) RecordUsageLogged(kwh float64) { m.kwh = append(m.kwh, kwh) }

var _ repository.ConsumptionLogRepository = (*memLogRepo)(nil)
var _ repository.ConsumptionLogRepository = (*mockLogRepo)(nil)
var _ ApplianceFinder = (*fakeAppliances)(nil)
var _ Recorder = (*mockRecorder)(nil)

const kettleID = "9b2f5f0e-8a8c-4d57-a3f4-1f1b2c3d4e5f"

func newFixture() (*Service, *memLogRepo, *fakeAppliances, *time.Time) {
	repo := &memLogRepo{}
	appliances := &fakeAppliances{items: map[string]*model.Appliance{
		kettleID: {ID: kettleID, UserID: "owner", Name: "Kettle", PowerWatts: 2000},
	}}
	now := time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)
	svc := NewService(repo, appliances, nil)
	svc.now = func() time.Time { return now }
	return svc, repo, appliances, &now
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

// 2000Wの家電を30分使用すると1.0kWhになることを検証
func TestLogUsage_ComputesKWh(t *testing.T) {
	svc, repo, _, now := newFixture()
	recorder := &mockRecorder{}
	svc.recorder = recorder

	log, err := svc.LogUsage(context.Background(), "owner", kettleID, 30)
	if err != nil {
		t.Fatalf("LogUsage returned error: %v", err)
	}
	if log.KWh != 1.0 {
		t.Errorf("KWh = %v, want 1.0", log.KWh)
	}
	if log.Watts != 2000 || log.Minutes != 30 {
		t.Errorf("watts/minutes = %v/%v, want 2000/30", log.Watts, log.Minutes)
	}
	if !log.Timestamp.Equal(*now) {
		t.Errorf("Timestamp = %v, want %v", log.Timestamp, *now)
	}
	if log.UserID != "owner" || log.ApplianceID != kettleID {
		t.Errorf("log = %+v", log)
	}
	if len(repo.logs) != 1 {
		t.Errorf("stored logs = %d, want 1", len(repo.logs))
	}
	if len(recorder.kwh) != 1 || recorder.kwh[0] != 1.0 {
		t.Errorf("recorded kwh = %v, want [1]", recorder.kwh)
	}
}

// 家電の定格電力を後から変えても過去の記録は変わらないことを検証
func TestLogUsage_WattsSnapshot(t *testing.T) {
	svc, repo, appliances, _ := newFixture()
	ctx := context.Background()

	if _, err := svc.LogUsage(ctx, "owner", kettleID, 30); err != nil {
		t.Fatalf("LogUsage returned error: %v", err)
	}

	appliances.items[kettleID].PowerWatts = 1000

	second, err := svc.LogUsage(ctx, "owner", kettleID, 30)
	if err != nil {
		t.Fatalf("LogUsage returned error: %v", err)
	}
	if second.KWh != 0.5 {
		t.Errorf("second KWh = %v, want 0.5", second.KWh)
	}
	if repo.logs[0].Watts != 2000 || repo.logs[0].KWh != 1.0 {
		t.Errorf("first log changed: %+v", repo.logs[0])
	}
}

func TestLogUsage_Validation(t *testing.T) {
	svc, repo, _, _ := newFixture()

	tests := []struct {
		name        string
		applianceID string
		minutes     float64
	}{
		{"missing appliance", "", 30},
		{"blank appliance", "  ", 30},
		{"zero minutes", kettleID, 0},
		{"negative minutes", kettleID, -10},
		{"NaN minutes", kettleID, math.NaN()},
		{"infinite minutes", kettleID, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.LogUsage(context.Background(), "owner", tt.applianceID, tt.minutes)
			assertAPIErrorCode(t, err, model.ErrCodeValidation)
		})
	}
	if len(repo.logs) != 0 {
		t.Errorf("stored logs = %d, want 0", len(repo.logs))
	}
}

// 他ユーザーの家電への記録はNotFoundになり保存されないことを検証
func TestLogUsage_NotOwned_ReturnsNotFound(t *testing.T) {
	svc, repo, _, _ := newFixture()

	_, err := svc.LogUsage(context.Background(), "intruder", kettleID, 30)
	assertAPIErrorCode(t, err, model.ErrCodeApplianceNotFound)

	if len(repo.logs) != 0 {
		t.Errorf("stored logs = %d, want 0", len(repo.logs))
	}
}

func TestLogUsage_RepoError_IsWrapped(t *testing.T) {
	_, _, appliances, _ := newFixture()
	dbErr := errors.New("insert failed")
	svc := NewService(&mockLogRepo{
		createFn: func(context.Context, *model.ConsumptionLog) error { return dbErr },
	}, appliances, nil)

	_, err := svc.LogUsage(context.Background(), "owner", kettleID, 30)
	if !errors.Is(err, dbErr) {
		t.Errorf("error = %v, want wrapped %v", err, dbErr)
	}
}

// 直近24時間の1.0kWhと0.5kWh、25時間前の10kWhから {1.5, 2} が返ることを検証
func TestSummary_Last24Hours(t *testing.T) {
	svc, _, _, now := newFixture()
	ctx := context.Background()
	current := *now

	// 25時間前: 2000W × 300分 = 10kWh
	*now = current.Add(-25 * time.Hour)
	if _, err := svc.LogUsage(ctx, "owner", kettleID, 300); err != nil {
		t.Fatalf("LogUsage returned error: %v", err)
	}

	*now = current.Add(-2 * time.Hour)
	if _, err := svc.LogUsage(ctx, "owner", kettleID, 30); err != nil {
		t.Fatalf("LogUsage returned error: %v", err)
	}

	*now = current.Add(-10 * time.Minute)
	if _, err := svc.LogUsage(ctx, "owner", kettleID, 15); err != nil {
		t.Fatalf("LogUsage returned error: %v", err)
	}

	*now = current
	summary, err := svc.Summary(ctx, "owner")
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if summary.TotalKWhLast24h != 1.5 || summary.Count != 2 {
		t.Errorf("summary = %+v, want {1.5 2}", summary)
	}
}

// 集計期間の境界と丸め、他ユーザーの記録の除外を検証
func TestSummary_WindowBoundsAndRounding(t *testing.T) {
	var gotFrom, gotTo time.Time
	now := time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)
	svc := NewService(&mockLogRepo{
		listFn: func(_ context.Context, userID string, from, to time.Time) ([]*model.ConsumptionLog, error) {
			gotFrom, gotTo = from, to
			return []*model.ConsumptionLog{
				{UserID: userID, KWh: 0.1},
				{UserID: userID, KWh: 0.2},
				{UserID: userID, KWh: 0.00004},
			}, nil
		},
	}, &fakeAppliances{}, nil)
	svc.now = func() time.Time { return now }

	summary, err := svc.Summary(context.Background(), "owner")
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if !gotFrom.Equal(now.Add(-24*time.Hour)) || !gotTo.Equal(now) {
		t.Errorf("window = [%v, %v], want [%v, %v]", gotFrom, gotTo, now.Add(-24*time.Hour), now)
	}
	if summary.TotalKWhLast24h != 0.3 {
		t.Errorf("TotalKWhLast24h = %v, want 0.3", summary.TotalKWhLast24h)
	}
	if summary.Count != 3 {
		t.Errorf("Count = %d, want 3", summary.Count)
	}
}

func TestSummary_EmptyAndOwnerScoped(t *testing.T) {
	svc, _, _, _ := newFixture()
	ctx := context.Background()

	if _, err := svc.LogUsage(ctx, "owner", kettleID, 30); err != nil {
		t.Fatalf("LogUsage returned error: %v", err)
	}

	summary, err := svc.Summary(ctx, "someone-else")
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if summary.TotalKWhLast24h != 0 || summary.Count != 0 {
		t.Errorf("summary = %+v, want zero", summary)
	}
}

func TestSummary_RepoError_IsWrapped(t *testing.T) {
	dbErr := errors.New("query failed")
	svc := NewService(&mockLogRepo{
		listFn: func(context.Context, string, time.Time, time.Time) ([]*model.ConsumptionLog, error) {
			return nil, dbErr
		},
	}, &fakeAppliances{}, nil)

	if _, err := svc.Summary(context.Background(), "owner"); !errors.Is(err, dbErr) {
		t.Errorf("error = %v, want wrapped %v", err, dbErr)
	}
}
