package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stockyourlot/internal/config"
	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/provider"
	"github.com/stockyourlot/internal/queue"
	"github.com/stockyourlot/internal/repository"
	"github.com/stockyourlot/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	opts := service.DefaultIncentiveOptions()
	container := &provider.Container{
		IncentiveSettlementService: service.NewIncentiveSettlementService(
			repository.NewIncentiveAssignmentRepository(db),
			repository.NewIncentiveSettlementRepository(db),
			repository.NewPurchaseRepository(db),
			repository.NewSubjectRepository(db),
			opts,
		),
	}
	consumer := NewConsumer(container)
	consumer.now = func() time.Time { return time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC) }
	return consumer, db
}

func seedExpiringAssignment(t *testing.T, db *gorm.DB, end models.Date) *models.IncentiveAssignment {
	t.Helper()
	user := &models.User{Username: "agent", Status: constants.UserStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	rule := &models.IncentiveRule{
		Name:       "spring",
		AmountKind: constants.AmountKindFlat,
		Amount:     decimal.NewNullDecimal(decimal.NewFromInt(50)),
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("create rule failed: %v", err)
	}
	assignment := &models.IncentiveAssignment{
		SubjectType: constants.SubjectTypeAgent,
		SubjectID:   user.ID,
		RuleID:      rule.ID,
		StartDate:   models.DateOf(2025, 1, 1),
		EndDate:     &end,
		Level:       1,
		Status:      constants.AssignmentStatusActive,
	}
	if err := db.Omit("Rule").Create(assignment).Error; err != nil {
		t.Fatalf("create assignment failed: %v", err)
	}
	return assignment
}

func loadAssignmentStatus(t *testing.T, db *gorm.DB, id uint) string {
	t.Helper()
	var row models.IncentiveAssignment
	if err := db.First(&row, id).Error; err != nil {
		t.Fatalf("load assignment failed: %v", err)
	}
	return row.Status
}

func TestHandleSweepExpirationsUsesPayloadDate(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	assignment := seedExpiringAssignment(t, db, models.DateOf(2025, 3, 31))

	task, err := queue.NewSweepExpirationsTask(queue.SweepExpirationsPayload{AsOf: "2025-03-31"})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleSweepExpirations(context.Background(), task); err != nil {
		t.Fatalf("handle sweep failed: %v", err)
	}
	if status := loadAssignmentStatus(t, db, assignment.ID); status != constants.AssignmentStatusActive {
		t.Fatalf("assignment should stay active on its end date, got %s", status)
	}

	task, _ = queue.NewSweepExpirationsTask(queue.SweepExpirationsPayload{})
	if err := consumer.handleSweepExpirations(context.Background(), task); err != nil {
		t.Fatalf("handle sweep failed: %v", err)
	}
	if status := loadAssignmentStatus(t, db, assignment.ID); status != constants.AssignmentStatusExpired {
		t.Fatalf("assignment should expire when swept after end date, got %s", status)
	}
}

func TestHandleSweepExpirationsRejectsBadDate(t *testing.T) {
	consumer, _ := setupWorkerTest(t)
	task, _ := queue.NewSweepExpirationsTask(queue.SweepExpirationsPayload{AsOf: "04/01/2025"})

	err := consumer.handleSweepExpirations(context.Background(), task)
	if err == nil {
		t.Fatalf("expected error for malformed date")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload should skip retry, got %v", err)
	}
}

func TestResolveSweepDateDefaultsToToday(t *testing.T) {
	consumer, _ := setupWorkerTest(t)
	got, err := consumer.resolveSweepDate("  ")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got.String() != "2025-05-02" {
		t.Fatalf("want 2025-05-02 got %s", got.String())
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	consumer, _ := setupWorkerTest(t)
	if _, err := NewService(&config.QueueConfig{Enabled: false}, consumer); err == nil {
		t.Fatalf("expected disabled queue rejected")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("expected nil consumer rejected")
	}
	var svc *Service
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop on nil service should be a no-op: %v", err)
	}
}
