package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/metrics"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type incentiveTestEnv struct {
	db          *gorm.DB
	rules       *IncentiveRuleService
	assignments *IncentiveAssignmentService
	settlements *IncentiveSettlementService
	purchases   *PurchaseService
	subjects    *SubjectService
}

func setupIncentiveServiceTest(t *testing.T) *incentiveTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:incentive_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return newIncentiveTestEnv(db)
}

func newIncentiveTestEnv(db *gorm.DB) *incentiveTestEnv {
	opts := DefaultIncentiveOptions()
	opts.RuleCacheTTL = 0
	opts.Metrics = metrics.NewRegistry().Incentive

	ruleRepo := repository.NewIncentiveRuleRepository(db)
	assignmentRepo := repository.NewIncentiveAssignmentRepository(db)
	settlementRepo := repository.NewIncentiveSettlementRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)

	settlements := NewIncentiveSettlementService(assignmentRepo, settlementRepo, purchaseRepo, subjectRepo, opts)
	return &incentiveTestEnv{
		db:          db,
		rules:       NewIncentiveRuleService(ruleRepo, opts),
		assignments: NewIncentiveAssignmentService(assignmentRepo, ruleRepo, subjectRepo, opts),
		settlements: settlements,
		purchases:   NewPurchaseService(purchaseRepo, subjectRepo, settlements, opts),
		subjects:    NewSubjectService(subjectRepo),
	}
}

func (e *incentiveTestEnv) agent(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.subjects.CreateAgent(CreateAgentInput{Username: username})
	require.NoError(t, err)
	return user
}

func (e *incentiveTestEnv) dealership(t *testing.T, name string) *models.Dealership {
	t.Helper()
	dealership, err := e.subjects.CreateDealership(CreateDealershipInput{Name: name})
	require.NoError(t, err)
	return dealership
}

func (e *incentiveTestEnv) rule(t *testing.T, kind, amount string) *models.IncentiveRule {
	t.Helper()
	value := decimal.RequireFromString(amount)
	rule, err := e.rules.Create(CreateIncentiveRuleInput{Name: kind + " " + amount, Amount: &value, AmountKind: kind})
	require.NoError(t, err)
	return rule
}

func (e *incentiveTestEnv) assign(t *testing.T, subjectType string, subjectID uint, input CreateAssignmentInput) *models.IncentiveAssignment {
	t.Helper()
	assignment, err := e.assignments.Create(subjectType, subjectID, input)
	require.NoError(t, err)
	return assignment
}

func (e *incentiveTestEnv) buy(t *testing.T, buyerID, dealershipID uint, day models.Date, price string) *models.Purchase {
	t.Helper()
	purchase, err := e.purchases.Create(context.Background(), purchaseInput(buyerID, dealershipID, day, price))
	require.NoError(t, err)
	return purchase
}

func purchaseInput(buyerID, dealershipID uint, day models.Date, price string) CreatePurchaseInput {
	value := decimal.RequireFromString(price)
	return CreatePurchaseInput{
		BuyerID:         buyerID,
		DealershipID:    dealershipID,
		Date:            &day,
		AuctionPlatform: "Manheim",
		VIN:             "1hgcm82633a004352",
		PurchasePrice:   &value,
	}
}

func intPtr(v int) *int {
	return &v
}

func datePtr(d models.Date) *models.Date {
	return &d
}

func settlementFor(settlements []models.IncentiveSettlement, subjectType string) *models.IncentiveSettlement {
	for i := range settlements {
		if settlements[i].SubjectType == subjectType {
			return &settlements[i]
		}
	}
	return nil
}

func TestPurchaseCreateSettlesBothSubjects(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "alice")
	lot := env.dealership(t, "Northside Motors")
	flat := env.rule(t, constants.AmountKindFlat, "150")
	percent := env.rule(t, constants.AmountKindPercent, "5")
	start := models.DateOf(2025, 1, 1)
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: &start})
	env.assign(t, constants.SubjectTypeDealership, lot.ID, CreateAssignmentInput{RuleID: percent.ID, StartDate: &start})

	purchase := env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 2, 10), "20000.00")
	assert.Equal(t, "1HGCM82633A004352", purchase.VIN)
	require.Len(t, purchase.Settlements, 2)

	agentLeg := settlementFor(purchase.Settlements, constants.SubjectTypeAgent)
	require.NotNil(t, agentLeg)
	assert.Equal(t, "150.00", agentLeg.Amount.String())
	assert.Equal(t, flat.Name, agentLeg.RuleName)

	dealerLeg := settlementFor(purchase.Settlements, constants.SubjectTypeDealership)
	require.NotNil(t, dealerLeg)
	assert.Equal(t, "1000.00", dealerLeg.Amount.String())
	assert.Equal(t, "20000.00", dealerLeg.BaseAmount.String())

	stored, err := env.settlements.ListForPurchase(purchase.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	loaded, err := env.purchases.Get(purchase.ID, agent.ID)
	require.NoError(t, err)
	totals := SettlementTotals(loaded)
	assert.Equal(t, "150.00", totals[constants.SubjectTypeAgent].String())
	assert.Equal(t, "1000.00", totals[constants.SubjectTypeDealership].String())

	_, err = env.purchases.Get(purchase.ID, agent.ID+100)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestPurchaseCreateWithoutEffectiveRuleStoresNoSettlement(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "bob")
	lot := env.dealership(t, "Southside Auto")
	flat := env.rule(t, constants.AmountKindFlat, "150")
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 6, 1))})

	purchase := env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 5, 31), "9000")
	assert.Empty(t, purchase.Settlements)

	var count int64
	require.NoError(t, env.db.Model(&models.Purchase{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPurchaseCreateValidatesInput(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "carol")
	lot := env.dealership(t, "Eastside")
	day := models.DateOf(2025, 1, 5)

	_, err := env.purchases.Create(context.Background(), purchaseInput(agent.ID, lot.ID+99, day, "100"))
	assert.ErrorIs(t, err, ErrDealershipNotFound)

	_, err = env.purchases.Create(context.Background(), purchaseInput(agent.ID+99, lot.ID, day, "100"))
	assert.ErrorIs(t, err, ErrBuyerNotFound)

	_, err = env.purchases.Create(context.Background(), purchaseInput(agent.ID, lot.ID, day, "-1"))
	assert.ErrorIs(t, err, ErrPurchaseInvalid)

	input := purchaseInput(agent.ID, lot.ID, day, "100")
	input.VIN = "123456789012345678"
	_, err = env.purchases.Create(context.Background(), input)
	assert.ErrorIs(t, err, ErrPurchaseInvalid)

	input = purchaseInput(agent.ID, lot.ID, day, "100")
	input.Date = nil
	_, err = env.purchases.Create(context.Background(), input)
	assert.ErrorIs(t, err, ErrPurchaseInvalid)
}

func TestTransactionCapExpiresAssignmentAndFallsBack(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "dave")
	lot := env.dealership(t, "Westside")
	capped := env.rule(t, constants.AmountKindFlat, "100")
	fallback := env.rule(t, constants.AmountKindFlat, "50")
	start := models.DateOf(2025, 3, 1)
	cappedAssignment := env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{
		RuleID: capped.ID, StartDate: &start, Level: intPtr(2), TransactionCap: intPtr(3),
	})
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: fallback.ID, StartDate: &start, Level: intPtr(1)})

	for i := 0; i < 3; i++ {
		purchase := env.buy(t, agent.ID, lot.ID, start.AddDays(i), "10000")
		leg := settlementFor(purchase.Settlements, constants.SubjectTypeAgent)
		require.NotNil(t, leg)
		assert.Equal(t, "100.00", leg.Amount.String(), "purchase %d", i+1)
	}

	expired, err := env.assignments.List(constants.SubjectTypeAgent, agent.ID, constants.AssignmentStatusExpired)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, cappedAssignment.ID, expired[0].ID)
	assert.Equal(t, constants.ExpireReasonTransactionCap, expired[0].ExpireReason)
	assert.NotNil(t, expired[0].ExpiredAt)

	fourth := env.buy(t, agent.ID, lot.ID, start.AddDays(3), "10000")
	leg := settlementFor(fourth.Settlements, constants.SubjectTypeAgent)
	require.NotNil(t, leg)
	assert.Equal(t, "50.00", leg.Amount.String())
}

func TestEndDateExpiresAssignmentOnLaterPurchase(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "erin")
	lot := env.dealership(t, "Harbor")
	flat := env.rule(t, constants.AmountKindFlat, "75")
	assignment := env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{
		RuleID:    flat.ID,
		StartDate: datePtr(models.DateOf(2025, 1, 1)),
		EndDate:   datePtr(models.DateOf(2025, 1, 31)),
	})

	purchase := env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 2, 5), "5000")
	assert.Nil(t, settlementFor(purchase.Settlements, constants.SubjectTypeAgent))

	rows, err := env.assignments.List(constants.SubjectTypeAgent, agent.ID, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, assignment.ID, rows[0].ID)
	assert.Equal(t, constants.AssignmentStatusExpired, rows[0].Status)
	assert.Equal(t, constants.ExpireReasonEndDate, rows[0].ExpireReason)
}

func TestAssignmentLevelConflictAndReuseAfterExpiry(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "frank")
	flat := env.rule(t, constants.AmountKindFlat, "10")
	end := models.DateOf(2025, 1, 31)
	first := env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{
		RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 1, 1)), EndDate: &end,
	})
	assert.Equal(t, 1, first.Level)

	_, err := env.assignments.Create(constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{
		RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 2, 1)),
	})
	assert.ErrorIs(t, err, ErrAssignmentLevelConflict)

	expired, err := env.settlements.EvaluateExpirations(constants.SubjectTypeAgent, agent.ID, models.DateOf(2025, 2, 1))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, first.ID, expired[0].ID)

	again, err := env.assignments.Create(constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{
		RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 2, 1)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, again.Level)

	second := env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{
		RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 2, 1)), Level: intPtr(4),
	})
	_, err = env.assignments.Update(constants.SubjectTypeAgent, agent.ID, second.ID, UpdateAssignmentInput{Level: intPtr(1)})
	assert.ErrorIs(t, err, ErrAssignmentLevelConflict)
}

func TestAssignmentValidation(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "gina")
	flat := env.rule(t, constants.AmountKindFlat, "10")
	start := models.DateOf(2025, 1, 10)

	_, err := env.assignments.Create("broker", agent.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: &start})
	assert.ErrorIs(t, err, ErrInvalidSubjectType)

	_, err = env.assignments.Create(constants.SubjectTypeAgent, agent.ID+50, CreateAssignmentInput{RuleID: flat.ID, StartDate: &start})
	assert.ErrorIs(t, err, ErrSubjectNotFound)

	_, err = env.assignments.Create(constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: flat.ID + 50, StartDate: &start})
	assert.ErrorIs(t, err, ErrRuleNotFound)

	_, err = env.assignments.Create(constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{
		RuleID: flat.ID, StartDate: &start, EndDate: datePtr(models.DateOf(2025, 1, 9)),
	})
	assert.ErrorIs(t, err, ErrAssignmentInvalid)

	_, err = env.assignments.Create(constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: &start, Level: intPtr(-1)})
	assert.ErrorIs(t, err, ErrAssignmentInvalid)

	_, err = env.assignments.Create(constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: &start, TransactionCap: intPtr(0)})
	assert.ErrorIs(t, err, ErrAssignmentInvalid)
}

func TestAssignmentUpdateClearsOptionalFields(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "hank")
	flat := env.rule(t, constants.AmountKindFlat, "10")
	assignment := env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{
		RuleID:         flat.ID,
		StartDate:      datePtr(models.DateOf(2025, 1, 1)),
		EndDate:        datePtr(models.DateOf(2025, 12, 31)),
		TransactionCap: intPtr(5),
	})

	updated, err := env.assignments.Update(constants.SubjectTypeAgent, agent.ID, assignment.ID, UpdateAssignmentInput{
		ClearEndDate:        true,
		ClearTransactionCap: true,
		Level:               intPtr(3),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.EndDate)
	assert.Nil(t, updated.TransactionCap)
	assert.Equal(t, 3, updated.Level)

	rows, err := env.assignments.List(constants.SubjectTypeAgent, agent.ID, constants.AssignmentStatusActive)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].EndDate)
	assert.Nil(t, rows[0].TransactionCap)

	_, err = env.assignments.Update(constants.SubjectTypeAgent, agent.ID, assignment.ID, UpdateAssignmentInput{Level: intPtr(-2)})
	assert.ErrorIs(t, err, ErrAssignmentInvalid)

	_, err = env.assignments.Update(constants.SubjectTypeDealership, agent.ID, assignment.ID, UpdateAssignmentInput{Level: intPtr(2)})
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestSettleForPurchaseSkipsLegWithMissingSubject(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "ivy")
	flat := env.rule(t, constants.AmountKindFlat, "20")
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 1, 1))})

	purchase := &models.Purchase{
		BuyerID:         agent.ID,
		DealershipID:    999,
		PurchaseDate:    models.DateOf(2025, 1, 2),
		AuctionPlatform: "ADESA",
		VIN:             "VIN0001",
		PurchasePrice:   models.MustMoney("1000"),
	}
	require.NoError(t, env.db.Create(purchase).Error)

	var settlements []models.IncentiveSettlement
	err := env.db.Transaction(func(tx *gorm.DB) error {
		var settleErr error
		settlements, settleErr = env.settlements.SettleForPurchase(tx, purchase)
		return settleErr
	})
	require.NoError(t, err)
	require.Len(t, settlements, 1)
	assert.Equal(t, constants.SubjectTypeAgent, settlements[0].SubjectType)
	assert.Equal(t, "20.00", settlements[0].Amount.String())

	err = env.db.Transaction(func(tx *gorm.DB) error {
		var settleErr error
		settlements, settleErr = env.settlements.SettleForPurchase(tx, purchase)
		return settleErr
	})
	require.NoError(t, err)
	assert.Empty(t, settlements)

	stored, err := env.settlements.ListForPurchase(purchase.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestPurchaseCreateRollsBackOnStorageFailure(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "jack")
	lot := env.dealership(t, "Lakeside")
	flat := env.rule(t, constants.AmountKindFlat, "20")
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 1, 1))})
	require.NoError(t, env.db.Migrator().DropTable(&models.IncentiveSettlement{}))

	_, err := env.purchases.Create(context.Background(), purchaseInput(agent.ID, lot.ID, models.DateOf(2025, 1, 3), "1000"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settle agent leg")

	var count int64
	require.NoError(t, env.db.Model(&models.Purchase{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRuleDeleteKeepsSettlementHistory(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "kate")
	lot := env.dealership(t, "Hilltop")
	flat := env.rule(t, constants.AmountKindFlat, "300")
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 1, 1))})
	purchase := env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 1, 15), "1000")

	require.NoError(t, env.rules.Delete(context.Background(), flat.ID))
	_, err := env.rules.Get(context.Background(), flat.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)

	stored, err := env.settlements.ListForPurchase(purchase.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Nil(t, stored[0].RuleID)
	assert.Equal(t, flat.Name, stored[0].RuleName)
	assert.Equal(t, "300.00", stored[0].Amount.String())

	effective, err := env.assignments.ResolveEffective(constants.SubjectTypeAgent, agent.ID, models.DateOf(2025, 1, 16))
	require.NoError(t, err)
	assert.Nil(t, effective)

	next := env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 1, 16), "1000")
	assert.Empty(t, next.Settlements)
}

func TestRuleUpdateDoesNotTouchRecordedSettlements(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "leo")
	lot := env.dealership(t, "Valley")
	percent := env.rule(t, constants.AmountKindPercent, "10")
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: percent.ID, StartDate: datePtr(models.DateOf(2025, 1, 1))})
	purchase := env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 1, 2), "1000")

	amount := decimal.NewFromInt(20)
	updated, err := env.rules.Update(context.Background(), percent.ID, UpdateIncentiveRuleInput{Amount: &amount})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Decimal.Equal(amount))

	stored, err := env.settlements.ListForPurchase(purchase.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "100.00", stored[0].Amount.String())

	next := env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 1, 3), "1000")
	leg := settlementFor(next.Settlements, constants.SubjectTypeAgent)
	require.NotNil(t, leg)
	assert.Equal(t, "200.00", leg.Amount.String())
}

func TestPurchaseUpdateDoesNotResettle(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "mia")
	lot := env.dealership(t, "Ridge")
	other := env.dealership(t, "Ridge East")
	percent := env.rule(t, constants.AmountKindPercent, "5")
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: percent.ID, StartDate: datePtr(models.DateOf(2025, 1, 1))})
	purchase := env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 1, 2), "1000")

	price := decimal.NewFromInt(5000)
	platform := "IAA"
	updated, err := env.purchases.Update(context.Background(), purchase.ID, UpdatePurchaseInput{
		PurchasePrice:   &price,
		AuctionPlatform: &platform,
		DealershipID:    &other.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "5000.00", updated.PurchasePrice.String())
	assert.Equal(t, "IAA", updated.AuctionPlatform)
	assert.Equal(t, other.ID, updated.DealershipID)
	require.Len(t, updated.Settlements, 1)
	assert.Equal(t, "50.00", updated.Settlements[0].Amount.String())

	missing := uint(4040)
	_, err = env.purchases.Update(context.Background(), purchase.ID, UpdatePurchaseInput{DealershipID: &missing})
	assert.ErrorIs(t, err, ErrDealershipNotFound)

	_, err = env.purchases.Update(context.Background(), purchase.ID+100, UpdatePurchaseInput{AuctionPlatform: &platform})
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestSummarizeSubjectMonth(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "nora")
	lot := env.dealership(t, "Bayview")
	flat := env.rule(t, constants.AmountKindFlat, "25")
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 1, 1))})

	env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 1, 31), "100")
	env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 2, 1), "100")
	env.buy(t, agent.ID, lot.ID, models.DateOf(2025, 2, 28), "100")

	summary, err := env.settlements.Summarize(constants.SubjectTypeAgent, agent.ID, models.DateOf(2025, 2, 14))
	require.NoError(t, err)
	assert.Equal(t, "2025-02", summary.Month)
	assert.Equal(t, int64(2), summary.PurchasesInMonth)
	assert.Equal(t, "50.00", summary.SettledInMonth.String())
	assert.Equal(t, "75.00", summary.SettledTotal.String())

	dealerSummary, err := env.settlements.Summarize(constants.SubjectTypeDealership, lot.ID, models.DateOf(2025, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), dealerSummary.PurchasesInMonth)
	assert.Equal(t, "0.00", dealerSummary.SettledTotal.String())

	_, err = env.settlements.Summarize(constants.SubjectTypeAgent, agent.ID+77, models.DateOf(2025, 2, 1))
	assert.ErrorIs(t, err, ErrSubjectNotFound)

	page, total, err := env.settlements.ListForSubject(repository.IncentiveSettlementListFilter{
		SubjectType: constants.SubjectTypeAgent,
		SubjectID:   agent.ID,
		DateFrom:    datePtr(models.DateOf(2025, 2, 1)),
		Page:        1,
		PageSize:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, page, 2)
}

func TestRuleServiceValidation(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	negative := decimal.NewFromInt(-1)
	positive := decimal.NewFromInt(1)

	_, err := env.rules.Create(CreateIncentiveRuleInput{Name: "x", Amount: &negative, AmountKind: constants.AmountKindFlat})
	assert.ErrorIs(t, err, ErrRuleInvalid)
	_, err = env.rules.Create(CreateIncentiveRuleInput{Name: "x", Amount: &positive, AmountKind: "bonus"})
	assert.ErrorIs(t, err, ErrRuleInvalid)
	_, err = env.rules.Create(CreateIncentiveRuleInput{Name: "  ", Amount: &positive, AmountKind: constants.AmountKindFlat})
	assert.ErrorIs(t, err, ErrRuleInvalid)

	rule, err := env.rules.Create(CreateIncentiveRuleInput{Name: " Spring ", Amount: &positive, AmountKind: "PERCENT"})
	require.NoError(t, err)
	assert.Equal(t, "Spring", rule.Name)
	assert.Equal(t, constants.AmountKindPercent, rule.AmountKind)

	rows, total, err := env.rules.List(repository.IncentiveRuleListFilter{AmountKind: "Percent", Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, rows, 1)
}

func TestSweepExpirationsCoversAllActiveSubjects(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	agent := env.agent(t, "olga")
	lot := env.dealership(t, "Riverside")
	flat := env.rule(t, constants.AmountKindFlat, "10")
	end := models.DateOf(2025, 3, 31)
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 1, 1)), EndDate: &end})
	env.assign(t, constants.SubjectTypeDealership, lot.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 1, 1)), EndDate: &end})
	env.assign(t, constants.SubjectTypeDealership, lot.ID, CreateAssignmentInput{RuleID: flat.ID, StartDate: datePtr(models.DateOf(2025, 1, 1)), Level: intPtr(2)})

	result, err := env.settlements.SweepExpirations(end)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Subjects)
	assert.Zero(t, result.Expired)

	result, err = env.settlements.SweepExpirations(end.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01", result.AsOf)
	assert.Equal(t, 2, result.Expired)

	active, err := env.assignments.List(constants.SubjectTypeDealership, lot.ID, constants.AssignmentStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].Level)
}

// checkConcurrentPurchasesRespectCap 并发为同一代理人创建采购，上限 3 的分配只能被结算 3 次
func checkConcurrentPurchasesRespectCap(t *testing.T, env *incentiveTestEnv, workers int) {
	t.Helper()
	agent := env.agent(t, "quinn")
	lot := env.dealership(t, "Harbor")
	capped := env.rule(t, constants.AmountKindFlat, "100")
	fallback := env.rule(t, constants.AmountKindFlat, "25")
	day := models.DateOf(2025, 5, 1)
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{
		RuleID: capped.ID, StartDate: &day, Level: intPtr(2), TransactionCap: intPtr(3),
	})
	env.assign(t, constants.SubjectTypeAgent, agent.ID, CreateAssignmentInput{RuleID: fallback.ID, StartDate: &day, Level: intPtr(1)})

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.purchases.Create(context.Background(), purchaseInput(agent.ID, lot.ID, day, "10000"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var cappedCount, agentCount int64
	require.NoError(t, env.db.Model(&models.IncentiveSettlement{}).
		Where("rule_id = ?", capped.ID).Count(&cappedCount).Error)
	require.NoError(t, env.db.Model(&models.IncentiveSettlement{}).
		Where("subject_type = ? AND subject_id = ?", constants.SubjectTypeAgent, agent.ID).Count(&agentCount).Error)
	assert.Equal(t, int64(3), cappedCount)
	assert.Equal(t, int64(workers), agentCount)

	expired, err := env.assignments.List(constants.SubjectTypeAgent, agent.ID, constants.AssignmentStatusExpired)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, capped.ID, expired[0].RuleID)
	assert.Equal(t, constants.ExpireReasonTransactionCap, expired[0].ExpireReason)
}

func TestConcurrentPurchasesRespectTransactionCap(t *testing.T) {
	env := setupIncentiveServiceTest(t)
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	// sqlite 单写连接，事务在连接池上排队
	sqlDB.SetMaxOpenConns(1)

	checkConcurrentPurchasesRespectCap(t, env, 8)
}
