package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/stockyourlot/internal/authz"
	"github.com/stockyourlot/internal/config"
	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/logger"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/provider"
	"github.com/stockyourlot/internal/service"

	"github.com/shopspring/decimal"
)

const demoTokenTTL = 7 * 24 * time.Hour

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()
	if err := models.Setup(cfg.Database, false); err != nil {
		stdLog.Fatalf("seed: %v", err)
	}

	// 容器初始化时会同步预置角色
	c := provider.NewContainer(cfg)

	dealership := seedDealership(c, service.CreateDealershipInput{
		Name:  "Lakeside Motors",
		City:  "Austin",
		State: "TX",
		Zip:   "78701",
	})
	admin := seedAgent(c, service.CreateAgentInput{Username: "admin", Email: "admin@example.com", DisplayName: "Lot Admin"})
	agent := seedAgent(c, service.CreateAgentInput{Username: "agent.rivera", Email: "rivera@example.com", DisplayName: "Sam Rivera"})

	flat := seedRule(c, "Standard buy fee", decimal.NewFromInt(150), constants.AmountKindFlat)
	launch := seedRule(c, "Launch bonus", decimal.NewFromInt(300), constants.AmountKindFlat)
	percent := seedRule(c, "Dealer volume share", decimal.RequireFromString("1.5"), constants.AmountKindPercent)

	start := models.NewDate(time.Now().AddDate(0, -1, 0))
	launchEnd := models.NewDate(time.Now().AddDate(0, 2, 0))
	launchCap := 10
	bonusLevel := 2

	seedAssignment(c, constants.SubjectTypeAgent, agent.ID, service.CreateAssignmentInput{
		RuleID:    flat.ID,
		StartDate: &start,
	})
	seedAssignment(c, constants.SubjectTypeAgent, agent.ID, service.CreateAssignmentInput{
		RuleID:         launch.ID,
		StartDate:      &start,
		EndDate:        &launchEnd,
		Level:          &bonusLevel,
		TransactionCap: &launchCap,
	})
	seedAssignment(c, constants.SubjectTypeDealership, dealership.ID, service.CreateAssignmentInput{
		RuleID:    percent.ID,
		StartDate: &start,
	})

	printToken(cfg, admin, []string{"admin"})
	printToken(cfg, agent, []string{"buyer"})
	stdLog.Printf("Seed completed: dealership=%d agent=%d", dealership.ID, agent.ID)
}

func seedDealership(c *provider.Container, input service.CreateDealershipInput) *models.Dealership {
	var existing models.Dealership
	if err := models.DB.Where("name = ?", input.Name).First(&existing).Error; err == nil {
		logger.Infow("seed_dealership_exists", "dealership_id", existing.ID, "name", existing.Name)
		return &existing
	}
	dealership, err := c.SubjectService.CreateDealership(input)
	if err != nil {
		logger.StdLogger().Fatalf("Failed to create dealership %s: %v", input.Name, err)
	}
	logger.Infow("seed_dealership_created", "dealership_id", dealership.ID, "name", dealership.Name)
	return dealership
}

func seedAgent(c *provider.Container, input service.CreateAgentInput) *models.User {
	var existing models.User
	if err := models.DB.Where("username = ?", input.Username).First(&existing).Error; err == nil {
		logger.Infow("seed_agent_exists", "user_id", existing.ID, "username", existing.Username)
		return &existing
	}
	user, err := c.SubjectService.CreateAgent(input)
	if err != nil {
		logger.StdLogger().Fatalf("Failed to create agent %s: %v", input.Username, err)
	}
	logger.Infow("seed_agent_created", "user_id", user.ID, "username", user.Username)
	return user
}

func seedRule(c *provider.Container, name string, amount decimal.Decimal, kind string) *models.IncentiveRule {
	var existing models.IncentiveRule
	if err := models.DB.Where("name = ?", name).First(&existing).Error; err == nil {
		return &existing
	}
	rule, err := c.IncentiveRuleService.Create(service.CreateIncentiveRuleInput{
		Name:       name,
		Amount:     &amount,
		AmountKind: kind,
	})
	if err != nil {
		logger.StdLogger().Fatalf("Failed to create rule %s: %v", name, err)
	}
	return rule
}

func seedAssignment(c *provider.Container, subjectType string, subjectID uint, input service.CreateAssignmentInput) {
	_, err := c.IncentiveAssignmentService.Create(subjectType, subjectID, input)
	if errors.Is(err, service.ErrAssignmentLevelConflict) {
		logger.Infow("seed_assignment_exists", "subject_type", subjectType, "subject_id", subjectID, "rule_id", input.RuleID)
		return
	}
	if err != nil {
		logger.StdLogger().Fatalf("Failed to assign rule %d to %s %d: %v", input.RuleID, subjectType, subjectID, err)
	}
}

func printToken(cfg *config.Config, user *models.User, roles []string) {
	token, err := authz.IssueAccessToken(cfg.JWT.SecretKey, cfg.JWT.Issuer, user.ID, user.Username, roles, demoTokenTTL)
	if err != nil {
		logger.StdLogger().Fatalf("Failed to issue token for %s: %v", user.Username, err)
	}
	fmt.Printf("%s (%v): %s\n", user.Username, roles, token)
}
