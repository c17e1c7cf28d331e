package admin

import (
	handlershared "github.com/stockyourlot/internal/http/handlers/shared"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

var subjectErrorRules = []handlershared.MappedError{
	{Target: service.ErrInvalidSubjectType, Code: response.CodeBadRequest, Key: "error.subject_type_invalid"},
	{Target: service.ErrSubjectInvalid, Code: response.CodeBadRequest, Key: "error.subject_invalid"},
	{Target: service.ErrSubjectNotFound, Code: response.CodeNotFound, Key: "error.subject_not_found"},
}

var incentiveErrorRules = handlershared.ConcatMappedErrors(subjectErrorRules, []handlershared.MappedError{
	{Target: service.ErrRuleNotFound, Code: response.CodeNotFound, Key: "error.rule_not_found"},
	{Target: service.ErrRuleInvalid, Code: response.CodeBadRequest, Key: "error.rule_invalid"},
	{Target: service.ErrAssignmentNotFound, Code: response.CodeNotFound, Key: "error.assignment_not_found"},
	{Target: service.ErrAssignmentInvalid, Code: response.CodeBadRequest, Key: "error.assignment_invalid"},
	{Target: service.ErrAssignmentLevelConflict, Code: response.CodeConflict, Key: "error.assignment_level_conflict"},
})

var purchaseErrorRules = []handlershared.MappedError{
	{Target: service.ErrPurchaseNotFound, Code: response.CodeNotFound, Key: "error.purchase_not_found"},
	{Target: service.ErrPurchaseInvalid, Code: response.CodeBadRequest, Key: "error.purchase_invalid"},
	{Target: service.ErrDealershipNotFound, Code: response.CodeNotFound, Key: "error.dealership_not_found"},
	{Target: service.ErrBuyerNotFound, Code: response.CodeNotFound, Key: "error.buyer_not_found"},
}

func respondIncentiveError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, incentiveErrorRules, response.CodeInternal, "error.internal")
}

func respondPurchaseError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondWithMappedError(c, err, purchaseErrorRules, response.CodeInternal, fallbackKey)
}
