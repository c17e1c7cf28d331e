package public

import (
	handlershared "github.com/stockyourlot/internal/http/handlers/shared"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

var purchaseErrorRules = []handlershared.MappedError{
	{Target: service.ErrPurchaseInvalid, Code: response.CodeBadRequest, Key: "error.purchase_invalid"},
	{Target: service.ErrPurchaseNotFound, Code: response.CodeNotFound, Key: "error.purchase_not_found"},
	{Target: service.ErrDealershipNotFound, Code: response.CodeNotFound, Key: "error.dealership_not_found"},
	{Target: service.ErrBuyerNotFound, Code: response.CodeNotFound, Key: "error.buyer_not_found"},
}

func respondPurchaseError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondWithMappedError(c, err, purchaseErrorRules, response.CodeInternal, fallbackKey)
}
