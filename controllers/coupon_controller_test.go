package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/services"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupCouponRouter(coupons CouponLedger, user *models.User) *gin.Engine {
	h := NewCouponController(coupons)
	r := utils.NewTestRouter()
	api := r.Group("/api", as(user))
	api.POST("/coupons", h.CreateCoupon)
	api.GET("/coupons", h.ListCoupons)
	api.GET("/coupons/:id", h.GetCoupon)
	api.PUT("/coupons/:id", h.UpdateCoupon)
	api.POST("/coupons/validate", h.ValidateCoupon)
	api.POST("/coupons/apply", h.ApplyCoupon)
	return r
}

func decimalEq(s string) interface{} {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func TestCreateCoupon(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC)

	t.Run("created", func(t *testing.T) {
		coupons := new(MockCouponLedger)
		coupons.On("CreateCoupon", mock.Anything, mock.MatchedBy(func(in services.CouponInput) bool {
			return in.Code == "summer10" && in.Type == models.CouponTypePercentage &&
				in.Value.Equal(decimal.NewFromInt(10)) &&
				in.MinValue.Valid && in.MinValue.Decimal.Equal(decimal.NewFromInt(50)) &&
				in.MaxUses != nil && *in.MaxUses == 100 &&
				in.StartDate.Equal(start) && in.EndDate.Equal(end)
		})).Return(&models.Coupon{ID: 1, Code: "SUMMER10", Type: models.CouponTypePercentage, IsActive: true}, nil).Once()

		resp := utils.MakeTestRequest(t, setupCouponRouter(coupons, admin), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons",
			Body: map[string]interface{}{
				"code": "summer10", "type": "PERCENTAGE", "value": 10, "minValue": 50, "maxUses": 100,
				"startDate": start.Format(time.RFC3339), "endDate": end.Format(time.RFC3339),
			},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Raw))
		assert.Equal(t, "SUMMER10", resp.Body["code"])
		coupons.AssertExpectations(t)
	})

	t.Run("bad type", func(t *testing.T) {
		resp := utils.MakeTestRequest(t, setupCouponRouter(new(MockCouponLedger), admin), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons",
			Body: map[string]interface{}{
				"code": "X", "type": "BOGO", "value": 10,
				"startDate": start.Format(time.RFC3339), "endDate": end.Format(time.RFC3339),
			},
		})
		utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"message": "type must be PERCENTAGE or FIXED"})
	})

	t.Run("duplicate code", func(t *testing.T) {
		coupons := new(MockCouponLedger)
		coupons.On("CreateCoupon", mock.Anything, mock.Anything).
			Return(nil, utils.DuplicateCodeError("Coupon code already exists", assert.AnError)).Once()

		resp := utils.MakeTestRequest(t, setupCouponRouter(coupons, admin), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons",
			Body: map[string]interface{}{
				"code": "SUMMER10", "type": "FIXED", "value": 5,
				"startDate": start.Format(time.RFC3339), "endDate": end.Format(time.RFC3339),
			},
		})
		utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"message": "Coupon code already exists"})
	})
}

func TestUpdateCouponPartial(t *testing.T) {
	coupons := new(MockCouponLedger)
	coupons.On("UpdateCoupon", mock.Anything, uint(4), mock.MatchedBy(func(in services.CouponUpdate) bool {
		return in.IsActive != nil && !*in.IsActive && in.Code == nil && in.Value == nil && in.EndDate == nil
	})).Return(&models.Coupon{ID: 4, Code: "OLD", IsActive: false}, nil).Once()

	resp := utils.MakeTestRequest(t, setupCouponRouter(coupons, admin), utils.TestRequest{
		Method: http.MethodPut, Path: "/api/coupons/4", Body: map[string]interface{}{"isActive": false},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, resp.Body["isActive"])

	resp = utils.MakeTestRequest(t, setupCouponRouter(coupons, admin), utils.TestRequest{
		Method: http.MethodPut, Path: "/api/coupons/zero", Body: map[string]interface{}{},
	})
	utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"message": "Invalid coupon ID"})
	coupons.AssertExpectations(t)
}

func TestUpdateCouponClearsLimits(t *testing.T) {
	coupons := new(MockCouponLedger)
	coupons.On("UpdateCoupon", mock.Anything, uint(5), mock.MatchedBy(func(in services.CouponUpdate) bool {
		return in.ClearMaxUses && in.MaxUses == nil && !in.ClearMinValue && in.MinValue == nil
	})).Return(&models.Coupon{ID: 5, Code: "OPEN", IsActive: true}, nil).Once()
	coupons.On("UpdateCoupon", mock.Anything, uint(6), mock.MatchedBy(func(in services.CouponUpdate) bool {
		return !in.ClearMaxUses && in.MaxUses != nil && *in.MaxUses == 10 && in.ClearMinValue
	})).Return(&models.Coupon{ID: 6, Code: "TEN", IsActive: true}, nil).Once()

	resp := utils.MakeTestRequest(t, setupCouponRouter(coupons, admin), utils.TestRequest{
		Method: http.MethodPut, Path: "/api/coupons/5", Body: map[string]interface{}{"maxUses": nil},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = utils.MakeTestRequest(t, setupCouponRouter(coupons, admin), utils.TestRequest{
		Method: http.MethodPut, Path: "/api/coupons/6", Body: map[string]interface{}{"maxUses": 10, "minValue": nil},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	coupons.AssertExpectations(t)
}

func TestGetAndListCoupons(t *testing.T) {
	coupons := new(MockCouponLedger)
	coupons.On("GetCoupon", mock.Anything, uint(99)).Return(nil, utils.NotFoundError("Coupon not found", nil)).Once()
	coupons.On("ListCoupons", mock.Anything, true, mock.AnythingOfType("*utils.Pagination")).
		Return([]models.Coupon{{ID: 1, Code: "A"}, {ID: 2, Code: "B"}}, nil).Once()
	router := setupCouponRouter(coupons, admin)

	resp := utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/coupons/99"})
	utils.AssertResponse(t, resp, http.StatusNotFound, map[string]interface{}{"message": "Coupon not found"})

	resp = utils.MakeTestRequest(t, router, utils.TestRequest{Method: http.MethodGet, Path: "/api/coupons?active=true"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Body["coupons"], 2)
	coupons.AssertExpectations(t)
}

func TestValidateCoupon(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		remaining := 4
		coupons := new(MockCouponLedger)
		coupons.On("ValidateCoupon", mock.Anything, "SUMMER10", decimalEq("80")).Return(&services.CouponValidation{
			Valid:         true,
			Coupon:        &models.Coupon{ID: 1, Code: "SUMMER10", Type: models.CouponTypePercentage, Value: decimal.NewFromInt(10)},
			Discount:      decimal.NewFromInt(8),
			RemainingUses: &remaining,
		}, nil).Once()

		resp := utils.MakeTestRequest(t, setupCouponRouter(coupons, customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons/validate",
			Body: map[string]interface{}{"code": "SUMMER10", "cartTotal": 80},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, resp.Body["valid"])
		coupon := resp.Body["coupon"].(map[string]interface{})
		assert.Equal(t, "SUMMER10", coupon["code"])
		assert.Equal(t, float64(8), coupon["discount"])
		assert.Equal(t, float64(4), coupon["remainingUses"])
		coupons.AssertExpectations(t)
	})

	t.Run("rejected", func(t *testing.T) {
		coupons := new(MockCouponLedger)
		coupons.On("ValidateCoupon", mock.Anything, "OLD", mock.Anything).
			Return(&services.CouponValidation{Valid: false, Message: "Coupon has expired"}, nil).Once()

		resp := utils.MakeTestRequest(t, setupCouponRouter(coupons, customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons/validate",
			Body: map[string]interface{}{"code": "OLD", "cartTotal": 10},
		})
		utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"valid": false, "message": "Coupon has expired"})
	})

	t.Run("unknown code", func(t *testing.T) {
		coupons := new(MockCouponLedger)
		coupons.On("ValidateCoupon", mock.Anything, "NOPE", mock.Anything).
			Return(nil, utils.NotFoundError("Coupon not found", nil)).Once()

		resp := utils.MakeTestRequest(t, setupCouponRouter(coupons, customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons/validate",
			Body: map[string]interface{}{"code": "NOPE", "cartTotal": 10},
		})
		utils.AssertResponse(t, resp, http.StatusNotFound, map[string]interface{}{"message": "Coupon not found"})
	})

	t.Run("negative total", func(t *testing.T) {
		resp := utils.MakeTestRequest(t, setupCouponRouter(new(MockCouponLedger), customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons/validate",
			Body: map[string]interface{}{"code": "SUMMER10", "cartTotal": -1},
		})
		utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"message": "Cart total cannot be negative"})
	})
}

func TestApplyCoupon(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		coupons := new(MockCouponLedger)
		coupons.On("ApplyCoupon", mock.Anything, "SAVE5", uint(41), identityOf(customer)).Return(&services.CouponRedemptionResult{
			OrderID:  41,
			Coupon:   &models.Coupon{ID: 2, Code: "SAVE5", UsedCount: 1},
			Discount: decimal.NewFromInt(5),
		}, nil).Once()

		resp := utils.MakeTestRequest(t, setupCouponRouter(coupons, customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons/apply",
			Body: map[string]interface{}{"code": "SAVE5", "orderId": 41},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Coupon applied successfully", resp.Body["message"])
		assert.Equal(t, float64(41), resp.Body["orderId"])
		assert.Equal(t, float64(5), resp.Body["discount"])
		coupons.AssertExpectations(t)
	})

	t.Run("already applied", func(t *testing.T) {
		coupons := new(MockCouponLedger)
		coupons.On("ApplyCoupon", mock.Anything, "SAVE5", uint(41), identityOf(customer)).
			Return(nil, utils.ConflictError("Coupon already applied to this order", assert.AnError)).Once()

		resp := utils.MakeTestRequest(t, setupCouponRouter(coupons, customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons/apply",
			Body: map[string]interface{}{"code": "SAVE5", "orderId": 41},
		})
		utils.AssertResponse(t, resp, http.StatusConflict, map[string]interface{}{"message": "Coupon already applied to this order"})
	})

	t.Run("exhausted", func(t *testing.T) {
		coupons := new(MockCouponLedger)
		coupons.On("ApplyCoupon", mock.Anything, "SAVE5", uint(42), identityOf(customer)).
			Return(nil, utils.ValidationFailed("Coupon usage limit reached")).Once()

		resp := utils.MakeTestRequest(t, setupCouponRouter(coupons, customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons/apply",
			Body: map[string]interface{}{"code": "SAVE5", "orderId": 42},
		})
		utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"message": "Coupon usage limit reached"})
	})

	t.Run("missing order", func(t *testing.T) {
		resp := utils.MakeTestRequest(t, setupCouponRouter(new(MockCouponLedger), customer), utils.TestRequest{
			Method: http.MethodPost, Path: "/api/coupons/apply",
			Body: map[string]interface{}{"code": "SAVE5"},
		})
		utils.AssertResponse(t, resp, http.StatusBadRequest, map[string]interface{}{"message": "orderId is required"})
	})
}
