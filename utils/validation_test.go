package utils

import (
	"strings"
	"testing"

	"github.com/gamershop/gamershop/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"gamer_01", true},
		{"ab", false},
		{"averyveryverylongusername", false},
		{"bad name", false},
		{"x' union select", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ok, msg := ValidateUsername(tt.input)
			assert.Equal(t, tt.ok, ok, msg)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Sh0rt!", "Password must be at least 8 characters long"},
		{"ALLUPPER1!", "Password must contain at least one lowercase letter"},
		{"alllower1!", "Password must contain at least one uppercase letter"},
		{"NoDigits!!", "Password must contain at least one number"},
		{"NoSpecial12", "Password must contain at least one special character"},
		{"Valid123!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ok, msg := ValidatePassword(tt.input)
			assert.Equal(t, tt.want == "", ok)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestValidateEmailAndName(t *testing.T) {
	ok, _ := ValidateEmail("ana@example.com")
	assert.True(t, ok)
	ok, _ = ValidateEmail("not-an-email")
	assert.False(t, ok)

	ok, _ = ValidateName("")
	assert.True(t, ok, "names are optional")
	ok, msg := ValidateName("R2D2")
	assert.False(t, ok)
	assert.Equal(t, "Name cannot contain numbers", msg)
}

func TestCheckUnsafeInput(t *testing.T) {
	ok, _ := CheckUnsafeInput("Great controller, works fine")
	assert.True(t, ok)

	ok, msg := CheckUnsafeInput("<script>alert(1)</script>")
	assert.False(t, ok)
	assert.Contains(t, msg, "XSS")

	ok, msg = CheckUnsafeInput("1; DROP TABLE orders")
	assert.False(t, ok)
	assert.Contains(t, msg, "SQL injection")
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello &amp; bye", SanitizeString("  <b>hello</b> & bye "))
}

type bindItem struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type bindOrder struct {
	Status  string     `json:"status" binding:"required,orderstatus"`
	Payment string     `json:"payment" binding:"required,paymentmethod"`
	Type    string     `json:"type" binding:"omitempty,coupontype"`
	Method  string     `json:"method" binding:"omitempty,shippingmethod"`
	Items   []bindItem `json:"items" binding:"required,min=1,dive"`
}

func TestCustomValidators(t *testing.T) {
	require.NoError(t, RegisterValidators())

	valid := bindOrder{
		Status:  models.OrderStatusPaid,
		Payment: models.PaymentMethodMBWay,
		Type:    models.CouponTypeFixed,
		Method:  models.ShippingMethodPickup,
		Items:   []bindItem{{Quantity: 1}},
	}
	assert.NoError(t, binding.Validator.ValidateStruct(valid))

	invalid := bindOrder{
		Status:  "LOST",
		Payment: "CASH",
		Type:    "BOGO",
		Method:  "DRONE",
		Items:   []bindItem{{Quantity: 0}},
	}
	err := binding.Validator.ValidateStruct(invalid)
	require.Error(t, err)

	fields := BindingErrors(err)
	byField := map[string]string{}
	for _, f := range fields {
		byField[f.Field] = f.Message
	}
	assert.Equal(t, "must be one of "+strings.Join(models.OrderStatuses, ", "), byField["status"])
	assert.Equal(t, "must be one of "+strings.Join(models.PaymentMethods, ", "), byField["payment"])
	assert.Equal(t, "must be PERCENTAGE or FIXED", byField["type"])
	assert.Equal(t, "must be one of "+strings.Join(models.ShippingMethods, ", "), byField["method"])
	assert.Equal(t, "is required", byField["items[0].quantity"])
}

func TestFirstBindingMessage(t *testing.T) {
	require.NoError(t, RegisterValidators())

	err := binding.Validator.ValidateStruct(bindOrder{Payment: models.PaymentMethodPayPal, Items: []bindItem{{Quantity: 2}}})
	assert.Equal(t, "status is required", FirstBindingMessage(err))

	assert.Equal(t, "Invalid request body", FirstBindingMessage(assert.AnError))
	assert.Nil(t, BindingErrors(assert.AnError))
}

func TestFieldValidationErrorsString(t *testing.T) {
	errs := FieldValidationErrors{{Field: "email", Message: "is required"}, {Field: "name", Message: "is invalid"}}
	assert.Equal(t, "email: is required; name: is invalid", errs.Error())
}
