package utils

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/gamershop/gamershop/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldValidationError represents a validation error for a specific field
type FieldValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationErrors represents multiple field validation errors
type FieldValidationErrors []FieldValidationError

// Error implements the error interface
func (e FieldValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	hasLower      = regexp.MustCompile(`[a-z]`)
	hasUpper      = regexp.MustCompile(`[A-Z]`)
	hasNumber     = regexp.MustCompile(`[0-9]`)
	hasSpecial    = regexp.MustCompile(`[@$!%*?&._-]`)
	htmlTagRegex  = regexp.MustCompile(`<[^>]*>`)
)

type suspiciousPattern struct {
	re      *regexp.Regexp
	message string
}

var injectionPatterns = []suspiciousPattern{
	{regexp.MustCompile(`(?i)union\s+(all\s+)?select`), "SQL injection detected: 'UNION SELECT' pattern found"},
	{regexp.MustCompile(`(?i)insert\s+into`), "SQL injection detected: 'INSERT INTO' pattern found"},
	{regexp.MustCompile(`(?i)delete\s+from`), "SQL injection detected: 'DELETE FROM' pattern found"},
	{regexp.MustCompile(`(?i)drop\s+table`), "SQL injection detected: 'DROP TABLE' pattern found"},
	{regexp.MustCompile(`--\s*$`), "SQL injection detected: SQL comment found"},
	{regexp.MustCompile(`(?i)<script`), "XSS detected: Script tag found"},
	{regexp.MustCompile(`(?i)javascript:`), "XSS detected: JavaScript protocol found"},
	{regexp.MustCompile(`(?i)on(load|error|click)=`), "XSS detected: event handler found"},
	{regexp.MustCompile(`(?i)document\.cookie`), "XSS detected: document.cookie access found"},
}

// SanitizeString strips HTML tags and escapes what is left
func SanitizeString(input string) string {
	return html.EscapeString(htmlTagRegex.ReplaceAllString(strings.TrimSpace(input), ""))
}

// CheckUnsafeInput rejects input carrying common SQL injection or XSS payloads
func CheckUnsafeInput(input string) (bool, string) {
	for _, p := range injectionPatterns {
		if p.re.MatchString(input) {
			LogInfo("Rejected unsafe input: %s", p.message)
			return false, p.message
		}
	}
	return true, ""
}

// ValidateUsername checks if the username meets the requirements and is safe
func ValidateUsername(username string) (bool, string) {
	if ok, msg := CheckUnsafeInput(username); !ok {
		return false, "Username: " + msg
	}
	if len(username) < 3 {
		return false, "Username must be at least 3 characters long"
	}
	if len(username) > 20 {
		return false, "Username must not exceed 20 characters"
	}
	if !usernameRegex.MatchString(username) {
		return false, "Username can only contain letters, numbers, and underscores"
	}
	return true, ""
}

// ValidateEmail checks if the email is valid and safe
func ValidateEmail(email string) (bool, string) {
	if ok, msg := CheckUnsafeInput(email); !ok {
		return false, "Email: " + msg
	}
	if !emailRegex.MatchString(email) {
		return false, "Invalid email format. Please enter a valid email address"
	}
	return true, ""
}

// ValidatePassword checks if the password meets the requirements
func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters long"
	}
	if !hasLower.MatchString(password) {
		return false, "Password must contain at least one lowercase letter"
	}
	if !hasUpper.MatchString(password) {
		return false, "Password must contain at least one uppercase letter"
	}
	if !hasNumber.MatchString(password) {
		return false, "Password must contain at least one number"
	}
	if !hasSpecial.MatchString(password) {
		return false, "Password must contain at least one special character"
	}
	return true, ""
}

// ValidateName checks an optional person name
func ValidateName(name string) (bool, string) {
	if name == "" {
		return true, ""
	}
	if ok, msg := CheckUnsafeInput(name); !ok {
		return false, "Name: " + msg
	}
	if len(strings.TrimSpace(name)) < 2 {
		return false, "Name must be at least 2 characters long"
	}
	for _, r := range name {
		if unicode.IsDigit(r) {
			return false, "Name cannot contain numbers"
		}
	}
	return true, ""
}

func oneOf(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}

// RegisterValidators adds the domain enum validators to gin's binding engine
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	custom := map[string][]string{
		"paymentmethod":  models.PaymentMethods,
		"orderstatus":    models.OrderStatuses,
		"coupontype":     {models.CouponTypePercentage, models.CouponTypeFixed},
		"shippingmethod": models.ShippingMethods,
	}
	for tag, values := range custom {
		if err := v.RegisterValidation(tag, oneOf(values)); err != nil {
			return fmt.Errorf("register %s validator: %w", tag, err)
		}
	}
	return nil
}

// BindingErrors turns validator errors from ShouldBindJSON into field messages
func BindingErrors(err error) FieldValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(FieldValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, FieldValidationError{Field: field, Message: describeTag(fe)})
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "paymentmethod":
		return "must be one of " + strings.Join(models.PaymentMethods, ", ")
	case "orderstatus":
		return "must be one of " + strings.Join(models.OrderStatuses, ", ")
	case "coupontype":
		return "must be PERCENTAGE or FIXED"
	case "shippingmethod":
		return "must be one of " + strings.Join(models.ShippingMethods, ", ")
	}
	return "is invalid"
}

// FirstBindingMessage condenses a bind error into a single client-facing message
func FirstBindingMessage(err error) string {
	if fields := BindingErrors(err); len(fields) > 0 {
		return fmt.Sprintf("%s %s", fields[0].Field, fields[0].Message)
	}
	return "Invalid request body"
}
