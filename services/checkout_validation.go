package services

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"storefront-service/models"

	"github.com/go-playground/validator/v10"
)

// draftFieldPaths lists every leaf of a checkout draft, in form order.
var draftFieldPaths = []string{
	"customer.firstName",
	"customer.lastName",
	"customer.email",
	"shippingAddress.street",
	"shippingAddress.city",
	"shippingAddress.state",
	"shippingAddress.country",
	"shippingAddress.zipCode",
	"billingAddress.street",
	"billingAddress.city",
	"billingAddress.state",
	"billingAddress.country",
	"billingAddress.zipCode",
	"creditCard.cardType",
	"creditCard.nameOnCard",
	"creditCard.cardNumber",
	"creditCard.securityCode",
	"creditCard.expirationMonth",
	"creditCard.expirationYear",
}

// DraftValidator checks a checkout draft against its struct tags and reports
// failures keyed by json field path, e.g. "customer.firstName".
type DraftValidator struct {
	validate *validator.Validate
}

func NewDraftValidator() *DraftValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty or reserved tag names.
	_ = v.RegisterValidation("notblank", notBlank)
	_ = v.RegisterValidation("digits", exactDigits)
	return &DraftValidator{validate: v}
}

// Validate returns the error messages of every failing field. An empty map
// means the draft is valid.
func (v *DraftValidator) Validate(draft *models.CheckoutDraft) map[string][]string {
	failures := make(map[string][]string)
	err := v.validate.Struct(draft)
	if err == nil {
		return failures
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		failures[""] = []string{err.Error()}
		return failures
	}
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		failures[path] = append(failures[path], fieldMessage(fe))
	}
	return failures
}

// FieldStates merges validation failures with touched flags for every field.
func (v *DraftValidator) FieldStates(draft *models.CheckoutDraft, touched map[string]bool) (map[string]models.FieldState, bool) {
	failures := v.Validate(draft)
	states := make(map[string]models.FieldState, len(draftFieldPaths))
	for _, path := range draftFieldPaths {
		errs := failures[path]
		states[path] = models.FieldState{
			Valid:   len(errs) == 0,
			Touched: touched[path],
			Errors:  errs,
		}
	}
	return states, len(failures) == 0
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be only whitespace", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "digits":
		return fmt.Sprintf("%s must be exactly %s digits", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// exactDigits accepts a string of exactly N ASCII decimal digits.
func exactDigits(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	s := fl.Field().String()
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
