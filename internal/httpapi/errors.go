package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindError renders a ShouldBindJSON failure. Validator failures become a
// field-scoped 400 payload; anything else (malformed JSON, wrong types) gets
// a generic message.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = ruleMessage(fe)
		}
		FieldErrors(c, fields)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

// FieldErrors renders a 400 with per-field messages.
func FieldErrors(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "validation failed",
		"fields": fields,
	})
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "value too long (max " + fe.Param() + ")"
	case "min":
		return "value too short (min " + fe.Param() + ")"
	case "username":
		return "may contain only letters, digits and . @ + - _"
	case "slug":
		return "may contain only letters, digits, hyphen and underscore"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return "invalid value"
}
