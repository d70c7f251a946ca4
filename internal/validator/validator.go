package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/go-playground/validator/v10"
)

const MaxMarks = 100

var (
	coCodePattern       = regexp.MustCompile(`^CO[0-9]{1,2}$`)
	academicYearPattern = regexp.MustCompile(`^([0-9]{4})-([0-9]{4})$`)
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags and returns ValidationErrors when a
// field fails.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.structValidator.Struct(s)
	if err == nil {
		return nil
	}
	if errs := ToValidationErrors(err); len(errs) > 0 {
		return errs
	}
	return err
}

// Validate is an alias of ValidateStruct kept for handler call sites.
func (v *Validator) Validate(s interface{}) error {
	return v.ValidateStruct(s)
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("difficulty_level", validateDifficultyLevel)
	validate.RegisterValidation("co_code", validateCOCode)
	validate.RegisterValidation("academic_year", validateAcademicYear)
	validate.RegisterValidation("marks_range", validateMarksRange)

	// Report JSON field names in errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateDifficultyLevel(fl validator.FieldLevel) bool {
	return models.DifficultyLevel(fl.Field().String()).Valid()
}

func validateCOCode(fl validator.FieldLevel) bool {
	return IsCOCode(fl.Field().String())
}

func validateAcademicYear(fl validator.FieldLevel) bool {
	return IsAcademicYear(fl.Field().String())
}

func validateMarksRange(fl validator.FieldLevel) bool {
	n := fl.Field().Int()
	return n >= 1 && n <= MaxMarks
}

// IsCOCode reports whether s is a course outcome code such as CO1.
func IsCOCode(s string) bool {
	return coCodePattern.MatchString(s)
}

// IsAcademicYear accepts labels of two consecutive years, e.g. 2024-2025.
func IsAcademicYear(s string) bool {
	m := academicYearPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	return atoi4(m[2])-atoi4(m[1]) == 1
}

func atoi4(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
