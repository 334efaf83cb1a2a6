package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/models"
)

var (
	// ErrInvalidInput is returned for any malformed habit or proof.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCadence is returned when a cadence is outside 1..7.
	ErrInvalidCadence = errors.New("invalid cadence")
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Engine returns the shared validator instance.
func Engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateCadence checks that cadence is a number of proofs per week.
func ValidateCadence(cadence int) error {
	if cadence < constants.MinCadence || cadence > constants.MaxCadence {
		return fmt.Errorf("%w: %d is not between %d and %d", ErrInvalidCadence, cadence, constants.MinCadence, constants.MaxCadence)
	}
	return nil
}

// ValidateHabit checks a habit before it is first stored.
func ValidateHabit(h models.Habit) error {
	if err := ValidateCadence(h.Cadence); err != nil {
		return err
	}
	if err := Engine().Struct(h); err != nil {
		return describe(err)
	}
	return nil
}

// ValidateProofInput checks a proof submission.
func ValidateProofInput(in models.ProofInput) error {
	if err := Engine().Struct(in); err != nil {
		return describe(err)
	}
	return nil
}

// describe flattens validator errors into a single ErrInvalidInput.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(parts, ", "))
}
