package utils

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/Vonnie2507/Probuild-ERP-Replit/config"
	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "AU"

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil // Phone number is valid for the specified country code
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

// SequenceLock serializes number allocation for one sequence family across
// server instances. Best-effort: if Redis isn't ready or the lock can't be
// obtained, callers proceed anyway; the uniqueness constraint on the number
// column plus bounded insert retry is the backstop.
func SequenceLock(ctx context.Context, family string) (release func(), obtained bool) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		logger.WithFields(logrus.Fields{
			"field":  "SequenceLock",
			"family": family,
		}).Warn("redis lock not ready; proceeding without redis lock")
		return func() {}, false
	}

	lock, err := locker.Obtain(ctx, "seq:"+family, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		logger.WithFields(logrus.Fields{
			"field":  "SequenceLock",
			"family": family,
		}).Warn("could not obtain redis lock; proceeding without redis lock")
		return func() {}, false
	} else if err != nil {
		logger.WithFields(logrus.Fields{
			"field":  "SequenceLock",
			"family": family,
		}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		return func() {}, false
	}

	return func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			logger.WithFields(logrus.Fields{
				"field":  "SequenceLock",
				"family": family,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}, true
}
