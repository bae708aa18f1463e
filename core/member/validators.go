package member

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/umoja/core"
)

var (
	designationTag  = "designation"
	designationText = "invalid designation"

	bloodGroupTag  = "bloodgroup"
	bloodGroupText = "invalid blood group"

	bdMobileTag   = "bdmobile"
	bdMobileText  = "a valid 11-digit mobile number is required"
	bdMobileRegex = regexp.MustCompile(`^01\d{9,11}$`)
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(designationTag, designationValidation)
	core.RegisterCustomTranslation(designationTag, designationText)

	_ = core.Validate.RegisterValidation(bloodGroupTag, bloodGroupValidation)
	core.RegisterCustomTranslation(bloodGroupTag, bloodGroupText)

	_ = core.Validate.RegisterValidation(bdMobileTag, bdMobileValidation)
	core.RegisterCustomTranslation(bdMobileTag, bdMobileText)
}

func designationValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, d := range AllDesignations {
		if val == d {
			return true
		}
	}
	return false
}

func bloodGroupValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, bg := range BloodGroups {
		if val == bg {
			return true
		}
	}
	return false
}

func bdMobileValidation(fl validator.FieldLevel) bool {
	return bdMobileRegex.MatchString(fl.Field().String())
}
