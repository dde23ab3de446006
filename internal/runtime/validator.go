package runtime

import (
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/validation"
)

// newValidators maps each answer-collecting step to its validator.
// Steps absent from the map ignore input.
func newValidators(services []string) map[domain.Step]validation.Func {
	return map[domain.Step]validation.Func{
		domain.StepName:    validation.Name,
		domain.StepEmail:   validation.Email,
		domain.StepPhone:   validation.Phone,
		domain.StepService: validation.ServiceFunc(services),
	}
}
