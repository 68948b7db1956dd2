package runconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks field constraints and that every project maps to a
// known device.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, len(verrs))
		for i, fe := range verrs {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			msgs[i] = fmt.Sprintf("%s: failed %s", fe.Namespace(), rule)
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	for _, p := range c.Projects {
		if _, err := p.DeviceInfo(); err != nil {
			return err
		}
	}
	return nil
}
