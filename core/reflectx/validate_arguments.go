package reflectx

import (
	"fmt"
)

// Validator is an interface that can be implemented by types that can validate themselves.
type Validator interface {
	Validate() error
}

// ValidateArguments decodes the arguments the same way Call does and runs
// Validate on every decoded value implementing Validator.
func ValidateArguments(v any, method string, args ...string) error {
	t, ok := methodType(v, method)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}

	if t.NumIn() != len(args) {
		return fmt.Errorf(
			"%w: found %d but expected %d: validate %s",
			ErrIncorrectArgumentCount,
			len(args),
			t.NumIn(),
			method,
		)
	}

	for i, arg := range args {
		value, err := valueOf(arg, t.In(i))
		if err != nil {
			return fmt.Errorf("%w: validate %s, argument %d", err, method, i)
		}

		if validator, ok := value.Interface().(Validator); ok {
			if err := validator.Validate(); err != nil {
				return fmt.Errorf(
					"%w: '%s': validation failed: '%v': validate %s, argument %d",
					ErrInvalidArgumentValue,
					arg,
					err.Error(),
					method,
					i,
				)
			}
		}
	}

	return nil
}
