package enums

import "fmt"

// OperatorRole gates access to the admin surface.
type OperatorRole string

const (
	OperatorRoleOperator OperatorRole = "operator"
	OperatorRoleAdmin    OperatorRole = "admin"
)

var validOperatorRoles = []OperatorRole{
	OperatorRoleOperator,
	OperatorRoleAdmin,
}

func (r OperatorRole) String() string {
	return string(r)
}

func (r OperatorRole) IsValid() bool {
	for _, candidate := range validOperatorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseOperatorRole(value string) (OperatorRole, error) {
	for _, candidate := range validOperatorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid operator role %q", value)
}
