package env

import (
	"fmt"
	"strings"
)

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

func (e Environment) IsDevelopment() bool { return e == Development }
func (e Environment) IsProduction() bool  { return e == Production }

// UnmarshalText lets caarlos0/env reject unknown environments at startup.
func (e *Environment) UnmarshalText(text []byte) error {
	switch v := Environment(strings.ToLower(string(text))); v {
	case Development, Production:
		*e = v
		return nil
	default:
		return fmt.Errorf("unknown environment %q", text)
	}
}
