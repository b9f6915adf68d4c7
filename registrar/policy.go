// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package registrar

import (
	"errors"
	"fmt"
)

// Policy selects what a handler does when an entity it depends on is missing
type Policy string

const (
	// PolicyDefault selects the built-in behavior for the case
	PolicyDefault Policy = ""
	// PolicyFail aborts the event with an error
	PolicyFail Policy = "fail"
	// PolicySkip ignores the missing entity and continues
	PolicySkip Policy = "skip"
)

// ErrInvalidPolicy is returned for a policy value other than fail or skip
var ErrInvalidPolicy = errors.New("invalid policy")

// ParsePolicy converts a config value to a Policy. The empty string
// selects the default for the case.
func ParsePolicy(val string) (Policy, error) {
	switch Policy(val) {
	case PolicyDefault, PolicyFail, PolicySkip:
		return Policy(val), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, val)
	}
}

// Policies holds the missing-entity behavior per case. Renewal and the
// preimage domain check fail by default since the chain guarantees the
// entity exists. Transfers and the preimage registration backfill skip by
// default since partial coverage is expected there.
type Policies struct {
	RenewalMissingRegistration  Policy `yaml:"renewalMissingRegistration" envconfig:"RENEWAL_MISSING_REGISTRATION"`
	TransferMissingRegistration Policy `yaml:"transferMissingRegistration" envconfig:"TRANSFER_MISSING_REGISTRATION"`
	PreimageMissingDomain       Policy `yaml:"preimageMissingDomain" envconfig:"PREIMAGE_MISSING_DOMAIN"`
	PreimageMissingRegistration Policy `yaml:"preimageMissingRegistration" envconfig:"PREIMAGE_MISSING_REGISTRATION"`
}

// DefaultPolicies returns the built-in behavior for every case
func DefaultPolicies() Policies {
	return Policies{
		RenewalMissingRegistration:  PolicyFail,
		TransferMissingRegistration: PolicySkip,
		PreimageMissingDomain:       PolicyFail,
		PreimageMissingRegistration: PolicySkip,
	}
}

// Validate reports the first value that is not a known policy
func (p Policies) Validate() error {
	for _, val := range []Policy{
		p.RenewalMissingRegistration,
		p.TransferMissingRegistration,
		p.PreimageMissingDomain,
		p.PreimageMissingRegistration,
	} {
		if _, err := ParsePolicy(string(val)); err != nil {
			return err
		}
	}
	return nil
}

func (p Policies) renewalMissingRegistration() Policy {
	return orDefault(p.RenewalMissingRegistration, PolicyFail)
}

func (p Policies) transferMissingRegistration() Policy {
	return orDefault(p.TransferMissingRegistration, PolicySkip)
}

func (p Policies) preimageMissingDomain() Policy {
	return orDefault(p.PreimageMissingDomain, PolicyFail)
}

func (p Policies) preimageMissingRegistration() Policy {
	return orDefault(p.PreimageMissingRegistration, PolicySkip)
}

func orDefault(val Policy, def Policy) Policy {
	if val == PolicyDefault {
		return def
	}
	return val
}
