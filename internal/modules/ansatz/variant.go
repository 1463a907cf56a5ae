package ansatz

import (
	"strings"

	"github.com/aristath/latticefold/internal/domain"
)

// Variant is the closed set of circuit families.
type Variant string

const (
	HardwareEfficient Variant = "hardware_efficient"
	TwoLocal          Variant = "two_local"
	Custom            Variant = "custom"
)

// Variants lists every supported variant.
var Variants = []Variant{HardwareEfficient, TwoLocal, Custom}

var variantAliases = map[string]Variant{
	"hardware_efficient":   HardwareEfficient,
	"hardware-efficient":   HardwareEfficient,
	"efficient_su2":        HardwareEfficient,
	"efficientsu2":         HardwareEfficient,
	"two_local":            TwoLocal,
	"two-local":            TwoLocal,
	"twolocal":             TwoLocal,
	"custom":               Custom,
	"custom-protein-aware": Custom,
	"custom_protein_aware": Custom,
	"protein_aware":        Custom,
}

// ParseVariant resolves a variant name. Unknown names are configuration
// errors.
func ParseVariant(name string) (Variant, error) {
	if v, ok := variantAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return v, nil
	}
	return "", domain.ConfigurationError("ansatz.ParseVariant", "ansatz", "unknown ansatz %q (supported: hardware_efficient, two_local, custom)", name)
}

func (v Variant) String() string { return string(v) }
