package faults

import (
	"errors"
	"fmt"
)

// ErrUnknownFaultKind is returned for fault identifiers outside FM-01..FM-08
var ErrUnknownFaultKind = errors.New("unknown fault kind")

// Kind identifies one of the eight physical fault mechanisms
type Kind int

const (
	KindBearing Kind = iota + 1
	KindCooling
	KindValveTrain
	KindOil
	KindTurbo
	KindInjector
	KindEGR
	KindDPF
)

// Kinds returns all fault kinds in identifier order
func Kinds() []Kind {
	return []Kind{KindBearing, KindCooling, KindValveTrain, KindOil, KindTurbo, KindInjector, KindEGR, KindDPF}
}

// String returns the fault identifier (FM-01..FM-08)
func (k Kind) String() string {
	if k < KindBearing || k > KindDPF {
		return "UNKNOWN"
	}
	return fmt.Sprintf("FM-%02d", int(k))
}

// Name returns a human-readable description of the mechanism
func (k Kind) Name() string {
	switch k {
	case KindBearing:
		return "bearing wear"
	case KindCooling:
		return "cooling degradation"
	case KindValveTrain:
		return "valve train wear"
	case KindOil:
		return "oil degradation"
	case KindTurbo:
		return "turbo degradation"
	case KindInjector:
		return "injector wear"
	case KindEGR:
		return "EGR cooler"
	case KindDPF:
		return "DPF blockage"
	default:
		return "unknown"
	}
}

// ParseKind converts an identifier such as "FM-03" into a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFaultKind, s)
}
