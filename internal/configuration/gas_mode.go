package configuration

import (
	"fmt"
	"strconv"
	"strings"
)

// GasMode is the driver selected gas profile, its numeric value matches
// the status of the gas profile button
type GasMode int

const (
	GasModeUnset   GasMode = -1
	GasModeDefault GasMode = 0
	// aggressive acceleration
	GasModeSport GasMode = 1
	// conservative acceleration
	GasModeEco GasMode = 2
)

var gasModeNames = map[GasMode]string{
	GasModeUnset:   "unset",
	GasModeDefault: "default",
	GasModeSport:   "sport",
	GasModeEco:     "eco",
}

// GasModeNames returns the names of all selectable gas modes
func GasModeNames() []string {
	return []string{GasModeDefault.String(), GasModeSport.String(), GasModeEco.String()}
}

func (m GasMode) String() string {
	if name, ok := gasModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// IsSet returns true if this is one of the selectable gas modes
func (m GasMode) IsSet() bool {
	return m == GasModeDefault || m == GasModeSport || m == GasModeEco
}

// ParseGasMode accepts a gas mode name or a numeric gas button status
func ParseGasMode(value string) (GasMode, error) {
	text := strings.ToLower(strings.TrimSpace(value))
	switch text {
	case "", "unset", "none":
		return GasModeUnset, nil
	case "default", "normal":
		return GasModeDefault, nil
	case "sport", "aggressive":
		return GasModeSport, nil
	case "eco", "conservative":
		return GasModeEco, nil
	}

	number, err := strconv.Atoi(text)
	if err != nil {
		return GasModeUnset, fmt.Errorf("unknown gas mode '%s', use one of: %s", value, strings.Join(GasModeNames(), " | "))
	}
	mode := GasMode(number)
	if !mode.IsSet() && mode != GasModeUnset {
		return GasModeUnset, fmt.Errorf("unknown gas button status %d", number)
	}
	return mode, nil
}

func (m GasMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *GasMode) UnmarshalText(text []byte) error {
	mode, err := ParseGasMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
