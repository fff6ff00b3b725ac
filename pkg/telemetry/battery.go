package telemetry

import (
	"encoding/json"
	"fmt"
)

// BatteryReading is the tagged union of battery message variants the bridge
// may deliver. The variant is resolved once here, at the transport boundary,
// instead of duck-typed field sniffing further in.
type BatteryReading interface {
	// Normalize converts the variant to the common BatteryData form.
	Normalize() BatteryData
}

// SmartBattery is the full smart-battery report (voltage, percentage and
// charger state).
type SmartBattery struct {
	Voltage      float64 `json:"voltage"`
	Percentage   float64 `json:"percentage"`
	ChargerState int     `json:"charger_state"`
	Stamp        int64   `json:"stamp"`
}

// Normalize implements BatteryReading.
func (b SmartBattery) Normalize() BatteryData {
	return BatteryData{
		Voltage:    b.Voltage,
		Percentage: b.Percentage,
		Charging:   b.ChargerState > 0,
		Timestamp:  stampOrNow(b.Stamp),
	}
}

// GenericBatteryState is the plain sensor battery message; percentage comes
// in the 0..1 range and is rescaled.
type GenericBatteryState struct {
	Voltage    float64 `json:"voltage"`
	Percentage float64 `json:"percentage"`
	Stamp      int64   `json:"stamp"`
}

// Normalize implements BatteryReading.
func (b GenericBatteryState) Normalize() BatteryData {
	return BatteryData{
		Voltage:    b.Voltage,
		Percentage: b.Percentage * 100,
		Charging:   false,
		Timestamp:  stampOrNow(b.Stamp),
	}
}

// DiagnosticsDerived is a battery level scraped out of a diagnostics
// aggregate when no battery topic exists; only voltage is trustworthy.
type DiagnosticsDerived struct {
	Voltage float64 `json:"voltage"`
	Stamp   int64   `json:"stamp"`
}

// Normalize implements BatteryReading. Percentage is estimated from a
// nominal 11.1-12.5 V discharge window.
func (b DiagnosticsDerived) Normalize() BatteryData {
	pct := (b.Voltage - 11.1) / (12.5 - 11.1) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return BatteryData{
		Voltage:    b.Voltage,
		Percentage: pct,
		Charging:   false,
		Timestamp:  stampOrNow(b.Stamp),
	}
}

// batteryEnvelope is the wire shape: a variant tag plus the raw payload.
type batteryEnvelope struct {
	Variant string          `json:"variant"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeBattery resolves a battery payload to its variant. Untagged payloads
// decode as GenericBatteryState, which is what most bridges send.
func DecodeBattery(data []byte) (BatteryReading, error) {
	var env batteryEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Variant == "" {
		var plain GenericBatteryState
		if err := json.Unmarshal(data, &plain); err != nil {
			return nil, fmt.Errorf("failed to decode battery payload: %w", err)
		}
		return plain, nil
	}

	switch env.Variant {
	case "smart":
		var b SmartBattery
		if err := json.Unmarshal(env.Payload, &b); err != nil {
			return nil, fmt.Errorf("failed to decode smart battery payload: %w", err)
		}
		return b, nil
	case "generic":
		var b GenericBatteryState
		if err := json.Unmarshal(env.Payload, &b); err != nil {
			return nil, fmt.Errorf("failed to decode generic battery payload: %w", err)
		}
		return b, nil
	case "diagnostics":
		var b DiagnosticsDerived
		if err := json.Unmarshal(env.Payload, &b); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostics battery payload: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown battery variant '%s'", env.Variant)
	}
}

func stampOrNow(stamp int64) int64 {
	if stamp > 0 {
		return stamp
	}
	return nowMillis()
}
