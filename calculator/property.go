package calculator

import "fmt"

// Property selects a temperature dependent fluid property of water.
type Property int

const (
	Density                 Property = iota // kg/m³
	SpecificHeat                            // J/(kg K)
	Conductivity                            // W/(m K)
	Diffusivity                             // m²/s
	Viscosity                               // Pa s
	ThermalExpansion                        // β·ρ, kg/(m³ K)
	Enthalpy                                // J/kg
	TemperatureFromEnthalpy                 // argument is J/kg, result °C
)

// foundation and shell materials, independent of temperature
const (
	FoundationDensity      = 2400.0
	FoundationSpecificHeat = 840.0
	FoundationConductivity = 4.0
	FoundationDiffusivity  = 2.0 / 840 / 2400

	ShellDensity      = 7800.0
	ShellSpecificHeat = 490.0
)

var propertyNames = [...]string{
	Density:                 "density",
	SpecificHeat:            "specificHeat",
	Conductivity:            "conductivity",
	Diffusivity:             "diffusivity",
	Viscosity:               "viscosity",
	ThermalExpansion:        "thermalExpansion",
	Enthalpy:                "enthalpy",
	TemperatureFromEnthalpy: "temperatureFromEnthalpy",
}

var propertyTable = [...]func(x float64) float64{
	Density:                 density,
	SpecificHeat:            specificHeat,
	Conductivity:            conductivity,
	Diffusivity:             diffusivity,
	Viscosity:               viscosity,
	ThermalExpansion:        expansion,
	Enthalpy:                enthalpy,
	TemperatureFromEnthalpy: temperature,
}

func (p Property) String() string {
	if p < 0 || int(p) >= len(propertyNames) {
		return fmt.Sprintf("Property(%d)", int(p))
	}
	return propertyNames[p]
}

// At evaluates the property. For TemperatureFromEnthalpy x is a specific
// enthalpy in J/kg, for every other kind a temperature in °C.
func (p Property) At(x float64) float64 {
	if p < 0 || int(p) >= len(propertyTable) {
		panic(fmt.Sprintf("calculator: unknown property %d", int(p)))
	}
	return propertyTable[p](x)
}

// polynomial fits, valid roughly from 0 to 130 °C; no range check on purpose

func density(t float64) float64 {
	return -2.525726e-03*t*t - 2.123038e-01*t + 1.005011e+03
}

func specificHeat(t float64) float64 {
	return 9.776500e-03*t*t - 7.677243e-01*t + 4.194836e+03
}

func conductivity(t float64) float64 {
	return 3.097195e-08*t*t*t - 1.565775e-05*t*t + 2.517120e-03*t + 5.531103e-01
}

func diffusivity(t float64) float64 {
	return -1.740136e-12*t*t + 5.093712e-10*t + 1.346697e-07
}

func viscosity(t float64) float64 {
	return -4.617641e-10*t*t*t + 1.663679e-07*t*t - 2.221812e-05*t + 1.301820e-03
}

func expansion(t float64) float64 {
	return 9.699776e-09*t*t - 7.361887e-06*t - 1.135069e-04
}

func enthalpy(t float64) float64 {
	return 4.394221e-01*t*t + 4.129877e+03*t + 1.987100e+03
}

// temperature inverts enthalpy: quadratic seed, then two fixed point
// corrections.
func temperature(h float64) float64 {
	k := h / 1000
	t := -5.911685e-06*k*k + 2.420544e-01*k - 4.700638e-01
	for loop := 0; loop < 2; loop++ {
		t += (h - enthalpy(t)) / specificHeat(t)
	}
	return t
}
