package fixture

import _ "embed"

//go:embed scenarios/demo.yaml
var demoScenario []byte

// DemoScenario returns the built-in scenario served when no file is given.
func DemoScenario() (*Scenario, error) {
	return ParseScenario(demoScenario)
}
