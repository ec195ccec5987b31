package yaml

import (
	"testing"
)

// FuzzConfigParser tests the YAML parser against random/malformed inputs
// to detect crashes, panics, or unexpected behavior.
//
// Run with: go test -fuzz=FuzzConfigParser -fuzztime=30s
func FuzzConfigParser(f *testing.F) {
	f.Add([]byte(ExampleConfig))

	f.Add([]byte(`min_risk: LOW
ignore_patterns:
  - '^app:.*:quarantined$'
trusted_vendors: [ABCDE12345]
old_app_days: 7
`))

	// Seed with edge cases
	f.Add([]byte(``))
	f.Add([]byte(`min_risk: ""` + "\n"))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`ignore_patterns: ["("]`))
	f.Add([]byte(`old_app_days: 99999999999999999999`))

	parser := NewConfigParser("/home/fuzz")

	f.Fuzz(func(t *testing.T, data []byte) {
		cfg, err := parser.Parse(data)
		if err != nil {
			return
		}
		// A parsed config has already been validated
		if len(cfg.Patterns()) != len(cfg.IgnorePatterns) {
			t.Errorf("compiled %d of %d patterns", len(cfg.Patterns()), len(cfg.IgnorePatterns))
		}
	})
}
