package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
dataset:
  name: toy
  variables: [x, y]
  spectators: [eventID]
  prepare: "nTest_Signal=1:nTest_Background=1:SplitMode=Random:NormMode=NumEvents:!V"
  signal:
    gen: {n: 1000, offset: 1.0, seed: 100}
  background:
    gen: {n: 1000, offset: -1.0, seed: 101}
    weight: 2.0
cross_validation:
  name: crosseval
  options: "!V:!Silent:ModelPersistence:NumFolds=2:SplitExpr=int(fabs([eventID]))%int([NumFolds])"
methods:
  - kind: Fisher
    options: "!H:!V:Fisher"
  - kind: KNN
    name: knn20
    options: "K=20"
output:
  dir: crosseval_out
`

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "toy", cfg.Dataset.Name)
	assert.Equal(t, []string{"x", "y"}, cfg.Dataset.Variables)
	assert.Equal(t, []string{"eventID"}, cfg.Dataset.Spectators)
	require.NotNil(t, cfg.Dataset.Signal.Gen)
	assert.Equal(t, 1000, cfg.Dataset.Signal.Gen.N)
	assert.Equal(t, 1.0, cfg.Dataset.Signal.Gen.Offset)
	assert.Equal(t, uint64(100), cfg.Dataset.Signal.Gen.Seed)

	// Defaults fill in.
	assert.Equal(t, 1.0, cfg.Dataset.Signal.Weight)
	assert.Equal(t, 2.0, cfg.Dataset.Background.Weight)
	assert.Equal(t, 1.0, cfg.Dataset.Signal.Gen.Scale)
	require.Len(t, cfg.Methods, 2)
	assert.Equal(t, "Fisher", cfg.Methods[0].Name)
	assert.Equal(t, "knn20", cfg.Methods[1].Name)

	assert.Contains(t, cfg.CrossValidation.Options, "SplitExpr=")
	assert.Equal(t, "crosseval_out", cfg.Output.Dir)
}

func TestParsePathSource(t *testing.T) {
	cfg, err := Parse([]byte(`
dataset:
  variables: [var1, var2]
  signal: {path: sig.parquet}
  background: {path: bkg.parquet}
methods:
  - kind: LD
`))
	require.NoError(t, err)
	assert.Equal(t, "sig.parquet", cfg.Dataset.Signal.Path)
	assert.Nil(t, cfg.Dataset.Signal.Gen)
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		name string
		in   string
	}{
		{"UnknownField", `
dataset:
  variables: [x]
  signal: {path: a}
  background: {path: b}
  shenanigans: true
methods: [{kind: LD}]
`},
		{"NoVariables", `
dataset:
  signal: {path: a}
  background: {path: b}
methods: [{kind: LD}]
`},
		{"DuplicateField", `
dataset:
  variables: [x]
  spectators: [x]
  signal: {path: a}
  background: {path: b}
methods: [{kind: LD}]
`},
		{"NoSource", `
dataset:
  variables: [x]
  signal: {path: a}
  background: {}
methods: [{kind: LD}]
`},
		{"BothSources", `
dataset:
  variables: [x]
  signal: {path: a, gen: {n: 10}}
  background: {path: b}
methods: [{kind: LD}]
`},
		{"NegativeWeight", `
dataset:
  variables: [x]
  signal: {path: a, weight: -1}
  background: {path: b}
methods: [{kind: LD}]
`},
		{"EmptyGen", `
dataset:
  variables: [x]
  signal: {gen: {n: 0}}
  background: {path: b}
methods: [{kind: LD}]
`},
		{"NoMethods", `
dataset:
  variables: [x]
  signal: {path: a}
  background: {path: b}
`},
		{"MethodWithoutKind", `
dataset:
  variables: [x]
  signal: {path: a}
  background: {path: b}
methods: [{name: m}]
`},
		{"DuplicateMethodName", `
dataset:
  variables: [x]
  signal: {path: a}
  background: {path: b}
methods: [{kind: LD}, {kind: LD}]
`},
	} {
		_, err := Parse([]byte(test.in))
		assert.Error(t, err, test.name)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "crosseval", cfg.CrossValidation.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
