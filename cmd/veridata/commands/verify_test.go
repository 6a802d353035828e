package commands_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata/veridata/cmd/veridata/commands"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

const passengersCSV = `PassengerId,Name,Age,Sex
1,Braund,25,male
2,Cumings,30,female
3,Heikkinen,-5,female
4,Futrelle,40,
`

func suiteYAML(table, minOp string, minValue float64) string {
	return fmt.Sprintf(`suite: titanic
table: %s
checks:
  - name: integrity
    level: error
    rules:
      - type: has_size
        assertion: {op: "==", value: 4}
      - type: is_unique
        columns: [PassengerId]
      - type: has_min
        column: Age
        assertion: {op: "%s", value: %g}
`, table, minOp, minValue)
}

func TestVerifyCommand_PassingSuite_NoError(t *testing.T) {
	dir := t.TempDir()
	csv := writeFile(t, dir, "passengers.csv", passengersCSV)
	suite := writeFile(t, dir, "suite.yaml", suiteYAML("verify_pass", ">=", -5))

	cmd := commands.NewVerifyCommand()
	cmd.Flags().String("config", "", "")

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--suite", suite, "--csv", csv})

	err := cmd.Execute()
	require.NoError(t, err)

	assert.Contains(t, out.String(), "PASSED")
}

func TestVerifyCommand_FailingSuite_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	csv := writeFile(t, dir, "passengers.csv", passengersCSV)
	suite := writeFile(t, dir, "suite.yaml", suiteYAML("verify_fail", ">", 0))

	cmd := commands.NewVerifyCommand()
	cmd.Flags().String("config", "", "")

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--suite", suite, "--csv", csv})

	err := cmd.Execute()

	require.ErrorIs(t, err, commands.ErrVerificationFailed)
	assert.Contains(t, out.String(), "expected Age min > 0, got -5")
}

func TestVerifyCommand_MissingSuiteFlag_Errors(t *testing.T) {
	cmd := commands.NewVerifyCommand()
	cmd.Flags().String("config", "", "")
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	require.Error(t, err)
}
