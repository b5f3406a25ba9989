package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval_Text(t *testing.T) {
	stdout, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), "27")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Steps: 111")
	assert.Contains(t, stdout, "Peak: 9,232")
	assert.Contains(t, stdout, "Digest: 670671cd97404156226e507973f2ab8330d3022ca96e0c93bdbdb320c41adcaf")
	assert.NotContains(t, stdout, "cutoff")
}

func TestEval_JSON(t *testing.T) {
	stdout, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "json"}), "6")
	require.NoError(t, err)

	var res struct {
		Value         int64 `json:"value"`
		Steps         int64 `json:"steps"`
		Peak          int64 `json:"peak"`
		CutoffReached bool  `json:"cutoff_reached"`
	}
	decodeResponse(t, stdout, &res)
	assert.Equal(t, int64(6), res.Value)
	assert.Equal(t, int64(8), res.Steps)
	assert.Equal(t, int64(16), res.Peak)
	assert.False(t, res.CutoffReached)
}

func TestEval_Cutoff(t *testing.T) {
	stdout, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), "27", "--cutoff", "3")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Steps: 3")
	assert.Contains(t, stdout, "Peak: 124")
	assert.Contains(t, stdout, "Stopped at the 3-step cutoff")
}

func TestEval_PowerNotation(t *testing.T) {
	stdout, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), "2^200")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Steps: 200")
}

func TestEval_InvalidInput(t *testing.T) {
	for _, arg := range []string{"abc", "0", "1.5"} {
		t.Run(arg, func(t *testing.T) {
			_, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), arg)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestEval_RequiresOneArg(t *testing.T) {
	_, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
