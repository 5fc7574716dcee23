package export_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keurnel/sigforge/internal/sigasm"
	"github.com/keurnel/sigforge/internal/sigasm/export"
)

func sampleSet() export.SignatureSet {
	b := func(v byte) *byte { return &v }
	sig := sigasm.GeneratedSignature{
		Pattern:         "0F 84 ?? ?? ?? ?? 8B",
		Mask:            "xx????x",
		Bytes:           []*byte{b(0x0F), b(0x84), nil, nil, nil, nil, b(0x8B)},
		Length:          7,
		UniquenessScore: 0.71,
		Stability:       "high",
	}
	return export.NewSignatureSet(map[string][]sigasm.GeneratedSignature{
		"Lawnmower_A": {sig},
	})
}

var fixedTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFormats_ListsSixFormats(t *testing.T) {
	formats := export.Formats()
	require.Len(t, formats, 6)

	ids := make([]string, len(formats))
	for i, f := range formats {
		ids[i] = f.ID
	}
	assert.ElementsMatch(t, []string{"aob", "mask", "ida", "cheatengine", "cpp", "x64dbg"}, ids)
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := export.Render(sampleSet(), "bogus", "game.exe", fixedTime)
	assert.Error(t, err)
}

func TestRender_AOB(t *testing.T) {
	out, err := export.Render(sampleSet(), export.FormatAOB, "game.exe", fixedTime)
	require.NoError(t, err)
	assert.Contains(t, out, "Lawnmower_A")
	assert.Contains(t, out, "0F 84 ?? ?? ?? ?? 8B")
	assert.Contains(t, out, "71% unique")
}

func TestRender_Mask(t *testing.T) {
	out, err := export.Render(sampleSet(), export.FormatMask, "game.exe", fixedTime)
	require.NoError(t, err)
	assert.Contains(t, out, "Pattern: 0F84000000008B")
	assert.Contains(t, out, "Mask:    xx????x")
}

func TestRender_IDA(t *testing.T) {
	out, err := export.Render(sampleSet(), export.FormatIDA, "game.exe", fixedTime)
	require.NoError(t, err)
	assert.Contains(t, out, "LAWNMOWER_A_PATTERN")
	assert.Contains(t, out, "def find_lawnmower_a():")
}

func TestRender_CheatEngine(t *testing.T) {
	out, err := export.Render(sampleSet(), export.FormatCheatEngine, "game.exe", fixedTime)
	require.NoError(t, err)
	assert.Contains(t, out, "[ENABLE]")
	assert.Contains(t, out, "aobscanmodule(Lawnmower_A,game.exe,0F84????????8B)")
	assert.Contains(t, out, "[DISABLE]")
}

func TestRender_CPP(t *testing.T) {
	out, err := export.Render(sampleSet(), export.FormatCPP, "game.exe", fixedTime)
	require.NoError(t, err)
	assert.Contains(t, out, "LAWNMOWER_A_PATTERN[]")
	assert.Contains(t, out, "0x0F, 0x84, 0x00, 0x00, 0x00, 0x00, 0x8B")
	assert.Contains(t, out, "#define LAWNMOWER_A_SIZE 7")
}

func TestRender_X64dbg(t *testing.T) {
	out, err := export.Render(sampleSet(), export.FormatX64dbg, "game.exe", fixedTime)
	require.NoError(t, err)
	assert.Contains(t, out, "0F84????????8B")
}

func TestNewSignatureSet_SortsOrder(t *testing.T) {
	set := export.NewSignatureSet(map[string][]sigasm.GeneratedSignature{
		"Zebra": nil,
		"Alpha": nil,
	})
	assert.Equal(t, []string{"Alpha", "Zebra"}, set.Order)
}
